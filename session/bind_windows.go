//go:build windows

package session

import (
	"errors"
	"syscall"

	"golang.org/x/sys/windows"
)

// Winsock error codes.
const (
	wsaeaddrinuse    syscall.Errno = 10048
	wsaeacces        syscall.Errno = 10013
	wsaeaddrnotavail syscall.Errno = 10049
)

func isAddrInUse(err error) bool {
	return errors.Is(err, wsaeaddrinuse)
}

func isBindDenied(err error) bool {
	return errors.Is(err, wsaeacces) || errors.Is(err, windows.ERROR_ACCESS_DENIED)
}

func isAddrNotAvailable(err error) bool {
	return errors.Is(err, wsaeaddrnotavail)
}
