//go:build unix

package session

import (
	"errors"

	"golang.org/x/sys/unix"
)

func isAddrInUse(err error) bool {
	return errors.Is(err, unix.EADDRINUSE)
}

func isBindDenied(err error) bool {
	return errors.Is(err, unix.EACCES) || errors.Is(err, unix.EPERM)
}

func isAddrNotAvailable(err error) bool {
	return errors.Is(err, unix.EADDRNOTAVAIL)
}
