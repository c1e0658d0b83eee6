//go:build !unix && !windows

package session

import "strings"

func isAddrInUse(err error) bool {
	return strings.Contains(err.Error(), "address already in use")
}

func isBindDenied(err error) bool {
	return strings.Contains(err.Error(), "permission denied")
}

func isAddrNotAvailable(err error) bool {
	return strings.Contains(err.Error(), "cannot assign requested address")
}
