//go:build linux || darwin || freebsd

package chunk

import (
	"errors"

	"golang.org/x/sys/unix"
)

// freeSpace returns the bytes available to unprivileged writers in dir.
func freeSpace(dir string) (uint64, bool) {
	var st unix.Statfs_t
	if err := unix.Statfs(dir, &st); err != nil {
		return 0, false
	}
	return uint64(st.Bavail) * uint64(st.Bsize), true
}

func isNoSpace(err error) bool {
	return errors.Is(err, unix.ENOSPC) || errors.Is(err, unix.EDQUOT)
}
