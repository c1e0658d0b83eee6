//go:build !linux && !darwin && !freebsd && !windows

package chunk

// freeSpace is unknown on this platform; the write path still fails on a
// full volume, it just cannot be detected up front.
func freeSpace(string) (uint64, bool) { return 0, false }

func isNoSpace(error) bool { return false }
