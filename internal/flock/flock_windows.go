//go:build windows

package flock

import "golang.org/x/sys/windows"

// LockFileEx parameters: the first byte of the file stands in for the whole file.
const (
	reserved = 0
	spanLow  = 1
	spanHigh = 0
)

// Exclusive tries once to take an exclusive lock on fd.
func Exclusive(fd uintptr) error {
	return windows.LockFileEx(
		windows.Handle(fd),
		windows.LOCKFILE_EXCLUSIVE_LOCK|windows.LOCKFILE_FAIL_IMMEDIATELY,
		reserved,
		spanLow,
		spanHigh,
		&windows.Overlapped{},
	)
}

// Unlock releases a lock taken with Exclusive.
func Unlock(fd uintptr) error {
	return windows.UnlockFileEx(windows.Handle(fd), reserved, spanLow, spanHigh, &windows.Overlapped{})
}
