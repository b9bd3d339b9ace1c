// Package flock provides cross-platform advisory file locks.
//
// The file settings store takes an exclusive lock on a sidecar file around
// every read-modify-write, so a running `inkwell serve` and a concurrent
// `inkwell features` command never interleave writes.
//
// Usage:
//
//	file, _ := os.OpenFile(path+".lock", os.O_RDWR|os.O_CREATE, 0600)
//	if err := flock.Exclusive(file.Fd()); err != nil {
//	    // held by another process; retry or give up
//	}
//	defer flock.Unlock(file.Fd())
package flock
