// Package api
// Author: momentics@gmail.com
//
// OS thread placement contract used by worker goroutines.

package api

// Affinity tunes the OS thread a worker goroutine is locked to.
// Both calls act on the calling thread only.
type Affinity interface {
	// Pin binds the calling thread to a logical CPU.
	Pin(cpuID int) error
	// SetPriority applies a nice value to the calling thread. 0 is normal.
	SetPriority(nice int) error
}
