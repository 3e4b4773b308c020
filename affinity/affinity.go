// File: affinity/affinity.go
// Author: momentics <momentics@gmail.com>
//
// Platform-neutral API for OS thread placement. Platform-specific
// implementations are located in separate files (affinity_linux.go,
// affinity_stub.go) guarded by build tags.
//
// Every call acts on the calling OS thread, so callers lock their goroutine
// with runtime.LockOSThread first.

package affinity

import (
	"runtime"

	"github.com/ryntric/affinity-dispatcher/api"
)

// Thread implements api.Affinity for the calling OS thread.
type Thread struct{}

var _ api.Affinity = Thread{}

// Pin binds the calling thread to cpuID.
func (Thread) Pin(cpuID int) error {
	return SetAffinity(cpuID)
}

// SetPriority applies nice to the calling thread.
func (Thread) SetPriority(nice int) error {
	return SetPriority(nice)
}

// SetAffinity pins current OS thread to a given logical CPU/core on supported platforms.
// On unsupported platforms returns api.ErrNotSupported.
func SetAffinity(cpuID int) error {
	return setAffinityPlatform(cpuID % NumCPU())
}

// SetPriority sets the nice value of the current OS thread. Zero leaves the
// thread at normal priority and is always a no-op.
func SetPriority(nice int) error {
	if nice == 0 {
		return nil
	}
	return setPriorityPlatform(nice)
}

// NumCPU returns the number of logical CPUs usable by the process.
func NumCPU() int {
	return runtime.NumCPU()
}
