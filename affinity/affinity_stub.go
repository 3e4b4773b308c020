//go:build !linux

// File: affinity/affinity_stub.go
// Author: momentics <momentics@gmail.com>
//
// Stub implementation for unsupported platforms.
// Returns error to indicate unavailability.

package affinity

import "github.com/ryntric/affinity-dispatcher/api"

func setAffinityPlatform(cpuID int) error {
	return api.ErrNotSupported
}

func setPriorityPlatform(nice int) error {
	return api.ErrNotSupported
}
