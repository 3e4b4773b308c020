// File: api/shutdown.go
// Package api defines the lifecycle contract shared by dispatchers and workers.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package api

// Lifecycle is implemented by components that own goroutines.
// Start and Shutdown are idempotent; a component that has been shut down
// cannot be started again.
type Lifecycle interface {
	Start()
	Shutdown()
}
