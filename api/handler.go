// File: api/handler.go
// Package api defines the message handler contract.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package api

// Handler processes payloads routed to a worker.
// worker is the name of the worker invoking the handler; every payload of a
// given key arrives at the same worker. Handle should return promptly: a
// handler that never returns stalls its worker, including its shutdown.
type Handler[T any] interface {
	Handle(worker string, value T)
}

// HandlerFunc adapts an ordinary function to the Handler interface.
type HandlerFunc[T any] func(worker string, value T)

// Handle calls f(worker, value).
func (f HandlerFunc[T]) Handle(worker string, value T) {
	f(worker, value)
}

// HashCodeProvider derives a 32-bit routing hash from a key.
// Implementations must be pure: the same key value always yields the same
// hash. Outputs should spread evenly over the full 32-bit space because the
// router scales the hash with its high bits.
type HashCodeProvider interface {
	HashBytes(key []byte) uint32
	HashString(key string) uint32
	HashInt32(key int32) uint32
	HashInt64(key int64) uint32
}
