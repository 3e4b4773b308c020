// File: internal/concurrency/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Lock-free hand-off primitives for the affinity dispatcher: bounded SPSC and
// MPSC channels over power-of-two ring buffers, pluggable producer/consumer
// wait strategies, and workers that own one channel and one OS-thread-locked
// goroutine each.
//
// Channels have exactly one consumer, the owning worker. Producers are
// either a single goroutine (SPSC) or any number (MPSC); the choice is made
// once, through NewChannel, and callers only see api.Channel.
package concurrency
