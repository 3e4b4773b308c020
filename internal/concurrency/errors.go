// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Error definitions for concurrency module.

package concurrency

import "errors"

var (
	// ErrInvalidCapacity indicates a channel capacity below one
	ErrInvalidCapacity = errors.New("channel capacity must be positive")

	// ErrUnknownChannelType indicates an api.ChannelType without an implementation
	ErrUnknownChannelType = errors.New("unknown channel type")

	// ErrUnknownWaitStrategy indicates a wait strategy selector without an implementation
	ErrUnknownWaitStrategy = errors.New("unknown wait strategy")
)
