// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Channel factory selecting the SPSC or MPSC implementation.

package concurrency

import "github.com/ryntric/affinity-dispatcher/api"

// NewChannel builds a channel of type t. capacity is rounded up to a power of
// two so ring indices reduce to a mask.
func NewChannel[T any](t api.ChannelType, capacity int, producer api.ProducerWaitStrategy, consumer api.ConsumerWaitStrategy) (api.Channel[T], error) {
	if capacity < 1 {
		return nil, ErrInvalidCapacity
	}
	switch t {
	case api.SPSC:
		return newSPSC[T](capacity, producer, consumer), nil
	case api.MPSC:
		return newMPSC[T](capacity, producer, consumer), nil
	default:
		return nil, ErrUnknownChannelType
	}
}
