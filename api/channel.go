// Package api
// Author: momentics@gmail.com
//
// Bounded channel and wait strategy contracts for worker hand-off.

package api

// Channel is a bounded queue with exactly one consumer.
// Whether several goroutines may push concurrently depends on the
// ChannelType the channel was built with.
type Channel[T any] interface {
	// Push inserts value, waiting per the producer strategy while full.
	Push(value T)
	// PushBatch inserts values in order. Batches larger than the capacity
	// are split into capacity-sized chunks.
	PushBatch(values ...T)
	// Receive delivers up to batchSize contiguous entries to fn in arrival
	// order. When the channel is empty it suspends per the consumer strategy.
	// Returns the number of entries delivered; 0 means the wait was released
	// by WakeupConsumer or a park timeout.
	Receive(batchSize int, fn func(T)) int
	// Poll is the non-blocking form of Receive.
	Poll(batchSize int, fn func(T)) int
	// Len returns an advisory count of unconsumed entries.
	Len() int
	// Cap returns the channel capacity.
	Cap() int
	// WakeupConsumer releases a consumer suspended in Receive without data.
	WakeupConsumer()
}

// ProducerWaitStrategy decides what a producer does while the channel is full.
type ProducerWaitStrategy interface {
	// AwaitNotFull is called once per failed attempt; attempt starts at 0.
	AwaitNotFull(attempt int)
}

// ConsumerWaitStrategy decides what the consumer does while the channel is empty.
type ConsumerWaitStrategy interface {
	// AwaitNotEmpty waits until ready reports true and returns true, or
	// returns false when released by Wakeup or a park timeout.
	AwaitNotEmpty(ready func() bool) bool
	// Signal notifies a waiting consumer that data was published.
	Signal()
	// Wakeup forcibly releases a waiting consumer. It is idempotent.
	Wakeup()
}
