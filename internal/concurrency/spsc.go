// File: internal/concurrency/spsc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Single-producer/single-consumer ring buffer with minimal atomics to reduce contention.

package concurrency

import (
	"sync/atomic"

	"golang.org/x/sys/cpu"

	"github.com/ryntric/affinity-dispatcher/api"
)

var _ api.Channel[any] = (*spscChannel[any])(nil)

// spscChannel is a bounded ring for one producer and one consumer.
// The producer only writes tail and the consumer only writes head, so
// neither side needs compare-and-swap.
type spscChannel[T any] struct {
	_    cpu.CacheLinePad
	head atomic.Uint64 // consumer cursor
	_    cpu.CacheLinePad
	tail atomic.Uint64 // producer cursor
	// cachedHead is the producer's last observed head; it is reloaded only
	// when the ring looks full.
	cachedHead uint64
	_          cpu.CacheLinePad

	mask     uint64
	capacity uint64
	buf      []T
	producer api.ProducerWaitStrategy
	consumer api.ConsumerWaitStrategy
	ready    func() bool
}

func newSPSC[T any](capacity int, producer api.ProducerWaitStrategy, consumer api.ConsumerWaitStrategy) *spscChannel[T] {
	size := roundUpPow2(uint64(capacity))
	q := &spscChannel[T]{
		mask:     size - 1,
		capacity: size,
		buf:      make([]T, size),
		producer: producer,
		consumer: consumer,
	}
	q.ready = func() bool { return q.tail.Load() != q.head.Load() }
	return q
}

// Push writes the slot and then publishes it by advancing tail.
func (q *spscChannel[T]) Push(value T) {
	t := q.tail.Load()
	q.awaitFree(t, 1)
	q.buf[t&q.mask] = value
	q.tail.Store(t + 1)
	q.consumer.Signal()
}

// PushBatch publishes values in capacity-sized chunks, one tail store each.
func (q *spscChannel[T]) PushBatch(values ...T) {
	for len(values) > 0 {
		n := min(uint64(len(values)), q.capacity)
		t := q.tail.Load()
		q.awaitFree(t, n)
		for i := uint64(0); i < n; i++ {
			q.buf[(t+i)&q.mask] = values[i]
		}
		q.tail.Store(t + n)
		q.consumer.Signal()
		values = values[n:]
	}
}

// awaitFree returns once n slots starting at sequence t are free.
func (q *spscChannel[T]) awaitFree(t, n uint64) {
	for attempt := 0; t+n-q.cachedHead > q.capacity; attempt++ {
		q.cachedHead = q.head.Load()
		if t+n-q.cachedHead <= q.capacity {
			return
		}
		q.producer.AwaitNotFull(attempt)
	}
}

func (q *spscChannel[T]) Receive(batchSize int, fn func(T)) int {
	for {
		if n := q.Poll(batchSize, fn); n > 0 {
			return n
		}
		if !q.consumer.AwaitNotEmpty(q.ready) {
			return 0
		}
	}
}

// Poll hands out the available run and releases it with a single head store.
func (q *spscChannel[T]) Poll(batchSize int, fn func(T)) int {
	h := q.head.Load()
	avail := q.tail.Load() - h
	if avail == 0 {
		return 0
	}
	n := min(avail, uint64(max(batchSize, 1)))
	var zero T
	for i := uint64(0); i < n; i++ {
		idx := (h + i) & q.mask
		v := q.buf[idx]
		q.buf[idx] = zero
		fn(v)
	}
	q.head.Store(h + n)
	return int(n)
}

func (q *spscChannel[T]) Len() int {
	h := q.head.Load()
	return int(q.tail.Load() - h)
}

func (q *spscChannel[T]) Cap() int {
	return int(q.capacity)
}

func (q *spscChannel[T]) WakeupConsumer() {
	q.consumer.Wakeup()
}

// roundUpPow2 returns the smallest power of two >= n, and at least 1.
func roundUpPow2(n uint64) uint64 {
	if n <= 1 {
		return 1
	}
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n |= n >> 32
	return n + 1
}
