// File: internal/concurrency/mpsc.go
// Package concurrency implements lock-free ring buffers.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// mpscChannel is a bounded circular buffer with atomic head/tail,
// padded to prevent false sharing. Producers claim sequences with CAS on
// tail; every cell carries its own sequence so the consumer never reads a
// claimed-but-unwritten slot. Based on the pattern by Dmitry Vyukov.

package concurrency

import (
	"sync/atomic"

	"golang.org/x/sys/cpu"

	"github.com/ryntric/affinity-dispatcher/api"
)

var _ api.Channel[any] = (*mpscChannel[any])(nil)

// cell is free for sequence s when sequence == s and holds the value of
// sequence s when sequence == s+1.
type cell[T any] struct {
	sequence atomic.Uint64
	data     T
}

type mpscChannel[T any] struct {
	_    cpu.CacheLinePad
	head atomic.Uint64 // written by the consumer only
	_    cpu.CacheLinePad
	tail atomic.Uint64 // claimed by producers via CAS
	_    cpu.CacheLinePad

	mask     uint64
	capacity uint64
	cells    []cell[T]
	producer api.ProducerWaitStrategy
	consumer api.ConsumerWaitStrategy
	ready    func() bool
}

func newMPSC[T any](capacity int, producer api.ProducerWaitStrategy, consumer api.ConsumerWaitStrategy) *mpscChannel[T] {
	size := roundUpPow2(uint64(capacity))
	q := &mpscChannel[T]{
		mask:     size - 1,
		capacity: size,
		cells:    make([]cell[T], size),
		producer: producer,
		consumer: consumer,
	}
	for i := range q.cells {
		q.cells[i].sequence.Store(uint64(i))
	}
	q.ready = func() bool {
		h := q.head.Load()
		return q.cells[h&q.mask].sequence.Load() == h+1
	}
	return q
}

func (q *mpscChannel[T]) Push(value T) {
	for attempt := 0; ; {
		tail := q.tail.Load()
		c := &q.cells[tail&q.mask]
		dif := int64(c.sequence.Load() - tail)

		if dif == 0 {
			if q.tail.CompareAndSwap(tail, tail+1) {
				c.data = value
				c.sequence.Store(tail + 1)
				q.consumer.Signal()
				return
			}
		} else if dif < 0 {
			q.producer.AwaitNotFull(attempt) // full
			attempt++
		}
		// dif > 0: tail moved, retry
	}
}

// PushBatch claims each chunk as one contiguous sequence range. The consumer
// releases cells in order, so the last cell of the range being free implies
// every earlier one is free too.
func (q *mpscChannel[T]) PushBatch(values ...T) {
	for len(values) > 0 {
		n := min(uint64(len(values)), q.capacity)
		tail := q.claim(n)
		for i := uint64(0); i < n; i++ {
			c := &q.cells[(tail+i)&q.mask]
			c.data = values[i]
			c.sequence.Store(tail + i + 1)
		}
		q.consumer.Signal()
		values = values[n:]
	}
}

// claim reserves n consecutive sequences and returns the first.
func (q *mpscChannel[T]) claim(n uint64) uint64 {
	for attempt := 0; ; {
		tail := q.tail.Load()
		last := tail + n - 1
		dif := int64(q.cells[last&q.mask].sequence.Load() - last)

		if dif == 0 {
			if q.tail.CompareAndSwap(tail, tail+n) {
				return tail
			}
		} else if dif < 0 {
			q.producer.AwaitNotFull(attempt)
			attempt++
		}
	}
}

func (q *mpscChannel[T]) Receive(batchSize int, fn func(T)) int {
	for {
		if n := q.Poll(batchSize, fn); n > 0 {
			return n
		}
		if !q.consumer.AwaitNotEmpty(q.ready) {
			return 0
		}
	}
}

// Poll stops at the first cell that is not yet published, even if later
// cells already are, so delivery follows sequence order.
func (q *mpscChannel[T]) Poll(batchSize int, fn func(T)) int {
	head := q.head.Load()
	limit := max(batchSize, 1)
	var zero T
	n := 0
	for n < limit {
		c := &q.cells[head&q.mask]
		if c.sequence.Load() != head+1 {
			break
		}
		v := c.data
		c.data = zero
		c.sequence.Store(head + q.capacity)
		head++
		n++
		fn(v)
	}
	if n > 0 {
		q.head.Store(head)
	}
	return n
}

// Len counts claimed sequences, including ones still being written. head is
// published once per batch, so the raw difference can briefly overshoot.
func (q *mpscChannel[T]) Len() int {
	head := q.head.Load()
	return int(min(q.tail.Load()-head, q.capacity))
}

func (q *mpscChannel[T]) Cap() int {
	return int(q.capacity)
}

func (q *mpscChannel[T]) WakeupConsumer() {
	q.consumer.Wakeup()
}
