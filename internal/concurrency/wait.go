// File: internal/concurrency/wait.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Producer and consumer wait strategies. Spinning strategies never block the
// OS thread; the blocking consumer strategy spins briefly and then parks on a
// one-token notify channel with a bounded park time.

package concurrency

import (
	"runtime"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/ryntric/affinity-dispatcher/api"
)

const (
	// yieldEvery is how many spin iterations pass between scheduler yields.
	yieldEvery = 64

	DefaultSpinTries   = 64
	DefaultParkTimeout = 10 * time.Millisecond
)

// WaitOptions tunes the blocking consumer strategy.
type WaitOptions struct {
	// SpinTries is the number of ready checks before parking.
	SpinTries int
	// ParkTimeout bounds a single park. Zero parks until signalled.
	ParkTimeout time.Duration
	// Clock drives park timeouts. Defaults to the real clock.
	Clock clockwork.Clock
}

// NewProducerWait returns the strategy selected by t.
func NewProducerWait(t api.ProducerWaitType) (api.ProducerWaitStrategy, error) {
	switch t {
	case api.ProducerSpinning:
		return SpinningProducerWait{}, nil
	default:
		return nil, ErrUnknownWaitStrategy
	}
}

// NewConsumerWait returns a fresh strategy selected by t. Consumer strategies
// carry wakeup state, so each channel needs its own instance.
func NewConsumerWait(t api.ConsumerWaitType, opts WaitOptions) (api.ConsumerWaitStrategy, error) {
	switch t {
	case api.ConsumerSpinning:
		return &SpinningConsumerWait{}, nil
	case api.ConsumerBlocking:
		return NewBlockingConsumerWait(opts), nil
	default:
		return nil, ErrUnknownWaitStrategy
	}
}

// SpinningProducerWait retries in a busy loop while the channel is full.
type SpinningProducerWait struct{}

// AwaitNotFull yields periodically so a consumer sharing the P can drain.
func (SpinningProducerWait) AwaitNotFull(attempt int) {
	if (attempt+1)%yieldEvery == 0 {
		runtime.Gosched()
	}
}

// SpinningConsumerWait busy-waits for data.
type SpinningConsumerWait struct {
	woken atomic.Bool
}

func (w *SpinningConsumerWait) AwaitNotEmpty(ready func() bool) bool {
	for i := 1; ; i++ {
		if ready() {
			return true
		}
		if w.woken.CompareAndSwap(true, false) {
			return false
		}
		if i%yieldEvery == 0 {
			runtime.Gosched()
		}
	}
}

// Signal is a no-op: a spinning consumer observes the cursor directly.
func (w *SpinningConsumerWait) Signal() {}

func (w *SpinningConsumerWait) Wakeup() {
	w.woken.Store(true)
}

// BlockingConsumerWait parks the consumer until a producer signals.
//
// A parking consumer registers in waiters before its final ready check and a
// producer checks waiters after publishing, so at least one of them observes
// the other and no signal is lost.
type BlockingConsumerWait struct {
	spinTries   int
	parkTimeout time.Duration
	clock       clockwork.Clock

	notify  chan struct{}
	waiters atomic.Int32
	woken   atomic.Bool
}

// NewBlockingConsumerWait builds a strategy from opts, filling defaults.
func NewBlockingConsumerWait(opts WaitOptions) *BlockingConsumerWait {
	if opts.SpinTries < 0 {
		opts.SpinTries = 0
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	return &BlockingConsumerWait{
		spinTries:   opts.SpinTries,
		parkTimeout: opts.ParkTimeout,
		clock:       opts.Clock,
		notify:      make(chan struct{}, 1),
	}
}

func (w *BlockingConsumerWait) AwaitNotEmpty(ready func() bool) bool {
	for i := 0; i < w.spinTries; i++ {
		if ready() {
			return true
		}
		if w.woken.CompareAndSwap(true, false) {
			return false
		}
	}

	w.waiters.Add(1)
	defer w.waiters.Add(-1)
	for {
		if ready() {
			return true
		}
		if w.woken.CompareAndSwap(true, false) {
			return false
		}
		if !w.park() {
			return false
		}
	}
}

// park blocks until a token arrives (true) or the park timeout fires (false).
func (w *BlockingConsumerWait) park() bool {
	if w.parkTimeout <= 0 {
		<-w.notify
		return true
	}
	timer := w.clock.NewTimer(w.parkTimeout)
	defer timer.Stop()
	select {
	case <-w.notify:
		return true
	case <-timer.Chan():
		return false
	}
}

// Signal costs one atomic load when nobody is parked.
func (w *BlockingConsumerWait) Signal() {
	if w.waiters.Load() > 0 {
		w.post()
	}
}

func (w *BlockingConsumerWait) Wakeup() {
	w.woken.Store(true)
	w.post()
}

func (w *BlockingConsumerWait) post() {
	select {
	case w.notify <- struct{}{}:
	default:
	}
}
