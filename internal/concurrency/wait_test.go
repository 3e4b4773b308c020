package concurrency

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/ryntric/affinity-dispatcher/api"
)

func TestNewWait_Unknown(t *testing.T) {
	if _, err := NewProducerWait(api.ProducerWaitType(9)); !errors.Is(err, ErrUnknownWaitStrategy) {
		t.Errorf("NewProducerWait(9) = %v, want ErrUnknownWaitStrategy", err)
	}
	if _, err := NewConsumerWait(api.ConsumerWaitType(9), WaitOptions{}); !errors.Is(err, ErrUnknownWaitStrategy) {
		t.Errorf("NewConsumerWait(9) = %v, want ErrUnknownWaitStrategy", err)
	}
}

func TestNewConsumerWait_FreshInstances(t *testing.T) {
	a, _ := NewConsumerWait(api.ConsumerBlocking, WaitOptions{})
	b, _ := NewConsumerWait(api.ConsumerBlocking, WaitOptions{})
	if a == b {
		t.Error("blocking strategies share an instance")
	}
}

func TestBlockingConsumerWait_ReadyReturnsImmediately(t *testing.T) {
	w := NewBlockingConsumerWait(WaitOptions{SpinTries: DefaultSpinTries})
	if !w.AwaitNotEmpty(func() bool { return true }) {
		t.Error("AwaitNotEmpty() = false with data ready")
	}
	if got := w.waiters.Load(); got != 0 {
		t.Errorf("waiters = %d after spin phase, want 0", got)
	}
}

func TestBlockingConsumerWait_ParkTimeout(t *testing.T) {
	clock := clockwork.NewFakeClock()
	w := NewBlockingConsumerWait(WaitOptions{ParkTimeout: 10 * time.Millisecond, Clock: clock})

	result := make(chan bool, 1)
	go func() { result <- w.AwaitNotEmpty(func() bool { return false }) }()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := clock.BlockUntilContext(ctx, 1); err != nil {
		t.Fatalf("consumer never parked: %v", err)
	}
	clock.Advance(10 * time.Millisecond)

	select {
	case ok := <-result:
		if ok {
			t.Error("AwaitNotEmpty() = true after park timeout, want false")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("park timeout did not release the consumer")
	}
	if got := w.waiters.Load(); got != 0 {
		t.Errorf("waiters = %d after timeout, want 0", got)
	}
}

func TestBlockingConsumerWait_SignalReleasesParked(t *testing.T) {
	w := NewBlockingConsumerWait(WaitOptions{})
	var ready atomic.Bool

	result := make(chan bool, 1)
	go func() { result <- w.AwaitNotEmpty(ready.Load) }()

	deadline := time.Now().Add(5 * time.Second)
	for w.waiters.Load() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("consumer never registered as waiter")
		}
		time.Sleep(time.Millisecond)
	}
	ready.Store(true)
	w.Signal()

	select {
	case ok := <-result:
		if !ok {
			t.Error("AwaitNotEmpty() = false after signal, want true")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("signal did not release the consumer")
	}
}

func TestBlockingConsumerWait_SignalWithoutWaiters(t *testing.T) {
	w := NewBlockingConsumerWait(WaitOptions{})
	w.Signal()
	if got := len(w.notify); got != 0 {
		t.Errorf("notify holds %d tokens with no waiters, want 0", got)
	}
}

func TestBlockingConsumerWait_WakeupIsSticky(t *testing.T) {
	w := NewBlockingConsumerWait(WaitOptions{})
	w.Wakeup()
	w.Wakeup()
	// The wakeup issued before the wait still releases it.
	if w.AwaitNotEmpty(func() bool { return false }) {
		t.Error("AwaitNotEmpty() = true after wakeup, want false")
	}
}

func TestSpinningConsumerWait(t *testing.T) {
	w := &SpinningConsumerWait{}
	calls := 0
	ok := w.AwaitNotEmpty(func() bool {
		calls++
		return calls > 200
	})
	if !ok || calls != 201 {
		t.Errorf("AwaitNotEmpty() = %v after %d checks, want true after 201", ok, calls)
	}

	w.Wakeup()
	if w.AwaitNotEmpty(func() bool { return false }) {
		t.Error("AwaitNotEmpty() = true after wakeup, want false")
	}
}

func TestRoundUpPow2(t *testing.T) {
	cases := map[uint64]uint64{0: 1, 1: 1, 2: 2, 3: 4, 5: 8, 4096: 4096, 4097: 8192}
	for in, want := range cases {
		if got := roundUpPow2(in); got != want {
			t.Errorf("roundUpPow2(%d) = %d, want %d", in, got, want)
		}
	}
}
