// File: internal/concurrency/worker.go
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Worker owns one channel and one goroutine locked to an OS thread. The run
// loop drains the channel in batches until Terminate clears the running flag,
// then drains whatever is still queued before it exits.

package concurrency

import (
	"context"
	"log/slog"
	"runtime"
	"runtime/debug"
	"runtime/pprof"
	"sync/atomic"

	"github.com/chainguard-dev/clog"
	"github.com/jonboulle/clockwork"

	"github.com/ryntric/affinity-dispatcher/api"
)

// Observer receives per-worker consumption events.
type Observer interface {
	ObserveDelivered(n int)
	ObservePanic()
}

type nopObserver struct{}

func (nopObserver) ObserveDelivered(int) {}
func (nopObserver) ObservePanic()        {}

// WorkerOptions configures a worker. Zero values select defaults.
type WorkerOptions struct {
	BatchSize    int
	Priority     int  // nice value for the worker thread; 0 leaves it untouched
	Pin          bool // pin the worker thread to CPU
	CPU          int
	Affinity     api.Affinity
	Logger       *clog.Logger
	Clock        clockwork.Clock
	FaultLogSize int
	Observer     Observer
	// Labels are pprof label pairs applied to the worker goroutine.
	Labels []string
}

// Worker drains one channel on one dedicated goroutine.
type Worker[T any] struct {
	name      string
	channel   api.Channel[T]
	handler   api.Handler[T]
	batchSize int
	priority  int
	pin       bool
	cpu       int
	affinity  api.Affinity
	labels    pprof.LabelSet
	log       *clog.Logger
	clock     clockwork.Clock
	observer  Observer
	faults    *FaultLog
	consume   func(T)

	started    atomic.Bool
	running    atomic.Bool
	terminated atomic.Bool
	handled    atomic.Uint64
	done       chan struct{}
}

// NewWorker binds name, channel and handler. The goroutine is not started.
func NewWorker[T any](name string, channel api.Channel[T], handler api.Handler[T], opts WorkerOptions) *Worker[T] {
	if opts.BatchSize < 1 {
		opts.BatchSize = 1
	}
	if opts.Logger == nil {
		opts.Logger = clog.New(slog.Default().Handler())
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Observer == nil {
		opts.Observer = nopObserver{}
	}
	w := &Worker[T]{
		name:      name,
		channel:   channel,
		handler:   handler,
		batchSize: opts.BatchSize,
		priority:  opts.Priority,
		pin:       opts.Pin,
		cpu:       opts.CPU,
		affinity:  opts.Affinity,
		labels:    pprof.Labels(append(append([]string(nil), opts.Labels...), "worker", name)...),
		log:       opts.Logger.With("worker", name),
		clock:     opts.Clock,
		observer:  opts.Observer,
		faults:    NewFaultLog(opts.FaultLogSize),
		done:      make(chan struct{}),
	}
	w.consume = w.invoke
	return w
}

// Name returns the worker name passed to the handler.
func (w *Worker[T]) Name() string { return w.name }

// Len returns the advisory depth of the worker channel.
func (w *Worker[T]) Len() int { return w.channel.Len() }

// Publish enqueues value on the worker channel.
func (w *Worker[T]) Publish(value T) { w.channel.Push(value) }

// PublishBatch enqueues values in order on the worker channel.
func (w *Worker[T]) PublishBatch(values ...T) { w.channel.PushBatch(values...) }

// Handled returns the number of entries handed to the handler so far.
func (w *Worker[T]) Handled() uint64 { return w.handled.Load() }

// Faults returns the retained handler panics, oldest first.
func (w *Worker[T]) Faults() []Fault { return w.faults.Snapshot() }

// FaultCount returns the number of handler panics recovered so far,
// including those evicted from the fault log.
func (w *Worker[T]) FaultCount() uint64 { return w.faults.Total() }

// Done is closed once the goroutine has drained its channel and exited.
func (w *Worker[T]) Done() <-chan struct{} { return w.done }

// Running reports whether the run loop is still accepting batches.
func (w *Worker[T]) Running() bool { return w.running.Load() }

// Start launches the goroutine at most once. A worker terminated before it
// started only drains its channel and exits.
func (w *Worker[T]) Start() {
	if !w.started.CompareAndSwap(false, true) {
		return
	}
	// Terminate stores terminated before clearing running, so either this
	// load sees it or the later clear overwrites the store below.
	w.running.Store(true)
	if w.terminated.Load() {
		w.running.Store(false)
	}
	go w.run()
}

// Terminate asks the run loop to exit after its current batch and releases
// a consumer parked in its wait strategy.
func (w *Worker[T]) Terminate() {
	w.terminated.Store(true)
	w.running.Store(false)
	w.channel.WakeupConsumer()
}

func (w *Worker[T]) run() {
	defer close(w.done)
	runtime.LockOSThread()
	// A thread that was reniced or pinned is discarded with the goroutine
	// instead of going back to the scheduler.
	if !w.place() {
		defer runtime.UnlockOSThread()
	}

	pprof.Do(context.Background(), w.labels, func(context.Context) {
		for w.running.Load() {
			w.observe(w.channel.Receive(w.batchSize, w.consume))
		}
		w.drain()
	})
}

// drain delivers entries published before Terminate.
func (w *Worker[T]) drain() {
	for {
		n := w.channel.Poll(w.batchSize, w.consume)
		if n == 0 {
			return
		}
		w.observe(n)
	}
}

func (w *Worker[T]) observe(n int) {
	if n > 0 {
		w.handled.Add(uint64(n))
		w.observer.ObserveDelivered(n)
	}
}

// invoke runs the handler for one entry. A panic is recorded and the loop
// moves on to the next entry.
func (w *Worker[T]) invoke(value T) {
	defer func() {
		if r := recover(); r != nil {
			w.fault(value, r)
		}
	}()
	w.handler.Handle(w.name, value)
}

func (w *Worker[T]) fault(value T, r any) {
	w.faults.Record(Fault{
		Worker:    w.name,
		Value:     value,
		Recovered: r,
		Stack:     debug.Stack(),
		At:        w.clock.Now(),
	})
	w.observer.ObservePanic()
	w.log.Errorf("handler panic: %v", r)
}
