// File: dispatcher/dispatcher.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Dispatcher owns the workers and the routing table and drives their
// lifecycle: NOT_STARTED -> STARTED -> TERMINATED. Every transition is a
// single compare-and-swap, so Start and Shutdown are idempotent and a
// terminated dispatcher cannot be restarted.

package dispatcher

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/chainguard-dev/clog"
	"github.com/jonboulle/clockwork"

	"github.com/ryntric/affinity-dispatcher/affinity"
	"github.com/ryntric/affinity-dispatcher/api"
	"github.com/ryntric/affinity-dispatcher/control"
	"github.com/ryntric/affinity-dispatcher/internal/concurrency"
)

// Fault describes one recovered handler panic.
type Fault = concurrency.Fault

// Dispatcher routes keyed values to a fixed pool of workers.
type Dispatcher[T any] struct {
	name    string
	cfg     Config
	hasher  api.HashCodeProvider
	workers []*concurrency.Worker[T]
	table   *routingTable[T]
	state   atomic.Int32

	log     *clog.Logger
	metrics *control.Metrics
	probes  *control.DepthProbes

	// probeMu orders probe registration in Start against removal in Shutdown.
	probeMu    sync.Mutex
	unregister func()
}

var _ api.Lifecycle = (*Dispatcher[any])(nil)

// New validates the configuration and eagerly builds every worker and the
// routing table. No goroutine runs until Start.
func New[T any](name string, handler api.Handler[T], hasher api.HashCodeProvider, opts ...Option) (*Dispatcher[T], error) {
	if name == "" {
		return nil, &api.ConfigError{Field: "name", Reason: "must not be empty"}
	}
	if handler == nil {
		return nil, api.ErrNilHandler
	}
	if hasher == nil {
		return nil, api.ErrNilHashCodeProvider
	}

	s := &settings{cfg: DefaultConfig()}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.cfg.Validate(); err != nil {
		return nil, err
	}
	cfg := s.cfg.resolved()
	if s.logger == nil {
		s.logger = clog.New(slog.Default().Handler())
	}
	if s.clock == nil {
		s.clock = clockwork.NewRealClock()
	}
	if s.affinity == nil {
		s.affinity = affinity.Thread{}
	}
	if s.probes == nil {
		s.probes = control.DefaultDepthProbes()
	}

	d := &Dispatcher[T]{
		name:    name,
		cfg:     cfg,
		hasher:  hasher,
		log:     s.logger.With("dispatcher", name),
		metrics: control.NewMetrics(name),
		probes:  s.probes,
	}

	producer, err := concurrency.NewProducerWait(cfg.ProducerWait)
	if err != nil {
		return nil, err
	}
	factory := concurrency.NewWorkerFactory(name, handler, concurrency.WorkerOptions{
		BatchSize:    cfg.BatchSize,
		Priority:     cfg.WorkerPriority,
		Pin:          cfg.PinWorkers,
		Affinity:     s.affinity,
		Logger:       d.log,
		Clock:        s.clock,
		FaultLogSize: cfg.FaultLogSize,
	}, func(worker string) concurrency.Observer {
		return d.metrics.Worker(worker)
	})

	d.workers = make([]*concurrency.Worker[T], cfg.WorkerCount)
	for i := range d.workers {
		consumer, err := concurrency.NewConsumerWait(cfg.ConsumerWait, concurrency.WaitOptions{
			SpinTries:   concurrency.DefaultSpinTries,
			ParkTimeout: cfg.ParkTimeout,
			Clock:       s.clock,
		})
		if err != nil {
			return nil, err
		}
		ch, err := concurrency.NewChannel[T](cfg.ChannelType, cfg.BufferSize, producer, consumer)
		if err != nil {
			return nil, err
		}
		d.workers[i] = factory.NewWorker(ch)
	}
	d.table = newRoutingTable(d.workers, cfg.NodesPerWorker)
	return d, nil
}

// Start launches every worker. Calls after the first are no-ops.
func (d *Dispatcher[T]) Start() {
	if !d.state.CompareAndSwap(int32(api.StateNotStarted), int32(api.StateStarted)) {
		return
	}
	d.probeMu.Lock()
	if d.State() == api.StateStarted {
		d.unregister = d.probes.RegisterProbe(d.name, d.depths)
	}
	d.probeMu.Unlock()
	for _, w := range d.workers {
		w.Start()
	}
	d.metrics.Transition(api.StateStarted)
	d.log.Infof("dispatcher started with %d workers, table size %d", len(d.workers), d.table.size)
}

// Shutdown terminates every worker. Values enqueued before Shutdown are
// still handled. Calls before Start or after the first are no-ops.
func (d *Dispatcher[T]) Shutdown() {
	if !d.state.CompareAndSwap(int32(api.StateStarted), int32(api.StateTerminated)) {
		return
	}
	for _, w := range d.workers {
		w.Terminate()
	}
	d.probeMu.Lock()
	if d.unregister != nil {
		d.unregister()
		d.unregister = nil
	}
	d.probeMu.Unlock()
	d.metrics.Transition(api.StateTerminated)
	d.log.Info("dispatcher terminated")
}

// AwaitTermination blocks until every worker has drained its channel and
// exited, or ctx is done. It returns immediately if the dispatcher was never
// started.
func (d *Dispatcher[T]) AwaitTermination(ctx context.Context) error {
	if d.State() == api.StateNotStarted {
		return nil
	}
	for _, w := range d.workers {
		select {
		case <-w.Done():
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// DispatchBytes routes value by a byte-slice key.
func (d *Dispatcher[T]) DispatchBytes(key []byte, value T) error {
	return d.dispatch(d.hasher.HashBytes(key), value)
}

// DispatchString routes value by a string key.
func (d *Dispatcher[T]) DispatchString(key string, value T) error {
	return d.dispatch(d.hasher.HashString(key), value)
}

// DispatchInt32 routes value by an int32 key.
func (d *Dispatcher[T]) DispatchInt32(key int32, value T) error {
	return d.dispatch(d.hasher.HashInt32(key), value)
}

// DispatchInt64 routes value by an int64 key.
func (d *Dispatcher[T]) DispatchInt64(key int64, value T) error {
	return d.dispatch(d.hasher.HashInt64(key), value)
}

// DispatchStringBatch routes values, in order, to the worker of key.
func (d *Dispatcher[T]) DispatchStringBatch(key string, values ...T) error {
	return d.dispatchBatch(d.hasher.HashString(key), values)
}

// DispatchBytesBatch routes values, in order, to the worker of key.
func (d *Dispatcher[T]) DispatchBytesBatch(key []byte, values ...T) error {
	return d.dispatchBatch(d.hasher.HashBytes(key), values)
}

// The state check is not linearizable with a concurrent Shutdown: a value
// that passes it may land after the worker's final drain and is then lost.
func (d *Dispatcher[T]) dispatch(hash uint32, value T) error {
	if err := d.checkStarted(); err != nil {
		return err
	}
	d.table.node(hash).worker.Publish(value)
	d.metrics.Dispatched(1)
	return nil
}

func (d *Dispatcher[T]) dispatchBatch(hash uint32, values []T) error {
	if err := d.checkStarted(); err != nil {
		return err
	}
	if len(values) == 0 {
		return nil
	}
	d.table.node(hash).worker.PublishBatch(values...)
	d.metrics.Dispatched(len(values))
	return nil
}

func (d *Dispatcher[T]) checkStarted() error {
	if s := api.State(d.state.Load()); s != api.StateStarted {
		d.metrics.Rejected()
		return &api.TerminatedError{Name: d.name, State: s}
	}
	return nil
}

// Route returns the index of the worker that hash is routed to.
func (d *Dispatcher[T]) Route(hash uint32) int {
	return d.table.node(hash).index
}

// Name returns the dispatcher name.
func (d *Dispatcher[T]) Name() string { return d.name }

// WorkerCount returns the number of workers.
func (d *Dispatcher[T]) WorkerCount() int { return len(d.workers) }

// RoutingTableSize returns WorkerCount * NodesPerWorker.
func (d *Dispatcher[T]) RoutingTableSize() int { return len(d.table.nodes) }

// NodesPerWorker returns the routing slots bound to each worker.
func (d *Dispatcher[T]) NodesPerWorker() int { return d.cfg.NodesPerWorker }

// State returns the current lifecycle state.
func (d *Dispatcher[T]) State() api.State { return api.State(d.state.Load()) }

// Config returns the resolved configuration.
func (d *Dispatcher[T]) Config() Config { return d.cfg }

// WorkerNames returns worker names in index order.
func (d *Dispatcher[T]) WorkerNames() []string {
	names := make([]string, len(d.workers))
	for i, w := range d.workers {
		names[i] = w.Name()
	}
	return names
}

// ChannelSizes maps every worker name to its current channel depth. Depths
// are advisory snapshots.
func (d *Dispatcher[T]) ChannelSizes() map[string]int64 {
	return d.depths()
}

func (d *Dispatcher[T]) depths() map[string]int64 {
	out := make(map[string]int64, len(d.workers))
	for _, w := range d.workers {
		out[w.Name()] = int64(w.Len())
	}
	return out
}

// FaultCount returns the number of handler panics recovered by all workers,
// including those no longer retained by Faults.
func (d *Dispatcher[T]) FaultCount() uint64 {
	var n uint64
	for _, w := range d.workers {
		n += w.FaultCount()
	}
	return n
}

// Faults returns the retained handler panics of all workers, grouped by
// worker in index order and oldest first within a worker.
func (d *Dispatcher[T]) Faults() []Fault {
	var out []Fault
	for _, w := range d.workers {
		out = append(out, w.Faults()...)
	}
	return out
}
