// File: dispatcher/options.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Functional options for New.

package dispatcher

import (
	"time"

	"github.com/chainguard-dev/clog"
	"github.com/jonboulle/clockwork"

	"github.com/ryntric/affinity-dispatcher/api"
	"github.com/ryntric/affinity-dispatcher/control"
)

// Option customizes dispatcher construction.
type Option func(*settings)

type settings struct {
	cfg      Config
	logger   *clog.Logger
	clock    clockwork.Clock
	affinity api.Affinity
	probes   *control.DepthProbes
}

// WithConfig replaces the whole configuration. Options applied after it
// still override single fields.
func WithConfig(cfg Config) Option {
	return func(s *settings) {
		s.cfg = cfg
	}
}

// WithWorkerCount sets the number of workers. Zero selects NumCPU-1.
func WithWorkerCount(n int) Option {
	return func(s *settings) {
		s.cfg.WorkerCount = n
	}
}

// WithNodesPerWorker sets the routing slots bound to each worker.
func WithNodesPerWorker(n int) Option {
	return func(s *settings) {
		s.cfg.NodesPerWorker = n
	}
}

// WithBufferSize sets the channel capacity.
func WithBufferSize(n int) Option {
	return func(s *settings) {
		s.cfg.BufferSize = n
	}
}

// WithBatchSize sets the entries a worker drains per pass.
func WithBatchSize(n int) Option {
	return func(s *settings) {
		s.cfg.BatchSize = n
	}
}

// WithWorkerPriority sets the nice value of worker threads.
func WithWorkerPriority(nice int) Option {
	return func(s *settings) {
		s.cfg.WorkerPriority = nice
	}
}

// WithChannelType selects SPSC or MPSC channels. SPSC requires that each
// worker is fed by at most one goroutine at a time.
func WithChannelType(t api.ChannelType) Option {
	return func(s *settings) {
		s.cfg.ChannelType = t
	}
}

// WithProducerWait selects the producer wait strategy.
func WithProducerWait(t api.ProducerWaitType) Option {
	return func(s *settings) {
		s.cfg.ProducerWait = t
	}
}

// WithConsumerWait selects the consumer wait strategy.
func WithConsumerWait(t api.ConsumerWaitType) Option {
	return func(s *settings) {
		s.cfg.ConsumerWait = t
	}
}

// WithPinWorkers toggles CPU pinning of worker threads.
func WithPinWorkers(pin bool) Option {
	return func(s *settings) {
		s.cfg.PinWorkers = pin
	}
}

// WithParkTimeout bounds one park of a blocking consumer.
func WithParkTimeout(d time.Duration) Option {
	return func(s *settings) {
		s.cfg.ParkTimeout = d
	}
}

// WithFaultLogSize sets the handler panics retained per worker.
func WithFaultLogSize(n int) Option {
	return func(s *settings) {
		s.cfg.FaultLogSize = n
	}
}

// WithLogger sets the base logger. The dispatcher adds its name.
func WithLogger(l *clog.Logger) Option {
	return func(s *settings) {
		s.logger = l
	}
}

// WithClock sets the clock driving park timeouts and fault timestamps.
func WithClock(c clockwork.Clock) Option {
	return func(s *settings) {
		s.clock = c
	}
}

// WithAffinity replaces the OS thread placement used by workers.
func WithAffinity(a api.Affinity) Option {
	return func(s *settings) {
		s.affinity = a
	}
}

// WithDepthProbes sets the registry that exports channel depth while the
// dispatcher is started. Defaults to control.DefaultDepthProbes.
func WithDepthProbes(p *control.DepthProbes) Option {
	return func(s *settings) {
		s.probes = p
	}
}
