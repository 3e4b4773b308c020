// File: dispatcher/config.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Dispatcher configuration with environment loading and validation.

package dispatcher

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"

	"github.com/ryntric/affinity-dispatcher/affinity"
	"github.com/ryntric/affinity-dispatcher/api"
)

// EnvPrefix prefixes every environment variable read by ConfigFromEnv.
const EnvPrefix = "AFFINITY_"

// Config holds parameters immutable for the lifetime of a dispatcher.
type Config struct {
	// WorkerCount is the number of workers. Zero selects NumCPU-1, at least 1.
	WorkerCount int `env:"WORKER_COUNT, default=0"`
	// NodesPerWorker is the number of routing slots bound to each worker.
	NodesPerWorker int `env:"NODES_PER_WORKER, default=400"`
	// BufferSize is the channel capacity, rounded up to a power of two.
	BufferSize int `env:"BUFFER_SIZE, default=4096"`
	// BatchSize caps the entries a worker drains per pass.
	BatchSize int `env:"BATCH_SIZE, default=2048"`
	// WorkerPriority is the nice value of worker threads; 0 is normal.
	WorkerPriority int                  `env:"WORKER_PRIORITY, default=0"`
	ChannelType    api.ChannelType      `env:"CHANNEL_TYPE, default=spsc"`
	ProducerWait   api.ProducerWaitType `env:"PRODUCER_WAIT_STRATEGY, default=spinning"`
	ConsumerWait   api.ConsumerWaitType `env:"CONSUMER_WAIT_STRATEGY, default=blocking"`
	// PinWorkers pins worker n to CPU n modulo the CPU count.
	PinWorkers bool `env:"PIN_WORKERS, default=false"`
	// ParkTimeout bounds one park of a blocking consumer. Zero parks until signalled.
	ParkTimeout time.Duration `env:"PARK_TIMEOUT, default=10ms"`
	// FaultLogSize is the number of handler panics retained per worker.
	FaultLogSize int `env:"FAULT_LOG_SIZE, default=64"`
}

// DefaultConfig returns default configuration values.
func DefaultConfig() Config {
	return Config{
		WorkerCount:    0,     // computed from the CPU count
		NodesPerWorker: 400,   // slots per worker
		BufferSize:     4096,  // entries per channel
		BatchSize:      2048,  // entries per drain pass
		WorkerPriority: 0,     // normal priority
		ChannelType:    api.SPSC,
		ProducerWait:   api.ProducerSpinning,
		ConsumerWait:   api.ConsumerBlocking,
		PinWorkers:     false,
		ParkTimeout:    10 * time.Millisecond,
		FaultLogSize:   64,
	}
}

// ConfigFromEnv loads a Config from AFFINITY_* environment variables.
func ConfigFromEnv(ctx context.Context) (Config, error) {
	return ConfigFromLookuper(ctx, envconfig.OsLookuper())
}

// ConfigFromLookuper loads a Config from l, with EnvPrefix applied to every
// key, and validates it.
func ConfigFromLookuper(ctx context.Context, l envconfig.Lookuper) (Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: envconfig.PrefixLookuper(EnvPrefix, l),
	}); err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// maxTableSize keeps uint64(hash) * size within 64 bits.
const maxTableSize = uint64(1) << 32

// Validate checks field ranges. A zero WorkerCount is valid; the table size
// is checked against the count it resolves to.
func (c *Config) Validate() error {
	switch {
	case c.WorkerCount < 0:
		return &api.ConfigError{Field: "WorkerCount", Reason: "must not be negative"}
	case c.NodesPerWorker < 1:
		return &api.ConfigError{Field: "NodesPerWorker", Reason: "must be positive"}
	case uint64(c.resolved().WorkerCount)*uint64(c.NodesPerWorker) > maxTableSize:
		return &api.ConfigError{Field: "NodesPerWorker", Reason: "routing table exceeds 2^32 slots"}
	case c.BufferSize < 1:
		return &api.ConfigError{Field: "BufferSize", Reason: "must be positive"}
	case c.BatchSize < 1:
		return &api.ConfigError{Field: "BatchSize", Reason: "must be positive"}
	case c.WorkerPriority < -20 || c.WorkerPriority > 19:
		return &api.ConfigError{Field: "WorkerPriority", Reason: "must be a nice value in [-20, 19]"}
	case c.ChannelType != api.SPSC && c.ChannelType != api.MPSC:
		return &api.ConfigError{Field: "ChannelType", Reason: "unknown channel type " + c.ChannelType.String()}
	case c.ProducerWait != api.ProducerSpinning:
		return &api.ConfigError{Field: "ProducerWait", Reason: "unknown strategy " + c.ProducerWait.String()}
	case c.ConsumerWait != api.ConsumerBlocking && c.ConsumerWait != api.ConsumerSpinning:
		return &api.ConfigError{Field: "ConsumerWait", Reason: "unknown strategy " + c.ConsumerWait.String()}
	case c.ParkTimeout < 0:
		return &api.ConfigError{Field: "ParkTimeout", Reason: "must not be negative"}
	case c.FaultLogSize < 0:
		return &api.ConfigError{Field: "FaultLogSize", Reason: "must not be negative"}
	}
	return nil
}

// resolved returns c with computed defaults filled in.
func (c Config) resolved() Config {
	if c.WorkerCount == 0 {
		c.WorkerCount = defaultWorkerCount()
	}
	return c
}

func defaultWorkerCount() int {
	return max(affinity.NumCPU()-1, 1)
}
