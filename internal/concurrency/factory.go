// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// WorkerFactory names and configures the workers of one dispatcher.

package concurrency

import (
	"fmt"

	"github.com/ryntric/affinity-dispatcher/api"
)

const workerNameTemplate = "%s-worker-th-%d"

// WorkerFactory creates workers sharing a handler and options. Workers are
// numbered in creation order; with pinning on, worker n is pinned to CPU n
// modulo the CPU count.
type WorkerFactory[T any] struct {
	prefix   string
	handler  api.Handler[T]
	opts     WorkerOptions
	observer func(worker string) Observer
	nextID   int
}

// NewWorkerFactory labels every worker goroutine with dispatcher=prefix.
// observer may be nil.
func NewWorkerFactory[T any](prefix string, handler api.Handler[T], opts WorkerOptions, observer func(worker string) Observer) *WorkerFactory[T] {
	opts.Labels = append([]string{"dispatcher", prefix}, opts.Labels...)
	return &WorkerFactory[T]{
		prefix:   prefix,
		handler:  handler,
		opts:     opts,
		observer: observer,
	}
}

// NewWorker returns the next worker bound to channel. Not safe for concurrent use.
func (f *WorkerFactory[T]) NewWorker(channel api.Channel[T]) *Worker[T] {
	id := f.nextID
	f.nextID++
	name := fmt.Sprintf(workerNameTemplate, f.prefix, id)

	opts := f.opts
	opts.CPU = id
	if f.observer != nil {
		opts.Observer = f.observer(name)
	}
	return NewWorker(name, channel, f.handler, opts)
}
