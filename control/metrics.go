// control/metrics.go
// Author: momentics <momentics@gmail.com>
//
// Prometheus counters for dispatchers and their workers. Vectors live in the
// default registry; Metrics binds them to one dispatcher's labels.

package control

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ryntric/affinity-dispatcher/api"
)

const namespace = "affinity_dispatcher"

var (
	mDispatched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dispatched_total",
			Help:      "The total number of values accepted for dispatch.",
		},
		[]string{"dispatcher"},
	)
	mRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rejected_total",
			Help:      "The total number of dispatch calls rejected outside the started state.",
		},
		[]string{"dispatcher"},
	)
	mHandled = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "handled_total",
			Help:      "The total number of values handed to the handler by a worker.",
		},
		[]string{"dispatcher", "worker"},
	)
	mPanics = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "handler_panics_total",
			Help:      "The total number of recovered handler panics.",
		},
		[]string{"dispatcher", "worker"},
	)
	mTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lifecycle_transitions_total",
			Help:      "The total number of lifecycle transitions by target state.",
		},
		[]string{"dispatcher", "state"},
	)
)

// Metrics records the counters of one dispatcher.
type Metrics struct {
	name       string
	dispatched prometheus.Counter
	rejected   prometheus.Counter
}

// NewMetrics binds the dispatcher counters to name.
func NewMetrics(name string) *Metrics {
	return &Metrics{
		name:       name,
		dispatched: mDispatched.WithLabelValues(name),
		rejected:   mRejected.WithLabelValues(name),
	}
}

// Dispatched counts n accepted values.
func (m *Metrics) Dispatched(n int) {
	m.dispatched.Add(float64(n))
}

// Rejected counts one refused dispatch call.
func (m *Metrics) Rejected() {
	m.rejected.Inc()
}

// Transition counts a lifecycle move into state.
func (m *Metrics) Transition(state api.State) {
	mTransitions.WithLabelValues(m.name, state.String()).Inc()
}

// Worker returns the consumption observer for one worker of the dispatcher.
func (m *Metrics) Worker(worker string) *WorkerMetrics {
	return &WorkerMetrics{
		handled: mHandled.WithLabelValues(m.name, worker),
		panics:  mPanics.WithLabelValues(m.name, worker),
	}
}

// WorkerMetrics counts what a single worker consumed.
type WorkerMetrics struct {
	handled prometheus.Counter
	panics  prometheus.Counter
}

// ObserveDelivered counts n values handed to the handler.
func (w *WorkerMetrics) ObserveDelivered(n int) {
	w.handled.Add(float64(n))
}

// ObservePanic counts one recovered handler panic.
func (w *WorkerMetrics) ObservePanic() {
	w.panics.Inc()
}
