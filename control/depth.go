// control/depth.go
// Author: momentics <momentics@gmail.com>
//
// Probe registry for worker channel depth, exported as a Prometheus collector.

package control

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// DepthProbe reports the unconsumed entries per worker.
type DepthProbe func() map[string]int64

type probeEntry struct {
	fn DepthProbe
}

// DepthProbes holds registered probe functions keyed by dispatcher name.
type DepthProbes struct {
	mu     sync.RWMutex
	probes map[string]*probeEntry
	desc   *prometheus.Desc
}

var _ prometheus.Collector = (*DepthProbes)(nil)

// NewDepthProbes creates a probe registry. It is not registered anywhere.
func NewDepthProbes() *DepthProbes {
	return &DepthProbes{
		probes: make(map[string]*probeEntry),
		desc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "channel_depth"),
			"The number of unconsumed values in a worker channel.",
			[]string{"dispatcher", "worker"}, nil,
		),
	}
}

var (
	defaultProbes     *DepthProbes
	defaultProbesOnce sync.Once
)

// DefaultDepthProbes returns the registry registered with the default
// Prometheus registerer on first use.
func DefaultDepthProbes() *DepthProbes {
	defaultProbesOnce.Do(func() {
		defaultProbes = NewDepthProbes()
		prometheus.MustRegister(defaultProbes)
	})
	return defaultProbes
}

// RegisterProbe inserts or replaces the probe of dispatcher. The returned
// func removes this registration only; it is a no-op once another probe has
// replaced it.
func (dp *DepthProbes) RegisterProbe(dispatcher string, fn DepthProbe) (unregister func()) {
	e := &probeEntry{fn: fn}
	dp.mu.Lock()
	defer dp.mu.Unlock()
	dp.probes[dispatcher] = e
	return func() {
		dp.mu.Lock()
		defer dp.mu.Unlock()
		if dp.probes[dispatcher] == e {
			delete(dp.probes, dispatcher)
		}
	}
}

// UnregisterProbe removes the probe of dispatcher.
func (dp *DepthProbes) UnregisterProbe(dispatcher string) {
	dp.mu.Lock()
	defer dp.mu.Unlock()
	delete(dp.probes, dispatcher)
}

// DumpState returns the output of all probes.
func (dp *DepthProbes) DumpState() map[string]map[string]int64 {
	dp.mu.RLock()
	defer dp.mu.RUnlock()
	out := make(map[string]map[string]int64, len(dp.probes))
	for name, e := range dp.probes {
		out[name] = e.fn()
	}
	return out
}

// Describe implements prometheus.Collector.
func (dp *DepthProbes) Describe(ch chan<- *prometheus.Desc) {
	ch <- dp.desc
}

// Collect implements prometheus.Collector.
func (dp *DepthProbes) Collect(ch chan<- prometheus.Metric) {
	for dispatcher, depths := range dp.DumpState() {
		for worker, depth := range depths {
			ch <- prometheus.MustNewConstMetric(dp.desc, prometheus.GaugeValue, float64(depth), dispatcher, worker)
		}
	}
}
