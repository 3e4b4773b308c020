// Package control
// Author: momentics <momentics@gmail.com>
//
// Runtime telemetry for dispatchers: Prometheus counters for dispatch,
// consumption and lifecycle events, and a probe registry exporting worker
// channel depth as a gauge collector.
package control
