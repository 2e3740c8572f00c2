// Package metrics exposes pipeline counters to Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"geotrace/internal/hop"
)

// Metrics counts what flows through the trace pipeline
type Metrics struct {
	eventsFramed prometheus.Counter
	payloads     *prometheus.CounterVec
	repaired     prometheus.Counter
	hopRTT       prometheus.Histogram
	progress     prometheus.Gauge
	runs         *prometheus.CounterVec
}

// New creates the collectors and registers them with reg
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		eventsFramed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "geotrace_events_framed_total",
			Help: "Data events framed from the service stream.",
		}),
		payloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "geotrace_payloads_total",
			Help: "Decoded payloads by classification.",
		}, []string{"kind"}),
		repaired: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "geotrace_payloads_repaired_total",
			Help: "Payloads that only parsed after quote repair.",
		}),
		hopRTT: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "geotrace_hop_rtt_milliseconds",
			Help:    "Average round-trip time of accepted hops.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		}),
		progress: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "geotrace_progress_percent",
			Help: "Progress estimate of the current run.",
		}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "geotrace_runs_total",
			Help: "Finished runs by outcome.",
		}, []string{"status"}),
	}
	if reg != nil {
		reg.MustRegister(m.eventsFramed, m.payloads, m.repaired, m.hopRTT, m.progress, m.runs)
	}
	return m
}

// EventFramed counts one framed data event
func (m *Metrics) EventFramed() {
	if m == nil {
		return
	}
	m.eventsFramed.Inc()
}

// PayloadDecoded counts a decoder result and the RTT of data hops
func (m *Metrics) PayloadDecoded(res hop.Result) {
	if m == nil {
		return
	}
	m.payloads.WithLabelValues(res.Kind.String()).Inc()
	if res.Repaired {
		m.repaired.Inc()
	}
	if res.Kind == hop.Data {
		if avg, ok := res.Record.AverageRTT(); ok {
			m.hopRTT.Observe(avg)
		}
	}
}

// SetProgress records the latest progress value
func (m *Metrics) SetProgress(percent float64) {
	if m == nil {
		return
	}
	m.progress.Set(percent)
}

// RunFinished counts a run by outcome status
func (m *Metrics) RunFinished(status string) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(status).Inc()
}
