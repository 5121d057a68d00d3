// control/metrics.go
// Author: momentics <momentics@gmail.com>
//
// Handshake metrics backed by Prometheus collectors.
// Metrics satisfies client.Observer and is safe for concurrent use.

package control

import (
	"fmt"
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"

	"github.com/momentics/hioload-handshake/api"
)

const metricsNamespace = "hioload"

// Metrics counts handshake attempts and their outcomes.
type Metrics struct {
	registry *prometheus.Registry
	attempts prometheus.Counter
	results  *prometheus.CounterVec
	duration prometheus.Histogram
}

// NewMetrics creates the collectors and registers them on reg. A nil reg
// gets a fresh registry.
func NewMetrics(reg *prometheus.Registry) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m := &Metrics{
		registry: reg,
		attempts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "handshake",
			Name:      "attempts_total",
			Help:      "Handshake attempts started.",
		}),
		results: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "handshake",
			Name:      "results_total",
			Help:      "Finished handshake attempts by result.",
		}, []string{"result"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "handshake",
			Name:      "duration_seconds",
			Help:      "Time from dial to validated response.",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}),
	}
	for _, c := range []prometheus.Collector{m.attempts, m.results, m.duration} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register handshake metrics: %w", err)
		}
	}
	return m, nil
}

// HandshakeStarted implements client.Observer.
func (m *Metrics) HandshakeStarted(api.Endpoint) {
	m.attempts.Inc()
}

// HandshakeFinished implements client.Observer.
func (m *Metrics) HandshakeFinished(_ api.Endpoint, elapsed time.Duration, err error) {
	m.results.WithLabelValues(api.CodeOf(err).String()).Inc()
	m.duration.Observe(elapsed.Seconds())
}

// Registry returns the registry the collectors live in.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// WriteText renders every metric family of the registry in the Prometheus
// text exposition format.
func (m *Metrics) WriteText(w io.Writer) error {
	families, err := m.registry.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}
