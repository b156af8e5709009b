package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/zk/qjunit/internal/report"
)

const (
	MetricsNamespace = "qjunit"
)

// Report outcomes
const (
	OutcomePassed  = "passed"
	OutcomeFailed  = "failed"
	OutcomeTimeout = "timeout"
	OutcomeError   = "error"
)

// Metrics holds the collectors for one qjunit process. Each instance owns
// its registry so that parallel tests do not share counters.
type Metrics struct {
	registry *prometheus.Registry

	eventsTotal      *prometheus.CounterVec
	reportsTotal     *prometheus.CounterVec
	testsTotal       *prometheus.CounterVec
	protocolWarnings prometheus.Counter
	sourceRuntime    prometheus.Histogram
}

// New creates and registers the qjunit collectors
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		eventsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Name:      "events_total",
			Help:      "Count of runner events received",
		}, []string{
			"type",
		}),

		reportsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Name:      "reports_total",
			Help:      "Count of report documents by outcome",
		}, []string{
			"outcome",
		}),

		testsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Name:      "tests_total",
			Help:      "Count of reported test cases by result",
		}, []string{
			"result",
		}),

		protocolWarnings: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Name:      "protocol_warnings_total",
			Help:      "Count of out-of-order or inconsistent runner events",
		}),

		sourceRuntime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: MetricsNamespace,
			Name:      "source_runtime_seconds",
			Help:      "Runtime reported by the runner for each completed source",
			Buckets:   prometheus.ExponentialBuckets(0.1, 4, 6),
		}),
	}

	m.registry.MustRegister(
		m.eventsTotal,
		m.reportsTotal,
		m.testsTotal,
		m.protocolWarnings,
		m.sourceRuntime,
	)
	return m
}

// Registry exposes the underlying registry as a gatherer
func (m *Metrics) Registry() prometheus.Gatherer {
	return m.registry
}

func (m *Metrics) RecordEvent(eventType string) {
	m.eventsTotal.WithLabelValues(eventType).Inc()
}

func (m *Metrics) RecordWarnings(n int) {
	if n > 0 {
		m.protocolWarnings.Add(float64(n))
	}
}

// RecordWriteError counts a report that could not be written
func (m *Metrics) RecordWriteError() {
	m.reportsTotal.WithLabelValues(OutcomeError).Inc()
}

// RecordReport counts a written report and the test cases it contains
func (m *Metrics) RecordReport(result *report.SourceResult) {
	m.reportsTotal.WithLabelValues(Outcome(result)).Inc()
	if result == nil || result.TimedOut {
		return
	}

	for _, module := range result.Modules {
		for _, test := range module.Tests {
			switch {
			case test.Errored > 0:
				m.testsTotal.WithLabelValues("errored").Inc()
			case test.Failed > 0:
				m.testsTotal.WithLabelValues("failed").Inc()
			default:
				m.testsTotal.WithLabelValues("passed").Inc()
			}
		}
	}
	m.sourceRuntime.Observe(result.RuntimeMs / 1000)
}

// Outcome classifies a finished result
func Outcome(result *report.SourceResult) string {
	switch {
	case result == nil || result.TimedOut:
		return OutcomeTimeout
	case result.HasFailures():
		return OutcomeFailed
	default:
		return OutcomePassed
	}
}

// WriteToTextfile writes every metric in the Prometheus text format, for
// collection by a node exporter textfile collector
func (m *Metrics) WriteToTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}
