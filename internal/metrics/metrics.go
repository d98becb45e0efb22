// Package metrics exposes Prometheus instrumentation for claim checks.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ppiankov/precedent/internal/model"
)

const namespace = "precedent"

// Check outcomes recorded in the status label
const (
	StatusOK       = "ok"
	StatusDegraded = "degraded"
	StatusCached   = "cached"
	StatusError    = "error"
)

// Metrics records claim check outcomes. A nil *Metrics is a no-op.
type Metrics struct {
	checks    *prometheus.CounterVec
	duration  prometheus.Histogram
	consensus prometheus.Histogram
	agreement *prometheus.CounterVec
	results   *prometheus.HistogramVec
	warnings  prometheus.Counter
	speakers  prometheus.Counter
}

// New creates the collectors and registers them with reg
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		checks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "checks_total",
				Help:      "Claim checks by outcome",
			},
			[]string{"status"},
		),
		duration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "check_duration_seconds",
				Help:      "Claim check duration in seconds",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
		),
		consensus: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "consensus_level",
				Help:      "Consensus level of checks with scorable ratings",
				Buckets:   prometheus.LinearBuckets(0.1, 0.1, 10),
			},
		),
		agreement: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "agreement_total",
				Help:      "Checks by agreement category",
			},
			[]string{"agreement"},
		),
		results: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "source_results",
				Help:      "Results per source group per check, archive or external",
				Buckets:   []float64{0, 1, 2, 5, 10, 20},
			},
			[]string{"group"},
		),
		warnings: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "external_warnings_total",
				Help:      "Warnings raised by external fact-check search",
			},
		),
		speakers: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "speaker_detected_total",
				Help:      "Checks attributed to a known speaker",
			},
		),
	}

	reg.MustRegister(m.checks, m.duration, m.consensus, m.agreement, m.results, m.warnings, m.speakers)
	return m
}

// ObserveCheck records one finished check. a is nil when err is set.
func (m *Metrics) ObserveCheck(a *model.Analysis, cached bool, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.duration.Observe(elapsed.Seconds())

	switch {
	case err != nil || a == nil:
		m.checks.WithLabelValues(StatusError).Inc()
		return
	case cached:
		m.checks.WithLabelValues(StatusCached).Inc()
		return
	case len(a.Warnings) > 0:
		m.checks.WithLabelValues(StatusDegraded).Inc()
	default:
		m.checks.WithLabelValues(StatusOK).Inc()
	}

	m.warnings.Add(float64(len(a.Warnings)))
	m.agreement.WithLabelValues(string(a.Consensus.Agreement)).Inc()
	if a.Consensus.Agreement.HasData() {
		m.consensus.Observe(a.Consensus.ConsensusLevel)
	}
	for i, g := range a.Sources {
		kind := "external"
		if i == 0 {
			kind = "archive"
		}
		m.results.WithLabelValues(kind).Observe(float64(g.Len()))
	}
	if a.Speaker != nil {
		m.speakers.Inc()
	}
}

// Handler serves the metrics gathered by g in the Prometheus text format
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
