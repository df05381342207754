// Package metrics exposes crawl progress as Prometheus metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/nao1215/prefixscan/internal/crawler"
)

// Metrics holds the prefixscan collectors of one registry.
type Metrics struct {
	registry *prometheus.Registry

	// RequestsTotal counts HTTP attempts per target and outcome.
	RequestsTotal *prometheus.CounterVec

	// RequestLatency tracks attempt latency per target.
	RequestLatency *prometheus.HistogramVec

	// PacingDelay is the current pacing delay per target.
	PacingDelay *prometheus.GaugeVec

	// BackoffDelay is the current backoff delay per target.
	BackoffDelay *prometheus.GaugeVec

	// TermsDiscovered is the vocabulary size per target.
	TermsDiscovered *prometheus.GaugeVec

	// FrontierPending is the number of queued prefixes per target.
	FrontierPending *prometheus.GaugeVec

	// PrefixesVisited is the number of prefixes ever scheduled per target.
	PrefixesVisited *prometheus.GaugeVec

	// RunsTotal counts finished runs per target and status.
	RunsTotal *prometheus.CounterVec
}

// New registers the collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "prefixscan_requests_total",
				Help: "Total number of autocomplete requests, retries included",
			},
			[]string{"target", "outcome"},
		),
		RequestLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "prefixscan_request_latency_seconds",
				Help:    "Autocomplete request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"target"},
		),
		PacingDelay: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "prefixscan_pacing_delay_seconds",
				Help: "Current delay before each request",
			},
			[]string{"target"},
		),
		BackoffDelay: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "prefixscan_backoff_delay_seconds",
				Help: "Current backoff delay after a failed request",
			},
			[]string{"target"},
		),
		TermsDiscovered: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "prefixscan_terms_discovered",
				Help: "Number of distinct terms discovered",
			},
			[]string{"target"},
		),
		FrontierPending: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "prefixscan_frontier_pending",
				Help: "Number of prefixes waiting to be queried",
			},
			[]string{"target"},
		),
		PrefixesVisited: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "prefixscan_prefixes_visited",
				Help: "Number of prefixes ever scheduled",
			},
			[]string{"target"},
		),
		RunsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "prefixscan_runs_total",
				Help: "Total number of finished runs",
			},
			[]string{"target", "status"},
		),
	}
}

// Registry returns the registry the collectors live in.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveRun counts a finished run. status is "complete", "truncated" or "failed".
func (m *Metrics) ObserveRun(target, status string) {
	m.RunsTotal.WithLabelValues(target, status).Inc()
}

// Target returns an observer that labels everything with target.
func (m *Metrics) Target(target string) *TargetObserver {
	return &TargetObserver{m: m, target: target}
}

// TargetObserver feeds one target's events into the collectors. It
// implements autocomplete.Observer and crawler.ProgressObserver.
type TargetObserver struct {
	m      *Metrics
	target string
}

// ObserveAttempt records one HTTP attempt.
func (o *TargetObserver) ObserveAttempt(outcome string, latency time.Duration) {
	o.m.RequestsTotal.WithLabelValues(o.target, outcome).Inc()
	o.m.RequestLatency.WithLabelValues(o.target).Observe(latency.Seconds())
}

// ObservePacing records the current pacing state.
func (o *TargetObserver) ObservePacing(delay, backoff time.Duration) {
	o.m.PacingDelay.WithLabelValues(o.target).Set(delay.Seconds())
	o.m.BackoffDelay.WithLabelValues(o.target).Set(backoff.Seconds())
}

// ObserveProgress records frontier sizes after an ingest.
func (o *TargetObserver) ObserveProgress(p crawler.Progress) {
	o.m.TermsDiscovered.WithLabelValues(o.target).Set(float64(p.Terms))
	o.m.FrontierPending.WithLabelValues(o.target).Set(float64(p.Pending))
	o.m.PrefixesVisited.WithLabelValues(o.target).Set(float64(p.Visited))
}
