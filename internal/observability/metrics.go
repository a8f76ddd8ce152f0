package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricsNamespace = "conceptgraph"

// Outcome label values.
const (
	OutcomeOK             = "ok"
	OutcomeInvalid        = "invalid"
	OutcomeTransportError = "transport_error"
	OutcomeDecodeError    = "decode_error"
	OutcomeError          = "error"
	OutcomeDivisionByZero = "division_by_zero"
	OutcomeMiss           = "miss"
	OutcomeFallback       = "fallback"
)

// Metrics holds the Prometheus collectors of the concept-graph pipeline.
// A nil *Metrics records nothing.
type Metrics struct {
	registry prometheus.Gatherer

	// TraversalsTotal counts traversals by strategy and outcome.
	TraversalsTotal *prometheus.CounterVec
	// TraversalDuration measures traversal latency by strategy.
	TraversalDuration *prometheus.HistogramVec
	// PathsDecoded counts paths returned by the graph store by strategy.
	PathsDecoded *prometheus.CounterVec
	// RelationsPerQuery is the distribution of relations kept per query.
	RelationsPerQuery prometheus.Histogram
	// ComplexityTotal counts scoring requests by outcome.
	ComplexityTotal *prometheus.CounterVec
	// UnknownTokens counts tokens that resolved neither exactly nor by lemma.
	UnknownTokens prometheus.Counter
	// SummaryFetches counts external summary lookups by outcome.
	SummaryFetches *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg. A nil reg
// uses a fresh private registry.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	f := promauto.With(reg)
	return &Metrics{
		registry: reg,
		TraversalsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "graph",
			Name:      "traversals_total",
			Help:      "Graph traversals by strategy and outcome",
		}, []string{"strategy", "outcome"}),
		TraversalDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "graph",
			Name:      "traversal_duration_seconds",
			Help:      "Graph traversal latency in seconds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"strategy"}),
		PathsDecoded: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "graph",
			Name:      "paths_decoded_total",
			Help:      "Paths returned by the graph store",
		}, []string{"strategy"}),
		RelationsPerQuery: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "graph",
			Name:      "relations_per_query",
			Help:      "Distinct relations kept per traversal after filtering",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
		}),
		ComplexityTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "complexity",
			Name:      "requests_total",
			Help:      "Complexity scoring requests by outcome",
		}, []string{"outcome"}),
		UnknownTokens: f.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "complexity",
			Name:      "unknown_tokens_total",
			Help:      "Tokens absent from the frequency table after lemma fallback",
		}),
		SummaryFetches: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "summary",
			Name:      "fetches_total",
			Help:      "External summary lookups by outcome",
		}, []string{"outcome"}),
	}
}

// RecordTraversal records one traversal.
func (m *Metrics) RecordTraversal(strategy, outcome string, d time.Duration, paths, relations int) {
	if m == nil {
		return
	}
	m.TraversalsTotal.WithLabelValues(strategy, outcome).Inc()
	m.TraversalDuration.WithLabelValues(strategy).Observe(d.Seconds())
	if outcome == OutcomeOK {
		m.PathsDecoded.WithLabelValues(strategy).Add(float64(paths))
		m.RelationsPerQuery.Observe(float64(relations))
	}
}

// RecordComplexity records one scoring request.
func (m *Metrics) RecordComplexity(outcome string, unknown int) {
	if m == nil {
		return
	}
	m.ComplexityTotal.WithLabelValues(outcome).Inc()
	m.UnknownTokens.Add(float64(unknown))
}

// RecordSummary records one summary lookup.
func (m *Metrics) RecordSummary(outcome string) {
	if m == nil {
		return
	}
	m.SummaryFetches.WithLabelValues(outcome).Inc()
}

// Handler returns the Prometheus exposition handler for these metrics.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
