// Package prometheus registers and exposes the service's metrics.  Every
// metric lives on a private registry so tests and multiple instances never
// fight over the default one.
package prometheus

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "fnm"

// Default buckets.  Expansion queries run seconds to minutes against the
// graph; filter stages are sub-second to tens of seconds.
var (
	graphDurationBuckets = []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120}
	stageDurationBuckets = []float64{.001, .005, .01, .05, .1, .5, 1, 5, 15, 60}
	candidateCountBuckets = []float64{0, 1, 5, 10, 25, 50, 100, 250, 500, 1000}
)

// Metrics holds every instrument the service records.
type Metrics struct {
	registry *prometheus.Registry

	// Expansion.
	ExpansionsTotal     *prometheus.CounterVec
	SynthonsExtracted   prometheus.Histogram
	CandidatesGenerated prometheus.Histogram
	GraphQueryDuration  *prometheus.HistogramVec

	// Filtering.
	FilterVerdictsTotal *prometheus.CounterVec
	StageDuration       *prometheus.HistogramVec

	// Handoff and persistence.
	PlacementPublishedTotal prometheus.Counter
	ArtifactWritesTotal     *prometheus.CounterVec
}

// NewMetrics builds and registers all instruments on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
	reg.MustRegister(prometheus.NewGoCollector())

	m := &Metrics{registry: reg}

	m.ExpansionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "expansions_total",
		Help:      "Fragment pair expansions by outcome.",
	}, []string{"status"})

	m.SynthonsExtracted = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "synthons_extracted",
		Help:      "Unique synthons carved from a partner fragment.",
		Buckets:   candidateCountBuckets,
	})

	m.CandidatesGenerated = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "candidates_generated",
		Help:      "Merge candidates generated per pair.",
		Buckets:   candidateCountBuckets,
	})

	m.GraphQueryDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "graph_query_duration_seconds",
		Help:      "Fragment network query duration.",
		Buckets:   graphDurationBuckets,
	}, []string{"query"})

	m.FilterVerdictsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "filter_verdicts_total",
		Help:      "Filter verdicts by terminal stage and outcome.",
	}, []string{"stage", "verdict"})

	m.StageDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "stage_duration_seconds",
		Help:      "Per-candidate filter stage duration.",
		Buckets:   stageDurationBuckets,
	}, []string{"stage"})

	m.PlacementPublishedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "placement_published_total",
		Help:      "Passing candidates handed to the placement topic.",
	})

	m.ArtifactWritesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "artifact_writes_total",
		Help:      "Artifact store writes by outcome.",
	}, []string{"status"})

	reg.MustRegister(
		m.ExpansionsTotal,
		m.SynthonsExtracted,
		m.CandidatesGenerated,
		m.GraphQueryDuration,
		m.FilterVerdictsTotal,
		m.StageDuration,
		m.PlacementPublishedTotal,
		m.ArtifactWritesTotal,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry for extra collectors.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// ObserveExpansion records one pair expansion.
func (m *Metrics) ObserveExpansion(synthons, candidates int, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.ExpansionsTotal.WithLabelValues(status).Inc()
	if err == nil {
		m.SynthonsExtracted.Observe(float64(synthons))
		m.CandidatesGenerated.Observe(float64(candidates))
	}
}

// ObserveVerdict records one candidate's terminal verdict.
func (m *Metrics) ObserveVerdict(stage, verdict string, elapsed time.Duration) {
	m.FilterVerdictsTotal.WithLabelValues(stage, verdict).Inc()
	m.StageDuration.WithLabelValues(stage).Observe(elapsed.Seconds())
}
