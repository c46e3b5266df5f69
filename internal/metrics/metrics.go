// Package metrics exposes Prometheus instruments for roadmap generation.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder receives generation-side measurements.
type Recorder interface {
	// GenerationCompleted counts one generate request by source (ai, cache, fallback).
	GenerationCompleted(source string)
	// CompletionAttempts records how many generator calls one completion used.
	CompletionAttempts(model string, attempts int)
	// RevisionCompleted counts one feedback revision; revised is false when steps were kept.
	RevisionCompleted(revised bool)
}

// Metrics is a Recorder backed by a dedicated Prometheus registry.
type Metrics struct {
	registry    *prometheus.Registry
	generations *prometheus.CounterVec
	attempts    *prometheus.HistogramVec
	revisions   *prometheus.CounterVec
}

// New creates the instruments and registers them, along with the Go and
// process collectors, on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		generations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "roadmap",
			Name:      "generations_total",
			Help:      "Roadmap generate requests by content source.",
		}, []string{"source"}),
		attempts: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "roadmap",
			Name:      "completion_attempts",
			Help:      "Generator calls used by one completion.",
			Buckets:   []float64{1, 2, 3, 4, 5, 6, 7, 8},
		}, []string{"model"}),
		revisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "roadmap",
			Name:      "revisions_total",
			Help:      "Feedback revisions by outcome.",
		}, []string{"outcome"}),
	}

	m.registry.MustRegister(
		m.generations,
		m.attempts,
		m.revisions,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// GenerationCompleted implements Recorder.
func (m *Metrics) GenerationCompleted(source string) {
	m.generations.WithLabelValues(source).Inc()
}

// CompletionAttempts implements Recorder.
func (m *Metrics) CompletionAttempts(model string, attempts int) {
	m.attempts.WithLabelValues(model).Observe(float64(attempts))
}

// RevisionCompleted implements Recorder.
func (m *Metrics) RevisionCompleted(revised bool) {
	outcome := "kept"
	if revised {
		outcome = "revised"
	}
	m.revisions.WithLabelValues(outcome).Inc()
}

// Registry returns the registry the instruments live on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Noop discards every measurement.
type Noop struct{}

// GenerationCompleted implements Recorder.
func (Noop) GenerationCompleted(string) {}

// CompletionAttempts implements Recorder.
func (Noop) CompletionAttempts(string, int) {}

// RevisionCompleted implements Recorder.
func (Noop) RevisionCompleted(bool) {}
