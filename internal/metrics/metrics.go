// Package metrics holds the Prometheus collectors for evaluation, extraction
// and the reference dataset. A nil *Metrics is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ppiankov/sepcheck/internal/model"
)

// Metrics provides observability for the evaluation pipeline.
type Metrics struct {
	// Evaluations by outcome: qualified, fallback, blocked
	Evaluations *prometheus.CounterVec

	// Findings by category and status
	Findings *prometheus.CounterVec

	// Extraction calls by provider and result: ok, cached, signal, error
	Extractions *prometheus.CounterVec

	ExtractLatency *prometheus.HistogramVec

	// Declarations in the loaded reference snapshot
	Declarations prometheus.Gauge
}

// New registers every collector on reg. Use prometheus.NewRegistry() in tests
// so registrations do not collide.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Evaluations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sepcheck_evaluations_total",
			Help: "Total record evaluations by outcome",
		}, []string{"outcome"}),

		Findings: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sepcheck_findings_total",
			Help: "Total SEP findings by category and status",
		}, []string{"category", "status"}),

		Extractions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sepcheck_extractions_total",
			Help: "Total record extractions by provider and result",
		}, []string{"provider", "result"}),

		ExtractLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sepcheck_extract_duration_seconds",
			Help:    "Duration of LLM extraction calls by provider",
			Buckets: []float64{0.25, 0.5, 1, 2.5, 5, 10, 20, 40},
		}, []string{"provider"}),

		Declarations: factory.NewGauge(prometheus.GaugeOpts{
			Name: "sepcheck_reference_declarations",
			Help: "Disaster declarations in the loaded reference snapshot",
		}),
	}
}

// Outcome labels.
const (
	OutcomeQualified = "qualified"
	OutcomeFallback  = "fallback"
	OutcomeBlocked   = "blocked"
)

// Extraction result labels.
const (
	ExtractOK     = "ok"
	ExtractCached = "cached"
	ExtractSignal = "signal" // the model reported the text was unusable
	ExtractError  = "error"
)

// ObserveEvaluation records one evaluation result and its findings.
func (m *Metrics) ObserveEvaluation(res model.EvaluationResult) {
	if m == nil {
		return
	}
	switch {
	case res.Blocked:
		m.Evaluations.WithLabelValues(OutcomeBlocked).Inc()
	case res.NeedsFallbackGuidance:
		m.Evaluations.WithLabelValues(OutcomeFallback).Inc()
	default:
		m.Evaluations.WithLabelValues(OutcomeQualified).Inc()
	}
	for _, f := range res.Findings {
		m.Findings.WithLabelValues(string(f.Category), string(f.Status)).Inc()
	}
}

// IncrementExtraction records an extraction attempt.
func (m *Metrics) IncrementExtraction(provider, result string) {
	if m != nil {
		m.Extractions.WithLabelValues(provider, result).Inc()
	}
}

// ObserveExtractLatency records the duration of one provider call.
func (m *Metrics) ObserveExtractLatency(provider string, d time.Duration) {
	if m != nil {
		m.ExtractLatency.WithLabelValues(provider).Observe(d.Seconds())
	}
}

// SetDeclarations records the reference snapshot size.
func (m *Metrics) SetDeclarations(n int) {
	if m != nil {
		m.Declarations.Set(float64(n))
	}
}
