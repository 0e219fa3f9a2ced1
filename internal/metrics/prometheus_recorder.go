package metrics

import (
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	once                 sync.Once
	stageDuration        *prom.HistogramVec
	runDuration          prom.Histogram
	stageResults         *prom.CounterVec
	pageOutcomes         *prom.CounterVec
	generationRetries    prom.Counter
	validationFailures   *prom.CounterVec
	synthesisConcurrency prom.Gauge
}

// NewPrometheusRecorder constructs and registers Prometheus metrics.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{}
	pr.once.Do(func() {
		pr.stageDuration = prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "deepwiki",
			Name:      "stage_duration_seconds",
			Help:      "Duration of individual pipeline stages",
			Buckets:   prom.DefBuckets,
		}, []string{"stage"})
		pr.runDuration = prom.NewHistogram(prom.HistogramOpts{
			Namespace: "deepwiki",
			Name:      "run_duration_seconds",
			Help:      "Total pipeline run duration",
			Buckets:   prom.DefBuckets,
		})
		pr.stageResults = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "deepwiki",
			Name:      "stage_results_total",
			Help:      "Stage result counts by outcome",
		}, []string{"stage", "result"})
		pr.pageOutcomes = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "deepwiki",
			Name:      "page_outcomes_total",
			Help:      "Synthesized page outcomes by final status",
		}, []string{"outcome"})
		pr.generationRetries = prom.NewCounter(prom.CounterOpts{
			Namespace: "deepwiki",
			Name:      "generation_retries_total",
			Help:      "Total draft re-requests after budget violations",
		})
		pr.validationFailures = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "deepwiki",
			Name:      "validation_failures_total",
			Help:      "Postprocessing validation failures by rule",
		}, []string{"rule"})
		pr.synthesisConcurrency = prom.NewGauge(prom.GaugeOpts{
			Namespace: "deepwiki",
			Name:      "synthesis_concurrency",
			Help:      "Configured page synthesis parallelism for the run",
		})
		reg.MustRegister(pr.stageDuration, pr.runDuration, pr.stageResults,
			pr.pageOutcomes, pr.generationRetries, pr.validationFailures, pr.synthesisConcurrency)
	})
	return pr
}

func (p *PrometheusRecorder) ObserveStageDuration(stage string, d time.Duration) {
	if p == nil || p.stageDuration == nil {
		return
	}
	p.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (p *PrometheusRecorder) ObserveRunDuration(d time.Duration) {
	if p == nil || p.runDuration == nil {
		return
	}
	p.runDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncStageResult(stage string, result ResultLabel) {
	if p == nil || p.stageResults == nil {
		return
	}
	p.stageResults.WithLabelValues(stage, string(result)).Inc()
}

func (p *PrometheusRecorder) IncPageOutcome(outcome string) {
	if p == nil || p.pageOutcomes == nil {
		return
	}
	p.pageOutcomes.WithLabelValues(outcome).Inc()
}

func (p *PrometheusRecorder) IncGenerationRetry() {
	if p == nil || p.generationRetries == nil {
		return
	}
	p.generationRetries.Inc()
}

func (p *PrometheusRecorder) IncValidationFailure(rule string) {
	if p == nil || p.validationFailures == nil {
		return
	}
	p.validationFailures.WithLabelValues(rule).Inc()
}

func (p *PrometheusRecorder) SetSynthesisConcurrency(n int) {
	if p == nil || p.synthesisConcurrency == nil {
		return
	}
	p.synthesisConcurrency.Set(float64(n))
}
