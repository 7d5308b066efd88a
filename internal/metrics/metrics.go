// Package metrics holds the Prometheus collectors for provider calls and
// compliance check runs.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "compliance"

var (
	// ProviderCalls counts attempts sent to an external provider.
	ProviderCalls = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "provider_calls_total",
		Help:      "External provider call attempts.",
	}, []string{"provider", "operation"})

	// ProviderRetries counts rate-limit retry waits.
	ProviderRetries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "provider_retries_total",
		Help:      "Retries after a rate-limited provider response.",
	}, []string{"provider"})

	// ProviderExhausted counts calls that ran out of rate-limit retries.
	ProviderExhausted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "provider_retries_exhausted_total",
		Help:      "Calls abandoned after exhausting rate-limit retries.",
	}, []string{"provider"})

	// ProviderErrors counts non-retryable provider failures.
	ProviderErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "provider_errors_total",
		Help:      "Non-retryable provider failures.",
	}, []string{"provider"})

	// CircuitState is 0 closed, 1 open, 2 half-open per provider.
	CircuitState = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "circuit_state",
		Help:      "Provider circuit breaker state (0 closed, 1 open, 2 half-open).",
	}, []string{"provider"})

	// ScrapeResults counts per-URL scrape outcomes by extraction path.
	ScrapeResults = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "scrape_results_total",
		Help:      "Per-URL scrape outcomes.",
	}, []string{"outcome"})

	// LLMFallbacks counts LLM responses replaced by the deterministic fallback.
	LLMFallbacks = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "llm_fallbacks_total",
		Help:      "LLM responses that could not be parsed and fell back to deterministic logic.",
	}, []string{"stage"})

	// Runs counts completed compliance checks by outcome.
	Runs = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "runs_total",
		Help:      "Compliance check runs by outcome.",
	}, []string{"outcome"})

	// RunDuration observes end-to-end run latency.
	RunDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "run_duration_seconds",
		Help:      "End-to-end compliance check duration.",
		Buckets:   []float64{5, 15, 30, 60, 120, 240, 480},
	})

	// CoverageScore observes the overall score of successful runs.
	CoverageScore = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "coverage_score",
		Help:      "Overall weighted coverage score of completed runs.",
		Buckets:   prometheus.LinearBuckets(0, 10, 11),
	})
)

// Registry holds every collector in this package.
var Registry = prometheus.NewRegistry()

func init() {
	Registry.MustRegister(
		ProviderCalls,
		ProviderRetries,
		ProviderExhausted,
		ProviderErrors,
		CircuitState,
		ScrapeResults,
		LLMFallbacks,
		Runs,
		RunDuration,
		CoverageScore,
	)
}

// Handler serves the registry in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
