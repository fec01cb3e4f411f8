package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Fetch outcomes recorded by RecommendationFetches.
const (
	OutcomeSuccess       = "success"
	OutcomeEmpty         = "empty"
	OutcomeFailure       = "failure"
	OutcomeConfigWarning = "config_warning"
	OutcomeRejected      = "rejected"
)

var (
	RecommendationFetches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "animuse_recommendation_fetches_total",
			Help: "Recommendation fetches grouped by outcome and trigger kind",
		},
		[]string{"outcome", "trigger"},
	)

	RecommendationFetchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "animuse_recommendation_fetch_duration_seconds",
			Help:    "Duration of upstream recommendation fetches in seconds",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40, 60},
		},
	)

	RecommendationChecksSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "animuse_recommendation_checks_skipped_total",
			Help: "Debounced refresh checks that ended without fetching, by reason",
		},
		[]string{"reason"},
	)

	ActiveCoordinators = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "animuse_active_coordinators",
			Help: "Number of per-user refresh coordinators currently started",
		},
	)

	UpstreamBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "animuse_upstream_breaker_state",
			Help: "Circuit breaker state for upstream calls (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	HTTPRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "animuse_http_retries_total",
			Help: "Requests replayed after a transient 5xx response, by route",
		},
		[]string{"path"},
	)

	LLMTokens = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "animuse_llm_tokens_total",
			Help: "Tokens consumed by LLM calls",
		},
		[]string{"kind"},
	)
)

// ObserveUsage records token usage returned by the LLM provider.
func ObserveUsage(u TokenUsage) {
	if u.IsZero() {
		return
	}
	LLMTokens.WithLabelValues("prompt").Add(float64(u.PromptTokens))
	LLMTokens.WithLabelValues("completion").Add(float64(u.CompletionTokens))
}
