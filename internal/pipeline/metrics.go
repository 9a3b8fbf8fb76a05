package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics is the Prometheus surface for the processing pipeline: counts
// and latencies for turns, LLM calls, tokens, and cost.
type Metrics struct {
	// TurnsProcessed counts turns by the path the classifier chose.
	// Labels: path (bypass|skip|fast_clean|process)
	TurnsProcessed *prometheus.CounterVec

	// CleanerLatency measures cleaner-stage wall time in seconds.
	CleanerLatency prometheus.Histogram

	// FunctionLatency measures function-caller-stage wall time in seconds.
	FunctionLatency prometheus.Histogram

	// TokensUsed tracks token consumption by stage and direction.
	// Labels: stage (cleaner|function_caller), direction (input|output)
	TokensUsed *prometheus.CounterVec

	// CostUSD accumulates spend by stage.
	// Labels: stage (cleaner|function_caller)
	CostUSD *prometheus.CounterVec

	// FunctionCallsExecuted counts CalledFunction outcomes.
	// Labels: function_name, success (true|false)
	FunctionCallsExecuted *prometheus.CounterVec
}

// NewMetrics registers the pipeline's collectors against reg. Pass
// prometheus.DefaultRegisterer in production, a fresh prometheus.NewRegistry()
// in tests.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		TurnsProcessed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "turnengine",
			Subsystem: "pipeline",
			Name:      "turns_processed_total",
			Help:      "Turns processed, labeled by classifier path.",
		}, []string{"path"}),
		CleanerLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "turnengine",
			Subsystem: "pipeline",
			Name:      "cleaner_latency_seconds",
			Help:      "Cleaner-stage LLM call latency.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		}),
		FunctionLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "turnengine",
			Subsystem: "pipeline",
			Name:      "function_caller_latency_seconds",
			Help:      "Function-caller-stage LLM call latency.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		}),
		TokensUsed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "turnengine",
			Subsystem: "pipeline",
			Name:      "tokens_total",
			Help:      "Tokens consumed, labeled by stage and direction.",
		}, []string{"stage", "direction"}),
		CostUSD: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "turnengine",
			Subsystem: "pipeline",
			Name:      "cost_usd_total",
			Help:      "Accumulated spend in USD, labeled by stage.",
		}, []string{"stage"}),
		FunctionCallsExecuted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "turnengine",
			Subsystem: "pipeline",
			Name:      "function_calls_total",
			Help:      "CalledFunction outcomes, labeled by name and success.",
		}, []string{"function_name", "success"}),
	}
}
