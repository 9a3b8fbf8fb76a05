package eventsink

import (
	"context"
	"log/slog"
)

// LogSink publishes events as structured log lines. It needs no broker and
// is the default when no outbound sink is configured.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink builds a LogSink. A nil logger falls back to slog.Default().
func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger}
}

func (s *LogSink) Publish(ctx context.Context, event Event) error {
	s.logger.InfoContext(ctx, "turn processed",
		"evaluation_id", event.EvaluationID,
		"turn_id", event.TurnID,
		"called_functions", len(event.CalledFunctions),
		"total_cost_usd", event.TotalCostUSD,
		"total_processing_time_ms", event.TotalProcessingTimeMs,
	)
	return nil
}
