package eventsink

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogSink_PublishWritesStructuredLog(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	sink := NewLogSink(logger)

	err := sink.Publish(context.Background(), Event{
		EvaluationID:          "eval-1",
		TurnID:                "turn-1",
		TotalCostUSD:          0.002,
		TotalProcessingTimeMs: 120,
		Timestamp:             time.Now(),
	})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "eval-1")
	assert.Contains(t, buf.String(), "turn-1")
}

func TestNewLogSink_NilLoggerFallsBackToDefault(t *testing.T) {
	sink := NewLogSink(nil)
	require.NotNil(t, sink.logger)
}
