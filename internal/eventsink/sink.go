// Package eventsink publishes one fire-and-forget record per successfully
// persisted turn. Sink failure must never fail the turn.
package eventsink

import (
	"context"
	"time"

	"github.com/lumenvoice/turnengine/pkg/models"
)

// Event is the outbound record published after a successful persist.
type Event struct {
	EvaluationID          string                  `json:"evaluation_id"`
	TurnID                string                  `json:"turn_id"`
	CleanedTurn           *models.CleanedTurn     `json:"cleaned_turn"`
	CalledFunctions       []*models.CalledFunction `json:"called_functions"`
	TotalCostUSD          float64                 `json:"total_cost_usd"`
	TotalProcessingTimeMs int64                   `json:"total_processing_time_ms"`
	Timestamp             time.Time               `json:"timestamp"`
}

// Sink publishes an Event. Implementations must not block the pipeline's
// hot path for long and must treat publish failure as non-fatal to the
// caller: fire-and-forget, its failure must not fail the turn.
type Sink interface {
	Publish(ctx context.Context, event Event) error
}
