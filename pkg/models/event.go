package models

import "time"

// TurnEvent is the record published to the (optional) event sink once a
// turn's results have committed. Publication is fire-and-forget; a sink
// failure must never fail the turn.
type TurnEvent struct {
	EvaluationID           string           `json:"evaluation_id"`
	TurnID                 string           `json:"turn_id"`
	CleanedTurn            CleanedTurn      `json:"cleaned_turn"`
	CalledFunctions        []CalledFunction `json:"called_functions,omitempty"`
	TotalCostUSD           float64          `json:"total_cost_usd"`
	TotalProcessingTimeMs  int64            `json:"total_processing_time_ms"`
	Timestamp              time.Time        `json:"timestamp"`
}
