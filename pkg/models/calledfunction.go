package models

import "time"

// CalledFunction is the output of one function-call invocation during the
// function-caller stage. Zero-or-more are produced per CleanedTurn.
type CalledFunction struct {
	ID               string         `json:"id"`
	CleanedTurnID    string         `json:"cleaned_turn_id"`
	EvaluationID     string         `json:"evaluation_id"`
	FunctionName     string         `json:"function_name"`
	Parameters       map[string]any `json:"parameters"`
	Result           map[string]any `json:"result,omitempty"`
	Executed         bool           `json:"executed"`
	Error            string         `json:"error,omitempty"`
	ProcessingTimeMs int64          `json:"processing_time_ms"`
	TokenUsage       TokenUsage     `json:"token_usage"`
	CostUSD          float64        `json:"cost_usd"`
	CreatedAt        time.Time      `json:"created_at"`
}
