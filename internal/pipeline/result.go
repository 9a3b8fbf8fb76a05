package pipeline

import "github.com/lumenvoice/turnengine/pkg/models"

// FunctionResult is the function-calling stage's outcome for one turn. A
// nil FunctionResult means the stage never ran (bypass, skip, functions
// disabled, or a non-user speaker).
type FunctionResult struct {
	Called []*models.CalledFunction
	Error  string
}

// Result is the envelope returned by process_turn.
type Result struct {
	CleaningResult        *models.CleanedTurn
	FunctionResult        *FunctionResult
	TotalCostUSD          float64
	TotalProcessingTimeMs int64
}
