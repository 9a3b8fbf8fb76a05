// Package llmgateway implements the two LLM operations the pipeline needs
// against a single fast, cost-optimized flash-class model family: plain
// text generation for the cleaner stage, and tool-calling generation for
// the function-caller stage.
package llmgateway

import (
	"context"
	"time"

	"github.com/lumenvoice/turnengine/pkg/models"
)

// Params enumerates the generation knobs that must be configurable, with
// the documented defaults applied by DefaultParams.
type Params struct {
	Temperature      float64
	TopP             float64
	TopK             int
	MaxOutputTokens  int
	ResponseMIMEType string
}

// DefaultParams returns the documented defaults.
func DefaultParams() Params {
	return Params{
		Temperature:     0.1,
		TopP:            0.95,
		TopK:            40,
		MaxOutputTokens: 2048,
	}
}

// TextResult is the outcome of a generate_text call.
type TextResult struct {
	Text       string
	TokenUsage models.TokenUsage
	LatencyMs  int64
}

// ToolsResult is the outcome of a generate_with_tools call.
type ToolsResult struct {
	ToolCalls  []models.ToolCall
	Text       string
	TokenUsage models.TokenUsage
	LatencyMs  int64
}

// Gateway is the LLM Gateway interface. Implementations must never retry
// silently — retry policy is an orchestration concern owned by the caller
// (internal/pipeline) via the retry helper in this package.
type Gateway interface {
	// Name identifies the backend for logging/metrics ("gemini", "anthropic").
	Name() string

	GenerateText(ctx context.Context, prompt string, params Params) (*TextResult, error)
	GenerateWithTools(ctx context.Context, prompt string, tools []models.ToolDeclaration, params Params) (*ToolsResult, error)
}

// measure is a small helper so every backend records latency identically.
func measure(start time.Time) int64 {
	return time.Since(start).Milliseconds()
}
