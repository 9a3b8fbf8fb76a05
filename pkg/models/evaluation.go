package models

import (
	"fmt"
	"time"
)

// EvaluationStatus is the evaluation state machine.
type EvaluationStatus string

const (
	EvaluationCreated  EvaluationStatus = "created"
	EvaluationRunning  EvaluationStatus = "running"
	EvaluationStopped  EvaluationStatus = "stopped"
	EvaluationComplete EvaluationStatus = "complete"
)

// EvaluationConfig is the caller-supplied configuration for a new
// evaluation, as accepted by create_evaluation.
type EvaluationConfig struct {
	CleanerPromptTemplateRef  string `json:"cleaner_prompt_template_ref"`
	FunctionPromptTemplateRef string `json:"function_prompt_template_ref,omitempty"`
	CleanerWindowSize         int    `json:"cleaner_window_size"`
	FunctionWindowSize        int    `json:"function_window_size"`
	FunctionsEnabled          bool   `json:"functions_enabled"`
}

// DefaultCleanerWindowSize and DefaultFunctionWindowSize are the
// documented defaults.
const (
	DefaultCleanerWindowSize  = 10
	DefaultFunctionWindowSize = 20
	MinWindowSize             = 1
	MaxCleanerWindowSize      = 50
	MaxFunctionWindowSize     = 100
)

// Normalize fills in defaults and enforces the documented bounds, returning
// an error if the configuration can never be made valid (e.g. a function
// window smaller than the cleaner window).
func (c *EvaluationConfig) Normalize() error {
	if c.CleanerWindowSize <= 0 {
		c.CleanerWindowSize = DefaultCleanerWindowSize
	}
	if c.FunctionWindowSize <= 0 {
		c.FunctionWindowSize = DefaultFunctionWindowSize
	}
	if c.CleanerWindowSize < MinWindowSize || c.CleanerWindowSize > MaxCleanerWindowSize {
		return fmt.Errorf("cleaner_window_size %d out of range [%d,%d]", c.CleanerWindowSize, MinWindowSize, MaxCleanerWindowSize)
	}
	if c.FunctionWindowSize < MinWindowSize || c.FunctionWindowSize > MaxFunctionWindowSize {
		return fmt.Errorf("function_window_size %d out of range [%d,%d]", c.FunctionWindowSize, MinWindowSize, MaxFunctionWindowSize)
	}
	if c.FunctionWindowSize < c.CleanerWindowSize {
		return fmt.Errorf("function_window_size %d must be >= cleaner_window_size %d", c.FunctionWindowSize, c.CleanerWindowSize)
	}
	return nil
}

// Evaluation is a configuration + result stream applied to a Conversation.
// Multiple evaluations may target the same conversation concurrently.
type Evaluation struct {
	EvaluationID   string           `json:"evaluation_id"`
	ConversationID string           `json:"conversation_id"`
	Config         EvaluationConfig `json:"config"`
	Status         EvaluationStatus `json:"status"`
	CreatedAt      time.Time        `json:"created_at"`
}
