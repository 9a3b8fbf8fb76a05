package prompt

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/lumenvoice/turnengine/pkg/models"
)

// CleanerContext builds the placeholder map for the cleaner template:
// call_context (ground-truth business facts), conversation_context
// (rendered sliding-window history), raw_text (the turn being cleaned).
func CleanerContext(callContext string, history []*models.CleanedTurn, rawText string) map[string]string {
	return map[string]string{
		"call_context":         callContext,
		"conversation_context": RenderConversation(history),
		"raw_text":             rawText,
	}
}

// RenderConversation renders cleaned-turn history as `Speaker: cleaned_text`
// lines, one per turn, oldest first. The sliding window never exposes raw
// text to the cleaner.
func RenderConversation(history []*models.CleanedTurn) string {
	if len(history) == 0 {
		return ""
	}
	lines := make([]string, 0, len(history))
	for _, turn := range history {
		lines = append(lines, fmt.Sprintf("%s: %s", turn.Speaker, turn.CleanedText))
	}
	return strings.Join(lines, "\n")
}

// FunctionCallerContext builds the placeholder map for the function-caller
// template: customer_profile (JSON of MirroredCustomer),
// previous_cleaned_turns, previous_function_calls, current_cleaned_turn,
// and the tool catalogue.
func FunctionCallerContext(
	customer *models.MirroredCustomer,
	cleanedHistory []*models.CleanedTurn,
	functionHistory []*models.CalledFunction,
	currentTurn *models.CleanedTurn,
	catalogue []models.ToolDeclaration,
) (map[string]string, error) {
	profileJSON, err := marshalJSON(customer)
	if err != nil {
		return nil, fmt.Errorf("prompt: marshal customer_profile: %w", err)
	}
	catalogueJSON, err := marshalJSON(catalogue)
	if err != nil {
		return nil, fmt.Errorf("prompt: marshal tool catalogue: %w", err)
	}

	return map[string]string{
		"customer_profile":        profileJSON,
		"previous_cleaned_turns":  RenderConversation(cleanedHistory),
		"previous_function_calls": RenderFunctionCalls(functionHistory),
		"current_cleaned_turn":    currentTurn.CleanedText,
		"tool_catalogue":          catalogueJSON,
	}, nil
}

// RenderFunctionCalls renders called-function history as one JSON object
// per line, oldest first.
func RenderFunctionCalls(history []*models.CalledFunction) string {
	if len(history) == 0 {
		return ""
	}
	lines := make([]string, 0, len(history))
	for _, fn := range history {
		b, err := json.Marshal(struct {
			Name       string         `json:"name"`
			Parameters map[string]any `json:"parameters"`
			Executed   bool           `json:"executed"`
		}{fn.FunctionName, fn.Parameters, fn.Executed})
		if err != nil {
			continue
		}
		lines = append(lines, string(b))
	}
	return strings.Join(lines, "\n")
}

func marshalJSON(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
