package llmgateway

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/lumenvoice/turnengine/pkg/models"
)

func TestToGeminiSchema_NestedObject(t *testing.T) {
	schema := models.ToolSchema{
		Type: "object",
		Properties: map[string]models.ToolSchema{
			"channel": {Type: "string", Enum: []string{"sms", "email"}},
			"tags": {
				Type:  "array",
				Items: &models.ToolSchema{Type: "string"},
			},
		},
		Required: []string{"channel"},
	}

	got := toGeminiSchema(schema)
	require.NotNil(t, got)
	assert.Equal(t, genai.Type("OBJECT"), got.Type)
	assert.Equal(t, []string{"channel"}, got.Required)
	assert.Equal(t, []string{"sms", "email"}, got.Properties["channel"].Enum)
	assert.Equal(t, genai.Type("STRING"), got.Properties["tags"].Items.Type)
}

func TestToGeminiTools_EmptyIsNil(t *testing.T) {
	assert.Nil(t, toGeminiTools(nil))
}

func TestToGeminiTools_BuildsFunctionDeclarations(t *testing.T) {
	decls := []models.ToolDeclaration{
		{Name: "log_metric", Description: "records a metric", Parameters: models.ToolSchema{Type: "object"}},
	}
	tools := toGeminiTools(decls)
	require.Len(t, tools, 1)
	require.Len(t, tools[0].FunctionDeclarations, 1)
	assert.Equal(t, "log_metric", tools[0].FunctionDeclarations[0].Name)
}

func TestExtractUsage_FallsBackToSum(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		UsageMetadata: &genai.GenerateContentResponseUsageMetadata{
			PromptTokenCount:     10,
			CandidatesTokenCount: 5,
		},
	}
	usage := extractUsage(resp)
	assert.Equal(t, 10, usage.Input)
	assert.Equal(t, 5, usage.Output)
	assert.Equal(t, 15, usage.Total)
}

func TestExtractUsage_NilResponse(t *testing.T) {
	assert.Equal(t, models.TokenUsage{}, extractUsage(nil))
}

func TestIsRetryableGeminiError(t *testing.T) {
	assert.True(t, isRetryableGeminiError(errOf("429 rate limit exceeded")))
	assert.True(t, isRetryableGeminiError(errOf("upstream connection reset")))
	assert.False(t, isRetryableGeminiError(errOf("invalid argument: schema mismatch")))
	assert.False(t, isRetryableGeminiError(nil))
}

func TestNewGeminiGateway_RequiresAPIKey(t *testing.T) {
	_, err := NewGeminiGateway(GeminiConfig{})
	require.Error(t, err)
}
