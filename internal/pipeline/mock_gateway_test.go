package pipeline

import (
	"context"

	"github.com/lumenvoice/turnengine/internal/llmgateway"
	"github.com/lumenvoice/turnengine/pkg/models"
)

// mockGateway is a hand-rolled llmgateway.Gateway stub for pipeline tests.
// No mocking library is introduced solely for this; the interface is two
// methods wide and a field-driven stub reads clearer than generated mocks.
type mockGateway struct {
	name string

	textResult *llmgateway.TextResult
	textErr    error

	toolsResult *llmgateway.ToolsResult
	toolsErr    error

	textCalls  int
	toolsCalls int
}

func (m *mockGateway) Name() string {
	if m.name == "" {
		return "mock"
	}
	return m.name
}

func (m *mockGateway) GenerateText(ctx context.Context, prompt string, params llmgateway.Params) (*llmgateway.TextResult, error) {
	m.textCalls++
	if m.textErr != nil {
		return nil, m.textErr
	}
	return m.textResult, nil
}

func (m *mockGateway) GenerateWithTools(ctx context.Context, prompt string, tools []models.ToolDeclaration, params llmgateway.Params) (*llmgateway.ToolsResult, error) {
	m.toolsCalls++
	if m.toolsErr != nil {
		return nil, m.toolsErr
	}
	return m.toolsResult, nil
}
