package llmgateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/lumenvoice/turnengine/internal/evalerr"
	"github.com/lumenvoice/turnengine/internal/ratelimit"
	"github.com/lumenvoice/turnengine/pkg/models"
)

// GeminiGateway implements Gateway against Google's Gen AI SDK, targeting a
// Gemini Flash model — the "fast, cost-optimized flash-class model" spec
// §4.1 calls for.
type GeminiGateway struct {
	client       *genai.Client
	defaultModel string
	retrier      BackoffRetrier
	limiter      *ratelimit.Bucket
}

// GeminiConfig configures a GeminiGateway.
type GeminiConfig struct {
	APIKey       string
	DefaultModel string
	MaxRetries   int
	RetryDelay   time.Duration
	RateLimit    RateLimit
}

// NewGeminiGateway creates a Gemini-backed gateway.
func NewGeminiGateway(cfg GeminiConfig) (*GeminiGateway, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("llmgateway: gemini API key is required")
	}
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = "gemini-2.0-flash"
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("llmgateway: create gemini client: %w", err)
	}

	return &GeminiGateway{
		client:       client,
		defaultModel: cfg.DefaultModel,
		retrier:      NewBackoffRetrier(cfg.MaxRetries, cfg.RetryDelay),
		limiter:      newBucket(cfg.RateLimit),
	}, nil
}

func (g *GeminiGateway) Name() string { return "gemini" }

func (g *GeminiGateway) GenerateText(ctx context.Context, prompt string, params Params) (*TextResult, error) {
	if err := waitForToken(ctx, g.limiter); err != nil {
		return nil, evalerr.Transient("gemini.generate_text", err)
	}

	start := time.Now()
	contents := []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}
	config := g.buildConfig(params, nil)

	var resp *genai.GenerateContentResponse
	err := g.retrier.Do(ctx, isRetryableGeminiError, func() error {
		var callErr error
		resp, callErr = g.client.Models.GenerateContent(ctx, g.defaultModel, contents, config)
		return callErr
	})
	if err != nil {
		return nil, evalerr.Transient("gemini.generate_text", err)
	}

	text, err := extractText(resp)
	if err != nil {
		return nil, evalerr.Parse("gemini.generate_text", err)
	}

	return &TextResult{
		Text:       text,
		TokenUsage: extractUsage(resp),
		LatencyMs:  measure(start),
	}, nil
}

func (g *GeminiGateway) GenerateWithTools(ctx context.Context, prompt string, tools []models.ToolDeclaration, params Params) (*ToolsResult, error) {
	if err := waitForToken(ctx, g.limiter); err != nil {
		return nil, evalerr.Transient("gemini.generate_with_tools", err)
	}

	start := time.Now()
	contents := []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}
	config := g.buildConfig(params, toGeminiTools(tools))

	var resp *genai.GenerateContentResponse
	err := g.retrier.Do(ctx, isRetryableGeminiError, func() error {
		var callErr error
		resp, callErr = g.client.Models.GenerateContent(ctx, g.defaultModel, contents, config)
		return callErr
	})
	if err != nil {
		return nil, evalerr.Transient("gemini.generate_with_tools", err)
	}

	calls, err := extractToolCalls(resp)
	if err != nil {
		return nil, evalerr.Parse("gemini.generate_with_tools", err)
	}
	text, _ := extractText(resp)

	return &ToolsResult{
		ToolCalls:  calls,
		Text:       text,
		TokenUsage: extractUsage(resp),
		LatencyMs:  measure(start),
	}, nil
}

func (g *GeminiGateway) buildConfig(params Params, tools []*genai.Tool) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(float32(orDefault(params.Temperature, 0.1))),
		TopP:            genai.Ptr(float32(orDefault(params.TopP, 0.95))),
		TopK:            genai.Ptr(float32(orDefaultInt(params.TopK, 40))),
		MaxOutputTokens: int32(orDefaultInt(params.MaxOutputTokens, 2048)),
	}
	if params.ResponseMIMEType != "" {
		cfg.ResponseMIMEType = params.ResponseMIMEType
	}
	if len(tools) > 0 {
		cfg.Tools = tools
	}
	return cfg
}

func toGeminiTools(decls []models.ToolDeclaration) []*genai.Tool {
	if len(decls) == 0 {
		return nil
	}
	fns := make([]*genai.FunctionDeclaration, 0, len(decls))
	for _, d := range decls {
		fns = append(fns, &genai.FunctionDeclaration{
			Name:        d.Name,
			Description: d.Description,
			Parameters:  toGeminiSchema(d.Parameters),
		})
	}
	return []*genai.Tool{{FunctionDeclarations: fns}}
}

func toGeminiSchema(s models.ToolSchema) *genai.Schema {
	schema := &genai.Schema{
		Type:        genai.Type(strings.ToUpper(s.Type)),
		Description: s.Description,
	}
	if len(s.Enum) > 0 {
		schema.Enum = append([]string{}, s.Enum...)
	}
	if len(s.Required) > 0 {
		schema.Required = append([]string{}, s.Required...)
	}
	if len(s.Properties) > 0 {
		schema.Properties = make(map[string]*genai.Schema, len(s.Properties))
		for name, prop := range s.Properties {
			schema.Properties[name] = toGeminiSchema(prop)
		}
	}
	if s.Items != nil {
		schema.Items = toGeminiSchema(*s.Items)
	}
	return schema
}

func extractText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", errors.New("empty candidate list")
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil {
		return "", nil
	}
	var b strings.Builder
	for _, part := range candidate.Content.Parts {
		if part.Text != "" {
			b.WriteString(part.Text)
		}
	}
	return b.String(), nil
}

func extractToolCalls(resp *genai.GenerateContentResponse) ([]models.ToolCall, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return nil, errors.New("empty candidate list")
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil {
		return nil, nil
	}
	var calls []models.ToolCall
	for _, part := range candidate.Content.Parts {
		if part.FunctionCall == nil {
			continue
		}
		argsJSON, err := json.Marshal(part.FunctionCall.Args)
		if err != nil {
			return nil, fmt.Errorf("marshal function call args: %w", err)
		}
		var raw map[string]any
		if err := json.Unmarshal(argsJSON, &raw); err != nil {
			return nil, fmt.Errorf("unmarshal function call args: %w", err)
		}
		calls = append(calls, models.ToolCall{
			Name:      part.FunctionCall.Name,
			Arguments: flattenArguments(raw),
		})
	}
	return calls, nil
}

func extractUsage(resp *genai.GenerateContentResponse) models.TokenUsage {
	if resp == nil || resp.UsageMetadata == nil {
		return models.TokenUsage{}
	}
	input := int(resp.UsageMetadata.PromptTokenCount)
	output := int(resp.UsageMetadata.CandidatesTokenCount)
	total := int(resp.UsageMetadata.TotalTokenCount)
	if total == 0 {
		total = input + output
	}
	return models.TokenUsage{Input: input, Output: output, Total: total}
}

func isRetryableGeminiError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"rate limit", "429", "resource exhausted", "quota", "500", "502", "503", "504", "timeout", "deadline exceeded", "connection reset", "connection refused"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

func orDefault(v, def float64) float64 {
	if v == 0 {
		return def
	}
	return v
}

func orDefaultInt(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}
