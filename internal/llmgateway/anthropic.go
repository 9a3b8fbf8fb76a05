package llmgateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/lumenvoice/turnengine/internal/evalerr"
	"github.com/lumenvoice/turnengine/internal/ratelimit"
	"github.com/lumenvoice/turnengine/pkg/models"
)

// AnthropicGateway implements Gateway against Anthropic's Claude API. It is
// the second selectable backend; the model family is configuration, not a
// hard-coded vendor.
type AnthropicGateway struct {
	client       anthropic.Client
	defaultModel string
	retrier      BackoffRetrier
	limiter      *ratelimit.Bucket
}

// AnthropicGatewayConfig configures an AnthropicGateway.
type AnthropicGatewayConfig struct {
	APIKey       string
	BaseURL      string
	DefaultModel string
	MaxRetries   int
	RetryDelay   time.Duration
	RateLimit    RateLimit
}

// NewAnthropicGateway creates an Anthropic-backed gateway.
func NewAnthropicGateway(cfg AnthropicGatewayConfig) (*AnthropicGateway, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("llmgateway: anthropic API key is required")
	}
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = "claude-3-5-haiku-20241022"
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if strings.TrimSpace(cfg.BaseURL) != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &AnthropicGateway{
		client:       anthropic.NewClient(opts...),
		defaultModel: cfg.DefaultModel,
		retrier:      NewBackoffRetrier(cfg.MaxRetries, cfg.RetryDelay),
		limiter:      newBucket(cfg.RateLimit),
	}, nil
}

func (g *AnthropicGateway) Name() string { return "anthropic" }

func (g *AnthropicGateway) GenerateText(ctx context.Context, prompt string, params Params) (*TextResult, error) {
	if err := waitForToken(ctx, g.limiter); err != nil {
		return nil, evalerr.Transient("anthropic.generate_text", err)
	}

	start := time.Now()
	req := anthropic.MessageNewParams{
		Model:     anthropic.Model(g.defaultModel),
		MaxTokens: int64(orDefaultInt(params.MaxOutputTokens, 2048)),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
		Temperature: anthropic.Float(orDefault(params.Temperature, 0.1)),
		TopP:        anthropic.Float(orDefault(params.TopP, 0.95)),
	}

	var msg *anthropic.Message
	err := g.retrier.Do(ctx, isRetryableAnthropicError, func() error {
		var callErr error
		msg, callErr = g.client.Messages.New(ctx, req)
		return callErr
	})
	if err != nil {
		return nil, evalerr.Transient("anthropic.generate_text", err)
	}

	text, _, err := extractAnthropicContent(msg)
	if err != nil {
		return nil, evalerr.Parse("anthropic.generate_text", err)
	}

	return &TextResult{
		Text:       text,
		TokenUsage: anthropicUsage(msg),
		LatencyMs:  measure(start),
	}, nil
}

func (g *AnthropicGateway) GenerateWithTools(ctx context.Context, prompt string, tools []models.ToolDeclaration, params Params) (*ToolsResult, error) {
	if err := waitForToken(ctx, g.limiter); err != nil {
		return nil, evalerr.Transient("anthropic.generate_with_tools", err)
	}

	start := time.Now()
	req := anthropic.MessageNewParams{
		Model:     anthropic.Model(g.defaultModel),
		MaxTokens: int64(orDefaultInt(params.MaxOutputTokens, 2048)),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
		Temperature: anthropic.Float(orDefault(params.Temperature, 0.1)),
		TopP:        anthropic.Float(orDefault(params.TopP, 0.95)),
		Tools:       toAnthropicTools(tools),
	}

	var msg *anthropic.Message
	err := g.retrier.Do(ctx, isRetryableAnthropicError, func() error {
		var callErr error
		msg, callErr = g.client.Messages.New(ctx, req)
		return callErr
	})
	if err != nil {
		return nil, evalerr.Transient("anthropic.generate_with_tools", err)
	}

	text, calls, err := extractAnthropicContent(msg)
	if err != nil {
		return nil, evalerr.Parse("anthropic.generate_with_tools", err)
	}

	return &ToolsResult{
		ToolCalls:  calls,
		Text:       text,
		TokenUsage: anthropicUsage(msg),
		LatencyMs:  measure(start),
	}, nil
}

func toAnthropicTools(decls []models.ToolDeclaration) []anthropic.ToolUnionParam {
	if len(decls) == 0 {
		return nil
	}
	out := make([]anthropic.ToolUnionParam, 0, len(decls))
	for _, d := range decls {
		schemaJSON, _ := json.Marshal(d.Parameters)
		var schema anthropic.ToolInputSchemaParam
		if err := json.Unmarshal(schemaJSON, &schema); err != nil {
			continue
		}
		toolParam := anthropic.ToolUnionParamOfTool(schema, d.Name)
		if toolParam.OfTool != nil {
			toolParam.OfTool.Description = anthropic.String(d.Description)
		}
		out = append(out, toolParam)
	}
	return out
}

func extractAnthropicContent(msg *anthropic.Message) (string, []models.ToolCall, error) {
	if msg == nil {
		return "", nil, errors.New("empty message")
	}
	var text strings.Builder
	var calls []models.ToolCall
	for _, block := range msg.Content {
		switch variant := block.AsAny().(type) {
		case anthropic.TextBlock:
			text.WriteString(variant.Text)
		case anthropic.ToolUseBlock:
			var raw map[string]any
			if err := json.Unmarshal(variant.Input, &raw); err != nil {
				return "", nil, fmt.Errorf("unmarshal tool_use input for %s: %w", variant.Name, err)
			}
			calls = append(calls, models.ToolCall{
				Name:      variant.Name,
				Arguments: flattenArguments(raw),
			})
		}
	}
	return text.String(), calls, nil
}

func anthropicUsage(msg *anthropic.Message) models.TokenUsage {
	if msg == nil {
		return models.TokenUsage{}
	}
	input := int(msg.Usage.InputTokens)
	output := int(msg.Usage.OutputTokens)
	return models.TokenUsage{Input: input, Output: output, Total: input + output}
}

func isRetryableAnthropicError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"rate limit", "429", "overloaded", "500", "502", "503", "504", "timeout", "deadline exceeded", "connection reset", "connection refused"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
