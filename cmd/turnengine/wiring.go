package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/lumenvoice/turnengine/internal/config"
	"github.com/lumenvoice/turnengine/internal/eventsink"
	"github.com/lumenvoice/turnengine/internal/evaluation"
	"github.com/lumenvoice/turnengine/internal/functions"
	"github.com/lumenvoice/turnengine/internal/llmgateway"
	"github.com/lumenvoice/turnengine/internal/observability"
	"github.com/lumenvoice/turnengine/internal/pipeline"
	"github.com/lumenvoice/turnengine/internal/prompt"
	"github.com/lumenvoice/turnengine/internal/storage"
	"github.com/lumenvoice/turnengine/pkg/models"
)

// engine bundles everything a CLI command needs to drive the Session
// Manager: the manager itself, the conversation source CLI subcommands use
// to register test turns/customers, and a close func for the durable
// dependencies underneath it.
type engine struct {
	manager      *evaluation.Manager
	conversation *storage.MemoryConversationSource
	closers      []func() error
}

func (e *engine) Close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		if err := e.closers[i](); err != nil {
			slog.Warn("error during engine shutdown", "error", err)
		}
	}
}

// buildEngine wires the gateway, function registry, persistence port, event
// sink, and Session Manager from cfg, mirroring the dependency order
// cmd/nexus's serve handler follows (load config, then build the stack
// bottom-up).
func buildEngine(cfg *config.Config) (*engine, error) {
	logger := observability.NewLogger(observability.LogConfig{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
	})

	tracer, shutdownTracer := observability.NewTracer(observability.TraceConfig{
		ServiceName:    "turnengine",
		ServiceVersion: version,
		Environment:    cfg.Environment,
		Endpoint:       cfg.OTELEndpoint,
		SamplingRate:   cfg.OTELSamplingRate,
	})

	gw, err := buildGateway(cfg)
	if err != nil {
		shutdownTracer(context.Background())
		return nil, fmt.Errorf("build gateway: %w", err)
	}

	registry, err := functions.NewRegistry()
	if err != nil {
		shutdownTracer(context.Background())
		return nil, fmt.Errorf("build function registry: %w", err)
	}
	executor := functions.NewExecutor(registry)

	e := &engine{conversation: storage.NewMemoryConversationSource()}
	e.closers = append(e.closers, func() error { return shutdownTracer(context.Background()) })

	var store storage.Store
	if cfg.PostgresDSN != "" {
		store, err = storage.NewPostgresStoreFromDSN(cfg.PostgresDSN, nil)
		if err != nil {
			return nil, fmt.Errorf("open postgres store: %w", err)
		}
	} else {
		store = storage.NewMemoryStore()
		logger.Warn(context.Background(), "DATABASE_URL not set, using in-memory evaluation store")
	}
	e.closers = append(e.closers, store.Close)

	sink, sinkCloser, err := buildEventSink(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("build event sink: %w", err)
	}
	if sinkCloser != nil {
		e.closers = append(e.closers, sinkCloser)
	}

	pricing := models.Pricing{
		InputPerMToken:  cfg.LLMInputCostPerMToken,
		OutputPerMToken: cfg.LLMOutputCostPerMToken,
	}
	metrics := pipeline.NewMetrics(prometheus.DefaultRegisterer)

	persistPoolSize := cfg.PersistPoolSize
	if persistPoolSize <= 0 {
		persistPoolSize = config.DefaultPersistPoolSize
	}
	// Shared between the Pipeline (which Submits the post-commit event-sink
	// publish to it) and the Manager (which Drains it on stop/shutdown), so
	// a single bounded pool backs spec §4.7 end to end.
	persistPool := evaluation.NewPersistPool(persistPoolSize, logger)

	pl := pipeline.New(gw, executor, registry, store.Evaluations, sink, persistPool, pricing, llmgateway.DefaultParams(), tracer, logger, metrics)

	templates := prompt.NewLoader(cfg.PromptTemplatesDir)

	mgrCfg := evaluation.DefaultConfig()
	mgrCfg.SessionTTL = cfg.SessionTTL
	mgrCfg.SweepInterval = cfg.SessionSweepInterval

	mgr := evaluation.New(store.Evaluations, e.conversation, templates, pl, persistPool, mgrCfg, logger)
	e.closers = append(e.closers, func() error {
		mgr.Shutdown()
		return nil
	})
	e.manager = mgr
	return e, nil
}

// buildGateway selects the LLM backend based on which API key is
// configured, preferring Gemini, the fast cost-optimized flash-class
// model, when both are set.
func buildGateway(cfg *config.Config) (llmgateway.Gateway, error) {
	rateLimit := llmgateway.RateLimit{RequestsPerSecond: 10, BurstSize: 20}
	retryDelay := time.Second

	if cfg.GeminiAPIKey != "" {
		return llmgateway.NewGeminiGateway(llmgateway.GeminiConfig{
			APIKey:       cfg.GeminiAPIKey,
			DefaultModel: cfg.LLMModelName,
			MaxRetries:   3,
			RetryDelay:   retryDelay,
			RateLimit:    rateLimit,
		})
	}
	if cfg.AnthropicAPIKey != "" {
		return llmgateway.NewAnthropicGateway(llmgateway.AnthropicGatewayConfig{
			APIKey:       cfg.AnthropicAPIKey,
			DefaultModel: cfg.LLMModelName,
			MaxRetries:   3,
			RetryDelay:   retryDelay,
			RateLimit:    rateLimit,
		})
	}
	return nil, fmt.Errorf("one of GEMINI_API_KEY or ANTHROPIC_API_KEY is required")
}

// buildEventSink selects the Kafka-backed sink when brokers are configured,
// falling back to the log-only sink otherwise. Event transport is pluggable,
// not mandatory.
func buildEventSink(cfg *config.Config, logger *observability.Logger) (eventsink.Sink, func() error, error) {
	if len(cfg.KafkaBrokers) > 0 {
		sink, err := eventsink.NewKafkaSink(eventsink.KafkaConfig{
			Brokers: cfg.KafkaBrokers,
			Topic:   cfg.KafkaTopic,
		})
		if err != nil {
			return nil, nil, err
		}
		return sink, sink.Close, nil
	}
	return eventsink.NewLogSink(logger.Slog()), nil, nil
}
