// Package observability provides structured logging and distributed tracing
// for the turn processing engine.
//
// # Logging
//
// Logging is built on Go's slog package with enhancements for:
//   - Automatic request/evaluation ID correlation from context
//   - Sensitive data redaction (API keys, passwords, tokens)
//   - JSON output for production, text for development
//
// Example usage:
//
//	logger := observability.NewLogger(observability.LogConfig{
//	    Level:     "info",
//	    Format:    "json",
//	    AddSource: true,
//	})
//
//	ctx := observability.AddRequestID(context.Background(), requestID)
//	ctx = observability.AddEvaluationID(ctx, evaluationID)
//	logger.Info(ctx, "processing turn", "turn_id", turnID)
//
// # Tracing
//
// Distributed tracing uses OpenTelemetry to track process_turn calls across
// the cleaner and function-caller LLM stages:
//
//	tracer, shutdown := observability.NewTracer(observability.TraceConfig{
//	    ServiceName: "turnengine",
//	    Endpoint:    os.Getenv("OTEL_ENDPOINT"),
//	})
//	defer shutdown(context.Background())
//
//	ctx, span := tracer.TraceTurnProcessing(ctx, evaluationID, "user", turnID)
//	defer span.End()
//
// If TraceConfig.Endpoint is empty, NewTracer returns a no-op tracer so the
// engine runs unchanged without a collector configured.
//
// # Security
//
// The logging component redacts API keys, passwords, secrets, and bearer/JWT
// tokens from both messages and structured args before they reach the
// handler.
package observability
