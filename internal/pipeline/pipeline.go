// Package pipeline implements the two-stage cleaner/function-caller
// orchestration for one turn.
package pipeline

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/lumenvoice/turnengine/internal/classify"
	"github.com/lumenvoice/turnengine/internal/evalerr"
	"github.com/lumenvoice/turnengine/internal/eventsink"
	"github.com/lumenvoice/turnengine/internal/functions"
	"github.com/lumenvoice/turnengine/internal/llmgateway"
	"github.com/lumenvoice/turnengine/internal/observability"
	"github.com/lumenvoice/turnengine/internal/prompt"
	"github.com/lumenvoice/turnengine/internal/sessionstate"
	"github.com/lumenvoice/turnengine/internal/storage"
	"github.com/lumenvoice/turnengine/pkg/models"
)

// AsyncPool dispatches fire-and-forget follow-up work off the hot path
// (spec §4.7's bounded async persistence pool). A nil AsyncPool makes the
// Pipeline run that work inline instead, which is what tests that don't
// care about the distinction want. internal/evaluation.PersistPool
// satisfies this structurally.
type AsyncPool interface {
	Submit(ctx context.Context, op string, fn func(ctx context.Context) error)
}

// Pipeline wires the LLM Gateway, the function registry/executor, and the
// persistence port into the per-turn orchestration. One Pipeline is shared
// process-wide; everything it touches per call is either stateless or
// scoped to the SessionState passed in.
type Pipeline struct {
	gateway   llmgateway.Gateway
	executor  *functions.Executor
	catalogue []models.ToolDeclaration
	store     storage.EvaluationStore
	sink      eventsink.Sink
	pool      AsyncPool
	pricing   models.Pricing
	params    llmgateway.Params

	logger  *observability.Logger
	tracer  *observability.Tracer
	metrics *Metrics
}

// New builds a Pipeline. registry supplies the tool catalogue advertised
// to the function-caller LLM; executor applies the calls it returns. pool
// receives the post-commit event-sink publish so it never blocks the next
// turn; pass nil to run it inline (e.g. in tests). A nil tracer/logger
// builds a no-op tracer and a stdout logger respectively, which is what
// tests that don't care about observability wiring want.
func New(
	gateway llmgateway.Gateway,
	executor *functions.Executor,
	registry *functions.Registry,
	store storage.EvaluationStore,
	sink eventsink.Sink,
	pool AsyncPool,
	pricing models.Pricing,
	params llmgateway.Params,
	tracer *observability.Tracer,
	logger *observability.Logger,
	metrics *Metrics,
) *Pipeline {
	if logger == nil {
		logger = observability.NewLogger(observability.LogConfig{})
	}
	if tracer == nil {
		tracer, _ = observability.NewTracer(observability.TraceConfig{ServiceName: "turnengine/pipeline"})
	}
	return &Pipeline{
		gateway:   gateway,
		executor:  executor,
		catalogue: registry.Declarations(),
		store:     store,
		sink:      sink,
		pool:      pool,
		pricing:   pricing,
		params:    params,
		tracer:    tracer,
		logger:    logger.WithFields("component", "pipeline"),
		metrics:   metrics,
	}
}

// ProcessTurn runs the turn pipeline against an already hydrated state.
// Acquiring and hydrating the SessionState is the Session Manager's
// responsibility, not this type's.
func (p *Pipeline) ProcessTurn(ctx context.Context, eval *models.Evaluation, state *sessionstate.State, turn *models.Turn, cleanerTemplate, functionTemplate *prompt.Template) (*Result, error) {
	ctx = observability.AddEvaluationID(ctx, eval.EvaluationID)
	ctx, span := p.tracer.TraceTurnProcessing(ctx, eval.EvaluationID, string(turn.Speaker), turn.TurnID)
	defer span.End()

	if existing := state.FindCleanedTurn(turn.TurnID); existing != nil {
		return p.idempotentResult(existing, state.FunctionCallsFor(existing.ID)), nil
	}

	start := time.Now()
	path := classify.Classify(turn.Speaker, turn.RawText)
	p.tracer.SetAttributes(span, "classifier.path", string(path))
	if p.metrics != nil {
		p.metrics.TurnsProcessed.WithLabelValues(string(path)).Inc()
	}

	if path == classify.PathBypass || path == classify.PathSkip {
		cleaned := p.passthroughTurn(eval.EvaluationID, turn, path, start)
		if err := p.persistAndAppend(ctx, eval.EvaluationID, state, cleaned, nil, nil); err != nil {
			p.tracer.RecordError(span, err)
			return nil, err
		}
		p.publish(ctx, eval.EvaluationID, cleaned, nil, cleaned.CostUSD, cleaned.ProcessingTimeMs)
		return &Result{CleaningResult: cleaned, TotalCostUSD: cleaned.CostUSD, TotalProcessingTimeMs: cleaned.ProcessingTimeMs}, nil
	}

	cleaned, err := p.clean(ctx, eval, state, turn, path, cleanerTemplate, start)
	if err != nil {
		p.tracer.RecordError(span, err)
		return nil, err
	}

	var functionResult *FunctionResult
	var calledFunctions []*models.CalledFunction
	if turn.Speaker == models.SpeakerUser && eval.Config.FunctionsEnabled {
		functionResult, calledFunctions = p.callFunctions(ctx, eval, state, cleaned, functionTemplate)
	}

	customerSnapshot := state.Customer().Clone()
	if err := p.persistAndAppend(ctx, eval.EvaluationID, state, cleaned, calledFunctions, customerSnapshot); err != nil {
		p.tracer.RecordError(span, err)
		return nil, err
	}

	totalCost := cleaned.CostUSD
	for _, fn := range calledFunctions {
		totalCost += fn.CostUSD
	}
	totalTimeMs := cleaned.ProcessingTimeMs
	if functionResult != nil {
		for _, fn := range calledFunctions {
			totalTimeMs += fn.ProcessingTimeMs
		}
	}

	p.publish(ctx, eval.EvaluationID, cleaned, calledFunctions, totalCost, totalTimeMs)

	return &Result{
		CleaningResult:        cleaned,
		FunctionResult:        functionResult,
		TotalCostUSD:          totalCost,
		TotalProcessingTimeMs: totalTimeMs,
	}, nil
}

func (p *Pipeline) idempotentResult(cleaned *models.CleanedTurn, calledFunctions []*models.CalledFunction) *Result {
	totalCost := cleaned.CostUSD
	totalTimeMs := cleaned.ProcessingTimeMs
	var functionResult *FunctionResult
	if len(calledFunctions) > 0 {
		functionResult = &FunctionResult{Called: calledFunctions}
		for _, fn := range calledFunctions {
			totalCost += fn.CostUSD
			totalTimeMs += fn.ProcessingTimeMs
		}
	}
	return &Result{CleaningResult: cleaned, FunctionResult: functionResult, TotalCostUSD: totalCost, TotalProcessingTimeMs: totalTimeMs}
}

// passthroughTurn builds the CleanedTurn envelope for a bypass or skip
// turn: no LLM call, no function stage.
func (p *Pipeline) passthroughTurn(evaluationID string, turn *models.Turn, path classify.Path, start time.Time) *models.CleanedTurn {
	confidence := models.ConfidenceHigh
	if path == classify.PathSkip {
		confidence = models.ConfidenceLow
	}
	return &models.CleanedTurn{
		ID:               uuid.NewString(),
		TurnID:           turn.TurnID,
		EvaluationID:     evaluationID,
		Speaker:          turn.Speaker,
		Sequence:         turn.Sequence,
		RawText:          turn.RawText,
		CleanedText:      turn.RawText,
		ConfidenceScore:  confidence,
		CleaningApplied:  false,
		CleaningLevel:    models.CleaningLevelNone,
		ProcessingTimeMs: elapsedMs(start),
		CreatedAt:        time.Now(),
	}
}

// clean runs the fast-clean or full cleaner-LLM path.
func (p *Pipeline) clean(ctx context.Context, eval *models.Evaluation, state *sessionstate.State, turn *models.Turn, path classify.Path, cleanerTemplate *prompt.Template, start time.Time) (*models.CleanedTurn, error) {
	if path == classify.PathFastClean {
		return &models.CleanedTurn{
			ID:               uuid.NewString(),
			TurnID:           turn.TurnID,
			EvaluationID:     eval.EvaluationID,
			Speaker:          turn.Speaker,
			Sequence:         turn.Sequence,
			RawText:          turn.RawText,
			CleanedText:      classify.Normalize(turn.RawText),
			ConfidenceScore:  models.ConfidenceHigh,
			CleaningApplied:  false,
			CleaningLevel:    models.CleaningLevelNone,
			ProcessingTimeMs: elapsedMs(start),
			CreatedAt:        time.Now(),
		}, nil
	}

	window := state.CleanedWindow(eval.Config.CleanerWindowSize)
	callContext := callContextFrom(state.Customer())
	placeholders := prompt.CleanerContext(callContext, window, turn.RawText)

	rendered, err := prompt.Render(cleanerTemplate.Body, placeholders)
	if err != nil {
		return nil, evalerr.Invariant("render_cleaner_prompt", err)
	}

	stageStart := time.Now()
	llmCtx, llmSpan := p.tracer.TraceLLMRequest(ctx, p.gateway.Name(), "")
	result, err := p.gateway.GenerateText(llmCtx, rendered, p.params)
	if p.metrics != nil {
		p.metrics.CleanerLatency.Observe(time.Since(stageStart).Seconds())
	}
	if err != nil {
		p.tracer.AddEvent(llmSpan, "cleaner_fallback", "reason", err.Error())
		llmSpan.End()
		p.logger.Warn(ctx, "cleaner stage failed, falling back to raw text",
			"turn_id", turn.TurnID, "error", err)
		return &models.CleanedTurn{
			ID:               uuid.NewString(),
			TurnID:           turn.TurnID,
			EvaluationID:     eval.EvaluationID,
			Speaker:          turn.Speaker,
			Sequence:         turn.Sequence,
			RawText:          turn.RawText,
			CleanedText:      turn.RawText,
			ConfidenceScore:  models.ConfidenceLow,
			CleaningApplied:  false,
			CleaningLevel:    models.CleaningLevelNone,
			AIModelUsed:      p.gateway.Name(),
			ProcessingTimeMs: elapsedMs(start),
			CreatedAt:        time.Now(),
		}, nil
	}

	llmSpan.End()

	parsed := parseCleanerText(result.Text, turn.RawText)
	cost := p.pricing.Cost(result.TokenUsage)
	if p.metrics != nil {
		p.metrics.TokensUsed.WithLabelValues("cleaner", "input").Add(float64(result.TokenUsage.Input))
		p.metrics.TokensUsed.WithLabelValues("cleaner", "output").Add(float64(result.TokenUsage.Output))
		p.metrics.CostUSD.WithLabelValues("cleaner").Add(cost)
	}

	return &models.CleanedTurn{
		ID:               uuid.NewString(),
		TurnID:           turn.TurnID,
		EvaluationID:     eval.EvaluationID,
		Speaker:          turn.Speaker,
		Sequence:         turn.Sequence,
		RawText:          turn.RawText,
		CleanedText:      parsed.CleanedText,
		ConfidenceScore:  parsed.Confidence,
		CleaningApplied:  parsed.CleaningLevel != models.CleaningLevelNone,
		CleaningLevel:    parsed.CleaningLevel,
		AIModelUsed:      p.gateway.Name(),
		ProcessingTimeMs: elapsedMs(start),
		Corrections:      parsed.Corrections,
		ContextDetected:  parsed.ContextDetected,
		TokenUsage:       result.TokenUsage,
		CostUSD:          cost,
		CreatedAt:        time.Now(),
	}, nil
}

// callFunctions runs the function-caller stage. Its own failure never
// fails the turn: it degrades to an empty FunctionResult with an error tag.
func (p *Pipeline) callFunctions(ctx context.Context, eval *models.Evaluation, state *sessionstate.State, cleaned *models.CleanedTurn, functionTemplate *prompt.Template) (*FunctionResult, []*models.CalledFunction) {
	customer := state.Customer()
	window := state.CleanedWindow(eval.Config.FunctionWindowSize)
	functionHistory := state.FunctionWindow(eval.Config.FunctionWindowSize)

	placeholders, err := prompt.FunctionCallerContext(customer, window, functionHistory, cleaned, p.catalogue)
	if err != nil {
		return &FunctionResult{Error: err.Error()}, nil
	}

	rendered, err := prompt.Render(functionTemplate.Body, placeholders)
	if err != nil {
		return &FunctionResult{Error: err.Error()}, nil
	}

	stageStart := time.Now()
	llmCtx, llmSpan := p.tracer.TraceLLMRequest(ctx, p.gateway.Name(), "")
	result, err := p.gateway.GenerateWithTools(llmCtx, rendered, p.catalogue, p.params)
	llmSpan.End()
	if p.metrics != nil {
		p.metrics.FunctionLatency.Observe(time.Since(stageStart).Seconds())
	}
	if err != nil {
		p.logger.Warn(ctx, "function-caller stage failed", "turn_id", cleaned.TurnID, "error", err)
		return &FunctionResult{Error: err.Error()}, nil
	}

	if len(result.ToolCalls) == 0 {
		return &FunctionResult{}, nil
	}

	stageCost := p.pricing.Cost(result.TokenUsage)
	if p.metrics != nil {
		p.metrics.TokensUsed.WithLabelValues("function_caller", "input").Add(float64(result.TokenUsage.Input))
		p.metrics.TokensUsed.WithLabelValues("function_caller", "output").Add(float64(result.TokenUsage.Output))
		p.metrics.CostUSD.WithLabelValues("function_caller").Add(stageCost)
	}

	called := make([]*models.CalledFunction, 0, len(result.ToolCalls))
	for i, call := range result.ToolCalls {
		execStart := time.Now()
		_, toolSpan := p.tracer.TraceToolExecution(ctx, call.Name)
		outcome := p.executor.Execute(call.Name, call.Arguments, customer)
		if !outcome.Success {
			p.tracer.AddEvent(toolSpan, "tool_failed", "error", outcome.Error)
		}
		toolSpan.End()
		if p.metrics != nil {
			p.metrics.FunctionCallsExecuted.WithLabelValues(call.Name, strconv.FormatBool(outcome.Success)).Inc()
		}

		fn := &models.CalledFunction{
			ID:               uuid.NewString(),
			CleanedTurnID:    cleaned.ID,
			EvaluationID:     eval.EvaluationID,
			FunctionName:     call.Name,
			Parameters:       call.Arguments,
			Result:           outcome.Result,
			Executed:         outcome.Success,
			Error:            outcome.Error,
			ProcessingTimeMs: elapsedMs(execStart),
			CreatedAt:        time.Now(),
		}
		// The function-caller invocation's usage/cost is attributed to the
		// first CalledFunction so sum(called_functions.cost) equals the
		// stage's actual spend.
		if i == 0 {
			fn.TokenUsage = result.TokenUsage
			fn.CostUSD = stageCost
		}
		called = append(called, fn)
	}

	return &FunctionResult{Called: called}, called
}

func (p *Pipeline) persistAndAppend(ctx context.Context, evaluationID string, state *sessionstate.State, cleaned *models.CleanedTurn, calledFunctions []*models.CalledFunction, customerSnapshot *models.MirroredCustomer) error {
	ctx, span := p.tracer.TraceDatabaseQuery(ctx, "commit", "turns")
	defer span.End()

	batch := storage.BatchWrite{
		EvaluationID:    evaluationID,
		CleanedTurn:     cleaned,
		CalledFunctions: calledFunctions,
		Customer:        customerSnapshot,
	}
	if err := p.store.CommitTurn(ctx, batch); err != nil {
		p.tracer.RecordError(span, err)
		return evalerr.Persistence("commit_turn", err)
	}

	state.AppendCleanedTurn(cleaned)
	for _, fn := range calledFunctions {
		state.AppendFunctionCall(fn)
	}
	return nil
}

// publish dispatches the event-sink notification for a committed turn. It
// runs after persistAndAppend has already updated in-memory state, so per
// spec §4.7 it is safe to hand to the async persistence pool rather than
// block the caller's return; a nil pool (tests, or no pool configured)
// falls back to running it inline.
func (p *Pipeline) publish(ctx context.Context, evaluationID string, cleaned *models.CleanedTurn, calledFunctions []*models.CalledFunction, totalCost float64, totalTimeMs int64) {
	if p.sink == nil {
		return
	}
	event := eventsink.Event{
		EvaluationID:          evaluationID,
		TurnID:                cleaned.TurnID,
		CleanedTurn:           cleaned,
		CalledFunctions:       calledFunctions,
		TotalCostUSD:          totalCost,
		TotalProcessingTimeMs: totalTimeMs,
		Timestamp:             time.Now(),
	}

	job := func(jobCtx context.Context) error {
		if err := p.sink.Publish(jobCtx, event); err != nil {
			p.logger.Warn(jobCtx, "event sink publish failed", "turn_id", cleaned.TurnID, "error", err)
			return err
		}
		return nil
	}

	if p.pool == nil {
		_ = job(ctx)
		return
	}
	// Detach from the caller's context: the publish must still happen even
	// if the request that triggered this turn has already returned and
	// cancelled ctx.
	p.pool.Submit(context.WithoutCancel(ctx), "event_sink_publish", job)
}

// callContextFrom renders the ground-truth business facts the cleaner
// template's call_context placeholder expects.
func callContextFrom(customer *models.MirroredCustomer) string {
	if customer == nil {
		return ""
	}
	return fmt.Sprintf("Company: %s. Sector: %s. Size: %s. Contact: %s, %s.",
		orDash(customer.CompanyName), orDash(customer.CompanySector), orDash(customer.CompanySize),
		orDash(customer.UserName), orDash(customer.JobTitle))
}

func orDash(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}

func elapsedMs(start time.Time) int64 {
	return time.Since(start).Milliseconds()
}
