package evaluation

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lumenvoice/turnengine/internal/evalerr"
	"github.com/lumenvoice/turnengine/internal/observability"
	"github.com/lumenvoice/turnengine/internal/pipeline"
	"github.com/lumenvoice/turnengine/internal/prompt"
	"github.com/lumenvoice/turnengine/internal/sessionstate"
	"github.com/lumenvoice/turnengine/internal/storage"
	"github.com/lumenvoice/turnengine/pkg/models"
)

// Config bounds the manager's background behavior: SESSION_TTL_SECONDS,
// SESSION_SWEEP_INTERVAL_SECONDS, MAX_HISTORY_ENTRIES. PERSIST_POOL_SIZE
// sizes the PersistPool itself, which callers build and share with the
// Pipeline (see NewPersistPool), so it is not repeated here.
type Config struct {
	SweepInterval time.Duration
	SessionTTL    time.Duration
	LockTimeout   time.Duration
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{
		SweepInterval: DefaultSweepInterval,
		SessionTTL:    DefaultSessionTTL,
		LockTimeout:   DefaultLockTimeout,
	}
}

// StateSnapshot is the read-only view get_state returns.
type StateSnapshot struct {
	EvaluationID     string
	Status           models.EvaluationStatus
	CleanedTurnCount int
	FunctionCount    int
	LastAccessTime   time.Time
	TotalCostUSD     float64
}

// Manager is the Session Manager. It owns every live SessionState,
// hydrates it on first access, and serializes process_turn calls per
// evaluation_id while letting different evaluations proceed in parallel.
type Manager struct {
	store        storage.EvaluationStore
	conversation storage.ConversationSource
	templates    *prompt.Loader
	pipeline     *pipeline.Pipeline
	cfg          Config
	logger       *observability.Logger

	locker  *locker
	pool    *PersistPool
	sweeper *sweeper

	mu     sync.RWMutex
	states map[string]*sessionstate.State
}

// New builds a Manager and starts its background sweeper. pool is the same
// PersistPool handed to the Pipeline's AsyncPool slot, so that draining it
// here on StopEvaluation/Shutdown also drains whatever the Pipeline queued.
func New(
	store storage.EvaluationStore,
	conversation storage.ConversationSource,
	templates *prompt.Loader,
	pl *pipeline.Pipeline,
	pool *PersistPool,
	cfg Config,
	logger *observability.Logger,
) *Manager {
	if logger == nil {
		logger = observability.NewLogger(observability.LogConfig{})
	}
	if pool == nil {
		pool = NewPersistPool(0, logger)
	}
	m := &Manager{
		store:        store,
		conversation: conversation,
		templates:    templates,
		pipeline:     pl,
		cfg:          cfg,
		logger:       logger.WithFields("component", "session_manager"),
		locker:       newLocker(cfg.LockTimeout),
		pool:         pool,
		states:       make(map[string]*sessionstate.State),
	}
	m.sweeper = newSweeper(m, cfg.SweepInterval, cfg.SessionTTL, logger)
	m.sweeper.start()
	return m
}

// CreateEvaluation persists a new Evaluation and returns its id. It does
// not hydrate SessionState; that happens lazily on the first process_turn.
func (m *Manager) CreateEvaluation(ctx context.Context, conversationID string, config models.EvaluationConfig) (string, error) {
	if err := config.Normalize(); err != nil {
		return "", evalerr.Classification("create_evaluation", err)
	}
	eval := &models.Evaluation{
		EvaluationID:   uuid.NewString(),
		ConversationID: conversationID,
		Config:         config,
		Status:         models.EvaluationRunning,
		CreatedAt:      time.Now(),
	}
	if err := m.store.CreateEvaluation(ctx, eval); err != nil {
		return "", evalerr.Persistence("create_evaluation", err)
	}
	m.logger.Info(observability.AddEvaluationID(ctx, eval.EvaluationID), "evaluation created", "conversation_id", conversationID)
	return eval.EvaluationID, nil
}

// ProcessTurn acquires the per-evaluation lock, hydrates SessionState on
// first access, and routes to the Pipeline.
func (m *Manager) ProcessTurn(ctx context.Context, evaluationID, turnID string) (*pipeline.Result, error) {
	eval, err := m.store.GetEvaluation(ctx, evaluationID)
	if err != nil {
		return nil, evalerr.Classification("process_turn", evalerr.ErrEvaluationNotFound)
	}
	if eval.Status == models.EvaluationStopped {
		return nil, evalerr.Classification("process_turn", evalerr.ErrEvaluationStopped)
	}

	if err := m.locker.Lock(ctx, evaluationID); err != nil {
		return nil, err
	}
	defer m.locker.Unlock(evaluationID)

	turn, err := m.conversation.GetTurn(ctx, turnID)
	if err != nil {
		return nil, evalerr.Classification("process_turn", evalerr.ErrTurnNotFound)
	}

	state, err := m.acquireState(ctx, eval)
	if err != nil {
		return nil, err
	}
	state.Touch()

	cleanerTemplate, functionTemplate, err := m.resolveTemplates(eval, state)
	if err != nil {
		return nil, err
	}

	return m.pipeline.ProcessTurn(ctx, eval, state, turn, cleanerTemplate, functionTemplate)
}

// StopEvaluation flags the evaluation stopped and drains the async
// persistence pool so no queued write is lost.
func (m *Manager) StopEvaluation(ctx context.Context, evaluationID string) error {
	if err := m.store.UpdateEvaluationStatus(ctx, evaluationID, models.EvaluationStopped); err != nil {
		return evalerr.Persistence("stop_evaluation", err)
	}
	m.pool.Drain()
	return nil
}

// GetState returns a read-only snapshot for observers. It never hydrates:
// an evaluation with no in-memory state yet reports zero counts.
func (m *Manager) GetState(ctx context.Context, evaluationID string) (*StateSnapshot, error) {
	eval, err := m.store.GetEvaluation(ctx, evaluationID)
	if err != nil {
		return nil, evalerr.Classification("get_state", evalerr.ErrEvaluationNotFound)
	}

	m.mu.RLock()
	state, ok := m.states[evaluationID]
	m.mu.RUnlock()
	if !ok {
		return &StateSnapshot{EvaluationID: evaluationID, Status: eval.Status}, nil
	}

	cleaned, functions := state.HistoryLen()
	var totalCost float64
	for _, turn := range state.CleanedWindow(cleaned) {
		totalCost += turn.CostUSD
	}
	for _, fn := range state.FunctionWindow(functions) {
		totalCost += fn.CostUSD
	}

	return &StateSnapshot{
		EvaluationID:     evaluationID,
		Status:           eval.Status,
		CleanedTurnCount: cleaned,
		FunctionCount:    functions,
		LastAccessTime:   state.LastAccessTime(),
		TotalCostUSD:     totalCost,
	}, nil
}

// Shutdown stops the sweeper and drains the persistence pool.
func (m *Manager) Shutdown() {
	m.sweeper.Stop()
	m.pool.Drain()
}

// acquireState returns the cached SessionState for eval, hydrating it from
// persisted history on first access. Called only while holding the
// evaluation's lock, so hydration itself never races.
func (m *Manager) acquireState(ctx context.Context, eval *models.Evaluation) (*sessionstate.State, error) {
	m.mu.RLock()
	state, ok := m.states[eval.EvaluationID]
	m.mu.RUnlock()
	if ok {
		return state, nil
	}

	state, err := m.hydrate(ctx, eval)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.states[eval.EvaluationID] = state
	m.mu.Unlock()
	return state, nil
}

// hydrate replays persisted CleanedTurns/CalledFunctions and reconstructs
// the MirroredCustomer, falling back to the canonical customer source if no
// snapshot was ever persisted. Idempotent: calling it twice for the same
// evaluation_id produces an equivalent State, since it only reads.
func (m *Manager) hydrate(ctx context.Context, eval *models.Evaluation) (*sessionstate.State, error) {
	turns, calledFunctions, customer, err := m.store.LoadHistory(ctx, eval.EvaluationID)
	if err != nil {
		return nil, evalerr.Persistence("hydrate", err)
	}

	if customer == nil {
		customer, err = m.conversation.CanonicalCustomer(ctx, eval.ConversationID)
		if err != nil {
			return nil, evalerr.Persistence("hydrate_canonical_customer", err)
		}
	}

	state := sessionstate.New(eval.EvaluationID, customer)
	for _, turn := range turns {
		state.AppendCleanedTurn(turn)
	}
	for _, fn := range calledFunctions {
		state.AppendFunctionCall(fn)
	}
	return state, nil
}

// resolveTemplates loads and caches the cleaner/function-caller templates
// named by the evaluation's config, reusing the cached pair across turns
// until an explicit change invalidates the loader's cache.
func (m *Manager) resolveTemplates(eval *models.Evaluation, state *sessionstate.State) (*prompt.Template, *prompt.Template, error) {
	if cleaner, fn := state.Templates(); cleaner != nil {
		return cleaner, fn, nil
	}

	cleaner, err := m.templates.Load(eval.Config.CleanerPromptTemplateRef)
	if err != nil {
		return nil, nil, evalerr.Invariant("load_cleaner_template", err)
	}

	var fn *prompt.Template
	if eval.Config.FunctionsEnabled {
		ref := eval.Config.FunctionPromptTemplateRef
		if ref == "" {
			ref = eval.Config.CleanerPromptTemplateRef
		}
		fn, err = m.templates.Load(ref)
		if err != nil {
			return nil, nil, evalerr.Invariant("load_function_template", err)
		}
	}

	state.SetTemplates(cleaner, fn)
	return cleaner, fn, nil
}

// evictIdle drops every cached SessionState past ttl that is not running,
// releasing its lock entry too. Returns the number evicted.
func (m *Manager) evictIdle(now time.Time, ttl time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	evicted := 0
	for id, state := range m.states {
		eval, err := m.store.GetEvaluation(context.Background(), id)
		if err != nil {
			m.logger.Error(context.Background(), "sweep failed to load evaluation, leaving session cached", "evaluation_id", id, "error", err)
			continue
		}
		if shouldEvict(eval.Status, state.LastAccessTime(), now, ttl) {
			delete(m.states, id)
			m.locker.Forget(id)
			evicted++
		}
	}
	return evicted
}
