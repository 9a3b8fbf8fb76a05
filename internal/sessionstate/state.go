// Package sessionstate holds the mutable in-memory view one evaluation
// keeps across turns: cleaned-turn history, function-call history, cached
// prompt templates, and the MirroredCustomer.
package sessionstate

import (
	"sync"
	"time"

	"github.com/lumenvoice/turnengine/internal/prompt"
	"github.com/lumenvoice/turnengine/pkg/models"
)

// MaxHistoryEntries bounds each history slice's length. Exceeding it drops
// the oldest entries; persisted history is unaffected.
const MaxHistoryEntries = 1000

// State is private to one evaluation. Callers must never share a pointer
// to it across evaluations; the per-session lock in package evaluation is
// what makes concurrent mutation of it safe.
type State struct {
	mu sync.RWMutex

	evaluationID string

	cleanedHistory  []*models.CleanedTurn
	functionHistory []*models.CalledFunction
	customer        *models.MirroredCustomer

	cleanerTemplate  *prompt.Template
	functionTemplate *prompt.Template

	lastAccessTime time.Time
	maxHistory     int
}

// New builds an empty State for evaluationID. customer is adopted, not
// copied: State becomes its sole owner.
func New(evaluationID string, customer *models.MirroredCustomer) *State {
	return &State{
		evaluationID:   evaluationID,
		customer:       customer,
		lastAccessTime: time.Now(),
		maxHistory:     MaxHistoryEntries,
	}
}

// Touch records a fresh access, used by the eviction sweeper's TTL check.
func (s *State) Touch() {
	s.mu.Lock()
	s.lastAccessTime = time.Now()
	s.mu.Unlock()
}

// LastAccessTime reports when this state was last touched.
func (s *State) LastAccessTime() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastAccessTime
}

// AppendCleanedTurn appends entry to cleaned_history, truncating the oldest
// entries if the bound is exceeded.
func (s *State) AppendCleanedTurn(entry *models.CleanedTurn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cleanedHistory = append(s.cleanedHistory, entry)
	if excess := len(s.cleanedHistory) - s.maxHistory; excess > 0 {
		s.cleanedHistory = s.cleanedHistory[excess:]
	}
}

// CleanedWindow returns the last n entries of cleaned_history, oldest
// first. The window is always built from cleaned text, never raw.
func (s *State) CleanedWindow(n int) []*models.CleanedTurn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return window(s.cleanedHistory, n)
}

// AppendFunctionCall appends entry to function_call_history, truncating
// the oldest entries if the bound is exceeded.
func (s *State) AppendFunctionCall(entry *models.CalledFunction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.functionHistory = append(s.functionHistory, entry)
	if excess := len(s.functionHistory) - s.maxHistory; excess > 0 {
		s.functionHistory = s.functionHistory[excess:]
	}
}

// FunctionWindow returns the last n entries of function_call_history,
// oldest first.
func (s *State) FunctionWindow(n int) []*models.CalledFunction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return window(s.functionHistory, n)
}

// Customer returns the live MirroredCustomer. Callers within the
// per-session lock may mutate it directly; callers outside it (e.g.
// get_state observers) must Clone before reading.
func (s *State) Customer() *models.MirroredCustomer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.customer
}

// SetCustomer replaces the live MirroredCustomer, used when hydration
// reconstructs it from a persisted snapshot.
func (s *State) SetCustomer(customer *models.MirroredCustomer) {
	s.mu.Lock()
	s.customer = customer
	s.mu.Unlock()
}

// Templates returns the cached cleaner and function-caller templates, or
// nil if not yet loaded for this evaluation.
func (s *State) Templates() (cleaner, functionCaller *prompt.Template) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cleanerTemplate, s.functionTemplate
}

// SetTemplates caches the resolved templates for this evaluation, loaded
// once at hydration and re-loaded only on an explicit template change.
func (s *State) SetTemplates(cleaner, functionCaller *prompt.Template) {
	s.mu.Lock()
	s.cleanerTemplate = cleaner
	s.functionTemplate = functionCaller
	s.mu.Unlock()
}

// HistoryLen reports the current cleaned-history and function-history
// lengths, used by get_state snapshots.
func (s *State) HistoryLen() (cleaned, functions int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.cleanedHistory), len(s.functionHistory)
}

// FindCleanedTurn returns the CleanedTurn already recorded for turnID, if
// any. The pipeline uses this to make process_turn idempotent:
// re-processing a turn must return the existing result unchanged, never
// create a duplicate.
func (s *State) FindCleanedTurn(turnID string) *models.CleanedTurn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, turn := range s.cleanedHistory {
		if turn.TurnID == turnID {
			return turn
		}
	}
	return nil
}

// FunctionCallsFor returns the CalledFunctions already recorded against
// cleanedTurnID, oldest first.
func (s *State) FunctionCallsFor(cleanedTurnID string) []*models.CalledFunction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.CalledFunction
	for _, fn := range s.functionHistory {
		if fn.CleanedTurnID == cleanedTurnID {
			out = append(out, fn)
		}
	}
	return out
}

func window[T any](history []T, n int) []T {
	if n <= 0 || len(history) == 0 {
		return nil
	}
	start := 0
	if len(history) > n {
		start = len(history) - n
	}
	out := make([]T, len(history)-start)
	copy(out, history[start:])
	return out
}
