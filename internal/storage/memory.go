package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/lumenvoice/turnengine/pkg/models"
)

// MemoryEvaluationStore provides an in-memory EvaluationStore, used in tests
// and for the single-process deployment profile.
type MemoryEvaluationStore struct {
	mu sync.RWMutex

	evaluations map[string]*models.Evaluation
	turns       map[string][]*models.CleanedTurn
	functions   map[string][]*models.CalledFunction
	customers   map[string]*models.MirroredCustomer
}

// NewMemoryEvaluationStore creates an in-memory evaluation store.
func NewMemoryEvaluationStore() *MemoryEvaluationStore {
	return &MemoryEvaluationStore{
		evaluations: make(map[string]*models.Evaluation),
		turns:       make(map[string][]*models.CleanedTurn),
		functions:   make(map[string][]*models.CalledFunction),
		customers:   make(map[string]*models.MirroredCustomer),
	}
}

func (s *MemoryEvaluationStore) CreateEvaluation(ctx context.Context, eval *models.Evaluation) error {
	if eval == nil || eval.EvaluationID == "" {
		return fmt.Errorf("evaluation is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.evaluations[eval.EvaluationID]; exists {
		return ErrAlreadyExists
	}
	cp := *eval
	s.evaluations[eval.EvaluationID] = &cp
	return nil
}

func (s *MemoryEvaluationStore) GetEvaluation(ctx context.Context, id string) (*models.Evaluation, error) {
	if id == "" {
		return nil, ErrNotFound
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	eval, ok := s.evaluations[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *eval
	return &cp, nil
}

func (s *MemoryEvaluationStore) UpdateEvaluationStatus(ctx context.Context, id string, status models.EvaluationStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	eval, ok := s.evaluations[id]
	if !ok {
		return ErrNotFound
	}
	eval.Status = status
	return nil
}

func (s *MemoryEvaluationStore) ListActiveEvaluations(ctx context.Context) ([]*models.Evaluation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Evaluation, 0, len(s.evaluations))
	for _, eval := range s.evaluations {
		if eval.Status == models.EvaluationRunning {
			cp := *eval
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// CommitTurn applies the batch under a single lock so a reader never
// observes the cleaned turn without its accompanying function calls and
// customer snapshot.
func (s *MemoryEvaluationStore) CommitTurn(ctx context.Context, batch BatchWrite) error {
	if batch.EvaluationID == "" || batch.CleanedTurn == nil {
		return fmt.Errorf("evaluation id and cleaned turn are required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.evaluations[batch.EvaluationID]; !ok {
		return ErrNotFound
	}
	s.turns[batch.EvaluationID] = append(s.turns[batch.EvaluationID], batch.CleanedTurn)
	s.functions[batch.EvaluationID] = append(s.functions[batch.EvaluationID], batch.CalledFunctions...)
	if batch.Customer != nil {
		s.customers[batch.EvaluationID] = batch.Customer.Clone()
	}
	return nil
}

func (s *MemoryEvaluationStore) LoadHistory(ctx context.Context, evaluationID string) ([]*models.CleanedTurn, []*models.CalledFunction, *models.MirroredCustomer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.evaluations[evaluationID]; !ok {
		return nil, nil, nil, ErrNotFound
	}
	turns := append([]*models.CleanedTurn(nil), s.turns[evaluationID]...)
	functions := append([]*models.CalledFunction(nil), s.functions[evaluationID]...)
	var customer *models.MirroredCustomer
	if c, ok := s.customers[evaluationID]; ok {
		customer = c.Clone()
	}
	return turns, functions, customer, nil
}

// NewMemoryStore constructs a Store backed by memory.
func NewMemoryStore() Store {
	return Store{Evaluations: NewMemoryEvaluationStore()}
}
