// Package storage defines the persistence port for evaluations and their
// turn history, plus in-memory and CockroachDB-compatible Postgres
// implementations.
package storage

import (
	"context"
	"errors"

	"github.com/lumenvoice/turnengine/pkg/models"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
)

// BatchWrite is one turn's worth of durable state: the cleaned turn, any
// function calls extracted from it, and the customer snapshot those calls
// produced. Store.CommitTurn writes all three in a single transaction so a
// partial write can never leave an evaluation's persisted state
// inconsistent with its in-memory state.
type BatchWrite struct {
	EvaluationID    string
	CleanedTurn     *models.CleanedTurn
	CalledFunctions []*models.CalledFunction
	Customer        *models.MirroredCustomer
}

// EvaluationStore persists Evaluation records and their replayable history.
type EvaluationStore interface {
	CreateEvaluation(ctx context.Context, eval *models.Evaluation) error
	GetEvaluation(ctx context.Context, id string) (*models.Evaluation, error)
	UpdateEvaluationStatus(ctx context.Context, id string, status models.EvaluationStatus) error
	ListActiveEvaluations(ctx context.Context) ([]*models.Evaluation, error)

	// CommitTurn durably writes one turn's outcome. Implementations must
	// apply the whole BatchWrite atomically: callers treat persistence
	// failure as "nothing was written".
	CommitTurn(ctx context.Context, batch BatchWrite) error

	// LoadHistory replays the full persisted CleanedTurn/CalledFunction
	// history plus the latest MirroredCustomer snapshot for rehydrating
	// an evaluation's in-memory state after a restart.
	LoadHistory(ctx context.Context, evaluationID string) ([]*models.CleanedTurn, []*models.CalledFunction, *models.MirroredCustomer, error)
}

// Store groups the full persistence surface the evaluation engine depends
// on, plus a close hook for releasing pooled connections.
type Store struct {
	Evaluations EvaluationStore
	closer      func() error
}

// Close releases any underlying resources (no-op for in-memory stores).
func (s Store) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer()
}
