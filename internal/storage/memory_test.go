package storage

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/lumenvoice/turnengine/pkg/models"
)

func newTestEvaluation(t *testing.T) *models.Evaluation {
	t.Helper()
	cfg := models.EvaluationConfig{CleanerPromptTemplateRef: "cleaner-v1"}
	if err := cfg.Normalize(); err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	return &models.Evaluation{
		EvaluationID:   uuid.NewString(),
		ConversationID: "conversation-1",
		Config:         cfg,
		Status:         models.EvaluationRunning,
		CreatedAt:      time.Now(),
	}
}

func TestMemoryEvaluationStoreLifecycle(t *testing.T) {
	store := NewMemoryEvaluationStore()
	eval := newTestEvaluation(t)

	if err := store.CreateEvaluation(context.Background(), eval); err != nil {
		t.Fatalf("CreateEvaluation() error = %v", err)
	}
	if err := store.CreateEvaluation(context.Background(), eval); err != ErrAlreadyExists {
		t.Fatalf("CreateEvaluation() duplicate error = %v, want ErrAlreadyExists", err)
	}

	got, err := store.GetEvaluation(context.Background(), eval.EvaluationID)
	if err != nil {
		t.Fatalf("GetEvaluation() error = %v", err)
	}
	if got.ConversationID != eval.ConversationID {
		t.Fatalf("GetEvaluation() conversation_id = %q", got.ConversationID)
	}

	active, err := store.ListActiveEvaluations(context.Background())
	if err != nil {
		t.Fatalf("ListActiveEvaluations() error = %v", err)
	}
	if len(active) != 1 {
		t.Fatalf("ListActiveEvaluations() expected 1, got %d", len(active))
	}

	if err := store.UpdateEvaluationStatus(context.Background(), eval.EvaluationID, models.EvaluationStopped); err != nil {
		t.Fatalf("UpdateEvaluationStatus() error = %v", err)
	}
	active, err = store.ListActiveEvaluations(context.Background())
	if err != nil {
		t.Fatalf("ListActiveEvaluations() error = %v", err)
	}
	if len(active) != 0 {
		t.Fatalf("ListActiveEvaluations() expected 0 after stop, got %d", len(active))
	}
}

func TestMemoryEvaluationStoreCommitTurnAtomicity(t *testing.T) {
	store := NewMemoryEvaluationStore()
	eval := newTestEvaluation(t)
	if err := store.CreateEvaluation(context.Background(), eval); err != nil {
		t.Fatalf("CreateEvaluation() error = %v", err)
	}

	turn := &models.CleanedTurn{
		ID:              uuid.NewString(),
		TurnID:          uuid.NewString(),
		EvaluationID:    eval.EvaluationID,
		Speaker:         models.SpeakerUser,
		Sequence:        1,
		RawText:         "we have about fifdeen employees",
		CleanedText:     "we have about fifteen employees",
		ConfidenceScore: models.ConfidenceHigh,
		CleaningApplied: true,
		CleaningLevel:   models.CleaningLevelLight,
		CreatedAt:       time.Now(),
	}
	fn := &models.CalledFunction{
		ID:           uuid.NewString(),
		CleanedTurnID: turn.ID,
		EvaluationID: eval.EvaluationID,
		FunctionName: "update_profile_field",
		Parameters:   map[string]any{"field": "company_size", "value": "fifteen"},
		Executed:     true,
		CreatedAt:    time.Now(),
	}
	customer := &models.MirroredCustomer{CustomerID: "cust-1", CompanySize: "fifteen", UpdatedAt: time.Now()}

	err := store.CommitTurn(context.Background(), BatchWrite{
		EvaluationID:    eval.EvaluationID,
		CleanedTurn:     turn,
		CalledFunctions: []*models.CalledFunction{fn},
		Customer:        customer,
	})
	if err != nil {
		t.Fatalf("CommitTurn() error = %v", err)
	}

	turns, functions, gotCustomer, err := store.LoadHistory(context.Background(), eval.EvaluationID)
	if err != nil {
		t.Fatalf("LoadHistory() error = %v", err)
	}
	if len(turns) != 1 || turns[0].CleanedText != turn.CleanedText {
		t.Fatalf("LoadHistory() turns = %+v", turns)
	}
	if len(functions) != 1 || functions[0].FunctionName != fn.FunctionName {
		t.Fatalf("LoadHistory() functions = %+v", functions)
	}
	if gotCustomer == nil || gotCustomer.CompanySize != "fifteen" {
		t.Fatalf("LoadHistory() customer = %+v", gotCustomer)
	}
}

func TestMemoryEvaluationStoreCommitTurnRequiresKnownEvaluation(t *testing.T) {
	store := NewMemoryEvaluationStore()
	turn := &models.CleanedTurn{ID: uuid.NewString(), EvaluationID: "unknown"}
	err := store.CommitTurn(context.Background(), BatchWrite{EvaluationID: "unknown", CleanedTurn: turn})
	if err != ErrNotFound {
		t.Fatalf("CommitTurn() error = %v, want ErrNotFound", err)
	}
}
