package storage

import (
	"context"
	"sync"

	"github.com/lumenvoice/turnengine/pkg/models"
)

// ConversationSource is the read-only port onto upstream ingest: the raw
// Turn a process_turn call names, and the canonical customer record to
// bootstrap a MirroredCustomer when no persisted snapshot exists yet.
type ConversationSource interface {
	GetTurn(ctx context.Context, turnID string) (*models.Turn, error)
	CanonicalCustomer(ctx context.Context, conversationID string) (*models.MirroredCustomer, error)
}

// MemoryConversationSource is an in-memory ConversationSource, used in
// tests and the single-process deployment profile alongside
// MemoryEvaluationStore.
type MemoryConversationSource struct {
	mu        sync.RWMutex
	turns     map[string]*models.Turn
	customers map[string]*models.MirroredCustomer
}

// NewMemoryConversationSource builds an empty MemoryConversationSource.
func NewMemoryConversationSource() *MemoryConversationSource {
	return &MemoryConversationSource{
		turns:     make(map[string]*models.Turn),
		customers: make(map[string]*models.MirroredCustomer),
	}
}

// PutTurn registers a Turn so a later GetTurn resolves it. Test and
// ingest-adapter helper, not part of the ConversationSource contract.
func (m *MemoryConversationSource) PutTurn(turn *models.Turn) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.turns[turn.TurnID] = turn
}

// PutCanonicalCustomer registers the canonical customer record for a
// conversation, used when MirroredCustomer has no persisted snapshot yet.
func (m *MemoryConversationSource) PutCanonicalCustomer(conversationID string, customer *models.MirroredCustomer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.customers[conversationID] = customer
}

func (m *MemoryConversationSource) GetTurn(ctx context.Context, turnID string) (*models.Turn, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	turn, ok := m.turns[turnID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *turn
	return &cp, nil
}

func (m *MemoryConversationSource) CanonicalCustomer(ctx context.Context, conversationID string) (*models.MirroredCustomer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	customer, ok := m.customers[conversationID]
	if !ok {
		return &models.MirroredCustomer{}, nil
	}
	return customer.Clone(), nil
}
