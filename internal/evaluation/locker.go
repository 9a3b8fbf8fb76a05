// Package evaluation implements the session manager: it owns the
// in-memory SessionState per evaluation, hydrates it from persisted
// history on first access, serializes process_turn calls per evaluation,
// and runs the background TTL sweeper and async persistence pool.
package evaluation

import (
	"context"
	"sync"
	"time"

	"github.com/lumenvoice/turnengine/internal/evalerr"
)

// DefaultLockTimeout bounds how long ProcessTurn waits to acquire a
// session's lock before giving up. Locking is per-session serialization.
const DefaultLockTimeout = 10 * time.Second

const lockPollInterval = 5 * time.Millisecond

type sessionMutex struct {
	mu     sync.Mutex
	locked bool
}

// locker provides per-evaluation write locks. Two concurrent process_turn
// calls against the same evaluation_id serialize through it; calls against
// different evaluation_ids never contend.
type locker struct {
	locks   sync.Map // map[string]*sessionMutex
	timeout time.Duration
}

func newLocker(timeout time.Duration) *locker {
	if timeout <= 0 {
		timeout = DefaultLockTimeout
	}
	return &locker{timeout: timeout}
}

func (l *locker) getOrCreate(evaluationID string) *sessionMutex {
	if m, ok := l.locks.Load(evaluationID); ok {
		return m.(*sessionMutex)
	}
	actual, _ := l.locks.LoadOrStore(evaluationID, &sessionMutex{})
	return actual.(*sessionMutex)
}

// Lock blocks until the evaluation's lock is free, the context is
// cancelled, or the locker's timeout elapses, whichever comes first.
func (l *locker) Lock(ctx context.Context, evaluationID string) error {
	m := l.getOrCreate(evaluationID)
	deadline := time.Now().Add(l.timeout)

	for {
		m.mu.Lock()
		if !m.locked {
			m.locked = true
			m.mu.Unlock()
			return nil
		}
		m.mu.Unlock()

		if time.Now().After(deadline) {
			return evalerr.Classification("acquire_lock", evalerr.ErrLockTimeout)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(lockPollInterval):
		}
	}
}

// Unlock releases the evaluation's lock. Safe to call even if never locked.
func (l *locker) Unlock(evaluationID string) {
	if m, ok := l.locks.Load(evaluationID); ok {
		mu := m.(*sessionMutex)
		mu.mu.Lock()
		mu.locked = false
		mu.mu.Unlock()
	}
}

// Forget drops the evaluation's lock entry entirely, used by the sweeper
// when evicting a SessionState so the locks map does not grow unbounded.
func (l *locker) Forget(evaluationID string) {
	l.locks.Delete(evaluationID)
}
