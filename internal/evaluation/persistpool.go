package evaluation

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/lumenvoice/turnengine/internal/observability"
)

// PersistPool is a bounded worker pool for non-blocking follow-up writes:
// work queued after the hot-path transactional commit has already updated
// in-memory state, e.g. the fire-and-forget event-sink publish (spec §6)
// that follows the batch-persist step. Draining on StopEvaluation/Shutdown
// is mandatory so queued work is never lost. It satisfies
// internal/pipeline's AsyncPool interface structurally, so the Pipeline
// depends on it without this package importing pipeline.
type PersistPool struct {
	group  *errgroup.Group
	logger *observability.Logger
}

// NewPersistPool builds a pool bounded to size concurrent in-flight jobs.
func NewPersistPool(size int, logger *observability.Logger) *PersistPool {
	if size <= 0 {
		size = 4
	}
	if logger == nil {
		logger = observability.NewLogger(observability.LogConfig{})
	}
	group := &errgroup.Group{}
	group.SetLimit(size)
	return &PersistPool{group: group, logger: logger.WithFields("component", "persist_pool")}
}

// Submit enqueues fn for background execution. If the pool is saturated,
// Submit blocks until a slot frees up rather than dropping work.
func (p *PersistPool) Submit(ctx context.Context, op string, fn func(ctx context.Context) error) {
	p.group.Go(func() error {
		if err := fn(ctx); err != nil {
			p.logger.Warn(ctx, "async persistence job failed", "op", op, "error", err)
		}
		return nil
	})
}

// Drain blocks until every submitted job has returned. Errors are already
// logged by Submit and never surfaced here: Wait always returns nil because
// the jobs themselves never propagate an error to the errgroup.
func (p *PersistPool) Drain() {
	_ = p.group.Wait()
}
