package evaluation

import (
	"context"
	"time"

	"github.com/lumenvoice/turnengine/internal/observability"
	"github.com/lumenvoice/turnengine/pkg/models"
)

// DefaultSweepInterval and DefaultSessionTTL are the documented eviction
// defaults, overridable via SESSION_TTL_SECONDS/SESSION_SWEEP_INTERVAL_SECONDS.
const (
	DefaultSweepInterval = 5 * time.Minute
	DefaultSessionTTL    = 24 * time.Hour
)

// sweeper periodically evicts SessionStates that have gone idle past TTL
// and are not running, same ticker-driven shape as a background reset
// checker: compute a candidate set under a read pass, then evict.
type sweeper struct {
	manager  *Manager
	interval time.Duration
	ttl      time.Duration
	logger   *observability.Logger

	stop chan struct{}
	done chan struct{}
}

func newSweeper(manager *Manager, interval, ttl time.Duration, logger *observability.Logger) *sweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	if logger == nil {
		logger = observability.NewLogger(observability.LogConfig{})
	}
	return &sweeper{
		manager:  manager,
		interval: interval,
		ttl:      ttl,
		logger:   logger.WithFields("component", "sweeper"),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

func (s *sweeper) start() {
	go s.run()
}

func (s *sweeper) run() {
	defer close(s.done)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *sweeper) sweep() {
	now := time.Now()
	evicted := s.manager.evictIdle(now, s.ttl)
	if evicted > 0 {
		s.logger.Info(context.Background(), "evicted idle evaluation sessions", "count", evicted, "ttl", s.ttl)
	}
}

func (s *sweeper) Stop() {
	close(s.stop)
	<-s.done
}

// shouldEvict reports whether a session is a sweep candidate: idle past
// ttl and not in the running state.
func shouldEvict(status models.EvaluationStatus, lastAccess time.Time, now time.Time, ttl time.Duration) bool {
	if status == models.EvaluationRunning {
		return false
	}
	return now.Sub(lastAccess) > ttl
}
