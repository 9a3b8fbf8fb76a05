package llmgateway

import (
	"context"
	"errors"
	"time"

	"github.com/lumenvoice/turnengine/internal/retry"
)

// BackoffRetrier holds shared retry configuration for gateway backends. The
// gateway itself never retries silently; this type is the orchestration-side
// retry policy for transient LLM errors, built on internal/retry so every
// retry loop in this codebase shares one backoff implementation.
type BackoffRetrier struct {
	maxAttempts int
	baseDelay   time.Duration
}

// NewBackoffRetrier creates a retrier with sane defaults: a default 3
// attempts retry budget.
func NewBackoffRetrier(maxAttempts int, baseDelay time.Duration) BackoffRetrier {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	if baseDelay <= 0 {
		baseDelay = time.Second
	}
	return BackoffRetrier{maxAttempts: maxAttempts, baseDelay: baseDelay}
}

// Do runs op, retrying with backoff while isRetryable(err) is true, up to
// the configured attempt budget. isRetryable classifies errors op itself
// cannot mark permanent, so its verdict is applied by wrapping op's result
// before handing it to retry.Do.
func (b BackoffRetrier) Do(ctx context.Context, isRetryable func(error) bool, op func() error) error {
	cfg := retry.Config{
		MaxAttempts:  b.maxAttempts,
		InitialDelay: b.baseDelay,
		MaxDelay:     b.baseDelay * time.Duration(b.maxAttempts),
		Factor:       1.0,
		Jitter:       false,
	}

	result := retry.Do(ctx, cfg, func() error {
		err := op()
		if err != nil && isRetryable != nil && !isRetryable(err) {
			return retry.Permanent(err)
		}
		return err
	})

	var permanent *retry.PermanentError
	if errors.As(result.Err, &permanent) {
		return permanent.Unwrap()
	}
	return result.Err
}
