package llmgateway

import (
	"context"
	"time"

	"github.com/lumenvoice/turnengine/internal/ratelimit"
)

// RateLimit configures the outbound request budget shared by every call a
// gateway backend makes, so the cleaner and function-caller stages never
// exceed a provider's requests-per-second quota.
type RateLimit struct {
	RequestsPerSecond float64
	BurstSize         int
}

// newBucket builds the token bucket backing a gateway's RateLimit, applying
// ratelimit.Config's own defaults when unset.
func newBucket(rl RateLimit) *ratelimit.Bucket {
	return ratelimit.NewBucket(ratelimit.Config{
		RequestsPerSecond: rl.RequestsPerSecond,
		BurstSize:         rl.BurstSize,
		Enabled:           true,
	})
}

// waitForToken blocks until the bucket has a token to spend or ctx is done,
// polling at the bucket's own reported wait time rather than a fixed tick.
func waitForToken(ctx context.Context, bucket *ratelimit.Bucket) error {
	for {
		if bucket.Allow() {
			return nil
		}
		wait := bucket.WaitTime()
		if wait <= 0 {
			wait = time.Millisecond
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}
