package remote

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/Bibleyou/RemoveBG-Pro/internal/model"
)

// rateLimited guards a Processor with a token bucket so a burst of clicks
// can't drain the account's credits. Every call costs money upstream.
type rateLimited struct {
	Processor
	limiter *rate.Limiter
}

// WithRateLimit wraps p so at most perMinute calls go out per minute.
// perMinute <= 0 returns p unchanged.
func WithRateLimit(p Processor, perMinute int) Processor {
	if perMinute <= 0 {
		return p
	}
	// rate.Every converts the interval between events into a rate.Limit.
	every := rate.Every(time.Minute / time.Duration(perMinute))
	return &rateLimited{
		Processor: p,
		limiter:   rate.NewLimiter(every, 1),
	}
}

// Process waits for a token, then delegates. The wait honors ctx, so a job
// timeout surfaces as a network error like any other expiry.
func (r *rateLimited) Process(ctx context.Context, original model.DataURI, opts Options) (model.DataURI, error) {
	// Unconfigured must fail fast, without queueing behind the limiter.
	if err := r.Ready(); err != nil {
		return "", err
	}
	if err := r.limiter.Wait(ctx); err != nil {
		return "", NetworkFailure(fmt.Errorf("rate limit wait: %w", err))
	}
	return r.Processor.Process(ctx, original, opts)
}
