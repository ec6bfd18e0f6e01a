package scoring

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/mikey/inbox-digest/internal/core"
)

// RateLimited wraps a scorer with a token bucket so a large batch of
// ambiguous items cannot flood the provider
type RateLimited struct {
	next    core.Scorer
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewRateLimited wraps next; perSecond <= 0 disables limiting
func NewRateLimited(next core.Scorer, perSecond float64, burst int, logger *zap.Logger) *RateLimited {
	if logger == nil {
		logger = zap.NewNop()
	}
	if burst < 1 {
		burst = 1
	}
	limit := rate.Limit(perSecond)
	if perSecond <= 0 {
		limit = rate.Inf
	}
	return &RateLimited{
		next:    next,
		limiter: rate.NewLimiter(limit, burst),
		logger:  logger,
	}
}

// ScoreAmbiguous waits for a token, then delegates
func (r *RateLimited) ScoreAmbiguous(ctx context.Context, item core.Group) (*core.Verdict, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		r.logger.Debug("Scorer rate limit wait aborted", zap.String("group_key", item.GroupKey), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", core.ErrScorerUnavailable, err)
	}
	return r.next.ScoreAmbiguous(ctx, item)
}
