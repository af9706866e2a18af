package ratelimit

import (
	"context"
	"fmt"
	"math"
	"time"

	"golang.org/x/time/rate"
)

// TokenBucket is a Limiter backed by golang.org/x/time/rate. Tokens accrue
// continuously at limit per period, up to a burst of limit, so it never admits
// more than limit calls in any span of one period plus one token interval.
// Release is a no-op: tokens are consumed, not borrowed.
type TokenBucket struct {
	limiter *rate.Limiter
	limit   int
	period  time.Duration
}

var _ Limiter = (*TokenBucket)(nil)

// NewTokenBucket creates a token bucket admitting limit calls per period.
func NewTokenBucket(limit int, period time.Duration) (*TokenBucket, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("request limit must be positive, got %d", limit)
	}
	if period <= 0 {
		return nil, fmt.Errorf("period must be positive, got %s", period)
	}
	return &TokenBucket{
		limiter: rate.NewLimiter(rate.Every(period/time.Duration(limit)), limit),
		limit:   limit,
		period:  period,
	}, nil
}

// Acquire waits for a token. The wait is abandoned without consuming a token
// when ctx ends.
func (b *TokenBucket) Acquire(ctx context.Context) error {
	return b.limiter.Wait(ctx)
}

// Release does nothing.
func (b *TokenBucket) Release() {}

// Available returns the number of whole tokens currently in the bucket.
func (b *TokenBucket) Available() int {
	tokens := b.limiter.TokensAt(time.Now())
	return int(math.Max(0, math.Floor(tokens)))
}

// Limit returns the configured number of calls per period.
func (b *TokenBucket) Limit() int {
	return b.limit
}

// Close does nothing; the bucket has no background goroutine.
func (b *TokenBucket) Close() {}
