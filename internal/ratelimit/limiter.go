// Package ratelimit provides admission control for outbound requests. The main
// implementation is a fixed-window permit gate whose capacity is fully restored
// at every period boundary; a token bucket variant is provided for callers that
// need smoother pacing.
package ratelimit

import "context"

// Limiter defines the admission contract. Implementations must be safe for
// concurrent use.
type Limiter interface {
	// Acquire blocks until a permit is available and consumes it. It returns
	// ctx.Err() if the context ends first, in which case no permit is consumed.
	Acquire(ctx context.Context) error

	// Release returns a permit obtained from Acquire.
	Release()

	// Limit reports the number of permits per window.
	Limit() int

	// Available reports the number of permits that can be acquired right now.
	Available() int

	// Close stops background goroutines and releases resources.
	Close()
}
