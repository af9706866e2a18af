package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Gate is a fixed-window admission gate. At most limit permits can be held at
// once, and every period the number of available permits is set back to limit
// regardless of how many are still held. Windows are measured from the moment
// the gate is created, not from the first Acquire.
//
// Because the reset is absolute, up to 2*limit calls may start in a short span
// straddling a window boundary. Use TokenBucket when that is not acceptable.
type Gate struct {
	limit   int
	period  time.Duration
	logger  *slog.Logger
	onReset func(restored int)

	mu        sync.Mutex
	available int
	closed    bool

	// wake is closed and replaced whenever permits become available.
	wake chan struct{}
	done chan struct{}
}

var _ Limiter = (*Gate)(nil)

// GateOption configures optional Gate behavior.
type GateOption func(*Gate)

// WithLogger sets the logger used to report reset failures.
func WithLogger(logger *slog.Logger) GateOption {
	return func(g *Gate) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// WithResetHook registers a function called after every window reset with the
// number of permits that were restored.
func WithResetHook(fn func(restored int)) GateOption {
	return func(g *Gate) { g.onReset = fn }
}

// NewGate creates a gate admitting limit acquisitions per period and starts the
// background reset goroutine. Call Close to stop it.
func NewGate(limit int, period time.Duration, opts ...GateOption) (*Gate, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("request limit must be positive, got %d", limit)
	}
	if period <= 0 {
		return nil, fmt.Errorf("period must be positive, got %s", period)
	}

	g := &Gate{
		limit:     limit,
		period:    period,
		logger:    slog.Default(),
		available: limit,
		wake:      make(chan struct{}),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(g)
	}

	go g.resetLoop()
	return g, nil
}

// NewGateForUnit creates a gate admitting limit acquisitions per one unit of time.
func NewGateForUnit(unit TimeUnit, limit int, opts ...GateOption) (*Gate, error) {
	period := unit.Duration()
	if period == 0 {
		return nil, fmt.Errorf("unsupported time unit: %s", unit)
	}
	return NewGate(limit, period, opts...)
}

// Acquire blocks until a permit is available and consumes it. Waiters are not
// served in FIFO order.
func (g *Gate) Acquire(ctx context.Context) error {
	for {
		g.mu.Lock()
		if g.available > 0 {
			g.available--
			g.mu.Unlock()
			return nil
		}
		wake := g.wake
		g.mu.Unlock()

		select {
		case <-wake:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Release returns one permit. Releasing more permits than were acquired never
// raises the available count above the limit.
func (g *Gate) Release() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.available < g.limit {
		g.available++
		g.broadcastLocked()
	}
}

// Available returns the number of permits that can be acquired without blocking.
func (g *Gate) Available() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.available
}

// Limit returns the number of permits per window.
func (g *Gate) Limit() int {
	return g.limit
}

// Period returns the window length.
func (g *Gate) Period() time.Duration {
	return g.period
}

// Close stops the background reset goroutine. Permits still available can be
// acquired after Close but are no longer replenished by resets.
func (g *Gate) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.closed {
		g.closed = true
		close(g.done)
	}
}

// resetLoop restores full capacity on every tick until the gate is closed.
func (g *Gate) resetLoop() {
	ticker := time.NewTicker(g.period)
	defer ticker.Stop()

	for {
		select {
		case <-g.done:
			return
		case <-ticker.C:
			if err := g.safeReset(); err != nil {
				g.logger.Error("Rate limit window reset failed", "error", err, "limit", g.limit, "period", g.period)
			}
		}
	}
}

// safeReset runs one reset cycle, converting a panic into an error so that a
// single failed cycle never stops the loop.
func (g *Gate) safeReset() (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("reset panicked: %v", r)
		}
	}()

	restored := g.reset()
	if g.onReset != nil {
		g.onReset(restored)
	}
	return nil
}

// reset sets the available permits to the limit and returns how many were restored.
func (g *Gate) reset() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.available < 0 || g.available > g.limit {
		g.logger.Warn("Permit counter out of range before reset", "available", g.available, "limit", g.limit)
	}
	restored := g.limit - g.available
	g.available = g.limit
	if restored > 0 {
		g.broadcastLocked()
	}
	return restored
}

// broadcastLocked wakes every goroutine blocked in Acquire. g.mu must be held.
func (g *Gate) broadcastLocked() {
	close(g.wake)
	g.wake = make(chan struct{})
}

// IsCanceled reports whether err is the result of an Acquire whose context ended.
func IsCanceled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
