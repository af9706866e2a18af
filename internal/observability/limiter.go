package observability

import (
	"context"
	"sync"

	"crptapi/internal/ratelimit"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// LimiterMetrics exports the admission state of a ratelimit.Limiter: the
// configured limit and current availability as gauges, and window resets as a
// counter. Create it before the gate so OnReset can be passed as the gate's
// reset hook, then call Observe with the gate.
type LimiterMetrics struct {
	meter    metric.Meter
	resets   metric.Int64Counter
	restored metric.Int64Counter

	mu           sync.Mutex
	registration metric.Registration
}

// NewLimiterMetrics creates the reset counters.
func NewLimiterMetrics() (*LimiterMetrics, error) {
	meter := otel.Meter(instrumentationName + "/ratelimit")

	resets, err := meter.Int64Counter(
		"ratelimit.window.resets",
		metric.WithDescription("Number of fixed-window resets"),
		metric.WithUnit("{reset}"),
	)
	if err != nil {
		return nil, err
	}

	restored, err := meter.Int64Counter(
		"ratelimit.permits.restored",
		metric.WithDescription("Permits restored by window resets"),
		metric.WithUnit("{permit}"),
	)
	if err != nil {
		return nil, err
	}

	return &LimiterMetrics{
		meter:    meter,
		resets:   resets,
		restored: restored,
	}, nil
}

// OnReset records one window reset. It matches ratelimit.WithResetHook.
func (m *LimiterMetrics) OnReset(restored int) {
	ctx := context.Background()
	m.resets.Add(ctx, 1)
	if restored > 0 {
		m.restored.Add(ctx, int64(restored))
	}
}

// Observe starts reporting limiter's limit and availability. Calling it again
// replaces the previously observed limiter.
func (m *LimiterMetrics) Observe(limiter ratelimit.Limiter) error {
	limit, err := m.meter.Int64ObservableGauge(
		"ratelimit.permits.limit",
		metric.WithDescription("Permits admitted per window"),
		metric.WithUnit("{permit}"),
	)
	if err != nil {
		return err
	}

	available, err := m.meter.Int64ObservableGauge(
		"ratelimit.permits.available",
		metric.WithDescription("Permits that can be acquired without waiting"),
		metric.WithUnit("{permit}"),
	)
	if err != nil {
		return err
	}

	reg, err := m.meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		o.ObserveInt64(limit, int64(limiter.Limit()))
		o.ObserveInt64(available, int64(limiter.Available()))
		return nil
	}, limit, available)
	if err != nil {
		return err
	}

	m.mu.Lock()
	prev := m.registration
	m.registration = reg
	m.mu.Unlock()

	if prev != nil {
		return prev.Unregister()
	}
	return nil
}

// Close stops reporting the observed limiter.
func (m *LimiterMetrics) Close() error {
	m.mu.Lock()
	reg := m.registration
	m.registration = nil
	m.mu.Unlock()

	if reg == nil {
		return nil
	}
	return reg.Unregister()
}
