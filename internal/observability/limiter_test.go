package observability

import (
	"context"
	"testing"
	"time"

	"crptapi/internal/ratelimit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func totalInt64(t *testing.T, m metricdata.Metrics) int64 {
	t.Helper()
	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok)
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func TestLimiterMetrics_Gauges(t *testing.T) {
	reader, _ := useTestProviders(t)

	gate, err := ratelimit.NewGate(4, time.Hour)
	require.NoError(t, err)
	defer gate.Close()

	lm, err := NewLimiterMetrics()
	require.NoError(t, err)
	require.NoError(t, lm.Observe(gate))

	require.NoError(t, gate.Acquire(context.Background()))

	limit, ok := collectMetric(t, reader, "ratelimit.permits.limit")
	require.True(t, ok)
	assert.Equal(t, int64(4), gaugeValue(t, limit))

	available, ok := collectMetric(t, reader, "ratelimit.permits.available")
	require.True(t, ok)
	assert.Equal(t, int64(3), gaugeValue(t, available))

	require.NoError(t, lm.Close())
	_, ok = collectMetric(t, reader, "ratelimit.permits.available")
	assert.False(t, ok, "gauges must stop reporting after Close")
	assert.NoError(t, lm.Close())
}

func TestLimiterMetrics_ResetHook(t *testing.T) {
	reader, _ := useTestProviders(t)

	lm, err := NewLimiterMetrics()
	require.NoError(t, err)

	fired := make(chan int, 16)
	gate, err := ratelimit.NewGate(2, 20*time.Millisecond, ratelimit.WithResetHook(func(restored int) {
		lm.OnReset(restored)
		fired <- restored
	}))
	require.NoError(t, err)
	defer gate.Close()

	require.NoError(t, gate.Acquire(context.Background()))
	require.NoError(t, gate.Acquire(context.Background()))

	select {
	case restored := <-fired:
		assert.Equal(t, 2, restored)
	case <-time.After(2 * time.Second):
		t.Fatal("window was never reset")
	}
	gate.Close()

	resets, ok := collectMetric(t, reader, "ratelimit.window.resets")
	require.True(t, ok)
	assert.GreaterOrEqual(t, totalInt64(t, resets), int64(1))

	restored, ok := collectMetric(t, reader, "ratelimit.permits.restored")
	require.True(t, ok)
	assert.Equal(t, int64(2), totalInt64(t, restored))
}

func TestLimiterMetrics_ObserveReplaces(t *testing.T) {
	reader, _ := useTestProviders(t)

	first, err := ratelimit.NewTokenBucket(10, time.Second)
	require.NoError(t, err)
	second, err := ratelimit.NewTokenBucket(3, time.Second)
	require.NoError(t, err)

	lm, err := NewLimiterMetrics()
	require.NoError(t, err)
	require.NoError(t, lm.Observe(first))
	require.NoError(t, lm.Observe(second))
	defer lm.Close()

	limit, ok := collectMetric(t, reader, "ratelimit.permits.limit")
	require.True(t, ok)
	assert.Equal(t, int64(3), gaugeValue(t, limit))
}
