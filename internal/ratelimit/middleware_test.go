package ratelimit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func TestHeadersMiddleware_ReportsCapacity(t *testing.T) {
	gate, err := NewGate(5, time.Hour)
	require.NoError(t, err)
	defer gate.Close()

	require.NoError(t, gate.Acquire(context.Background()))
	require.NoError(t, gate.Acquire(context.Background()))

	handler := HeadersMiddleware(gate)(http.HandlerFunc(okHandler))

	req := httptest.NewRequest("GET", "/api/v1/health", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "5", rr.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "3", rr.Header().Get("X-RateLimit-Remaining"))
}

func TestHeadersMiddleware_DoesNotConsumePermits(t *testing.T) {
	gate, err := NewGate(1, time.Hour)
	require.NoError(t, err)
	defer gate.Close()

	handler := HeadersMiddleware(gate)(http.HandlerFunc(okHandler))
	for i := 0; i < 3; i++ {
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest("GET", "/", nil))
		assert.Equal(t, "1", rr.Header().Get("X-RateLimit-Remaining"))
	}
	assert.Equal(t, 1, gate.Available())
}
