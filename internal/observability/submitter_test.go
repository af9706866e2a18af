package observability

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"crptapi/internal/crpt"
	"crptapi/internal/models"
	"crptapi/internal/ratelimit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

func newTestClient(t *testing.T, status int) *crpt.Client {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	}))
	t.Cleanup(server.Close)

	gate, err := ratelimit.NewGate(5, time.Hour)
	require.NoError(t, err)
	t.Cleanup(gate.Close)

	client, err := crpt.NewClient(gate, crpt.WithEndpoint(server.URL))
	require.NoError(t, err)
	return client
}

func TestInstrumentedSubmitter_Success(t *testing.T) {
	reader, recorder := useTestProviders(t)

	submitter, err := NewInstrumentedSubmitter(newTestClient(t, http.StatusOK))
	require.NoError(t, err)

	doc := &models.Document{DocID: "doc-1", DocType: "LP_INTRODUCE_GOODS", Products: []models.Product{{UITCode: "a"}}}
	require.NoError(t, submitter.CreateDocument(context.Background(), doc, "sig"))

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	span := spans[0]
	assert.Equal(t, "crpt.CreateDocument", span.Name())
	assert.Equal(t, codes.Ok, span.Status().Code)
	assert.Contains(t, span.Attributes(), attribute.String("document.id", "doc-1"))
	assert.Contains(t, span.Attributes(), attribute.Int("document.products", 1))
	assert.Contains(t, span.Attributes(), attribute.String("crpt.outcome", "success"))

	m, ok := collectMetric(t, reader, "crpt.submit.requests")
	require.True(t, ok)
	assert.Equal(t, int64(1), sumByAttr(t, m, "outcome", "success"))
}

func TestInstrumentedSubmitter_StatusFailure(t *testing.T) {
	reader, recorder := useTestProviders(t)

	submitter, err := NewInstrumentedSubmitter(newTestClient(t, http.StatusServiceUnavailable))
	require.NoError(t, err)

	err = submitter.Submit(context.Background(), map[string]string{"doc_id": "x"}, "sig")
	code, ok := crpt.StatusCode(err)
	require.True(t, ok)
	assert.Equal(t, 503, code)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "crpt.Submit", spans[0].Name())
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Contains(t, spans[0].Attributes(), attribute.Int("http.response.status_code", 503))

	m, ok := collectMetric(t, reader, "crpt.submit.requests")
	require.True(t, ok)
	assert.Equal(t, int64(1), sumByAttr(t, m, "outcome", "status"))
	assert.Equal(t, int64(0), sumByAttr(t, m, "outcome", "success"))

	_, ok = collectMetric(t, reader, "crpt.submit.duration")
	assert.True(t, ok)
}

func TestOutcomeOf(t *testing.T) {
	assert.Equal(t, models.OutcomeSuccess, outcomeOf(nil))
	assert.Equal(t, models.OutcomeCancelled, outcomeOf(&crpt.SubmitError{Kind: crpt.KindCancelled}))
	assert.Equal(t, models.OutcomeStatus, outcomeOf(&crpt.SubmitError{Kind: crpt.KindStatus}))
	assert.Equal(t, models.OutcomeTransport, outcomeOf(&crpt.SubmitError{Kind: crpt.KindTransport}))
	assert.Equal(t, models.OutcomeSerialization, outcomeOf(&crpt.SubmitError{Kind: crpt.KindSerialization}))
	assert.Equal(t, models.OutcomeInvalid, outcomeOf(crpt.ErrEmptySignature))
	assert.Equal(t, models.OutcomeInvalid, outcomeOf(errors.New("other")))
}
