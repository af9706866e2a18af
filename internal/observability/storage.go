package observability

import (
	"context"
	"time"

	"crptapi/internal/models"
	"crptapi/internal/storage"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// InstrumentedStorage wraps a storage.Storage implementation with
// OpenTelemetry tracing and metrics instrumentation.
type InstrumentedStorage struct {
	inner    storage.Storage
	tracer   trace.Tracer
	duration metric.Float64Histogram
	errors   metric.Int64Counter
}

var _ storage.Storage = (*InstrumentedStorage)(nil)

// NewInstrumentedStorage creates a new storage wrapper that records trace spans,
// operation latency histograms, and error counters for every journal call.
func NewInstrumentedStorage(inner storage.Storage) (*InstrumentedStorage, error) {
	tracer := otel.Tracer(instrumentationName + "/storage")
	meter := otel.Meter(instrumentationName + "/storage")

	duration, err := meter.Float64Histogram(
		"storage.operation.duration",
		metric.WithDescription("Duration of journal operations in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	errCounter, err := meter.Int64Counter(
		"storage.operation.errors",
		metric.WithDescription("Number of journal operation errors"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	return &InstrumentedStorage{
		inner:    inner,
		tracer:   tracer,
		duration: duration,
		errors:   errCounter,
	}, nil
}

func (s *InstrumentedStorage) startSpan(ctx context.Context, operation string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, "storage."+operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(append([]attribute.KeyValue{
			attribute.String("storage.operation", operation),
		}, attrs...)...),
	)
}

func (s *InstrumentedStorage) record(ctx context.Context, span trace.Span, operation string, start time.Time, err error) {
	attrs := metric.WithAttributes(attribute.String("operation", operation))
	s.duration.Record(ctx, time.Since(start).Seconds(), attrs)

	if err != nil {
		s.errors.Add(ctx, 1, attrs)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}

	span.End()
}

func (s *InstrumentedStorage) RecordSubmission(ctx context.Context, sub *models.Submission) error {
	ctx, span := s.startSpan(ctx, "RecordSubmission",
		attribute.String("submission.id", sub.ID),
		attribute.String("submission.outcome", string(sub.Outcome)),
	)
	start := time.Now()
	err := s.inner.RecordSubmission(ctx, sub)
	s.record(ctx, span, "RecordSubmission", start, err)
	return err
}

func (s *InstrumentedStorage) GetSubmission(ctx context.Context, id string) (*models.Submission, error) {
	ctx, span := s.startSpan(ctx, "GetSubmission", attribute.String("submission.id", id))
	start := time.Now()
	result, err := s.inner.GetSubmission(ctx, id)
	s.record(ctx, span, "GetSubmission", start, err)
	return result, err
}

func (s *InstrumentedStorage) Submissions(ctx context.Context, limit int) ([]*models.Submission, error) {
	ctx, span := s.startSpan(ctx, "Submissions", attribute.Int("limit", limit))
	start := time.Now()
	result, err := s.inner.Submissions(ctx, limit)
	s.record(ctx, span, "Submissions", start, err)
	return result, err
}

func (s *InstrumentedStorage) Count(ctx context.Context) (int, error) {
	ctx, span := s.startSpan(ctx, "Count")
	start := time.Now()
	n, err := s.inner.Count(ctx)
	s.record(ctx, span, "Count", start, err)
	return n, err
}

func (s *InstrumentedStorage) Ping(ctx context.Context) error {
	ctx, span := s.startSpan(ctx, "Ping")
	start := time.Now()
	err := s.inner.Ping(ctx)
	s.record(ctx, span, "Ping", start, err)
	return err
}

func (s *InstrumentedStorage) Close() error {
	return s.inner.Close()
}
