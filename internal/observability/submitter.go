package observability

import (
	"context"
	"time"

	"crptapi/internal/crpt"
	"crptapi/internal/models"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// InstrumentedSubmitter wraps a crpt.Submitter with a span per call, a latency
// histogram and a request counter labelled by outcome. Latency includes the
// wait for a rate limit permit.
type InstrumentedSubmitter struct {
	inner    crpt.Submitter
	tracer   trace.Tracer
	duration metric.Float64Histogram
	requests metric.Int64Counter
}

var _ crpt.Submitter = (*InstrumentedSubmitter)(nil)

// NewInstrumentedSubmitter creates a new submitter wrapper.
func NewInstrumentedSubmitter(inner crpt.Submitter) (*InstrumentedSubmitter, error) {
	meter := otel.Meter(instrumentationName + "/crpt")

	duration, err := meter.Float64Histogram(
		"crpt.submit.duration",
		metric.WithDescription("Duration of document submissions in seconds, including the permit wait"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	requests, err := meter.Int64Counter(
		"crpt.submit.requests",
		metric.WithDescription("Number of document submissions by outcome"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	return &InstrumentedSubmitter{
		inner:    inner,
		tracer:   otel.Tracer(instrumentationName + "/crpt"),
		duration: duration,
		requests: requests,
	}, nil
}

// Submit records the call and delegates to the wrapped submitter.
func (s *InstrumentedSubmitter) Submit(ctx context.Context, payload any, signature string) error {
	ctx, span := s.tracer.Start(ctx, "crpt.Submit", trace.WithSpanKind(trace.SpanKindClient))
	start := time.Now()
	err := s.inner.Submit(ctx, payload, signature)
	s.record(ctx, span, "Submit", start, err)
	return err
}

// CreateDocument records the call and delegates to the wrapped submitter.
func (s *InstrumentedSubmitter) CreateDocument(ctx context.Context, doc *models.Document, signature string) error {
	attrs := []attribute.KeyValue{}
	if doc != nil {
		attrs = append(attrs,
			attribute.String("document.id", doc.DocID),
			attribute.String("document.type", doc.DocType),
			attribute.Int("document.products", len(doc.Products)),
		)
	}
	ctx, span := s.tracer.Start(ctx, "crpt.CreateDocument",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attrs...),
	)
	start := time.Now()
	err := s.inner.CreateDocument(ctx, doc, signature)
	s.record(ctx, span, "CreateDocument", start, err)
	return err
}

func (s *InstrumentedSubmitter) record(ctx context.Context, span trace.Span, operation string, start time.Time, err error) {
	outcome := outcomeOf(err)
	attrs := metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("outcome", string(outcome)),
	)
	s.duration.Record(ctx, time.Since(start).Seconds(), attrs)
	s.requests.Add(ctx, 1, attrs)

	span.SetAttributes(attribute.String("crpt.outcome", string(outcome)))
	if code, ok := crpt.StatusCode(err); ok {
		span.SetAttributes(attribute.Int("http.response.status_code", code))
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// outcomeOf maps a submitter result to the journal's outcome vocabulary.
func outcomeOf(err error) models.Outcome {
	if err == nil {
		return models.OutcomeSuccess
	}
	switch crpt.KindOf(err) {
	case crpt.KindCancelled:
		return models.OutcomeCancelled
	case crpt.KindStatus:
		return models.OutcomeStatus
	case crpt.KindTransport:
		return models.OutcomeTransport
	case crpt.KindSerialization:
		return models.OutcomeSerialization
	default:
		return models.OutcomeInvalid
	}
}
