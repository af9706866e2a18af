// Package submission relays documents to the registry through a crpt.Submitter
// and keeps a journal of every completed attempt.
package submission

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"crptapi/internal/crpt"
	"crptapi/internal/models"
	"crptapi/internal/storage"
)

const (
	// DefaultListLimit is used when a listing request does not name a limit.
	DefaultListLimit = 50
	// MaxListLimit caps a single listing request.
	MaxListLimit = 1000
)

// Service handles document relaying and journal queries
type Service struct {
	submitter      crpt.Submitter
	storage        storage.Storage
	logger         *slog.Logger
	acquireTimeout time.Duration
}

// Option configures optional Service behavior.
type Option func(*Service)

// WithLogger sets the service's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithAcquireTimeout bounds how long a submission waits for a rate limit
// permit. Zero waits until the caller's context ends.
func WithAcquireTimeout(d time.Duration) Option {
	return func(s *Service) { s.acquireTimeout = d }
}

// NewService creates a new submission service with the given submitter and journal
func NewService(submitter crpt.Submitter, storage storage.Storage, opts ...Option) *Service {
	s := &Service{
		submitter: submitter,
		storage:   storage,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SubmitDocument forwards doc to the registry. The returned submission is nil
// only when the request was rejected before reaching the registry client.
func (s *Service) SubmitDocument(ctx context.Context, doc *models.Document, signature string) (*models.Submission, error) {
	if doc == nil {
		return nil, NewInvalidRequestError("document body is required", crpt.ErrNilPayload)
	}
	if strings.TrimSpace(signature) == "" {
		return nil, NewMissingSignatureError()
	}

	sub := models.NewSubmission(doc.DocID, doc.DocType)
	return s.run(ctx, sub, func(ctx context.Context) error {
		return s.submitter.CreateDocument(ctx, doc, signature)
	})
}

// SubmitPayload forwards an arbitrary JSON value to the registry. If the
// payload is an object carrying doc_id or doc_type they are copied to the
// journal entry.
func (s *Service) SubmitPayload(ctx context.Context, payload json.RawMessage, signature string) (*models.Submission, error) {
	if len(payload) == 0 {
		return nil, NewInvalidRequestError("payload body is required", crpt.ErrNilPayload)
	}
	if !json.Valid(payload) {
		return nil, NewInvalidRequestError("payload is not valid JSON", nil)
	}
	if strings.TrimSpace(signature) == "" {
		return nil, NewMissingSignatureError()
	}

	var ident struct {
		DocID   string `json:"doc_id"`
		DocType string `json:"doc_type"`
	}
	// Non-object payloads are forwarded as-is without identifiers.
	_ = json.Unmarshal(payload, &ident)

	sub := models.NewSubmission(ident.DocID, ident.DocType)
	return s.run(ctx, sub, func(ctx context.Context) error {
		return s.submitter.Submit(ctx, payload, signature)
	})
}

// run performs one submission, journals its outcome and maps failures to
// service errors.
func (s *Service) run(ctx context.Context, sub *models.Submission, submit func(context.Context) error) (*models.Submission, error) {
	if s.acquireTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.acquireTimeout)
		defer cancel()
	}

	start := time.Now()
	err := submit(ctx)
	sub.Duration = time.Since(start)

	outcome, serviceErr := classify(err)
	sub.Outcome = outcome
	if code, ok := crpt.StatusCode(err); ok {
		sub.StatusCode = code
	}
	if err != nil {
		sub.Error = err.Error()
	}

	s.record(ctx, sub)

	if serviceErr != nil {
		s.logger.Warn("Document submission failed",
			"submission_id", sub.ID,
			"doc_id", sub.DocID,
			"outcome", sub.Outcome,
			"status_code", sub.StatusCode,
			"error", err,
		)
		serviceErr.SubmissionID = sub.ID
		return sub, serviceErr
	}

	s.logger.Info("Document submitted",
		"submission_id", sub.ID,
		"doc_id", sub.DocID,
		"doc_type", sub.DocType,
		"duration", sub.Duration,
	)
	return sub, nil
}

// record writes sub to the journal. A journal failure is logged and never
// replaces the submission outcome.
func (s *Service) record(ctx context.Context, sub *models.Submission) {
	if s.storage == nil {
		return
	}
	if err := s.storage.RecordSubmission(context.WithoutCancel(ctx), sub); err != nil {
		s.logger.Error("Failed to record submission",
			"submission_id", sub.ID,
			"outcome", sub.Outcome,
			"error", err,
		)
	}
}

// GetSubmission returns a journal entry by ID
func (s *Service) GetSubmission(ctx context.Context, id string) (*models.Submission, error) {
	if strings.TrimSpace(id) == "" {
		return nil, NewInvalidRequestError("submission id is required", nil)
	}
	if s.storage == nil {
		return nil, NewNotFoundError(id)
	}

	sub, err := s.storage.GetSubmission(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, NewNotFoundError(id)
		}
		return nil, NewInternalError("failed to load submission", err)
	}
	return sub, nil
}

// ListSubmissions returns up to limit journal entries, newest first. A limit of
// zero selects DefaultListLimit.
func (s *Service) ListSubmissions(ctx context.Context, limit int) (*models.ListSubmissionsResponse, error) {
	switch {
	case limit < 0:
		return nil, NewInvalidRequestError("limit cannot be negative", nil)
	case limit == 0:
		limit = DefaultListLimit
	case limit > MaxListLimit:
		limit = MaxListLimit
	}

	response := &models.ListSubmissionsResponse{
		Submissions: []*models.Submission{},
		Limit:       limit,
	}
	if s.storage == nil {
		return response, nil
	}

	subs, err := s.storage.Submissions(ctx, limit)
	if err != nil {
		return nil, NewInternalError("failed to list submissions", err)
	}
	total, err := s.storage.Count(ctx)
	if err != nil {
		return nil, NewInternalError("failed to count submissions", err)
	}

	response.Submissions = subs
	response.TotalCount = total
	return response, nil
}
