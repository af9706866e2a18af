package submission

import (
	"context"
	"encoding/json"

	"crptapi/internal/models"
)

// ServiceInterface defines the interface for submission service operations
type ServiceInterface interface {
	// SubmitDocument forwards a typed document to the registry and journals the outcome
	SubmitDocument(ctx context.Context, doc *models.Document, signature string) (*models.Submission, error)

	// SubmitPayload forwards an arbitrary JSON payload to the registry and journals the outcome
	SubmitPayload(ctx context.Context, payload json.RawMessage, signature string) (*models.Submission, error)

	// GetSubmission returns a journal entry by ID
	GetSubmission(ctx context.Context, id string) (*models.Submission, error)

	// ListSubmissions returns the newest journal entries
	ListSubmissions(ctx context.Context, limit int) (*models.ListSubmissionsResponse, error)
}

// Ensure Service implements ServiceInterface
var _ ServiceInterface = (*Service)(nil)
