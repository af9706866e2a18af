// Package models - Journal records of completed submissions.
package models

import (
	"time"

	"github.com/google/uuid"
)

// Outcome classifies how a submission ended.
type Outcome string

const (
	OutcomeSuccess       Outcome = "success"       // Registry answered 200
	OutcomeStatus        Outcome = "status"        // Registry answered with another status
	OutcomeTransport     Outcome = "transport"     // Request could not be completed
	OutcomeCancelled     Outcome = "cancelled"     // Caller gave up waiting for a permit
	OutcomeSerialization Outcome = "serialization" // Payload could not be encoded
	OutcomeInvalid       Outcome = "invalid"       // Rejected before reaching the gate
)

// Submission records the outcome of one submission attempt.
type Submission struct {
	ID         string        `json:"id"`
	DocID      string        `json:"doc_id,omitempty"`
	DocType    string        `json:"doc_type,omitempty"`
	Outcome    Outcome       `json:"outcome"`
	StatusCode int           `json:"status_code,omitempty"`
	Error      string        `json:"error,omitempty"`
	Duration   time.Duration `json:"duration"`
	CreatedAt  time.Time     `json:"created_at"`
}

// NewSubmission creates a submission record with a fresh ID and creation time.
func NewSubmission(docID, docType string) *Submission {
	return &Submission{
		ID:        uuid.New().String(),
		DocID:     docID,
		DocType:   docType,
		CreatedAt: time.Now().UTC(),
	}
}

// Succeeded reports whether the registry accepted the submission.
func (s *Submission) Succeeded() bool {
	return s.Outcome == OutcomeSuccess
}
