package submission

import (
	"errors"
	"fmt"
	"net/http"

	"crptapi/internal/crpt"
	"crptapi/internal/models"
)

// ServiceError represents errors from the submission service with HTTP context
type ServiceError struct {
	Code         string
	Message      string
	StatusCode   int
	SubmissionID string // Journal entry of the failed attempt, if one was recorded
	Err          error
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// Error constructors for common service errors

func NewNotFoundError(id string) *ServiceError {
	return &ServiceError{
		Code:       models.ErrorCodeNotFound,
		Message:    fmt.Sprintf("submission '%s' not found", id),
		StatusCode: http.StatusNotFound,
	}
}

func NewInvalidRequestError(message string, err error) *ServiceError {
	return &ServiceError{
		Code:       models.ErrorCodeBadRequest,
		Message:    message,
		StatusCode: http.StatusBadRequest,
		Err:        err,
	}
}

func NewMissingSignatureError() *ServiceError {
	return &ServiceError{
		Code:       models.ErrorCodeMissingSignature,
		Message:    "Signature header is required",
		StatusCode: http.StatusBadRequest,
		Err:        crpt.ErrEmptySignature,
	}
}

func NewUpstreamStatusError(status int, err error) *ServiceError {
	return &ServiceError{
		Code:       models.ErrorCodeUpstreamStatus,
		Message:    fmt.Sprintf("registry rejected the document with HTTP status %d", status),
		StatusCode: http.StatusBadGateway,
		Err:        err,
	}
}

func NewUpstreamTransportError(err error) *ServiceError {
	return &ServiceError{
		Code:       models.ErrorCodeUpstreamTransport,
		Message:    "registry could not be reached",
		StatusCode: http.StatusBadGateway,
		Err:        err,
	}
}

func NewUnavailableError(err error) *ServiceError {
	return &ServiceError{
		Code:       models.ErrorCodeServiceUnavailable,
		Message:    "gave up waiting for a rate limit permit",
		StatusCode: http.StatusServiceUnavailable,
		Err:        err,
	}
}

func NewInternalError(message string, err error) *ServiceError {
	return &ServiceError{
		Code:       models.ErrorCodeInternalError,
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Err:        err,
	}
}

// classify maps a submitter error to a journal outcome and a service error.
func classify(err error) (models.Outcome, *ServiceError) {
	switch {
	case err == nil:
		return models.OutcomeSuccess, nil
	case errors.Is(err, crpt.ErrEmptySignature):
		return models.OutcomeInvalid, NewMissingSignatureError()
	case errors.Is(err, crpt.ErrNilPayload):
		return models.OutcomeInvalid, NewInvalidRequestError("document body is required", err)
	}

	switch crpt.KindOf(err) {
	case crpt.KindCancelled:
		return models.OutcomeCancelled, NewUnavailableError(err)
	case crpt.KindStatus:
		status, _ := crpt.StatusCode(err)
		return models.OutcomeStatus, NewUpstreamStatusError(status, err)
	case crpt.KindTransport:
		return models.OutcomeTransport, NewUpstreamTransportError(err)
	case crpt.KindSerialization:
		return models.OutcomeSerialization, NewInvalidRequestError("document could not be encoded", err)
	default:
		return models.OutcomeTransport, NewInternalError("submission failed", err)
	}
}
