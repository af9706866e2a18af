package crpt

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failed submission.
type ErrorKind int

const (
	// KindCancelled means the wait for a permit ended before one was available.
	// No permit was consumed and no request was sent.
	KindCancelled ErrorKind = iota + 1
	// KindTransport means the request could not be completed: DNS, TCP, TLS or
	// I/O failure, client timeout or a malformed response.
	KindTransport
	// KindStatus means the registry answered with a status other than 200.
	KindStatus
	// KindSerialization means the payload could not be encoded. No request was sent.
	KindSerialization
)

func (k ErrorKind) String() string {
	switch k {
	case KindCancelled:
		return "cancelled"
	case KindTransport:
		return "transport"
	case KindStatus:
		return "status"
	case KindSerialization:
		return "serialization"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

var (
	// ErrEmptySignature is returned when Submit is called without a signature.
	ErrEmptySignature = errors.New("signature is required")
	// ErrNilPayload is returned when Submit is called with a nil payload.
	ErrNilPayload = errors.New("payload is required")
)

// SubmitError describes a failed submission.
type SubmitError struct {
	Kind       ErrorKind
	StatusCode int    // Set for KindStatus
	Body       string // Leading bytes of the response body, for KindStatus
	Err        error
}

func (e *SubmitError) Error() string {
	switch e.Kind {
	case KindStatus:
		if e.Body != "" {
			return fmt.Sprintf("registry responded with HTTP status %d: %s", e.StatusCode, e.Body)
		}
		return fmt.Sprintf("registry responded with HTTP status %d", e.StatusCode)
	case KindCancelled:
		return fmt.Sprintf("waiting for rate limit permit: %v", e.Err)
	case KindTransport:
		return fmt.Sprintf("registry request failed: %v", e.Err)
	case KindSerialization:
		return fmt.Sprintf("failed to encode payload: %v", e.Err)
	default:
		return fmt.Sprintf("submission failed: %v", e.Err)
	}
}

func (e *SubmitError) Unwrap() error {
	return e.Err
}

func newCancelledError(err error) *SubmitError {
	return &SubmitError{Kind: KindCancelled, Err: err}
}

func newTransportError(err error) *SubmitError {
	return &SubmitError{Kind: KindTransport, Err: err}
}

func newStatusError(code int, body string) *SubmitError {
	return &SubmitError{Kind: KindStatus, StatusCode: code, Body: body}
}

func newSerializationError(err error) *SubmitError {
	return &SubmitError{Kind: KindSerialization, Err: err}
}

// KindOf returns the kind of a submission error, or 0 if err is not a SubmitError.
func KindOf(err error) ErrorKind {
	var se *SubmitError
	if errors.As(err, &se) {
		return se.Kind
	}
	return 0
}

// IsCancelled reports whether err is a cancelled wait for a permit.
func IsCancelled(err error) bool {
	return KindOf(err) == KindCancelled
}

// StatusCode returns the registry's HTTP status for a KindStatus error.
func StatusCode(err error) (int, bool) {
	var se *SubmitError
	if errors.As(err, &se) && se.Kind == KindStatus {
		return se.StatusCode, true
	}
	return 0, false
}
