// Package models - API response types and error handling.
// This file defines the relay API's outgoing response structures.
package models

import (
	"time"
)

// SubmitResponse is returned when a document or payload was forwarded.
type SubmitResponse struct {
	ID         string  `json:"id"`
	Outcome    Outcome `json:"outcome"`
	StatusCode int     `json:"status_code,omitempty"` // Registry status, when one was received
}

// ListSubmissionsResponse lists journal entries, newest first.
type ListSubmissionsResponse struct {
	Submissions []*Submission `json:"submissions"`
	TotalCount  int           `json:"total_count"`
	Limit       int           `json:"limit"`
}

type ErrorResponse struct {
	Error      string            `json:"error"`                // Error type identifier
	Message    string            `json:"message"`              // Human-readable error description
	Code       string            `json:"code,omitempty"`       // Machine-readable error code
	Details    map[string]string `json:"details,omitempty"`    // Field-specific error details
	Submission string            `json:"submission,omitempty"` // Journal ID of the failed submission
	Timestamp  time.Time         `json:"timestamp"`            // Error occurrence time
}

type HealthCheckResponse struct {
	Status     string                     `json:"status"`
	Timestamp  time.Time                  `json:"timestamp"`
	Version    string                     `json:"version,omitempty"`
	Components map[string]ComponentHealth `json:"components,omitempty"`
	Metrics    map[string]interface{}     `json:"metrics,omitempty"`
}

type ComponentHealth struct {
	Status    string    `json:"status"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Health Status Constants
const (
	StatusHealthy   = "healthy"   // All systems operational
	StatusUnhealthy = "unhealthy" // Major system issues
	StatusDegraded  = "degraded"  // Partial functionality
)

// Standard HTTP Error Codes
const (
	ErrorCodeNotFound           = "NOT_FOUND"           // 404: Resource doesn't exist
	ErrorCodeBadRequest         = "BAD_REQUEST"         // 400: Invalid request format
	ErrorCodeMissingSignature   = "MISSING_SIGNATURE"   // 400: Signature header absent
	ErrorCodeInternalError      = "INTERNAL_ERROR"      // 500: Server-side error
	ErrorCodeUpstreamStatus     = "UPSTREAM_STATUS"     // 502: Registry answered with a non-200 status
	ErrorCodeUpstreamTransport  = "UPSTREAM_TRANSPORT"  // 502: Registry could not be reached
	ErrorCodeServiceUnavailable = "SERVICE_UNAVAILABLE" // 503: Gave up waiting for a permit
)

func NewErrorResponse(message string, code string) *ErrorResponse {
	return &ErrorResponse{
		Error:     "error",
		Message:   message,
		Code:      code,
		Timestamp: time.Now(),
	}
}

func NewHealthCheckResponse(status string) *HealthCheckResponse {
	return &HealthCheckResponse{
		Status:     status,
		Timestamp:  time.Now(),
		Components: make(map[string]ComponentHealth),
		Metrics:    make(map[string]interface{}),
	}
}

func (h *HealthCheckResponse) AddComponent(name, status, message string) {
	h.Components[name] = ComponentHealth{
		Status:    status,
		Message:   message,
		Timestamp: time.Now(),
	}
}

func (h *HealthCheckResponse) AddMetric(name string, value interface{}) {
	h.Metrics[name] = value
}
