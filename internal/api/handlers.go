package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"crptapi/internal/crpt"
	"crptapi/internal/models"
	"crptapi/internal/ratelimit"
	"crptapi/internal/storage"
	"crptapi/internal/submission"

	"github.com/gorilla/mux"
)

// maxBodyBytes bounds the size of a submitted document.
const maxBodyBytes = 10 << 20

// Handlers contains HTTP handlers for the relay API
type Handlers struct {
	service submission.ServiceInterface
	storage storage.Storage
	limiter ratelimit.Limiter
	version string
	logger  *slog.Logger
}

// HandlerOption configures optional Handlers dependencies.
type HandlerOption func(*Handlers)

// WithStorage lets the health check ping the journal.
func WithStorage(s storage.Storage) HandlerOption {
	return func(h *Handlers) { h.storage = s }
}

// WithLimiter lets the health check report rate limiter capacity.
func WithLimiter(l ratelimit.Limiter) HandlerOption {
	return func(h *Handlers) { h.limiter = l }
}

// WithVersion sets the version reported by the health check.
func WithVersion(v string) HandlerOption {
	return func(h *Handlers) { h.version = v }
}

// WithLogger sets the handlers' logger.
func WithLogger(logger *slog.Logger) HandlerOption {
	return func(h *Handlers) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// NewHandlers creates a new handlers instance
func NewHandlers(service submission.ServiceInterface, opts ...HandlerOption) *Handlers {
	h := &Handlers{
		service: service,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// SubmitDocument forwards a typed document to the registry
// POST /api/v1/documents
func (h *Handlers) SubmitDocument(w http.ResponseWriter, r *http.Request) {
	var doc models.Document
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&doc); err != nil {
		h.writeErrorResponse(w, http.StatusBadRequest, models.ErrorCodeBadRequest, "Invalid JSON body")
		return
	}

	sub, err := h.service.SubmitDocument(r.Context(), &doc, r.Header.Get(crpt.SignatureHeader))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeJSONResponse(w, http.StatusCreated, &models.SubmitResponse{
		ID:      sub.ID,
		Outcome: sub.Outcome,
	})
}

// SubmitPayload forwards an arbitrary JSON body to the registry
// POST /api/v1/payloads
func (h *Handlers) SubmitPayload(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		h.writeErrorResponse(w, http.StatusBadRequest, models.ErrorCodeBadRequest, "Failed to read request body")
		return
	}

	sub, err := h.service.SubmitPayload(r.Context(), json.RawMessage(body), r.Header.Get(crpt.SignatureHeader))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeJSONResponse(w, http.StatusCreated, &models.SubmitResponse{
		ID:      sub.ID,
		Outcome: sub.Outcome,
	})
}

// ListSubmissions returns the newest journal entries
// GET /api/v1/submissions?limit=N
func (h *Handlers) ListSubmissions(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if limitParam := r.URL.Query().Get("limit"); limitParam != "" {
		parsed, err := strconv.Atoi(limitParam)
		if err != nil {
			h.writeErrorResponse(w, http.StatusBadRequest, models.ErrorCodeBadRequest, "limit must be an integer")
			return
		}
		limit = parsed
	}

	response, err := h.service.ListSubmissions(r.Context(), limit)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeJSONResponse(w, http.StatusOK, response)
}

// GetSubmission returns one journal entry
// GET /api/v1/submissions/{id}
func (h *Handlers) GetSubmission(w http.ResponseWriter, r *http.Request) {
	sub, err := h.service.GetSubmission(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeJSONResponse(w, http.StatusOK, sub)
}

// HealthCheck reports journal reachability and rate limiter capacity
// GET /health
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response := models.NewHealthCheckResponse(models.StatusHealthy)
	response.Version = h.version
	statusCode := http.StatusOK

	if h.storage != nil {
		if err := h.storage.Ping(r.Context()); err != nil {
			h.logger.Warn("Health check storage ping failed", "error", err)
			response.Status = models.StatusUnhealthy
			response.AddComponent("storage", models.StatusUnhealthy, err.Error())
			statusCode = http.StatusServiceUnavailable
		} else {
			response.AddComponent("storage", models.StatusHealthy, "Storage is operational")
		}
	}

	if h.limiter != nil {
		available := h.limiter.Available()
		response.AddMetric("rate_limit_limit", h.limiter.Limit())
		response.AddMetric("rate_limit_available", available)
		if available == 0 {
			response.AddComponent("rate_limiter", models.StatusDegraded, "No permits left in the current window")
			if response.Status == models.StatusHealthy {
				response.Status = models.StatusDegraded
			}
		} else {
			response.AddComponent("rate_limiter", models.StatusHealthy, fmt.Sprintf("%d permits available", available))
		}
	}

	response.AddComponent("api", models.StatusHealthy, "API is operational")
	h.writeJSONResponse(w, statusCode, response)
}

// writeServiceError maps a service error to its HTTP response.
func (h *Handlers) writeServiceError(w http.ResponseWriter, err error) {
	var se *submission.ServiceError
	if !errors.As(err, &se) {
		h.logger.Error("Unexpected service error", "error", err)
		h.writeErrorResponse(w, http.StatusInternalServerError, models.ErrorCodeInternalError, "Internal server error")
		return
	}

	errorResp := models.NewErrorResponse(se.Message, se.Code)
	errorResp.Submission = se.SubmissionID
	if status, ok := crpt.StatusCode(err); ok {
		errorResp.Details = map[string]string{"upstream_status": strconv.Itoa(status)}
	}
	h.writeJSONResponse(w, se.StatusCode, errorResp)
}

// writeJSONResponse writes a JSON response
func (h *Handlers) writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Headers are already written; nothing left to send.
		h.logger.Error("Error encoding JSON response", "error", err)
	}
}

// writeErrorResponse writes an error response
func (h *Handlers) writeErrorResponse(w http.ResponseWriter, statusCode int, errorCode, message string) {
	h.writeJSONResponse(w, statusCode, models.NewErrorResponse(message, errorCode))
}
