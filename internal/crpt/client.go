// Package crpt submits documents to the registry's document creation endpoint.
// Every call passes through a ratelimit.Limiter, so no more requests are
// started per window than the limiter admits, and every call makes exactly one
// attempt.
package crpt

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"reflect"
	"strings"
	"time"

	"crptapi/internal/models"
	"crptapi/internal/ratelimit"
)

// DocumentsCreateURL is the registry endpoint that accepts new documents.
const DocumentsCreateURL = "https://ismp.crpt.ru/api/v3/lk/documents/create"

// SignatureHeader carries the caller-supplied document signature.
const SignatureHeader = "Signature"

// maxErrorBody bounds how much of a non-200 response body is kept in the error.
const maxErrorBody = 512

// Submitter is the contract implemented by Client and its decorators.
type Submitter interface {
	// Submit encodes payload as JSON and posts it with the given signature.
	Submit(ctx context.Context, payload any, signature string) error

	// CreateDocument submits a typed document.
	CreateDocument(ctx context.Context, doc *models.Document, signature string) error
}

// Client posts documents to the registry. It is safe for concurrent use; the
// limiter and the underlying http.Client are shared by all callers.
type Client struct {
	limiter   ratelimit.Limiter
	http      *http.Client
	endpoint  string
	userAgent string
	logger    *slog.Logger

	timeout    *time.Duration
	customHTTP bool
}

var _ Submitter = (*Client)(nil)

// Option configures optional Client behavior.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout sets the timeout of the default HTTP client. It is the only bound
// on an in-flight request. A client passed to WithHTTPClient keeps its own
// timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = &d }
}

// WithEndpoint overrides the registry URL. Intended for tests and staging
// registries.
func WithEndpoint(url string) Option {
	return func(c *Client) { c.endpoint = url }
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// WithLogger sets the client's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient creates a registry client guarded by limiter.
func NewClient(limiter ratelimit.Limiter, opts ...Option) (*Client, error) {
	if limiter == nil {
		return nil, errors.New("limiter is required")
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.ForceAttemptHTTP2 = true

	c := &Client{
		limiter: limiter,
		http: &http.Client{
			Transport: transport,
			Timeout:   30 * time.Second,
		},
		endpoint: DocumentsCreateURL,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if !c.customHTTP && c.timeout != nil {
		c.http.Timeout = *c.timeout
	}
	return c, nil
}

// CreateDocument submits doc with the given signature.
func (c *Client) CreateDocument(ctx context.Context, doc *models.Document, signature string) error {
	if doc == nil {
		return ErrNilPayload
	}
	return c.Submit(ctx, doc, signature)
}

// Submit encodes payload as JSON and posts it with the given signature. It
// blocks until the limiter admits the call; if ctx ends first the returned
// error has KindCancelled and nothing is sent. Once sent, the request is not
// cancelled by ctx; only the HTTP client timeout bounds it. The permit is
// returned to the limiter whatever the outcome.
//
// A nil error means the registry answered 200.
func (c *Client) Submit(ctx context.Context, payload any, signature string) error {
	if isNil(payload) {
		return ErrNilPayload
	}
	if strings.TrimSpace(signature) == "" {
		return ErrEmptySignature
	}

	if err := c.limiter.Acquire(ctx); err != nil {
		c.logger.Debug("Gave up waiting for rate limit permit", "error", err)
		return newCancelledError(err)
	}
	defer c.limiter.Release()

	body, err := json.Marshal(payload)
	if err != nil {
		return newSerializationError(err)
	}

	return c.post(ctx, body, signature)
}

// post performs the single outbound request and classifies its result.
func (c *Client) post(ctx context.Context, body []byte, signature string) error {
	req, err := http.NewRequestWithContext(context.WithoutCancel(ctx), http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return newTransportError(fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(SignatureHeader, signature)
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	c.logger.Debug("Sending document to registry", "url", c.endpoint, "bytes", len(body))

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("Registry request failed", "url", c.endpoint, "error", err)
		return newTransportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		c.logger.Warn("Registry rejected document",
			"status", resp.StatusCode,
			"duration", time.Since(start),
		)
		return newStatusError(resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	// Drain so the connection can be reused.
	if _, err := io.Copy(io.Discard, resp.Body); err != nil {
		c.logger.Debug("Failed to drain registry response", "error", err)
	}

	c.logger.Debug("Registry accepted document", "duration", time.Since(start))
	return nil
}

// isNil reports whether payload would encode as JSON null.
func isNil(payload any) bool {
	if payload == nil {
		return true
	}
	v := reflect.ValueOf(payload)
	switch v.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Interface:
		return v.IsNil()
	}
	return false
}
