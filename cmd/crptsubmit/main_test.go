package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"crptapi/internal/crpt"
	"crptapi/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRegistry struct {
	*httptest.Server
	status    atomic.Int32
	requests  atomic.Int32
	signature atomic.Value
	body      atomic.Value
}

func newStubRegistry(t *testing.T, status int) *stubRegistry {
	t.Helper()
	s := &stubRegistry{}
	s.status.Store(int32(status))
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		s.requests.Add(1)
		s.signature.Store(r.Header.Get(crpt.SignatureHeader))
		s.body.Store(string(data))
		w.WriteHeader(int(s.status.Load()))
	}))
	t.Cleanup(s.Close)
	return s
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func runCLI(t *testing.T, stdin string, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, strings.NewReader(stdin), &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRun_Version(t *testing.T) {
	code, stdout, _ := runCLI(t, "", "-version")

	assert.Equal(t, exitOK, code)
	assert.Contains(t, stdout, "crptapi version")
}

func TestRun_UsageErrors(t *testing.T) {
	doc := writeFile(t, "doc.json", `{"doc_id":"d"}`)
	sigFile := writeFile(t, "sig.txt", "sig\n")

	tests := []struct {
		name string
		args []string
	}{
		{"unknown flag", []string{"-bogus"}},
		{"missing document", []string{"-signature", "sig"}},
		{"missing document file", []string{"-document", filepath.Join(t.TempDir(), "none.json"), "-signature", "sig"}},
		{"both signature sources", []string{"-document", doc, "-signature", "sig", "-signature-file", sigFile}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _, _ := runCLI(t, "", tt.args...)
			assert.Equal(t, exitUsage, code)
		})
	}
}

func TestRun_SubmitsDocument(t *testing.T) {
	registry := newStubRegistry(t, http.StatusOK)
	doc := writeFile(t, "doc.json", `{"doc_id":"doc-42","doc_type":"LP_INTRODUCE_GOODS","products":[{"uit_code":"u-1"}]}`)

	code, stdout, stderr := runCLI(t, "", "-document", doc, "-signature", "sig-1", "-endpoint", registry.URL)

	require.Equal(t, exitOK, code, stderr)
	assert.Equal(t, int32(1), registry.requests.Load())
	assert.Equal(t, "sig-1", registry.signature.Load())
	assert.Contains(t, registry.body.Load(), `"uit_code":"u-1"`)

	var sub models.Submission
	require.NoError(t, json.Unmarshal([]byte(stdout), &sub))
	assert.Equal(t, "doc-42", sub.DocID)
	assert.Equal(t, models.OutcomeSuccess, sub.Outcome)
}

func TestRun_RawPayloadFromStdinWithSignatureFile(t *testing.T) {
	registry := newStubRegistry(t, http.StatusOK)
	sigFile := writeFile(t, "sig.txt", "  file-sig \n")
	payload := `{"doc_id":"raw-1","extension":{"x":1}}`

	code, stdout, stderr := runCLI(t, payload, "-document", "-", "-raw", "-signature-file", sigFile, "-endpoint", registry.URL)

	require.Equal(t, exitOK, code, stderr)
	assert.Equal(t, "file-sig", registry.signature.Load())
	assert.Equal(t, payload, registry.body.Load())

	var sub models.Submission
	require.NoError(t, json.Unmarshal([]byte(stdout), &sub))
	assert.Equal(t, "raw-1", sub.DocID)
}

func TestRun_RegistryRejects(t *testing.T) {
	registry := newStubRegistry(t, http.StatusBadRequest)
	doc := writeFile(t, "doc.json", `{"doc_id":"doc-bad"}`)

	code, stdout, stderr := runCLI(t, "", "-document", doc, "-signature", "sig", "-endpoint", registry.URL)

	assert.Equal(t, exitRejected, code)
	assert.Contains(t, stderr, "400")

	var sub models.Submission
	require.NoError(t, json.Unmarshal([]byte(stdout), &sub))
	assert.Equal(t, models.OutcomeStatus, sub.Outcome)
	assert.Equal(t, http.StatusBadRequest, sub.StatusCode)
}

func TestRun_MissingSignatureNeverSends(t *testing.T) {
	registry := newStubRegistry(t, http.StatusOK)
	doc := writeFile(t, "doc.json", `{"doc_id":"d"}`)

	code, stdout, stderr := runCLI(t, "", "-document", doc, "-endpoint", registry.URL)

	assert.Equal(t, exitFailed, code)
	assert.Empty(t, stdout)
	assert.Contains(t, stderr, "Signature header is required")
	assert.Equal(t, int32(0), registry.requests.Load())
}

func TestRun_InvalidDocument(t *testing.T) {
	doc := writeFile(t, "doc.json", `not json`)

	code, _, stderr := runCLI(t, "", "-document", doc, "-signature", "sig", "-endpoint", "http://127.0.0.1:0")

	assert.Equal(t, exitFailed, code)
	assert.Contains(t, stderr, "failed to decode document")
}

func TestRun_InvalidConfig(t *testing.T) {
	doc := writeFile(t, "doc.json", `{"doc_id":"d"}`)
	cfg := writeFile(t, "config.yaml", "rate_limit:\n  request_limit: -1\n")

	code, _, stderr := runCLI(t, "", "-document", doc, "-signature", "sig", "-config", cfg)

	assert.Equal(t, exitFailed, code)
	assert.Contains(t, stderr, "request limit must be positive")
}

func TestRun_ExampleConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "example.yaml")

	code, stdout, _ := runCLI(t, "", "-example-config", path)

	assert.Equal(t, exitOK, code)
	assert.Contains(t, stdout, path)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "request_limit")
}
