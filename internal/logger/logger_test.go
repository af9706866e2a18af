package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"crptapi/internal/models"
	"crptapi/internal/version"
)

var testInfo = version.Info{
	Version:    "1.2.3",
	GitCommit:  "abc1234",
	BuildDate:  "2026-10-01T00:00:00Z",
	InstanceID: "instance-1",
	Hostname:   "relay-host",
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		expected  slog.Level
		expectErr bool
	}{
		{name: "debug", input: "debug", expected: slog.LevelDebug},
		{name: "info", input: "info", expected: slog.LevelInfo},
		{name: "warn", input: "warn", expected: slog.LevelWarn},
		{name: "error", input: "error", expected: slog.LevelError},
		{name: "uppercase", input: "DEBUG", expected: slog.LevelDebug},
		{name: "invalid", input: "verbose", expectErr: true},
		{name: "empty", input: "", expectErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			level, err := parseLevel(tt.input)
			if tt.expectErr {
				if err == nil {
					t.Errorf("expected error for input %q, got nil", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error for input %q: %v", tt.input, err)
			}
			if level != tt.expected {
				t.Errorf("expected level %v, got %v", tt.expected, level)
			}
		})
	}
}

func TestSetupStdoutAndStderr(t *testing.T) {
	for _, output := range []string{"stdout", "stderr"} {
		logger, closer, err := Setup(models.LoggingConfig{Level: "info", Format: "json", Output: output}, testInfo)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", output, err)
		}
		if closer != nil {
			t.Errorf("%s: expected nil closer", output)
		}
		if logger == nil {
			t.Fatalf("%s: expected non-nil logger", output)
		}
	}
}

func TestSetupFileOutput(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "relay.log")
	cfg := models.LoggingConfig{
		Level:    "debug",
		Format:   "json",
		Output:   "file",
		FilePath: logFile,
	}

	logger, closer, err := Setup(cfg, testInfo)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if closer == nil {
		t.Fatal("expected non-nil closer for file output")
	}

	logger.Debug("permit acquired", "available", 4)
	if err := closer.Close(); err != nil {
		t.Fatalf("failed to close log file: %v", err)
	}

	data, err := os.ReadFile(logFile)
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}

	var entry map[string]interface{}
	if err := json.Unmarshal(bytes.TrimSpace(data), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v", err)
	}
	if entry["msg"] != "permit acquired" {
		t.Errorf("expected message %q, got %v", "permit acquired", entry["msg"])
	}
	if entry["version"] != "1.2.3" {
		t.Errorf("expected version 1.2.3, got %v", entry["version"])
	}
	if entry["instance_id"] != "instance-1" {
		t.Errorf("expected instance_id instance-1, got %v", entry["instance_id"])
	}
}

func TestSetupErrors(t *testing.T) {
	tests := []struct {
		name string
		cfg  models.LoggingConfig
	}{
		{"invalid level", models.LoggingConfig{Level: "loud", Format: "json", Output: "stdout"}},
		{"file without path", models.LoggingConfig{Level: "info", Format: "json", Output: "file"}},
		{"unwritable path", models.LoggingConfig{Level: "info", Format: "json", Output: "file", FilePath: filepath.Join(t.TempDir(), "missing", "dir", "x.log")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, closer, err := Setup(tt.cfg, testInfo)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if logger != nil || closer != nil {
				t.Error("expected nil logger and closer on error")
			}
		})
	}
}

func TestNewTextFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "text", slog.LevelInfo, testInfo)

	logger.Info("document submitted", "doc_id", "d-1")

	out := buf.String()
	for _, want := range []string{"msg=\"document submitted\"", "doc_id=d-1", "git_commit=abc1234"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output %q", want, out)
		}
	}
}

func TestLoggerLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "json", slog.LevelWarn, testInfo)

	logger.Info("dropped")
	logger.Warn("kept")

	out := buf.String()
	if strings.Contains(out, "dropped") {
		t.Error("info record should be filtered at warn level")
	}
	if !strings.Contains(out, "kept") {
		t.Error("warn record should be written at warn level")
	}
}

func TestComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := Component(New(&buf, "json", slog.LevelInfo, testInfo), "gate")

	logger.Info("window reset")

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v", err)
	}
	if entry["component"] != "gate" {
		t.Errorf("expected component gate, got %v", entry["component"])
	}

	if Component(nil, "fallback") == nil {
		t.Error("expected logger derived from slog.Default")
	}
}
