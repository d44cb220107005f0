package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"mercator-hq/themis/pkg/config"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}

	for _, tt := range tests {
		if got := ParseLevel(tt.input); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestSetupWithWriter_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := SetupWithWriter(config.LoggingConfig{Level: "info", Format: "json"}, &buf)

	logger.Info("decision created", "decision_id", "d-1")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v (%s)", err, buf.String())
	}
	if entry["msg"] != "decision created" || entry["decision_id"] != "d-1" {
		t.Errorf("unexpected log entry: %v", entry)
	}
}

func TestSetupWithWriter_Text(t *testing.T) {
	var buf bytes.Buffer
	logger := SetupWithWriter(config.LoggingConfig{Level: "info", Format: "text"}, &buf)

	logger.Info("readiness evaluated", "status", "ready")

	out := buf.String()
	if !strings.Contains(out, "msg=\"readiness evaluated\"") || !strings.Contains(out, "status=ready") {
		t.Errorf("unexpected text output: %s", out)
	}
}

func TestSetupWithWriter_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	logger := SetupWithWriter(config.LoggingConfig{Level: "warn", Format: "json"}, &buf)

	logger.Debug("dropped")
	logger.Info("dropped too")
	logger.Warn("kept")

	if got := strings.Count(buf.String(), "\n"); got != 1 {
		t.Errorf("expected 1 log line, got %d: %s", got, buf.String())
	}
}

func TestSetup_InstallsDefault(t *testing.T) {
	var buf bytes.Buffer
	SetupWithWriter(config.LoggingConfig{Level: "info", Format: "json"}, &buf)

	slog.Default().Info("via default")
	if !strings.Contains(buf.String(), "via default") {
		t.Error("Setup did not install the default logger")
	}
}
