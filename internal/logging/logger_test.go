package logging_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"signflow/internal/logging"
	"signflow/internal/services"
)

func TestNewWritesEveryLevelOnceToSharedFile(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "signflow-run.log")
	logger, err := logging.New(logging.Options{
		Level:            "info",
		Format:           "console",
		OutputPaths:      []string{"discard", logPath},
		ErrorOutputPaths: []string{"discard", logPath},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("hello file")
	logger.Error("broken file")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if strings.Count(string(content), "hello file") != 1 || strings.Count(string(content), "broken file") != 1 {
		t.Fatalf("expected each message once, got %q", content)
	}
}

func TestConsoleLoggerFormatsComponentAndIntent(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console.log")
	logger, err := logging.New(logging.Options{
		Format:           "console",
		Level:            "info",
		OutputPaths:      []string{logPath},
		ErrorOutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logging.NewComponentLogger(logger, "translate").Info("pivot ready",
		logging.Intent("translate_to_pivot"),
		logging.Generation(3),
		logging.String("text", "hello world"),
	)

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	line := string(content)
	for _, fragment := range []string{"INFO translate[translate_to_pivot]: pivot ready", "generation=3", `text="hello world"`} {
		if !strings.Contains(line, fragment) {
			t.Fatalf("expected %q in %q", fragment, line)
		}
	}
	if strings.Contains(line, ".go:") {
		t.Fatalf("expected no caller information in info logs, got %q", line)
	}
}

func TestConsoleLoggerIncludesCallerForDebug(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console-debug.log")
	logger, err := logging.New(logging.Options{
		Format:           "console",
		Level:            "debug",
		OutputPaths:      []string{logPath},
		ErrorOutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Debug("message with caller")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(content), "logger_test.go:") {
		t.Fatalf("expected caller information in debug logs, got %q", content)
	}
}

func TestJSONLoggerUsesLowercaseLevel(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "json.log")
	logger, err := logging.New(logging.Options{
		Format:           "json",
		Level:            "info",
		OutputPaths:      []string{logPath},
		ErrorOutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logging.WarnWithContext(logger, "pivot failed", "pivot_failed")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	var payload map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(string(content))), &payload); err != nil {
		t.Fatalf("decode json log: %v (%q)", err, content)
	}
	if payload["level"] != "warn" {
		t.Fatalf("unexpected level %v", payload["level"])
	}
	if _, ok := payload["ts"]; !ok {
		t.Fatalf("expected ts key in %v", payload)
	}
	for _, key := range []string{logging.FieldEventType, logging.FieldErrorHint, logging.FieldImpact} {
		if _, ok := payload[key]; !ok {
			t.Fatalf("expected %s to be injected, got %v", key, payload)
		}
	}
	if payload[logging.FieldImpact] != "session state left unchanged" {
		t.Fatalf("unexpected default impact %v", payload[logging.FieldImpact])
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestWithContextAddsFields(t *testing.T) {
	hub := logging.NewStreamHub(8)
	logger, err := logging.New(logging.Options{
		Format:           "console",
		OutputPaths:      []string{"discard"},
		ErrorOutputPaths: []string{"discard"},
		Stream:           hub,
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	ctx := services.WithSessionID(context.Background(), "sess-9")
	ctx = services.WithRequestID(ctx, "req-1")
	logging.WithContext(ctx, logging.NewComponentLogger(logger, "daemon")).Info("request handled")

	events, seq := hub.Tail(10)
	if len(events) != 1 || seq != 1 {
		t.Fatalf("expected one event, got %d (seq %d)", len(events), seq)
	}
	evt := events[0]
	if evt.SessionID != "sess-9" || evt.CorrelationID != "req-1" || evt.Component != "daemon" {
		t.Fatalf("unexpected event %+v", evt)
	}
}

func TestNopLoggerDiscards(t *testing.T) {
	logger := logging.NewNop()
	if logger.Enabled(context.Background(), slog.LevelError) {
		t.Fatal("expected nop logger to be disabled")
	}
	logging.ErrorWithContext(nil, "ignored", "noop")
}
