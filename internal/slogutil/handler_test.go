package slogutil

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestTextHandler_Format(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, slog.LevelInfo)

	logger.Info("Collected artifact", "artifact", "main", "elements", 42)

	output := buf.String()
	for _, want := range []string{"[info]", "Collected artifact", " | artifact=main", "elements=42"} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output, got: %s", want, output)
		}
	}
	if !strings.HasSuffix(output, "\n") {
		t.Error("record should end with a newline")
	}
}

func TestTextHandler_QuotesValues(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, slog.LevelInfo)

	logger.Info("msg", "title", "API changes", "empty", "")

	output := buf.String()
	if !strings.Contains(output, `title="API changes"`) {
		t.Errorf("value with spaces should be quoted, got: %s", output)
	}
	if !strings.Contains(output, `empty=""`) {
		t.Errorf("empty value should be quoted, got: %s", output)
	}
}

func TestTextHandler_Levels(t *testing.T) {
	tests := []struct {
		logFunc  func(*slog.Logger)
		expected string
	}{
		{func(l *slog.Logger) { l.Debug("debug") }, "[debug]"},
		{func(l *slog.Logger) { l.Info("info") }, "[info]"},
		{func(l *slog.Logger) { l.Warn("warn") }, "[warn]"},
		{func(l *slog.Logger) { l.Error("error") }, "[error]"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			var buf bytes.Buffer
			tt.logFunc(NewLogger(&buf, slog.LevelDebug))
			if !strings.Contains(buf.String(), tt.expected) {
				t.Errorf("expected %s in output, got: %s", tt.expected, buf.String())
			}
		})
	}
}

func TestTextHandler_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, slog.LevelWarn)

	logger.Debug("debug message")
	logger.Info("info message")
	logger.Warn("warn message")

	output := buf.String()
	if strings.Contains(output, "debug message") || strings.Contains(output, "info message") {
		t.Errorf("records below warn should be filtered, got: %s", output)
	}
	if !strings.Contains(output, "warn message") {
		t.Error("warn message should be included")
	}
}

func TestTextHandler_AttrsAndGroups(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, slog.LevelInfo).
		With("run", "r1").
		WithGroup("collect").
		With("artifact", "main")

	logger.Info("done", "elements", 7)

	output := buf.String()
	for _, want := range []string{"run=r1", "collect.artifact=main", "collect.elements=7"} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output, got: %s", want, output)
		}
	}
}

func TestLevelFromString(t *testing.T) {
	tests := []struct {
		input    string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"silent", LevelSilent},
		{"unknown", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := LevelFromString(tt.input); got != tt.expected {
				t.Errorf("LevelFromString(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}

	if _, ok := ParseLevel("verbose"); ok {
		t.Error("ParseLevel(verbose) should report failure")
	}
}

func TestLevelFromVerbosity(t *testing.T) {
	tests := []struct {
		verbosity int
		quiet     bool
		expected  slog.Level
	}{
		{0, false, slog.LevelWarn},
		{1, false, slog.LevelInfo},
		{2, false, slog.LevelDebug},
		{3, false, slog.LevelDebug},
		{0, true, LevelSilent},
		{5, true, LevelSilent},
	}

	for _, tt := range tests {
		if got := LevelFromVerbosity(tt.verbosity, tt.quiet); got != tt.expected {
			t.Errorf("LevelFromVerbosity(%d, %v) = %v, want %v", tt.verbosity, tt.quiet, got, tt.expected)
		}
	}
}

func TestTeeHandler(t *testing.T) {
	var buf1, buf2 bytes.Buffer
	h1 := NewTextHandler(&buf1, &slog.HandlerOptions{Level: slog.LevelInfo})
	h2 := NewTextHandler(&buf2, &slog.HandlerOptions{Level: slog.LevelWarn})

	logger := slog.New(NewTeeHandler(h1, h2)).With("run", "r1")
	logger.Info("info message")
	logger.Warn("warn message")

	if !strings.Contains(buf1.String(), "info message") || !strings.Contains(buf1.String(), "warn message") {
		t.Errorf("buf1 should contain both records, got: %s", buf1.String())
	}
	if strings.Contains(buf2.String(), "info message") {
		t.Error("buf2 should not contain info message")
	}
	if !strings.Contains(buf2.String(), "run=r1") {
		t.Error("attributes should reach every handler")
	}
}

func TestNewDiscardLogger(t *testing.T) {
	logger := NewDiscardLogger()
	logger.Error("dropped")
	if logger.Enabled(context.Background(), slog.LevelError) {
		t.Error("discard logger should not be enabled")
	}
}
