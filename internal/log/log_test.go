package log

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestNewWithWriter(t *testing.T) {
	var buf bytes.Buffer

	logger := NewWithWriter(&buf, Config{Level: slog.LevelDebug})
	logger.Debug("loading corpus", "path", "kb/kb.txt")

	out := buf.String()
	if !strings.Contains(out, "loading corpus") {
		t.Errorf("expected output to contain message, got: %s", out)
	}
	if !strings.Contains(out, "path=kb/kb.txt") {
		t.Errorf("expected output to contain attribute, got: %s", out)
	}
}

func TestNewWithWriter_JSON(t *testing.T) {
	var buf bytes.Buffer

	logger := NewWithWriter(&buf, Config{JSON: true})
	logger.Info("provider selected", "key", "ollama")

	out := buf.String()
	if !strings.Contains(out, `"msg":"provider selected"`) {
		t.Errorf("expected JSON output with msg field, got: %s", out)
	}
}

func TestNewWithWriter_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer

	logger := NewWithWriter(&buf, Config{Level: slog.LevelWarn})
	logger.Info("should be dropped")
	logger.Warn("should appear")

	out := buf.String()
	if strings.Contains(out, "should be dropped") {
		t.Errorf("info record leaked through warn level: %s", out)
	}
	if !strings.Contains(out, "should appear") {
		t.Errorf("warn record missing: %s", out)
	}
}

func TestNewNop(t *testing.T) {
	logger := NewNop()
	if logger == nil {
		t.Fatal("NewNop() returned nil")
	}

	// Should not panic
	logger.Info("discarded")
	logger.Error("discarded too")
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		" warn ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"verbose": slog.LevelInfo, // unknown falls back to info
		"":        slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
