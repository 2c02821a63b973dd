// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

// =============================================================================
// Level Tests
// =============================================================================

func TestLevel_String(t *testing.T) {
	tests := []struct {
		level Level
		want  string
	}{
		{LevelDebug, "DEBUG"},
		{LevelInfo, "INFO"},
		{LevelWarn, "WARN"},
		{LevelError, "ERROR"},
		{Level(99), "UNKNOWN"},
		{Level(-1), "UNKNOWN"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			got := tt.level.String()
			if got != tt.want {
				t.Errorf("Level.String() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
	}{
		{"debug", LevelDebug},
		{"info", LevelInfo},
		{"warn", LevelWarn},
		{"error", LevelError},
		{"", LevelInfo},
		{"verbose", LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ParseLevel(tt.in); got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestLevel_toSlogLevel(t *testing.T) {
	tests := []struct {
		level Level
		want  slog.Level
	}{
		{LevelDebug, slog.LevelDebug},
		{LevelInfo, slog.LevelInfo},
		{LevelWarn, slog.LevelWarn},
		{LevelError, slog.LevelError},
		{Level(99), slog.LevelInfo},
	}

	for _, tt := range tests {
		if got := tt.level.toSlogLevel(); got != tt.want {
			t.Errorf("Level(%d).toSlogLevel() = %v, want %v", tt.level, got, tt.want)
		}
	}
}

// =============================================================================
// Constructor Tests
// =============================================================================

func TestNew_DefaultConfig(t *testing.T) {
	logger := New(Config{})
	defer logger.Close()

	if logger.slog == nil {
		t.Error("New() created logger with nil slog")
	}
	if logger.file != nil {
		t.Error("New() opened a file without LogDir set")
	}
}

func TestNew_WithLogDir(t *testing.T) {
	dir := t.TempDir()
	logger := New(Config{
		Level:   LevelDebug,
		LogDir:  dir,
		Service: "testsvc",
		Quiet:   true,
	})

	logger.Info("file test message", "key", "value")
	if err := logger.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}

	expectedFile := filepath.Join(dir, "testsvc_"+time.Now().Format("2006-01-02")+".log")
	data, err := os.ReadFile(expectedFile)
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}

	// File logs are always JSON, one object per line.
	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(data), &entry); err != nil {
		t.Fatalf("log file is not JSON: %v", err)
	}
	if entry["msg"] != "file test message" {
		t.Errorf("msg = %v, want %q", entry["msg"], "file test message")
	}
	if entry["key"] != "value" {
		t.Errorf("key = %v, want %q", entry["key"], "value")
	}
	if entry["service"] != "testsvc" {
		t.Errorf("service = %v, want %q", entry["service"], "testsvc")
	}
}

func TestNew_WithLogDir_NoService(t *testing.T) {
	dir := t.TempDir()
	logger := New(Config{LogDir: dir, Quiet: true})
	logger.Info("unnamed service")
	if err := logger.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}

	expectedFile := filepath.Join(dir, "relgraph_"+time.Now().Format("2006-01-02")+".log")
	if _, err := os.Stat(expectedFile); err != nil {
		t.Errorf("expected default-named log file: %v", err)
	}
}

func TestDefault(t *testing.T) {
	logger := Default()
	defer logger.Close()

	if logger.config.Level != LevelInfo {
		t.Errorf("Default() level = %v, want LevelInfo", logger.config.Level)
	}
	if logger.config.Service != "relgraph" {
		t.Errorf("Default() service = %q, want %q", logger.config.Service, "relgraph")
	}
}

func TestInstall(t *testing.T) {
	prev := slog.Default()
	defer slog.SetDefault(prev)

	logger := New(Config{Quiet: true})
	defer logger.Close()
	logger.Install()

	if slog.Default() != logger.slog {
		t.Error("Install() did not set the process-wide default")
	}
}

// =============================================================================
// Logging Behavior Tests
// =============================================================================

// captureLogger builds a logger whose output lands in a buffer.
func captureLogger(level Level) (*Logger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	handler := slog.NewJSONHandler(buf, &slog.HandlerOptions{
		Level: level.toSlogLevel(),
	})
	return &Logger{slog: slog.New(handler)}, buf
}

func TestLogger_LevelFiltering(t *testing.T) {
	logger, buf := captureLogger(LevelWarn)

	logger.Debug("debug message")
	logger.Info("info message")
	logger.Warn("warn message")
	logger.Error("error message")

	out := buf.String()
	if strings.Contains(out, "debug message") || strings.Contains(out, "info message") {
		t.Error("messages below the minimum level were emitted")
	}
	if !strings.Contains(out, "warn message") || !strings.Contains(out, "error message") {
		t.Error("messages at or above the minimum level were dropped")
	}
}

func TestLogger_With(t *testing.T) {
	logger, buf := captureLogger(LevelDebug)

	child := logger.With("pass_id", "pass-42")
	child.Info("building snapshot")

	if !strings.Contains(buf.String(), "pass-42") {
		t.Error("With() attribute missing from child logger output")
	}

	buf.Reset()
	logger.Info("parent message")
	if strings.Contains(buf.String(), "pass-42") {
		t.Error("With() attribute leaked into the parent logger")
	}
}

func TestLogger_Slog(t *testing.T) {
	logger, buf := captureLogger(LevelDebug)
	logger.Slog().Info("direct slog use")
	if !strings.Contains(buf.String(), "direct slog use") {
		t.Error("Slog() logger did not share the handler")
	}
}

func TestLogger_Close(t *testing.T) {
	logger := New(Config{Quiet: true})
	if err := logger.Close(); err != nil {
		t.Errorf("Close() without file failed: %v", err)
	}

	logger = New(Config{LogDir: t.TempDir(), Quiet: true})
	if err := logger.Close(); err != nil {
		t.Errorf("Close() with file failed: %v", err)
	}
	// Second close is a no-op.
	if err := logger.Close(); err != nil {
		t.Errorf("second Close() failed: %v", err)
	}
}

func TestLogger_ConcurrentUse(t *testing.T) {
	logger := New(Config{LogDir: t.TempDir(), Quiet: true})
	defer logger.Close()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				logger.Info("concurrent message", "goroutine", n, "iteration", j)
			}
		}(i)
	}
	wg.Wait()
}

// =============================================================================
// Multi-Handler Tests
// =============================================================================

func TestMultiHandler(t *testing.T) {
	bufA := &bytes.Buffer{}
	bufB := &bytes.Buffer{}
	h := &multiHandler{handlers: []slog.Handler{
		slog.NewTextHandler(bufA, &slog.HandlerOptions{Level: slog.LevelDebug}),
		slog.NewJSONHandler(bufB, &slog.HandlerOptions{Level: slog.LevelWarn}),
	}}

	ctx := context.Background()
	if !h.Enabled(ctx, slog.LevelDebug) {
		t.Error("Enabled(Debug) = false with a debug handler present")
	}

	logger := slog.New(h)
	logger.Info("fan out")
	if !strings.Contains(bufA.String(), "fan out") {
		t.Error("text handler did not receive the record")
	}
	if bufB.Len() != 0 {
		t.Error("warn-level handler received an info record")
	}

	logger.Warn("both destinations")
	if !strings.Contains(bufA.String(), "both destinations") ||
		!strings.Contains(bufB.String(), "both destinations") {
		t.Error("warn record not fanned out to both handlers")
	}
}

func TestMultiHandler_WithAttrsAndGroup(t *testing.T) {
	buf := &bytes.Buffer{}
	var h slog.Handler = &multiHandler{handlers: []slog.Handler{
		slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}),
	}}
	h = h.WithAttrs([]slog.Attr{slog.String("service", "engine")})
	h = h.WithGroup("pass")

	slog.New(h).Info("grouped", "id", "p1")
	out := buf.String()
	if !strings.Contains(out, `"service":"engine"`) {
		t.Errorf("WithAttrs attribute missing: %s", out)
	}
	if !strings.Contains(out, `"pass"`) {
		t.Errorf("WithGroup group missing: %s", out)
	}
}

func TestMultiHandler_Empty(t *testing.T) {
	h := &multiHandler{}
	if h.Enabled(context.Background(), slog.LevelError) {
		t.Error("empty multiHandler reported enabled")
	}
	if err := h.Handle(context.Background(), slog.Record{}); err != nil {
		t.Errorf("empty multiHandler Handle() failed: %v", err)
	}
}

// =============================================================================
// Helper Tests
// =============================================================================

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skipf("no home directory: %v", err)
	}

	tests := []struct {
		in   string
		want string
	}{
		{"~/logs", filepath.Join(home, "logs")},
		{"/var/log/relgraph", "/var/log/relgraph"},
		{"relative/path", "relative/path"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := expandPath(tt.in); got != tt.want {
			t.Errorf("expandPath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
