// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package logging

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLevel_String(t *testing.T) {
	tests := []struct {
		level Level
		want  string
	}{
		{LevelDebug, "DEBUG"},
		{LevelInfo, "INFO"},
		{LevelWarn, "WARN"},
		{LevelError, "ERROR"},
		{Level(42), "UNKNOWN"},
	}
	for _, tt := range tests {
		if got := tt.level.String(); got != tt.want {
			t.Errorf("Level(%d).String() = %q, want %q", tt.level, got, tt.want)
		}
	}
}

// logFilePath returns the file New would write for today.
func logFilePath(dir, service string) string {
	name := service + "_" + time.Now().Format("2006-01-02") + ".log"
	return filepath.Join(dir, name)
}

// readLogLines decodes each JSON line of a log file.
func readLogLines(t *testing.T, path string) []map[string]any {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	var entries []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("decode log line %q: %v", line, err)
		}
		entries = append(entries, entry)
	}
	return entries
}

func TestNew_FileLogging(t *testing.T) {
	dir := t.TempDir()
	logger := New(Config{
		Level:   LevelInfo,
		Service: "covbuddy_test",
		LogDir:  dir,
		Quiet:   true,
	})

	logger.Info("run ingested", "run_id", "abc", "regions", 3)
	if err := logger.Close(); err != nil {
		t.Fatalf("Close() = %v", err)
	}

	entries := readLogLines(t, logFilePath(dir, "covbuddy_test"))
	if len(entries) != 1 {
		t.Fatalf("got %d log entries, want 1", len(entries))
	}
	entry := entries[0]
	if entry["msg"] != "run ingested" {
		t.Errorf("msg = %v, want %q", entry["msg"], "run ingested")
	}
	if entry["service"] != "covbuddy_test" {
		t.Errorf("service = %v, want %q", entry["service"], "covbuddy_test")
	}
	if entry["run_id"] != "abc" {
		t.Errorf("run_id = %v, want %q", entry["run_id"], "abc")
	}
}

func TestNew_LevelFilter(t *testing.T) {
	dir := t.TempDir()
	logger := New(Config{
		Level:   LevelWarn,
		Service: "covbuddy_test",
		LogDir:  dir,
		Quiet:   true,
	})

	logger.Debug("dropped")
	logger.Info("dropped too")
	logger.Warn("kept")
	if err := logger.Close(); err != nil {
		t.Fatalf("Close() = %v", err)
	}

	entries := readLogLines(t, logFilePath(dir, "covbuddy_test"))
	if len(entries) != 1 {
		t.Fatalf("got %d log entries, want only the warning", len(entries))
	}
	if entries[0]["level"] != "WARN" {
		t.Errorf("level = %v, want WARN", entries[0]["level"])
	}
}

func TestWith_AttachesAttributes(t *testing.T) {
	dir := t.TempDir()
	logger := New(Config{
		Service: "covbuddy_test",
		LogDir:  dir,
		Quiet:   true,
	})

	logger.With("request_id", "r1").Info("handled")
	if err := logger.Close(); err != nil {
		t.Fatalf("Close() = %v", err)
	}

	entries := readLogLines(t, logFilePath(dir, "covbuddy_test"))
	if len(entries) != 1 {
		t.Fatalf("got %d log entries, want 1", len(entries))
	}
	if entries[0]["request_id"] != "r1" {
		t.Errorf("request_id = %v, want %q", entries[0]["request_id"], "r1")
	}
}

func TestNew_QuietWithoutLogDir(t *testing.T) {
	// Nothing to write to; logging must still be safe to call.
	logger := New(Config{Quiet: true})
	logger.Info("discarded")
	if err := logger.Close(); err != nil {
		t.Errorf("Close() = %v", err)
	}
}

func TestNew_BadLogDirFallsBack(t *testing.T) {
	// A file in place of the directory makes MkdirAll fail; the logger
	// must come up anyway.
	dir := t.TempDir()
	blocker := filepath.Join(dir, "not-a-dir")
	if err := os.WriteFile(blocker, []byte("x"), 0640); err != nil {
		t.Fatal(err)
	}

	logger := New(Config{LogDir: filepath.Join(blocker, "logs"), Quiet: true})
	logger.Info("dropped")
	if err := logger.Close(); err != nil {
		t.Errorf("Close() = %v", err)
	}
}

func TestClose_Idempotent(t *testing.T) {
	logger := New(Config{Service: "covbuddy_test", LogDir: t.TempDir(), Quiet: true})
	if err := logger.Close(); err != nil {
		t.Fatalf("first Close() = %v", err)
	}
	if err := logger.Close(); err != nil {
		t.Errorf("second Close() = %v", err)
	}
}

func TestSlog_NotNil(t *testing.T) {
	logger := New(Config{})
	if logger.Slog() == nil {
		t.Fatal("Slog() returned nil")
	}
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	if got := expandHome("~/logs"); got != filepath.Join(home, "logs") {
		t.Errorf("expandHome(~/logs) = %q", got)
	}
	if got := expandHome("/var/log"); got != "/var/log" {
		t.Errorf("expandHome(/var/log) = %q", got)
	}
}
