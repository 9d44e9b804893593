package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/groundstation/gsd/internal/session"
)

func newTestLogger(t *testing.T) *Logger {
	t.Helper()
	logger, err := NewLogger(t.TempDir(), Options{MaxSizeMB: 1, MaxBackups: 2})
	if err != nil {
		t.Fatalf("NewLogger() failed: %v", err)
	}
	t.Cleanup(func() { _ = logger.Close() })
	return logger
}

func readEntries(t *testing.T, path string) []Entry {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}

	var entries []Entry
	for _, line := range strings.Split(strings.TrimSpace(string(content)), "\n") {
		var entry Entry
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("Failed to unmarshal log entry %q: %v", line, err)
		}
		entries = append(entries, entry)
	}
	return entries
}

func TestNewLogger(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "audit")

	logger, err := NewLogger(dir, Options{})
	if err != nil {
		t.Fatalf("NewLogger() failed: %v", err)
	}
	defer func() { _ = logger.Close() }()

	if _, err := os.Stat(dir); err != nil {
		t.Errorf("Log directory was not created: %v", err)
	}

	expectedPath := filepath.Join(dir, FileName)
	if logger.FilePath() != expectedPath {
		t.Errorf("Expected file path %s, got %s", expectedPath, logger.FilePath())
	}
}

func TestLogActionSuccess(t *testing.T) {
	logger := newTestLogger(t)
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.FixedZone("CEST", 2*3600))
	logger.now = func() time.Time { return fixed }

	ctx := WithClient(context.Background(), "10.0.0.5:51234")
	logger.LogAction(ctx, session.ActionConnect, map[string]interface{}{"com_port": "COM3", "baudrate": 9600}, nil)

	entries := readEntries(t, logger.FilePath())
	if len(entries) != 1 {
		t.Fatalf("Expected 1 log entry, got %d", len(entries))
	}

	entry := entries[0]
	if entry.Action != "connect" {
		t.Errorf("Expected action 'connect', got '%s'", entry.Action)
	}
	if entry.Client != "10.0.0.5:51234" {
		t.Errorf("Expected client '10.0.0.5:51234', got '%s'", entry.Client)
	}
	if entry.Outcome != "SUCCESS" || entry.Code != CodeSuccess {
		t.Errorf("Expected SUCCESS/SUCCESS, got %s/%s", entry.Outcome, entry.Code)
	}
	if entry.Params["com_port"] != "COM3" {
		t.Errorf("Expected com_port COM3, got %v", entry.Params["com_port"])
	}
	// JSON numbers decode as float64.
	if entry.Params["baudrate"] != float64(9600) {
		t.Errorf("Expected baudrate 9600, got %v", entry.Params["baudrate"])
	}
	if !entry.Timestamp.Equal(fixed) || entry.Timestamp.Location() != time.UTC {
		t.Errorf("Expected UTC timestamp %v, got %v", fixed.UTC(), entry.Timestamp)
	}
}

func TestLogActionFailureCodes(t *testing.T) {
	tests := []struct {
		err  error
		code string
	}{
		{fmt.Errorf("%w: missing baudrate or COM port", session.ErrInvalidParameter), CodeInvalidParameter},
		{fmt.Errorf("%w: no such file", session.ErrLinkFailed), CodeLinkFailed},
		{errors.New("boom"), CodeError},
	}

	logger := newTestLogger(t)
	for _, tt := range tests {
		logger.LogAction(context.Background(), session.ActionConnect, nil, tt.err)
	}

	entries := readEntries(t, logger.FilePath())
	if len(entries) != len(tests) {
		t.Fatalf("Expected %d entries, got %d", len(tests), len(entries))
	}
	for i, tt := range tests {
		entry := entries[i]
		if entry.Outcome != "FAILURE" {
			t.Errorf("Entry %d: expected outcome FAILURE, got %s", i, entry.Outcome)
		}
		if entry.Code != tt.code {
			t.Errorf("Entry %d: expected code %s, got %s", i, tt.code, entry.Code)
		}
		if entry.Error != tt.err.Error() {
			t.Errorf("Entry %d: expected error %q, got %q", i, tt.err.Error(), entry.Error)
		}
		if entry.Client != "unknown" {
			t.Errorf("Entry %d: expected client 'unknown', got %s", i, entry.Client)
		}
		if entry.Params == nil {
			t.Errorf("Entry %d: params should be an empty object", i)
		}
	}
}

func TestClose(t *testing.T) {
	logger := newTestLogger(t)
	logger.LogAction(context.Background(), session.ActionDisconnect, nil, nil)

	if err := logger.Close(); err != nil {
		t.Errorf("Close() failed: %v", err)
	}
	if err := logger.Close(); err != nil {
		t.Errorf("Second Close() failed: %v", err)
	}

	// Entries after close are dropped.
	logger.LogAction(context.Background(), session.ActionDisconnect, nil, nil)
	if entries := readEntries(t, logger.FilePath()); len(entries) != 1 {
		t.Errorf("Expected 1 entry after close, got %d", len(entries))
	}

	if err := logger.Rotate(); err == nil {
		t.Error("Rotate() after Close() should fail")
	}
}

func TestRotate(t *testing.T) {
	logger := newTestLogger(t)
	ctx := context.Background()

	logger.LogAction(ctx, session.ActionConnect, nil, nil)
	if err := logger.Rotate(); err != nil {
		t.Fatalf("Rotate() failed: %v", err)
	}
	logger.LogAction(ctx, session.ActionDisconnect, nil, nil)

	entries := readEntries(t, logger.FilePath())
	if len(entries) != 1 || entries[0].Action != "disconnect" {
		t.Errorf("Active file should hold only the post-rotation entry, got %+v", entries)
	}

	rotated, err := filepath.Glob(filepath.Join(filepath.Dir(logger.FilePath()), "audit-*.jsonl"))
	if err != nil {
		t.Fatalf("Failed to find rotated files: %v", err)
	}
	if len(rotated) != 1 {
		t.Errorf("Expected 1 rotated file, found %d", len(rotated))
	}
}

func TestConcurrentLogging(t *testing.T) {
	logger := newTestLogger(t)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			logger.LogAction(context.Background(), session.ActionConnect, map[string]interface{}{"baudrate": i}, nil)
		}(i)
	}
	wg.Wait()

	entries := readEntries(t, logger.FilePath())
	if len(entries) != 10 {
		t.Fatalf("Expected 10 log entries, got %d", len(entries))
	}
	for i, entry := range entries {
		if entry.Action != "connect" {
			t.Errorf("Entry %d: Expected action 'connect', got '%s'", i, entry.Action)
		}
	}
}
