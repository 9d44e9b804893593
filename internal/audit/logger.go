package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/groundstation/gsd/internal/session"
)

// FileName is the audit trail file inside the configured directory.
const FileName = "audit.jsonl"

// Result codes.
const (
	CodeSuccess          = "SUCCESS"
	CodeInvalidParameter = "INVALID_PARAMETER"
	CodeLinkFailed       = "LINK_FAILED"
	CodeError            = "ERROR"
)

// Entry is a single audit line.
type Entry struct {
	Timestamp time.Time              `json:"ts"`
	Client    string                 `json:"client"`
	Action    string                 `json:"action"`
	Params    map[string]interface{} `json:"params"`
	Outcome   string                 `json:"outcome"`
	Code      string                 `json:"code"`
	Error     string                 `json:"error,omitempty"`
}

// Options controls rotation. Zero values fall back to lumberjack defaults.
type Options struct {
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// Logger writes audit entries. It satisfies session.AuditLogger.
type Logger struct {
	mu       sync.Mutex
	filePath string
	out      *lumberjack.Logger
	closed   bool
	now      func() time.Time
}

var _ session.AuditLogger = (*Logger)(nil)

// NewLogger creates a logger writing to logDir/audit.jsonl.
func NewLogger(logDir string, opts Options) (*Logger, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	filePath := filepath.Join(logDir, FileName)

	return &Logger{
		filePath: filePath,
		out: &lumberjack.Logger{
			Filename:   filePath,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
			MaxAge:     opts.MaxAgeDays,
		},
		now: time.Now,
	}, nil
}

// LogAction records one controller action. A nil err is a success.
func (l *Logger) LogAction(ctx context.Context, action string, params map[string]interface{}, err error) {
	if params == nil {
		params = make(map[string]interface{})
	}

	entry := Entry{
		Timestamp: l.now().UTC(),
		Client:    clientFromContext(ctx),
		Action:    action,
		Params:    params,
		Outcome:   "SUCCESS",
		Code:      codeFromError(err),
	}
	if err != nil {
		entry.Outcome = "FAILURE"
		entry.Error = err.Error()
	}

	l.writeEntry(entry)
}

func (l *Logger) writeEntry(entry Entry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return
	}

	jsonData, err := json.Marshal(entry)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to marshal audit entry: %v\n", err)
		return
	}

	if _, err := l.out.Write(append(jsonData, '\n')); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write audit entry: %v\n", err)
	}
}

func codeFromError(err error) string {
	switch {
	case err == nil:
		return CodeSuccess
	case errors.Is(err, session.ErrInvalidParameter):
		return CodeInvalidParameter
	case errors.Is(err, session.ErrLinkFailed):
		return CodeLinkFailed
	default:
		return CodeError
	}
}

// Rotate closes the current file, renames it with a timestamp and opens a new one.
func (l *Logger) Rotate() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return errors.New("audit logger closed")
	}
	return l.out.Rotate()
}

// Close closes the logger. Later entries are dropped.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}
	l.closed = true
	return l.out.Close()
}

// FilePath returns the path to the active audit file.
func (l *Logger) FilePath() string {
	return l.filePath
}
