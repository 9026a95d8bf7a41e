package orchestrator

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// DebugLogger appends timestamped trace lines to a file. A zero or nil
// logger discards everything, so call sites never need to guard.
type DebugLogger struct {
	mu   sync.Mutex
	file *os.File
}

// NewDebugLogger opens (creating directories as needed) a debug log at
// path. An empty path yields a discard logger.
func NewDebugLogger(path string) (*DebugLogger, error) {
	if path == "" {
		return &DebugLogger{}, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}

	l := &DebugLogger{file: f}
	l.Log("=== run started %s (pid %d) ===", time.Now().Format(time.RFC3339), os.Getpid())
	return l, nil
}

// NewDebugLoggerForDir places the debug log under dir's .autonomica/logs.
// Any failure degrades to a discard logger rather than blocking the run.
func NewDebugLoggerForDir(dir string) *DebugLogger {
	l, err := NewDebugLogger(filepath.Join(dir, ".autonomica", "logs", "orchestrator-debug.log"))
	if err != nil {
		return &DebugLogger{}
	}
	return l
}

// NopLogger returns a logger that discards all output.
func NopLogger() *DebugLogger {
	return &DebugLogger{}
}

// Log writes one formatted line prefixed with a millisecond timestamp.
func (l *DebugLogger) Log(format string, args ...interface{}) {
	if l == nil || l.file == nil {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	fmt.Fprintf(l.file, "[%s] %s\n", time.Now().Format("15:04:05.000"), fmt.Sprintf(format, args...))
	// Sync per line so the trace survives a crash mid-run.
	l.file.Sync()
}

// Close flushes and closes the underlying file.
func (l *DebugLogger) Close() error {
	if l == nil || l.file == nil {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	return l.file.Close()
}

// The mode drivers and the graph run without a handle on the orchestrator,
// so the active logger is also published package-wide.

var (
	pkgLoggerMu sync.RWMutex
	pkgLogger   *DebugLogger
)

func setPackageLogger(l *DebugLogger) {
	pkgLoggerMu.Lock()
	defer pkgLoggerMu.Unlock()
	pkgLogger = l
}

// debugLog traces through the package-wide logger, if one is set.
func debugLog(format string, args ...interface{}) {
	pkgLoggerMu.RLock()
	l := pkgLogger
	pkgLoggerMu.RUnlock()
	if l != nil {
		l.Log(format, args...)
	}
}
