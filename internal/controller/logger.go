package controller

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// SessionLogger records every controller decision for a task to an
// append-only log file so a human can replay why the loop did what it did.
// A zero-value logger is a no-op.
type SessionLogger struct {
	mu   sync.Mutex
	file *os.File
}

// NewSessionLogger creates a logger writing to the specified path.
// If the path is empty, returns a no-op logger.
// Creates parent directories if they don't exist.
func NewSessionLogger(logPath string) (*SessionLogger, error) {
	if logPath == "" {
		return &SessionLogger{}, nil
	}

	dir := filepath.Dir(logPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}

	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}

	return &SessionLogger{file: f}, nil
}

// NewSessionLoggerForTask creates a logger under the session data directory.
// Returns a no-op logger if the directory cannot be created.
func NewSessionLoggerForTask(dataDir, taskID string) *SessionLogger {
	logPath := filepath.Join(dataDir, "logs", taskID+".log")
	logger, err := NewSessionLogger(logPath)
	if err != nil {
		return &SessionLogger{}
	}
	return logger
}

// Log writes a timestamped, categorized message.
func (l *SessionLogger) Log(category, format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return
	}

	timestamp := time.Now().Format("2006-01-02 15:04:05.000")
	message := fmt.Sprintf(format, args...)
	fmt.Fprintf(l.file, "[%s] [%s] %s\n", timestamp, category, message)
}

// Close closes the underlying log file.
func (l *SessionLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}
