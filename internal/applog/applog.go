// Package applog appends client-reported log lines to per-day files so
// frontend diagnostics survive page reloads.
package applog

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Writer appends messages to a date-stamped log file in its directory.
type Writer struct {
	dir string
	mu  sync.Mutex
}

// NewWriter returns a writer storing logs under dir.
func NewWriter(dir string) *Writer {
	return &Writer{dir: dir}
}

// Append writes one message, newline-terminated, to today's log file.
func (w *Writer) Append(message string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	path := filepath.Join(w.dir, time.Now().Format("2006-01-02")+".log")
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer file.Close()

	if _, err := file.WriteString(message + "\n"); err != nil {
		return fmt.Errorf("failed to append log entry: %w", err)
	}
	return nil
}
