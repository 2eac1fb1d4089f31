package processor

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// StreamLogger writes a run transcript to a file as it happens: the plan,
// each stage's input and output, the review. Useful with tail -f on long
// runs. A logger created with an empty path is a no-op.
type StreamLogger struct {
	w       io.Writer
	file    *os.File
	mu      sync.Mutex
	enabled bool
	now     func() time.Time
}

// NewStreamLogger creates a stream logger that writes to the specified file
func NewStreamLogger(path string) (*StreamLogger, error) {
	if path == "" {
		return &StreamLogger{enabled: false, now: time.Now}, nil
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open stream log file: %w", err)
	}

	return &StreamLogger{
		w:       file,
		file:    file,
		enabled: true,
		now:     time.Now,
	}, nil
}

// newWriterStreamLogger logs to an arbitrary writer
func newWriterStreamLogger(w io.Writer) *StreamLogger {
	return &StreamLogger{w: w, enabled: true, now: time.Now}
}

// Close closes the stream log file
func (s *StreamLogger) Close() error {
	if s.file != nil {
		return s.file.Close()
	}
	return nil
}

// IsEnabled returns whether stream logging is enabled
func (s *StreamLogger) IsEnabled() bool {
	return s != nil && s.enabled
}

// Log writes a message to the stream log with timestamp
func (s *StreamLogger) Log(format string, args ...interface{}) {
	if !s.IsEnabled() {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.logLocked(format, args...)
}

func (s *StreamLogger) logLocked(format string, args ...interface{}) {
	timestamp := s.now().Format("15:04:05")
	fmt.Fprintf(s.w, "[%s] %s\n", timestamp, fmt.Sprintf(format, args...))
	if s.file != nil {
		s.file.Sync() // flush for tail -f
	}
}

// LogSection writes a section header
func (s *StreamLogger) LogSection(title string) {
	if !s.IsEnabled() {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logLocked("═══════════════════════════════════════════════════════════════")
	s.logLocked("  %s", title)
	s.logLocked("═══════════════════════════════════════════════════════════════")
}

// LogBlock writes a labelled multi-line text, truncated after maxLines.
// Parallel stages each write a whole block under one lock so their lines
// never interleave. maxLines <= 0 means no limit.
func (s *StreamLogger) LogBlock(label, text string, maxLines int) {
	if !s.IsEnabled() {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	lines := strings.Split(text, "\n")
	if maxLines > 0 && len(lines) > maxLines {
		s.logLocked("%s (%d lines, showing first %d):", label, len(lines), maxLines)
		for _, line := range lines[:maxLines] {
			s.logLocked("  │ %s", line)
		}
		s.logLocked("  ... (%d more lines)", len(lines)-maxLines)
		return
	}
	s.logLocked("%s:", label)
	for _, line := range lines {
		s.logLocked("  │ %s", line)
	}
}

// LogError writes an error message
func (s *StreamLogger) LogError(err error) {
	if !s.IsEnabled() {
		return
	}
	s.Log("✖ ERROR: %v", err)
}
