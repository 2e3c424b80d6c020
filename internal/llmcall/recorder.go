package llmcall

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/skillsync/skillextract/internal/providers"
)

// Recorder appends calls as JSON lines to a writer.
// A nil *Recorder records nothing.
type Recorder struct {
	mu     sync.Mutex
	w      io.Writer
	closer io.Closer
	logger *slog.Logger
}

// NewRecorder creates a recorder writing to w.
func NewRecorder(w io.Writer, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{w: w, logger: logger}
}

// OpenFile creates a recorder appending to path, creating parent directories.
func OpenFile(path string, logger *slog.Logger) (*Recorder, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create trace directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open trace file: %w", err)
	}
	r := NewRecorder(f, logger)
	r.closer = f
	return r, nil
}

// Record captures an LLM call. Write failures are logged, never returned.
func (r *Recorder) Record(result *providers.ChatResult, opts RecordOptions) {
	if r == nil {
		return
	}
	r.RecordCall(FromChatResult(result, opts))
}

// RecordCall captures an already-constructed Call.
func (r *Recorder) RecordCall(call *Call) {
	if r == nil || call == nil {
		return
	}

	line, err := json.Marshal(call)
	if err != nil {
		r.logger.Warn("failed to serialize LLM call record", "id", call.ID, "error", err)
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, err := r.w.Write(append(line, '\n')); err != nil {
		r.logger.Warn("failed to write LLM call record", "id", call.ID, "error", err)
	}
}

// Close closes the underlying file, if the recorder opened one.
func (r *Recorder) Close() error {
	if r == nil || r.closer == nil {
		return nil
	}
	return r.closer.Close()
}
