// Package extractor provides the skill-extraction collaborators: a bridge to
// the LAiSER Python package and LLM-backed extractors, behind a lazily
// initialized handle.
package extractor

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"

	"github.com/skillsync/skillextract/internal/skills"
)

// Factory builds a ready-to-use extractor. It may block while a model loads.
type Factory func(ctx context.Context) (skills.Extractor, error)

// Lazy defers building its extractor until the first extraction and builds
// it at most once per process. A failed build is remembered and returned on
// every later call.
type Lazy struct {
	factory Factory
	model   string
	logger  *slog.Logger

	once sync.Once
	ex   skills.Extractor
	err  error
}

// NewLazy wraps factory. model is reported before and after initialization.
func NewLazy(model string, factory Factory, logger *slog.Logger) *Lazy {
	if logger == nil {
		logger = slog.Default()
	}
	return &Lazy{factory: factory, model: model, logger: logger}
}

// Init builds the extractor if it has not been built yet.
func (l *Lazy) Init(ctx context.Context) error {
	l.once.Do(func() {
		l.logger.Debug("initializing extractor", "model", l.model)
		ex, err := l.factory(ctx)
		if err != nil {
			l.err = classifyInit(err)
			l.logger.Warn("extractor initialization failed", "model", l.model, "error", err)
			return
		}
		l.ex = ex
	})
	return l.err
}

// Extract initializes on first use and delegates to the built extractor.
func (l *Lazy) Extract(ctx context.Context, doc skills.Document) (skills.Output, error) {
	if err := l.Init(ctx); err != nil {
		return skills.Output{}, err
	}
	return l.ex.Extract(ctx, doc)
}

// Model returns the model identifier this handle serves.
func (l *Lazy) Model() string {
	return l.model
}

// Close releases the built extractor, if any.
func (l *Lazy) Close() error {
	if l.ex == nil {
		return nil
	}
	if c, ok := l.ex.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// classifyInit keeps dependency and initialization classes and folds
// anything else into ErrInitialization.
func classifyInit(err error) error {
	if errors.Is(err, skills.ErrMissingDependency) || errors.Is(err, skills.ErrInitialization) {
		return err
	}
	return skills.InitializationError(err)
}

var (
	_ skills.Extractor     = (*Lazy)(nil)
	_ skills.ModelReporter = (*Lazy)(nil)
)
