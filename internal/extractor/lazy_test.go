package extractor

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/skillsync/skillextract/internal/skills"
)

type closingExtractor struct {
	closed atomic.Bool
}

func (c *closingExtractor) Extract(context.Context, skills.Document) (skills.Output, error) {
	return skills.HitsOutput(skills.Bare("excel")), nil
}

func (c *closingExtractor) Close() error {
	c.closed.Store(true)
	return nil
}

func TestLazy(t *testing.T) {
	ctx := context.Background()

	t.Run("builds once across calls", func(t *testing.T) {
		var builds atomic.Int32
		inner := &closingExtractor{}
		l := NewLazy("m", func(context.Context) (skills.Extractor, error) {
			builds.Add(1)
			return inner, nil
		}, nil)

		if builds.Load() != 0 {
			t.Fatal("factory must not run before first use")
		}

		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := l.Extract(ctx, skills.Document{ID: "doc_1", Text: "x"}); err != nil {
					t.Errorf("Extract() error = %v", err)
				}
			}()
		}
		wg.Wait()

		if builds.Load() != 1 {
			t.Errorf("builds = %d, want 1", builds.Load())
		}
		if err := l.Close(); err != nil {
			t.Fatalf("Close() error = %v", err)
		}
		if !inner.closed.Load() {
			t.Error("Close should close the built extractor")
		}
	})

	t.Run("failure is cached", func(t *testing.T) {
		var builds atomic.Int32
		l := NewLazy("m", func(context.Context) (skills.Extractor, error) {
			builds.Add(1)
			return nil, errors.New("weights missing")
		}, nil)

		for i := 0; i < 3; i++ {
			_, err := l.Extract(ctx, skills.Document{ID: "doc_1", Text: "x"})
			if !errors.Is(err, skills.ErrInitialization) {
				t.Fatalf("expected ErrInitialization, got %v", err)
			}
		}
		if builds.Load() != 1 {
			t.Errorf("builds = %d, want 1", builds.Load())
		}
	})

	t.Run("dependency failure keeps its class", func(t *testing.T) {
		l := NewLazy("m", func(context.Context) (skills.Extractor, error) {
			return nil, skills.MissingDependencyError("python3 not found", nil)
		}, nil)

		err := l.Init(ctx)
		if !errors.Is(err, skills.ErrMissingDependency) {
			t.Fatalf("expected ErrMissingDependency, got %v", err)
		}
		if errors.Is(err, skills.ErrInitialization) {
			t.Error("dependency failure must not become an initialization failure")
		}
	})

	t.Run("soft failure through Extract", func(t *testing.T) {
		l := NewLazy("m", func(context.Context) (skills.Extractor, error) {
			return nil, errors.New("boom")
		}, nil)

		res := skills.Extract(ctx, "Senior accountant", l)
		if res.Err == nil || res.Err.Error() != "Failed to initialize extractor" {
			t.Fatalf("unexpected error %v", res.Err)
		}
		if skills.IsFatal(res.Err) {
			t.Error("initialization failure must not be fatal")
		}
		if res.Model != "m" {
			t.Errorf("Model = %q, want m", res.Model)
		}
	})

	t.Run("close before init", func(t *testing.T) {
		l := NewLazy("m", func(context.Context) (skills.Extractor, error) {
			t.Fatal("factory must not run on Close")
			return nil, nil
		}, nil)
		if err := l.Close(); err != nil {
			t.Fatalf("Close() error = %v", err)
		}
	})
}
