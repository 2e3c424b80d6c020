package extractor

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/skillsync/skillextract/internal/llmcall"
	"github.com/skillsync/skillextract/internal/prompts"
	"github.com/skillsync/skillextract/internal/prompts/extract_skills"
	"github.com/skillsync/skillextract/internal/providers"
	"github.com/skillsync/skillextract/internal/skills"
)

// Backend names.
const (
	BackendLAiSER      = "laiser"
	BackendOpenRouter  = providers.OpenRouterName
	BackendHuggingFace = providers.HuggingFaceName
)

// Backends lists the supported backend names.
var Backends = []string{BackendLAiSER, BackendOpenRouter, BackendHuggingFace}

// Options selects and configures a backend.
type Options struct {
	Backend string

	ModelID string
	HFToken string
	UseGPU  bool

	InputType string
	TopK      int
	Levels    bool

	// LAiSER bridge
	Python        string
	BridgeCommand []string
	Quiet         bool
	Stderr        io.Writer

	// LLM backends
	Providers       providers.RegistryConfig
	Strict          bool
	PromptOverrides map[string]string
	Recorder        *llmcall.Recorder

	Logger *slog.Logger
}

// New returns a lazily initialized extractor for opts.Backend. Nothing is
// started until the first extraction.
func New(opts Options) (*Lazy, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	switch opts.Backend {
	case "", BackendLAiSER:
		return NewLazy(opts.ModelID, bridgeFactory(opts), opts.Logger), nil
	case BackendOpenRouter, BackendHuggingFace:
		model := opts.ModelID
		if p, ok := opts.Providers.LLMProviders[opts.Backend]; ok && p.Model != "" {
			model = p.Model
		}
		return NewLazy(model, llmFactory(opts, model), opts.Logger), nil
	default:
		return nil, fmt.Errorf("unknown backend %q (want one of %v)", opts.Backend, Backends)
	}
}

func bridgeFactory(opts Options) Factory {
	return func(ctx context.Context) (skills.Extractor, error) {
		return StartBridge(ctx, BridgeConfig{
			Python:    opts.Python,
			Command:   opts.BridgeCommand,
			ModelID:   opts.ModelID,
			HFToken:   opts.HFToken,
			UseGPU:    opts.UseGPU,
			InputType: opts.InputType,
			TopK:      opts.TopK,
			Levels:    opts.Levels,
			Quiet:     opts.Quiet,
			Stderr:    opts.Stderr,
			Logger:    opts.Logger,
		})
	}
}

func llmFactory(opts Options, model string) Factory {
	return func(ctx context.Context) (skills.Extractor, error) {
		registry := providers.NewRegistryFromConfig(opts.Providers)
		registry.SetLogger(opts.Logger)

		client, err := registry.GetLLM(opts.Backend)
		if err != nil {
			return nil, skills.InitializationError(fmt.Errorf("%s is not configured or has no API key: %w", opts.Backend, err))
		}
		if p, ok := client.(providers.Prober); ok {
			if err := p.Probe(ctx); err != nil {
				return nil, skills.InitializationError(err)
			}
		}

		resolver := prompts.NewResolver(opts.Logger)
		extract_skills.RegisterPrompts(resolver)
		for key, text := range opts.PromptOverrides {
			if err := resolver.Override(key, text); err != nil {
				return nil, skills.InitializationError(err)
			}
		}

		return NewLLM(LLMConfig{
			Client:    client,
			Resolver:  resolver,
			Model:     model,
			Strict:    opts.Strict,
			InputType: opts.InputType,
			TopK:      opts.TopK,
			Levels:    opts.Levels,
			Recorder:  opts.Recorder,
			Logger:    opts.Logger,
		}), nil
	}
}
