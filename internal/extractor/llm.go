package extractor

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/skillsync/skillextract/internal/llmcall"
	"github.com/skillsync/skillextract/internal/prompts"
	"github.com/skillsync/skillextract/internal/prompts/extract_skills"
	"github.com/skillsync/skillextract/internal/providers"
	"github.com/skillsync/skillextract/internal/skills"
)

// LLMConfig holds configuration for an LLM-backed extractor.
type LLMConfig struct {
	Client   providers.LLMClient
	Resolver *prompts.Resolver
	Model    string // Overrides the client's default model when set

	// Strict rejects responses that do not match the extraction schema.
	// When false, mismatched hits are skipped during normalization.
	Strict bool

	InputType string
	TopK      int
	Levels    bool

	// Recorder traces every chat call. Optional.
	Recorder *llmcall.Recorder

	Logger *slog.Logger
}

// LLM extracts skills with a chat model using structured output.
type LLM struct {
	cfg    LLMConfig
	logger *slog.Logger
}

// NewLLM creates an LLM extractor. A nil Resolver gets the embedded prompts.
func NewLLM(cfg LLMConfig) *LLM {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Resolver == nil {
		cfg.Resolver = prompts.NewResolver(cfg.Logger)
		extract_skills.RegisterPrompts(cfg.Resolver)
	}
	return &LLM{cfg: cfg, logger: cfg.Logger}
}

// Model returns the requested model, or the client's default.
func (e *LLM) Model() string {
	if e.cfg.Model != "" {
		return e.cfg.Model
	}
	if m, ok := e.cfg.Client.(interface{ Model() string }); ok {
		return m.Model()
	}
	return e.cfg.Client.Name()
}

// Extract sends one document to the model and decodes its JSON reply.
func (e *LLM) Extract(ctx context.Context, doc skills.Document) (skills.Output, error) {
	req, err := extract_skills.BuildRequest(e.cfg.Resolver, extract_skills.PromptData{
		DocumentID: doc.ID,
		Text:       doc.Text,
		InputType:  e.cfg.InputType,
		TopK:       e.cfg.TopK,
		Levels:     e.cfg.Levels,
	}, e.logger)
	if err != nil {
		return skills.Output{}, err
	}
	req.Model = e.cfg.Model

	result, err := e.cfg.Client.Chat(ctx, req)
	temperature := req.Temperature
	e.cfg.Recorder.Record(result, llmcall.RecordOptions{
		DocumentID:  doc.ID,
		Prompts:     e.promptHashes(),
		Temperature: &temperature,
	})
	if err != nil {
		return skills.Output{}, err
	}
	e.logger.Debug("llm extraction complete",
		"provider", result.Provider,
		"model", result.ModelUsed,
		"request_id", result.RequestID,
		"attempts", result.Attempts,
		"prompt_tokens", result.PromptTokens,
		"completion_tokens", result.CompletionTokens,
		"duration", result.ExecutionTime,
	)
	if !result.Success {
		return skills.Output{}, fmt.Errorf("%s: %s", result.ErrorType, result.ErrorMessage)
	}
	if len(result.ParsedJSON) == 0 {
		return skills.Output{}, fmt.Errorf("empty response from %s", result.Provider)
	}

	if err := providers.ValidateStructuredJSON(req.ResponseFormat.JSONSchema, result.ParsedJSON); err != nil {
		if e.cfg.Strict {
			return skills.Output{}, err
		}
		e.logger.Debug("llm response does not match schema; normalizing leniently", "error", err)
	}

	return skills.DecodeOutput(result.ParsedJSON)
}

// promptHashes returns the hash of each prompt the request was built from.
func (e *LLM) promptHashes() map[string]string {
	hashes := make(map[string]string, 2)
	for _, key := range []string{extract_skills.SystemPromptKey, extract_skills.UserPromptKey} {
		if p, err := e.cfg.Resolver.Resolve(key); err == nil {
			hashes[key] = p.Hash
		}
	}
	return hashes
}

var (
	_ skills.Extractor     = (*LLM)(nil)
	_ skills.ModelReporter = (*LLM)(nil)
)
