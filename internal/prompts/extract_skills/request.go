package extract_skills

import (
	"encoding/json"
	"log/slog"

	"github.com/skillsync/skillextract/internal/prompts"
	"github.com/skillsync/skillextract/internal/providers"
)

// Defaults matching the LAiSER bridge call.
const (
	DefaultInputType = "job_desc"
	DefaultTopK      = 30
)

// BuildRequest resolves both prompts and renders them into a chat request
// with the skill extraction response format.
func BuildRequest(r *prompts.Resolver, data PromptData, logger *slog.Logger) (*providers.ChatRequest, error) {
	if data.InputType == "" {
		data.InputType = DefaultInputType
	}
	if data.TopK <= 0 {
		data.TopK = DefaultTopK
	}

	system, err := resolveAndRender(r, SystemPromptKey, data, logger)
	if err != nil {
		return nil, err
	}
	user, err := resolveAndRender(r, UserPromptKey, data, logger)
	if err != nil {
		return nil, err
	}

	return &providers.ChatRequest{
		Messages: []providers.Message{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		ResponseFormat: ResponseFormat(),
		Temperature:    0.1,
		MaxTokens:      4096,
	}, nil
}

// ResponseFormat returns the structured output format for skill extraction.
func ResponseFormat() *providers.ResponseFormat {
	jsonSchema, _ := json.Marshal(ExtractionSchema["json_schema"])
	return &providers.ResponseFormat{
		Type:       "json_schema",
		JSONSchema: jsonSchema,
	}
}

func resolveAndRender(r *prompts.Resolver, key string, data PromptData, logger *slog.Logger) (string, error) {
	p, err := r.Resolve(key)
	if err != nil {
		return "", err
	}
	if logger != nil {
		logger.Debug("resolved prompt", "key", key, "override", p.IsOverride, "hash", p.Hash, "vars", p.Variables)
	}
	return Render(key, p.Text, data)
}
