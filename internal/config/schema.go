package config

import (
	"fmt"
	"slices"

	"github.com/skillsync/skillextract/internal/skills"
)

// Config holds skillextract configuration.
// Stored at: ./skillextract.yaml or ~/.skillextract/config.yaml
type Config struct {
	Extractor    ExtractorCfg              `mapstructure:"extractor" yaml:"extractor"`
	Bridge       BridgeCfg                 `mapstructure:"bridge" yaml:"bridge"`
	Normalize    NormalizeCfg              `mapstructure:"normalize" yaml:"normalize"`
	LLM          LLMCfg                    `mapstructure:"llm" yaml:"llm"`
	LLMProviders map[string]LLMProviderCfg `mapstructure:"llm_providers" yaml:"llm_providers"`
}

// ExtractorCfg selects and configures the extraction backend.
type ExtractorCfg struct {
	Backend   string `mapstructure:"backend" yaml:"backend"`       // See Backends
	ModelID   string `mapstructure:"model_id" yaml:"model_id"`     // Model identifier
	HFToken   string `mapstructure:"hf_token" yaml:"hf_token"`     // Hugging Face token (supports ${ENV_VAR} syntax)
	UseGPU    bool   `mapstructure:"use_gpu" yaml:"use_gpu"`       // GPU acceleration (LAiSER only)
	InputType string `mapstructure:"input_type" yaml:"input_type"` // Document kind hint
	TopK      int    `mapstructure:"top_k" yaml:"top_k"`           // Maximum skills per document
	Levels    bool   `mapstructure:"levels" yaml:"levels"`         // Request proficiency levels
}

// BridgeCfg configures the LAiSER bridge process.
type BridgeCfg struct {
	Python  string   `mapstructure:"python" yaml:"python"`   // Interpreter
	Command []string `mapstructure:"command" yaml:"command"` // Full command, replaces python and the embedded script
}

// NormalizeCfg configures record normalization.
type NormalizeCfg struct {
	ConfidenceUnit string `mapstructure:"confidence_unit" yaml:"confidence_unit"` // "source", "fraction", "percent"
}

// LLMCfg configures the LLM backends.
type LLMCfg struct {
	Strict    bool   `mapstructure:"strict" yaml:"strict"`         // Reject replies that fail the schema
	TraceFile string `mapstructure:"trace_file" yaml:"trace_file"` // JSONL record of every LLM call (optional)

	// PromptOverrides replaces embedded prompts, keyed by prompt group then
	// name: prompt_overrides.extract_skills.system
	PromptOverrides map[string]map[string]string `mapstructure:"prompt_overrides" yaml:"prompt_overrides,omitempty"`
}

// Overrides flattens PromptOverrides into resolver keys such as
// "extract_skills.system".
func (c LLMCfg) Overrides() map[string]string {
	out := make(map[string]string)
	for group, prompts := range c.PromptOverrides {
		for name, text := range prompts {
			out[group+"."+name] = text
		}
	}
	return out
}

// LLMProviderCfg configures an LLM provider.
type LLMProviderCfg struct {
	Type       string `mapstructure:"type" yaml:"type"`               // "openrouter", "huggingface", "openai"
	Model      string `mapstructure:"model" yaml:"model"`             // Model name
	APIKey     string `mapstructure:"api_key" yaml:"api_key"`         // API key (supports ${ENV_VAR} syntax)
	BaseURL    string `mapstructure:"base_url" yaml:"base_url"`       // Endpoint override
	MaxRetries int    `mapstructure:"max_retries" yaml:"max_retries"` // Transport attempts
	Enabled    bool   `mapstructure:"enabled" yaml:"enabled"`
}

// Backends lists the accepted extractor.backend values.
var Backends = []string{"laiser", "openrouter", "huggingface"}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Extractor: ExtractorCfg{
			Backend:   "laiser",
			ModelID:   "microsoft/DialoGPT-medium",
			UseGPU:    true,
			InputType: "job_desc",
			TopK:      30,
			Levels:    true,
		},
		Bridge: BridgeCfg{
			Python: "python3",
		},
		Normalize: NormalizeCfg{
			ConfidenceUnit: string(skills.UnitSource),
		},
		LLM: LLMCfg{
			Strict: true,
		},
		LLMProviders: map[string]LLMProviderCfg{
			"openrouter": {
				Type:       "openrouter",
				Model:      "openai/gpt-4o-mini",
				APIKey:     "${OPENROUTER_API_KEY}",
				MaxRetries: 1,
				Enabled:    true,
			},
			"huggingface": {
				Type:       "huggingface",
				MaxRetries: 1,
				Enabled:    true,
			},
		},
	}
}

// GetLLMProvider returns an LLM provider config by name.
func (c *Config) GetLLMProvider(name string) (LLMProviderCfg, bool) {
	cfg, ok := c.LLMProviders[name]
	return cfg, ok
}

// Validate checks values that cannot be fixed up later.
func (c *Config) Validate() error {
	if !slices.Contains(Backends, c.Extractor.Backend) {
		return fmt.Errorf("unknown extractor backend %q (want one of %v)", c.Extractor.Backend, Backends)
	}
	if c.Extractor.TopK <= 0 {
		return fmt.Errorf("extractor.top_k must be positive, got %d", c.Extractor.TopK)
	}
	if _, err := skills.ParseConfidenceUnit(c.Normalize.ConfidenceUnit); err != nil {
		return err
	}
	if c.Extractor.Backend != "laiser" {
		if _, ok := c.LLMProviders[c.Extractor.Backend]; !ok {
			return fmt.Errorf("backend %q has no llm_providers entry", c.Extractor.Backend)
		}
	}
	return nil
}
