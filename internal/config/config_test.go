package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/pflag"

	"github.com/skillsync/skillextract/internal/home"
	"github.com/skillsync/skillextract/internal/providers"
)

// isolated returns options that ignore the caller's home directory and .env.
func isolated(t *testing.T) Options {
	t.Helper()
	dir, err := home.New(t.TempDir())
	if err != nil {
		t.Fatalf("home.New: %v", err)
	}
	return Options{Home: dir, EnvFiles: []string{}}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Extractor.Backend != "laiser" {
		t.Errorf("expected laiser backend, got %s", cfg.Extractor.Backend)
	}
	if cfg.Extractor.ModelID != "microsoft/DialoGPT-medium" {
		t.Errorf("unexpected model %s", cfg.Extractor.ModelID)
	}
	if !cfg.Extractor.UseGPU || !cfg.Extractor.Levels || cfg.Extractor.TopK != 30 {
		t.Errorf("unexpected extractor defaults %+v", cfg.Extractor)
	}
	if cfg.LLMProviders["openrouter"].APIKey != "${OPENROUTER_API_KEY}" {
		t.Error("expected openrouter API key placeholder")
	}
	if !cfg.LLM.Strict {
		t.Error("expected strict LLM validation by default")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"unknown backend", func(c *Config) { c.Extractor.Backend = "spacy" }, "unknown extractor backend"},
		{"non-positive top_k", func(c *Config) { c.Extractor.TopK = 0 }, "top_k"},
		{"bad confidence unit", func(c *Config) { c.Normalize.ConfidenceUnit = "ratio" }, "confidence unit"},
		{"backend without provider", func(c *Config) {
			c.Extractor.Backend = "openrouter"
			delete(c.LLMProviders, "openrouter")
		}, "no llm_providers entry"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestResolveEnvVars(t *testing.T) {
	t.Run("resolves environment variable", func(t *testing.T) {
		t.Setenv("TEST_API_KEY", "secret123")

		result := ResolveEnvVars("${TEST_API_KEY}")
		if result != "secret123" {
			t.Errorf("expected secret123, got %s", result)
		}
	})

	t.Run("returns empty for missing env var", func(t *testing.T) {
		result := ResolveEnvVars("${DEFINITELY_NOT_SET_12345}")
		if result != "" {
			t.Errorf("expected empty string, got %s", result)
		}
	})

	t.Run("leaves literal values unchanged", func(t *testing.T) {
		result := ResolveEnvVars("literal-value")
		if result != "literal-value" {
			t.Errorf("expected literal-value, got %s", result)
		}
	})
}

func TestNewManager(t *testing.T) {
	t.Run("defaults without config file", func(t *testing.T) {
		t.Chdir(t.TempDir())

		mgr, err := NewManager(isolated(t))
		if err != nil {
			t.Fatalf("failed to create manager: %v", err)
		}
		cfg := mgr.Get()
		if cfg.Extractor.Backend != "laiser" || cfg.Bridge.Python != "python3" {
			t.Errorf("unexpected config %+v", cfg)
		}
		if mgr.ConfigFileUsed() != "" {
			t.Errorf("expected no config file, got %s", mgr.ConfigFileUsed())
		}
	})

	t.Run("loads from config file", func(t *testing.T) {
		opts := isolated(t)
		opts.ConfigFile = writeConfig(t, `
extractor:
  backend: openrouter
  top_k: 12
normalize:
  confidence_unit: percent
llm_providers:
  openrouter:
    model: anthropic/claude-sonnet-4
llm:
  prompt_overrides:
    extract_skills:
      system: "List skills."
`)

		mgr, err := NewManager(opts)
		if err != nil {
			t.Fatalf("failed to create manager: %v", err)
		}

		cfg := mgr.Get()
		if cfg.Extractor.Backend != "openrouter" || cfg.Extractor.TopK != 12 {
			t.Errorf("unexpected extractor %+v", cfg.Extractor)
		}
		// Unset keys keep their defaults.
		if cfg.Extractor.ModelID != "microsoft/DialoGPT-medium" || !cfg.Extractor.Levels {
			t.Errorf("defaults lost: %+v", cfg.Extractor)
		}
		or := cfg.LLMProviders["openrouter"]
		if or.Model != "anthropic/claude-sonnet-4" || or.Type != "openrouter" || !or.Enabled {
			t.Errorf("unexpected openrouter provider %+v", or)
		}
		if cfg.Normalize.ConfidenceUnit != "percent" {
			t.Errorf("unexpected confidence unit %s", cfg.Normalize.ConfidenceUnit)
		}
		if got := cfg.LLM.Overrides()["extract_skills.system"]; got != "List skills." {
			t.Errorf("unexpected override %q", got)
		}
	})

	t.Run("falls back to home config", func(t *testing.T) {
		t.Chdir(t.TempDir())
		opts := isolated(t)
		if err := os.WriteFile(opts.Home.ConfigPath(), []byte("extractor:\n  top_k: 7\n"), 0o644); err != nil {
			t.Fatal(err)
		}

		mgr, err := NewManager(opts)
		if err != nil {
			t.Fatalf("failed to create manager: %v", err)
		}
		if mgr.Get().Extractor.TopK != 7 {
			t.Errorf("expected top_k 7, got %d", mgr.Get().Extractor.TopK)
		}
		if mgr.ConfigFileUsed() != opts.Home.ConfigPath() {
			t.Errorf("unexpected config file %s", mgr.ConfigFileUsed())
		}
	})

	t.Run("missing explicit file is an error", func(t *testing.T) {
		opts := isolated(t)
		opts.ConfigFile = filepath.Join(t.TempDir(), "missing.yaml")
		if _, err := NewManager(opts); err == nil {
			t.Error("expected error for missing config file")
		}
	})

	t.Run("invalid config is rejected", func(t *testing.T) {
		opts := isolated(t)
		opts.ConfigFile = writeConfig(t, "extractor:\n  backend: spacy\n")
		if _, err := NewManager(opts); err == nil {
			t.Error("expected validation error")
		}
	})
}

func TestManager_Environment(t *testing.T) {
	t.Run("legacy variables", func(t *testing.T) {
		t.Setenv("LAISER_MODEL_ID", "sentence-transformers/all-MiniLM-L6-v2")
		t.Setenv("HUGGINGFACE_TOKEN", "hf_env")
		t.Setenv("PYTHON_PATH", "/opt/venv/bin/python")

		mgr, err := NewManager(isolated(t))
		if err != nil {
			t.Fatalf("failed to create manager: %v", err)
		}
		cfg := mgr.Get()
		if cfg.Extractor.ModelID != "sentence-transformers/all-MiniLM-L6-v2" {
			t.Errorf("model_id = %s", cfg.Extractor.ModelID)
		}
		if cfg.HFToken() != "hf_env" {
			t.Errorf("hf_token = %s", cfg.HFToken())
		}
		if cfg.Bridge.Python != "/opt/venv/bin/python" {
			t.Errorf("python = %s", cfg.Bridge.Python)
		}
	})

	t.Run("prefixed variables win over config file", func(t *testing.T) {
		t.Setenv("SKILLEXTRACT_EXTRACTOR_TOP_K", "5")
		t.Setenv("SKILLEXTRACT_EXTRACTOR_USE_GPU", "false")

		opts := isolated(t)
		opts.ConfigFile = writeConfig(t, "extractor:\n  top_k: 12\n")
		mgr, err := NewManager(opts)
		if err != nil {
			t.Fatalf("failed to create manager: %v", err)
		}
		cfg := mgr.Get()
		if cfg.Extractor.TopK != 5 {
			t.Errorf("top_k = %d, want 5", cfg.Extractor.TopK)
		}
		if cfg.Extractor.UseGPU {
			t.Error("use_gpu should be false")
		}
	})

	t.Run("dotenv file", func(t *testing.T) {
		const key = "SKILLEXTRACT_TEST_DOTENV_TOKEN"
		t.Setenv(key, "")
		os.Unsetenv(key)

		envFile := filepath.Join(t.TempDir(), ".env")
		if err := os.WriteFile(envFile, []byte(key+"=from-dotenv\n"), 0o644); err != nil {
			t.Fatal(err)
		}

		opts := isolated(t)
		opts.EnvFiles = []string{envFile, filepath.Join(t.TempDir(), "absent.env")}
		opts.ConfigFile = writeConfig(t, "extractor:\n  hf_token: ${"+key+"}\n")

		mgr, err := NewManager(opts)
		if err != nil {
			t.Fatalf("failed to create manager: %v", err)
		}
		if got := mgr.Get().HFToken(); got != "from-dotenv" {
			t.Errorf("HFToken() = %q, want from-dotenv", got)
		}
	})
}

func TestManager_Flags(t *testing.T) {
	newFlags := func() *pflag.FlagSet {
		fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
		fs.String("model", "microsoft/DialoGPT-medium", "")
		fs.String("hf-token", "", "")
		fs.Bool("gpu", true, "")
		fs.String("backend", "laiser", "")
		return fs
	}

	t.Run("set flags override config and env", func(t *testing.T) {
		t.Setenv("LAISER_MODEL_ID", "env-model")
		fs := newFlags()
		if err := fs.Parse([]string{"--model", "flag-model", "--gpu=false"}); err != nil {
			t.Fatal(err)
		}

		opts := isolated(t)
		opts.Flags = fs
		opts.ConfigFile = writeConfig(t, "extractor:\n  model_id: file-model\n")

		mgr, err := NewManager(opts)
		if err != nil {
			t.Fatalf("failed to create manager: %v", err)
		}
		cfg := mgr.Get()
		if cfg.Extractor.ModelID != "flag-model" {
			t.Errorf("model_id = %s, want flag-model", cfg.Extractor.ModelID)
		}
		if cfg.Extractor.UseGPU {
			t.Error("use_gpu should be false")
		}
	})

	t.Run("unset flags do not mask the config file", func(t *testing.T) {
		fs := newFlags()
		if err := fs.Parse(nil); err != nil {
			t.Fatal(err)
		}

		opts := isolated(t)
		opts.Flags = fs
		opts.ConfigFile = writeConfig(t, "extractor:\n  model_id: file-model\n  backend: huggingface\n")

		mgr, err := NewManager(opts)
		if err != nil {
			t.Fatalf("failed to create manager: %v", err)
		}
		cfg := mgr.Get()
		if cfg.Extractor.ModelID != "file-model" || cfg.Extractor.Backend != "huggingface" {
			t.Errorf("unexpected extractor %+v", cfg.Extractor)
		}
	})
}

func TestConfig_ToProviderRegistryConfig(t *testing.T) {
	t.Setenv("TEST_OPENROUTER_KEY", "or-key-123")

	cfg := DefaultConfig()
	cfg.Extractor.ModelID = "mistralai/Mistral-7B-Instruct-v0.3"
	cfg.Extractor.HFToken = "hf_direct"
	cfg.LLMProviders["openrouter"] = LLMProviderCfg{
		Type:       "openrouter",
		Model:      "openai/gpt-4o-mini",
		APIKey:     "${TEST_OPENROUTER_KEY}",
		MaxRetries: 3,
		Enabled:    true,
	}

	rc := cfg.ToProviderRegistryConfig()

	or := rc.LLMProviders["openrouter"]
	if or.APIKey != "or-key-123" || or.MaxRetries != 3 || or.Model != "openai/gpt-4o-mini" {
		t.Errorf("unexpected openrouter config %+v", or)
	}

	hf := rc.LLMProviders["huggingface"]
	if hf.Type != providers.HuggingFaceName {
		t.Errorf("unexpected huggingface type %s", hf.Type)
	}
	if hf.APIKey != "hf_direct" {
		t.Errorf("huggingface key should fall back to hf_token, got %q", hf.APIKey)
	}
	if hf.Model != "mistralai/Mistral-7B-Instruct-v0.3" {
		t.Errorf("huggingface model should fall back to model_id, got %q", hf.Model)
	}
}

func TestWriteDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	if err := WriteDefault(path); err != nil {
		t.Fatalf("WriteDefault() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), "# skillextract configuration") {
		t.Errorf("missing header:\n%s", data)
	}

	// The written file must load back to the defaults.
	opts := isolated(t)
	opts.ConfigFile = path
	mgr, err := NewManager(opts)
	if err != nil {
		t.Fatalf("failed to load written config: %v", err)
	}
	cfg := mgr.Get()
	if cfg.Extractor.TopK != 30 || cfg.LLMProviders["openrouter"].Model != "openai/gpt-4o-mini" {
		t.Errorf("unexpected round trip %+v", cfg)
	}
}
