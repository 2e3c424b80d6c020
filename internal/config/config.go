package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v2"

	"github.com/skillsync/skillextract/internal/home"
	"github.com/skillsync/skillextract/internal/providers"
)

// EnvPrefix prefixes every environment override, e.g. SKILLEXTRACT_EXTRACTOR_TOP_K.
const EnvPrefix = "SKILLEXTRACT"

// legacyEnv binds config keys to the unprefixed variables users already export.
var legacyEnv = map[string]string{
	"extractor.model_id": "LAISER_MODEL_ID",
	"extractor.hf_token": "HUGGINGFACE_TOKEN",
	"bridge.python":      "PYTHON_PATH",
}

// FlagKeys maps command-line flag names to config keys.
var FlagKeys = map[string]string{
	"backend":  "extractor.backend",
	"model":    "extractor.model_id",
	"hf-token": "extractor.hf_token",
	"gpu":      "extractor.use_gpu",
}

// Options controls where the Manager looks for configuration.
type Options struct {
	// ConfigFile is an explicit config path. Missing explicit files are an error.
	ConfigFile string
	// EnvFiles are dotenv files loaded into the environment if present.
	// Variables already set are not overwritten. Default: ./.env then the home .env
	EnvFiles []string
	// Flags are bound through FlagKeys; only flags the user set take effect.
	Flags *pflag.FlagSet
	// Home is the directory searched for config.yaml. Default: ~/.skillextract
	Home *home.Dir
}

// Manager loads configuration from defaults, config file, .env, environment and flags.
type Manager struct {
	mu     sync.RWMutex
	v      *viper.Viper
	config *Config
}

// NewManager creates a new config manager and loads config.
func NewManager(opts Options) (*Manager, error) {
	if opts.Home == nil {
		if dir, err := home.New(""); err == nil {
			opts.Home = dir
		}
	}
	if opts.EnvFiles == nil {
		opts.EnvFiles = []string{home.EnvFileName}
		if opts.Home != nil {
			opts.EnvFiles = append(opts.EnvFiles, opts.Home.EnvPath())
		}
	}
	if err := loadEnvFiles(opts.EnvFiles); err != nil {
		return nil, err
	}

	cm := &Manager{v: viper.New()}
	if err := cm.initViper(opts); err != nil {
		return nil, err
	}

	cfg, err := cm.load()
	if err != nil {
		return nil, err
	}
	cm.config = cfg

	return cm, nil
}

// initViper sets up viper with defaults, env bindings, flags and config file.
func (cm *Manager) initViper(opts Options) error {
	v := cm.v
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range legacyEnv {
		prefixed := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, prefixed, env); err != nil {
			return fmt.Errorf("bind %s: %w", key, err)
		}
	}

	if opts.Flags != nil {
		for name, key := range FlagKeys {
			flag := opts.Flags.Lookup(name)
			if flag == nil {
				continue
			}
			if err := v.BindPFlag(key, flag); err != nil {
				return fmt.Errorf("bind flag --%s: %w", name, err)
			}
		}
	}

	// Config file
	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
	} else {
		v.SetConfigName("skillextract")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	err := v.ReadInConfig()
	var configFileNotFoundError viper.ConfigFileNotFoundError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &configFileNotFoundError):
		return cm.readHomeConfig(opts.Home)
	default:
		return fmt.Errorf("error reading config file: %w", err)
	}
}

// readHomeConfig falls back to config.yaml in the home directory.
func (cm *Manager) readHomeConfig(dir *home.Dir) error {
	if dir == nil || !dir.ConfigExists() {
		return nil
	}
	cm.v.SetConfigFile(dir.ConfigPath())
	if err := cm.v.ReadInConfig(); err != nil {
		return fmt.Errorf("error reading config file: %w", err)
	}
	return nil
}

// setDefaults registers every leaf key so env and flag overrides apply to nested values.
func setDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("extractor.backend", d.Extractor.Backend)
	v.SetDefault("extractor.model_id", d.Extractor.ModelID)
	v.SetDefault("extractor.hf_token", d.Extractor.HFToken)
	v.SetDefault("extractor.use_gpu", d.Extractor.UseGPU)
	v.SetDefault("extractor.input_type", d.Extractor.InputType)
	v.SetDefault("extractor.top_k", d.Extractor.TopK)
	v.SetDefault("extractor.levels", d.Extractor.Levels)
	v.SetDefault("bridge.python", d.Bridge.Python)
	v.SetDefault("bridge.command", d.Bridge.Command)
	v.SetDefault("normalize.confidence_unit", d.Normalize.ConfidenceUnit)
	v.SetDefault("llm.strict", d.LLM.Strict)
	v.SetDefault("llm.trace_file", d.LLM.TraceFile)
	for name, p := range d.LLMProviders {
		prefix := "llm_providers." + name + "."
		v.SetDefault(prefix+"type", p.Type)
		v.SetDefault(prefix+"model", p.Model)
		v.SetDefault(prefix+"api_key", p.APIKey)
		v.SetDefault(prefix+"base_url", p.BaseURL)
		v.SetDefault(prefix+"max_retries", p.MaxRetries)
		v.SetDefault(prefix+"enabled", p.Enabled)
	}
}

// load parses the current viper state into a Config struct.
func (cm *Manager) load() (*Config, error) {
	var cfg Config
	if err := cm.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// Get returns the current configuration (thread-safe).
func (cm *Manager) Get() *Config {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.config
}

// ConfigFileUsed returns the config file that was read, or "" when running on defaults.
func (cm *Manager) ConfigFileUsed() string {
	return cm.v.ConfigFileUsed()
}

// loadEnvFiles loads dotenv files without overriding the existing environment.
func loadEnvFiles(paths []string) error {
	for _, path := range paths {
		if err := godotenv.Load(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load env file %s: %w", path, err)
		}
	}
	return nil
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// ResolveEnvVars expands ${ENV_VAR} references in a string.
func ResolveEnvVars(value string) string {
	if value == "" {
		return value
	}
	return envVarPattern.ReplaceAllStringFunc(value, func(match string) string {
		varName := match[2 : len(match)-1]
		return os.Getenv(varName)
	})
}

// HFToken returns the resolved Hugging Face token.
func (c *Config) HFToken() string {
	return ResolveEnvVars(c.Extractor.HFToken)
}

// ToProviderRegistryConfig converts the config to a format suitable for providers.Registry.
// It resolves all ${ENV_VAR} references. Hugging Face providers fall back to
// extractor.hf_token and extractor.model_id.
func (c *Config) ToProviderRegistryConfig() providers.RegistryConfig {
	cfg := providers.RegistryConfig{
		LLMProviders: make(map[string]providers.LLMProviderConfig),
	}

	for name, llm := range c.LLMProviders {
		p := providers.LLMProviderConfig{
			Type:       llm.Type,
			Model:      llm.Model,
			APIKey:     ResolveEnvVars(llm.APIKey),
			BaseURL:    ResolveEnvVars(llm.BaseURL),
			MaxRetries: llm.MaxRetries,
			Enabled:    llm.Enabled,
		}
		if llm.Type == providers.HuggingFaceName {
			if p.APIKey == "" {
				p.APIKey = c.HFToken()
			}
			if p.Model == "" {
				p.Model = c.Extractor.ModelID
			}
		}
		cfg.LLMProviders[name] = p
	}

	return cfg
}

// WriteDefault writes the default configuration to the specified path.
func WriteDefault(path string) error {
	cfg := DefaultConfig()
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(`# skillextract configuration
# API keys use ${ENV_VAR} syntax to reference environment variables
# Set these in your shell: export HUGGINGFACE_TOKEN=xxx OPENROUTER_API_KEY=xxx
# Any key can be overridden with SKILLEXTRACT_<SECTION>_<KEY>, e.g. SKILLEXTRACT_EXTRACTOR_TOP_K=20

`)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	return os.WriteFile(path, append(header, data...), 0o644)
}
