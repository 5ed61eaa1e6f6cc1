// Package config loads companion settings from an optional YAML file with
// COMPANION_* environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix namespaces environment overrides, e.g. COMPANION_OPENAI_API_KEY.
const EnvPrefix = "COMPANION"

type Config struct {
	OpenAI    OpenAIConfig    `mapstructure:"openai" yaml:"openai"`
	Analyzer  AnalyzerConfig  `mapstructure:"analyzer" yaml:"analyzer"`
	Extractor ExtractorConfig `mapstructure:"extractor" yaml:"extractor"`
	Store     StoreConfig     `mapstructure:"store" yaml:"store"`
	Quota     QuotaConfig     `mapstructure:"quota" yaml:"quota"`
	Logging   LoggingConfig   `mapstructure:"logging" yaml:"logging"`
	Keywords  KeywordsConfig  `mapstructure:"keywords" yaml:"keywords"`
	Memory    MemoryConfig    `mapstructure:"memory" yaml:"memory"`
}

type OpenAIConfig struct {
	APIKey        string `mapstructure:"api_key" yaml:"api_key"`
	BaseURL       string `mapstructure:"base_url" yaml:"base_url"`
	ClassifyModel string `mapstructure:"classify_model" yaml:"classify_model"`
	ExtractModel  string `mapstructure:"extract_model" yaml:"extract_model"`
}

// AnalyzerConfig and ExtractorConfig take the persona header either inline
// or from PromptHeaderFile, which is read once at startup.
type AnalyzerConfig struct {
	ConfidenceGate   float64       `mapstructure:"confidence_gate" yaml:"confidence_gate"`
	RefineTimeout    time.Duration `mapstructure:"refine_timeout" yaml:"refine_timeout"`
	PromptHeader     string        `mapstructure:"prompt_header" yaml:"prompt_header"`
	PromptHeaderFile string        `mapstructure:"prompt_header_file" yaml:"prompt_header_file"`
}

type ExtractorConfig struct {
	Timeout          time.Duration `mapstructure:"timeout" yaml:"timeout"`
	MaxOutputTokens  int64         `mapstructure:"max_output_tokens" yaml:"max_output_tokens"`
	PromptHeader     string        `mapstructure:"prompt_header" yaml:"prompt_header"`
	PromptHeaderFile string        `mapstructure:"prompt_header_file" yaml:"prompt_header_file"`
}

type StoreConfig struct {
	DBPath string `mapstructure:"db_path" yaml:"db_path"`
}

// QuotaConfig selects Redis-backed counters when RedisAddr is set and
// in-process counters otherwise.
type QuotaConfig struct {
	RedisAddr          string  `mapstructure:"redis_addr" yaml:"redis_addr"`
	RedisPassword      string  `mapstructure:"redis_password" yaml:"redis_password"`
	RedisDB            int     `mapstructure:"redis_db" yaml:"redis_db"`
	AuthenticatedLimit int     `mapstructure:"authenticated_limit" yaml:"authenticated_limit"`
	AnonymousLimit     int     `mapstructure:"anonymous_limit" yaml:"anonymous_limit"`
	WarningRatio       float64 `mapstructure:"warning_ratio" yaml:"warning_ratio"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

type KeywordsConfig struct {
	// Path to a YAML keyword dictionary; empty uses the compiled-in tables.
	Path string `mapstructure:"path" yaml:"path"`
}

type MemoryConfig struct {
	ContextLimit int `mapstructure:"context_limit" yaml:"context_limit"`
}

// Default returns the configuration used when no file or environment overrides are present.
func Default() *Config {
	return &Config{
		OpenAI: OpenAIConfig{
			ClassifyModel: "gpt-4o-mini",
			ExtractModel:  "gpt-4o-mini",
		},
		Analyzer: AnalyzerConfig{
			ConfidenceGate: 0.6,
			RefineTimeout:  8 * time.Second,
		},
		Extractor: ExtractorConfig{
			Timeout:         10 * time.Second,
			MaxOutputTokens: 800,
		},
		Store: StoreConfig{DBPath: filepath.Join("data", "companion.db")},
		Quota: QuotaConfig{
			AuthenticatedLimit: 50,
			AnonymousLimit:     10,
			WarningRatio:       0.8,
		},
		Logging: LoggingConfig{Level: "info", Format: "json"},
		Memory:  MemoryConfig{ContextLimit: 10},
	}
}

// Load reads path (optional) and applies environment overrides. A missing
// explicit path is an error; an empty path means defaults plus environment.
// OPENAI_API_KEY is honoured when no api key is configured.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v, Default())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if cfg.OpenAI.APIKey == "" {
		cfg.OpenAI.APIKey = strings.TrimSpace(os.Getenv("OPENAI_API_KEY"))
	}
	return &cfg, nil
}

// setDefaults registers every key so AutomaticEnv can override keys absent from the file.
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("openai.api_key", d.OpenAI.APIKey)
	v.SetDefault("openai.base_url", d.OpenAI.BaseURL)
	v.SetDefault("openai.classify_model", d.OpenAI.ClassifyModel)
	v.SetDefault("openai.extract_model", d.OpenAI.ExtractModel)
	v.SetDefault("analyzer.confidence_gate", d.Analyzer.ConfidenceGate)
	v.SetDefault("analyzer.refine_timeout", d.Analyzer.RefineTimeout)
	v.SetDefault("analyzer.prompt_header", d.Analyzer.PromptHeader)
	v.SetDefault("analyzer.prompt_header_file", d.Analyzer.PromptHeaderFile)
	v.SetDefault("extractor.timeout", d.Extractor.Timeout)
	v.SetDefault("extractor.max_output_tokens", d.Extractor.MaxOutputTokens)
	v.SetDefault("extractor.prompt_header", d.Extractor.PromptHeader)
	v.SetDefault("extractor.prompt_header_file", d.Extractor.PromptHeaderFile)
	v.SetDefault("store.db_path", d.Store.DBPath)
	v.SetDefault("quota.redis_addr", d.Quota.RedisAddr)
	v.SetDefault("quota.redis_password", d.Quota.RedisPassword)
	v.SetDefault("quota.redis_db", d.Quota.RedisDB)
	v.SetDefault("quota.authenticated_limit", d.Quota.AuthenticatedLimit)
	v.SetDefault("quota.anonymous_limit", d.Quota.AnonymousLimit)
	v.SetDefault("quota.warning_ratio", d.Quota.WarningRatio)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("keywords.path", d.Keywords.Path)
	v.SetDefault("memory.context_limit", d.Memory.ContextLimit)
}

// ErrMissingAPIKey is returned by Validate when no provider key is configured.
var ErrMissingAPIKey = errors.New("openai.api_key is empty (set COMPANION_OPENAI_API_KEY or OPENAI_API_KEY)")

// Validate checks everything needed for model-backed operation.
func (c *Config) Validate() error {
	if err := c.ValidateLocal(); err != nil {
		return err
	}
	if strings.TrimSpace(c.OpenAI.APIKey) == "" {
		return ErrMissingAPIKey
	}
	return nil
}

// ValidateLocal checks the settings used by keyword-only operation.
func (c *Config) ValidateLocal() error {
	if c.OpenAI.ClassifyModel == "" || c.OpenAI.ExtractModel == "" {
		return fmt.Errorf("openai.classify_model and openai.extract_model cannot be empty")
	}
	if g := c.Analyzer.ConfidenceGate; g <= 0 || g > 1 {
		return fmt.Errorf("analyzer.confidence_gate must be in (0, 1], got %v", g)
	}
	if c.Analyzer.RefineTimeout <= 0 {
		return fmt.Errorf("analyzer.refine_timeout must be > 0")
	}
	if c.Extractor.Timeout <= 0 {
		return fmt.Errorf("extractor.timeout must be > 0")
	}
	if c.Extractor.MaxOutputTokens <= 0 {
		return fmt.Errorf("extractor.max_output_tokens must be > 0")
	}
	if c.Analyzer.PromptHeader != "" && c.Analyzer.PromptHeaderFile != "" {
		return fmt.Errorf("set only one of analyzer.prompt_header and analyzer.prompt_header_file")
	}
	if c.Extractor.PromptHeader != "" && c.Extractor.PromptHeaderFile != "" {
		return fmt.Errorf("set only one of extractor.prompt_header and extractor.prompt_header_file")
	}
	if c.Quota.AuthenticatedLimit < 0 || c.Quota.AnonymousLimit < 0 {
		return fmt.Errorf("quota limits cannot be negative")
	}
	if r := c.Quota.WarningRatio; r <= 0 || r > 1 {
		return fmt.Errorf("quota.warning_ratio must be in (0, 1], got %v", r)
	}
	if c.Memory.ContextLimit < 0 {
		return fmt.Errorf("memory.context_limit cannot be negative")
	}
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("invalid log level '%s', must be one of: debug, info, warn, error", c.Logging.Level)
	}
	return nil
}

// WriteDefault writes the default configuration to path as YAML. The API key
// is left empty so secrets stay in the environment.
func WriteDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	}
	data, err := yaml.Marshal(Default())
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	return os.WriteFile(path, data, 0o644)
}
