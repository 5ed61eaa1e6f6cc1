package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearKeyEnv(t *testing.T) {
	t.Helper()
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("COMPANION_OPENAI_API_KEY", "")
}

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	clearKeyEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.NoError(t, cfg.ValidateLocal())
	assert.ErrorIs(t, cfg.Validate(), ErrMissingAPIKey)
}

func TestLoad_FileAndEnv(t *testing.T) {
	clearKeyEnv(t)

	path := filepath.Join(t.TempDir(), "companion.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
openai:
  api_key: file-key
  classify_model: gpt-4.1-mini
analyzer:
  confidence_gate: 0.5
  refine_timeout: 3s
quota:
  redis_addr: localhost:6379
`), 0o644))

	t.Setenv("COMPANION_ANALYZER_CONFIDENCE_GATE", "0.7")
	t.Setenv("COMPANION_EXTRACTOR_PROMPT_HEADER_FILE", "/etc/companion/extract.txt")
	t.Setenv("COMPANION_MEMORY_CONTEXT_LIMIT", "5")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "file-key", cfg.OpenAI.APIKey)
	assert.Equal(t, "gpt-4.1-mini", cfg.OpenAI.ClassifyModel)
	assert.Equal(t, "gpt-4o-mini", cfg.OpenAI.ExtractModel)
	assert.Equal(t, 0.7, cfg.Analyzer.ConfidenceGate)
	assert.Equal(t, 3*time.Second, cfg.Analyzer.RefineTimeout)
	assert.Equal(t, 10*time.Second, cfg.Extractor.Timeout)
	assert.Equal(t, "localhost:6379", cfg.Quota.RedisAddr)
	assert.Equal(t, 5, cfg.Memory.ContextLimit)
	assert.Equal(t, "/etc/companion/extract.txt", cfg.Extractor.PromptHeaderFile)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_OpenAIKeyFallback(t *testing.T) {
	clearKeyEnv(t)
	t.Setenv("OPENAI_API_KEY", "sk-fallback")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "sk-fallback", cfg.OpenAI.APIKey)

	t.Setenv("COMPANION_OPENAI_API_KEY", "sk-prefixed")
	cfg, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, "sk-prefixed", cfg.OpenAI.APIKey)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"gate zero", func(c *Config) { c.Analyzer.ConfidenceGate = 0 }},
		{"gate above one", func(c *Config) { c.Analyzer.ConfidenceGate = 1.2 }},
		{"refine timeout", func(c *Config) { c.Analyzer.RefineTimeout = 0 }},
		{"extract timeout", func(c *Config) { c.Extractor.Timeout = -time.Second }},
		{"max tokens", func(c *Config) { c.Extractor.MaxOutputTokens = 0 }},
		{"negative limit", func(c *Config) { c.Quota.AnonymousLimit = -1 }},
		{"warning ratio", func(c *Config) { c.Quota.WarningRatio = 0 }},
		{"context limit", func(c *Config) { c.Memory.ContextLimit = -1 }},
		{"empty model", func(c *Config) { c.OpenAI.ExtractModel = "" }},
		{"log level", func(c *Config) { c.Logging.Level = "trace-ish" }},
		{"api key", func(c *Config) { c.OpenAI.APIKey = " " }},
		{"two analyzer headers", func(c *Config) { c.Analyzer.PromptHeader, c.Analyzer.PromptHeaderFile = "inline", "header.txt" }},
		{"two extractor headers", func(c *Config) { c.Extractor.PromptHeader, c.Extractor.PromptHeaderFile = "inline", "header.txt" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.OpenAI.APIKey = "sk-test"
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	ok := Default()
	ok.OpenAI.APIKey = "sk-test"
	assert.NoError(t, ok.Validate())
}

func TestWriteDefault_RoundTrips(t *testing.T) {
	clearKeyEnv(t)

	path := filepath.Join(t.TempDir(), "conf", "companion.yaml")
	require.NoError(t, WriteDefault(path))
	assert.Error(t, WriteDefault(path), "must not overwrite")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}
