package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/skill-roadmap/internal/llm"
)

var serverKeys = []string{
	"PORT", "DATABASE_URL", "LLM_PROVIDER", "GEMINI_API_KEY", "OLLAMA_HOST",
	"LLM_DEFAULT_MODEL", "LLM_FALLBACK_MODEL", "REDIS_URL", "NATS_URL",
	"CACHE_TTL", "CACHE_SWEEP_INTERVAL", "LOG_LEVEL", "LOG_FORMAT",
}

// clearServerEnv blanks every key so the host environment cannot leak in.
func clearServerEnv(t *testing.T) {
	t.Helper()
	for _, key := range serverKeys {
		t.Setenv(key, "")
	}
}

func TestLoadServerConfig_Defaults(t *testing.T) {
	clearServerEnv(t)

	cfg, err := LoadServerConfig("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, ":8080", cfg.Addr())
	assert.Equal(t, "ollama", cfg.LLMProvider)
	assert.Equal(t, llm.DefaultOllamaHost, cfg.OllamaHost)
	assert.Equal(t, 24*time.Hour, cfg.CacheTTL)
	assert.Equal(t, time.Hour, cfg.CacheSweepInterval)
	assert.Equal(t, slog.LevelInfo, cfg.SlogLevel())
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Empty(t, cfg.DatabaseURL)
	assert.Empty(t, cfg.RedisURL)
}

func TestLoadServerConfig_Environment(t *testing.T) {
	clearServerEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("LLM_PROVIDER", "Gemini")
	t.Setenv("GEMINI_API_KEY", "key")
	t.Setenv("LLM_DEFAULT_MODEL", "gemini-pro")
	t.Setenv("CACHE_TTL", "30m")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")

	cfg, err := LoadServerConfig("")
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "gemini", cfg.LLMProvider)
	assert.Equal(t, 30*time.Minute, cfg.CacheTTL)
	assert.Equal(t, slog.LevelDebug, cfg.SlogLevel())
	assert.Equal(t, "redis://localhost:6379/0", cfg.RedisURL)

	llmCfg := cfg.LLMConfig()
	assert.Equal(t, llm.ProviderGemini, llmCfg.Provider)
	assert.Equal(t, "key", llmCfg.APIKey)
	assert.Equal(t, "gemini-pro", llmCfg.GetModel(llm.TierDefault))
	assert.Equal(t, "gemini-2.5-flash-lite", llmCfg.GetModel(llm.TierFallback))
}

func TestLoadServerConfig_File(t *testing.T) {
	clearServerEnv(t)
	path := filepath.Join(t.TempDir(), "roadmap.yaml")
	content := "port: 7000\nllm_fallback_model: phi3\ncache_sweep_interval: 5m\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	t.Setenv("PORT", "7001")

	cfg, err := LoadServerConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 7001, cfg.Port, "environment overrides the file")
	assert.Equal(t, "phi3", cfg.FallbackModel)
	assert.Equal(t, 5*time.Minute, cfg.CacheSweepInterval)
	assert.Equal(t, "phi3", cfg.LLMConfig().GetModel(llm.TierFallback))
}

func TestLoadServerConfig_MissingFile(t *testing.T) {
	clearServerEnv(t)

	_, err := LoadServerConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoadServerConfig_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		value   string
		wantErr string
	}{
		{name: "non-numeric port", key: "PORT", value: "http", wantErr: "PORT"},
		{name: "port out of range", key: "PORT", value: "70000", wantErr: "PORT"},
		{name: "unknown provider", key: "LLM_PROVIDER", value: "openai", wantErr: "LLM_PROVIDER"},
		{name: "gemini without key", key: "LLM_PROVIDER", value: "gemini", wantErr: "GEMINI_API_KEY"},
		{name: "bad ttl", key: "CACHE_TTL", value: "a day", wantErr: "CACHE_TTL"},
		{name: "zero ttl", key: "CACHE_TTL", value: "0s", wantErr: "CACHE_TTL"},
		{name: "bad sweep", key: "CACHE_SWEEP_INTERVAL", value: "-1m", wantErr: "CACHE_SWEEP_INTERVAL"},
		{name: "bad level", key: "LOG_LEVEL", value: "verbose", wantErr: "LOG_LEVEL"},
		{name: "bad format", key: "LOG_FORMAT", value: "xml", wantErr: "LOG_FORMAT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearServerEnv(t)
			t.Setenv(tt.key, tt.value)

			cfg, err := LoadServerConfig("")
			require.Error(t, err)
			assert.Nil(t, cfg)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
