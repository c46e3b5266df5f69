// Package config loads service configuration from the environment and an
// optional config file.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/jonathan/skill-roadmap/internal/llm"
)

// Defaults for every ServerConfig key.
const (
	DefaultPort               = 8080
	DefaultLLMProvider        = string(llm.ProviderOllama)
	DefaultCacheTTL           = 24 * time.Hour
	DefaultCacheSweepInterval = time.Hour
	DefaultLogLevel           = "info"
	DefaultLogFormat          = "text"
)

// ServerConfig holds everything the HTTP service needs to start.
type ServerConfig struct {
	Port               int
	DatabaseURL        string
	LLMProvider        string
	GeminiAPIKey       string
	OllamaHost         string
	DefaultModel       string
	FallbackModel      string
	RedisURL           string
	NATSURL            string
	CacheTTL           time.Duration
	CacheSweepInterval time.Duration
	LogLevel           string
	LogFormat          string
}

// newViper returns a viper instance reading environment variables by key name.
func newViper() *viper.Viper {
	v := viper.New()
	v.AutomaticEnv()
	return v
}

// LoadServerConfig reads the configuration from the environment. When
// configFile is not empty, it is read first and environment variables
// override its values.
func LoadServerConfig(configFile string) (*ServerConfig, error) {
	v := newViper()
	v.SetDefault("PORT", DefaultPort)
	v.SetDefault("LLM_PROVIDER", DefaultLLMProvider)
	v.SetDefault("OLLAMA_HOST", llm.DefaultOllamaHost)
	v.SetDefault("CACHE_TTL", DefaultCacheTTL.String())
	v.SetDefault("CACHE_SWEEP_INTERVAL", DefaultCacheSweepInterval.String())
	v.SetDefault("LOG_LEVEL", DefaultLogLevel)
	v.SetDefault("LOG_FORMAT", DefaultLogFormat)

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	}

	port, err := strconv.Atoi(v.GetString("PORT"))
	if err != nil {
		return nil, fmt.Errorf("invalid PORT: %v", err)
	}
	ttl, err := time.ParseDuration(v.GetString("CACHE_TTL"))
	if err != nil {
		return nil, fmt.Errorf("invalid CACHE_TTL: %v", err)
	}
	sweep, err := time.ParseDuration(v.GetString("CACHE_SWEEP_INTERVAL"))
	if err != nil {
		return nil, fmt.Errorf("invalid CACHE_SWEEP_INTERVAL: %v", err)
	}

	cfg := &ServerConfig{
		Port:               port,
		DatabaseURL:        v.GetString("DATABASE_URL"),
		LLMProvider:        strings.ToLower(v.GetString("LLM_PROVIDER")),
		GeminiAPIKey:       v.GetString("GEMINI_API_KEY"),
		OllamaHost:         v.GetString("OLLAMA_HOST"),
		DefaultModel:       v.GetString("LLM_DEFAULT_MODEL"),
		FallbackModel:      v.GetString("LLM_FALLBACK_MODEL"),
		RedisURL:           v.GetString("REDIS_URL"),
		NATSURL:            v.GetString("NATS_URL"),
		CacheTTL:           ttl,
		CacheSweepInterval: sweep,
		LogLevel:           strings.ToLower(v.GetString("LOG_LEVEL")),
		LogFormat:          strings.ToLower(v.GetString("LOG_FORMAT")),
	}

	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// normalize validates the configuration.
func (c *ServerConfig) normalize() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535, got: %d", c.Port)
	}
	switch llm.Provider(c.LLMProvider) {
	case llm.ProviderOllama:
	case llm.ProviderGemini:
		if c.GeminiAPIKey == "" {
			return errors.New("GEMINI_API_KEY is required when LLM_PROVIDER is gemini")
		}
	default:
		return fmt.Errorf("LLM_PROVIDER must be ollama or gemini, got: %q", c.LLMProvider)
	}
	if c.CacheTTL <= 0 {
		return fmt.Errorf("CACHE_TTL must be positive, got: %s", c.CacheTTL)
	}
	if c.CacheSweepInterval <= 0 {
		return fmt.Errorf("CACHE_SWEEP_INTERVAL must be positive, got: %s", c.CacheSweepInterval)
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("LOG_FORMAT must be text or json, got: %q", c.LogFormat)
	}
	return nil
}

// Addr returns the listen address of the HTTP server.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// LLMConfig returns the generator configuration with the configured model overrides.
func (c *ServerConfig) LLMConfig() *llm.Config {
	cfg := llm.ConfigFor(c.LLMProvider)
	cfg.APIKey = c.GeminiAPIKey
	if c.OllamaHost != "" {
		cfg.Host = c.OllamaHost
	}
	if c.DefaultModel != "" {
		cfg = cfg.WithModel(llm.TierDefault, c.DefaultModel)
	}
	if c.FallbackModel != "" {
		cfg = cfg.WithModel(llm.TierFallback, c.FallbackModel)
	}
	return cfg
}

// SlogLevel returns LogLevel as a slog level.
func (c *ServerConfig) SlogLevel() slog.Level {
	level, _ := parseLevel(c.LogLevel)
	return level
}

func parseLevel(s string) (slog.Level, error) {
	switch s {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("LOG_LEVEL must be debug, info, warn or error, got: %q", s)
	}
}
