package ratelimit

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EndpointConfig represents rate limiting configuration for a specific endpoint.
type EndpointConfig struct {
	Path   string        // Endpoint path pattern (supports prefix matching)
	Method string        // HTTP method (GET, POST, etc.)
	Limit  int           // Maximum requests per window
	Window time.Duration // Time window
	Burst  int           // Burst capacity (defaults to Limit if 0)
}

// key identifies the bucket family of the endpoint.
func (e *EndpointConfig) key() string {
	return e.Method + " " + e.Path
}

// LoadConfig loads rate limiting configuration from environment variables.
func LoadConfig() *Config {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("RATE_LIMIT_ENABLED", true)
	v.SetDefault("RATE_LIMIT_DEFAULT_LIMIT", 1000)
	v.SetDefault("RATE_LIMIT_DEFAULT_WINDOW", time.Minute)
	v.SetDefault("RATE_LIMIT_CLEANUP_INTERVAL", 5*time.Minute)

	if !v.GetBool("RATE_LIMIT_ENABLED") {
		return &Config{Enabled: false}
	}

	return &Config{
		Enabled:         true,
		DefaultLimit:    v.GetInt("RATE_LIMIT_DEFAULT_LIMIT"),
		DefaultWindow:   v.GetDuration("RATE_LIMIT_DEFAULT_WINDOW"),
		CleanupInterval: v.GetDuration("RATE_LIMIT_CLEANUP_INTERVAL"),
		Whitelist:       parseIPList(v.GetString("RATE_LIMIT_WHITELIST")),
		Blacklist:       parseIPList(v.GetString("RATE_LIMIT_BLACKLIST")),
		EndpointConfigs: DefaultEndpointConfigs(),
	}
}

// DefaultEndpointConfigs returns the default endpoint-specific configurations.
func DefaultEndpointConfigs() []EndpointConfig {
	return []EndpointConfig{
		// Generation may call the language model and persist a roadmap
		{Path: "/roadmaps/generate", Method: "POST", Limit: 10, Window: time.Hour, Burst: 2},

		// Feedback, step updates, reorders and deletes
		{Path: "/roadmaps/", Method: "PUT", Limit: 100, Window: time.Minute, Burst: 10},
		{Path: "/roadmaps/", Method: "DELETE", Limit: 100, Window: time.Minute, Burst: 10},

		// Reads use the default limit; /health and /metrics are unlimited
	}
}

// parseIPList parses a comma-separated list of IP addresses into a map.
func parseIPList(list string) map[string]bool {
	result := make(map[string]bool)
	for _, ip := range strings.Split(list, ",") {
		if ip = strings.TrimSpace(ip); ip != "" {
			result[ip] = true
		}
	}
	return result
}
