// Package llm provides the generative text capability used by the roadmap engine:
// provider clients, model tiers, and a retrying client with model fallback.
package llm

// ModelTier represents the role a model plays within a completion call
type ModelTier string

const (
	// TierDefault is the preferred model every call starts with
	TierDefault ModelTier = "default"
	// TierFallback is the more available model substituted after repeated model errors
	TierFallback ModelTier = "fallback"
)

// Provider represents an LLM provider
type Provider string

// Provider constants define supported LLM providers
const (
	// ProviderOllama is a self-hosted Ollama server
	ProviderOllama Provider = "ollama"
	// ProviderGemini is the Google Gemini provider
	ProviderGemini Provider = "gemini"
)

// Config holds the model configuration for the application
type Config struct {
	Provider Provider
	Models   map[ModelTier]string
	// Host is the base URL of the provider (Ollama only)
	Host string
	// APIKey authenticates against hosted providers (Gemini only)
	APIKey string
}

// DefaultConfig returns the default configuration (Ollama, as the engine was built around it)
func DefaultConfig() *Config {
	return DefaultOllamaConfig()
}

// DefaultOllamaConfig returns the default Ollama configuration
func DefaultOllamaConfig() *Config {
	return &Config{
		Provider: ProviderOllama,
		Host:     DefaultOllamaHost,
		Models: map[ModelTier]string{
			TierDefault:  "mistral",
			TierFallback: "tinyllama",
		},
	}
}

// DefaultGeminiConfig returns the default Gemini configuration
func DefaultGeminiConfig() *Config {
	return &Config{
		Provider: ProviderGemini,
		Models: map[ModelTier]string{
			TierDefault:  "gemini-2.5-flash",
			TierFallback: "gemini-2.5-flash-lite",
		},
	}
}

// ConfigFor returns the default configuration for a provider name.
// Unknown names fall back to Ollama.
func ConfigFor(provider string) *Config {
	switch Provider(provider) {
	case ProviderGemini:
		return DefaultGeminiConfig()
	default:
		return DefaultOllamaConfig()
	}
}

// GetModel returns the model name for a given tier
func (c *Config) GetModel(tier ModelTier) string {
	if model, ok := c.Models[tier]; ok && model != "" {
		return model
	}
	// A missing fallback degrades to the default model
	if model, ok := c.Models[TierDefault]; ok {
		return model
	}
	return "" // No model configured
}

// WithModel returns a new Config with a specific model for a tier
func (c *Config) WithModel(tier ModelTier, model string) *Config {
	newConfig := &Config{
		Provider: c.Provider,
		Host:     c.Host,
		APIKey:   c.APIKey,
		Models:   make(map[ModelTier]string),
	}
	for k, v := range c.Models {
		newConfig.Models[k] = v
	}
	newConfig.Models[tier] = model
	return newConfig
}
