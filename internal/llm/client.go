package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// DefaultTemperature is the sampling temperature used for every completion attempt
const DefaultTemperature = 0.7

// Options controls a single generation call
type Options struct {
	Temperature float64
	MaxTokens   int
}

// Generator is an abstraction over LLM providers.
// A Generator makes exactly one provider call per Generate; retry policy lives in ResilientClient.
type Generator interface {
	// Generate returns the raw text produced by model for prompt
	Generate(ctx context.Context, model, prompt string, opts Options) (string, error)
	// Close releases any resources held by the generator
	Close() error
}

// NewGenerator creates a Generator based on configuration
func NewGenerator(ctx context.Context, config *Config) (Generator, error) {
	if config == nil {
		config = DefaultConfig()
	}

	switch config.Provider {
	case ProviderGemini:
		return NewGeminiGenerator(ctx, config.APIKey)
	case ProviderOllama:
		return NewOllamaGenerator(config.Host), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %q", config.Provider)
	}
}

// GeminiGenerator implements Generator for Google Gemini
type GeminiGenerator struct {
	client *genai.Client
}

// NewGeminiGenerator creates a new Gemini generator
func NewGeminiGenerator(ctx context.Context, apiKey string) (*GeminiGenerator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiGenerator{client: client}, nil
}

// Generate generates text content with the named Gemini model
func (g *GeminiGenerator) Generate(ctx context.Context, model, prompt string, opts Options) (string, error) {
	if model == "" {
		return "", &ModelError{Model: model, Cause: fmt.Errorf("no model configured")}
	}

	m := g.client.GenerativeModel(model)
	m.SetTemperature(float32(opts.Temperature))
	if opts.MaxTokens > 0 {
		m.SetMaxOutputTokens(int32(opts.MaxTokens))
	}

	resp, err := m.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}

	return extractTextFromResponse(resp)
}

// Close releases resources held by the client
func (g *GeminiGenerator) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}

// extractTextFromResponse extracts text from Gemini API response
func extractTextFromResponse(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("no candidates in response")
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", fmt.Errorf("no content in response")
	}

	var parts []string
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			parts = append(parts, string(text))
		}
	}

	if len(parts) == 0 {
		return "", fmt.Errorf("no text parts in response")
	}

	return strings.Join(parts, ""), nil
}
