package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// DefaultOllamaHost is the address of a local Ollama server
const DefaultOllamaHost = "http://127.0.0.1:11434"

const maxResponseSize = 10 * 1024 * 1024 // 10MB

// OllamaRequestTimeout bounds a single generate call.
const OllamaRequestTimeout = 60 * time.Second

type ollamaGenerateRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	Stream  bool           `json:"stream"`
	Options map[string]any `json:"options,omitempty"`
}

type ollamaGenerateResponse struct {
	Model    string `json:"model"`
	Response string `json:"response"`
	Done     bool   `json:"done"`
	Error    string `json:"error,omitempty"`
}

// OllamaGenerator implements Generator against the Ollama /api/generate endpoint
type OllamaGenerator struct {
	BaseURL    string
	httpClient *http.Client
}

// NewOllamaGenerator creates a generator for the Ollama server at host
func NewOllamaGenerator(host string) *OllamaGenerator {
	if host == "" {
		host = DefaultOllamaHost
	}
	return &OllamaGenerator{
		BaseURL: strings.TrimRight(host, "/"),
		httpClient: &http.Client{
			Timeout: OllamaRequestTimeout,
		},
	}
}

// WithHTTPClient replaces the HTTP client used for requests
func (o *OllamaGenerator) WithHTTPClient(c *http.Client) *OllamaGenerator {
	o.httpClient = c
	return o
}

// Generate sends one non-streaming generate request.
// Transport failures come back as *ServerError and unknown models as *ModelError.
func (o *OllamaGenerator) Generate(ctx context.Context, model, prompt string, opts Options) (string, error) {
	reqBody := ollamaGenerateRequest{
		Model:  model,
		Prompt: prompt,
		Stream: false,
		Options: map[string]any{
			"temperature": opts.Temperature,
		},
	}
	if opts.MaxTokens > 0 {
		reqBody.Options["num_predict"] = opts.MaxTokens
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to encode ollama request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.BaseURL+"/api/generate", bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create ollama request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", &ServerError{Message: "ollama request failed", Cause: err}
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Warn("error closing ollama response body", "error", err)
		}
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return "", &ServerError{Message: "failed to read ollama response", Cause: err}
	}

	if resp.StatusCode != http.StatusOK {
		var payload ollamaGenerateResponse
		_ = json.Unmarshal(body, &payload)
		msg := payload.Error
		if msg == "" {
			msg = strings.TrimSpace(string(body))
		}
		statusErr := fmt.Errorf("ollama returned status %d: %s", resp.StatusCode, msg)
		switch {
		case resp.StatusCode == http.StatusNotFound || strings.Contains(strings.ToLower(msg), "not found"):
			return "", &ModelError{Model: model, Cause: statusErr}
		case resp.StatusCode >= http.StatusInternalServerError:
			return "", &ServerError{Message: "ollama unavailable", Cause: statusErr}
		default:
			return "", statusErr
		}
	}

	var response ollamaGenerateResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return "", fmt.Errorf("failed to decode ollama response: %w", err)
	}
	return response.Response, nil
}

// Close is a no-op; the HTTP client holds no dedicated resources
func (o *OllamaGenerator) Close() error {
	return nil
}
