package llm

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"time"
)

// RetryConfig bounds the retry loop of a completion call.
type RetryConfig struct {
	// MaxAttempts is the total number of generator calls allowed.
	MaxAttempts int
	// BaseDelay is the backoff before the second attempt.
	BaseDelay time.Duration
	// MaxDelay caps every individual backoff.
	MaxDelay time.Duration
	// JitterFraction is the upper bound of the multiplicative jitter U(0, JitterFraction).
	JitterFraction float64
	// SwitchAfter is the number of failed model-error attempts on the preferred
	// model after which the call moves to the fallback model.
	SwitchAfter int
}

// DefaultRetryConfig returns the production retry policy.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:    8,
		BaseDelay:      time.Second,
		MaxDelay:       120 * time.Second,
		JitterFraction: 0.2,
		SwitchAfter:    3,
	}
}

// WorstCase is the longest a completion call can run when every attempt
// takes perAttempt and every backoff draws the maximum jitter.
func (c RetryConfig) WorstCase(perAttempt time.Duration) time.Duration {
	attempts := max(c.MaxAttempts, 1)
	total := time.Duration(attempts) * perAttempt
	for attempt := 1; attempt < attempts; attempt++ {
		backoff := float64(c.BaseDelay) * math.Pow(2, float64(attempt-1)) * (1 + c.JitterFraction)
		total += min(time.Duration(math.Round(backoff)), c.MaxDelay)
	}
	return total
}

// GenerationBudget is the worst case of the default retry policy against Ollama.
func GenerationBudget() time.Duration {
	return DefaultRetryConfig().WorstCase(OllamaRequestTimeout)
}

// Sleeper waits for d or until ctx is done, whichever comes first.
type Sleeper func(ctx context.Context, d time.Duration) error

// Completion is the successful result of a completion call.
type Completion struct {
	Text     string
	Model    string
	Attempts int
}

// ResilientClient wraps a Generator with bounded retries, exponential backoff
// with jitter, and a one-way switch to the fallback model.
type ResilientClient struct {
	generator     Generator
	fallbackModel string
	retryConfig   RetryConfig
	sleep         Sleeper
	jitter        func() float64
	logger        *slog.Logger
}

// ClientOption configures a ResilientClient.
type ClientOption func(*ResilientClient)

// WithRetryConfig sets the retry configuration.
func WithRetryConfig(cfg RetryConfig) ClientOption {
	return func(c *ResilientClient) {
		c.retryConfig = cfg
	}
}

// WithSleeper replaces the backoff sleeper.
func WithSleeper(s Sleeper) ClientOption {
	return func(c *ResilientClient) {
		c.sleep = s
	}
}

// WithJitterSource replaces the U(0,1) source used for jitter.
func WithJitterSource(f func() float64) ClientOption {
	return func(c *ResilientClient) {
		c.jitter = f
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *ResilientClient) {
		c.logger = logger
	}
}

// NewResilientClient creates a client that falls back to fallbackModel after repeated model errors.
func NewResilientClient(generator Generator, fallbackModel string, opts ...ClientOption) *ResilientClient {
	c := &ResilientClient{
		generator:     generator,
		fallbackModel: fallbackModel,
		retryConfig:   DefaultRetryConfig(),
		sleep:         contextSleep,
		jitter:        rand.Float64,
		logger:        slog.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Complete asks the generator for text, retrying model and server errors.
// Non-retryable errors are returned as-is; a spent budget returns an error
// wrapping both ErrExhaustedRetries and the last generator error.
func (c *ResilientClient) Complete(ctx context.Context, prompt, preferredModel string, maxTokens int) (*Completion, error) {
	model := preferredModel
	opts := Options{Temperature: DefaultTemperature, MaxTokens: maxTokens}
	maxAttempts := c.retryConfig.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		text, err := c.generator.Generate(ctx, model, prompt, opts)
		if err == nil {
			return &Completion{Text: text, Model: model, Attempts: attempt}, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		class := Classify(err)
		if class == ClassFatal {
			return nil, err
		}

		if class == ClassModel && model == preferredModel && attempt >= c.retryConfig.SwitchAfter &&
			c.fallbackModel != "" && c.fallbackModel != preferredModel {
			c.logger.Warn("Switching to fallback model",
				"from", preferredModel,
				"to", c.fallbackModel,
				"attempt", attempt)
			model = c.fallbackModel
		}

		if attempt < maxAttempts {
			backoff := c.calculateBackoff(attempt)
			c.logger.Debug("Completion failed, retrying",
				"attempt", attempt,
				"max_attempts", maxAttempts,
				"class", class.String(),
				"backoff", backoff,
				"error", err)

			if err := c.sleep(ctx, backoff); err != nil {
				return nil, err
			}
		}
	}

	return nil, fmt.Errorf("%w after %d attempts: %w", ErrExhaustedRetries, maxAttempts, lastErr)
}

// calculateBackoff computes BaseDelay * 2^(attempt-1) * (1 + jitter), capped at MaxDelay.
func (c *ResilientClient) calculateBackoff(attempt int) time.Duration {
	multiplier := math.Pow(2, float64(attempt-1))
	jitter := 1 + c.jitter()*c.retryConfig.JitterFraction

	backoff := float64(c.retryConfig.BaseDelay) * multiplier * jitter
	if backoff > float64(c.retryConfig.MaxDelay) {
		return c.retryConfig.MaxDelay
	}
	return time.Duration(backoff)
}

func contextSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
