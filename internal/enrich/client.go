package enrich

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

// Client sends enrichment requests to an OpenAI-compatible API.
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client, mainly for testing.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a new enrichment client.
func NewClient(opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{},
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.logger == nil {
		c.logger = slog.Default()
	}

	return c
}

// completionRequest is the body for the completions endpoint.
type completionRequest struct {
	Model       string   `json:"model"`
	Prompt      string   `json:"prompt"`
	MaxTokens   int      `json:"max_tokens"`
	Temperature float64  `json:"temperature"`
	TopP        *float64 `json:"top_p,omitempty"`
	N           int      `json:"n,omitempty"`
	Stop        []string `json:"stop,omitempty"`
	Seed        *int     `json:"seed,omitempty"`
}

// chatRequest is the body for the chat completions endpoint.
type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature"`
	TopP        *float64  `json:"top_p,omitempty"`
	N           int       `json:"n,omitempty"`
	Stop        []string  `json:"stop,omitempty"`
	Seed        *int      `json:"seed,omitempty"`
}

// completionResponse is the completions endpoint answer.
type completionResponse struct {
	Choices []struct {
		Text string `json:"text"`
	} `json:"choices"`
}

// chatResponse is the chat completions endpoint answer.
type chatResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
}

// Run sends the configured request and returns the first generated choice.
// Non-2xx responses surface as *APIError with the response body attached.
func (c *Client) Run(ctx context.Context, cfg *Config) (string, error) {
	endpoint := strings.TrimSuffix(cfg.APIURL, "/")
	var body any
	if cfg.IsChat() {
		endpoint += "/chat/completions"
		body = chatRequest{
			Model:       cfg.Model,
			Messages:    cfg.Messages,
			MaxTokens:   effectiveMaxTokens(cfg),
			Temperature: effectiveTemperature(cfg),
			TopP:        cfg.TopP,
			N:           cfg.N,
			Stop:        cfg.Stop,
			Seed:        cfg.Seed,
		}
	} else {
		endpoint += "/completions"
		body = completionRequest{
			Model:       cfg.Model,
			Prompt:      cfg.Prompt,
			MaxTokens:   effectiveMaxTokens(cfg),
			Temperature: effectiveTemperature(cfg),
			TopP:        cfg.TopP,
			N:           cfg.N,
			Stop:        cfg.Stop,
			Seed:        cfg.Seed,
		}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if cfg.TimeoutSeconds == 0 {
		timeout = DefaultTimeoutSeconds * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+cfg.APIKey)
	}

	c.logger.Debug("sending enrichment request",
		"endpoint", endpoint,
		"model", cfg.Model,
		"chat", cfg.IsChat())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request to %s: %w", endpoint, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return "", &APIError{StatusCode: resp.StatusCode, Body: string(responseBody)}
	}

	if cfg.IsChat() {
		var parsed chatResponse
		if err := json.Unmarshal(responseBody, &parsed); err != nil {
			return "", fmt.Errorf("failed to parse chat response: %w", err)
		}
		if len(parsed.Choices) == 0 {
			return "", ErrNoChoices
		}
		return parsed.Choices[0].Message.Content, nil
	}

	var parsed completionResponse
	if err := json.Unmarshal(responseBody, &parsed); err != nil {
		return "", fmt.Errorf("failed to parse completion response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", ErrNoChoices
	}
	return parsed.Choices[0].Text, nil
}

// effectiveMaxTokens resolves the output bound with its default.
func effectiveMaxTokens(cfg *Config) int {
	if cfg.MaxTokens > 0 {
		return cfg.MaxTokens
	}
	return DefaultMaxTokens
}

// effectiveTemperature resolves the sampling temperature with its default.
// An explicit zero is respected.
func effectiveTemperature(cfg *Config) float64 {
	if cfg.Temperature != nil {
		return *cfg.Temperature
	}
	return DefaultTemperature
}
