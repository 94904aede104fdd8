package enrich

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Default generation parameters, applied when the configuration leaves
// them unset.
const (
	// DefaultMaxTokens bounds the generated output length.
	DefaultMaxTokens = 1024

	// DefaultTemperature is the sampling temperature.
	DefaultTemperature = 0.7

	// DefaultTimeoutSeconds is the request timeout. Local LLM servers can
	// take minutes on long documents, so the default is generous.
	DefaultTimeoutSeconds = 300
)

// RoleUser is the chat role input documents are attached to.
const RoleUser = "user"

// Message is a single chat message.
type Message struct {
	Role    string `yaml:"role" json:"role"`
	Content string `yaml:"content" json:"content"`
}

// Config describes one enrichment request against an OpenAI-compatible API.
//
// The prompt form is discriminated structurally: a `prompt` string selects
// the completion endpoint, a `messages` list selects the chat endpoint.
// Exactly one of the two must be set.
type Config struct {
	// APIURL is the API base URL, e.g. "http://localhost:8000/v1".
	APIURL string `yaml:"api_url" json:"api_url"`

	// APIKey is the optional API key, sent as a Bearer token when set.
	// Never logged.
	APIKey string `yaml:"api_key,omitempty" json:"api_key,omitempty"`

	// Model is the model name to use.
	Model string `yaml:"model" json:"model"`

	// Prompt is the completion-form prompt.
	Prompt string `yaml:"prompt,omitempty" json:"prompt,omitempty"`

	// Messages is the chat-form message list.
	Messages []Message `yaml:"messages,omitempty" json:"messages,omitempty"`

	// MaxTokens bounds the generated output. Zero means DefaultMaxTokens.
	MaxTokens int `yaml:"max_tokens,omitempty" json:"max_tokens,omitempty"`

	// Temperature is the sampling temperature. Nil means DefaultTemperature;
	// an explicit 0 selects greedy sampling.
	Temperature *float64 `yaml:"temperature,omitempty" json:"temperature,omitempty"`

	// TopP is the optional nucleus sampling parameter.
	TopP *float64 `yaml:"top_p,omitempty" json:"top_p,omitempty"`

	// N is the optional number of sequences to generate.
	N int `yaml:"n,omitempty" json:"n,omitempty"`

	// Stop is the optional list of stop sequences.
	Stop []string `yaml:"stop,omitempty" json:"stop,omitempty"`

	// Seed is the optional random seed for reproducible runs.
	Seed *int `yaml:"seed,omitempty" json:"seed,omitempty"`

	// TimeoutSeconds is the request timeout. Zero means DefaultTimeoutSeconds.
	TimeoutSeconds int `yaml:"timeout_seconds,omitempty" json:"timeout_seconds,omitempty"`
}

// Load reads a configuration from a YAML or JSON file, selected by the
// file extension.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided config path is intentional
	if err != nil {
		return nil, err
	}

	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, err
		}
	case ".json":
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, err
		}
	default:
		return nil, ErrUnsupportedConfigFormat
	}

	return &cfg, nil
}

// Validate checks that the configuration is complete enough to send.
// It returns a specific error describing what is invalid.
func (c *Config) Validate() error {
	if c.APIURL == "" {
		return ErrNoAPIURL
	}
	if c.Model == "" {
		return ErrNoModel
	}
	if c.Prompt == "" && len(c.Messages) == 0 {
		return ErrNoPrompt
	}
	if c.Prompt != "" && len(c.Messages) > 0 {
		return ErrAmbiguousPrompt
	}
	return nil
}

// IsChat reports whether the configuration uses the chat form.
func (c *Config) IsChat() bool {
	return len(c.Messages) > 0
}

// AttachInput appends a document to the prompt as a "Content:" block.
// In chat form the document lands on the last user message; a new user
// message is added when there is none.
func (c *Config) AttachInput(content string) {
	if !c.IsChat() {
		c.Prompt = c.Prompt + "\n\nContent:\n" + content
		return
	}

	for i := len(c.Messages) - 1; i >= 0; i-- {
		if c.Messages[i].Role == RoleUser {
			c.Messages[i].Content = c.Messages[i].Content + "\n\nContent:\n" + content
			return
		}
	}
	c.Messages = append(c.Messages, Message{Role: RoleUser, Content: "Content:\n" + content})
}
