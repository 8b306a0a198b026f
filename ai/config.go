// Package ai wraps the OpenAI-compatible provider APIs used for chat
// completion, embedding generation and conversation titling.
package ai

import (
	"github.com/pkg/errors"

	"github.com/hrygo/ragdesk/internal/profile"
)

// LLMConfig configures the chat completion client. Any OpenAI-compatible
// provider works; BaseURL defaults per provider in the profile layer.
type LLMConfig struct {
	Provider    string
	Model       string
	APIKey      string
	BaseURL     string
	MaxTokens   int
	Temperature float32
	Timeout     int // seconds
}

// EmbeddingConfig configures the embedding client.
type EmbeddingConfig struct {
	Provider   string
	Model      string
	APIKey     string
	BaseURL    string
	Dimensions int
}

// Config bundles all AI service configuration.
type Config struct {
	LLM       LLMConfig
	Embedding EmbeddingConfig
}

// NewConfigFromProfile builds the AI configuration from the runtime profile.
func NewConfigFromProfile(p *profile.Profile) *Config {
	return &Config{
		LLM: LLMConfig{
			Provider: p.LLMProvider,
			Model:    p.LLMModel,
			APIKey:   p.LLMAPIKey,
			BaseURL:  p.LLMBaseURL,
			Timeout:  p.LLMTimeout,
		},
		Embedding: EmbeddingConfig{
			Provider:   p.EmbeddingProvider,
			Model:      p.EmbeddingModel,
			APIKey:     p.EmbeddingAPIKey,
			BaseURL:    p.EmbeddingBaseURL,
			Dimensions: p.EmbeddingDimensions,
		},
	}
}

// Validate checks the configuration for required fields.
func (c *Config) Validate() error {
	if c.LLM.APIKey == "" {
		return errors.New("llm api key required")
	}
	if c.LLM.Model == "" {
		return errors.New("llm model required")
	}
	if c.Embedding.APIKey == "" {
		return errors.New("embedding api key required")
	}
	if c.Embedding.Model == "" {
		return errors.New("embedding model required")
	}
	return nil
}
