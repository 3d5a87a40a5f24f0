package providers

import (
	"fmt"
	"time"
)

// ProviderConfig carries the connection settings shared by every backend.
type ProviderConfig struct {
	// APIKey is the authentication key for the provider.
	APIKey string `json:"api_key" yaml:"api_key"`

	// BaseURL overrides the default API endpoint (proxies, compatible backends).
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`

	// Model is the default model to use.
	Model string `json:"model" yaml:"model"`

	// EmbeddingModel selects the embedding model, when any.
	EmbeddingModel string `json:"embedding_model,omitempty" yaml:"embedding_model,omitempty"`

	// MaxTokens is the default maximum tokens to generate.
	MaxTokens int `json:"max_tokens" yaml:"max_tokens"`

	// Temperature is the default sampling temperature.
	Temperature float64 `json:"temperature" yaml:"temperature"`

	// Timeout for API requests.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`
}

// DefaultProviderConfig returns sensible defaults.
func DefaultProviderConfig() ProviderConfig {
	return ProviderConfig{
		MaxTokens:   4096,
		Temperature: 0.7,
		Timeout:     2 * time.Minute,
	}
}

// Validate checks the fields every call depends on.
func (c *ProviderConfig) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("api_key is required")
	}
	if c.Model == "" {
		return fmt.Errorf("model is required")
	}
	return nil
}
