package providers

import (
	"context"
	"fmt"

	"github.com/adalundhe/aide/core/config"
)

// NewChatProvider builds the configured chat backend.
func NewChatProvider(cfg config.LLMConfig) (ChatProvider, error) {
	pc := providerConfig(cfg)

	switch cfg.Provider {
	case "openai", "":
		return NewOpenAIProvider(pc)
	case "anthropic":
		return NewAnthropicProvider(pc)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.Provider)
	}
}

// NewEmbedder builds the configured embedding backend. Returns
// ErrEmbeddingNotConfigured when no embedding model is set; callers treat
// that as "lexical-only" rather than a failure.
func NewEmbedder(ctx context.Context, cfg config.LLMConfig) (Embedder, error) {
	if cfg.EmbeddingModel == "" {
		return nil, ErrEmbeddingNotConfigured
	}

	switch cfg.EmbeddingProvider {
	case "openai", "":
		return NewOpenAIProvider(providerConfig(cfg))
	case "gemini":
		return NewGeminiEmbedder(ctx, cfg.APIKey, cfg.EmbeddingModel)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.EmbeddingProvider)
	}
}

// NewImageGenerator builds an image backend where the chat provider has
// one. Only the OpenAI-compatible path supports image generation.
func NewImageGenerator(cfg config.LLMConfig) (ImageGenerator, error) {
	return NewOpenAIProvider(providerConfig(cfg))
}

func providerConfig(cfg config.LLMConfig) ProviderConfig {
	pc := DefaultProviderConfig()
	pc.APIKey = cfg.APIKey
	pc.BaseURL = cfg.BaseURL
	pc.Model = cfg.ChatModel
	pc.EmbeddingModel = cfg.EmbeddingModel
	if cfg.MaxTokens > 0 {
		pc.MaxTokens = cfg.MaxTokens
	}
	if cfg.Timeout > 0 {
		pc.Timeout = cfg.Timeout
	}
	return pc
}
