package providers

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adalundhe/aide/core/config"
)

func testLLMConfig() config.LLMConfig {
	return config.LLMConfig{
		Provider:  "openai",
		APIKey:    "test-key",
		ChatModel: "gpt-4o-mini",
	}
}

func TestNewChatProviderSelectsBackend(t *testing.T) {
	cfg := testLLMConfig()

	p, err := NewChatProvider(cfg)
	require.NoError(t, err)
	assert.Equal(t, "openai", p.Name())

	cfg.Provider = "anthropic"
	cfg.ChatModel = "claude-sonnet-4-5"
	p, err = NewChatProvider(cfg)
	require.NoError(t, err)
	assert.Equal(t, "anthropic", p.Name())
}

func TestNewChatProviderDefaultsToOpenAI(t *testing.T) {
	cfg := testLLMConfig()
	cfg.Provider = ""

	p, err := NewChatProvider(cfg)
	require.NoError(t, err)
	assert.Equal(t, "openai", p.Name())
}

func TestNewChatProviderUnknown(t *testing.T) {
	cfg := testLLMConfig()
	cfg.Provider = "llamafarm"

	_, err := NewChatProvider(cfg)
	assert.ErrorIs(t, err, ErrUnknownProvider)
}

func TestNewChatProviderMissingKey(t *testing.T) {
	cfg := testLLMConfig()
	cfg.APIKey = ""

	_, err := NewChatProvider(cfg)
	assert.Error(t, err)
}

func TestNewEmbedderRequiresModel(t *testing.T) {
	cfg := testLLMConfig()
	cfg.EmbeddingModel = ""

	_, err := NewEmbedder(context.Background(), cfg)
	assert.ErrorIs(t, err, ErrEmbeddingNotConfigured)
}

func TestNewEmbedderSelectsBackend(t *testing.T) {
	cfg := testLLMConfig()
	cfg.EmbeddingModel = "text-embedding-3-small"

	e, err := NewEmbedder(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, "openai", e.Name())

	cfg.EmbeddingProvider = "gemini"
	cfg.EmbeddingModel = "gemini-embedding-001"
	e, err = NewEmbedder(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, "gemini", e.Name())

	cfg.EmbeddingProvider = "cohere"
	_, err = NewEmbedder(context.Background(), cfg)
	assert.ErrorIs(t, err, ErrUnknownProvider)
}

func TestProviderConfigMapping(t *testing.T) {
	cfg := testLLMConfig()
	cfg.BaseURL = "http://localhost:8080/v1"
	cfg.MaxTokens = 1024
	cfg.Timeout = 30 * time.Second

	pc := providerConfig(cfg)
	assert.Equal(t, "test-key", pc.APIKey)
	assert.Equal(t, "http://localhost:8080/v1", pc.BaseURL)
	assert.Equal(t, "gpt-4o-mini", pc.Model)
	assert.Equal(t, 1024, pc.MaxTokens)
	assert.Equal(t, 30*time.Second, pc.Timeout)

	// Zero values fall back to defaults.
	cfg.MaxTokens = 0
	cfg.Timeout = 0
	pc = providerConfig(cfg)
	assert.Equal(t, DefaultProviderConfig().MaxTokens, pc.MaxTokens)
	assert.Equal(t, DefaultProviderConfig().Timeout, pc.Timeout)
}

func TestOpenAIMessageConversion(t *testing.T) {
	p, err := NewOpenAIProvider(ProviderConfig{APIKey: "k", Model: "m"})
	require.NoError(t, err)

	msgs := p.convertMessages([]Message{
		{Role: RoleUser, Content: "hello"},
		{Role: RoleAssistant, Content: "hi"},
		{Role: RoleUser, Content: "look", ImageURLs: []string{"data:image/png;base64,AAAA"}},
	}, "be brief")

	// System prompt prepended, then the three turns.
	require.Len(t, msgs, 4)
	assert.NotNil(t, msgs[0].OfSystem)
	assert.NotNil(t, msgs[1].OfUser)
	assert.NotNil(t, msgs[2].OfAssistant)
	assert.NotNil(t, msgs[3].OfUser)
}

func TestAnthropicMessageConversion(t *testing.T) {
	p, err := NewAnthropicProvider(ProviderConfig{APIKey: "k", Model: "m"})
	require.NoError(t, err)

	msgs := p.convertMessages([]Message{
		{Role: RoleUser, Content: "hello"},
		{Role: RoleAssistant, Content: "hi"},
		{Role: RoleSystem, Content: "folded into user"},
	})

	require.Len(t, msgs, 3)
	assert.Equal(t, "user", string(msgs[0].Role))
	assert.Equal(t, "assistant", string(msgs[1].Role))
	assert.Equal(t, "user", string(msgs[2].Role))
}
