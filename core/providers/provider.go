// Package providers wraps the external model backends behind small
// interfaces. The chat model is a black box mapping a message list to a
// completion; the embedder maps text to a vector and is absent entirely
// when no embedding model is configured.
package providers

import (
	"context"
	"errors"
)

var (
	// ErrUnknownProvider indicates an unrecognized provider name in config.
	ErrUnknownProvider = errors.New("unknown provider")

	// ErrEmbeddingNotConfigured indicates no embedding model is set.
	ErrEmbeddingNotConfigured = errors.New("embedding model not configured")
)

// ChatProvider performs a single blocking completion call.
type ChatProvider interface {
	Name() string
	Complete(ctx context.Context, req *Request) (*Response, error)
}

// Embedder maps text to a vector. Implementations should batch where they
// can; chunk-at-a-time callers still work through Embed.
type Embedder interface {
	Name() string
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// ImageGenerator renders an image from a prompt.
type ImageGenerator interface {
	GenerateImage(ctx context.Context, prompt string) ([]byte, error)
}

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn in a model conversation. ImageURLs carry optional
// image attachments as data URLs for multimodal turns.
type Message struct {
	Role      Role     `json:"role"`
	Content   string   `json:"content"`
	ImageURLs []string `json:"image_urls,omitempty"`
}

// Request is a completion request.
type Request struct {
	Messages     []Message `json:"messages"`
	Model        string    `json:"model,omitempty"`
	SystemPrompt string    `json:"system_prompt,omitempty"`
	MaxTokens    int       `json:"max_tokens,omitempty"`
	Temperature  *float64  `json:"temperature,omitempty"`
}

// Response is a completion result.
type Response struct {
	Content    string `json:"content"`
	Model      string `json:"model"`
	StopReason string `json:"stop_reason"`
	Usage      Usage  `json:"usage"`
}

type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`
}
