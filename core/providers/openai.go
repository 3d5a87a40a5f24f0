package providers

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAIProvider implements ChatProvider, Embedder, and ImageGenerator
// against any OpenAI-compatible endpoint.
type OpenAIProvider struct {
	client *openai.Client
	config ProviderConfig
}

// DefaultImageModel is used for image generation requests.
const DefaultImageModel = "gpt-image-1"

// NewOpenAIProvider creates a provider from the given configuration.
func NewOpenAIProvider(config ProviderConfig) (*OpenAIProvider, error) {
	if config.MaxTokens == 0 {
		config.MaxTokens = DefaultProviderConfig().MaxTokens
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("openai config: %w", err)
	}

	opts := []option.RequestOption{
		option.WithAPIKey(config.APIKey),
	}
	if config.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(config.BaseURL))
	}
	if config.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(config.Timeout))
	}

	client := openai.NewClient(opts...)

	return &OpenAIProvider{
		client: &client,
		config: config,
	}, nil
}

// Name returns the provider identifier.
func (p *OpenAIProvider) Name() string { return "openai" }

// Complete performs a single blocking chat completion.
func (p *OpenAIProvider) Complete(ctx context.Context, req *Request) (*Response, error) {
	model := req.Model
	if model == "" {
		model = p.config.Model
	}
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = p.config.MaxTokens
	}

	params := openai.ChatCompletionNewParams{
		Model:               openai.ChatModel(model),
		Messages:            p.convertMessages(req.Messages, req.SystemPrompt),
		MaxCompletionTokens: openai.Int(int64(maxTokens)),
	}
	if req.Temperature != nil {
		params.Temperature = openai.Float(*req.Temperature)
	} else if p.config.Temperature > 0 {
		params.Temperature = openai.Float(p.config.Temperature)
	}

	completion, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai complete: %w", err)
	}
	if len(completion.Choices) == 0 {
		return nil, fmt.Errorf("openai complete: empty choices")
	}

	choice := completion.Choices[0]
	return &Response{
		Content:    choice.Message.Content,
		Model:      completion.Model,
		StopReason: string(choice.FinishReason),
		Usage: Usage{
			InputTokens:  int(completion.Usage.PromptTokens),
			OutputTokens: int(completion.Usage.CompletionTokens),
			TotalTokens:  int(completion.Usage.TotalTokens),
		},
	}, nil
}

func (p *OpenAIProvider) convertMessages(messages []Message, systemPrompt string) []openai.ChatCompletionMessageParamUnion {
	result := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages)+1)

	if systemPrompt != "" {
		result = append(result, openai.SystemMessage(systemPrompt))
	}

	for _, msg := range messages {
		switch msg.Role {
		case RoleSystem:
			result = append(result, openai.SystemMessage(msg.Content))
		case RoleAssistant:
			result = append(result, openai.AssistantMessage(msg.Content))
		case RoleUser:
			if len(msg.ImageURLs) == 0 {
				result = append(result, openai.UserMessage(msg.Content))
				continue
			}
			parts := make([]openai.ChatCompletionContentPartUnionParam, 0, len(msg.ImageURLs)+1)
			if msg.Content != "" {
				parts = append(parts, openai.TextContentPart(msg.Content))
			}
			for _, url := range msg.ImageURLs {
				parts = append(parts, openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
					URL: url,
				}))
			}
			result = append(result, openai.UserMessage(parts))
		}
	}

	return result
}

// Embed maps one text to a vector.
func (p *OpenAIProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := p.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch maps texts to vectors in a single round-trip.
func (p *OpenAIProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if p.config.EmbeddingModel == "" {
		return nil, ErrEmbeddingNotConfigured
	}

	res, err := p.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Model: openai.EmbeddingModel(p.config.EmbeddingModel),
		Input: openai.EmbeddingNewParamsInputUnion{
			OfArrayOfStrings: texts,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("openai embed: %w", err)
	}
	if len(res.Data) != len(texts) {
		return nil, fmt.Errorf("openai embed: got %d vectors for %d inputs", len(res.Data), len(texts))
	}

	vectors := make([][]float32, len(res.Data))
	for i, item := range res.Data {
		vec := make([]float32, len(item.Embedding))
		for j, v := range item.Embedding {
			vec[j] = float32(v)
		}
		vectors[i] = vec
	}
	return vectors, nil
}

// GenerateImage renders an image and returns the raw bytes.
func (p *OpenAIProvider) GenerateImage(ctx context.Context, prompt string) ([]byte, error) {
	res, err := p.client.Images.Generate(ctx, openai.ImageGenerateParams{
		Prompt: prompt,
		Model:  openai.ImageModel(DefaultImageModel),
		N:      openai.Int(1),
	})
	if err != nil {
		return nil, fmt.Errorf("openai image: %w", err)
	}
	if len(res.Data) == 0 || res.Data[0].B64JSON == "" {
		return nil, fmt.Errorf("openai image: empty response")
	}

	raw, err := base64.StdEncoding.DecodeString(res.Data[0].B64JSON)
	if err != nil {
		return nil, fmt.Errorf("openai image: decode: %w", err)
	}
	return raw, nil
}
