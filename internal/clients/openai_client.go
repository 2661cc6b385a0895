package clients

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// ErrEmptyCompletion is returned when the model responds with no choices.
var ErrEmptyCompletion = errors.New("model returned no choices")

// OpenAIConfig selects the models used for each capability. GenerateJSON uses
// TextModel in JSON mode; Complete uses RepairModel, which handles the
// secondary tasks (JSON repair, policy-safe description rewriting).
type OpenAIConfig struct {
	APIKey         string
	BaseURL        string
	TextModel      string
	RepairModel    string
	ImageModel     string
	EmbeddingModel string
}

// OpenAIClient implements the text, image and embedding capabilities on the
// OpenAI API. It is passed into components behind their narrow interfaces.
type OpenAIClient struct {
	client *openai.Client
	cfg    OpenAIConfig
	logger *zap.Logger
}

// NewOpenAIClient builds an OpenAIClient from the configuration.
func NewOpenAIClient(cfg OpenAIConfig, logger *zap.Logger) *OpenAIClient {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &OpenAIClient{
		client: openai.NewClientWithConfig(clientCfg),
		cfg:    cfg,
		logger: logger.Named("openai_client"),
	}
}

// GenerateJSON runs a chat completion constrained to a JSON object response.
func (c *OpenAIClient) GenerateJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.cfg.TextModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyCompletion
	}
	c.logger.Debug("JSON completion received",
		zap.String("model", c.cfg.TextModel),
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens))
	return resp.Choices[0].Message.Content, nil
}

// Complete runs a plain chat completion on the repair model.
func (c *OpenAIClient) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.cfg.RepairModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyCompletion
	}
	return resp.Choices[0].Message.Content, nil
}

// GenerateImage renders one image and returns the model's temporary URL.
func (c *OpenAIClient) GenerateImage(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.CreateImage(ctx, openai.ImageRequest{
		Model:          c.cfg.ImageModel,
		Prompt:         prompt,
		Size:           openai.CreateImageSize1792x1024,
		Quality:        openai.CreateImageQualityStandard,
		ResponseFormat: openai.CreateImageResponseFormatURL,
		N:              1,
	})
	if err != nil {
		return "", fmt.Errorf("image generation failed: %w", err)
	}
	if len(resp.Data) == 0 {
		return "", errors.New("image model returned no data")
	}
	return resp.Data[0].URL, nil
}

// Embed returns one embedding vector per input text, in input order.
func (c *OpenAIClient) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	resp, err := c.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: texts,
		Model: openai.EmbeddingModel(c.cfg.EmbeddingModel),
	})
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("embedding count mismatch: got %d for %d inputs", len(resp.Data), len(texts))
	}
	vectors := make([][]float32, len(resp.Data))
	for i, d := range resp.Data {
		vectors[i] = d.Embedding
	}
	return vectors, nil
}
