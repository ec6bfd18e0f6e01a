package openai

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/mikey/inbox-digest/internal/adapters/scoring"
	"github.com/mikey/inbox-digest/internal/core"
)

// ChatClient is the part of the OpenAI client the scorer uses
type ChatClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// OpenAIScorer is an implementation of the Scorer interface using OpenAI
type OpenAIScorer struct {
	client      ChatClient
	modelName   string
	maxTokens   int
	temperature float32
	topP        float32
	prompts     *scoring.PromptBuilder
	logger      *zap.Logger
}

// NewOpenAIScorer creates a new OpenAI scorer
func NewOpenAIScorer(
	client ChatClient,
	modelName string,
	maxTokens int,
	temperature float32,
	topP float32,
	prompts *scoring.PromptBuilder,
	logger *zap.Logger,
) *OpenAIScorer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OpenAIScorer{
		client:      client,
		modelName:   modelName,
		maxTokens:   maxTokens,
		temperature: temperature,
		topP:        topP,
		prompts:     prompts,
		logger:      logger,
	}
}

// NewClient creates the underlying API client
func NewClient(apiKey string) *openai.Client {
	return openai.NewClient(apiKey)
}

// ScoreAmbiguous asks the model for a priority verdict
func (c *OpenAIScorer) ScoreAmbiguous(ctx context.Context, item core.Group) (*core.Verdict, error) {
	req := openai.ChatCompletionRequest{
		Model: c.modelName,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: scoring.SystemPrompt,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: c.prompts.Build(item),
			},
		},
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
		TopP:        c.topP,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat completion with OpenAI: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("empty response from OpenAI")
	}

	verdict, err := scoring.ParseReply(resp.Choices[0].Message.Content, c.modelName)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("OpenAI verdict",
		zap.String("group_key", item.GroupKey),
		zap.String("priority", verdict.Label),
		zap.Int("score", verdict.Score),
		zap.String("request_id", resp.ID))

	return verdict, nil
}
