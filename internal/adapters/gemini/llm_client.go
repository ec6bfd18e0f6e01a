package gemini

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/mikey/inbox-digest/internal/adapters/scoring"
	"github.com/mikey/inbox-digest/internal/core"
)

// GeminiScorer is an implementation of the Scorer interface using Google Gemini
type GeminiScorer struct {
	client    *genai.Client
	model     *genai.GenerativeModel
	modelName string
	prompts   *scoring.PromptBuilder
	logger    *zap.Logger
}

// NewGeminiScorer creates a new Gemini scorer
func NewGeminiScorer(
	ctx context.Context,
	apiKey string,
	modelName string,
	maxTokens int,
	temperature float32,
	topP float32,
	prompts *scoring.PromptBuilder,
	logger *zap.Logger,
) (*GeminiScorer, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := client.GenerativeModel(modelName)
	model.SetTemperature(temperature)
	model.SetTopP(topP)
	model.SetMaxOutputTokens(int32(maxTokens))
	model.ResponseMIMEType = "application/json"
	model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(scoring.SystemPrompt)}}

	return &GeminiScorer{
		client:    client,
		model:     model,
		modelName: modelName,
		prompts:   prompts,
		logger:    logger,
	}, nil
}

// Close closes the Gemini client
func (c *GeminiScorer) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// ScoreAmbiguous asks the model for a priority verdict
func (c *GeminiScorer) ScoreAmbiguous(ctx context.Context, item core.Group) (*core.Verdict, error) {
	resp, err := c.model.GenerateContent(ctx, genai.Text(c.prompts.Build(item)))
	if err != nil {
		return nil, fmt.Errorf("failed to generate content with Gemini: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("empty response from Gemini")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}

	verdict, err := scoring.ParseReply(sb.String(), c.modelName)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("Gemini verdict",
		zap.String("group_key", item.GroupKey),
		zap.String("priority", verdict.Label),
		zap.Int("score", verdict.Score))

	return verdict, nil
}
