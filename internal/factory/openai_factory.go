package factory

import (
	"fmt"

	"github.com/mikey/inbox-digest/internal/adapters/openai"
	"github.com/mikey/inbox-digest/internal/adapters/scoring"
	"github.com/mikey/inbox-digest/internal/config"
	"github.com/mikey/inbox-digest/internal/core"
	"go.uber.org/zap"
)

// OpenAIFactory creates OpenAI scorers
type OpenAIFactory struct {
	cfg     *config.Config
	logger  *zap.Logger
	prompts *scoring.PromptBuilder
}

// NewOpenAIFactory creates a new OpenAI factory
func NewOpenAIFactory(cfg *config.Config, logger *zap.Logger, prompts *scoring.PromptBuilder) *OpenAIFactory {
	return &OpenAIFactory{
		cfg:     cfg,
		logger:  logger,
		prompts: prompts,
	}
}

// CreateScorer creates an OpenAI scorer
func (f *OpenAIFactory) CreateScorer() (core.Scorer, error) {
	openaiCfg := f.cfg.GetOpenAI()
	if openaiCfg.APIKey == "" {
		return nil, fmt.Errorf("openai API key is required")
	}

	return openai.NewOpenAIScorer(
		openai.NewClient(openaiCfg.APIKey),
		openaiCfg.ModelName,
		openaiCfg.MaxTokens,
		openaiCfg.Temperature,
		openaiCfg.TopP,
		f.prompts,
		f.logger,
	), nil
}
