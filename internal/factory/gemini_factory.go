package factory

import (
	"context"
	"fmt"

	"github.com/mikey/inbox-digest/internal/adapters/gemini"
	"github.com/mikey/inbox-digest/internal/adapters/scoring"
	"github.com/mikey/inbox-digest/internal/config"
	"github.com/mikey/inbox-digest/internal/core"
	"go.uber.org/zap"
)

// GeminiFactory creates Gemini scorers
type GeminiFactory struct {
	cfg     *config.Config
	logger  *zap.Logger
	prompts *scoring.PromptBuilder
}

// NewGeminiFactory creates a new Gemini factory
func NewGeminiFactory(cfg *config.Config, logger *zap.Logger, prompts *scoring.PromptBuilder) *GeminiFactory {
	return &GeminiFactory{
		cfg:     cfg,
		logger:  logger,
		prompts: prompts,
	}
}

// CreateScorer creates a Gemini scorer
func (f *GeminiFactory) CreateScorer(ctx context.Context) (core.Scorer, error) {
	geminiCfg := f.cfg.GetGemini()

	if geminiCfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}

	scorer, err := gemini.NewGeminiScorer(
		ctx,
		geminiCfg.APIKey,
		geminiCfg.ModelName,
		geminiCfg.MaxTokens,
		geminiCfg.Temperature,
		geminiCfg.TopP,
		f.prompts,
		f.logger,
	)
	if err != nil {
		return nil, err
	}
	return scorer, nil
}
