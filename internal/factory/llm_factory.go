package factory

import (
	"context"
	"fmt"

	"github.com/mikey/inbox-digest/internal/adapters/scoring"
	"github.com/mikey/inbox-digest/internal/config"
	"github.com/mikey/inbox-digest/internal/core"
	"github.com/mikey/inbox-digest/internal/utils"
	"go.uber.org/zap"
)

// ScorerFactory creates the delegated scorer for ambiguous items
type ScorerFactory struct {
	cfg           *config.Config
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewScorerFactory creates a new scorer factory
func NewScorerFactory(cfg *config.Config, logger *zap.Logger, textProcessor *utils.TextProcessor) *ScorerFactory {
	return &ScorerFactory{
		cfg:           cfg,
		logger:        logger,
		textProcessor: textProcessor,
	}
}

// CreateScorer creates the configured scorer wrapped in a rate limiter.
// Provider "none" returns a nil scorer and the classifier keeps rule scores.
func (f *ScorerFactory) CreateScorer(ctx context.Context) (core.Scorer, error) {
	scorerCfg, err := f.cfg.GetScorer()
	if err != nil {
		return nil, err
	}
	prompts := scoring.NewPromptBuilder(f.textProcessor, scorerCfg.MaxBodySize)

	var scorer core.Scorer
	switch scorerCfg.Provider {
	case "", "none":
		f.logger.Info("No delegated scorer configured, using rule scores only")
		return nil, nil
	case "bedrock":
		scorer, err = NewBedrockFactory(f.cfg, f.logger, prompts).CreateScorer(ctx)
	case "gemini":
		scorer, err = NewGeminiFactory(f.cfg, f.logger, prompts).CreateScorer(ctx)
	case "openai":
		scorer, err = NewOpenAIFactory(f.cfg, f.logger, prompts).CreateScorer()
	default:
		return nil, fmt.Errorf("unsupported scorer provider: %s", scorerCfg.Provider)
	}
	if err != nil {
		return nil, err
	}

	f.logger.Info("Delegated scorer configured",
		zap.String("provider", scorerCfg.Provider),
		zap.Float64("rate_limit", scorerCfg.RateLimit))
	return scoring.NewRateLimited(scorer, scorerCfg.RateLimit, scorerCfg.Burst, f.logger), nil
}
