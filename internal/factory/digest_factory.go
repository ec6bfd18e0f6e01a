package factory

import (
	"fmt"

	"github.com/mikey/inbox-digest/internal/config"
	"github.com/mikey/inbox-digest/internal/core"
	"github.com/mikey/inbox-digest/internal/domains"
	"github.com/mikey/inbox-digest/internal/utils"
	"go.uber.org/zap"
)

// DigestFactory builds the core pipeline pieces from configuration
type DigestFactory struct {
	cfg           *config.Config
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewDigestFactory creates a new digest factory
func NewDigestFactory(cfg *config.Config, logger *zap.Logger, textProcessor *utils.TextProcessor) *DigestFactory {
	return &DigestFactory{
		cfg:           cfg,
		logger:        logger,
		textProcessor: textProcessor,
	}
}

// CreateNormalizer creates the record normalizer
func (f *DigestFactory) CreateNormalizer() (*core.Normalizer, error) {
	digestCfg, err := f.cfg.GetDigest()
	if err != nil {
		return nil, err
	}
	return core.NewNormalizer(f.textProcessor, digestCfg.SnippetLimit), nil
}

// CreateClassifier creates the classifier; scorer may be nil
func (f *DigestFactory) CreateClassifier(scorer core.Scorer) (*core.Classifier, error) {
	digestCfg, err := f.cfg.GetDigest()
	if err != nil {
		return nil, err
	}
	scorerCfg, err := f.cfg.GetScorer()
	if err != nil {
		return nil, err
	}
	retryCfg, err := f.cfg.GetRetry()
	if err != nil {
		return nil, err
	}

	scorerRetry := core.RetryPolicy{
		Attempts: retryCfg.Attempts,
		Delay:    retryCfg.Delay,
		Timeout:  scorerCfg.Timeout,
	}
	ignore := append(core.DefaultIgnoreDomains(), digestCfg.IgnoreDomains...)
	return core.NewClassifier(f.textProcessor, f.logger, core.ClassifierOptions{
		IgnoreDomains:   domains.NewChecker("ignore", ignore, f.logger),
		PriorityDomains: domains.NewChecker("priority", digestCfg.PriorityDomains, f.logger),
		Scorer:          scorer,
		ScorerRetry:     scorerRetry,
	}), nil
}

// CreateTracker creates the alert tracker
func (f *DigestFactory) CreateTracker() (*core.Tracker, error) {
	digestCfg, err := f.cfg.GetDigest()
	if err != nil {
		return nil, err
	}
	stateCfg, err := f.cfg.GetState()
	if err != nil {
		return nil, err
	}
	return core.NewTracker(core.TrackerConfig{
		MinScore:        digestCfg.MinScore,
		ReAlertInterval: digestCfg.ReAlertInterval,
		TTL:             stateCfg.TTL,
	}, f.logger), nil
}

// CreateScheduler creates the slot scheduler
func (f *DigestFactory) CreateScheduler() (*core.Scheduler, error) {
	schedCfg, err := f.cfg.GetSchedule()
	if err != nil {
		return nil, err
	}
	loc, err := core.LoadLocation(schedCfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid schedule.timezone: %w", err)
	}
	return core.NewScheduler(core.ScheduleConfig{
		Slots:     schedCfg.Slots,
		Tolerance: schedCfg.Tolerance,
		Location:  loc,
		Policy:    core.Policy(schedCfg.Policy),
		MaxSleep:  schedCfg.MaxSleep,
	})
}

// CreateFormatter creates the digest renderer in the scheduler's zone
func (f *DigestFactory) CreateFormatter(scheduler *core.Scheduler) (*core.Formatter, error) {
	digestCfg, err := f.cfg.GetDigest()
	if err != nil {
		return nil, err
	}
	return core.NewFormatter(digestCfg.MaxLowItems, scheduler.Location()), nil
}

// CreateServiceConfig collects the cycle-level settings
func (f *DigestFactory) CreateServiceConfig() (core.ServiceConfig, error) {
	digestCfg, err := f.cfg.GetDigest()
	if err != nil {
		return core.ServiceConfig{}, err
	}
	stateCfg, err := f.cfg.GetState()
	if err != nil {
		return core.ServiceConfig{}, err
	}
	retryCfg, err := f.cfg.GetRetry()
	if err != nil {
		return core.ServiceConfig{}, err
	}
	schedCfg, err := f.cfg.GetSchedule()
	if err != nil {
		return core.ServiceConfig{}, err
	}
	return core.ServiceConfig{
		MaxFetch:  digestCfg.MaxFetch,
		Heartbeat: digestCfg.Heartbeat,
		StateTTL:  stateCfg.TTL,
		Retry: core.RetryPolicy{
			Attempts: retryCfg.Attempts,
			Delay:    retryCfg.Delay,
			Timeout:  retryCfg.Timeout,
		},
		PollInterval: schedCfg.PollInterval,
	}, nil
}
