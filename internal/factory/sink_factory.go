package factory

import (
	"fmt"

	"github.com/mikey/inbox-digest/internal/adapters/sink"
	"github.com/mikey/inbox-digest/internal/config"
	"github.com/mikey/inbox-digest/internal/core"
	"go.uber.org/zap"
)

// SinkFactory creates delivery sinks based on configuration
type SinkFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewSinkFactory creates a new sink factory
func NewSinkFactory(cfg *config.Config, logger *zap.Logger) *SinkFactory {
	return &SinkFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateDeliverySink creates the configured sink
func (f *SinkFactory) CreateDeliverySink() (core.DeliverySink, error) {
	sinkCfg := f.cfg.GetSink()

	switch sinkCfg.Type {
	case "telegram":
		return sink.NewTelegramSink(sinkCfg.Telegram, f.logger)
	case "smtp":
		return sink.NewSMTPSink(sinkCfg.SMTP, f.logger)
	case "console":
		return sink.NewConsoleSink(nil), nil
	default:
		return nil, fmt.Errorf("unsupported sink type: %s", sinkCfg.Type)
	}
}
