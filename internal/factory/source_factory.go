package factory

import (
	"context"
	"fmt"

	"github.com/mikey/inbox-digest/internal/adapters/source"
	"github.com/mikey/inbox-digest/internal/config"
	"github.com/mikey/inbox-digest/internal/core"
	"go.uber.org/zap"
)

// SourceFactory creates mail sources based on configuration
type SourceFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewSourceFactory creates a new source factory
func NewSourceFactory(cfg *config.Config, logger *zap.Logger) *SourceFactory {
	return &SourceFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateMailSource creates the configured mail source. The SMTP inbox is
// also a worker and must be started by the caller.
func (f *SourceFactory) CreateMailSource(ctx context.Context) (core.MailSource, error) {
	sourceCfg, err := f.cfg.GetSource()
	if err != nil {
		return nil, err
	}

	switch sourceCfg.Type {
	case "gmail":
		return source.NewGmailSource(ctx, sourceCfg.Gmail, f.logger)
	case "imap":
		if sourceCfg.IMAP.Username == "" {
			return nil, fmt.Errorf("source.imap.username is required")
		}
		return source.NewIMAPSource(sourceCfg.IMAP, f.logger), nil
	case "smtp":
		return source.NewSMTPInbox(sourceCfg.SMTP, f.logger), nil
	default:
		return nil, fmt.Errorf("unsupported source type: %s", sourceCfg.Type)
	}
}
