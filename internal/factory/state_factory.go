package factory

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/mikey/inbox-digest/internal/adapters/state"
	"github.com/mikey/inbox-digest/internal/config"
	"github.com/mikey/inbox-digest/internal/core"
)

const redisPingTimeout = 5 * time.Second

// StateFactory creates state repositories based on configuration
type StateFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewStateFactory creates a new state factory
func NewStateFactory(cfg *config.Config, logger *zap.Logger) *StateFactory {
	return &StateFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateStateRepository creates the configured state repository
func (f *StateFactory) CreateStateRepository() (core.StateRepository, error) {
	stateCfg, err := f.cfg.GetState()
	if err != nil {
		return nil, err
	}

	switch stateCfg.Type {
	case "memory":
		return state.NewMemoryStore(f.logger), nil
	case "file":
		return state.NewFileStore(stateCfg.FilePath, f.logger)
	case "sqlite":
		// Ensure directory exists
		if err := os.MkdirAll(filepath.Dir(stateCfg.SQLitePath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create SQLite directory: %w", err)
		}
		return state.NewSQLiteStore(stateCfg.SQLitePath, f.logger)
	case "mysql":
		return state.NewMySQLStore(stateCfg.MySQLDSN, f.logger)
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     stateCfg.RedisAddr,
			Password: stateCfg.RedisPassword,
			DB:       stateCfg.RedisDB,
		})
		ctx, cancel := context.WithTimeout(context.Background(), redisPingTimeout)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, fmt.Errorf("failed to connect to redis at %s: %w", stateCfg.RedisAddr, err)
		}
		return state.NewRedisStore(client, stateCfg.RedisKey, f.logger), nil
	default:
		return nil, fmt.Errorf("unsupported state type: %s", stateCfg.Type)
	}
}

// GetStateTTL returns how long alert records outlive their last sighting
func (f *StateFactory) GetStateTTL() (time.Duration, error) {
	stateCfg, err := f.cfg.GetState()
	if err != nil {
		return 0, err
	}
	return stateCfg.TTL, nil
}
