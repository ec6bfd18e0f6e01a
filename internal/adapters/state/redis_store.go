package state

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/mikey/inbox-digest/internal/core"
)

// DefaultRedisKey is used when state.redis_key is empty
const DefaultRedisKey = "inbox-digest:state"

// RedisStore keeps the state blob under a single Redis key
type RedisStore struct {
	client *redis.Client
	key    string
	logger *zap.Logger
}

// NewRedisStore wraps an existing client
func NewRedisStore(client *redis.Client, key string, logger *zap.Logger) *RedisStore {
	if key == "" {
		key = DefaultRedisKey
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisStore{client: client, key: key, logger: logger}
}

// Load reads the state key. A missing key is an empty state.
func (r *RedisStore) Load(ctx context.Context) (*core.State, error) {
	data, err := r.client.Get(ctx, r.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return core.NewState(), nil
		}
		return nil, fmt.Errorf("failed to read state from redis: %w", err)
	}
	return decode(data)
}

// Save overwrites the state key without expiry; entries expire through the
// tracker's TTL pruning instead
func (r *RedisStore) Save(ctx context.Context, s *core.State) error {
	data, err := encode(s)
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, r.key, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to write state to redis: %w", err)
	}
	r.logger.Debug("State saved", zap.String("key", r.key), zap.Int("bytes", len(data)))
	return nil
}

// Close closes the client
func (r *RedisStore) Close() error {
	return r.client.Close()
}
