package state

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/mikey/inbox-digest/internal/core"
)

// MemoryStore keeps the state blob in memory. Loads return a decoded copy
// so callers never share maps with the store.
type MemoryStore struct {
	mu     sync.RWMutex
	data   []byte
	logger *zap.Logger
}

// NewMemoryStore creates a new in-memory state store
func NewMemoryStore(logger *zap.Logger) *MemoryStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MemoryStore{logger: logger}
}

// Load returns the stored state, or an empty state when nothing was saved
func (m *MemoryStore) Load(_ context.Context) (*core.State, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return decode(m.data)
}

// Save replaces the stored state
func (m *MemoryStore) Save(_ context.Context, s *core.State) error {
	data, err := encode(s)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.data = data
	m.mu.Unlock()
	m.logger.Debug("State saved in memory", zap.Int("bytes", len(data)))
	return nil
}
