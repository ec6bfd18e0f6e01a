package state

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	redismodule "github.com/testcontainers/testcontainers-go/modules/redis"

	"github.com/mikey/inbox-digest/internal/core"
)

func sampleState() *core.State {
	seen := time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)
	alerted := seen.Add(-time.Hour)
	s := core.NewState()
	s.Items["fatura vence em <n> dias | banco@banco.com.br"] = core.AlertRecord{LastSeen: seen, LastAlerted: &alerted}
	s.Items["lunch | ana@example.com"] = core.AlertRecord{LastSeen: seen}
	s.SentSlots["2025-03-10_1200"] = seen
	return s
}

// exerciseStore checks the contract every backend shares
func exerciseStore(t *testing.T, repo core.StateRepository) {
	t.Helper()
	ctx := context.Background()

	empty, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, empty.Items)
	assert.Empty(t, empty.SentSlots)
	assert.NotNil(t, empty.Items)
	assert.NotNil(t, empty.SentSlots)

	want := sampleState()
	require.NoError(t, repo.Save(ctx, want))

	got, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	want.SentSlots["2025-03-10_1800"] = time.Date(2025, time.March, 10, 18, 0, 0, 0, time.UTC)
	delete(want.Items, "lunch | ana@example.com")
	require.NoError(t, repo.Save(ctx, want))

	got, err = repo.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, got.SentSlots, 2)
	assert.Len(t, got.Items, 1)
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore(nil))
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	store := NewMemoryStore(nil)
	require.NoError(t, store.Save(context.Background(), sampleState()))

	first, err := store.Load(context.Background())
	require.NoError(t, err)
	first.SentSlots["mutated"] = time.Now()

	second, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.NotContains(t, second.SentSlots, "mutated")
}

func TestFileStore(t *testing.T) {
	store, err := NewFileStore(filepath.Join(t.TempDir(), "nested", "state.json"), nil)
	require.NoError(t, err)
	exerciseStore(t, store)

	entries, err := os.ReadDir(filepath.Dir(store.Path()))
	require.NoError(t, err)
	require.Len(t, entries, 1, "temporary files must not be left behind")
	assert.Equal(t, "state.json", entries[0].Name())
}

func TestFileStoreCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"items": {`), 0o600))

	store, err := NewFileStore(path, nil)
	require.NoError(t, err)

	_, err = store.Load(context.Background())
	assert.ErrorIs(t, err, ErrCorruptState)

	require.NoError(t, store.Save(context.Background(), core.NewState()))
	st, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, st.Items)
}

func TestFileStorePartialDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"sent_slots": {"2025-03-10_0600": "2025-03-10T06:00:00Z"}}`), 0o600))

	store, err := NewFileStore(path, nil)
	require.NoError(t, err)

	st, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, st.Items)
	assert.Contains(t, st.SentSlots, "2025-03-10_0600")
}

func TestNewFileStoreRequiresPath(t *testing.T) {
	_, err := NewFileStore("  ", nil)
	assert.Error(t, err)
}

func TestSQLiteStore(t *testing.T) {
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "state.db"), nil)
	require.NoError(t, err)
	defer store.Close()

	exerciseStore(t, store)
}

func TestRedisStore(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	ctx := context.Background()

	defer func() {
		if r := recover(); r != nil {
			t.Skipf("failed to start redis container: %v", r)
		}
	}()

	container, err := redismodule.Run(ctx, "redis:7-alpine")
	if err != nil {
		t.Skipf("failed to start redis container: %v", err)
	}
	defer func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate redis container: %v", err)
		}
	}()

	endpoint, err := container.Endpoint(ctx, "")
	if err != nil {
		t.Skipf("failed to get redis endpoint: %v", err)
	}

	store := NewRedisStore(redis.NewClient(&redis.Options{Addr: endpoint}), "", nil)
	defer store.Close()

	exerciseStore(t, store)

	require.NoError(t, store.client.Set(ctx, DefaultRedisKey, "not json", 0).Err())
	_, err = store.Load(ctx)
	assert.ErrorIs(t, err, ErrCorruptState)
}
