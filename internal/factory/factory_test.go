package factory

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mikey/inbox-digest/internal/adapters/sink"
	"github.com/mikey/inbox-digest/internal/adapters/source"
	"github.com/mikey/inbox-digest/internal/adapters/state"
	"github.com/mikey/inbox-digest/internal/config"
	"github.com/mikey/inbox-digest/internal/core"
	"github.com/mikey/inbox-digest/internal/utils"
)

func newConfig(values map[string]interface{}) *config.Config {
	v := config.NewEmptyViper()
	for k, val := range values {
		v.Set(k, val)
	}
	return config.NewFromViper(v)
}

func TestStateFactory(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name    string
		values  map[string]interface{}
		check   func(t *testing.T, repo core.StateRepository)
		wantErr bool
	}{
		{
			name:   "memory",
			values: map[string]interface{}{"state.type": "memory"},
			check: func(t *testing.T, repo core.StateRepository) {
				assert.IsType(t, &state.MemoryStore{}, repo)
			},
		},
		{
			name:   "file",
			values: map[string]interface{}{"state.type": "file", "state.file_path": filepath.Join(dir, "s", "state.json")},
			check: func(t *testing.T, repo core.StateRepository) {
				assert.IsType(t, &state.FileStore{}, repo)
			},
		},
		{
			name:   "sqlite",
			values: map[string]interface{}{"state.type": "sqlite", "state.sqlite_path": filepath.Join(dir, "db", "state.db")},
			check: func(t *testing.T, repo core.StateRepository) {
				require.IsType(t, &state.SQLStore{}, repo)
				repo.(*state.SQLStore).Close()
			},
		},
		{
			name:    "unknown",
			values:  map[string]interface{}{"state.type": "etcd"},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, err := NewStateFactory(newConfig(tt.values), zap.NewNop()).CreateStateRepository()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			tt.check(t, repo)
		})
	}
}

func TestSinkFactory(t *testing.T) {
	s, err := NewSinkFactory(newConfig(map[string]interface{}{"sink.type": "console"}), zap.NewNop()).CreateDeliverySink()
	require.NoError(t, err)
	assert.IsType(t, &sink.ConsoleSink{}, s)

	_, err = NewSinkFactory(newConfig(map[string]interface{}{"sink.type": "telegram"}), zap.NewNop()).CreateDeliverySink()
	assert.Error(t, err)

	_, err = NewSinkFactory(newConfig(map[string]interface{}{"sink.type": "pager"}), zap.NewNop()).CreateDeliverySink()
	assert.Error(t, err)
}

func TestSourceFactory(t *testing.T) {
	src, err := NewSourceFactory(newConfig(map[string]interface{}{"source.type": "smtp"}), zap.NewNop()).
		CreateMailSource(context.Background())
	require.NoError(t, err)
	assert.IsType(t, &source.SMTPInbox{}, src)

	src, err = NewSourceFactory(newConfig(map[string]interface{}{
		"source.type":          "imap",
		"source.imap.username": "me@example.com",
	}), zap.NewNop()).CreateMailSource(context.Background())
	require.NoError(t, err)
	assert.IsType(t, &source.IMAPSource{}, src)

	_, err = NewSourceFactory(newConfig(map[string]interface{}{"source.type": "imap"}), zap.NewNop()).
		CreateMailSource(context.Background())
	assert.Error(t, err)

	_, err = NewSourceFactory(newConfig(map[string]interface{}{
		"source.type":                   "gmail",
		"source.gmail.credentials_file": filepath.Join(t.TempDir(), "missing.json"),
	}), zap.NewNop()).CreateMailSource(context.Background())
	assert.Error(t, err)
}

func TestScorerFactory(t *testing.T) {
	text := utils.NewTextProcessor(nil)

	scorer, err := NewScorerFactory(newConfig(nil), zap.NewNop(), text).CreateScorer(context.Background())
	require.NoError(t, err)
	assert.Nil(t, scorer)

	_, err = NewScorerFactory(newConfig(map[string]interface{}{"scorer.provider": "openai"}), zap.NewNop(), text).
		CreateScorer(context.Background())
	assert.Error(t, err)

	scorer, err = NewScorerFactory(newConfig(map[string]interface{}{
		"scorer.provider": "openai",
		"openai.api_key":  "sk-test",
	}), zap.NewNop(), text).CreateScorer(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, scorer)

	_, err = NewScorerFactory(newConfig(map[string]interface{}{"scorer.provider": "oracle"}), zap.NewNop(), text).
		CreateScorer(context.Background())
	assert.Error(t, err)
}

func TestDigestFactory(t *testing.T) {
	f := NewDigestFactory(newConfig(map[string]interface{}{
		"schedule.timezone": "UTC",
		"retry.attempts":    5,
	}), zap.NewNop(), nil)

	sched, err := f.CreateScheduler()
	require.NoError(t, err)
	assert.Equal(t, "UTC", sched.Location().String())
	assert.Equal(t, core.PolicyCatchUp, sched.Policy())

	svcCfg, err := f.CreateServiceConfig()
	require.NoError(t, err)
	assert.Equal(t, 5, svcCfg.Retry.Attempts)
	assert.Equal(t, 30, svcCfg.MaxFetch)

	_, err = NewDigestFactory(newConfig(map[string]interface{}{"schedule.timezone": "Mars/Olympus"}), zap.NewNop(), nil).
		CreateScheduler()
	assert.Error(t, err)

	_, err = NewDigestFactory(newConfig(map[string]interface{}{"schedule.slots": []string{"25:00"}}), zap.NewNop(), nil).
		CreateScheduler()
	assert.Error(t, err)
}
