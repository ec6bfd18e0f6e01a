package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mikey/inbox-digest/internal/core"
)

func TestDefaults(t *testing.T) {
	cfg := NewFromViper(NewEmptyViper())

	digest, err := cfg.GetDigest()
	require.NoError(t, err)
	assert.Equal(t, 35, digest.MinScore)
	assert.Equal(t, 12*time.Hour, digest.ReAlertInterval)
	assert.Equal(t, 30, digest.MaxFetch)
	assert.Equal(t, 800, digest.SnippetLimit)

	sched, err := cfg.GetSchedule()
	require.NoError(t, err)
	assert.Equal(t, []string{"06:00", "12:00", "18:00"}, sched.Slots)
	assert.Equal(t, 4*time.Minute, sched.Tolerance)
	assert.Equal(t, "America/Sao_Paulo", sched.Timezone)
	assert.Equal(t, "catch-up", sched.Policy)

	state, err := cfg.GetState()
	require.NoError(t, err)
	assert.Equal(t, 14*24*time.Hour, state.TTL)

	require.NoError(t, cfg.Validate())
}

func TestGetStringSliceSplitsCommaList(t *testing.T) {
	v := NewEmptyViper()
	v.Set("schedule.slots", "07:30, 19:00")
	cfg := NewFromViper(v)

	assert.Equal(t, []string{"07:30", "19:00"}, cfg.GetStringSlice("schedule.slots"))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		value   interface{}
		wantErr error
	}{
		{name: "empty slots", key: "schedule.slots", value: []string{}, wantErr: ErrEmptySchedule},
		{name: "bad policy", key: "schedule.policy", value: "sometimes"},
		{name: "bad duration", key: "digest.re_alert_interval", value: "twelve hours"},
		{name: "zero poll interval", key: "schedule.poll_interval", value: "0s"},
		{name: "slot out of range", key: "schedule.slots", value: []string{"06:00", "25:00"}, wantErr: core.ErrTimeFormat},
		{name: "malformed slot", key: "schedule.slots", value: []string{"noon"}, wantErr: core.ErrTimeFormat},
		{name: "unknown timezone", key: "schedule.timezone", value: "Mars/Olympus_Mons"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewEmptyViper()
			v.Set(tt.key, tt.value)
			err := NewFromViper(v).Validate()
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestNewFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte("digest:\n  min_score: 50\nschedule:\n  slots: [\"08:00\"]\n  policy: window\n")
	require.NoError(t, os.WriteFile(path, content, 0o600))

	cfg, err := NewFromFile(path)
	require.NoError(t, err)

	digest, err := cfg.GetDigest()
	require.NoError(t, err)
	assert.Equal(t, 50, digest.MinScore)

	sched, err := cfg.GetSchedule()
	require.NoError(t, err)
	assert.Equal(t, []string{"08:00"}, sched.Slots)
	assert.Equal(t, "window", sched.Policy)
	assert.Equal(t, 4*time.Minute, sched.Tolerance)
}
