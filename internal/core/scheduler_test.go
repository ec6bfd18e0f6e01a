package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestScheduler(t *testing.T, policy Policy) *Scheduler {
	t.Helper()
	loc, err := LoadLocation("America/Sao_Paulo")
	require.NoError(t, err)
	s, err := NewScheduler(ScheduleConfig{
		Slots:     []string{"18:00", "06:00", "12:00", "12:00"},
		Tolerance: 4 * time.Minute,
		Location:  loc,
		Policy:    policy,
		MaxSleep:  time.Hour,
	})
	require.NoError(t, err)
	return s
}

func at(t *testing.T, s *Scheduler, value string) time.Time {
	t.Helper()
	ts, err := time.ParseInLocation("2006-01-02 15:04", value, s.Location())
	require.NoError(t, err)
	return ts
}

func TestParseSlots(t *testing.T) {
	slots, err := ParseSlots([]string{"18:00", "6:05", " 12:30 ", "18:00", ""})
	require.NoError(t, err)
	assert.Equal(t, []SlotTime{{6, 5}, {12, 30}, {18, 0}}, slots)

	_, err = ParseSlots(nil)
	assert.ErrorIs(t, err, ErrEmptySchedule)

	for _, bad := range []string{"24:00", "12:60", "noon", "1200", "12:5"} {
		_, err := ParseSlots([]string{bad})
		assert.ErrorIs(t, err, ErrTimeFormat, bad)
	}
}

func TestNewSchedulerRejectsEmptySlots(t *testing.T) {
	_, err := NewScheduler(ScheduleConfig{})
	assert.ErrorIs(t, err, ErrEmptySchedule)

	_, err = NewScheduler(ScheduleConfig{Slots: []string{"06:00"}, Policy: "whenever"})
	assert.Error(t, err)
}

func TestSchedulerDueWithinWindowIsIdempotent(t *testing.T) {
	s := newTestScheduler(t, PolicyWindow)
	state := NewState()

	now := at(t, s, "2025-03-10 12:02")
	slot, missed, ok := s.Due(state, now)
	require.True(t, ok)
	assert.Equal(t, "2025-03-10_1200", slot.ID)
	assert.Empty(t, missed)

	s.MarkSent(state, now, slot)

	_, _, ok = s.Due(state, now.Add(time.Minute))
	assert.False(t, ok, "second check inside the same window must not fire")
}

func TestSchedulerWindowPolicySkipsMissedSlot(t *testing.T) {
	s := newTestScheduler(t, PolicyWindow)
	state := NewState()

	_, _, ok := s.Due(state, at(t, s, "2025-03-10 13:30"))
	assert.False(t, ok)

	_, _, ok = s.Due(state, at(t, s, "2025-03-10 11:55"))
	assert.False(t, ok)

	_, _, ok = s.Due(state, at(t, s, "2025-03-10 11:56"))
	assert.True(t, ok)
}

func TestSchedulerCatchUpFiresMissedSlot(t *testing.T) {
	s := newTestScheduler(t, PolicyCatchUp)
	state := NewState()
	state.SentSlots["2025-03-10_0600"] = at(t, s, "2025-03-10 06:01")

	now := at(t, s, "2025-03-10 15:30")
	slot, missed, ok := s.Due(state, now)
	require.True(t, ok)
	assert.Equal(t, "2025-03-10_1200", slot.ID)
	assert.Empty(t, missed)

	s.MarkSent(state, now, slot)
	_, _, ok = s.Due(state, now.Add(time.Minute))
	assert.False(t, ok)
}

func TestSchedulerCatchUpCoalescesSeveralMissedSlots(t *testing.T) {
	s := newTestScheduler(t, PolicyCatchUp)
	state := NewState()

	now := at(t, s, "2025-03-10 19:00")
	slot, missed, ok := s.Due(state, now)
	require.True(t, ok)
	assert.Equal(t, "2025-03-10_1800", slot.ID)
	require.Len(t, missed, 2)
	assert.Equal(t, "2025-03-10_0600", missed[0].ID)
	assert.Equal(t, "2025-03-10_1200", missed[1].ID)

	s.MarkSent(state, now, append(missed, slot)...)
	_, _, ok = s.Due(state, now)
	assert.False(t, ok)
}

func TestSchedulerCatchUpIgnoresYesterday(t *testing.T) {
	s := newTestScheduler(t, PolicyCatchUp)
	state := NewState()

	_, _, ok := s.Due(state, at(t, s, "2025-03-11 05:00"))
	assert.False(t, ok, "yesterday's missed slots are not carried into a new day")
}

func TestSchedulerWindowAcrossMidnight(t *testing.T) {
	loc := time.UTC
	s, err := NewScheduler(ScheduleConfig{Slots: []string{"00:01"}, Tolerance: 4 * time.Minute, Location: loc, Policy: PolicyWindow})
	require.NoError(t, err)

	slot, _, ok := s.Due(NewState(), time.Date(2025, 3, 10, 23, 58, 0, 0, loc))
	require.True(t, ok)
	assert.Equal(t, "2025-03-11_0001", slot.ID)
}

func TestSchedulerNextWake(t *testing.T) {
	s := newTestScheduler(t, PolicyCatchUp)
	state := NewState()
	state.SentSlots["2025-03-10_0600"] = at(t, s, "2025-03-10 06:00")

	wake := s.NextWake(state, at(t, s, "2025-03-10 11:00"))
	assert.Equal(t, 56*time.Minute, wake)

	wake = s.NextWake(state, at(t, s, "2025-03-10 09:00"))
	assert.Equal(t, time.Hour, wake, "capped by max sleep")

	assert.Equal(t, time.Duration(0), s.NextWake(state, at(t, s, "2025-03-10 12:00")))
}

func TestSchedulerPruneLedger(t *testing.T) {
	s := newTestScheduler(t, PolicyCatchUp)
	state := NewState()
	now := at(t, s, "2025-03-30 12:00")
	state.SentSlots["2025-03-01_0600"] = now.Add(-29 * 24 * time.Hour)
	state.SentSlots["2025-03-29_0600"] = now.Add(-30 * time.Hour)

	assert.Equal(t, 1, s.PruneLedger(state, now, 14*24*time.Hour))
	assert.Contains(t, state.SentSlots, "2025-03-29_0600")
}
