package core

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
	// Embed tzdata for containers without zoneinfo.
	_ "time/tzdata"
)

// SlotIDLayout formats slot ids as date plus scheduled time
const SlotIDLayout = "2006-01-02_1504"

// DefaultMaxSleep caps NextWake so clock and zone changes are picked up
const DefaultMaxSleep = 15 * time.Minute

// Static errors for schedule validation
var (
	ErrEmptySchedule = errors.New("schedule has no slots")
	ErrTimeFormat    = errors.New("time must be HH:MM")
)

// Policy decides what happens to a slot whose time passed while the
// process was not running
type Policy string

const (
	// PolicyCatchUp fires a passed, unsent slot of the current day late
	PolicyCatchUp Policy = "catch-up"
	// PolicyWindow fires a slot only within its tolerance window
	PolicyWindow Policy = "window"
)

// SlotTime is a time of day
type SlotTime struct {
	Hour   int
	Minute int
}

// String renders HH:MM
func (s SlotTime) String() string {
	return fmt.Sprintf("%02d:%02d", s.Hour, s.Minute)
}

// Slot is a SlotTime on a concrete date
type Slot struct {
	ID string
	At time.Time
}

// ScheduleConfig configures a Scheduler
type ScheduleConfig struct {
	Slots     []string
	Tolerance time.Duration
	Location  *time.Location
	Policy    Policy
	MaxSleep  time.Duration
}

// Scheduler gates notification cycles on a daily slot list and records
// sent slots in the state ledger
type Scheduler struct {
	slots     []SlotTime
	tolerance time.Duration
	loc       *time.Location
	policy    Policy
	maxSleep  time.Duration
}

// NewScheduler validates the slot list; an empty list is an error
func NewScheduler(cfg ScheduleConfig) (*Scheduler, error) {
	slots, err := ParseSlots(cfg.Slots)
	if err != nil {
		return nil, err
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	switch cfg.Policy {
	case "":
		cfg.Policy = PolicyCatchUp
	case PolicyCatchUp, PolicyWindow:
	default:
		return nil, fmt.Errorf("unsupported schedule policy %q", cfg.Policy)
	}
	if cfg.Tolerance < 0 {
		cfg.Tolerance = 0
	}
	if cfg.MaxSleep <= 0 {
		cfg.MaxSleep = DefaultMaxSleep
	}
	return &Scheduler{
		slots:     slots,
		tolerance: cfg.Tolerance,
		loc:       cfg.Location,
		policy:    cfg.Policy,
		maxSleep:  cfg.MaxSleep,
	}, nil
}

// LoadLocation resolves a zone name, defaulting to UTC when empty
func LoadLocation(name string) (*time.Location, error) {
	if strings.TrimSpace(name) == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(strings.TrimSpace(name))
	if err != nil {
		return nil, fmt.Errorf("invalid timezone: %w", err)
	}
	return loc, nil
}

// ParseSlotTime parses H:MM or HH:MM
func ParseSlotTime(value string) (SlotTime, error) {
	parts := strings.Split(strings.TrimSpace(value), ":")
	if len(parts) != 2 || len(parts[1]) != 2 || len(parts[0]) == 0 || len(parts[0]) > 2 {
		return SlotTime{}, fmt.Errorf("%w: %q", ErrTimeFormat, value)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return SlotTime{}, fmt.Errorf("%w: invalid hour in %q", ErrTimeFormat, value)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return SlotTime{}, fmt.Errorf("%w: invalid minute in %q", ErrTimeFormat, value)
	}
	return SlotTime{Hour: hour, Minute: minute}, nil
}

// ParseSlots parses, sorts and de-duplicates a slot list
func ParseSlots(values []string) ([]SlotTime, error) {
	seen := make(map[SlotTime]bool)
	var slots []SlotTime
	for _, v := range values {
		if strings.TrimSpace(v) == "" {
			continue
		}
		st, err := ParseSlotTime(v)
		if err != nil {
			return nil, err
		}
		if !seen[st] {
			seen[st] = true
			slots = append(slots, st)
		}
	}
	if len(slots) == 0 {
		return nil, ErrEmptySchedule
	}
	sort.Slice(slots, func(i, j int) bool {
		if slots[i].Hour != slots[j].Hour {
			return slots[i].Hour < slots[j].Hour
		}
		return slots[i].Minute < slots[j].Minute
	})
	return slots, nil
}

// SlotID formats the ledger key for a slot instant
func SlotID(at time.Time) string {
	return at.Format(SlotIDLayout)
}

// Location returns the schedule's time zone
func (s *Scheduler) Location() *time.Location {
	return s.loc
}

// Policy returns the missed-slot policy
func (s *Scheduler) Policy() Policy {
	return s.policy
}

// Due reports whether a slot should fire at now. It returns the slot to run
// and any earlier unsent slots that the run supersedes.
func (s *Scheduler) Due(state *State, now time.Time) (Slot, []Slot, bool) {
	state.ensure()
	local := now.In(s.loc)

	var due []Slot
	for _, at := range s.instantsAround(local) {
		id := SlotID(at)
		if _, sent := state.SentSlots[id]; sent {
			continue
		}
		if s.inWindow(at, local) || s.caughtUp(at, local) {
			due = append(due, Slot{ID: id, At: at})
		}
	}
	if len(due) == 0 {
		return Slot{}, nil, false
	}

	// instants are chronological; the latest due slot runs
	return due[len(due)-1], due[:len(due)-1], true
}

// MarkSent records slots in the ledger
func (s *Scheduler) MarkSent(state *State, at time.Time, slots ...Slot) {
	state.ensure()
	for _, slot := range slots {
		state.SentSlots[slot.ID] = at
	}
}

// PruneLedger drops ledger entries older than retention
func (s *Scheduler) PruneLedger(state *State, now time.Time, retention time.Duration) int {
	state.ensure()
	if retention <= 0 {
		return 0
	}
	removed := 0
	for id, sentAt := range state.SentSlots {
		if now.Sub(sentAt) > retention {
			delete(state.SentSlots, id)
			removed++
		}
	}
	return removed
}

// NextWake returns how long to sleep before the next slot window opens,
// capped by the configured maximum. Zero means a slot is due now.
func (s *Scheduler) NextWake(state *State, now time.Time) time.Duration {
	if _, _, ok := s.Due(state, now); ok {
		return 0
	}
	local := now.In(s.loc)

	wait := s.maxSleep
	for _, at := range s.instantsAround(local) {
		if _, sent := state.SentSlots[SlotID(at)]; sent {
			continue
		}
		opens := at.Add(-s.tolerance)
		if !opens.After(local) {
			continue
		}
		if d := opens.Sub(local); d < wait {
			wait = d
		}
	}
	if wait < time.Second {
		wait = time.Second
	}
	return wait
}

func (s *Scheduler) inWindow(at, local time.Time) bool {
	diff := local.Sub(at)
	if diff < 0 {
		diff = -diff
	}
	return diff <= s.tolerance
}

func (s *Scheduler) caughtUp(at, local time.Time) bool {
	if s.policy != PolicyCatchUp || at.After(local) {
		return false
	}
	ay, am, ad := at.Date()
	ly, lm, ld := local.Date()
	return ay == ly && am == lm && ad == ld
}

// instantsAround lists slot instants from yesterday to the day after
// tomorrow in chronological order
func (s *Scheduler) instantsAround(local time.Time) []time.Time {
	y, m, d := local.Date()
	instants := make([]time.Time, 0, len(s.slots)*4)
	for offset := -1; offset <= 2; offset++ {
		for _, st := range s.slots {
			instants = append(instants, time.Date(y, m, d+offset, st.Hour, st.Minute, 0, 0, s.loc))
		}
	}
	return instants
}
