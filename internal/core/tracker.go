package core

import (
	"time"

	"go.uber.org/zap"
)

// TrackerConfig holds the alerting policy
type TrackerConfig struct {
	MinScore        int
	ReAlertInterval time.Duration
	TTL             time.Duration
}

// Tracker decides which classified items are new enough to notify
type Tracker struct {
	cfg    TrackerConfig
	logger *zap.Logger
}

// NewTracker creates a tracker
func NewTracker(cfg TrackerConfig, logger *zap.Logger) *Tracker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tracker{cfg: cfg, logger: logger}
}

// Prune drops alert records not seen within the TTL and returns how many went
func (t *Tracker) Prune(state *State, now time.Time) int {
	state.ensure()
	if t.cfg.TTL <= 0 {
		return 0
	}
	removed := 0
	for key, rec := range state.Items {
		if now.Sub(rec.LastSeen) > t.cfg.TTL {
			delete(state.Items, key)
			removed++
		}
	}
	if removed > 0 {
		t.logger.Debug("Pruned stale alert records", zap.Int("removed", removed))
	}
	return removed
}

// Select records every item as seen and returns those eligible for
// notification, in input order. Nothing is marked alerted here.
func (t *Tracker) Select(state *State, items []ClassifiedItem, now time.Time) []ClassifiedItem {
	state.ensure()
	var notify []ClassifiedItem
	for _, item := range items {
		rec := state.Items[item.GroupKey]
		rec.LastSeen = now
		state.Items[item.GroupKey] = rec

		if item.Bucket() == BucketIgnore || item.Score < t.cfg.MinScore {
			continue
		}
		if rec.LastAlerted != nil && now.Sub(*rec.LastAlerted) < t.cfg.ReAlertInterval {
			t.logger.Debug("Suppressing recently alerted item",
				zap.String("group_key", item.GroupKey),
				zap.Time("last_alerted", *rec.LastAlerted))
			continue
		}
		notify = append(notify, item)
	}
	return notify
}

// MarkAlerted stamps items after a successful send
func (t *Tracker) MarkAlerted(state *State, items []ClassifiedItem, now time.Time) {
	state.ensure()
	for _, item := range items {
		rec := state.Items[item.GroupKey]
		if rec.LastSeen.IsZero() {
			rec.LastSeen = now
		}
		alertedAt := now
		rec.LastAlerted = &alertedAt
		state.Items[item.GroupKey] = rec
	}
}
