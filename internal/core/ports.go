package core

import (
	"context"
	"errors"
	"time"
)

// ErrScorerUnavailable is returned by scorers that are disabled or unreachable
var ErrScorerUnavailable = errors.New("delegated scorer unavailable")

// MailSource fetches the most recent messages, newest first
type MailSource interface {
	FetchRecent(ctx context.Context, maxResults int) ([]RawRecord, error)
}

// DeliverySink delivers a rendered digest. Chunking is the sink's concern.
type DeliverySink interface {
	Send(ctx context.Context, text string) error
}

// Scorer scores items the rule set could not place with confidence
type Scorer interface {
	ScoreAmbiguous(ctx context.Context, item Group) (*Verdict, error)
}

// StateRepository loads and atomically replaces the durable state blob
type StateRepository interface {
	Load(ctx context.Context) (*State, error)
	Save(ctx context.Context, state *State) error
}

// CycleReport summarizes one notification cycle
type CycleReport struct {
	SlotID     string
	Fetched    int
	Groups     int
	Buckets    map[Bucket]int
	Notified   int
	Sent       bool
	Heartbeat  bool
	FetchError error
	SendError  error
	Duration   time.Duration
}

// Metrics receives cycle reports
type Metrics interface {
	ObserveCycle(report CycleReport)
}

// NopMetrics discards reports
type NopMetrics struct{}

// ObserveCycle does nothing
func (NopMetrics) ObserveCycle(CycleReport) {}
