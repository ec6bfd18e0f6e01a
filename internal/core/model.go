package core

import (
	"time"
)

// RawRecord is one message as produced by a mail source. Field names vary
// between producers; Normalize resolves them.
type RawRecord map[string]interface{}

// Bucket is a priority class derived from an item's score
type Bucket string

const (
	BucketHigh   Bucket = "HIGH"
	BucketMedium Bucket = "MEDIUM"
	BucketLow    Bucket = "LOW"
	BucketIgnore Bucket = "IGNORE"
)

// Score thresholds for the notifiable buckets
const (
	HighThreshold   = 75
	MediumThreshold = 45
)

// BucketForScore maps a score to its bucket
func BucketForScore(score int) Bucket {
	switch {
	case score >= HighThreshold:
		return BucketHigh
	case score >= MediumThreshold:
		return BucketMedium
	default:
		return BucketLow
	}
}

// NormalizedItem is the canonical form of one fetched message
type NormalizedItem struct {
	Subject  string    `json:"subject"`
	Sender   string    `json:"sender"`
	Snippet  string    `json:"snippet"`
	Date     time.Time `json:"date,omitempty"`
	GroupKey string    `json:"group_key"`
}

// Group is one or more normalized items merged under a GroupKey
type Group struct {
	NormalizedItem
	Count int `json:"count"`
}

// ClassifiedItem is a Group with its score and presentation data.
// The bucket is never stored; it is always derived from Score and Ignored.
type ClassifiedItem struct {
	Group
	Score      int      `json:"score"`
	Ignored    bool     `json:"ignored"`
	Categories []string `json:"categories,omitempty"`
	Rationale  string   `json:"rationale"`
	Actions    []string `json:"actions,omitempty"`
	ScoredBy   string   `json:"scored_by"`
}

// Bucket returns the item's priority class
func (c ClassifiedItem) Bucket() Bucket {
	if c.Ignored {
		return BucketIgnore
	}
	return BucketForScore(c.Score)
}

// AlertRecord tracks one group key across polling cycles
type AlertRecord struct {
	LastSeen    time.Time  `json:"last_seen"`
	LastAlerted *time.Time `json:"last_alerted,omitempty"`
}

// State is the durable blob shared by the tracker and the scheduler
type State struct {
	Items     map[string]AlertRecord `json:"items"`
	SentSlots map[string]time.Time   `json:"sent_slots"`
}

// NewState returns an empty state
func NewState() *State {
	return &State{
		Items:     make(map[string]AlertRecord),
		SentSlots: make(map[string]time.Time),
	}
}

// ensure fills nil maps, e.g. after decoding a partial blob
func (s *State) ensure() {
	if s.Items == nil {
		s.Items = make(map[string]AlertRecord)
	}
	if s.SentSlots == nil {
		s.SentSlots = make(map[string]time.Time)
	}
}

// Verdict is a delegated scorer's opinion about an ambiguous item.
// Score is optional; zero means the scorer gave a label only.
type Verdict struct {
	Label     string   `json:"priority"`
	Score     int      `json:"score,omitempty"`
	Rationale string   `json:"one_liner"`
	Actions   []string `json:"actions,omitempty"`
	Model     string   `json:"-"`
}
