package core

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedVerdict is returned when a scorer reply cannot be trusted
var ErrMalformedVerdict = errors.New("malformed scorer verdict")

var labelBuckets = map[string]Bucket{
	"HIGH":     BucketHigh,
	"ALTA":     BucketHigh,
	"URGENT":   BucketHigh,
	"URGENTE":  BucketHigh,
	"MEDIUM":   BucketMedium,
	"MEDIA":    BucketMedium,
	"MÉDIA":    BucketMedium,
	"LOW":      BucketLow,
	"BAIXA":    BucketLow,
	"IGNORE":   BucketIgnore,
	"IGNORAR":  BucketIgnore,
	"IGNORED":  BucketIgnore,
	"IGNORADO": BucketIgnore,
}

// Scores assigned when a scorer gives a label without a usable number
var labelScores = map[Bucket]int{
	BucketHigh:   80,
	BucketMedium: 55,
	BucketLow:    25,
	BucketIgnore: 10,
}

var placeholderRationales = []string{
	"no clear signal", "sem sinal claro", "n/a", "none", "unknown", "nenhum", "-",
}

// LabelBucket maps a scorer label (English or Portuguese) to a bucket
func LabelBucket(label string) (Bucket, bool) {
	b, ok := labelBuckets[strings.ToUpper(strings.TrimSpace(label))]
	return b, ok
}

// VerdictScore re-derives a score from a verdict under the local policy.
// The label must be known; a numeric score is kept only when its bucket
// agrees with the label. The result never exceeds the delegated ceiling.
func VerdictScore(v *Verdict) (int, error) {
	if v == nil {
		return 0, fmt.Errorf("%w: empty verdict", ErrMalformedVerdict)
	}
	bucket, ok := LabelBucket(v.Label)
	if !ok {
		return 0, fmt.Errorf("%w: unknown priority %q", ErrMalformedVerdict, v.Label)
	}

	score := labelScores[bucket]
	if v.Score > 0 && v.Score <= 100 && scoreAgrees(v.Score, bucket) {
		score = v.Score
	}
	return clamp(score, 0, delegatedMaxScore), nil
}

func scoreAgrees(score int, bucket Bucket) bool {
	if bucket == BucketIgnore {
		return score < MediumThreshold
	}
	return BucketForScore(score) == bucket
}

// usableRationale reports whether a scorer one-liner says something concrete
func usableRationale(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return false
	}
	for _, p := range placeholderRationales {
		if s == p || (len(p) > 3 && strings.Contains(s, p)) {
			return false
		}
	}
	return true
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
