package core

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// ErrEmptyDigest is returned when there is nothing to render
var ErrEmptyDigest = errors.New("no items to render")

// HeartbeatText is sent when heartbeats are enabled and nothing is new
const HeartbeatText = "No relevant e-mail since the last digest."

// DefaultMaxLowItems caps the LOW section when no limit is configured
const DefaultMaxLowItems = 8

var bucketOrder = []Bucket{BucketHigh, BucketMedium, BucketLow}

var bucketTitles = map[Bucket]string{
	BucketHigh:   "HIGH PRIORITY",
	BucketMedium: "MEDIUM PRIORITY",
	BucketLow:    "LOW PRIORITY",
}

// Formatter renders the notify-set as digest text
type Formatter struct {
	maxLowItems int
	loc         *time.Location
}

// NewFormatter creates a formatter; maxLowItems <= 0 uses DefaultMaxLowItems
func NewFormatter(maxLowItems int, loc *time.Location) *Formatter {
	if maxLowItems <= 0 {
		maxLowItems = DefaultMaxLowItems
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Formatter{maxLowItems: maxLowItems, loc: loc}
}

// Arrange groups items by bucket, highest score first. Equal scores keep
// their input order.
func Arrange(items []ClassifiedItem) map[Bucket][]ClassifiedItem {
	sections := make(map[Bucket][]ClassifiedItem)
	for _, item := range items {
		b := item.Bucket()
		sections[b] = append(sections[b], item)
	}
	for _, list := range sections {
		sort.SliceStable(list, func(i, j int) bool { return list[i].Score > list[j].Score })
	}
	return sections
}

// Format renders the digest. It fails instead of returning partial text.
func (f *Formatter) Format(items []ClassifiedItem, slotID string, now time.Time) (string, error) {
	if len(items) == 0 {
		return "", ErrEmptyDigest
	}
	for _, item := range items {
		if err := validateForRender(item); err != nil {
			return "", err
		}
	}

	sections := Arrange(items)
	var b strings.Builder

	header := "Inbox digest " + now.In(f.loc).Format("2006-01-02 15:04")
	if slotID != "" {
		header += " (slot " + slotID + ")"
	}
	b.WriteString(header)
	b.WriteString("\n")

	rendered := 0
	for _, bucket := range bucketOrder {
		list := sections[bucket]
		if len(list) == 0 {
			continue
		}

		fmt.Fprintf(&b, "\n%s (%d)\n", bucketTitles[bucket], len(list))

		shown := list
		if bucket == BucketLow && len(shown) > f.maxLowItems {
			shown = shown[:f.maxLowItems]
		}
		for i, item := range shown {
			f.writeItem(&b, i+1, item)
			rendered++
		}
		if omitted := len(list) - len(shown); omitted > 0 {
			fmt.Fprintf(&b, "... %d more omitted\n", omitted)
		}
	}

	if rendered == 0 {
		return "", ErrEmptyDigest
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

func (f *Formatter) writeItem(b *strings.Builder, index int, item ClassifiedItem) {
	subject := item.Subject
	if subject == "" {
		subject = "(no subject)"
	}
	fmt.Fprintf(b, "%d) [%d/100] %s", index, item.Score, subject)
	if item.Count > 1 {
		fmt.Fprintf(b, " (received %dx)", item.Count)
	}
	b.WriteString("\n")
	if name := senderName(item.Sender); name != "" {
		fmt.Fprintf(b, "   From: %s\n", name)
	}
	fmt.Fprintf(b, "   %s\n", item.Rationale)

	bucket := item.Bucket()
	if bucket == BucketHigh || bucket == BucketMedium {
		for _, action := range item.Actions {
			fmt.Fprintf(b, "   - %s\n", action)
		}
	}
}

func validateForRender(item ClassifiedItem) error {
	if item.Score < 0 || item.Score > 100 {
		return fmt.Errorf("item %q has score %d outside [0,100]", item.GroupKey, item.Score)
	}
	if item.Bucket() == BucketIgnore {
		return fmt.Errorf("item %q is ignored and cannot be rendered", item.GroupKey)
	}
	if strings.TrimSpace(item.Rationale) == "" {
		return fmt.Errorf("item %q has no rationale", item.GroupKey)
	}
	return nil
}
