package core

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	hexTokenRe   = regexp.MustCompile(`\b[0-9a-f]{6,}\b`)
	numericRunRe = regexp.MustCompile(`\d+`)
)

// BuildGroupKey fingerprints a message so repeated automated notifications
// collapse into one entity. Hex tokens of six or more characters become
// <hex>, remaining digit runs become <n>. Six-letter words spelled only with
// a-f ("decade", "facade") collapse too; over-grouping is accepted.
func BuildGroupKey(subject, sender string) string {
	key := strings.ToLower(strings.TrimSpace(subject)) + " | " + strings.ToLower(strings.TrimSpace(sender))
	key = hexTokenRe.ReplaceAllString(key, "<hex>")
	key = numericRunRe.ReplaceAllString(key, "<n>")
	return strings.Join(strings.Fields(key), " ")
}

// Aggregate merges items sharing a GroupKey. Groups keep first-seen order;
// each carries the occurrence count and the longest snippet seen.
func Aggregate(items []NormalizedItem) []Group {
	index := make(map[string]int, len(items))
	groups := make([]Group, 0, len(items))

	for _, item := range items {
		key := item.GroupKey
		if key == "" {
			key = BuildGroupKey(item.Subject, item.Sender)
			item.GroupKey = key
		}

		i, seen := index[key]
		if !seen {
			index[key] = len(groups)
			groups = append(groups, Group{NormalizedItem: item, Count: 1})
			continue
		}

		g := &groups[i]
		g.Count++
		if utf8.RuneCountInString(item.Snippet) > utf8.RuneCountInString(g.Snippet) {
			g.Snippet = item.Snippet
		}
		if g.Date.IsZero() {
			g.Date = item.Date
		}
	}
	return groups
}
