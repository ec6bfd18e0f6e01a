package core

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/mikey/inbox-digest/internal/domains"
	"github.com/mikey/inbox-digest/internal/utils"
)

// ClassifierOptions configures a Classifier
type ClassifierOptions struct {
	IgnoreDomains   *domains.Checker
	PriorityDomains *domains.Checker
	// Scorer is consulted only for items no rule places with confidence
	Scorer      Scorer
	ScorerRetry RetryPolicy
}

// DefaultScorerRetry bounds delegated scoring when no policy is configured
var DefaultScorerRetry = RetryPolicy{Attempts: 2, Delay: time.Second, Timeout: 15 * time.Second}

// Classifier scores grouped items with layered keyword rules and an
// optional delegated scorer for the ambiguous remainder
type Classifier struct {
	text   *utils.TextProcessor
	logger *zap.Logger
	opts   ClassifierOptions
}

// NewClassifier creates a classifier
func NewClassifier(text *utils.TextProcessor, logger *zap.Logger, opts ClassifierOptions) *Classifier {
	if text == nil {
		text = utils.NewTextProcessor(logger)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.ScorerRetry.Attempts <= 0 {
		opts.ScorerRetry.Attempts = DefaultScorerRetry.Attempts
	}
	if opts.ScorerRetry.Timeout <= 0 {
		opts.ScorerRetry.Timeout = DefaultScorerRetry.Timeout
	}
	return &Classifier{
		text:   text,
		logger: logger,
		opts:   opts,
	}
}

type ruleResult struct {
	score      int
	ignored    bool
	promo      bool
	ambiguous  bool
	categories []category
	dueDays    *int
}

// ClassifyAll classifies a batch, preserving order
func (c *Classifier) ClassifyAll(ctx context.Context, groups []Group, now time.Time) []ClassifiedItem {
	items := make([]ClassifiedItem, 0, len(groups))
	for _, g := range groups {
		items = append(items, c.Classify(ctx, g, now))
	}
	return items
}

// Classify scores one group. now is the reference for due dates and should
// carry the digest's time zone.
func (c *Classifier) Classify(ctx context.Context, g Group, now time.Time) ClassifiedItem {
	if g.Count < 1 {
		g.Count = 1
	}
	res := c.applyRules(g, now)

	item := ClassifiedItem{
		Group:    g,
		Score:    res.score,
		Ignored:  res.ignored,
		ScoredBy: "rules",
	}
	for _, cat := range res.categories {
		item.Categories = append(item.Categories, cat.name)
	}
	item.Rationale = c.rationale(g, res)

	if res.ambiguous && c.opts.Scorer != nil {
		c.refine(ctx, &item)
	}

	item.Score = withRepeatBonus(item.Score, g.Count, res)

	if b := item.Bucket(); b == BucketHigh || b == BucketMedium {
		if len(item.Actions) == 0 {
			item.Actions = actionsFor(res.categories)
		}
	} else {
		item.Actions = nil
	}

	c.logger.Debug("Classified item",
		zap.String("group_key", g.GroupKey),
		zap.Int("score", item.Score),
		zap.String("bucket", string(item.Bucket())),
		zap.Strings("categories", item.Categories),
		zap.String("scored_by", item.ScoredBy))

	return item
}

// applyRules evaluates the layers in priority order; the first that matches wins
func (c *Classifier) applyRules(g Group, now time.Time) ruleResult {
	header := c.text.Fold(g.Subject + " \n " + g.Sender)
	content := c.text.Fold(g.Subject + " \n " + g.Snippet)

	// 1. infrastructure and monitoring noise
	if c.isIgnored(g.Sender, header) {
		score := ignoreBaseScore
		if resolvedRe.MatchString(content) {
			score -= resolvedPenalty
		}
		return ruleResult{score: clamp(score, 0, ignoreMaxScore), ignored: true}
	}

	// 2. high-intent vocabulary, raised by how soon something is due
	var matched []category
	if c.opts.PriorityDomains.Matches(g.Sender) {
		matched = append(matched, trustedCategory)
	}
	for _, cat := range highIntentCategories {
		if cat.re.MatchString(content) {
			matched = append(matched, cat)
		}
	}
	if len(matched) > 0 {
		score := clamp(highBaseScore+highPerCategory*len(matched), 0, highKeywordCap)
		res := ruleResult{categories: matched}
		if days, ok := DaysUntilDue(content, now); ok {
			res.dueDays = &days
			if due := DueScore(days); due > score {
				score = due
			}
		}
		res.score = clamp(score, 0, 100)
		return res
	}

	// 3. promotions and newsletters
	if promoRe.MatchString(content) {
		return ruleResult{score: promoScore, promo: true}
	}

	// 4. everything else, nudged by weak signals
	score := defaultBaseScore
	var weak []category
	for _, cat := range weakCategories {
		if cat.re.MatchString(content) {
			weak = append(weak, cat)
			score += defaultPerWeakHit
		}
	}
	return ruleResult{
		score:      clamp(score, 0, defaultMaxScore),
		categories: weak,
		ambiguous:  true,
	}
}

func (c *Classifier) isIgnored(sender, foldedHeader string) bool {
	if c.opts.IgnoreDomains.Matches(sender) {
		return true
	}
	return infraVendorRe.MatchString(foldedHeader) || infraWordsRe.MatchString(foldedHeader)
}

// refine asks the delegated scorer about an ambiguous item. Transport
// failures are retried under the scorer policy; a malformed verdict is not.
// Any final failure keeps the rule-based result.
func (c *Classifier) refine(ctx context.Context, item *ClassifiedItem) {
	var (
		verdict *Verdict
		score   int
	)
	err := c.opts.ScorerRetry.Do(ctx, func(actx context.Context) error {
		v, err := c.opts.Scorer.ScoreAmbiguous(actx, item.Group)
		if err != nil {
			if errors.Is(err, ErrMalformedVerdict) {
				return backoff.Permanent(err)
			}
			return err
		}
		s, err := VerdictScore(v)
		if err != nil {
			return backoff.Permanent(err)
		}
		verdict, score = v, s
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrMalformedVerdict) {
			c.logger.Warn("Discarding delegated verdict",
				zap.String("group_key", item.GroupKey),
				zap.Error(err))
		} else {
			c.logger.Debug("Delegated scorer unavailable, keeping rule score",
				zap.String("group_key", item.GroupKey),
				zap.Error(err))
		}
		return
	}

	item.Score = score
	item.ScoredBy = "scorer"
	if verdict.Model != "" {
		item.ScoredBy = verdict.Model
	}
	if usableRationale(verdict.Rationale) {
		item.Rationale = c.text.ProcessText(verdict.Rationale, rationaleSnippetSz*2)
	}
	for _, action := range verdict.Actions {
		if action = strings.TrimSpace(action); action != "" && len(item.Actions) < 3 {
			item.Actions = append(item.Actions, c.text.ProcessText(action, 120))
		}
	}
}

// withRepeatBonus adds a small bump for repeated messages without letting
// the item leave its current bucket.
func withRepeatBonus(score, count int, res ruleResult) int {
	bonus := (count - 1) * repeatIncrement
	if bonus > repeatBonusCap {
		bonus = repeatBonusCap
	}
	if bonus <= 0 {
		return clamp(score, 0, 100)
	}

	ceiling := 100
	switch {
	case res.ignored:
		ceiling = ignoreMaxScore
	case res.promo:
		ceiling = promoMaxScore
	case BucketForScore(score) == BucketMedium:
		ceiling = HighThreshold - 1
	case BucketForScore(score) == BucketLow:
		ceiling = MediumThreshold - 1
	}
	if score > ceiling {
		return clamp(score, 0, 100)
	}
	return clamp(score+bonus, 0, ceiling)
}

func (c *Classifier) rationale(g Group, res ruleResult) string {
	switch {
	case res.ignored:
		return "Infrastructure or monitoring notification" + fromClause(g.Sender) + "."
	case res.promo:
		return "Promotional message" + fromClause(g.Sender) + "."
	case len(res.categories) > 0:
		text := res.categories[0].rationale
		if res.dueDays != nil {
			text = strings.TrimSuffix(text, ".") + ", " + dueClause(*res.dueDays) + "."
		}
		return text
	}

	name := senderName(g.Sender)
	switch {
	case name != "" && g.Subject != "":
		return fmt.Sprintf("%s wrote about %q.", name, c.text.TruncateText(g.Subject, 100))
	case g.Subject != "":
		return fmt.Sprintf("Message about %q.", c.text.TruncateText(g.Subject, 100))
	case g.Snippet != "":
		return c.text.TruncateText(g.Snippet, rationaleSnippetSz)
	case name != "":
		return fmt.Sprintf("Message from %s without a subject.", name)
	default:
		return "Message without subject or sender details; open it to check the topic."
	}
}

func actionsFor(categories []category) []string {
	seen := make(map[string]bool)
	var actions []string
	for _, cat := range categories {
		for _, a := range cat.actions {
			if !seen[a] && len(actions) < 3 {
				seen[a] = true
				actions = append(actions, a)
			}
		}
	}
	if len(actions) == 0 {
		actions = []string{"Open the message and decide whether it needs a reply"}
	}
	return actions
}

func dueClause(days int) string {
	switch {
	case days < 0:
		return "already overdue"
	case days == 0:
		return "due today"
	case days == 1:
		return "due tomorrow"
	default:
		return fmt.Sprintf("due in %d days", days)
	}
}

func fromClause(sender string) string {
	if d := domains.SenderDomain(sender); d != "" {
		return " from " + d
	}
	if name := senderName(sender); name != "" {
		return " from " + name
	}
	return ""
}

// senderName prefers the display name, then the address
func senderName(sender string) string {
	sender = strings.TrimSpace(sender)
	if sender == "" {
		return ""
	}
	if addr, err := mail.ParseAddress(sender); err == nil {
		if addr.Name != "" {
			return addr.Name
		}
		return addr.Address
	}
	return sender
}
