package source

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"go.uber.org/zap"

	"github.com/mikey/inbox-digest/internal/config"
	"github.com/mikey/inbox-digest/internal/core"
)

// IMAPSource fetches recent messages over IMAP. Each fetch opens its own
// connection and selects the mailbox read-only, so nothing is marked seen.
type IMAPSource struct {
	cfg    config.IMAPConfig
	logger *zap.Logger
	now    func() time.Time
}

// NewIMAPSource creates a new IMAP source
func NewIMAPSource(cfg config.IMAPConfig, logger *zap.Logger) *IMAPSource {
	if cfg.Mailbox == "" {
		cfg.Mailbox = "INBOX"
	}
	if cfg.Since <= 0 {
		cfg.Since = 24 * time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IMAPSource{cfg: cfg, logger: logger, now: time.Now}
}

// FetchRecent returns up to maxResults messages received within the
// configured window, newest first
func (s *IMAPSource) FetchRecent(ctx context.Context, maxResults int) ([]core.RawRecord, error) {
	c, err := s.dial(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := c.Logout(); err != nil {
			s.logger.Debug("IMAP logout failed", zap.Error(err))
		}
	}()

	// go-imap v1 has no context support; closing the connection unblocks it
	stop := context.AfterFunc(ctx, func() { _ = c.Terminate() })
	defer stop()

	if _, err := c.Select(s.cfg.Mailbox, true); err != nil {
		return nil, fmt.Errorf("failed to select mailbox %s: %w", s.cfg.Mailbox, err)
	}

	criteria := imap.NewSearchCriteria()
	criteria.Since = s.now().Add(-s.cfg.Since)
	ids, err := c.Search(criteria)
	if err != nil {
		return nil, fmt.Errorf("failed to search mailbox: %w", err)
	}

	ids = newestIDs(ids, maxResults)
	if len(ids) == 0 {
		return nil, nil
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(ids...)

	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{section.FetchItem(), imap.FetchEnvelope, imap.FetchInternalDate}

	messages := make(chan *imap.Message, len(ids))
	done := make(chan error, 1)
	go func() {
		done <- c.Fetch(seqset, items, messages)
	}()

	bySeq := make(map[uint32]core.RawRecord, len(ids))
	for msg := range messages {
		rec, err := s.record(msg, section)
		if err != nil {
			s.logger.Warn("Skipping unparsable IMAP message", zap.Uint32("seq", msg.SeqNum), zap.Error(err))
			continue
		}
		bySeq[msg.SeqNum] = rec
	}
	if err := <-done; err != nil {
		return nil, fmt.Errorf("failed to fetch messages: %w", err)
	}

	records := make([]core.RawRecord, 0, len(bySeq))
	for _, id := range ids {
		if rec, ok := bySeq[id]; ok {
			records = append(records, rec)
		}
	}

	s.logger.Debug("Fetched IMAP messages",
		zap.String("mailbox", s.cfg.Mailbox),
		zap.Int("count", len(records)))
	return records, nil
}

func (s *IMAPSource) dial(ctx context.Context) (*client.Client, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c, err := client.DialTLS(s.cfg.Address, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", s.cfg.Address, err)
	}
	if err := c.Login(s.cfg.Username, s.cfg.Password); err != nil {
		_ = c.Logout()
		return nil, fmt.Errorf("imap login failed: %w", err)
	}
	return c, nil
}

func (s *IMAPSource) record(msg *imap.Message, section *imap.BodySectionName) (core.RawRecord, error) {
	var rec core.RawRecord
	if body := msg.GetBody(section); body != nil {
		parsed, err := ParseMessageWithDate(body, msg.InternalDate)
		if err == nil {
			rec = parsed
		}
	}
	if rec == nil {
		rec = core.RawRecord{}
	}

	// the envelope fills whatever the body parse could not
	if env := msg.Envelope; env != nil {
		if isBlank(rec["subject"]) {
			rec["subject"] = env.Subject
		}
		if isBlank(rec["from"]) && len(env.From) > 0 {
			rec["from"] = envelopeAddress(env.From[0])
		}
		if _, ok := rec["date"]; !ok && !env.Date.IsZero() {
			rec["date"] = env.Date
		}
	}
	if len(rec) == 0 {
		return nil, fmt.Errorf("message %d has neither body nor envelope", msg.SeqNum)
	}
	return rec, nil
}

// newestIDs keeps the highest sequence numbers, newest first
func newestIDs(ids []uint32, maxResults int) []uint32 {
	out := make([]uint32, len(ids))
	copy(out, ids)
	sort.Slice(out, func(i, j int) bool { return out[i] > out[j] })
	if maxResults > 0 && len(out) > maxResults {
		out = out[:maxResults]
	}
	return out
}

func envelopeAddress(a *imap.Address) string {
	addr := a.Address()
	if a.PersonalName == "" {
		return addr
	}
	return a.PersonalName + " <" + addr + ">"
}

func isBlank(v interface{}) bool {
	s, ok := v.(string)
	return !ok || strings.TrimSpace(s) == ""
}
