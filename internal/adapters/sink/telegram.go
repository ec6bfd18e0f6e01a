package sink

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/mikey/inbox-digest/internal/config"
)

// MaxMessageSize is the Telegram limit for one text message, in UTF-16 code units
const MaxMessageSize = 4096

// Sender is the part of the Telegram bot API the sink uses
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramSink delivers digests to a single chat. Long digests are split
// on line boundaries and sent in order.
type TelegramSink struct {
	api    Sender
	chatID int64
	logger *zap.Logger
}

// NewTelegramSink creates a sink backed by a real bot
func NewTelegramSink(cfg config.TelegramConfig, logger *zap.Logger) (*TelegramSink, error) {
	if cfg.BotToken == "" {
		return nil, errors.New("sink.telegram.bot_token is required")
	}
	if cfg.ChatID == 0 {
		return nil, errors.New("sink.telegram.chat_id is required")
	}
	api, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("creating bot API: %w", err)
	}
	return NewTelegramSinkWithSender(api, cfg.ChatID, logger), nil
}

// NewTelegramSinkWithSender creates a sink over an existing sender
func NewTelegramSinkWithSender(api Sender, chatID int64, logger *zap.Logger) *TelegramSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TelegramSink{api: api, chatID: chatID, logger: logger}
}

// Send delivers the digest. A failed part aborts the remaining parts.
func (t *TelegramSink) Send(ctx context.Context, text string) error {
	parts := SplitMessage(text, MaxMessageSize)
	for i, part := range parts {
		if err := ctx.Err(); err != nil {
			return err
		}
		msg := tgbotapi.NewMessage(t.chatID, part)
		msg.DisableWebPagePreview = true
		if _, err := t.api.Send(msg); err != nil {
			return fmt.Errorf("failed to send digest part %d to chat %d: %w", i+1, t.chatID, err)
		}
	}
	t.logger.Debug("Digest delivered to telegram",
		zap.Int64("chat_id", t.chatID),
		zap.Int("parts", len(parts)))
	return nil
}

// SplitMessage splits text into parts of at most limit UTF-16 code units,
// which is how Telegram measures message length. It breaks on newlines
// where possible; a single line longer than limit is cut hard.
func SplitMessage(text string, limit int) []string {
	if limit <= 0 || utf16Len(text) <= limit {
		return []string{text}
	}

	var parts []string
	var cur strings.Builder
	curLen := 0

	flush := func() {
		if curLen > 0 {
			parts = append(parts, strings.TrimRight(cur.String(), "\n"))
			cur.Reset()
			curLen = 0
		}
	}

	for _, line := range strings.SplitAfter(text, "\n") {
		n := utf16Len(line)
		if curLen+n > limit {
			flush()
		}
		for n > limit {
			head := utf16Slice(line, limit)
			if head == "" {
				_, size := utf8.DecodeRuneInString(line)
				head = line[:size]
			}
			parts = append(parts, head)
			line = line[len(head):]
			n = utf16Len(line)
		}
		cur.WriteString(line)
		curLen += n
	}
	flush()
	return parts
}

// utf16Len returns the number of UTF-16 code units needed to encode s
func utf16Len(s string) int {
	n := 0
	for _, r := range s {
		n += utf16.RuneLen(r)
	}
	return n
}

// utf16Slice returns the longest prefix of s that fits in maxUnits code units
func utf16Slice(s string, maxUnits int) string {
	units := 0
	for i, r := range s {
		units += utf16.RuneLen(r)
		if units > maxUnits {
			return s[:i]
		}
	}
	return s
}
