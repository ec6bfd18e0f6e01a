package sink

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf16"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mikey/inbox-digest/internal/adapters/source"
	"github.com/mikey/inbox-digest/internal/config"
)

type fakeSender struct {
	sent   []tgbotapi.MessageConfig
	failAt int
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	msg := c.(tgbotapi.MessageConfig)
	if f.failAt > 0 && len(f.sent)+1 == f.failAt {
		return tgbotapi.Message{}, errors.New("Too Many Requests")
	}
	f.sent = append(f.sent, msg)
	return tgbotapi.Message{MessageID: len(f.sent)}, nil
}

func TestSplitMessage(t *testing.T) {
	assert.Equal(t, []string{"short"}, SplitMessage("short", 10))
	assert.Equal(t, []string{"aaaa\nbbbb", "cccc"}, SplitMessage("aaaa\nbbbb\ncccc", 10))
	assert.Equal(t, []string{"abcde", "fghij", "k"}, SplitMessage("abcdefghijk", 5))
	assert.Equal(t, []string{"ab", "ççççç", "ççç"}, SplitMessage("ab\nçççççççç", 5))
}

func TestSplitMessageKeepsEveryLine(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 500; i++ {
		b.WriteString("1) [90/100] Fatura do cartão vence amanhã, pagar até 18h\n")
	}
	text := strings.TrimRight(b.String(), "\n")

	parts := SplitMessage(text, MaxMessageSize)
	require.Greater(t, len(parts), 1)
	for _, p := range parts {
		assert.LessOrEqual(t, len(utf16.Encode([]rune(p))), MaxMessageSize)
	}
	assert.Equal(t, text, strings.Join(parts, "\n"))
}

func TestSplitMessageCountsUTF16Units(t *testing.T) {
	line := strings.Repeat("📌", 99)
	lines := make([]string, 60)
	for i := range lines {
		lines[i] = line
	}
	text := strings.Join(lines, "\n")

	parts := SplitMessage(text, MaxMessageSize)
	require.Greater(t, len(parts), 2)
	for _, p := range parts {
		assert.LessOrEqual(t, len(utf16.Encode([]rune(p))), MaxMessageSize)
		assert.True(t, utf8.ValidString(p))
	}
	assert.Equal(t, text, strings.Join(parts, "\n"))

	// a surrogate pair is never split across parts
	assert.Equal(t, []string{"a📌", "📌b"}, SplitMessage("a📌📌b", 3))
}

func TestTelegramSinkSendsParts(t *testing.T) {
	api := &fakeSender{}
	s := NewTelegramSinkWithSender(api, 42, nil)

	text := strings.Repeat("x", MaxMessageSize-1) + "\nsecond"
	require.NoError(t, s.Send(context.Background(), text))
	require.Len(t, api.sent, 2)
	assert.Equal(t, int64(42), api.sent[0].ChatID)
	assert.Equal(t, "second", api.sent[1].Text)
	assert.True(t, api.sent[0].DisableWebPagePreview)
}

func TestTelegramSinkStopsOnFailure(t *testing.T) {
	api := &fakeSender{failAt: 1}
	s := NewTelegramSinkWithSender(api, 42, nil)

	err := s.Send(context.Background(), "a\nb")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "part 1")
	assert.Empty(t, api.sent)
}

func TestNewTelegramSinkValidates(t *testing.T) {
	_, err := NewTelegramSink(config.TelegramConfig{ChatID: 1}, nil)
	assert.Error(t, err)
	_, err = NewTelegramSink(config.TelegramConfig{BotToken: "x"}, nil)
	assert.Error(t, err)
}

func TestConsoleSink(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewConsoleSink(&buf).Send(context.Background(), "digest\n"))
	assert.True(t, strings.HasPrefix(buf.String(), "digest\n===="))
}

func TestSMTPSinkDeliversToInbox(t *testing.T) {
	inbox := source.NewSMTPInbox(config.SMTPInboxConfig{ListenAddress: "127.0.0.1:0"}, nil)
	require.NoError(t, inbox.Start())
	defer inbox.Stop()

	s, err := NewSMTPSink(config.SMTPSinkConfig{
		Address: inbox.Addr(),
		From:    "digest@example.com",
		To:      []string{"me@example.com"},
		Subject: "Resumo da caixa",
	}, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, s.Send(ctx, "Inbox digest 2025-03-10 12:01\n\nHIGH\n1) [90/100] Fatura vence amanhã"))

	recs, err := inbox.FetchRecent(ctx, 1)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "Resumo da caixa", recs[0]["subject"])
	assert.Equal(t, "digest@example.com", recs[0]["from"])
	assert.Contains(t, recs[0]["snippet"], "Fatura vence amanhã")
}

func TestNewSMTPSinkValidates(t *testing.T) {
	_, err := NewSMTPSink(config.SMTPSinkConfig{To: []string{"a@b.c"}}, nil)
	assert.Error(t, err)
	_, err = NewSMTPSink(config.SMTPSinkConfig{Address: "localhost:25"}, nil)
	assert.Error(t, err)
	_, err = NewSMTPSink(config.SMTPSinkConfig{Address: "localhost", To: []string{"a@b.c"}}, nil)
	assert.Error(t, err)
}

func TestSMTPSinkStartTLSRequiresServerSupport(t *testing.T) {
	inbox := source.NewSMTPInbox(config.SMTPInboxConfig{ListenAddress: "127.0.0.1:0"}, nil)
	require.NoError(t, inbox.Start())
	defer inbox.Stop()

	s, err := NewSMTPSink(config.SMTPSinkConfig{
		Address:  inbox.Addr(),
		From:     "digest@example.com",
		To:       []string{"me@example.com"},
		StartTLS: true,
	}, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err = s.Send(ctx, "digest")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "STARTTLS")

	recs, err := inbox.FetchRecent(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, recs)
}
