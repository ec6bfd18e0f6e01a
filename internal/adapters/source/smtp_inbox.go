package source

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/emersion/go-smtp"
	"go.uber.org/zap"

	"github.com/mikey/inbox-digest/internal/config"
	"github.com/mikey/inbox-digest/internal/core"
)

// DefaultInboxBuffer is the number of messages kept when none is configured
const DefaultInboxBuffer = 200

// SMTPInbox accepts forwarded copies of incoming mail over SMTP and keeps
// the most recent ones in memory for the next digest cycle
type SMTPInbox struct {
	cfg      config.SMTPInboxConfig
	logger   *zap.Logger
	server   *smtp.Server
	listener net.Listener

	mu      sync.Mutex
	records []core.RawRecord
	next    int
	full    bool
	now     func() time.Time
}

// NewSMTPInbox creates a new SMTP inbox
func NewSMTPInbox(cfg config.SMTPInboxConfig, logger *zap.Logger) *SMTPInbox {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = DefaultInboxBuffer
	}
	if cfg.Domain == "" {
		cfg.Domain = "localhost"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SMTPInbox{
		cfg:     cfg,
		logger:  logger,
		records: make([]core.RawRecord, cfg.BufferSize),
		now:     time.Now,
	}
}

// Start starts listening for SMTP connections
func (s *SMTPInbox) Start() error {
	ln, err := net.Listen("tcp", s.cfg.ListenAddress)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.ListenAddress, err)
	}
	s.listener = ln

	s.server = smtp.NewServer(&smtpBackend{inbox: s})
	s.server.Addr = ln.Addr().String()
	s.server.Domain = s.cfg.Domain
	s.server.ReadTimeout = 30 * time.Second
	s.server.WriteTimeout = 30 * time.Second
	s.server.MaxMessageBytes = 30 * 1024 * 1024
	s.server.MaxRecipients = 50
	s.server.AllowInsecureAuth = true

	s.logger.Info("SMTP inbox starting", zap.String("address", s.server.Addr))

	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, smtp.ErrServerClosed) {
			s.logger.Error("SMTP server error", zap.Error(err))
		}
	}()

	return nil
}

// Stop stops the SMTP inbox
func (s *SMTPInbox) Stop() error {
	if s.server != nil {
		return s.server.Close()
	}
	return nil
}

// Addr returns the listening address once started
func (s *SMTPInbox) Addr() string {
	if s.listener == nil {
		return s.cfg.ListenAddress
	}
	return s.listener.Addr().String()
}

// Accept parses a raw message and stores it
func (s *SMTPInbox) Accept(raw []byte) error {
	rec, err := ParseMessageWithDate(bytes.NewReader(raw), s.now())
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.records[s.next] = rec
	s.next = (s.next + 1) % len(s.records)
	if s.next == 0 {
		s.full = true
	}
	s.mu.Unlock()

	s.logger.Debug("Message accepted", zap.Any("subject", rec["subject"]))
	return nil
}

// FetchRecent returns up to maxResults buffered messages, newest first
func (s *SMTPInbox) FetchRecent(_ context.Context, maxResults int) ([]core.RawRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := s.next
	if s.full {
		count = len(s.records)
	}
	if maxResults > 0 && count > maxResults {
		count = maxResults
	}

	out := make([]core.RawRecord, 0, count)
	for i := 1; i <= count; i++ {
		idx := (s.next - i + len(s.records)) % len(s.records)
		out = append(out, s.records[idx])
	}
	return out, nil
}

// smtpBackend implements the go-smtp Backend interface
type smtpBackend struct {
	inbox *SMTPInbox
}

// NewSession creates a new SMTP session
func (b *smtpBackend) NewSession(_ *smtp.Conn) (smtp.Session, error) {
	return &smtpSession{inbox: b.inbox}, nil
}

// smtpSession implements the go-smtp Session interface
type smtpSession struct {
	inbox  *SMTPInbox
	sender string
}

// Reset resets the session state
func (s *smtpSession) Reset() {
	s.sender = ""
}

// Logout ends the session
func (s *smtpSession) Logout() error {
	return nil
}

// Mail sets the sender address
func (s *smtpSession) Mail(from string, _ *smtp.MailOptions) error {
	s.sender = from
	return nil
}

// Rcpt accepts any recipient; the inbox is a private forwarding target
func (s *smtpSession) Rcpt(_ string, _ *smtp.RcptOptions) error {
	return nil
}

// Data reads and stores the message
func (s *smtpSession) Data(r io.Reader) error {
	raw, err := io.ReadAll(r)
	if err != nil {
		s.inbox.logger.Error("Failed to read message data", zap.Error(err))
		return err
	}
	if err := s.inbox.Accept(raw); err != nil {
		s.inbox.logger.Warn("Failed to parse forwarded message",
			zap.String("envelope_from", s.sender),
			zap.Error(err))
		return &smtp.SMTPError{Code: 554, EnhancedCode: smtp.EnhancedCode{5, 6, 0}, Message: "Message could not be parsed"}
	}
	return nil
}
