package sink

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/emersion/go-message/mail"
	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
	"go.uber.org/zap"

	"github.com/mikey/inbox-digest/internal/config"
)

// SMTPSink mails the digest as a plain text message
type SMTPSink struct {
	cfg       config.SMTPSinkConfig
	logger    *zap.Logger
	tlsConfig *tls.Config
	now       func() time.Time
}

// NewSMTPSink creates a new e-mail sink
func NewSMTPSink(cfg config.SMTPSinkConfig, logger *zap.Logger) (*SMTPSink, error) {
	if cfg.Address == "" {
		return nil, errors.New("sink.smtp.address is required")
	}
	if len(cfg.To) == 0 {
		return nil, errors.New("sink.smtp.to must list at least one recipient")
	}
	if cfg.Subject == "" {
		cfg.Subject = "Inbox digest"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	host, _, err := net.SplitHostPort(cfg.Address)
	if err != nil {
		return nil, fmt.Errorf("invalid sink.smtp.address: %w", err)
	}
	return &SMTPSink{
		cfg:       cfg,
		logger:    logger,
		tlsConfig: &tls.Config{ServerName: host},
		now:       time.Now,
	}, nil
}

// Send delivers the digest to every configured recipient
func (s *SMTPSink) Send(ctx context.Context, text string) error {
	body, err := s.compose(text)
	if err != nil {
		return err
	}

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", s.cfg.Address)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", s.cfg.Address, err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetDeadline(deadline); err != nil {
			conn.Close()
			return fmt.Errorf("failed to set connection deadline: %w", err)
		}
	}

	var c *smtp.Client
	if s.cfg.StartTLS {
		// the client greets the server itself before upgrading
		c, err = smtp.NewClientStartTLS(conn, s.tlsConfig)
		if err != nil {
			conn.Close()
			return fmt.Errorf("STARTTLS failed: %w", err)
		}
	} else {
		c = smtp.NewClient(conn)
		hostname, err := os.Hostname()
		if err != nil {
			hostname = "localhost"
		}
		if err := c.Hello(hostname); err != nil {
			c.Close()
			return fmt.Errorf("EHLO failed: %w", err)
		}
	}
	defer c.Close()

	if s.cfg.Username != "" {
		if err := c.Auth(sasl.NewPlainClient("", s.cfg.Username, s.cfg.Password)); err != nil {
			return fmt.Errorf("AUTH failed: %w", err)
		}
	}

	if err := c.Mail(s.cfg.From, nil); err != nil {
		return fmt.Errorf("MAIL FROM failed: %w", err)
	}
	for _, rcpt := range s.cfg.To {
		if err := c.Rcpt(rcpt, nil); err != nil {
			return fmt.Errorf("RCPT TO %s failed: %w", rcpt, err)
		}
	}

	wc, err := c.Data()
	if err != nil {
		return fmt.Errorf("DATA command failed: %w", err)
	}
	if _, err := wc.Write(body); err != nil {
		wc.Close()
		return fmt.Errorf("failed to send digest data: %w", err)
	}
	if err := wc.Close(); err != nil {
		return fmt.Errorf("failed to close data writer: %w", err)
	}

	if err := c.Quit(); err != nil {
		// already delivered
		s.logger.Warn("QUIT command failed", zap.Error(err))
	}

	s.logger.Debug("Digest delivered by mail", zap.Strings("to", s.cfg.To))
	return nil
}

func (s *SMTPSink) compose(text string) ([]byte, error) {
	var h mail.Header
	h.SetDate(s.now())
	h.SetSubject(s.cfg.Subject)
	h.SetAddressList("From", []*mail.Address{{Address: s.cfg.From}})
	to := make([]*mail.Address, 0, len(s.cfg.To))
	for _, rcpt := range s.cfg.To {
		to = append(to, &mail.Address{Address: rcpt})
	}
	h.SetAddressList("To", to)
	h.SetContentType("text/plain", map[string]string{"charset": "utf-8"})

	var buf bytes.Buffer
	w, err := mail.CreateSingleInlineWriter(&buf, h)
	if err != nil {
		return nil, fmt.Errorf("failed to create message writer: %w", err)
	}
	if _, err := w.Write([]byte(text)); err != nil {
		return nil, fmt.Errorf("failed to write digest body: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to close message writer: %w", err)
	}
	return buf.Bytes(), nil
}
