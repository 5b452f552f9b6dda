// Package mail delivers outbound email.
package mail

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net"
	"net/smtp"
	"net/textproto"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/99minutos/identity-system/internal/core/ports"
)

// SMTPConfig holds the relay settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPMailer sends multipart (text + HTML) messages through an SMTP relay.
type SMTPMailer struct {
	cfg  SMTPConfig
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
	now  func() time.Time
}

func NewSMTPMailer(cfg SMTPConfig) *SMTPMailer {
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	return &SMTPMailer{cfg: cfg, send: smtp.SendMail, now: time.Now}
}

func (m *SMTPMailer) Send(ctx context.Context, msg ports.MailMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	body, err := m.compose(msg)
	if err != nil {
		return err
	}

	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}

	addr := net.JoinHostPort(m.cfg.Host, strconv.Itoa(m.cfg.Port))
	if err := m.send(addr, auth, m.cfg.From, []string{msg.To}, body); err != nil {
		return fmt.Errorf("smtp send to %s: %w", msg.To, err)
	}
	return nil
}

func (m *SMTPMailer) compose(msg ports.MailMessage) ([]byte, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	fmt.Fprintf(&buf, "From: %s\r\n", m.cfg.From)
	fmt.Fprintf(&buf, "To: %s\r\n", msg.To)
	fmt.Fprintf(&buf, "Subject: %s\r\n", msg.Subject)
	fmt.Fprintf(&buf, "Date: %s\r\n", m.now().UTC().Format(time.RFC1123Z))
	fmt.Fprintf(&buf, "MIME-Version: 1.0\r\n")
	fmt.Fprintf(&buf, "Content-Type: multipart/alternative; boundary=%q\r\n\r\n", mw.Boundary())

	parts := []struct {
		contentType string
		content     string
	}{
		{"text/plain; charset=UTF-8", msg.Text},
		{"text/html; charset=UTF-8", msg.HTML},
	}
	for _, p := range parts {
		if p.content == "" {
			continue
		}
		w, err := mw.CreatePart(textproto.MIMEHeader{"Content-Type": {p.contentType}})
		if err != nil {
			return nil, fmt.Errorf("compose mail: %w", err)
		}
		if _, err := w.Write([]byte(p.content)); err != nil {
			return nil, fmt.Errorf("compose mail: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("compose mail: %w", err)
	}
	return buf.Bytes(), nil
}

// LogMailer writes messages to the log instead of delivering them. It is used
// when no SMTP relay is configured.
type LogMailer struct {
	log zerolog.Logger
}

func NewLogMailer(log zerolog.Logger) *LogMailer {
	return &LogMailer{log: log}
}

func (m *LogMailer) Send(_ context.Context, msg ports.MailMessage) error {
	m.log.Info().
		Str("to", msg.To).
		Str("subject", msg.Subject).
		Str("body", msg.Text).
		Msg("mail not delivered: no smtp relay configured")
	return nil
}
