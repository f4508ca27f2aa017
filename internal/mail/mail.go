// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package mail delivers outbound email through a pluggable Sender. SMTP
// relays (SES SMTP included) go through gomail, the Resend HTTP API through
// resend-go, and development setups simply log the message.
package mail

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/resend/resend-go/v2"
	"gopkg.in/gomail.v2"

	"blogdesk/internal/config"
)

// Provider names accepted by MAIL_PROVIDER.
const (
	ProviderLog    = "log"
	ProviderSMTP   = "smtp"
	ProviderResend = "resend"
)

// ErrNoRecipients is returned when a message has no To addresses.
var ErrNoRecipients = errors.New("mail: no recipients")

// Message is a single outbound email. HTML is optional; when set it is
// sent as an alternative part next to Text.
type Message struct {
	To      []string
	Subject string
	Text    string
	HTML    string
}

func (m Message) validate() error {
	if len(m.To) == 0 {
		return ErrNoRecipients
	}
	for _, to := range m.To {
		if strings.TrimSpace(to) == "" {
			return ErrNoRecipients
		}
	}
	return nil
}

// Sender delivers a message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// New returns the Sender selected by cfg.MailProvider.
func New(cfg *config.Config) (Sender, error) {
	switch strings.ToLower(cfg.MailProvider) {
	case "", ProviderLog:
		return NewLogSender(cfg.MailFrom), nil
	case ProviderSMTP:
		if cfg.SMTPHost == "" {
			return nil, fmt.Errorf("mail: SMTP_HOST is required for provider %q", ProviderSMTP)
		}
		return NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.MailFrom), nil
	case ProviderResend:
		if cfg.ResendAPIKey == "" {
			return nil, fmt.Errorf("mail: RESEND_API_KEY is required for provider %q", ProviderResend)
		}
		return NewResendSender(cfg.ResendAPIKey, cfg.MailFrom), nil
	default:
		return nil, fmt.Errorf("mail: unknown provider %q", cfg.MailProvider)
	}
}

// SMTPSender sends mail through an SMTP relay.
type SMTPSender struct {
	dialer *gomail.Dialer
	from   string
}

// NewSMTPSender creates a sender for the given relay. Port 465 uses
// implicit TLS, other ports upgrade with STARTTLS when offered.
func NewSMTPSender(host string, port int, user, password, from string) *SMTPSender {
	return &SMTPSender{
		dialer: gomail.NewDialer(host, port, user, password),
		from:   from,
	}
}

// Send dials the relay and delivers msg. gomail has no context support, so
// the dial runs in its own goroutine and Send returns early when ctx ends.
func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if err := msg.validate(); err != nil {
		return err
	}

	m := s.build(msg)

	done := make(chan error, 1)
	go func() {
		done <- s.dialer.DialAndSend(m)
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("smtp send: %w", err)
		}
		slog.Info("email sent", "provider", ProviderSMTP, "to", msg.To, "subject", msg.Subject)
		return nil
	case <-ctx.Done():
		return fmt.Errorf("smtp send: %w", ctx.Err())
	}
}

func (s *SMTPSender) build(msg Message) *gomail.Message {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", msg.To...)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/plain", msg.Text)
	if msg.HTML != "" {
		m.AddAlternative("text/html", msg.HTML)
	}
	return m
}

// ResendSender sends mail through the Resend HTTP API.
type ResendSender struct {
	client *resend.Client
	from   string
}

// NewResendSender creates a Resend-backed sender.
func NewResendSender(apiKey, from string) *ResendSender {
	return &ResendSender{client: resend.NewClient(apiKey), from: from}
}

// Send delivers msg through the Resend API.
func (s *ResendSender) Send(ctx context.Context, msg Message) error {
	if err := msg.validate(); err != nil {
		return err
	}

	params := &resend.SendEmailRequest{
		From:    s.from,
		To:      msg.To,
		Subject: msg.Subject,
		Text:    msg.Text,
		Html:    msg.HTML,
	}

	resp, err := s.client.Emails.SendWithContext(ctx, params)
	if err != nil {
		return fmt.Errorf("resend send: %w", err)
	}
	slog.Info("email sent", "provider", ProviderResend, "to", msg.To, "id", resp.Id)
	return nil
}

// LogSender only logs messages. Used in development and tests.
type LogSender struct {
	from string
}

// NewLogSender creates a log-only sender.
func NewLogSender(from string) *LogSender {
	return &LogSender{from: from}
}

// Send logs msg and never fails for a well-formed message.
func (s *LogSender) Send(_ context.Context, msg Message) error {
	if err := msg.validate(); err != nil {
		return err
	}
	slog.Info("email sent (dev mode)",
		"from", s.from,
		"to", msg.To,
		"subject", msg.Subject,
		"text_len", len(msg.Text),
		"html", msg.HTML != "",
	)
	return nil
}
