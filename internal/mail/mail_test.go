// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package mail

import (
	"bytes"
	"context"
	"errors"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"blogdesk/internal/config"
)

func TestNew_SelectsProvider(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.Config
		want    string
		wantErr bool
	}{
		{"default", config.Config{}, "*mail.LogSender", false},
		{"log", config.Config{MailProvider: "log"}, "*mail.LogSender", false},
		{"smtp", config.Config{MailProvider: "smtp", SMTPHost: "mail.test", SMTPPort: 587}, "*mail.SMTPSender", false},
		{"smtp uppercase", config.Config{MailProvider: "SMTP", SMTPHost: "mail.test"}, "*mail.SMTPSender", false},
		{"smtp without host", config.Config{MailProvider: "smtp"}, "", true},
		{"resend", config.Config{MailProvider: "resend", ResendAPIKey: "re_test"}, "*mail.ResendSender", false},
		{"resend without key", config.Config{MailProvider: "resend"}, "", true},
		{"unknown", config.Config{MailProvider: "pigeon"}, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := New(&tt.cfg)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("New() = %T, want error", s)
				}
				return
			}
			if err != nil {
				t.Fatalf("New() error: %v", err)
			}
			if got := typeName(s); got != tt.want {
				t.Errorf("New() = %s, want %s", got, tt.want)
			}
		})
	}
}

func typeName(s Sender) string {
	switch s.(type) {
	case *LogSender:
		return "*mail.LogSender"
	case *SMTPSender:
		return "*mail.SMTPSender"
	case *ResendSender:
		return "*mail.ResendSender"
	}
	return "unknown"
}

func TestLogSender_Send(t *testing.T) {
	s := NewLogSender("noreply@blogdesk.test")

	err := s.Send(context.Background(), Message{
		To:      []string{"editor@blogdesk.test"},
		Subject: "Hello",
		Text:    "body",
	})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
}

func TestSenders_RejectMissingRecipients(t *testing.T) {
	senders := map[string]Sender{
		"log":    NewLogSender("a@b.test"),
		"smtp":   NewSMTPSender("127.0.0.1", 1, "", "", "a@b.test"),
		"resend": NewResendSender("re_test", "a@b.test"),
	}
	msgs := []Message{
		{Subject: "no to"},
		{To: []string{"  "}, Subject: "blank to"},
	}
	for name, s := range senders {
		for _, msg := range msgs {
			if err := s.Send(context.Background(), msg); !errors.Is(err, ErrNoRecipients) {
				t.Errorf("%s: Send(%q) error = %v, want ErrNoRecipients", name, msg.Subject, err)
			}
		}
	}
}

func TestSMTPSender_BuildsMultipart(t *testing.T) {
	s := NewSMTPSender("mail.test", 587, "", "", "noreply@blogdesk.test")

	m := s.build(Message{
		To:      []string{"one@blogdesk.test", "two@blogdesk.test"},
		Subject: "Published",
		Text:    "plain body",
		HTML:    "<p>html body</p>",
	})

	var buf bytes.Buffer
	if _, err := m.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}
	raw := buf.String()

	for _, want := range []string{
		"From: noreply@blogdesk.test",
		"one@blogdesk.test",
		"two@blogdesk.test",
		"Subject: Published",
		"text/plain",
		"text/html",
		"plain body",
		"<p>html body</p>",
	} {
		if !strings.Contains(raw, want) {
			t.Errorf("message missing %q", want)
		}
	}
}

func TestSMTPSender_TextOnly(t *testing.T) {
	s := NewSMTPSender("mail.test", 587, "", "", "noreply@blogdesk.test")

	var buf bytes.Buffer
	if _, err := s.build(Message{To: []string{"a@blogdesk.test"}, Text: "hi"}).WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}
	if strings.Contains(buf.String(), "text/html") {
		t.Error("text-only message should not carry an HTML part")
	}
}

func TestSMTPSender_ConnectionRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()

	s := NewSMTPSender("127.0.0.1", port, "", "", "noreply@blogdesk.test")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.Send(ctx, Message{To: []string{"a@blogdesk.test"}, Text: "x"}); err == nil {
		t.Fatal("expected error dialing a closed port")
	}
}

func TestSMTPSender_HonoursContext(t *testing.T) {
	// A listener that accepts but never sends the SMTP greeting.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	var (
		mu    sync.Mutex
		conns []net.Conn
	)
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			mu.Lock()
			conns = append(conns, c)
			mu.Unlock()
		}
	}()
	t.Cleanup(func() {
		ln.Close()
		mu.Lock()
		for _, c := range conns {
			c.Close()
		}
		mu.Unlock()
	})

	s := NewSMTPSender("127.0.0.1", ln.Addr().(*net.TCPAddr).Port, "", "", "noreply@blogdesk.test")
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	err = s.Send(ctx, Message{To: []string{"a@blogdesk.test"}, Text: "x"})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Send error = %v, want context.DeadlineExceeded", err)
	}
	if time.Since(start) > 2*time.Second {
		t.Error("Send did not return promptly after the context expired")
	}
}
