// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package notify renders and dispatches the application's email
// notifications. Sends run in the background, detached from the request
// that triggered them; failures are written to the error log and never
// retried.
package notify

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	htmltemplate "html/template"
	"log/slog"
	"strings"
	"sync"
	texttemplate "text/template"
	"time"

	"blogdesk/internal/mail"
	"blogdesk/internal/models"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// Notification kinds. Each has matching "<kind>.subject", "<kind>.text"
// and "<kind>.html" templates.
const (
	KindWelcome       = "welcome"
	KindBlogPublished = "blog_published"
	KindRolesChanged  = "roles_changed"
)

const (
	// MaxInFlight bounds concurrent sends.
	MaxInFlight = 4
	// SendTimeout bounds a single notification, including the wait for a slot.
	SendTimeout = 30 * time.Second
	// Source is the error log source for failed sends.
	Source = "mail"
)

// ErrorLogger persists failures. Satisfied by *store.ErrorLogStore.
type ErrorLogger interface {
	Log(ctx context.Context, level, source string, err error, fields map[string]any)
}

// AdminLister looks up the recipients of admin notifications.
// Satisfied by *store.UserStore.
type AdminLister interface {
	ListByRole(ctx context.Context, role string) ([]models.User, error)
}

// data is the template payload shared by every notification.
type data struct {
	AppName string
	AppURL  string
	User    *models.User
	Blog    *models.Blog
	Roles   []string
}

// Notifier dispatches notification emails.
type Notifier struct {
	sender  mail.Sender
	admins  AdminLister
	errs    ErrorLogger
	appName string
	appURL  string

	text *texttemplate.Template
	html *htmltemplate.Template

	sem     chan struct{}
	wg      sync.WaitGroup
	timeout time.Duration

	mu     sync.Mutex
	closed bool
}

// New parses the embedded templates and returns a Notifier.
func New(sender mail.Sender, admins AdminLister, errs ErrorLogger, appName, appURL string) (*Notifier, error) {
	funcs := map[string]any{"join": strings.Join}

	text, err := texttemplate.New("email").Funcs(funcs).ParseFS(templateFS, "templates/*.txt.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse text templates: %w", err)
	}
	html, err := htmltemplate.New("email").Funcs(funcs).ParseFS(templateFS, "templates/*.html.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse html templates: %w", err)
	}

	return &Notifier{
		sender:  sender,
		admins:  admins,
		errs:    errs,
		appName: appName,
		appURL:  strings.TrimRight(appURL, "/"),
		text:    text,
		html:    html,
		sem:     make(chan struct{}, MaxInFlight),
		timeout: SendTimeout,
	}, nil
}

// Welcome tells a newly created user about their account.
func (n *Notifier) Welcome(u *models.User) {
	if u == nil {
		return
	}
	d := n.data()
	d.User = u
	n.dispatch(KindWelcome, []string{u.Email}, d)
}

// RolesChanged tells a user about their new role set.
func (n *Notifier) RolesChanged(u *models.User) {
	if u == nil {
		return
	}
	d := n.data()
	d.User = u
	d.Roles = u.RoleNames()
	n.dispatch(KindRolesChanged, []string{u.Email}, d)
}

// BlogPublished tells every active admin that a blog went live. Each admin
// gets their own message.
func (n *Notifier) BlogPublished(b *models.Blog) {
	if b == nil {
		return
	}
	n.run(KindBlogPublished, func(ctx context.Context) error {
		admins, err := n.admins.ListByRole(ctx, models.RoleAdmin)
		if err != nil {
			return fmt.Errorf("list admins: %w", err)
		}
		for i := range admins {
			d := n.data()
			d.User = &admins[i]
			d.Blog = b
			if err := n.send(ctx, KindBlogPublished, []string{admins[i].Email}, d); err != nil {
				n.fail(ctx, KindBlogPublished, err, admins[i].Email)
			}
		}
		return nil
	})
}

// Close stops accepting notifications and waits for in-flight ones until
// ctx ends. Notifications dispatched after Close are dropped.
func (n *Notifier) Close(ctx context.Context) error {
	n.mu.Lock()
	n.closed = true
	n.mu.Unlock()

	done := make(chan struct{})
	go func() {
		n.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("notifications still in flight: %w", ctx.Err())
	}
}

func (n *Notifier) data() data {
	return data{AppName: n.appName, AppURL: n.appURL}
}

func (n *Notifier) dispatch(kind string, to []string, d data) {
	n.run(kind, func(ctx context.Context) error {
		return n.send(ctx, kind, to, d)
	})
}

// run executes fn in the background under the semaphore with a fresh
// timeout context.
func (n *Notifier) run(kind string, fn func(ctx context.Context) error) {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		slog.Warn("notification dropped after shutdown", "kind", kind)
		return
	}
	n.wg.Add(1)
	n.mu.Unlock()

	go func() {
		defer n.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
		defer cancel()

		select {
		case n.sem <- struct{}{}:
			defer func() { <-n.sem }()
		case <-ctx.Done():
			n.fail(ctx, kind, fmt.Errorf("waiting for send slot: %w", ctx.Err()), "")
			return
		}

		if err := fn(ctx); err != nil {
			n.fail(ctx, kind, err, "")
		}
	}()
}

func (n *Notifier) send(ctx context.Context, kind string, to []string, d data) error {
	msg, err := n.render(kind, to, d)
	if err != nil {
		return err
	}
	return n.sender.Send(ctx, msg)
}

// render builds the message for kind from the parsed templates.
func (n *Notifier) render(kind string, to []string, d data) (mail.Message, error) {
	var subject, text, html bytes.Buffer
	if err := n.text.ExecuteTemplate(&subject, kind+".subject", d); err != nil {
		return mail.Message{}, fmt.Errorf("render %s subject: %w", kind, err)
	}
	if err := n.text.ExecuteTemplate(&text, kind+".text", d); err != nil {
		return mail.Message{}, fmt.Errorf("render %s text: %w", kind, err)
	}
	if err := n.html.ExecuteTemplate(&html, kind+".html", d); err != nil {
		return mail.Message{}, fmt.Errorf("render %s html: %w", kind, err)
	}
	return mail.Message{
		To:      to,
		Subject: strings.TrimSpace(subject.String()),
		Text:    text.String(),
		HTML:    html.String(),
	}, nil
}

func (n *Notifier) fail(ctx context.Context, kind string, err error, to string) {
	slog.Error("notification failed", "kind", kind, "to", to, "error", err)
	if n.errs == nil {
		return
	}
	fields := map[string]any{"kind": kind}
	if to != "" {
		fields["to"] = to
	}
	// The send context may already be expired; the error log detaches on its own.
	n.errs.Log(ctx, models.LevelError, Source, err, fields)
}
