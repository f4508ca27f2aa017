// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package jobs runs the application's periodic background work on a cron
// scheduler: publishing scheduled blogs and pruning old error logs.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"blogdesk/internal/models"
)

// Schedules for the built-in jobs.
const (
	PublishSchedule = "@every 1m"
	PurgeSchedule   = "@daily"

	// jobTimeout bounds a single run of any job.
	jobTimeout = 2 * time.Minute
	source     = "jobs"
)

// Publisher moves due scheduled blogs to published.
type Publisher interface {
	PublishDue(ctx context.Context, now time.Time) ([]models.Blog, error)
}

// ErrorLogs is the error log store as seen by the jobs.
type ErrorLogs interface {
	Log(ctx context.Context, level, source string, err error, fields map[string]any)
	PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// Invalidator clears cached list responses.
type Invalidator interface {
	InvalidateAll(ctx context.Context)
}

// PublishNotifier announces newly published blogs.
type PublishNotifier interface {
	BlogPublished(b *models.Blog)
}

// Deps are the collaborators the jobs need. Cache and Notifier are optional.
type Deps struct {
	Blogs         Publisher
	ErrorLogs     ErrorLogs
	Cache         Invalidator
	Notifier      PublishNotifier
	RetentionDays int
}

// Runner owns the cron scheduler.
type Runner struct {
	deps Deps
	cron *cron.Cron
	now  func() time.Time
}

// New registers the jobs on a fresh scheduler. Overlapping runs of the same
// job are skipped and panics are recovered and logged.
func New(deps Deps) (*Runner, error) {
	if deps.RetentionDays <= 0 {
		deps.RetentionDays = 30
	}

	logger := cronLogger{}
	r := &Runner{
		deps: deps,
		cron: cron.New(cron.WithChain(
			cron.Recover(logger),
			cron.SkipIfStillRunning(logger),
		)),
		now: time.Now,
	}

	if _, err := r.cron.AddFunc(PublishSchedule, r.wrap("publish_scheduled", r.PublishScheduled)); err != nil {
		return nil, fmt.Errorf("register publish job: %w", err)
	}
	if _, err := r.cron.AddFunc(PurgeSchedule, r.wrap("purge_error_logs", r.PurgeErrorLogs)); err != nil {
		return nil, fmt.Errorf("register purge job: %w", err)
	}
	return r, nil
}

// Start runs the scheduler in its own goroutine.
func (r *Runner) Start() {
	r.cron.Start()
	slog.Info("background jobs started", "entries", len(r.cron.Entries()))
}

// Stop halts the scheduler and waits for running jobs, or for ctx to end.
func (r *Runner) Stop(ctx context.Context) {
	done := r.cron.Stop()
	select {
	case <-done.Done():
		slog.Info("background jobs stopped")
	case <-ctx.Done():
		slog.Warn("background jobs still running at shutdown", "error", ctx.Err())
	}
}

// wrap adapts a job to cron's func() signature with a timeout and error logging.
func (r *Runner) wrap(name string, job func(ctx context.Context) error) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()

		start := time.Now()
		if err := job(ctx); err != nil {
			slog.Error("job failed", "job", name, "error", err)
			r.deps.ErrorLogs.Log(ctx, models.LevelError, source, err, map[string]any{"job": name})
			return
		}
		slog.Debug("job finished", "job", name, "duration", time.Since(start))
	}
}

// PublishScheduled publishes every scheduled blog whose time has come, then
// clears the list cache and notifies admins about each one.
func (r *Runner) PublishScheduled(ctx context.Context) error {
	blogs, err := r.deps.Blogs.PublishDue(ctx, r.now())
	if err != nil {
		return err
	}
	if len(blogs) == 0 {
		return nil
	}

	slog.Info("scheduled blogs published", "count", len(blogs))
	if r.deps.Cache != nil {
		r.deps.Cache.InvalidateAll(ctx)
	}
	if r.deps.Notifier != nil {
		for i := range blogs {
			r.deps.Notifier.BlogPublished(&blogs[i])
		}
	}
	return nil
}

// PurgeErrorLogs deletes error logs older than the retention window.
func (r *Runner) PurgeErrorLogs(ctx context.Context) error {
	cutoff := r.now().AddDate(0, 0, -r.deps.RetentionDays)
	n, err := r.deps.ErrorLogs.PurgeOlderThan(ctx, cutoff)
	if err != nil {
		return err
	}
	if n > 0 {
		slog.Info("error logs purged", "deleted", n, "older_than", cutoff)
	}
	return nil
}

// cronLogger routes cron's internal logging to slog.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...any) {
	slog.Debug("cron: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...any) {
	slog.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
