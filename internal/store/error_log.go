// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// error_log.go persists application errors so administrators can review
// them on the error log page. Writing is best-effort: a failed insert is
// reported through slog and otherwise ignored.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"blogdesk/internal/models"
	"blogdesk/internal/query"
)

// Column limits mirrored from the error_logs table.
const (
	maxSourceLen  = 100
	maxMessageLen = 1000
)

// ErrorLogStore handles error log operations.
type ErrorLogStore struct {
	db *sql.DB
}

// NewErrorLogStore creates a new ErrorLogStore.
func NewErrorLogStore(db *sql.DB) *ErrorLogStore {
	return &ErrorLogStore{db: db}
}

// Entry is a fully specified error log row for Write.
type Entry struct {
	Level   string
	Source  string
	Message string
	Detail  string
	Stack   string
	Context map[string]any
}

// Log records err at level for source. fields is stored as a JSON object.
func (s *ErrorLogStore) Log(ctx context.Context, level, source string, err error, fields map[string]any) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	s.Write(ctx, Entry{Level: level, Source: source, Message: msg, Context: fields})
}

// Write records e. The insert runs on a context detached from ctx's
// cancellation so errors raised while a request is being torn down are
// still kept. A nil store only logs through slog.
func (s *ErrorLogStore) Write(ctx context.Context, e Entry) {
	if s == nil {
		slog.Warn("error log store not configured", "level", e.Level, "source", e.Source, "message", e.Message)
		return
	}
	ctxJSON := []byte("{}")
	if len(e.Context) > 0 {
		if b, err := json.Marshal(e.Context); err == nil {
			ctxJSON = b
		}
	}

	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	_, err := s.db.ExecContext(wctx, `
		INSERT INTO error_logs (level, source, message, detail, stack, context)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, e.Level, clip(e.Source, maxSourceLen), clip(e.Message, maxMessageLen), e.Detail, e.Stack, string(ctxJSON))
	if err != nil {
		slog.Warn("failed to persist error log",
			"level", e.Level,
			"source", e.Source,
			"message", e.Message,
			"error", err,
		)
		return
	}
	slog.Debug("error log persisted", "level", e.Level, "source", e.Source)
}

// clip cuts s to at most n bytes on a rune boundary; Postgres rejects
// partial UTF-8 sequences.
func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

const errorLogColumns = `e.id, e.level, e.source, e.message, e.detail, e.stack, e.context, e.created_at`

func scanErrorLog(scanner rowScanner) (*models.ErrorLog, error) {
	var e models.ErrorLog
	if err := scanner.Scan(&e.ID, &e.Level, &e.Source, &e.Message, &e.Detail, &e.Stack, &e.Context, &e.CreatedAt); err != nil {
		return nil, err
	}
	return &e, nil
}

// List returns one page of error logs matching q and the total count.
func (s *ErrorLogStore) List(ctx context.Context, q query.ErrorLogQuery) ([]models.ErrorLog, int, error) {
	f := &filter{}
	if q.Level != "" {
		f.add("e.level = ?", q.Level)
	}
	if q.Source != "" {
		f.add("e.source = ?", q.Source)
	}
	if q.Search != "" {
		f.add("(e.message ILIKE ? OR e.detail ILIKE ?)", q.SearchPattern(), q.SearchPattern())
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM error_logs e`+f.where(), f.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count error logs: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT `+errorLogColumns+` FROM error_logs e`+f.where()+
		` ORDER BY `+q.OrderClause()+`, e.id DESC`+
		` LIMIT `+f.next(q.PageSize)+` OFFSET `+f.next(q.Offset()), f.args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list error logs: %w", err)
	}
	defer rows.Close()

	var entries []models.ErrorLog
	for rows.Next() {
		e, err := scanErrorLog(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan error log: %w", err)
		}
		entries = append(entries, *e)
	}
	return entries, total, rows.Err()
}

// FindByID returns one error log entry. Returns nil if not found.
func (s *ErrorLogStore) FindByID(ctx context.Context, id int64) (*models.ErrorLog, error) {
	e, err := scanErrorLog(s.db.QueryRowContext(ctx, `SELECT `+errorLogColumns+` FROM error_logs e WHERE e.id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find error log: %w", err)
	}
	return e, nil
}

// Delete removes one entry. Reports whether a row was deleted.
func (s *ErrorLogStore) Delete(ctx context.Context, id int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM error_logs WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete error log: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete error log: %w", err)
	}
	return n > 0, nil
}

// PurgeOlderThan deletes entries created before cutoff and returns how
// many were removed.
func (s *ErrorLogStore) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM error_logs WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge error logs: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purge error logs: %w", err)
	}
	return n, nil
}
