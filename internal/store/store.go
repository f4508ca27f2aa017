// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package store provides database access methods for all blogdesk
// entities. Each store struct wraps a *sql.DB and exposes typed query methods.
package store

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// Sentinel errors returned by stores. Handlers map them to HTTP statuses.
var (
	// ErrConflict is returned when a unique constraint (slug, email, name)
	// would be violated.
	ErrConflict = errors.New("store: conflict")
	// ErrInvalidReference is returned when a write references a row that
	// does not exist, such as an unknown category or tag ID.
	ErrInvalidReference = errors.New("store: invalid reference")
	// ErrInUse is returned when a delete is blocked by rows that still
	// reference the target.
	ErrInUse = errors.New("store: in use")
)

// PostgreSQL error codes we translate.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// translate maps constraint violations onto the store sentinels and wraps
// everything with op. fkErr selects the sentinel used for FK violations,
// which differ between writes (invalid reference) and deletes (in use).
func translate(op string, err error, fkErr error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return fmt.Errorf("%s: %w (%s)", op, ErrConflict, pgErr.ConstraintName)
		case pgForeignKeyViolation:
			return fmt.Errorf("%s: %w (%s)", op, fkErr, pgErr.ConstraintName)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

// filter accumulates WHERE conditions with positional placeholders.
type filter struct {
	conds []string
	args  []any
}

// add appends a condition. Each "?" in cond is replaced with the next
// positional placeholder, bound to the matching value in vals.
func (f *filter) add(cond string, vals ...any) {
	for _, v := range vals {
		f.args = append(f.args, v)
		cond = strings.Replace(cond, "?", fmt.Sprintf("$%d", len(f.args)), 1)
	}
	f.conds = append(f.conds, cond)
}

// where returns the WHERE clause, or "" when there are no conditions.
func (f *filter) where() string {
	if len(f.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(f.conds, " AND ")
}

// next returns the placeholder for an extra argument appended after the
// filter arguments, such as LIMIT and OFFSET.
func (f *filter) next(v any) string {
	f.args = append(f.args, v)
	return fmt.Sprintf("$%d", len(f.args))
}
