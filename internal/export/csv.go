// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package export writes entity lists as CSV using a column builder.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"
)

// MaxRows caps how many rows an export may contain.
const MaxRows = 10_000

// Column maps one CSV column to a value extracted from T.
type Column[T any] struct {
	Header string
	Value  func(T) string
}

// Builder collects columns and writes items as CSV.
type Builder[T any] struct {
	columns []Column[T]
}

// NewBuilder returns an empty Builder.
func NewBuilder[T any]() *Builder[T] {
	return &Builder[T]{}
}

// Add appends a column.
func (b *Builder[T]) Add(header string, value func(T) string) *Builder[T] {
	b.columns = append(b.columns, Column[T]{Header: header, Value: value})
	return b
}

// AddIf appends a column only when cond is true.
func (b *Builder[T]) AddIf(cond bool, header string, value func(T) string) *Builder[T] {
	if cond {
		b.Add(header, value)
	}
	return b
}

// Headers returns the configured header row.
func (b *Builder[T]) Headers() []string {
	h := make([]string, len(b.columns))
	for i, c := range b.columns {
		h[i] = c.Header
	}
	return h
}

// Write emits the header row followed by one row per item.
func (b *Builder[T]) Write(w io.Writer, items []T) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(b.Headers()); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	row := make([]string, len(b.columns))
	for _, item := range items {
		for i, c := range b.columns {
			row[i] = sanitize(c.Value(item))
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

// sanitize prefixes values that spreadsheets would evaluate as formulas.
func sanitize(v string) string {
	if v == "" {
		return v
	}
	switch v[0] {
	case '=', '+', '-', '@', '\t', '\r':
		return "'" + v
	}
	return v
}

// Time formats t as RFC 3339 in UTC.
func Time(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// TimePtr formats an optional time; nil yields "".
func TimePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return Time(*t)
}

// Bool formats b as "yes" or "no".
func Bool(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// Join joins values with "; ".
func Join(values []string) string {
	return strings.Join(values, "; ")
}

// Filename returns "<prefix>-YYYYMMDD-HHMMSS.csv" for now.
func Filename(prefix string, now time.Time) string {
	return fmt.Sprintf("%s-%s.csv", prefix, now.UTC().Format("20060102-150405"))
}
