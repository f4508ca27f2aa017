// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package query parses the shared list-endpoint parameters (paging,
// free-text search and ordering) and builds paginated result envelopes.
package query

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Paging limits shared by every list endpoint.
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
	maxSearchLen    = 200
)

// Params is the content entity every list query embeds.
type Params struct {
	Page     int
	PageSize int
	Search   string
	// OrderBy holds the SQL column expression resolved from the whitelist,
	// never raw user input.
	OrderBy  string
	OrderDir string
}

// Parse reads page, page_size, search, order_by and order_dir from v.
// order_by is looked up in allowed (public name → SQL column); unknown
// names fall back to the column of defaultOrder.
func Parse(v url.Values, allowed map[string]string, defaultOrder string) Params {
	p := Params{
		Page:     1,
		PageSize: DefaultPageSize,
		OrderDir: "desc",
	}

	if n, err := strconv.Atoi(v.Get("page")); err == nil && n >= 1 {
		p.Page = n
	}
	if n, err := strconv.Atoi(v.Get("page_size")); err == nil && n >= 1 {
		p.PageSize = min(n, MaxPageSize)
	}

	p.Search = strings.TrimSpace(v.Get("search"))
	p.Search = truncate(p.Search, maxSearchLen)

	col, ok := allowed[v.Get("order_by")]
	if !ok {
		col = allowed[defaultOrder]
	}
	p.OrderBy = col

	if strings.EqualFold(v.Get("order_dir"), "asc") {
		p.OrderDir = "asc"
	}
	return p
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// Offset returns the number of rows to skip for the current page.
func (p Params) Offset() int {
	return (p.Page - 1) * p.PageSize
}

// OrderClause returns "column ASC|DESC" ready to follow ORDER BY.
func (p Params) OrderClause() string {
	return p.OrderBy + " " + strings.ToUpper(p.OrderDir)
}

// SearchPattern returns the ILIKE pattern for Search with LIKE
// metacharacters escaped.
func (p Params) SearchPattern() string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(p.Search) + "%"
}

// Page is the JSON envelope returned by list endpoints.
type Page[T any] struct {
	Items      []T `json:"items"`
	Total      int `json:"total"`
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalPages int `json:"total_pages"`
}

// NewPage wraps items with the paging metadata for p.
func NewPage[T any](items []T, total int, p Params) Page[T] {
	if items == nil {
		items = []T{}
	}
	totalPages := 0
	if total > 0 && p.PageSize > 0 {
		totalPages = (total + p.PageSize - 1) / p.PageSize
	}
	return Page[T]{
		Items:      items,
		Total:      total,
		Page:       p.Page,
		PageSize:   p.PageSize,
		TotalPages: totalPages,
	}
}

// FieldError reports a query parameter that could not be parsed.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}
