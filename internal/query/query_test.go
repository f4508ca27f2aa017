// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package query

import (
	"errors"
	"net/url"
	"strings"
	"testing"
	"unicode/utf8"

	"blogdesk/internal/models"
)

func TestParseDefaults(t *testing.T) {
	p := Parse(url.Values{}, BlogOrder, "created_at")

	if p.Page != 1 {
		t.Errorf("Page = %d, want 1", p.Page)
	}
	if p.PageSize != DefaultPageSize {
		t.Errorf("PageSize = %d, want %d", p.PageSize, DefaultPageSize)
	}
	if p.OrderBy != "b.created_at" {
		t.Errorf("OrderBy = %q, want b.created_at", p.OrderBy)
	}
	if p.OrderDir != "desc" {
		t.Errorf("OrderDir = %q, want desc", p.OrderDir)
	}
	if p.Offset() != 0 {
		t.Errorf("Offset() = %d, want 0", p.Offset())
	}
}

func TestParsePaging(t *testing.T) {
	tests := []struct {
		name         string
		page, size   string
		wantPage     int
		wantPageSize int
	}{
		{name: "explicit values", page: "3", size: "10", wantPage: 3, wantPageSize: 10},
		{name: "zero page", page: "0", size: "10", wantPage: 1, wantPageSize: 10},
		{name: "negative page", page: "-2", size: "10", wantPage: 1, wantPageSize: 10},
		{name: "garbage page", page: "abc", size: "", wantPage: 1, wantPageSize: DefaultPageSize},
		{name: "zero size", page: "1", size: "0", wantPage: 1, wantPageSize: DefaultPageSize},
		{name: "size above max", page: "1", size: "500", wantPage: 1, wantPageSize: MaxPageSize},
		{name: "size at max", page: "1", size: "100", wantPage: 1, wantPageSize: 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := url.Values{"page": {tt.page}, "page_size": {tt.size}}
			p := Parse(v, TagOrder, "name")
			if p.Page != tt.wantPage || p.PageSize != tt.wantPageSize {
				t.Errorf("got page=%d size=%d, want page=%d size=%d",
					p.Page, p.PageSize, tt.wantPage, tt.wantPageSize)
			}
		})
	}
}

func TestParseOrdering(t *testing.T) {
	tests := []struct {
		name     string
		orderBy  string
		orderDir string
		want     string
	}{
		{name: "whitelisted asc", orderBy: "title", orderDir: "asc", want: "b.title ASC"},
		{name: "whitelisted upper ASC", orderBy: "title", orderDir: "ASC", want: "b.title ASC"},
		{name: "default dir", orderBy: "updated_at", orderDir: "", want: "b.updated_at DESC"},
		{name: "unknown dir", orderBy: "title", orderDir: "sideways", want: "b.title DESC"},
		{name: "unknown column", orderBy: "password_hash", orderDir: "asc", want: "b.created_at ASC"},
		{name: "injection attempt", orderBy: "title; DROP TABLE blogs", orderDir: "", want: "b.created_at DESC"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := url.Values{"order_by": {tt.orderBy}, "order_dir": {tt.orderDir}}
			p := Parse(v, BlogOrder, "created_at")
			if got := p.OrderClause(); got != tt.want {
				t.Errorf("OrderClause() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseSearch(t *testing.T) {
	p := Parse(url.Values{"search": {"  go lang  "}}, BlogOrder, "created_at")
	if p.Search != "go lang" {
		t.Errorf("Search = %q, want trimmed", p.Search)
	}

	long := strings.Repeat("x", 500)
	p = Parse(url.Values{"search": {long}}, BlogOrder, "created_at")
	if len(p.Search) != maxSearchLen {
		t.Errorf("len(Search) = %d, want %d", len(p.Search), maxSearchLen)
	}
}

func TestParseSearchKeepsRunesWhole(t *testing.T) {
	tests := []struct {
		name   string
		search string
		want   string
	}{
		{name: "two-byte rune straddles limit", search: strings.Repeat("a", maxSearchLen-1) + "é", want: strings.Repeat("a", maxSearchLen-1)},
		{name: "two-byte rune ends at limit", search: strings.Repeat("a", maxSearchLen-2) + "éb", want: strings.Repeat("a", maxSearchLen-2) + "é"},
		{name: "three-byte runes", search: strings.Repeat("€", 100), want: strings.Repeat("€", maxSearchLen/3)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Parse(url.Values{"search": {tt.search}}, BlogOrder, "created_at")
			if p.Search != tt.want {
				t.Errorf("Search = %q, want %q", p.Search, tt.want)
			}
			if !utf8.ValidString(p.SearchPattern()) {
				t.Errorf("SearchPattern() is not valid UTF-8: %q", p.SearchPattern())
			}
		})
	}
}

func TestSearchPattern(t *testing.T) {
	p := Params{Search: `50%_off\`}
	if got, want := p.SearchPattern(), `%50\%\_off\\%`; got != want {
		t.Errorf("SearchPattern() = %q, want %q", got, want)
	}
}

func TestOffset(t *testing.T) {
	p := Params{Page: 4, PageSize: 25}
	if got := p.Offset(); got != 75 {
		t.Errorf("Offset() = %d, want 75", got)
	}
}

func TestNewPage(t *testing.T) {
	tests := []struct {
		name      string
		total     int
		pageSize  int
		wantPages int
	}{
		{name: "empty", total: 0, pageSize: 20, wantPages: 0},
		{name: "one partial page", total: 5, pageSize: 20, wantPages: 1},
		{name: "exact multiple", total: 40, pageSize: 20, wantPages: 2},
		{name: "one over", total: 41, pageSize: 20, wantPages: 3},
		{name: "page size one", total: 7, pageSize: 1, wantPages: 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pg := NewPage[string](nil, tt.total, Params{Page: 1, PageSize: tt.pageSize})
			if pg.TotalPages != tt.wantPages {
				t.Errorf("TotalPages = %d, want %d", pg.TotalPages, tt.wantPages)
			}
			if pg.Items == nil {
				t.Error("Items is nil, want empty slice")
			}
			if pg.Total != tt.total || pg.PageSize != tt.pageSize {
				t.Errorf("metadata mismatch: %+v", pg)
			}
		})
	}
}

func TestParseBlog(t *testing.T) {
	id := "6f1c1a4e-3f7d-4c5e-9a9b-2d8e1f0a1b2c"
	q, err := ParseBlog(url.Values{
		"status":      {"published"},
		"category_id": {id},
		"author_id":   {id},
	})
	if err != nil {
		t.Fatalf("ParseBlog: %v", err)
	}
	if q.Status != models.BlogStatusPublished {
		t.Errorf("Status = %q", q.Status)
	}
	if q.CategoryID == nil || q.CategoryID.String() != id {
		t.Errorf("CategoryID = %v", q.CategoryID)
	}
	if q.TagID != nil {
		t.Errorf("TagID = %v, want nil", q.TagID)
	}
	if q.AuthorID == nil {
		t.Error("AuthorID = nil")
	}
}

func TestParseBlogErrors(t *testing.T) {
	tests := []struct {
		name      string
		values    url.Values
		wantField string
	}{
		{name: "bad status", values: url.Values{"status": {"archived"}}, wantField: "status"},
		{name: "bad category", values: url.Values{"category_id": {"nope"}}, wantField: "category_id"},
		{name: "bad tag", values: url.Values{"tag_id": {"123"}}, wantField: "tag_id"},
		{name: "bad author", values: url.Values{"author_id": {"x"}}, wantField: "author_id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseBlog(tt.values)
			var fe *FieldError
			if !errors.As(err, &fe) {
				t.Fatalf("err = %v, want *FieldError", err)
			}
			if fe.Field != tt.wantField {
				t.Errorf("Field = %q, want %q", fe.Field, tt.wantField)
			}
		})
	}
}

func TestParsePublicBlog(t *testing.T) {
	q := ParsePublicBlog(url.Values{
		"category": {"news"},
		"tag":      {" go "},
		"order_by": {"status"},
	})
	if !q.PublishedOnly {
		t.Error("PublishedOnly = false")
	}
	if q.CategorySlug != "news" || q.TagSlug != "go" {
		t.Errorf("slugs = %q, %q", q.CategorySlug, q.TagSlug)
	}
	if q.OrderBy != "b.published_at" {
		t.Errorf("OrderBy = %q, want b.published_at", q.OrderBy)
	}
}

func TestParseErrorLog(t *testing.T) {
	q, err := ParseErrorLog(url.Values{"level": {"error"}, "source": {"mail"}})
	if err != nil {
		t.Fatalf("ParseErrorLog: %v", err)
	}
	if q.Level != models.LevelError || q.Source != "mail" {
		t.Errorf("got level=%q source=%q", q.Level, q.Source)
	}

	if _, err := ParseErrorLog(url.Values{"level": {"DEBUG"}}); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestParseUser(t *testing.T) {
	q := ParseUser(url.Values{"role": {"editor"}, "order_by": {"email"}, "order_dir": {"asc"}})
	if q.Role != "editor" {
		t.Errorf("Role = %q", q.Role)
	}
	if q.OrderClause() != "u.email ASC" {
		t.Errorf("OrderClause() = %q", q.OrderClause())
	}
}
