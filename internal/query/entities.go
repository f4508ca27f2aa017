// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package query

import (
	"net/url"
	"strings"

	"github.com/google/uuid"

	"blogdesk/internal/models"
)

// Whitelisted order_by names per entity.
var (
	BlogOrder = map[string]string{
		"title":        "b.title",
		"status":       "b.status",
		"created_at":   "b.created_at",
		"updated_at":   "b.updated_at",
		"published_at": "b.published_at",
		"publish_at":   "b.publish_at",
	}
	CategoryOrder = map[string]string{
		"name":       "c.name",
		"sort_order": "c.sort_order",
		"created_at": "c.created_at",
	}
	TagOrder = map[string]string{
		"name":       "t.name",
		"created_at": "t.created_at",
		"blog_count": "blog_count",
	}
	UserOrder = map[string]string{
		"email":        "u.email",
		"display_name": "u.display_name",
		"created_at":   "u.created_at",
	}
	MediaOrder = map[string]string{
		"created_at":    "created_at",
		"original_name": "original_name",
		"size_bytes":    "size_bytes",
	}
	ErrorLogOrder = map[string]string{
		"created_at": "e.created_at",
		"level":      "e.level",
		"source":     "e.source",
	}
)

// BlogQuery filters the blog list.
type BlogQuery struct {
	Params
	Status     models.BlogStatus
	CategoryID *uuid.UUID
	TagID      *uuid.UUID
	AuthorID   *uuid.UUID

	// Used by the public API, which filters by slug and only ever
	// shows published blogs.
	CategorySlug  string
	TagSlug       string
	PublishedOnly bool
}

// ParseBlog parses a blog list query.
func ParseBlog(v url.Values) (BlogQuery, error) {
	q := BlogQuery{Params: Parse(v, BlogOrder, "created_at")}

	if s := v.Get("status"); s != "" {
		q.Status = models.BlogStatus(s)
		if !q.Status.Valid() {
			return q, &FieldError{Field: "status", Message: "must be draft, scheduled or published"}
		}
	}

	var err error
	if q.CategoryID, err = optionalUUID(v, "category_id"); err != nil {
		return q, err
	}
	if q.TagID, err = optionalUUID(v, "tag_id"); err != nil {
		return q, err
	}
	if q.AuthorID, err = optionalUUID(v, "author_id"); err != nil {
		return q, err
	}
	return q, nil
}

// ParsePublicBlog parses the unauthenticated blog listing query.
// Ordering is restricted and only published blogs are returned.
func ParsePublicBlog(v url.Values) BlogQuery {
	return BlogQuery{
		Params: Parse(v, map[string]string{
			"published_at": "b.published_at",
			"title":        "b.title",
		}, "published_at"),
		CategorySlug:  strings.TrimSpace(v.Get("category")),
		TagSlug:       strings.TrimSpace(v.Get("tag")),
		PublishedOnly: true,
	}
}

// UserQuery filters the user list.
type UserQuery struct {
	Params
	Role string
}

// ParseUser parses a user list query.
func ParseUser(v url.Values) UserQuery {
	return UserQuery{
		Params: Parse(v, UserOrder, "created_at"),
		Role:   strings.TrimSpace(v.Get("role")),
	}
}

// ErrorLogQuery filters the error log list.
type ErrorLogQuery struct {
	Params
	Level  string
	Source string
}

// ParseErrorLog parses an error log list query.
func ParseErrorLog(v url.Values) (ErrorLogQuery, error) {
	q := ErrorLogQuery{
		Params: Parse(v, ErrorLogOrder, "created_at"),
		Level:  strings.ToUpper(strings.TrimSpace(v.Get("level"))),
		Source: strings.TrimSpace(v.Get("source")),
	}
	switch q.Level {
	case "", models.LevelWarn, models.LevelError, models.LevelFatal:
	default:
		return q, &FieldError{Field: "level", Message: "must be WARN, ERROR or FATAL"}
	}
	return q, nil
}

func optionalUUID(v url.Values, key string) (*uuid.UUID, error) {
	s := v.Get(key)
	if s == "" {
		return nil, nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return nil, &FieldError{Field: key, Message: "must be a valid UUID"}
	}
	return &id, nil
}
