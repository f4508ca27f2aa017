// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"time"

	"github.com/google/uuid"
)

// BlogStatus represents the publishing state of a blog.
type BlogStatus string

const (
	BlogStatusDraft     BlogStatus = "draft"
	BlogStatusScheduled BlogStatus = "scheduled"
	BlogStatusPublished BlogStatus = "published"
)

// Valid reports whether s is one of the known statuses.
func (s BlogStatus) Valid() bool {
	switch s {
	case BlogStatusDraft, BlogStatusScheduled, BlogStatusPublished:
		return true
	}
	return false
}

// Blog is a blog post. The body is stored as Markdown; BodyHTML is filled
// on demand by handlers that need rendered output.
type Blog struct {
	ID            uuid.UUID   `json:"id"`
	Title         string      `json:"title"`
	Slug          string      `json:"slug"`
	Summary       string      `json:"summary"`
	Body          string      `json:"body"`
	BodyHTML      string      `json:"body_html,omitempty"`
	Status        BlogStatus  `json:"status"`
	CoverImageURL *string     `json:"cover_image_url,omitempty"`
	CoverBlurhash *string     `json:"cover_blurhash,omitempty"`
	AuthorID      uuid.UUID   `json:"author_id"`
	AuthorName    string      `json:"author_name"`
	CategoryIDs   []uuid.UUID `json:"category_ids"`
	TagIDs        []uuid.UUID `json:"tag_ids"`
	PublishAt     *time.Time  `json:"publish_at,omitempty"`
	PublishedAt   *time.Time  `json:"published_at,omitempty"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

// IsPublished returns true if the blog is in published status.
func (b *Blog) IsPublished() bool {
	return b.Status == BlogStatusPublished
}

// PrepareStatus stamps PublishedAt when a blog enters published status
// without one. Scheduled blogs keep PublishedAt unset until the job runs.
func (b *Blog) PrepareStatus(now time.Time) {
	switch b.Status {
	case BlogStatusPublished:
		if b.PublishedAt == nil {
			t := now
			b.PublishedAt = &t
		}
	case BlogStatusDraft, BlogStatusScheduled:
		b.PublishedAt = nil
	}
	if b.Status != BlogStatusScheduled {
		b.PublishAt = nil
	}
}

// ErrorLog is a persisted application error, written by the shared
// error-logging helper and shown on the admin error log page.
type ErrorLog struct {
	ID        int64     `json:"id"`
	Level     string    `json:"level"`   // ERROR, WARN, FATAL
	Source    string    `json:"source"`  // Subsystem that raised it
	Message   string    `json:"message"` // Short message
	Detail    string    `json:"detail"`
	Stack     string    `json:"stack"`
	Context   string    `json:"context"` // JSON object
	CreatedAt time.Time `json:"created_at"`
}

// Error log levels.
const (
	LevelWarn  = "WARN"
	LevelError = "ERROR"
	LevelFatal = "FATAL"
)
