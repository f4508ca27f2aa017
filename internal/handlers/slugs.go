// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"blogdesk/internal/slug"
	"blogdesk/internal/validation"
)

// slugChecker reports whether a slug is taken by a row other than excludeID.
type slugChecker func(ctx context.Context, s string, excludeID *uuid.UUID) (bool, error)

// resolveSlug returns requested when set. Otherwise it generates a slug
// from fallback and suffixes it until it is free.
func resolveSlug(ctx context.Context, requested, fallback string, excludeID *uuid.UUID, exists slugChecker) (string, error) {
	if s := strings.TrimSpace(requested); s != "" {
		return s, nil
	}
	s, err := slug.Unique(slug.Generate(fallback), func(candidate string) (bool, error) {
		return exists(ctx, candidate, excludeID)
	})
	if errors.Is(err, slug.ErrEmpty) {
		return "", validation.Errors{"slug": "could not be generated; enter one"}
	}
	return s, err
}

// slugCheck returns the availability check for entity, or nil when the
// entity has no slug.
func (a *Admin) slugCheck(entity string) slugChecker {
	switch entity {
	case "blog":
		return a.blogStore.SlugExists
	case "category":
		return a.categoryStore.SlugExists
	case "tag":
		return a.tagStore.SlugExists
	}
	return nil
}

type slugRequest struct {
	Text      string     `json:"text" validate:"max=1000"`
	Entity    string     `json:"entity" validate:"required,oneof=blog category tag"`
	ExcludeID *uuid.UUID `json:"exclude_id"`
}

type slugResponse struct {
	Slug      string `json:"slug"`
	Valid     bool   `json:"valid"`
	Available bool   `json:"available"`
}

// GenerateSlug turns text into a slug and reports whether it is well formed
// and free for the entity. exclude_id skips the record being edited.
func (a *Admin) GenerateSlug(w http.ResponseWriter, r *http.Request) {
	var req slugRequest
	if !bind(w, r, &req) {
		return
	}

	s := slug.Generate(req.Text)
	resp := slugResponse{Slug: s, Valid: slug.Valid(s)}
	if resp.Valid {
		taken, err := a.slugCheck(req.Entity)(r.Context(), s, req.ExcludeID)
		if err != nil {
			serverError(w, r, a.errorLogs, "check slug availability", err)
			return
		}
		resp.Available = !taken
	}
	writeJSON(w, http.StatusOK, resp)
}
