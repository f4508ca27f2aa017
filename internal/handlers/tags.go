// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"blogdesk/internal/models"
	"blogdesk/internal/query"
)

// Chip autocomplete limits.
const (
	defaultTagSuggestions = 10
	maxTagSuggestions     = 50
)

type tagRequest struct {
	Name string `json:"name" validate:"notblank,max=50"`
	Slug string `json:"slug" validate:"max=300,slug"`
}

// TagsList returns a page of tags with blog counts.
func (a *Admin) TagsList(w http.ResponseWriter, r *http.Request) {
	q := query.Parse(r.URL.Query(), query.TagOrder, "name")
	tags, total, err := a.tagStore.List(r.Context(), q)
	if err != nil {
		serverError(w, r, a.errorLogs, "list tags", err)
		return
	}
	writeJSON(w, http.StatusOK, query.NewPage(tags, total, q))
}

// TagsSearch backs the chip selector: tags whose name starts with ?q=.
func (a *Admin) TagsSearch(w http.ResponseWriter, r *http.Request) {
	prefix := strings.TrimSpace(r.URL.Query().Get("q"))
	limit := defaultTagSuggestions
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 {
		limit = min(v, maxTagSuggestions)
	}

	tags, err := a.tagStore.Search(r.Context(), prefix, limit)
	if err != nil {
		serverError(w, r, a.errorLogs, "search tags", err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(tags))
}

// TagGet returns a single tag.
func (a *Admin) TagGet(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	tag, err := a.tagStore.FindByID(r.Context(), id)
	if err != nil {
		serverError(w, r, a.errorLogs, "find tag", err)
		return
	}
	if tag == nil {
		writeNotFound(w, "tag")
		return
	}
	writeJSON(w, http.StatusOK, tag)
}

// TagCreate creates a tag. Names are unique regardless of case.
func (a *Admin) TagCreate(w http.ResponseWriter, r *http.Request) {
	var req tagRequest
	if !bind(w, r, &req) {
		return
	}
	tag := &models.Tag{Name: strings.TrimSpace(req.Name)}
	s, err := resolveSlug(r.Context(), req.Slug, tag.Name, nil, a.tagStore.SlugExists)
	if err != nil {
		storeError(w, r, a.errorLogs, "resolve tag slug", err)
		return
	}
	tag.Slug = s

	created, err := a.tagStore.Create(r.Context(), tag)
	if err != nil {
		storeError(w, r, a.errorLogs, "create tag", err)
		return
	}
	a.listCache.InvalidateAll(r.Context())
	writeJSON(w, http.StatusCreated, created)
}

// TagUpdate renames a tag.
func (a *Admin) TagUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	var req tagRequest
	if !bind(w, r, &req) {
		return
	}
	tag := &models.Tag{ID: id, Name: strings.TrimSpace(req.Name)}
	s, err := resolveSlug(r.Context(), req.Slug, tag.Name, &id, a.tagStore.SlugExists)
	if err != nil {
		storeError(w, r, a.errorLogs, "resolve tag slug", err)
		return
	}
	tag.Slug = s

	updated, err := a.tagStore.Update(r.Context(), tag)
	if err != nil {
		storeError(w, r, a.errorLogs, "update tag", err)
		return
	}
	if updated == nil {
		writeNotFound(w, "tag")
		return
	}
	a.listCache.InvalidateAll(r.Context())
	writeJSON(w, http.StatusOK, updated)
}

// TagDelete removes a tag and its blog links.
func (a *Admin) TagDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	deleted, err := a.tagStore.Delete(r.Context(), id)
	if err != nil {
		storeError(w, r, a.errorLogs, "delete tag", err)
		return
	}
	if !deleted {
		writeNotFound(w, "tag")
		return
	}
	a.listCache.InvalidateAll(r.Context())
	w.WriteHeader(http.StatusNoContent)
}
