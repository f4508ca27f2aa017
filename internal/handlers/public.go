// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"blogdesk/internal/cache"
	"blogdesk/internal/query"
	"blogdesk/internal/store"
)

// publicBlogsScope namespaces cached public blog listings.
const publicBlogsScope = "public_blogs"

// Public groups the unauthenticated read-only handlers. Blog listings are
// served from the Valkey list cache when possible and stored on miss.
type Public struct {
	blogStore     *store.BlogStore
	categoryStore *store.CategoryStore
	tagStore      *store.TagStore
	listCache     *cache.ListCache
	errorLogs     *store.ErrorLogStore
}

// NewPublic creates a new Public handler group. listCache may be nil, in
// which case every request goes to the database.
func NewPublic(blogStore *store.BlogStore, categoryStore *store.CategoryStore, tagStore *store.TagStore, listCache *cache.ListCache, errorLogs *store.ErrorLogStore) *Public {
	return &Public{
		blogStore:     blogStore,
		categoryStore: categoryStore,
		tagStore:      tagStore,
		listCache:     listCache,
		errorLogs:     errorLogs,
	}
}

// Blogs returns a page of published blogs.
func (p *Public) Blogs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	key := cache.Key(publicBlogsScope, r.URL.Query())
	if cached, ok := p.listCache.Get(ctx, key); ok {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-Cache", "HIT")
		w.WriteHeader(http.StatusOK)
		w.Write(cached)
		return
	}

	q := query.ParsePublicBlog(r.URL.Query())
	blogs, total, err := p.blogStore.List(ctx, q)
	if err != nil {
		serverError(w, r, p.errorLogs, "list public blogs", err)
		return
	}
	for i := range blogs {
		if err := renderBody(&blogs[i]); err != nil {
			serverError(w, r, p.errorLogs, "render blog body", err)
			return
		}
	}

	body, err := json.Marshal(query.NewPage(blogs, total, q.Params))
	if err != nil {
		serverError(w, r, p.errorLogs, "encode public blogs", err)
		return
	}
	p.listCache.Set(ctx, key, body)

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Cache", "MISS")
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

// Blog returns a single published blog by slug.
func (p *Public) Blog(w http.ResponseWriter, r *http.Request) {
	blog, err := p.blogStore.FindBySlug(r.Context(), chi.URLParam(r, "slug"), true)
	if err != nil {
		serverError(w, r, p.errorLogs, "find public blog", err)
		return
	}
	if blog == nil {
		writeNotFound(w, "blog")
		return
	}
	if err := renderBody(blog); err != nil {
		serverError(w, r, p.errorLogs, "render blog body", err)
		return
	}
	writeJSON(w, http.StatusOK, blog)
}

// Categories returns the category tree with published blog counts.
func (p *Public) Categories(w http.ResponseWriter, r *http.Request) {
	tree, err := p.categoryStore.Tree(r.Context(), true)
	if err != nil {
		serverError(w, r, p.errorLogs, "load public categories", err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(tree))
}

// Tags returns every tag with its published blog count.
func (p *Public) Tags(w http.ResponseWriter, r *http.Request) {
	tags, err := p.tagStore.All(r.Context(), true)
	if err != nil {
		serverError(w, r, p.errorLogs, "load public tags", err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(tags))
}
