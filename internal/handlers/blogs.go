// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"blogdesk/internal/export"
	"blogdesk/internal/markdown"
	"blogdesk/internal/middleware"
	"blogdesk/internal/models"
	"blogdesk/internal/query"
	"blogdesk/internal/session"
	"blogdesk/internal/validation"
)

// blogRequest is the create/update payload for a blog.
type blogRequest struct {
	Title         string            `json:"title" validate:"notblank,max=300"`
	Slug          string            `json:"slug" validate:"max=300,slug"`
	Summary       string            `json:"summary" validate:"max=1000"`
	Body          string            `json:"body" validate:"max=100000"`
	Status        models.BlogStatus `json:"status" validate:"required,oneof=draft scheduled published"`
	CoverImageURL *string           `json:"cover_image_url" validate:"omitempty,url,max=2000"`
	CoverBlurhash *string           `json:"cover_blurhash" validate:"omitempty,max=100"`
	PublishAt     *time.Time        `json:"publish_at"`
	CategoryIDs   []uuid.UUID       `json:"category_ids" validate:"max=20"`
	TagIDs        []uuid.UUID       `json:"tag_ids" validate:"max=50"`
}

// check enforces the rules the struct tags cannot express.
func (req *blogRequest) check(now time.Time) error {
	errs := validation.Errors{}
	if req.Status == models.BlogStatusScheduled {
		switch {
		case req.PublishAt == nil:
			errs.Add("publish_at", "is required for scheduled blogs")
		case !req.PublishAt.After(now):
			errs.Add("publish_at", "must be in the future")
		}
	}
	return errs.OrNil()
}

func (req *blogRequest) apply(b *models.Blog) {
	b.Title = strings.TrimSpace(req.Title)
	b.Summary = strings.TrimSpace(req.Summary)
	b.Body = req.Body
	b.Status = req.Status
	b.CoverImageURL = optional(req.CoverImageURL)
	b.CoverBlurhash = optional(req.CoverBlurhash)
	if b.CoverImageURL == nil {
		b.CoverBlurhash = nil
	}
	b.PublishAt = req.PublishAt
	b.CategoryIDs = req.CategoryIDs
	b.TagIDs = req.TagIDs
}

// canModify reports whether sess may change b. Authors are limited to
// their own blogs.
func canModify(sess *session.Data, b *models.Blog) bool {
	return sess.HasRole(models.RoleAdmin, models.RoleEditor) || b.AuthorID == sess.UserID
}

// BlogsList returns a page of blogs matching the query entity.
func (a *Admin) BlogsList(w http.ResponseWriter, r *http.Request) {
	q, err := query.ParseBlog(r.URL.Query())
	if err != nil {
		storeError(w, r, a.errorLogs, "parse blog query", err)
		return
	}
	blogs, total, err := a.blogStore.List(r.Context(), q)
	if err != nil {
		serverError(w, r, a.errorLogs, "list blogs", err)
		return
	}
	writeJSON(w, http.StatusOK, query.NewPage(blogs, total, q.Params))
}

// BlogsExport streams every blog matching the list filters as CSV.
func (a *Admin) BlogsExport(w http.ResponseWriter, r *http.Request) {
	q, err := query.ParseBlog(r.URL.Query())
	if err != nil {
		storeError(w, r, a.errorLogs, "parse blog query", err)
		return
	}
	q.Page, q.PageSize = 1, export.MaxRows

	blogs, _, err := a.blogStore.List(r.Context(), q)
	if err != nil {
		serverError(w, r, a.errorLogs, "export blogs", err)
		return
	}

	catNames, tagNames, err := a.taxonomyNames(r.Context())
	if err != nil {
		serverError(w, r, a.errorLogs, "export blogs", err)
		return
	}

	b := export.NewBuilder[models.Blog]().
		Add("ID", func(b models.Blog) string { return b.ID.String() }).
		Add("Title", func(b models.Blog) string { return b.Title }).
		Add("Slug", func(b models.Blog) string { return b.Slug }).
		Add("Status", func(b models.Blog) string { return string(b.Status) }).
		Add("Author", func(b models.Blog) string { return b.AuthorName }).
		Add("Categories", func(b models.Blog) string { return export.Join(lookup(catNames, b.CategoryIDs)) }).
		Add("Tags", func(b models.Blog) string { return export.Join(lookup(tagNames, b.TagIDs)) }).
		AddIf(q.Status != models.BlogStatusDraft, "Published at", func(b models.Blog) string { return export.TimePtr(b.PublishedAt) }).
		AddIf(q.Status == "" || q.Status == models.BlogStatusScheduled, "Publish at", func(b models.Blog) string { return export.TimePtr(b.PublishAt) }).
		Add("Created at", func(b models.Blog) string { return export.Time(b.CreatedAt) }).
		Add("Updated at", func(b models.Blog) string { return export.Time(b.UpdatedAt) })

	writeCSV(w, r, a.errorLogs, export.Filename("blogs", a.now()), b, blogs)
}

// BlogGet returns a single blog with its rendered body.
func (a *Admin) BlogGet(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	blog, err := a.blogStore.FindByID(r.Context(), id)
	if err != nil {
		serverError(w, r, a.errorLogs, "find blog", err)
		return
	}
	a.writeBlog(w, r, blog, http.StatusOK)
}

// BlogGetBySlug returns a single blog, published or not, by slug.
func (a *Admin) BlogGetBySlug(w http.ResponseWriter, r *http.Request) {
	blog, err := a.blogStore.FindBySlug(r.Context(), chi.URLParam(r, "slug"), false)
	if err != nil {
		serverError(w, r, a.errorLogs, "find blog by slug", err)
		return
	}
	a.writeBlog(w, r, blog, http.StatusOK)
}

// writeBlog renders the Markdown body and answers with the blog, or 404
// when blog is nil.
func (a *Admin) writeBlog(w http.ResponseWriter, r *http.Request, blog *models.Blog, status int) {
	if blog == nil {
		writeNotFound(w, "blog")
		return
	}
	if err := renderBody(blog); err != nil {
		serverError(w, r, a.errorLogs, "render blog body", err)
		return
	}
	writeJSON(w, status, blog)
}

func renderBody(b *models.Blog) error {
	html, err := markdown.ToHTML(b.Body)
	if err != nil {
		return err
	}
	b.BodyHTML = html
	return nil
}

// BlogCreate creates a blog owned by the current user.
func (a *Admin) BlogCreate(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())

	var req blogRequest
	if !bind(w, r, &req) {
		return
	}
	now := a.now()
	if err := req.check(now); err != nil {
		storeError(w, r, a.errorLogs, "check blog", err)
		return
	}

	blog := &models.Blog{AuthorID: sess.UserID}
	req.apply(blog)
	slugValue, err := resolveSlug(r.Context(), req.Slug, blog.Title, nil, a.blogStore.SlugExists)
	if err != nil {
		storeError(w, r, a.errorLogs, "resolve blog slug", err)
		return
	}
	blog.Slug = slugValue
	blog.PrepareStatus(now)

	created, err := a.blogStore.Create(r.Context(), blog)
	if err != nil {
		storeError(w, r, a.errorLogs, "create blog", err)
		return
	}

	a.afterBlogWrite(r.Context(), nil, created)
	a.writeBlog(w, r, created, http.StatusCreated)
}

// BlogUpdate replaces a blog's editable fields. The author is kept.
func (a *Admin) BlogUpdate(w http.ResponseWriter, r *http.Request) {
	existing, ok := a.loadOwnBlog(w, r)
	if !ok {
		return
	}

	var req blogRequest
	if !bind(w, r, &req) {
		return
	}
	now := a.now()
	if err := req.check(now); err != nil {
		storeError(w, r, a.errorLogs, "check blog", err)
		return
	}

	wasPublished := existing.IsPublished()
	blog := *existing
	req.apply(&blog)
	slugValue, err := resolveSlug(r.Context(), req.Slug, blog.Title, &blog.ID, a.blogStore.SlugExists)
	if err != nil {
		storeError(w, r, a.errorLogs, "resolve blog slug", err)
		return
	}
	blog.Slug = slugValue
	blog.PrepareStatus(now)

	updated, err := a.blogStore.Update(r.Context(), &blog)
	if err != nil {
		storeError(w, r, a.errorLogs, "update blog", err)
		return
	}
	if updated == nil {
		writeNotFound(w, "blog")
		return
	}

	a.afterBlogWrite(r.Context(), &wasPublished, updated)
	a.writeBlog(w, r, updated, http.StatusOK)
}

// BlogPublish publishes a blog immediately.
func (a *Admin) BlogPublish(w http.ResponseWriter, r *http.Request) {
	a.setBlogStatus(w, r, models.BlogStatusPublished)
}

// BlogUnpublish moves a blog back to draft.
func (a *Admin) BlogUnpublish(w http.ResponseWriter, r *http.Request) {
	a.setBlogStatus(w, r, models.BlogStatusDraft)
}

func (a *Admin) setBlogStatus(w http.ResponseWriter, r *http.Request, status models.BlogStatus) {
	existing, ok := a.loadOwnBlog(w, r)
	if !ok {
		return
	}
	wasPublished := existing.IsPublished()

	updated, err := a.blogStore.SetStatus(r.Context(), existing.ID, status, a.now())
	if err != nil {
		serverError(w, r, a.errorLogs, "set blog status", err)
		return
	}
	if updated == nil {
		writeNotFound(w, "blog")
		return
	}

	a.afterBlogWrite(r.Context(), &wasPublished, updated)
	a.writeBlog(w, r, updated, http.StatusOK)
}

// BlogDelete removes a blog.
func (a *Admin) BlogDelete(w http.ResponseWriter, r *http.Request) {
	existing, ok := a.loadOwnBlog(w, r)
	if !ok {
		return
	}
	deleted, err := a.blogStore.Delete(r.Context(), existing.ID)
	if err != nil {
		storeError(w, r, a.errorLogs, "delete blog", err)
		return
	}
	if !deleted {
		writeNotFound(w, "blog")
		return
	}
	a.listCache.InvalidateAll(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

// loadOwnBlog fetches the blog named by the URL and checks the current
// user may modify it. It writes the error response on failure.
func (a *Admin) loadOwnBlog(w http.ResponseWriter, r *http.Request) (*models.Blog, bool) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return nil, false
	}
	blog, err := a.blogStore.FindByID(r.Context(), id)
	if err != nil {
		serverError(w, r, a.errorLogs, "find blog", err)
		return nil, false
	}
	if blog == nil {
		writeNotFound(w, "blog")
		return nil, false
	}
	if !canModify(middleware.SessionFromCtx(r.Context()), blog) {
		writeError(w, http.StatusForbidden, "you may only modify your own blogs")
		return nil, false
	}
	return blog, true
}

// afterBlogWrite clears the public list cache and announces blogs that
// just went live. wasPublished is nil for new blogs.
func (a *Admin) afterBlogWrite(ctx context.Context, wasPublished *bool, b *models.Blog) {
	a.listCache.InvalidateAll(ctx)
	if b.IsPublished() && (wasPublished == nil || !*wasPublished) {
		a.notifier.BlogPublished(b)
	}
}

// taxonomyNames maps category and tag IDs to their names.
func (a *Admin) taxonomyNames(ctx context.Context) (map[uuid.UUID]string, map[uuid.UUID]string, error) {
	cats, err := a.categoryStore.All(ctx, false)
	if err != nil {
		return nil, nil, err
	}
	tags, err := a.tagStore.All(ctx, false)
	if err != nil {
		return nil, nil, err
	}
	catNames := make(map[uuid.UUID]string, len(cats))
	for _, c := range cats {
		catNames[c.ID] = c.Name
	}
	tagNames := make(map[uuid.UUID]string, len(tags))
	for _, t := range tags {
		tagNames[t.ID] = t.Name
	}
	return catNames, tagNames, nil
}

func lookup(names map[uuid.UUID]string, ids []uuid.UUID) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if n, ok := names[id]; ok {
			out = append(out, n)
		}
	}
	return out
}
