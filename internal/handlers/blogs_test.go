// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"blogdesk/internal/models"
	"blogdesk/internal/validation"
)

func TestCanModify(t *testing.T) {
	owner := uuid.New()
	blog := &models.Blog{AuthorID: owner}

	tests := []struct {
		name   string
		userID uuid.UUID
		roles  []string
		want   bool
	}{
		{name: "admin", userID: uuid.New(), roles: []string{models.RoleAdmin}, want: true},
		{name: "editor", userID: uuid.New(), roles: []string{models.RoleEditor}, want: true},
		{name: "author owner", userID: owner, roles: []string{models.RoleAuthor}, want: true},
		{name: "other author", userID: uuid.New(), roles: []string{models.RoleAuthor}, want: false},
		{name: "no roles", userID: uuid.New(), want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := canModify(testSession(tt.userID, tt.roles...), blog); got != tt.want {
				t.Errorf("canModify = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBlogRequestCheck(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	tests := []struct {
		name    string
		req     blogRequest
		wantErr bool
	}{
		{name: "draft", req: blogRequest{Status: models.BlogStatusDraft}},
		{name: "published", req: blogRequest{Status: models.BlogStatusPublished}},
		{name: "scheduled in future", req: blogRequest{Status: models.BlogStatusScheduled, PublishAt: &future}},
		{name: "scheduled without date", req: blogRequest{Status: models.BlogStatusScheduled}, wantErr: true},
		{name: "scheduled in past", req: blogRequest{Status: models.BlogStatusScheduled, PublishAt: &past}, wantErr: true},
		{name: "scheduled now", req: blogRequest{Status: models.BlogStatusScheduled, PublishAt: &now}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.check(now)
			if (err != nil) != tt.wantErr {
				t.Fatalf("check = %v, wantErr %v", err, tt.wantErr)
			}
			var verrs validation.Errors
			if err != nil && (!errors.As(err, &verrs) || verrs["publish_at"] == "") {
				t.Errorf("expected publish_at field error, got %v", err)
			}
		})
	}
}

func TestBlogRequestApplyDropsOrphanBlurhash(t *testing.T) {
	blank := " "
	hash := "LEHV6nWB2yk8pyo0adR*.7kCMdnj"
	req := blogRequest{Title: "  Hello  ", CoverImageURL: &blank, CoverBlurhash: &hash}

	var b models.Blog
	req.apply(&b)
	if b.Title != "Hello" {
		t.Errorf("Title = %q, want trimmed", b.Title)
	}
	if b.CoverImageURL != nil || b.CoverBlurhash != nil {
		t.Errorf("cover fields = %v, %v; want both nil", b.CoverImageURL, b.CoverBlurhash)
	}
}

func TestBlogCRUDFlow(t *testing.T) {
	env := newTestEnv(t)
	author := env.createUser(t, "author-password-1", models.RoleAuthor)
	sess := sessionFor(author)

	// Create a draft.
	req := jsonRequest(t, http.MethodPost, "/api/blogs", map[string]any{
		"title":  "Handler Flow " + uuid.NewString()[:6],
		"body":   "# Heading\n\nSome *text*.",
		"status": "draft",
	})
	req = req.WithContext(ctxWithSession(req.Context(), sess))
	rec := httptest.NewRecorder()
	env.Admin.BlogCreate(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", rec.Code, rec.Body.String())
	}
	var created models.Blog
	decodeBody(t, rec, &created)
	if created.Slug == "" || !strings.HasPrefix(created.Slug, "handler-flow-") {
		t.Errorf("generated slug = %q", created.Slug)
	}
	if !strings.Contains(created.BodyHTML, "<em>text</em>") {
		t.Errorf("body_html = %q", created.BodyHTML)
	}
	if created.AuthorID != author.ID {
		t.Errorf("author = %v, want %v", created.AuthorID, author.ID)
	}

	// Another author may not touch it.
	other := env.createUser(t, "author-password-2", models.RoleAuthor)
	req = withChiURLParamAndSession(
		jsonRequest(t, http.MethodPost, "/", nil), "id", created.ID.String(), sessionFor(other))
	rec = httptest.NewRecorder()
	env.Admin.BlogPublish(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("foreign publish status = %d, want 403", rec.Code)
	}

	// The owner publishes and admins are notified.
	req = withChiURLParamAndSession(jsonRequest(t, http.MethodPost, "/", nil), "id", created.ID.String(), sess)
	rec = httptest.NewRecorder()
	env.Admin.BlogPublish(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("publish status = %d, body %s", rec.Code, rec.Body.String())
	}
	var published models.Blog
	decodeBody(t, rec, &published)
	if published.Status != models.BlogStatusPublished || published.PublishedAt == nil {
		t.Errorf("published blog = %+v", published)
	}
	if len(env.Notifier.published) != 1 || env.Notifier.published[0] != created.Slug {
		t.Errorf("notifications = %v", env.Notifier.published)
	}

	// Reusing the slug on a new blog conflicts.
	req = jsonRequest(t, http.MethodPost, "/api/blogs", map[string]any{
		"title":  "Duplicate",
		"slug":   created.Slug,
		"status": "draft",
	})
	req = req.WithContext(ctxWithSession(req.Context(), sess))
	rec = httptest.NewRecorder()
	env.Admin.BlogCreate(rec, req)
	if rec.Code != http.StatusConflict {
		t.Errorf("duplicate slug status = %d, want 409", rec.Code)
	}

	// Delete.
	req = withChiURLParamAndSession(httptest.NewRequest(http.MethodDelete, "/", nil), "id", created.ID.String(), sess)
	rec = httptest.NewRecorder()
	env.Admin.BlogDelete(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rec.Code)
	}
	if b, _ := env.Blogs.FindByID(context.Background(), created.ID); b != nil {
		t.Error("blog still exists after delete")
	}
}

func TestBlogCreateRejectsUnknownCategory(t *testing.T) {
	env := newTestEnv(t)
	author := env.createUser(t, "author-password-1", models.RoleAuthor)

	req := jsonRequest(t, http.MethodPost, "/api/blogs", map[string]any{
		"title":        "Orphan " + uuid.NewString()[:6],
		"status":       "draft",
		"category_ids": []string{uuid.NewString()},
	})
	req = req.WithContext(ctxWithSession(req.Context(), sessionFor(author)))
	rec := httptest.NewRecorder()
	env.Admin.BlogCreate(rec, req)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422 (body %s)", rec.Code, rec.Body.String())
	}
}

func TestBlogsExport(t *testing.T) {
	env := newTestEnv(t)
	admin := env.createUser(t, "admin-password-1", models.RoleAdmin)

	req := httptest.NewRequest(http.MethodGet, "/api/blogs/export?status=draft", nil)
	req = req.WithContext(ctxWithSession(req.Context(), sessionFor(admin)))
	rec := httptest.NewRecorder()
	env.Admin.BlogsExport(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Errorf("Content-Type = %q", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "attachment") {
		t.Errorf("Content-Disposition = %q", cd)
	}
	first, _, _ := strings.Cut(rec.Body.String(), "\n")
	if !strings.HasPrefix(first, "ID,Title") {
		t.Errorf("header row = %q", first)
	}
}
