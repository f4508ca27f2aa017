// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package router tests verify the HTTP routing configuration, middleware
// chains, and the health endpoint.
package router

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"blogdesk/internal/handlers"
	"blogdesk/internal/middleware"
	"blogdesk/internal/models"
	"blogdesk/internal/session"
)

// fixedSession is a SessionGetter that always returns data.
type fixedSession struct {
	data *session.Data
}

func (f fixedSession) Get(context.Context, *http.Request) (*session.Data, error) {
	return f.data, nil
}

// newTestRouter builds the router with handler groups that have no
// backing stores. Only requests rejected by middleware may be sent.
func newTestRouter(data *session.Data) http.Handler {
	return New(Options{Sessions: fixedSession{data: data}},
		handlers.NewAdmin(handlers.AdminDeps{}), nil, nil)
}

func TestHealthHandler(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/health", nil)

	healthHandler(w, r)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}

	ct := resp.Header.Get("Content-Type")
	if ct != "application/json" {
		t.Errorf("content-type: got %q, want %q", ct, "application/json")
	}

	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status field: got %q, want %q", body["status"], "ok")
	}
}

func TestHealthRoute(t *testing.T) {
	w := httptest.NewRecorder()
	newTestRouter(nil).ServeHTTP(w, httptest.NewRequest("GET", "/health", nil))

	if w.Code != http.StatusOK {
		t.Errorf("GET /health: got %d, want 200", w.Code)
	}
	if w.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("security headers missing on /health")
	}
}

func TestCSRFEndpoint(t *testing.T) {
	w := httptest.NewRecorder()
	newTestRouter(nil).ServeHTTP(w, httptest.NewRequest("GET", "/api/auth/csrf", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", w.Code)
	}
	var body map[string]string
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	var cookie string
	for _, c := range w.Result().Cookies() {
		if c.Name == middleware.CSRFCookieName {
			cookie = c.Value
		}
	}
	if body["token"] == "" || body["token"] != cookie {
		t.Errorf("token %q does not match cookie %q", body["token"], cookie)
	}
}

func TestAccessControl(t *testing.T) {
	userID := uuid.New()
	pending := &session.Data{UserID: userID, Roles: []string{models.RoleAdmin}}
	author := &session.Data{UserID: userID, Roles: []string{models.RoleAuthor}, TwoFADone: true}

	tests := []struct {
		name    string
		sess    *session.Data
		method  string
		path    string
		want    int
		wantErr string
	}{
		{name: "anonymous blogs", method: "GET", path: "/api/blogs", want: http.StatusUnauthorized},
		{name: "anonymous me", method: "GET", path: "/api/auth/me", want: http.StatusUnauthorized},
		{name: "anonymous users", method: "GET", path: "/api/users", want: http.StatusUnauthorized},
		{name: "2fa pending blogs", sess: pending, method: "GET", path: "/api/blogs", want: http.StatusForbidden, wantErr: "2fa_required"},
		{name: "2fa pending users", sess: pending, method: "GET", path: "/api/users", want: http.StatusForbidden, wantErr: "2fa_required"},
		{name: "author users", sess: author, method: "GET", path: "/api/users", want: http.StatusForbidden, wantErr: "forbidden"},
		{name: "author roles", sess: author, method: "GET", path: "/api/roles", want: http.StatusForbidden, wantErr: "forbidden"},
		{name: "author error logs", sess: author, method: "GET", path: "/api/error-logs", want: http.StatusForbidden, wantErr: "forbidden"},
		{name: "author user export", sess: author, method: "GET", path: "/api/users/export", want: http.StatusForbidden, wantErr: "forbidden"},
		{name: "unknown route", method: "GET", path: "/api/nope", want: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			newTestRouter(tt.sess).ServeHTTP(w, httptest.NewRequest(tt.method, tt.path, nil))

			if w.Code != tt.want {
				t.Fatalf("%s %s: got %d, want %d", tt.method, tt.path, w.Code, tt.want)
			}
			if tt.wantErr != "" {
				var body map[string]string
				if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
					t.Fatalf("decode body: %v", err)
				}
				if body["error"] != tt.wantErr {
					t.Errorf("error: got %q, want %q", body["error"], tt.wantErr)
				}
			}
		})
	}
}

func TestDeleteTaxonomyNeedsEditor(t *testing.T) {
	author := &session.Data{UserID: uuid.New(), Roles: []string{models.RoleAuthor}, TwoFADone: true}
	const token = "test-token"

	for _, path := range []string{"/api/categories/" + uuid.NewString(), "/api/tags/" + uuid.NewString()} {
		r := httptest.NewRequest("DELETE", path, nil)
		r.AddCookie(&http.Cookie{Name: middleware.CSRFCookieName, Value: token})
		r.Header.Set(middleware.CSRFHeaderName, token)
		w := httptest.NewRecorder()

		newTestRouter(author).ServeHTTP(w, r)

		if w.Code != http.StatusForbidden {
			t.Errorf("DELETE %s as author: got %d, want 403", path, w.Code)
		}
	}
}

func TestUnsafeMethodsNeedCSRF(t *testing.T) {
	editor := &session.Data{UserID: uuid.New(), Roles: []string{models.RoleEditor}, TwoFADone: true}

	w := httptest.NewRecorder()
	newTestRouter(editor).ServeHTTP(w, httptest.NewRequest("POST", "/api/tags", nil))

	if w.Code != http.StatusForbidden {
		t.Errorf("POST without CSRF token: got %d, want 403", w.Code)
	}
}
