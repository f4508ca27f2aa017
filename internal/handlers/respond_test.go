// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"blogdesk/internal/query"
	"blogdesk/internal/store"
	"blogdesk/internal/validation"
)

func TestStoreErrorStatus(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantCode  int
		wantField string
	}{
		{
			name:      "validation errors",
			err:       validation.Errors{"title": "is required"},
			wantCode:  http.StatusUnprocessableEntity,
			wantField: "title",
		},
		{
			name:      "query field error",
			err:       &query.FieldError{Field: "status", Message: "is invalid"},
			wantCode:  http.StatusUnprocessableEntity,
			wantField: "status",
		},
		{
			name:      "slug conflict",
			err:       fmt.Errorf("create blog: %w (blogs_slug_key)", store.ErrConflict),
			wantCode:  http.StatusConflict,
			wantField: "slug",
		},
		{
			name:      "email conflict",
			err:       fmt.Errorf("create user: %w (users_email_key)", store.ErrConflict),
			wantCode:  http.StatusConflict,
			wantField: "email",
		},
		{
			name:      "name conflict",
			err:       fmt.Errorf("create tag: %w (idx_tags_name_lower)", store.ErrConflict),
			wantCode:  http.StatusConflict,
			wantField: "name",
		},
		{
			name:     "invalid reference",
			err:      fmt.Errorf("create blog: %w", store.ErrInvalidReference),
			wantCode: http.StatusUnprocessableEntity,
		},
		{
			name:     "in use",
			err:      fmt.Errorf("delete user: %w", store.ErrInUse),
			wantCode: http.StatusConflict,
		},
		{
			name:      "cycle",
			err:       fmt.Errorf("update category: %w", store.ErrCycle),
			wantCode:  http.StatusUnprocessableEntity,
			wantField: "parent_id",
		},
		{
			name:     "unexpected",
			err:      errors.New("connection reset"),
			wantCode: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/blogs", nil)
			rec := httptest.NewRecorder()

			storeError(rec, req, nil, "test op", tt.err)

			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantCode)
			}
			var body errorResponse
			decodeBody(t, rec, &body)
			if tt.wantField != "" {
				if _, ok := body.Fields[tt.wantField]; !ok {
					t.Errorf("fields = %v, want key %q", body.Fields, tt.wantField)
				}
			}
			if tt.wantCode == http.StatusInternalServerError && strings.Contains(body.Error, "connection reset") {
				t.Error("internal error text leaked to the client")
			}
		})
	}
}

func TestParseID(t *testing.T) {
	id := uuid.New()

	req := withChiURLParam(httptest.NewRequest(http.MethodGet, "/", nil), "id", id.String())
	rec := httptest.NewRecorder()
	got, ok := parseID(rec, req, "id")
	if !ok || got != id {
		t.Fatalf("parseID = %v, %v; want %v, true", got, ok, id)
	}

	req = withChiURLParam(httptest.NewRequest(http.MethodGet, "/", nil), "id", "not-a-uuid")
	rec = httptest.NewRecorder()
	if _, ok := parseID(rec, req, "id"); ok {
		t.Fatal("parseID accepted an invalid UUID")
	}
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestBind(t *testing.T) {
	type payload struct {
		Name string `json:"name" validate:"notblank,max=10"`
	}

	tests := []struct {
		name     string
		body     string
		wantOK   bool
		wantCode int
	}{
		{name: "valid", body: `{"name":"go"}`, wantOK: true},
		{name: "malformed", body: `{"name":`, wantCode: http.StatusBadRequest},
		{name: "trailing data", body: `{"name":"go"} {}`, wantCode: http.StatusBadRequest},
		{name: "blank name", body: `{"name":"   "}`, wantCode: http.StatusUnprocessableEntity},
		{name: "too long", body: `{"name":"abcdefghijk"}`, wantCode: http.StatusUnprocessableEntity},
		{name: "oversized body", body: `{"name":"` + strings.Repeat("a", maxBodyBytes) + `"}`, wantCode: http.StatusRequestEntityTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := jsonRequest(t, http.MethodPost, "/", tt.body)
			rec := httptest.NewRecorder()

			var p payload
			ok := bind(rec, req, &p)
			if ok != tt.wantOK {
				t.Fatalf("bind = %v, want %v (body %s)", ok, tt.wantOK, rec.Body.String())
			}
			if !ok && rec.Code != tt.wantCode {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantCode)
			}
		})
	}
}

func TestOptional(t *testing.T) {
	blank := "  "
	value := " https://example.com/a.jpg "
	if optional(nil) != nil {
		t.Error("optional(nil) should be nil")
	}
	if optional(&blank) != nil {
		t.Error("optional(blank) should be nil")
	}
	if got := optional(&value); got == nil || *got != "https://example.com/a.jpg" {
		t.Errorf("optional(value) = %v", got)
	}
}
