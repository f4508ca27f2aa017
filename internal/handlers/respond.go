// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"blogdesk/internal/middleware"
	"blogdesk/internal/models"
	"blogdesk/internal/query"
	"blogdesk/internal/store"
	"blogdesk/internal/validation"
)

// errorSource tags error log rows written by handlers.
const errorSource = "http"

// errorResponse is the JSON body of every error reply.
type errorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// writeJSON encodes v as the response body with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("encode response failed", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeFieldErrors answers 422 with per-field messages.
func writeFieldErrors(w http.ResponseWriter, fields map[string]string) {
	writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: "validation failed", Fields: fields})
}

func writeNotFound(w http.ResponseWriter, what string) {
	writeError(w, http.StatusNotFound, what+" not found")
}

// serverError logs err, persists it to the error log and answers a
// generic 500. The error text never reaches the client.
func serverError(w http.ResponseWriter, r *http.Request, errs *store.ErrorLogStore, msg string, err error) {
	slog.Error(msg, "error", err, "method", r.Method, "path", r.URL.Path)

	fields := map[string]any{"method": r.Method, "path": r.URL.Path}
	if sess := middleware.SessionFromCtx(r.Context()); sess != nil {
		fields["user_id"] = sess.UserID.String()
	}
	errs.Log(r.Context(), models.LevelError, errorSource, fmt.Errorf("%s: %w", msg, err), fields)

	writeError(w, http.StatusInternalServerError, "internal server error")
}

// storeError maps validation failures and store sentinels onto their HTTP
// status. Anything else is a server error.
func storeError(w http.ResponseWriter, r *http.Request, errs *store.ErrorLogStore, msg string, err error) {
	var verrs validation.Errors
	var ferr *query.FieldError
	switch {
	case errors.As(err, &verrs):
		writeFieldErrors(w, verrs)
	case errors.As(err, &ferr):
		writeFieldErrors(w, map[string]string{ferr.Field: ferr.Message})
	case errors.Is(err, store.ErrConflict):
		field := conflictField(err)
		writeJSON(w, http.StatusConflict, errorResponse{
			Error:  field + " is already taken",
			Fields: map[string]string{field: "is already taken"},
		})
	case errors.Is(err, store.ErrInvalidReference):
		writeError(w, http.StatusUnprocessableEntity, "references a record that does not exist")
	case errors.Is(err, store.ErrInUse):
		writeError(w, http.StatusConflict, "still in use by other records")
	case errors.Is(err, store.ErrCycle):
		writeFieldErrors(w, map[string]string{"parent_id": "would create a cycle"})
	default:
		serverError(w, r, errs, msg, err)
	}
}

// conflictField guesses the offending field from the constraint name the
// store appends to ErrConflict.
func conflictField(err error) string {
	s := err.Error()
	switch {
	case strings.Contains(s, "_slug_"):
		return "slug"
	case strings.Contains(s, "_email_"):
		return "email"
	default:
		return "name"
	}
}

// parseID reads a UUID URL parameter. On failure it answers 404, since an
// ID that cannot parse cannot exist.
func parseID(w http.ResponseWriter, r *http.Request, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		writeError(w, http.StatusNotFound, "not found")
		return uuid.Nil, false
	}
	return id, true
}
