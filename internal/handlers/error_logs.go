// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"blogdesk/internal/middleware"
	"blogdesk/internal/query"
)

type purgeRequest struct {
	OlderThanDays int `json:"older_than_days" validate:"min=1,max=3650"`
}

type purgeResponse struct {
	Deleted int64 `json:"deleted"`
}

// ErrorLogsList returns a page of error logs, newest first by default.
func (a *Admin) ErrorLogsList(w http.ResponseWriter, r *http.Request) {
	q, err := query.ParseErrorLog(r.URL.Query())
	if err != nil {
		storeError(w, r, a.errorLogs, "parse error log query", err)
		return
	}
	logs, total, err := a.errorLogs.List(r.Context(), q)
	if err != nil {
		serverError(w, r, a.errorLogs, "list error logs", err)
		return
	}
	writeJSON(w, http.StatusOK, query.NewPage(logs, total, q.Params))
}

// ErrorLogGet returns one error log with its stack and context.
func (a *Admin) ErrorLogGet(w http.ResponseWriter, r *http.Request) {
	id, ok := parseLogID(w, r)
	if !ok {
		return
	}
	entry, err := a.errorLogs.FindByID(r.Context(), id)
	if err != nil {
		serverError(w, r, a.errorLogs, "find error log", err)
		return
	}
	if entry == nil {
		writeNotFound(w, "error log")
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// ErrorLogDelete removes one error log.
func (a *Admin) ErrorLogDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseLogID(w, r)
	if !ok {
		return
	}
	deleted, err := a.errorLogs.Delete(r.Context(), id)
	if err != nil {
		serverError(w, r, a.errorLogs, "delete error log", err)
		return
	}
	if !deleted {
		writeNotFound(w, "error log")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ErrorLogsPurge deletes every error log older than the given number of days.
func (a *Admin) ErrorLogsPurge(w http.ResponseWriter, r *http.Request) {
	var req purgeRequest
	if !bind(w, r, &req) {
		return
	}
	cutoff := a.now().AddDate(0, 0, -req.OlderThanDays)
	n, err := a.errorLogs.PurgeOlderThan(r.Context(), cutoff)
	if err != nil {
		serverError(w, r, a.errorLogs, "purge error logs", err)
		return
	}

	sess := middleware.SessionFromCtx(r.Context())
	slog.Info("error logs purged", "admin", sess.Email, "older_than_days", req.OlderThanDays, "deleted", n)
	writeJSON(w, http.StatusOK, purgeResponse{Deleted: n})
}

func parseLogID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeNotFound(w, "error log")
		return 0, false
	}
	return id, true
}
