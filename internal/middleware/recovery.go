// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	"blogdesk/internal/models"
	"blogdesk/internal/store"
)

// ErrorRecorder persists error log entries. Satisfied by *store.ErrorLogStore.
type ErrorRecorder interface {
	Write(ctx context.Context, e store.Entry)
}

// panicUser is filled by LoadSession further down the chain so the
// recoverer can attribute a panic even though it only sees the outer request.
type panicUser struct {
	id string
}

const panicUserKey contextKey = "panic_user"

// notePanicUser records the session user on the recoverer's slot, if any.
func notePanicUser(ctx context.Context, userID string) {
	if u, ok := ctx.Value(panicUserKey).(*panicUser); ok {
		u.id = userID
	}
}

// Recoverer catches panics in downstream handlers, logs the stack trace,
// records a FATAL error log entry when errs is non-nil, and answers with a
// JSON 500 instead of crashing the server.
func Recoverer(errs ErrorRecorder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := &panicUser{}
			r = r.WithContext(context.WithValue(r.Context(), panicUserKey, user))

			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				stack := string(debug.Stack())
				slog.Error("panic recovered",
					"error", rec,
					"method", r.Method,
					"path", r.URL.Path,
					"stack", stack,
				)

				if errs != nil {
					fields := map[string]any{
						"method": r.Method,
						"path":   r.URL.Path,
					}
					if sess := SessionFromCtx(r.Context()); sess != nil {
						fields["user_id"] = sess.UserID.String()
					} else if user.id != "" {
						fields["user_id"] = user.id
					}
					errs.Write(r.Context(), store.Entry{
						Level:   models.LevelFatal,
						Source:  "http",
						Message: fmt.Sprintf("panic: %v", rec),
						Stack:   stack,
						Context: fields,
					})
				}

				writeError(w, http.StatusInternalServerError, "internal server error")
			}()

			next.ServeHTTP(w, r)
		})
	}
}
