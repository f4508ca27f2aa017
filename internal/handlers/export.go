// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"log/slog"
	"net/http"

	"blogdesk/internal/export"
	"blogdesk/internal/models"
	"blogdesk/internal/store"
)

// writeCSV streams items as a CSV attachment. Once the first byte is out
// the status is fixed, so write failures are only logged.
func writeCSV[T any](w http.ResponseWriter, r *http.Request, errs *store.ErrorLogStore, filename string, b *export.Builder[T], items []T) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	if err := b.Write(w, items); err != nil {
		slog.Error("write csv export failed", "file", filename, "error", err)
		errs.Log(r.Context(), models.LevelError, errorSource, err, map[string]any{"path": r.URL.Path, "file": filename})
		return
	}
	if len(items) == export.MaxRows {
		slog.Warn("csv export truncated", "file", filename, "rows", len(items))
	}
}
