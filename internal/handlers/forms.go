// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"blogdesk/internal/forms"
)

// FormGet returns the dynamic form descriptor for an entity. ?editing=true
// selects the edit variant.
func (a *Admin) FormGet(w http.ResponseWriter, r *http.Request) {
	editing, _ := strconv.ParseBool(r.URL.Query().Get("editing"))

	form, err := a.forms.Build(r.Context(), chi.URLParam(r, "entity"), editing)
	if errors.Is(err, forms.ErrUnknownEntity) {
		writeNotFound(w, "form")
		return
	}
	if err != nil {
		serverError(w, r, a.errorLogs, "build form", err)
		return
	}
	writeJSON(w, http.StatusOK, form)
}
