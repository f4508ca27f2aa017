// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"net/http"
	"strings"

	"blogdesk/internal/models"
)

type roleRequest struct {
	Name        string `json:"name" validate:"notblank,min=2,max=50"`
	Description string `json:"description" validate:"max=300"`
}

// RolesList returns every role with its user count.
func (a *Admin) RolesList(w http.ResponseWriter, r *http.Request) {
	roles, err := a.roleStore.List(r.Context())
	if err != nil {
		serverError(w, r, a.errorLogs, "list roles", err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(roles))
}

// RoleGet returns a single role.
func (a *Admin) RoleGet(w http.ResponseWriter, r *http.Request) {
	role, ok := a.loadRole(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, role)
}

// RoleCreate creates a custom role.
func (a *Admin) RoleCreate(w http.ResponseWriter, r *http.Request) {
	var req roleRequest
	if !bind(w, r, &req) {
		return
	}
	created, err := a.roleStore.Create(r.Context(), &models.Role{
		Name:        strings.ToLower(strings.TrimSpace(req.Name)),
		Description: strings.TrimSpace(req.Description),
	})
	if err != nil {
		storeError(w, r, a.errorLogs, "create role", err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// RoleUpdate changes a role. Built-in roles keep their name since
// authorization checks depend on it.
func (a *Admin) RoleUpdate(w http.ResponseWriter, r *http.Request) {
	existing, ok := a.loadRole(w, r)
	if !ok {
		return
	}
	var req roleRequest
	if !bind(w, r, &req) {
		return
	}
	name := strings.ToLower(strings.TrimSpace(req.Name))
	if existing.IsBuiltin() && name != existing.Name {
		writeError(w, http.StatusConflict, "built-in roles cannot be renamed")
		return
	}

	updated, err := a.roleStore.Update(r.Context(), &models.Role{
		ID:          existing.ID,
		Name:        name,
		Description: strings.TrimSpace(req.Description),
	})
	if err != nil {
		storeError(w, r, a.errorLogs, "update role", err)
		return
	}
	if updated == nil {
		writeNotFound(w, "role")
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// RoleDelete removes a custom role. Built-in roles cannot be deleted.
func (a *Admin) RoleDelete(w http.ResponseWriter, r *http.Request) {
	existing, ok := a.loadRole(w, r)
	if !ok {
		return
	}
	if existing.IsBuiltin() {
		writeError(w, http.StatusConflict, "built-in roles cannot be deleted")
		return
	}
	deleted, err := a.roleStore.Delete(r.Context(), existing.ID)
	if err != nil {
		storeError(w, r, a.errorLogs, "delete role", err)
		return
	}
	if !deleted {
		writeNotFound(w, "role")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *Admin) loadRole(w http.ResponseWriter, r *http.Request) (*models.Role, bool) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return nil, false
	}
	role, err := a.roleStore.FindByID(r.Context(), id)
	if err != nil {
		serverError(w, r, a.errorLogs, "find role", err)
		return nil, false
	}
	if role == nil {
		writeNotFound(w, "role")
		return nil, false
	}
	return role, true
}
