// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"blogdesk/internal/models"
	"blogdesk/internal/query"
	"blogdesk/internal/store"
	"blogdesk/internal/validation"
)

type categoryRequest struct {
	Name        string     `json:"name" validate:"notblank,max=100"`
	Slug        string     `json:"slug" validate:"max=300,slug"`
	Description string     `json:"description" validate:"max=500"`
	ParentID    *uuid.UUID `json:"parent_id"`
	SortOrder   int        `json:"sort_order" validate:"min=0"`
}

func (req *categoryRequest) apply(c *models.Category) {
	c.Name = strings.TrimSpace(req.Name)
	c.Description = strings.TrimSpace(req.Description)
	c.ParentID = req.ParentID
	c.SortOrder = req.SortOrder
}

// CategoriesList returns a flat page of categories.
func (a *Admin) CategoriesList(w http.ResponseWriter, r *http.Request) {
	q := query.Parse(r.URL.Query(), query.CategoryOrder, "sort_order")
	cats, total, err := a.categoryStore.List(r.Context(), q)
	if err != nil {
		serverError(w, r, a.errorLogs, "list categories", err)
		return
	}
	writeJSON(w, http.StatusOK, query.NewPage(cats, total, q))
}

// CategoriesTree returns every category nested under its parent.
func (a *Admin) CategoriesTree(w http.ResponseWriter, r *http.Request) {
	tree, err := a.categoryStore.Tree(r.Context(), false)
	if err != nil {
		serverError(w, r, a.errorLogs, "load category tree", err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(tree))
}

// CategoryGet returns a single category.
func (a *Admin) CategoryGet(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	cat, err := a.categoryStore.FindByID(r.Context(), id)
	if err != nil {
		serverError(w, r, a.errorLogs, "find category", err)
		return
	}
	if cat == nil {
		writeNotFound(w, "category")
		return
	}
	writeJSON(w, http.StatusOK, cat)
}

// CategoryCreate creates a category. A zero sort_order appends it after
// its siblings.
func (a *Admin) CategoryCreate(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if !bind(w, r, &req) {
		return
	}

	cat := &models.Category{}
	req.apply(cat)
	s, err := resolveSlug(r.Context(), req.Slug, cat.Name, nil, a.categoryStore.SlugExists)
	if err != nil {
		storeError(w, r, a.errorLogs, "resolve category slug", err)
		return
	}
	cat.Slug = s

	created, err := a.categoryStore.Create(r.Context(), cat)
	if err != nil {
		storeError(w, r, a.errorLogs, "create category", err)
		return
	}
	a.listCache.InvalidateAll(r.Context())
	writeJSON(w, http.StatusCreated, created)
}

// CategoryUpdate changes a category. Moving it below itself or one of its
// descendants is rejected.
func (a *Admin) CategoryUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	var req categoryRequest
	if !bind(w, r, &req) {
		return
	}
	if req.ParentID != nil && *req.ParentID == id {
		writeFieldErrors(w, validation.Errors{"parent_id": "cannot be the category itself"})
		return
	}

	cat := &models.Category{ID: id}
	req.apply(cat)
	s, err := resolveSlug(r.Context(), req.Slug, cat.Name, &id, a.categoryStore.SlugExists)
	if err != nil {
		storeError(w, r, a.errorLogs, "resolve category slug", err)
		return
	}
	cat.Slug = s

	updated, err := a.categoryStore.Update(r.Context(), cat)
	if err != nil {
		storeError(w, r, a.errorLogs, "update category", err)
		return
	}
	if updated == nil {
		writeNotFound(w, "category")
		return
	}
	a.listCache.InvalidateAll(r.Context())
	writeJSON(w, http.StatusOK, updated)
}

// CategoryDelete removes a category. Its children move to the top level.
func (a *Admin) CategoryDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	deleted, err := a.categoryStore.Delete(r.Context(), id)
	if err != nil {
		storeError(w, r, a.errorLogs, "delete category", err)
		return
	}
	if !deleted {
		writeNotFound(w, "category")
		return
	}
	a.listCache.InvalidateAll(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

// CategoriesReorder applies a drag-and-drop reorder of the tree. The body
// is a JSON array of {id, parent_id, order}.
func (a *Admin) CategoriesReorder(w http.ResponseWriter, r *http.Request) {
	var items []store.ReorderItem
	if err := decodeJSON(w, r, &items); err != nil {
		writeError(w, http.StatusBadRequest, errBadJSON.Error())
		return
	}
	if len(items) == 0 {
		writeError(w, http.StatusUnprocessableEntity, "no categories to reorder")
		return
	}
	for _, item := range items {
		if item.Order < 0 {
			writeFieldErrors(w, validation.Errors{"order": "must be at least 0"})
			return
		}
	}

	if err := a.categoryStore.Reorder(r.Context(), items); err != nil {
		storeError(w, r, a.errorLogs, "reorder categories", err)
		return
	}
	a.listCache.InvalidateAll(r.Context())

	tree, err := a.categoryStore.Tree(r.Context(), false)
	if err != nil {
		serverError(w, r, a.errorLogs, "load category tree", err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(tree))
}

// nonNil turns a nil slice into an empty one so it encodes as [].
func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
