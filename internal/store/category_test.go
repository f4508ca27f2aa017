// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"blogdesk/internal/models"
	"blogdesk/internal/query"
)

func TestBuildTreeAndFlatten(t *testing.T) {
	root := uuid.New()
	child := uuid.New()
	grandchild := uuid.New()
	other := uuid.New()

	flat := []models.Category{
		{ID: root, Name: "Root"},
		{ID: child, Name: "Child", ParentID: &root},
		{ID: grandchild, Name: "Grandchild", ParentID: &child},
		{ID: other, Name: "Other"},
	}

	tree := buildTree(flat, nil, 0)
	if len(tree) != 2 {
		t.Fatalf("roots = %d, want 2", len(tree))
	}
	if len(tree[0].Children) != 1 || len(tree[0].Children[0].Children) != 1 {
		t.Fatalf("nesting wrong: %+v", tree[0])
	}
	if d := tree[0].Children[0].Children[0].Depth; d != 2 {
		t.Errorf("grandchild depth = %d, want 2", d)
	}

	var out []models.Category
	flattenTree(tree, &out)
	wantOrder := []uuid.UUID{root, child, grandchild, other}
	if len(out) != len(wantOrder) {
		t.Fatalf("flatten len = %d, want %d", len(out), len(wantOrder))
	}
	for i, id := range wantOrder {
		if out[i].ID != id {
			t.Errorf("flatten[%d] = %s, want %s", i, out[i].Name, id)
		}
		if out[i].Children != nil {
			t.Errorf("flatten[%d] kept children", i)
		}
	}
}

func TestHasCycle(t *testing.T) {
	a, b, c := uuid.New(), uuid.New(), uuid.New()

	tests := []struct {
		name    string
		parents map[uuid.UUID]*uuid.UUID
		want    bool
	}{
		{name: "empty", parents: map[uuid.UUID]*uuid.UUID{}, want: false},
		{name: "flat", parents: map[uuid.UUID]*uuid.UUID{a: nil, b: nil}, want: false},
		{name: "chain", parents: map[uuid.UUID]*uuid.UUID{a: nil, b: &a, c: &b}, want: false},
		{name: "shared parent", parents: map[uuid.UUID]*uuid.UUID{a: nil, b: &a, c: &a}, want: false},
		{name: "self parent", parents: map[uuid.UUID]*uuid.UUID{a: &a}, want: true},
		{name: "two cycle", parents: map[uuid.UUID]*uuid.UUID{a: &b, b: &a}, want: true},
		{name: "three cycle", parents: map[uuid.UUID]*uuid.UUID{a: &c, b: &a, c: &b}, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := hasCycle(tt.parents); got != tt.want {
				t.Errorf("hasCycle() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCategoryStoreCRUD(t *testing.T) {
	db := testDB(t)
	s := NewCategoryStore(db)
	ctx := context.Background()

	parent, err := s.Create(ctx, &models.Category{Name: "Parent", Slug: uniqueSlug("parent")})
	if err != nil {
		t.Fatalf("Create parent: %v", err)
	}
	child, err := s.Create(ctx, &models.Category{Name: "Child", Slug: uniqueSlug("child"), ParentID: &parent.ID})
	if err != nil {
		t.Fatalf("Create child: %v", err)
	}
	t.Cleanup(func() { cleanRows(db, "categories", child.ID, parent.ID) })

	found, err := s.FindByID(ctx, child.ID)
	if err != nil || found == nil {
		t.Fatalf("FindByID = %v, %v", found, err)
	}
	if found.ParentID == nil || *found.ParentID != parent.ID {
		t.Errorf("parent_id = %v, want %s", found.ParentID, parent.ID)
	}

	// Duplicate slug.
	if _, err := s.Create(ctx, &models.Category{Name: "Dup", Slug: parent.Slug}); !errors.Is(err, ErrConflict) {
		t.Errorf("duplicate slug err = %v, want ErrConflict", err)
	}

	// Unknown parent.
	ghost := uuid.New()
	if _, err := s.Create(ctx, &models.Category{Name: "Orphan", Slug: uniqueSlug("orphan"), ParentID: &ghost}); !errors.Is(err, ErrInvalidReference) {
		t.Errorf("unknown parent err = %v, want ErrInvalidReference", err)
	}

	// Self parent and descendant cycles.
	parent.ParentID = &parent.ID
	if _, err := s.Update(ctx, parent); !errors.Is(err, ErrCycle) {
		t.Errorf("self parent err = %v, want ErrCycle", err)
	}
	parent.ParentID = &child.ID
	if _, err := s.Update(ctx, parent); !errors.Is(err, ErrCycle) {
		t.Errorf("descendant parent err = %v, want ErrCycle", err)
	}

	parent.ParentID = nil
	parent.Name = "Renamed"
	updated, err := s.Update(ctx, parent)
	if err != nil || updated.Name != "Renamed" {
		t.Errorf("Update = %v, %v", updated, err)
	}

	exists, err := s.SlugExists(ctx, parent.Slug, nil)
	if err != nil || !exists {
		t.Errorf("SlugExists = %v, %v", exists, err)
	}
	exists, _ = s.SlugExists(ctx, parent.Slug, &parent.ID)
	if exists {
		t.Error("SlugExists should ignore the excluded ID")
	}

	// Deleting the parent re-parents the child to the root.
	ok, err := s.Delete(ctx, parent.ID)
	if err != nil || !ok {
		t.Fatalf("Delete = %v, %v", ok, err)
	}
	found, _ = s.FindByID(ctx, child.ID)
	if found == nil || found.ParentID != nil {
		t.Errorf("child after parent delete: %+v", found)
	}
}

func TestCategoryStoreReorder(t *testing.T) {
	db := testDB(t)
	s := NewCategoryStore(db)
	ctx := context.Background()

	a, _ := s.Create(ctx, &models.Category{Name: "A", Slug: uniqueSlug("a")})
	b, _ := s.Create(ctx, &models.Category{Name: "B", Slug: uniqueSlug("b")})
	if a == nil || b == nil {
		t.Fatal("create failed")
	}
	t.Cleanup(func() { cleanRows(db, "categories", a.ID, b.ID) })

	if err := s.Reorder(ctx, []ReorderItem{{ID: b.ID, ParentID: &a.ID, Order: 3}}); err != nil {
		t.Fatalf("Reorder: %v", err)
	}
	got, _ := s.FindByID(ctx, b.ID)
	if got.ParentID == nil || *got.ParentID != a.ID || got.SortOrder != 3 {
		t.Errorf("after reorder: %+v", got)
	}

	err := s.Reorder(ctx, []ReorderItem{{ID: a.ID, ParentID: &b.ID}})
	if !errors.Is(err, ErrCycle) {
		t.Errorf("cyclic reorder err = %v, want ErrCycle", err)
	}

	err = s.Reorder(ctx, []ReorderItem{{ID: uuid.New()}})
	if !errors.Is(err, ErrInvalidReference) {
		t.Errorf("unknown id err = %v, want ErrInvalidReference", err)
	}
}

func TestCategoryStoreList(t *testing.T) {
	db := testDB(t)
	s := NewCategoryStore(db)
	ctx := context.Background()

	marker := uniqueSlug("listcat")
	c, err := s.Create(ctx, &models.Category{Name: marker, Slug: marker})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	t.Cleanup(func() { cleanRows(db, "categories", c.ID) })

	items, total, err := s.List(ctx, query.Params{Page: 1, PageSize: 10, Search: marker, OrderBy: "c.name", OrderDir: "asc"})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 1 || len(items) != 1 || items[0].ID != c.ID {
		t.Errorf("List: total=%d items=%v", total, items)
	}
}
