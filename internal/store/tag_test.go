// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"errors"
	"strings"
	"testing"

	"blogdesk/internal/models"
	"blogdesk/internal/query"
)

func TestTagStoreCRUD(t *testing.T) {
	db := testDB(t)
	s := NewTagStore(db)
	ctx := context.Background()

	name := uniqueSlug("Golang")
	tag, err := s.Create(ctx, &models.Tag{Name: name, Slug: strings.ToLower(name)})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	t.Cleanup(func() { cleanRows(db, "tags", tag.ID) })

	// Names are unique regardless of case.
	_, err = s.Create(ctx, &models.Tag{Name: strings.ToUpper(name), Slug: uniqueSlug("other")})
	if !errors.Is(err, ErrConflict) {
		t.Errorf("case-insensitive duplicate err = %v, want ErrConflict", err)
	}

	hits, err := s.Search(ctx, name[:6], 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	found := false
	for _, h := range hits {
		if h.ID == tag.ID {
			found = true
		}
	}
	if !found {
		t.Errorf("Search(%q) did not return the tag", name[:6])
	}

	tag.Name = name + "-renamed"
	updated, err := s.Update(ctx, tag)
	if err != nil || updated.Name != tag.Name {
		t.Fatalf("Update = %v, %v", updated, err)
	}

	items, total, err := s.List(ctx, query.Params{Page: 1, PageSize: 5, Search: tag.Name, OrderBy: "t.name", OrderDir: "asc"})
	if err != nil || total != 1 || len(items) != 1 {
		t.Errorf("List = %v, %d, %v", items, total, err)
	}

	ok, err := s.Delete(ctx, tag.ID)
	if err != nil || !ok {
		t.Fatalf("Delete = %v, %v", ok, err)
	}
	gone, _ := s.FindByID(ctx, tag.ID)
	if gone != nil {
		t.Error("tag still present after delete")
	}
}
