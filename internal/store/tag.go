// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"blogdesk/internal/models"
	"blogdesk/internal/query"
)

// TagStore manages tags.
type TagStore struct {
	db *sql.DB
}

// NewTagStore returns a new TagStore.
func NewTagStore(db *sql.DB) *TagStore {
	return &TagStore{db: db}
}

const tagColumns = `t.id, t.name, t.slug, t.created_at, t.updated_at`

func scanTag(scanner rowScanner, withCount bool) (*models.Tag, error) {
	var t models.Tag
	dest := []any{&t.ID, &t.Name, &t.Slug, &t.CreatedAt, &t.UpdatedAt}
	if withCount {
		dest = append(dest, &t.BlogCount)
	}
	if err := scanner.Scan(dest...); err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *TagStore) collect(rows *sql.Rows) ([]models.Tag, error) {
	defer rows.Close()
	var tags []models.Tag
	for rows.Next() {
		t, err := scanTag(rows, true)
		if err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		tags = append(tags, *t)
	}
	return tags, rows.Err()
}

// List returns one page of tags matching q and the total count.
func (s *TagStore) List(ctx context.Context, q query.Params) ([]models.Tag, int, error) {
	f := &filter{}
	if q.Search != "" {
		f.add("t.name ILIKE ?", q.SearchPattern())
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tags t`+f.where(), f.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count tags: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+tagColumns+`, COUNT(bt.blog_id) AS blog_count
		FROM tags t
		LEFT JOIN blog_tags bt ON bt.tag_id = t.id`+f.where()+`
		GROUP BY t.id
		ORDER BY `+q.OrderClause()+`, t.id
		LIMIT `+f.next(q.PageSize)+` OFFSET `+f.next(q.Offset()), f.args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list tags: %w", err)
	}
	tags, err := s.collect(rows)
	if err != nil {
		return nil, 0, err
	}
	return tags, total, nil
}

// All returns every tag ordered by name. When publishedOnly is set the
// counts include only published blogs and unused tags are omitted.
func (s *TagStore) All(ctx context.Context, publishedOnly bool) ([]models.Tag, error) {
	join := `LEFT JOIN blog_tags bt ON bt.tag_id = t.id
		LEFT JOIN blogs b ON b.id = bt.blog_id`
	having := ""
	if publishedOnly {
		join += ` AND b.status = 'published'`
		having = ` HAVING COUNT(b.id) > 0`
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+tagColumns+`, COUNT(b.id) AS blog_count
		FROM tags t `+join+`
		GROUP BY t.id`+having+`
		ORDER BY t.name`)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	return s.collect(rows)
}

// Search returns up to limit tags whose name starts with prefix, for the
// chip autocomplete.
func (s *TagStore) Search(ctx context.Context, prefix string, limit int) ([]models.Tag, error) {
	pattern := query.Params{Search: prefix}.SearchPattern()
	// Anchor at the start: drop the leading wildcard.
	pattern = pattern[1:]
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+tagColumns+`, 0 AS blog_count
		FROM tags t
		WHERE t.name ILIKE $1
		ORDER BY LOWER(t.name)
		LIMIT $2`, pattern, limit)
	if err != nil {
		return nil, fmt.Errorf("search tags: %w", err)
	}
	return s.collect(rows)
}

// FindByID retrieves a tag by ID. Returns nil if not found.
func (s *TagStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Tag, error) {
	t, err := scanTag(s.db.QueryRowContext(ctx, `
		SELECT `+tagColumns+`, COUNT(bt.blog_id)
		FROM tags t
		LEFT JOIN blog_tags bt ON bt.tag_id = t.id
		WHERE t.id = $1
		GROUP BY t.id`, id), true)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find tag by id: %w", err)
	}
	return t, nil
}

// SlugExists reports whether another tag already uses slug.
func (s *TagStore) SlugExists(ctx context.Context, slug string, excludeID *uuid.UUID) (bool, error) {
	return slugExists(ctx, s.db, "tags", slug, excludeID)
}

// Create inserts a tag. Returns ErrConflict when the name (case-insensitive)
// or slug is taken.
func (s *TagStore) Create(ctx context.Context, t *models.Tag) (*models.Tag, error) {
	created, err := scanTag(s.db.QueryRowContext(ctx, `
		INSERT INTO tags AS t (name, slug) VALUES ($1, $2)
		RETURNING `+tagColumns, t.Name, t.Slug), false)
	if err != nil {
		return nil, translate("create tag", err, ErrInvalidReference)
	}
	return created, nil
}

// Update renames a tag. Returns nil if it does not exist.
func (s *TagStore) Update(ctx context.Context, t *models.Tag) (*models.Tag, error) {
	updated, err := scanTag(s.db.QueryRowContext(ctx, `
		UPDATE tags AS t SET name = $1, slug = $2, updated_at = NOW()
		WHERE t.id = $3
		RETURNING `+tagColumns, t.Name, t.Slug, t.ID), false)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, translate("update tag", err, ErrInvalidReference)
	}
	return updated, nil
}

// Delete removes a tag. Blog links cascade. Reports whether a row was deleted.
func (s *TagStore) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tags WHERE id = $1`, id)
	if err != nil {
		return false, translate("delete tag", err, ErrInUse)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete tag: %w", err)
	}
	return n > 0, nil
}
