// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"blogdesk/internal/models"
	"blogdesk/internal/query"
)

// ErrCycle is returned when a category would become its own ancestor.
var ErrCycle = errors.New("store: category cannot be its own ancestor")

// CategoryStore manages categories in the database.
type CategoryStore struct {
	db *sql.DB
}

// NewCategoryStore returns a new CategoryStore.
func NewCategoryStore(db *sql.DB) *CategoryStore {
	return &CategoryStore{db: db}
}

const categoryColumns = `c.id, c.name, c.slug, c.description, c.parent_id, c.sort_order, c.created_at, c.updated_at`

// scanCategory scans a row into a Category struct.
func scanCategory(scanner rowScanner) (*models.Category, error) {
	var c models.Category
	err := scanner.Scan(
		&c.ID, &c.Name, &c.Slug, &c.Description,
		&c.ParentID, &c.SortOrder, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// scanCategoryCount scans a category row followed by its blog count.
func scanCategoryCount(scanner rowScanner) (*models.Category, error) {
	var c models.Category
	err := scanner.Scan(
		&c.ID, &c.Name, &c.Slug, &c.Description,
		&c.ParentID, &c.SortOrder, &c.CreatedAt, &c.UpdatedAt,
		&c.BlogCount,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// blogCountJoin counts linked blogs, optionally only published ones.
func blogCountJoin(publishedOnly bool) string {
	if publishedOnly {
		return ` LEFT JOIN blog_categories bc ON bc.category_id = c.id
			LEFT JOIN blogs b ON b.id = bc.blog_id AND b.status = 'published'`
	}
	return ` LEFT JOIN blog_categories bc ON bc.category_id = c.id
			LEFT JOIN blogs b ON b.id = bc.blog_id`
}

// All returns every category ordered by sort_order, with blog counts.
func (s *CategoryStore) All(ctx context.Context, publishedOnly bool) ([]models.Category, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+categoryColumns+`, COUNT(b.id) AS blog_count
		FROM categories c`+blogCountJoin(publishedOnly)+`
		GROUP BY c.id
		ORDER BY c.sort_order, c.name
	`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var items []models.Category
	for rows.Next() {
		c, err := scanCategoryCount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		items = append(items, *c)
	}
	return items, rows.Err()
}

// List returns one page of categories matching q and the total count.
func (s *CategoryStore) List(ctx context.Context, q query.Params) ([]models.Category, int, error) {
	f := &filter{}
	if q.Search != "" {
		f.add("(c.name ILIKE ? OR c.slug ILIKE ?)", q.SearchPattern(), q.SearchPattern())
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM categories c`+f.where(), f.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count categories: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+categoryColumns+`, COUNT(b.id) AS blog_count
		FROM categories c`+blogCountJoin(false)+f.where()+`
		GROUP BY c.id
		ORDER BY `+q.OrderClause()+`, c.id
		LIMIT `+f.next(q.PageSize)+` OFFSET `+f.next(q.Offset()), f.args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var items []models.Category
	for rows.Next() {
		c, err := scanCategoryCount(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan category: %w", err)
		}
		items = append(items, *c)
	}
	return items, total, rows.Err()
}

// Tree returns categories as a nested tree structure.
func (s *CategoryStore) Tree(ctx context.Context, publishedOnly bool) ([]models.Category, error) {
	flat, err := s.All(ctx, publishedOnly)
	if err != nil {
		return nil, err
	}
	return buildTree(flat, nil, 0), nil
}

// buildTree recursively builds a tree from a flat list.
func buildTree(flat []models.Category, parentID *uuid.UUID, depth int) []models.Category {
	var result []models.Category
	for _, c := range flat {
		if ptrEqual(c.ParentID, parentID) {
			c.Depth = depth
			c.Children = buildTree(flat, &c.ID, depth+1)
			result = append(result, c)
		}
	}
	return result
}

// ptrEqual compares two *uuid.UUID for equality (both nil or same value).
func ptrEqual(a, b *uuid.UUID) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	return *a == *b
}

// FlatTree returns categories as a flat list ordered for display,
// with Depth set for indentation. Used by the category dropdown.
func (s *CategoryStore) FlatTree(ctx context.Context) ([]models.Category, error) {
	tree, err := s.Tree(ctx, false)
	if err != nil {
		return nil, err
	}
	var result []models.Category
	flattenTree(tree, &result)
	return result, nil
}

// flattenTree walks a category tree depth-first, appending to result.
func flattenTree(cats []models.Category, result *[]models.Category) {
	for _, c := range cats {
		children := c.Children
		c.Children = nil
		*result = append(*result, c)
		if len(children) > 0 {
			flattenTree(children, result)
		}
	}
}

// FindByID retrieves a category by ID. Returns nil if not found.
func (s *CategoryStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+categoryColumns+`, COUNT(b.id) AS blog_count
		FROM categories c`+blogCountJoin(false)+`
		WHERE c.id = $1
		GROUP BY c.id`, id)
	c, err := scanCategoryCount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find category by id: %w", err)
	}
	return c, nil
}

// SlugExists reports whether another category already uses slug.
func (s *CategoryStore) SlugExists(ctx context.Context, slug string, excludeID *uuid.UUID) (bool, error) {
	return slugExists(ctx, s.db, "categories", slug, excludeID)
}

// Create inserts a new category and returns it. When SortOrder is zero the
// category is appended after its siblings.
func (s *CategoryStore) Create(ctx context.Context, c *models.Category) (*models.Category, error) {
	if c.SortOrder == 0 {
		next, err := s.NextSortOrder(ctx, c.ParentID)
		if err != nil {
			return nil, err
		}
		c.SortOrder = next
	}
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO categories AS c (name, slug, description, parent_id, sort_order)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+categoryColumns,
		c.Name, c.Slug, c.Description, c.ParentID, c.SortOrder,
	)
	result, err := scanCategory(row)
	if err != nil {
		return nil, translate("create category", err, ErrInvalidReference)
	}
	return result, nil
}

// Update modifies an existing category. Returns nil if it does not exist,
// ErrCycle if the new parent is the category itself or one of its
// descendants.
func (s *CategoryStore) Update(ctx context.Context, c *models.Category) (*models.Category, error) {
	if c.ParentID != nil {
		cyclic, err := s.isDescendantOrSelf(ctx, *c.ParentID, c.ID)
		if err != nil {
			return nil, err
		}
		if cyclic {
			return nil, ErrCycle
		}
	}

	row := s.db.QueryRowContext(ctx, `
		UPDATE categories AS c SET
			name = $1, slug = $2, description = $3, parent_id = $4,
			sort_order = $5, updated_at = NOW()
		WHERE c.id = $6
		RETURNING `+categoryColumns,
		c.Name, c.Slug, c.Description, c.ParentID, c.SortOrder, c.ID)
	result, err := scanCategory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, translate("update category", err, ErrInvalidReference)
	}
	return result, nil
}

// isDescendantOrSelf reports whether candidate is root or lies below it.
func (s *CategoryStore) isDescendantOrSelf(ctx context.Context, candidate, root uuid.UUID) (bool, error) {
	if candidate == root {
		return true, nil
	}
	var found bool
	err := s.db.QueryRowContext(ctx, `
		WITH RECURSIVE ancestors AS (
			SELECT id, parent_id FROM categories WHERE id = $1
			UNION ALL
			SELECT p.id, p.parent_id FROM categories p
			JOIN ancestors a ON p.id = a.parent_id
		)
		SELECT EXISTS (SELECT 1 FROM ancestors WHERE id = $2)
	`, candidate, root).Scan(&found)
	if err != nil {
		return false, fmt.Errorf("check category ancestry: %w", err)
	}
	return found, nil
}

// Delete removes a category by ID. Children are re-parented (ON DELETE SET
// NULL) and blog links cascade. Reports whether a row was deleted.
func (s *CategoryStore) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		return false, translate("delete category", err, ErrInUse)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete category: %w", err)
	}
	return n > 0, nil
}

// ReorderItem represents a single item in a reorder request.
type ReorderItem struct {
	ID       uuid.UUID  `json:"id"`
	ParentID *uuid.UUID `json:"parent_id"`
	Order    int        `json:"order"`
}

// Reorder updates sort_order and parent_id for multiple categories in a
// transaction. The resulting hierarchy is checked for cycles first.
func (s *CategoryStore) Reorder(ctx context.Context, items []ReorderItem) error {
	current, err := s.All(ctx, false)
	if err != nil {
		return err
	}
	parents := make(map[uuid.UUID]*uuid.UUID, len(current))
	for _, c := range current {
		parents[c.ID] = c.ParentID
	}
	for _, item := range items {
		if _, ok := parents[item.ID]; !ok {
			return fmt.Errorf("reorder category %s: %w", item.ID, ErrInvalidReference)
		}
		if item.ParentID != nil {
			if _, ok := parents[*item.ParentID]; !ok {
				return fmt.Errorf("reorder category %s: %w", item.ID, ErrInvalidReference)
			}
		}
		parents[item.ID] = item.ParentID
	}
	if hasCycle(parents) {
		return ErrCycle
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		UPDATE categories SET parent_id = $1, sort_order = $2, updated_at = $3
		WHERE id = $4`)
	if err != nil {
		return fmt.Errorf("prepare reorder: %w", err)
	}
	defer stmt.Close()

	now := time.Now()
	for _, item := range items {
		if _, err := stmt.ExecContext(ctx, item.ParentID, item.Order, now, item.ID); err != nil {
			return fmt.Errorf("reorder category %s: %w", item.ID, err)
		}
	}

	return tx.Commit()
}

// hasCycle reports whether following parent links from any node returns
// to a node already on the current path.
func hasCycle(parents map[uuid.UUID]*uuid.UUID) bool {
	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[uuid.UUID]int, len(parents))
	for start := range parents {
		var path []uuid.UUID
		id := start
		for {
			switch state[id] {
			case visiting:
				return true
			case done:
			default:
				state[id] = visiting
				path = append(path, id)
				if p := parents[id]; p != nil {
					id = *p
					continue
				}
			}
			break
		}
		for _, n := range path {
			state[n] = done
		}
	}
	return false
}

// NextSortOrder returns the next sort_order value for a given parent.
func (s *CategoryStore) NextSortOrder(ctx context.Context, parentID *uuid.UUID) (int, error) {
	var maxOrder sql.NullInt64
	var err error
	if parentID == nil {
		err = s.db.QueryRowContext(ctx, `SELECT MAX(sort_order) FROM categories WHERE parent_id IS NULL`).Scan(&maxOrder)
	} else {
		err = s.db.QueryRowContext(ctx, `SELECT MAX(sort_order) FROM categories WHERE parent_id = $1`, *parentID).Scan(&maxOrder)
	}
	if err != nil {
		return 0, fmt.Errorf("next sort order: %w", err)
	}
	if maxOrder.Valid {
		return int(maxOrder.Int64) + 1, nil
	}
	return 0, nil
}

// slugExists is shared by the stores whose tables carry a unique slug.
func slugExists(ctx context.Context, db *sql.DB, table, slug string, excludeID *uuid.UUID) (bool, error) {
	var exists bool
	var err error
	if excludeID == nil {
		err = db.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM `+table+` WHERE slug = $1)`, slug).Scan(&exists)
	} else {
		err = db.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM `+table+` WHERE slug = $1 AND id <> $2)`, slug, *excludeID).Scan(&exists)
	}
	if err != nil {
		return false, fmt.Errorf("check %s slug: %w", table, err)
	}
	return exists, nil
}
