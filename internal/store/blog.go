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

// BlogStore handles all blog-related database operations.
type BlogStore struct {
	db *sql.DB
}

// NewBlogStore creates a new BlogStore.
func NewBlogStore(db *sql.DB) *BlogStore {
	return &BlogStore{db: db}
}

// blogColumns lists the columns selected in blog queries. The author's
// display name comes from the joined users table.
const blogColumns = `b.id, b.title, b.slug, b.summary, b.body, b.status,
	b.cover_image_url, b.cover_blurhash, b.author_id, COALESCE(u.display_name, ''),
	b.publish_at, b.published_at, b.created_at, b.updated_at`

const blogFrom = ` FROM blogs b LEFT JOIN users u ON u.id = b.author_id`

// scanBlog scans a blog row from the result set.
func scanBlog(scanner rowScanner) (*models.Blog, error) {
	var b models.Blog
	err := scanner.Scan(
		&b.ID, &b.Title, &b.Slug, &b.Summary, &b.Body, &b.Status,
		&b.CoverImageURL, &b.CoverBlurhash, &b.AuthorID, &b.AuthorName,
		&b.PublishAt, &b.PublishedAt, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	b.CategoryIDs = []uuid.UUID{}
	b.TagIDs = []uuid.UUID{}
	return &b, nil
}

func blogFilter(q query.BlogQuery) *filter {
	f := &filter{}
	if q.PublishedOnly {
		f.add("b.status = ?", string(models.BlogStatusPublished))
	} else if q.Status != "" {
		f.add("b.status = ?", string(q.Status))
	}
	if q.Search != "" {
		f.add("(b.title ILIKE ? OR b.summary ILIKE ?)", q.SearchPattern(), q.SearchPattern())
	}
	if q.CategoryID != nil {
		f.add("EXISTS (SELECT 1 FROM blog_categories bc WHERE bc.blog_id = b.id AND bc.category_id = ?)", *q.CategoryID)
	}
	if q.TagID != nil {
		f.add("EXISTS (SELECT 1 FROM blog_tags bt WHERE bt.blog_id = b.id AND bt.tag_id = ?)", *q.TagID)
	}
	if q.AuthorID != nil {
		f.add("b.author_id = ?", *q.AuthorID)
	}
	if q.CategorySlug != "" {
		f.add(`EXISTS (SELECT 1 FROM blog_categories bc JOIN categories c ON c.id = bc.category_id
			WHERE bc.blog_id = b.id AND c.slug = ?)`, q.CategorySlug)
	}
	if q.TagSlug != "" {
		f.add(`EXISTS (SELECT 1 FROM blog_tags bt JOIN tags t ON t.id = bt.tag_id
			WHERE bt.blog_id = b.id AND t.slug = ?)`, q.TagSlug)
	}
	return f
}

// List returns one page of blogs matching q and the total match count.
func (s *BlogStore) List(ctx context.Context, q query.BlogQuery) ([]models.Blog, int, error) {
	f := blogFilter(q)

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM blogs b`+f.where(), f.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count blogs: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT `+blogColumns+blogFrom+f.where()+
		` ORDER BY `+q.OrderClause()+` NULLS LAST, b.id`+
		` LIMIT `+f.next(q.PageSize)+` OFFSET `+f.next(q.Offset()), f.args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list blogs: %w", err)
	}
	defer rows.Close()

	var blogs []models.Blog
	for rows.Next() {
		b, err := scanBlog(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan blog: %w", err)
		}
		blogs = append(blogs, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list blogs: %w", err)
	}
	if err := s.attachRelations(ctx, blogs); err != nil {
		return nil, 0, err
	}
	return blogs, total, nil
}

// FindByID retrieves a blog by ID. Returns nil if not found.
func (s *BlogStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Blog, error) {
	return s.findOne(ctx, "find blog by id", `SELECT `+blogColumns+blogFrom+` WHERE b.id = $1`, id)
}

// FindBySlug retrieves a blog by slug. With publishedOnly, drafts and
// scheduled blogs are treated as not found.
func (s *BlogStore) FindBySlug(ctx context.Context, slug string, publishedOnly bool) (*models.Blog, error) {
	q := `SELECT ` + blogColumns + blogFrom + ` WHERE b.slug = $1`
	if publishedOnly {
		q += ` AND b.status = 'published'`
	}
	return s.findOne(ctx, "find blog by slug", q, slug)
}

func (s *BlogStore) findOne(ctx context.Context, op, q string, arg any) (*models.Blog, error) {
	b, err := scanBlog(s.db.QueryRowContext(ctx, q, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	blogs := []models.Blog{*b}
	if err := s.attachRelations(ctx, blogs); err != nil {
		return nil, err
	}
	return &blogs[0], nil
}

// attachRelations fills CategoryIDs and TagIDs for every blog.
func (s *BlogStore) attachRelations(ctx context.Context, blogs []models.Blog) error {
	if len(blogs) == 0 {
		return nil
	}
	ids := make([]string, len(blogs))
	index := make(map[uuid.UUID]int, len(blogs))
	for i, b := range blogs {
		ids[i] = b.ID.String()
		index[b.ID] = i
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT blog_id, category_id, 'c' FROM blog_categories WHERE blog_id = ANY($1::uuid[])
		UNION ALL
		SELECT blog_id, tag_id, 't' FROM blog_tags WHERE blog_id = ANY($1::uuid[])
		ORDER BY 3, 1, 2
	`, ids)
	if err != nil {
		return fmt.Errorf("load blog relations: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var blogID, relID uuid.UUID
		var kind string
		if err := rows.Scan(&blogID, &relID, &kind); err != nil {
			return fmt.Errorf("scan blog relation: %w", err)
		}
		i, ok := index[blogID]
		if !ok {
			continue
		}
		if kind == "c" {
			blogs[i].CategoryIDs = append(blogs[i].CategoryIDs, relID)
		} else {
			blogs[i].TagIDs = append(blogs[i].TagIDs, relID)
		}
	}
	return rows.Err()
}

// SlugExists reports whether another blog already uses slug.
func (s *BlogStore) SlugExists(ctx context.Context, slug string, excludeID *uuid.UUID) (bool, error) {
	return slugExists(ctx, s.db, "blogs", slug, excludeID)
}

// Create inserts a blog together with its category and tag links.
// Unknown category or tag IDs yield ErrInvalidReference.
func (s *BlogStore) Create(ctx context.Context, b *models.Blog) (*models.Blog, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var id uuid.UUID
	err = tx.QueryRowContext(ctx, `
		INSERT INTO blogs (title, slug, summary, body, status, cover_image_url,
			cover_blurhash, author_id, publish_at, published_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`, b.Title, b.Slug, b.Summary, b.Body, b.Status, b.CoverImageURL,
		b.CoverBlurhash, b.AuthorID, b.PublishAt, b.PublishedAt).Scan(&id)
	if err != nil {
		return nil, translate("create blog", err, ErrInvalidReference)
	}
	if err := replaceBlogLinks(ctx, tx, id, b.CategoryIDs, b.TagIDs); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit blog: %w", err)
	}
	return s.FindByID(ctx, id)
}

// Update saves all editable fields of a blog and replaces its links.
// The author is not changed. Returns nil if the blog does not exist.
func (s *BlogStore) Update(ctx context.Context, b *models.Blog) (*models.Blog, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE blogs SET
			title = $1, slug = $2, summary = $3, body = $4, status = $5,
			cover_image_url = $6, cover_blurhash = $7, publish_at = $8,
			published_at = $9, updated_at = NOW()
		WHERE id = $10
	`, b.Title, b.Slug, b.Summary, b.Body, b.Status, b.CoverImageURL,
		b.CoverBlurhash, b.PublishAt, b.PublishedAt, b.ID)
	if err != nil {
		return nil, translate("update blog", err, ErrInvalidReference)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, nil
	}
	if err := replaceBlogLinks(ctx, tx, b.ID, b.CategoryIDs, b.TagIDs); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit blog: %w", err)
	}
	return s.FindByID(ctx, b.ID)
}

func replaceBlogLinks(ctx context.Context, tx *sql.Tx, blogID uuid.UUID, categoryIDs, tagIDs []uuid.UUID) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM blog_categories WHERE blog_id = $1`, blogID); err != nil {
		return fmt.Errorf("clear blog categories: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM blog_tags WHERE blog_id = $1`, blogID); err != nil {
		return fmt.Errorf("clear blog tags: %w", err)
	}
	for _, id := range dedupe(categoryIDs) {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO blog_categories (blog_id, category_id) VALUES ($1, $2)`, blogID, id); err != nil {
			return translate("link category "+id.String(), err, ErrInvalidReference)
		}
	}
	for _, id := range dedupe(tagIDs) {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO blog_tags (blog_id, tag_id) VALUES ($1, $2)`, blogID, id); err != nil {
			return translate("link tag "+id.String(), err, ErrInvalidReference)
		}
	}
	return nil
}

func dedupe(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]bool, len(ids))
	out := ids[:0:0]
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

// SetStatus changes only the publishing state. Publishing keeps an
// existing published_at; unpublishing clears it along with publish_at.
// Returns nil if the blog does not exist.
func (s *BlogStore) SetStatus(ctx context.Context, id uuid.UUID, status models.BlogStatus, now time.Time) (*models.Blog, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE blogs SET
			status = $1,
			published_at = CASE WHEN $1 = 'published' THEN COALESCE(published_at, $2) ELSE NULL END,
			publish_at = NULL,
			updated_at = NOW()
		WHERE id = $3
	`, string(status), now, id)
	if err != nil {
		return nil, fmt.Errorf("set blog status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, nil
	}
	return s.FindByID(ctx, id)
}

// PublishDue publishes every scheduled blog whose publish_at is at or
// before now, stamping published_at with the scheduled time. It returns
// the blogs that changed.
func (s *BlogStore) PublishDue(ctx context.Context, now time.Time) ([]models.Blog, error) {
	rows, err := s.db.QueryContext(ctx, `
		UPDATE blogs SET
			status = 'published',
			published_at = publish_at,
			updated_at = NOW()
		WHERE status = 'scheduled' AND publish_at <= $1
		RETURNING id
	`, now)
	if err != nil {
		return nil, fmt.Errorf("publish due blogs: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan published blog: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("publish due blogs: %w", err)
	}

	blogs := make([]models.Blog, 0, len(ids))
	for _, id := range ids {
		b, err := s.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if b != nil {
			blogs = append(blogs, *b)
		}
	}
	return blogs, nil
}

// Delete removes a blog. Category and tag links cascade. Reports whether
// a row was deleted.
func (s *BlogStore) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM blogs WHERE id = $1`, id)
	if err != nil {
		return false, translate("delete blog", err, ErrInUse)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete blog: %w", err)
	}
	return n > 0, nil
}
