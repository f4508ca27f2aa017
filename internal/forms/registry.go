// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package forms

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"blogdesk/internal/models"
	"blogdesk/internal/slug"
	"blogdesk/internal/validation"
)

// ErrUnknownEntity is returned by Build for entities without a form.
var ErrUnknownEntity = errors.New("forms: unknown entity")

// slugPattern is the client-side regex matching slug.Valid.
const slugPattern = `^[a-z0-9]+(?:-[a-z0-9]+)*$`

// CategorySource lists categories in display order with depth set.
type CategorySource interface {
	FlatTree(ctx context.Context) ([]models.Category, error)
}

// TagSource lists all tags.
type TagSource interface {
	All(ctx context.Context, publishedOnly bool) ([]models.Tag, error)
}

// RoleSource lists all roles.
type RoleSource interface {
	List(ctx context.Context) ([]models.Role, error)
}

// Registry builds entity forms, loading option lists from the stores.
type Registry struct {
	categories CategorySource
	tags       TagSource
	roles      RoleSource
}

// NewRegistry creates a Registry.
func NewRegistry(categories CategorySource, tags TagSource, roles RoleSource) *Registry {
	return &Registry{categories: categories, tags: tags, roles: roles}
}

// Entities lists the entity names Build accepts.
func Entities() []string {
	return []string{"blog", "category", "tag", "user", "role"}
}

// Build returns the form for entity. editing selects the edit variant,
// which differs from the create form for users (password optional).
func (r *Registry) Build(ctx context.Context, entity string, editing bool) (*Form, error) {
	switch entity {
	case "blog":
		return r.blogForm(ctx)
	case "category":
		return r.categoryForm(ctx)
	case "tag":
		return tagForm(), nil
	case "user":
		return r.userForm(ctx, editing)
	case "role":
		return roleForm(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEntity, entity)
	}
}

func (r *Registry) blogForm(ctx context.Context) (*Form, error) {
	catOpts, err := r.categoryOptions(ctx)
	if err != nil {
		return nil, err
	}
	tagOpts, err := r.tagOptions(ctx)
	if err != nil {
		return nil, err
	}

	return New("blog",
		Textbox(Control{Key: "title", Label: "Title", Required: true, MinLength: 1, MaxLength: 300, Order: 1}),
		Textbox(Control{Key: "slug", Label: "Slug", MaxLength: slug.MaxLength, Pattern: slugPattern, Order: 2}),
		Textarea(Control{Key: "summary", Label: "Summary", MaxLength: 1000, Order: 3}),
		Textarea(Control{Key: "body", Label: "Body (Markdown)", MaxLength: 100_000, Order: 4}),
		Image(Control{Key: "cover_image_url", Label: "Cover image", Order: 5}),
		Dropdown(Control{Key: "status", Label: "Status", Required: true, Value: string(models.BlogStatusDraft), Order: 6,
			Options: []Option{
				{Key: string(models.BlogStatusDraft), Value: "Draft"},
				{Key: string(models.BlogStatusScheduled), Value: "Scheduled"},
				{Key: string(models.BlogStatusPublished), Value: "Published"},
			}}),
		Textbox(Control{Key: "publish_at", Label: "Publish at", Type: "datetime-local", Order: 7}),
		MultiSelect(Control{Key: "category_ids", Label: "Categories", Options: catOpts, Order: 8}),
		Chips(Control{Key: "tag_ids", Label: "Tags", Options: tagOpts, Order: 9}),
	), nil
}

func (r *Registry) categoryForm(ctx context.Context) (*Form, error) {
	catOpts, err := r.categoryOptions(ctx)
	if err != nil {
		return nil, err
	}
	return New("category",
		Textbox(Control{Key: "name", Label: "Name", Required: true, MinLength: 1, MaxLength: 100, Order: 1}),
		Textbox(Control{Key: "slug", Label: "Slug", MaxLength: slug.MaxLength, Pattern: slugPattern, Order: 2}),
		Textarea(Control{Key: "description", Label: "Description", MaxLength: 500, Order: 3}),
		Dropdown(Control{Key: "parent_id", Label: "Parent", Options: append([]Option{{Key: "", Value: "(none)"}}, catOpts...), Order: 4}),
		Textbox(Control{Key: "sort_order", Label: "Sort order", Type: "number", Value: 0, Order: 5}),
	), nil
}

func tagForm() *Form {
	return New("tag",
		Textbox(Control{Key: "name", Label: "Name", Required: true, MinLength: 1, MaxLength: 50, Order: 1}),
		Textbox(Control{Key: "slug", Label: "Slug", MaxLength: slug.MaxLength, Pattern: slugPattern, Order: 2}),
	)
}

func (r *Registry) userForm(ctx context.Context, editing bool) (*Form, error) {
	roles, err := r.roles.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("load role options: %w", err)
	}
	roleOpts := make([]Option, 0, len(roles))
	for _, role := range roles {
		roleOpts = append(roleOpts, Option{Key: role.ID.String(), Value: role.Name})
	}

	password := Textbox(Control{
		Key: "password", Label: "Password", Type: "password",
		MinLength: validation.MinPasswordLen, MaxLength: validation.MaxPasswordLen, Order: 3,
	})
	password.Required = !editing
	if editing {
		password.Label = "New password (leave blank to keep)"
	}

	return New("user",
		Textbox(Control{Key: "email", Label: "Email", Type: "email", Required: true, MaxLength: 254, Order: 1}),
		Textbox(Control{Key: "display_name", Label: "Display name", Required: true, MinLength: 1, MaxLength: 100, Order: 2}),
		password,
		Checkbox(Control{Key: "is_active", Label: "Active", Value: true, Order: 4}),
		MultiSelect(Control{Key: "role_ids", Label: "Roles", Options: roleOpts, Order: 5}),
	), nil
}

func roleForm() *Form {
	return New("role",
		Textbox(Control{Key: "name", Label: "Name", Required: true, MinLength: 2, MaxLength: 50, Order: 1}),
		Textarea(Control{Key: "description", Label: "Description", MaxLength: 300, Order: 2}),
	)
}

// categoryOptions indents nested categories by depth.
func (r *Registry) categoryOptions(ctx context.Context) ([]Option, error) {
	cats, err := r.categories.FlatTree(ctx)
	if err != nil {
		return nil, fmt.Errorf("load category options: %w", err)
	}
	opts := make([]Option, 0, len(cats))
	for _, c := range cats {
		opts = append(opts, Option{
			Key:   c.ID.String(),
			Value: strings.Repeat("-- ", c.Depth) + c.Name,
		})
	}
	return opts, nil
}

func (r *Registry) tagOptions(ctx context.Context) ([]Option, error) {
	tags, err := r.tags.All(ctx, false)
	if err != nil {
		return nil, fmt.Errorf("load tag options: %w", err)
	}
	opts := make([]Option, 0, len(tags))
	for _, t := range tags {
		opts = append(opts, Option{Key: t.ID.String(), Value: t.Name})
	}
	return opts, nil
}
