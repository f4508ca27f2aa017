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
)

// RoleStore manages roles.
type RoleStore struct {
	db *sql.DB
}

// NewRoleStore returns a new RoleStore.
func NewRoleStore(db *sql.DB) *RoleStore {
	return &RoleStore{db: db}
}

const roleColumns = `id, name, description, created_at, updated_at`

func scanRole(scanner rowScanner) (*models.Role, error) {
	var r models.Role
	if err := scanner.Scan(&r.ID, &r.Name, &r.Description, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	return &r, nil
}

// List returns all roles ordered by name, with the number of users in each.
func (s *RoleStore) List(ctx context.Context) ([]models.Role, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.id, r.name, r.description, r.created_at, r.updated_at,
		       COUNT(ur.user_id) AS user_count
		FROM roles r
		LEFT JOIN user_roles ur ON ur.role_id = r.id
		GROUP BY r.id
		ORDER BY r.name
	`)
	if err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}
	defer rows.Close()

	var roles []models.Role
	for rows.Next() {
		var r models.Role
		if err := rows.Scan(&r.ID, &r.Name, &r.Description, &r.CreatedAt, &r.UpdatedAt, &r.UserCount); err != nil {
			return nil, fmt.Errorf("scan role: %w", err)
		}
		roles = append(roles, r)
	}
	return roles, rows.Err()
}

// FindByID retrieves a role by ID. Returns nil if not found.
func (s *RoleStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Role, error) {
	r, err := scanRole(s.db.QueryRowContext(ctx, `SELECT `+roleColumns+` FROM roles WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find role by id: %w", err)
	}
	return r, nil
}

// FindByName retrieves a role by name. Returns nil if not found.
func (s *RoleStore) FindByName(ctx context.Context, name string) (*models.Role, error) {
	r, err := scanRole(s.db.QueryRowContext(ctx, `SELECT `+roleColumns+` FROM roles WHERE name = $1`, name))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find role by name: %w", err)
	}
	return r, nil
}

// Create inserts a role. Returns ErrConflict if the name is taken.
func (s *RoleStore) Create(ctx context.Context, r *models.Role) (*models.Role, error) {
	created, err := scanRole(s.db.QueryRowContext(ctx, `
		INSERT INTO roles (name, description) VALUES ($1, $2)
		RETURNING `+roleColumns, r.Name, r.Description))
	if err != nil {
		return nil, translate("create role", err, ErrInvalidReference)
	}
	return created, nil
}

// Update changes a role's name and description. Returns nil if the role
// does not exist.
func (s *RoleStore) Update(ctx context.Context, r *models.Role) (*models.Role, error) {
	updated, err := scanRole(s.db.QueryRowContext(ctx, `
		UPDATE roles SET name = $1, description = $2, updated_at = NOW()
		WHERE id = $3
		RETURNING `+roleColumns, r.Name, r.Description, r.ID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, translate("update role", err, ErrInvalidReference)
	}
	return updated, nil
}

// Delete removes a role. User assignments cascade. Reports whether a row
// was deleted.
func (s *RoleStore) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM roles WHERE id = $1`, id)
	if err != nil {
		return false, translate("delete role", err, ErrInUse)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete role: %w", err)
	}
	return n > 0, nil
}
