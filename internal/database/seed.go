package database

import (
	"database/sql"
	"fmt"
	"log/slog"

	"golang.org/x/crypto/bcrypt"
)

// DefaultRoles are created on every start if missing.
var DefaultRoles = []struct {
	Name        string
	Description string
}{
	{"admin", "Full access, including users, roles and error logs"},
	{"editor", "Manages all blogs, categories and tags"},
	{"author", "Writes and edits their own blogs"},
}

const (
	seedAdminEmail    = "admin@blogdesk.local"
	seedAdminPassword = "change-me-immediately"
)

// Seed ensures the default roles exist and, when the users table is empty,
// creates an admin account. The admin must enrol in 2FA on first login.
func Seed(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("seed begin: %w", err)
	}
	defer tx.Rollback()

	for _, r := range DefaultRoles {
		if _, err := tx.Exec(`
			INSERT INTO roles (name, description) VALUES ($1, $2)
			ON CONFLICT (name) DO NOTHING
		`, r.Name, r.Description); err != nil {
			return fmt.Errorf("seed role %s: %w", r.Name, err)
		}
	}

	var count int
	if err := tx.QueryRow("SELECT COUNT(*) FROM users").Scan(&count); err != nil {
		return fmt.Errorf("seed check users: %w", err)
	}

	if count > 0 {
		slog.Info("database already seeded, skipping admin user")
		return tx.Commit()
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(seedAdminPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("seed bcrypt: %w", err)
	}

	var userID string
	err = tx.QueryRow(`
		INSERT INTO users (email, password_hash, display_name)
		VALUES ($1, $2, $3)
		RETURNING id
	`, seedAdminEmail, string(hash), "Admin").Scan(&userID)
	if err != nil {
		return fmt.Errorf("seed insert admin: %w", err)
	}

	if _, err := tx.Exec(`
		INSERT INTO user_roles (user_id, role_id)
		SELECT $1, id FROM roles WHERE name = 'admin'
	`, userID); err != nil {
		return fmt.Errorf("seed admin role: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("seed commit: %w", err)
	}

	slog.Info("database seeded with default admin user",
		"email", seedAdminEmail,
		"password", seedAdminPassword,
	)
	return nil
}
