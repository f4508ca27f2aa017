// store_test.go provides a shared test database helper for all store
// integration tests. Tests are skipped if PostgreSQL is not available.
package store

import (
	"context"
	"database/sql"
	"os"
	"testing"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"blogdesk/internal/database"
	"blogdesk/internal/models"
)

// testDSN returns the PostgreSQL connection string for testing.
// Uses environment variables with defaults matching docker-compose.yml.
func testDSN() string {
	host := envOr("POSTGRES_HOST", "localhost")
	port := envOr("POSTGRES_PORT", "5432")
	user := envOr("POSTGRES_USER", "blogdesk")
	pass := envOr("POSTGRES_PASSWORD", "changeme")
	name := envOr("POSTGRES_DB", "blogdesk")
	return "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=disable"
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// testDB opens a connection to the test database and runs migrations.
// If the database is unavailable, the test is skipped. A cleanup
// function is registered to close the connection when the test finishes.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	dsn := testDSN()
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Skipf("skipping integration test: cannot open DB: %v", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		t.Skipf("skipping integration test: DB not reachable: %v", err)
	}

	// Run migrations to ensure the schema is current.
	if err := database.Migrate(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	// Downgrade goose global state.
	goose.SetBaseFS(nil)

	t.Cleanup(func() { db.Close() })
	return db
}

// testUser creates a throwaway user holding roles and removes it (and
// anything it authored) when the test ends.
func testUser(t *testing.T, db *sql.DB, roles ...string) *models.User {
	t.Helper()
	ctx := context.Background()

	var roleIDs []uuid.UUID
	for _, name := range roles {
		r, err := NewRoleStore(db).FindByName(ctx, name)
		if err != nil || r == nil {
			t.Fatalf("role %q not found (seeded roles missing?): %v", name, err)
		}
		roleIDs = append(roleIDs, r.ID)
	}

	email := "store-test-" + uuid.NewString()[:8] + "@store-test.local"
	u, err := NewUserStore(db).Create(ctx, CreateUserParams{
		Email:       email,
		Password:    "store-test-password",
		DisplayName: "Store Test",
		IsActive:    true,
		RoleIDs:     roleIDs,
	})
	if err != nil {
		t.Fatalf("create test user: %v", err)
	}
	t.Cleanup(func() {
		db.Exec("DELETE FROM blogs WHERE author_id = $1", u.ID)
		db.Exec("DELETE FROM media WHERE uploader_id = $1", u.ID)
		db.Exec("DELETE FROM users WHERE id = $1", u.ID)
	})
	return u
}

// seedRoles makes sure the built-in roles exist.
func seedRoles(t *testing.T, db *sql.DB) {
	t.Helper()
	if err := database.Seed(db); err != nil {
		t.Fatalf("seed: %v", err)
	}
}

// uniqueSlug returns a slug that will not collide across test runs.
func uniqueSlug(prefix string) string {
	return prefix + "-" + uuid.NewString()[:8]
}

// cleanRows deletes rows from table by id. Call in t.Cleanup().
func cleanRows(db *sql.DB, table string, ids ...uuid.UUID) {
	for _, id := range ids {
		db.Exec("DELETE FROM "+table+" WHERE id = $1", id)
	}
}
