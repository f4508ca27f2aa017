// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// handler_test.go provides shared test infrastructure for handler integration
// tests. Tests are skipped when PostgreSQL or Valkey are unavailable.
package handlers

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/redis/go-redis/v9"

	"blogdesk/internal/cache"
	"blogdesk/internal/database"
	"blogdesk/internal/forms"
	"blogdesk/internal/middleware"
	"blogdesk/internal/models"
	"blogdesk/internal/session"
	"blogdesk/internal/store"
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// testDB opens a connection to the test PostgreSQL, runs migrations and
// seeds the built-in roles.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	host := envOr("POSTGRES_HOST", "localhost")
	port := envOr("POSTGRES_PORT", "5432")
	user := envOr("POSTGRES_USER", "blogdesk")
	pass := envOr("POSTGRES_PASSWORD", "changeme")
	name := envOr("POSTGRES_DB", "blogdesk")
	dsn := "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=disable"

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Skipf("skipping: cannot open DB: %v", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		t.Skipf("skipping: DB not reachable: %v", err)
	}

	if err := database.Migrate(db); err != nil {
		db.Close()
		t.Fatalf("migrate: %v", err)
	}
	goose.SetBaseFS(nil)

	if err := database.Seed(db); err != nil {
		db.Close()
		t.Fatalf("seed: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

// testValkeyClient returns a Redis client for handler tests on DB 15.
func testValkeyClient(t *testing.T) *redis.Client {
	t.Helper()

	host := envOr("VALKEY_HOST", "localhost")
	port := envOr("VALKEY_PORT", "6379")
	password := os.Getenv("VALKEY_PASSWORD")

	client := redis.NewClient(&redis.Options{
		Addr:     host + ":" + port,
		Password: password,
		DB:       15,
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		t.Skipf("skipping: Valkey not reachable: %v", err)
	}

	t.Cleanup(func() {
		// Clean up test session and cache keys.
		for _, pattern := range []string{"session*", "list:*"} {
			keys, _ := client.Keys(ctx, pattern).Result()
			if len(keys) > 0 {
				client.Del(ctx, keys...)
			}
		}
		client.Close()
	})

	return client
}

// testEnv holds all dependencies for handler integration tests.
type testEnv struct {
	DB         *sql.DB
	Valkey     *redis.Client
	Sessions   *session.Store
	Blogs      *store.BlogStore
	Categories *store.CategoryStore
	Tags       *store.TagStore
	Users      *store.UserStore
	Roles      *store.RoleStore
	ErrorLogs  *store.ErrorLogStore
	ListCache  *cache.ListCache
	Notifier   *recordingNotifier
	Admin      *Admin
	Auth       *Auth
	Public     *Public
}

// newTestEnv creates a complete test environment with all handler dependencies.
// Object storage is left unconfigured.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := testDB(t)
	vk := testValkeyClient(t)

	sessions := session.NewStore(vk, false)
	blogs := store.NewBlogStore(db)
	categories := store.NewCategoryStore(db)
	tags := store.NewTagStore(db)
	users := store.NewUserStore(db)
	roles := store.NewRoleStore(db)
	errorLogs := store.NewErrorLogStore(db)
	listCache := cache.NewListCache(vk, time.Minute)
	notifier := &recordingNotifier{}

	admin := NewAdmin(AdminDeps{
		Sessions:   sessions,
		Blogs:      blogs,
		Categories: categories,
		Tags:       tags,
		Users:      users,
		Roles:      roles,
		Media:      store.NewMediaStore(db),
		ErrorLogs:  errorLogs,
		Cache:      listCache,
		Notifier:   notifier,
		Forms:      forms.NewRegistry(categories, tags, roles),
	})

	return &testEnv{
		DB:         db,
		Valkey:     vk,
		Sessions:   sessions,
		Blogs:      blogs,
		Categories: categories,
		Tags:       tags,
		Users:      users,
		Roles:      roles,
		ErrorLogs:  errorLogs,
		ListCache:  listCache,
		Notifier:   notifier,
		Admin:      admin,
		Auth:       NewAuth(sessions, users, errorLogs, "blogdesk-test"),
		Public:     NewPublic(blogs, categories, tags, listCache, errorLogs),
	}
}

// createUser inserts a throwaway active user holding roles and removes it
// (with anything it authored) when the test ends.
func (env *testEnv) createUser(t *testing.T, password string, roles ...string) *models.User {
	t.Helper()
	ctx := context.Background()

	var roleIDs []uuid.UUID
	for _, name := range roles {
		r, err := env.Roles.FindByName(ctx, name)
		if err != nil || r == nil {
			t.Fatalf("role %q not found: %v", name, err)
		}
		roleIDs = append(roleIDs, r.ID)
	}

	u, err := env.Users.Create(ctx, store.CreateUserParams{
		Email:       "handler-test-" + uuid.NewString()[:8] + "@handler-test.local",
		Password:    password,
		DisplayName: "Handler Test",
		IsActive:    true,
		RoleIDs:     roleIDs,
	})
	if err != nil {
		t.Fatalf("create test user: %v", err)
	}
	t.Cleanup(func() {
		env.DB.Exec("DELETE FROM blogs WHERE author_id = $1", u.ID)
		env.DB.Exec("DELETE FROM users WHERE id = $1", u.ID)
	})
	return u
}

// recordingNotifier captures notifications instead of sending email.
type recordingNotifier struct {
	welcomed  []string
	roleMails []string
	published []string
}

func (n *recordingNotifier) Welcome(u *models.User)      { n.welcomed = append(n.welcomed, u.Email) }
func (n *recordingNotifier) RolesChanged(u *models.User) { n.roleMails = append(n.roleMails, u.Email) }
func (n *recordingNotifier) BlogPublished(b *models.Blog) {
	n.published = append(n.published, b.Slug)
}

// ctxWithSession adds session data to a context using the middleware key.
func ctxWithSession(ctx context.Context, data *session.Data) context.Context {
	return context.WithValue(ctx, middleware.SessionKey, data)
}

// testSession creates a fully authenticated session.Data for testing.
func testSession(userID uuid.UUID, roles ...string) *session.Data {
	return &session.Data{
		UserID:      userID,
		Email:       "session@handler-test.local",
		DisplayName: "Test User",
		Roles:       roles,
		TwoFADone:   true,
	}
}

// sessionFor builds a session for an existing user.
func sessionFor(u *models.User) *session.Data {
	sess := testSession(u.ID, u.RoleNames()...)
	sess.Email = u.Email
	return sess
}

// jsonRequest builds a request with a JSON-encoded body.
func jsonRequest(t *testing.T, method, target string, body any) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// decodeBody decodes a JSON response body into v.
func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

// withChiURLParam adds a chi URL parameter to a request.
func withChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// withChiURLParamAndSession adds both chi URL param and session to a request.
func withChiURLParamAndSession(r *http.Request, key, value string, sess *session.Data) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	ctx := context.WithValue(r.Context(), chi.RouteCtxKey, rctx)
	ctx = context.WithValue(ctx, middleware.SessionKey, sess)
	return r.WithContext(ctx)
}
