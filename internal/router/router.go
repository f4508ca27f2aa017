// Package router sets up all HTTP routes and middleware chains for the
// blogdesk API. Routes live under /api and are grouped into public, auth
// and authenticated admin sections.
package router

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"blogdesk/internal/handlers"
	"blogdesk/internal/middleware"
	"blogdesk/internal/models"
)

// Options carries the cross-cutting collaborators of the middleware chain.
type Options struct {
	Sessions      middleware.SessionGetter
	ErrorLogs     middleware.ErrorRecorder
	CORSOrigins   []string
	SecureCookies bool
	// LoginLimiter throttles POST /api/auth/login. Nil disables it.
	LoginLimiter *middleware.RateLimiter
}

// New creates and returns the configured Chi router with all middleware
// and route groups wired up.
func New(opts Options, admin *handlers.Admin, auth *handlers.Auth, public *handlers.Public) chi.Router {
	r := chi.NewRouter()

	// Global middleware, applied to every request.
	r.Use(chimw.RequestID)
	r.Use(middleware.Recoverer(opts.ErrorLogs))
	r.Use(middleware.Logger)
	r.Use(middleware.SecureHeaders)
	r.Use(middleware.CORS(opts.CORSOrigins))

	// Health check: no session, no CSRF.
	r.Get("/health", healthHandler)

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.LoadSession(opts.Sessions))
		r.Use(middleware.NewCSRF(opts.SecureCookies))

		// Public read API.
		r.Route("/public", func(r chi.Router) {
			r.Get("/blogs", public.Blogs)
			r.Get("/blogs/{slug}", public.Blog)
			r.Get("/categories", public.Categories)
			r.Get("/tags", public.Tags)
		})

		r.Route("/auth", func(r chi.Router) {
			r.Get("/csrf", csrfHandler)
			r.With(limit(opts.LoginLimiter)).Post("/login", auth.Login)

			// Requires a session but NOT completed 2FA.
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAuth)
				r.Get("/2fa/setup", auth.TwoFASetup)
				r.Post("/2fa/verify", auth.TwoFAVerify)
				r.Post("/logout", auth.Logout)
				r.Get("/me", auth.Me)
			})
		})

		// Authenticated + 2FA-verified back office.
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth)
			r.Use(middleware.Require2FA)

			r.Post("/slugs", admin.GenerateSlug)
			r.Get("/forms/{entity}", admin.FormGet)

			r.Route("/blogs", func(r chi.Router) {
				r.Get("/", admin.BlogsList)
				r.Post("/", admin.BlogCreate)
				r.Get("/export", admin.BlogsExport)
				r.Get("/slug/{slug}", admin.BlogGetBySlug)
				r.Get("/{id}", admin.BlogGet)
				r.Put("/{id}", admin.BlogUpdate)
				r.Delete("/{id}", admin.BlogDelete)
				r.Post("/{id}/publish", admin.BlogPublish)
				r.Post("/{id}/unpublish", admin.BlogUnpublish)
			})

			r.Route("/categories", func(r chi.Router) {
				r.Get("/", admin.CategoriesList)
				r.Post("/", admin.CategoryCreate)
				r.Get("/tree", admin.CategoriesTree)
				r.Put("/reorder", admin.CategoriesReorder)
				r.Get("/{id}", admin.CategoryGet)
				r.Put("/{id}", admin.CategoryUpdate)
				r.With(middleware.RequireRole(models.RoleAdmin, models.RoleEditor)).
					Delete("/{id}", admin.CategoryDelete)
			})

			r.Route("/tags", func(r chi.Router) {
				r.Get("/", admin.TagsList)
				r.Post("/", admin.TagCreate)
				r.Get("/search", admin.TagsSearch)
				r.Get("/{id}", admin.TagGet)
				r.Put("/{id}", admin.TagUpdate)
				r.With(middleware.RequireRole(models.RoleAdmin, models.RoleEditor)).
					Delete("/{id}", admin.TagDelete)
			})

			r.Route("/media", func(r chi.Router) {
				r.Get("/", admin.MediaList)
				r.Post("/", admin.MediaUpload)
				r.Delete("/{id}", admin.MediaDelete)
			})

			// Admin only.
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(models.RoleAdmin))

				r.Route("/users", func(r chi.Router) {
					r.Get("/", admin.UsersList)
					r.Post("/", admin.UserCreate)
					r.Get("/export", admin.UsersExport)
					r.Get("/{id}", admin.UserGet)
					r.Put("/{id}", admin.UserUpdate)
					r.Delete("/{id}", admin.UserDelete)
					r.Put("/{id}/roles", admin.UserSetRoles)
					r.Post("/{id}/reset-2fa", admin.UserResetTwoFA)
				})

				r.Route("/roles", func(r chi.Router) {
					r.Get("/", admin.RolesList)
					r.Post("/", admin.RoleCreate)
					r.Get("/{id}", admin.RoleGet)
					r.Put("/{id}", admin.RoleUpdate)
					r.Delete("/{id}", admin.RoleDelete)
				})

				r.Route("/error-logs", func(r chi.Router) {
					r.Get("/", admin.ErrorLogsList)
					r.Post("/purge", admin.ErrorLogsPurge)
					r.Get("/{id}", admin.ErrorLogGet)
					r.Delete("/{id}", admin.ErrorLogDelete)
				})
			})
		})
	})

	return r
}

// limit returns rl's middleware, or a pass-through when rl is nil.
func limit(rl *middleware.RateLimiter) func(http.Handler) http.Handler {
	if rl == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return rl.Middleware
}

// healthHandler returns a simple JSON health check response.
func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

// csrfHandler hands the SPA its CSRF token. The token is also set as the
// bd_csrf cookie by the CSRF middleware.
func csrfHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"token": middleware.CSRFTokenFromCtx(r.Context())})
}
