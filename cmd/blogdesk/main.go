// Package main is the entry point for the blogdesk API server.
// It loads configuration, connects to services, sets up routing, and starts
// the HTTP server with graceful shutdown support.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"blogdesk/internal/cache"
	"blogdesk/internal/config"
	"blogdesk/internal/database"
	"blogdesk/internal/forms"
	"blogdesk/internal/handlers"
	"blogdesk/internal/jobs"
	"blogdesk/internal/logger"
	"blogdesk/internal/mail"
	"blogdesk/internal/middleware"
	"blogdesk/internal/notify"
	"blogdesk/internal/router"
	"blogdesk/internal/session"
	"blogdesk/internal/storage"
	"blogdesk/internal/store"
)

func main() {
	// Load configuration from the environment (and .env when present).
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Structured logger: text in development, JSON otherwise, plus Sentry
	// for errors when a DSN is configured.
	logger.Init(os.Stdout, cfg.IsDev(), cfg.SentryDSN)
	defer logger.Flush()

	slog.Info("configuration loaded",
		"env", cfg.Env,
		"addr", cfg.Addr(),
	)

	// Connect to PostgreSQL.
	db, err := database.Connect(cfg.DSN())
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Run pending migrations.
	if err := database.Migrate(db); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	// Built-in roles are required everywhere; the admin account only on
	// an empty database.
	if err := database.Seed(db); err != nil {
		slog.Error("failed to seed database", "error", err)
		os.Exit(1)
	}

	// Connect to Valkey (sessions + list cache).
	valkeyClient, err := cache.ConnectValkey(cfg.ValkeyHost, cfg.ValkeyPort, cfg.ValkeyPassword)
	if err != nil {
		slog.Error("failed to connect to valkey", "error", err)
		os.Exit(1)
	}
	defer valkeyClient.Close()

	// In non-development environments, mark cookies as Secure (HTTPS-only).
	secureCookies := !cfg.IsDev()
	sessionStore := session.NewStore(valkeyClient, secureCookies)
	listCache := cache.NewListCache(valkeyClient, cache.DefaultListTTL)

	// Initialize data stores.
	blogStore := store.NewBlogStore(db)
	categoryStore := store.NewCategoryStore(db)
	tagStore := store.NewTagStore(db)
	userStore := store.NewUserStore(db)
	roleStore := store.NewRoleStore(db)
	mediaStore := store.NewMediaStore(db)
	errorLogStore := store.NewErrorLogStore(db)

	// Connect to S3-compatible object storage (optional; uploads are
	// refused without it).
	storageClient, err := storage.New(storage.Options{
		Endpoint:     cfg.S3Endpoint,
		Region:       cfg.S3Region,
		AccessKey:    cfg.S3AccessKey,
		SecretKey:    cfg.S3SecretKey,
		PublicBucket: cfg.S3BucketPublic,
		PublicURL:    cfg.S3PublicURL,
	})
	if err != nil {
		slog.Error("failed to initialize S3 storage", "error", err)
		os.Exit(1)
	}
	if storageClient != nil {
		slog.Info("s3 storage connected", "endpoint", cfg.S3Endpoint, "public_bucket", cfg.S3BucketPublic)
	} else {
		slog.Warn("s3 storage not configured, media uploads disabled")
	}

	// Outbound email and the notifications built on it.
	sender, err := mail.New(cfg)
	if err != nil {
		slog.Error("failed to initialize mail sender", "error", err)
		os.Exit(1)
	}
	notifier, err := notify.New(sender, userStore, errorLogStore, cfg.AppName, cfg.AppURL)
	if err != nil {
		slog.Error("failed to initialize notifier", "error", err)
		os.Exit(1)
	}

	// Background jobs: scheduled publishing and error log retention.
	runner, err := jobs.New(jobs.Deps{
		Blogs:         blogStore,
		ErrorLogs:     errorLogStore,
		Cache:         listCache,
		Notifier:      notifier,
		RetentionDays: cfg.ErrorLogRetentionDays,
	})
	if err != nil {
		slog.Error("failed to initialize background jobs", "error", err)
		os.Exit(1)
	}
	runner.Start()

	// Create handler groups with their dependencies.
	adminHandlers := handlers.NewAdmin(handlers.AdminDeps{
		Sessions:   sessionStore,
		Blogs:      blogStore,
		Categories: categoryStore,
		Tags:       tagStore,
		Users:      userStore,
		Roles:      roleStore,
		Media:      mediaStore,
		ErrorLogs:  errorLogStore,
		Storage:    storageClient,
		Cache:      listCache,
		Notifier:   notifier,
		Forms:      forms.NewRegistry(categoryStore, tagStore, roleStore),
	})
	authHandlers := handlers.NewAuth(sessionStore, userStore, errorLogStore, cfg.AppName)
	publicHandlers := handlers.NewPublic(blogStore, categoryStore, tagStore, listCache, errorLogStore)

	// Login attempts per client IP, counted in Valkey across instances.
	loginLimiter := middleware.NewRateLimiter(valkeyClient, "ratelimit:login:", 10, time.Minute)

	// Set up the Chi router with all middleware and routes.
	r := router.New(router.Options{
		Sessions:      sessionStore,
		ErrorLogs:     errorLogStore,
		CORSOrigins:   cfg.CORSOrigins,
		SecureCookies: secureCookies,
		LoginLimiter:  loginLimiter,
	}, adminHandlers, authHandlers, publicHandlers)

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start the server in a goroutine so we can listen for shutdown signals.
	serverErr := make(chan error, 1)
	go func() {
		slog.Info("server starting", "addr", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Graceful shutdown: wait for SIGINT or SIGTERM, then drain connections.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		slog.Info("shutdown signal received", "signal", sig)
	case err := <-serverErr:
		slog.Error("server failed", "error", err)
	}

	// Give active requests and jobs up to 30 seconds to complete.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}
	runner.Stop(ctx)
	if err := notifier.Close(ctx); err != nil {
		slog.Warn("notifier did not drain", "error", err)
	}

	slog.Info("server stopped gracefully")
}
