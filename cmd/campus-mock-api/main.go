package main

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"campus-market/internal/config"
	"campus-market/internal/domain"
	"campus-market/internal/marketplace"
	"campus-market/internal/middleware"
	"campus-market/internal/observability"
	"campus-market/internal/repository/memory"
	"campus-market/internal/repository/postgres"
	"campus-market/internal/security"
	"campus-market/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	observability.InitLogger(cfg.LogLevel, cfg.LogFormat)

	slog.Info("starting campus market mock API", slog.String("environment", cfg.Environment))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var verifier security.IdentityVerifier
	switch {
	case cfg.OAuthClientID != "":
		verifier = security.NewGoogleVerifier(cfg.OAuthClientID)
		slog.Info("verifying Google ID tokens")
	case cfg.IsProduction():
		slog.Error("OAUTH_CLIENT_ID is required in production")
		os.Exit(1)
	default:
		verifier = security.DevVerifier{}
		slog.Warn("accepting unsigned dev:<email>:<name> identity tokens")
	}

	images, err := marketplace.NewImageStore(cfg.MediaDir, "/media/")
	if err != nil {
		slog.Error("failed to prepare media dir", slog.String("error", err.Error()))
		os.Exit(1)
	}

	stores, closeStores, err := openStores(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to open storage", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer closeStores()

	sessionRepo := stores.sessions
	sessions := marketplace.NewSessionService(verifier, sessionRepo, cfg.SessionTTL)
	catalog := marketplace.NewCatalogService(stores.listings, stores.feedback, images)

	go startSessionCleanup(ctx, sessionRepo)
	slog.Info("session cleanup task started")

	opts := server.Options{
		CSRFHeader:        cfg.CSRFHeaderName,
		AllowedOrigins:    middleware.ParseOrigins(cfg.AllowedOrigins),
		SecureCookies:     cfg.IsProduction(),
		ValidateOpenAPI:   cfg.OpenAPIValidation,
		RequestsPerSecond: cfg.RateLimitRPS,
		Burst:             cfg.RateLimitBurst,
	}
	if stores.db != nil {
		opts.Database = stores.db
	}

	router, err := server.NewRouter(ctx, sessionRepo, sessions, catalog, images, opts)
	if err != nil {
		slog.Error("failed to build router", slog.String("error", err.Error()))
		os.Exit(1)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("mock API listening", slog.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	slog.Info("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", slog.String("error", err.Error()))
	}

	cancel()

	slog.Info("server stopped gracefully")
}

type stores struct {
	db       *sql.DB
	sessions domain.ServerSessionRepository
	listings domain.ListingRepository
	feedback domain.FeedbackRepository
}

// openStores connects to PostgreSQL when dbURL is set and falls back to
// in-memory stores otherwise.
func openStores(ctx context.Context, dbURL string) (*stores, func(), error) {
	if dbURL == "" {
		slog.Info("using in-memory storage")
		return &stores{
			sessions: memory.NewSessionRepository(),
			listings: memory.NewListingRepository(),
			feedback: memory.NewFeedbackRepository(),
		}, func() {}, nil
	}

	db, err := config.NewPostgresConnection(dbURL, 10*time.Second)
	if err != nil {
		return nil, nil, err
	}

	migrateCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := postgres.Migrate(migrateCtx, db); err != nil {
		db.Close()
		return nil, nil, err
	}

	sessionRepo, err := postgres.NewSessionRepository(db)
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	slog.Info("connected to postgresql")

	closeFn := func() {
		if err := sessionRepo.Close(); err != nil {
			slog.Warn("failed to close statements", slog.String("error", err.Error()))
		}
		db.Close()
	}
	return &stores{
		db:       db,
		sessions: sessionRepo,
		listings: postgres.NewListingRepository(db),
		feedback: postgres.NewFeedbackRepository(db),
	}, closeFn, nil
}

// startSessionCleanup runs a background task to delete expired sessions
func startSessionCleanup(ctx context.Context, repo domain.ServerSessionRepository) {
	ticker := time.NewTicker(15 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("stopping session cleanup task")
			return
		case <-ticker.C:
			cleanupCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
			count, err := repo.DeleteExpired(cleanupCtx)
			if err != nil {
				slog.Error("session cleanup failed", slog.String("error", err.Error()))
			} else {
				slog.Info("session cleanup completed",
					slog.Int64("sessions_deleted", count))
			}
			cancel()
		}
	}
}
