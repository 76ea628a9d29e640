// Package server assembles the reference marketplace API: routes,
// middleware and handlers.
package server

import (
	"context"
	"net/http"

	"campus-market/internal/apispec"
	"campus-market/internal/domain"
	"campus-market/internal/handler"
	"campus-market/internal/marketplace"
	"campus-market/internal/middleware"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Options tune the router. Zero values disable rate limiting and OpenAPI
// validation.
type Options struct {
	CSRFHeader        string
	AllowedOrigins    []string
	SecureCookies     bool
	ValidateOpenAPI   bool
	RequestsPerSecond float64
	Burst             int
	// Database is probed by /health/ready when set.
	Database handler.Pinger
}

// NewRouter wires every route of the API. ctx bounds the background work
// the router starts (rate limiter sweeps).
func NewRouter(
	ctx context.Context,
	sessionRepo domain.ServerSessionRepository,
	sessions *marketplace.SessionService,
	catalog *marketplace.CatalogService,
	images *marketplace.ImageStore,
	opts Options,
) (http.Handler, error) {
	validator, err := middleware.OpenAPIValidator(&middleware.OpenAPIValidatorConfig{
		Enabled:   opts.ValidateOpenAPI,
		Spec:      apispec.Document,
		SkipPaths: []string{"/health", "/metrics", "/media/"},
	})
	if err != nil {
		return nil, err
	}

	authHandler := handler.NewAuthHandler(sessions, opts.SecureCookies)
	itemHandler := handler.NewItemHandler(catalog)
	myListingsHandler := handler.NewMyListingsHandler(catalog)
	feedbackHandler := handler.NewFeedbackHandler(catalog)

	r := chi.NewRouter()

	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger())
	r.Use(middleware.CORS(opts.AllowedOrigins, opts.CSRFHeader))
	r.Use(middleware.Metrics())

	r.Get("/health", handler.Health)
	r.Get("/health/ready", handler.Ready(images.Dir(), opts.Database))
	r.Handle("/metrics", promhttp.Handler())
	r.Handle("/media/*", http.StripPrefix("/media/", http.FileServer(http.Dir(images.Dir()))))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"Not Found"}`, http.StatusNotFound)
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(validator)
		if opts.RequestsPerSecond > 0 {
			r.Use(middleware.NewRateLimiter(ctx, opts.RequestsPerSecond, opts.Burst).Middleware())
		}

		r.Post("/auth/google/", authHandler.Google)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(sessionRepo))
			r.Use(middleware.CSRF(opts.CSRFHeader))

			r.Post("/auth/campus/", authHandler.Campus)
			r.Post("/auth/logout/", authHandler.Logout)

			r.Get("/items", itemHandler.List)
			r.Post("/items/", itemHandler.Create)
			r.Get("/items/{id}", itemHandler.Get)
			r.Post("/items/{id}", itemHandler.Update)

			r.Get("/mylistings", myListingsHandler.List)
			r.Post("/mylistings/", myListingsHandler.Batch)

			r.Post("/feedback", feedbackHandler.Create)
		})
	})

	return r, nil
}
