package main

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"

	"campus-market/internal/config"
	"campus-market/internal/market"
	"campus-market/internal/observability"
	"campus-market/internal/repository/file"
	"campus-market/internal/security"
	"campus-market/internal/service"
)

// app holds everything one CLI invocation needs. It is built lazily in the
// root command's PersistentPreRunE so --help works without configuration.
type app struct {
	cfg      *config.Config
	out      io.Writer
	jar      *file.CookieJar
	store    *file.SessionStore
	query    *service.QueryExecutor
	state    *service.ListingsState
	auth     *service.AuthService
	listings *service.ListingService
	notes    *notifier
}

func newApp(cfg *config.Config, out, errOut io.Writer) (*app, error) {
	if err := os.MkdirAll(cfg.StateDir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create state dir: %w", err)
	}

	sealer := file.NewSealer(cfg.SessionSecret)
	jar, err := file.NewCookieJar(cfg.CookiePath())
	if err != nil {
		return nil, err
	}
	store := file.NewSessionStore(cfg.SessionPath(), sealer)

	api := market.NewClient(cfg.APIBaseURL, config.NewHTTPClient(cfg.RequestTimeout, jar), cfg.CSRFHeaderName)
	if cfg.CookieHeader != "" {
		if err := applyCookieHeader(jar, api.BaseURL(), cfg.CookieHeader); err != nil {
			return nil, err
		}
	}
	resolver := security.NewTokenResolver(jar, api.BaseURL(), cfg.CSRFCookieName)

	notes := &notifier{w: errOut}
	query := service.NewQueryExecutor(api, store)
	state := service.NewListingsState(query)
	exec := service.NewMutationExecutor(api, resolver, store, state, notes)

	return &app{
		cfg:      cfg,
		out:      out,
		jar:      jar,
		store:    store,
		query:    query,
		state:    state,
		auth:     service.NewAuthService(api, exec, store, jar),
		listings: service.NewListingService(api, exec),
		notes:    notes,
	}, nil
}

// close flushes metrics for a node_exporter textfile collector when
// METRICS_TEXTFILE is set.
func (a *app) close() {
	if a == nil || a.cfg.MetricsTextfile == "" {
		return
	}
	if err := observability.WriteTextfile(a.cfg.MetricsTextfile); err != nil {
		slog.Warn("failed to write metrics", slog.String("path", a.cfg.MetricsTextfile), slog.String("error", err.Error()))
	}
}

// applyCookieHeader adds the cookies of a raw Cookie header, typically
// copied from a signed-in browser, to the jar for this run. They carry no
// expiry, so they are never written to disk.
func applyCookieHeader(jar http.CookieJar, target *url.URL, header string) error {
	source := security.HeaderSource{Header: func() string { return header }}
	cookies := source.Cookies(target)
	if len(cookies) == 0 {
		return errBadCookieHeader
	}
	jar.SetCookies(target, cookies)
	return nil
}

func loadApp(out, errOut io.Writer, cookieHeader string) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if cookieHeader != "" {
		cfg.CookieHeader = cookieHeader
	}
	observability.InitLoggerTo(errOut, cfg.LogLevel, cfg.LogFormat)
	return newApp(cfg, out, errOut)
}
