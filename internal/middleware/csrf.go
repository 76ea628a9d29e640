package middleware

import (
	"crypto/hmac"
	"log/slog"
	"net/http"
	"strings"

	"campus-market/internal/observability"
)

// DefaultCSRFHeader is the header clients echo the csrftoken cookie in.
const DefaultCSRFHeader = "X-CSRFToken"

// CSRF validates anti-forgery tokens for state-changing requests using the
// synchronizer token pattern: the token submitted in header must equal the
// one stored on the server session that Auth put in the context.
//
// Rejections are 403s whose message names CSRF, which lets clients tell a
// stale token apart from a permission failure and try the next one.
func CSRF(header string) func(http.Handler) http.Handler {
	if header == "" {
		header = DefaultCSRFHeader
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isSafeMethod(r.Method) || isExemptPath(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			session, ok := GetSession(r.Context())
			if !ok {
				http.Error(w, `{"error":"Authentication credentials were not provided."}`, http.StatusUnauthorized)
				return
			}

			submitted := r.Header.Get(header)
			if submitted == "" {
				logCSRFFailure(r, "missing token")
				http.Error(w, `{"error":"CSRF Failed: CSRF token missing."}`, http.StatusForbidden)
				return
			}

			if !hmac.Equal([]byte(session.CSRFToken), []byte(submitted)) {
				logCSRFFailure(r, "invalid token")
				http.Error(w, `{"error":"CSRF Failed: CSRF token incorrect."}`, http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func isSafeMethod(method string) bool {
	return method == http.MethodGet ||
		method == http.MethodHead ||
		method == http.MethodOptions
}

// isExemptPath reports whether path skips CSRF validation. The identity
// exchange is exempt because no session exists yet.
func isExemptPath(path string) bool {
	exemptPaths := []string{
		"/health",
		"/metrics",
		"/api/auth/google/",
	}

	for _, exemptPath := range exemptPaths {
		if strings.HasPrefix(path, exemptPath) {
			return true
		}
	}
	return false
}

func logCSRFFailure(r *http.Request, reason string) {
	observability.FromContext(r.Context()).Warn("CSRF validation failed",
		slog.String("reason", reason),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("remote_addr", r.RemoteAddr),
	)
}
