package middleware

import (
	"net/http"
	"strings"
)

// CORS lets browser front-ends on allowedOrigins call the API with
// credentials. csrfHeader is added to the allowed request headers so that
// preflights for mutations pass.
func CORS(allowedOrigins []string, csrfHeader string) func(http.Handler) http.Handler {
	if csrfHeader == "" {
		csrfHeader = DefaultCSRFHeader
	}
	allowHeaders := strings.Join([]string{"Content-Type", "X-Request-ID", csrfHeader}, ", ")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			if origin != "" && originAllowed(allowedOrigins, origin) {
				// Credentialed requests cannot use a wildcard origin.
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Credentials", "true")
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", allowHeaders)
				w.Header().Add("Vary", "Origin")
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func originAllowed(allowed []string, origin string) bool {
	for _, o := range allowed {
		if o == origin || o == "*" {
			return true
		}
	}
	return false
}

// ParseOrigins parses a comma-separated origins string, dropping blanks.
func ParseOrigins(originsStr string) []string {
	var origins []string
	for _, origin := range strings.Split(originsStr, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	return origins
}
