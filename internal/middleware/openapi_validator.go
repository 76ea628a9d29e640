package middleware

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"

	"campus-market/internal/observability"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
	"github.com/getkin/kin-openapi/routers/gorillamux"
)

// OpenAPIValidatorConfig holds configuration for OpenAPI validation middleware
type OpenAPIValidatorConfig struct {
	// Enabled controls whether validation is active
	Enabled bool
	// Spec is the OpenAPI document, usually apispec.Document
	Spec []byte
	// ValidateResponses checks handler output as well; failures are only logged
	ValidateResponses bool
	// SkipPaths are path prefixes that are never validated
	SkipPaths []string
}

// DefaultOpenAPIValidatorConfig validates requests for everything but the
// operational endpoints.
func DefaultOpenAPIValidatorConfig(spec []byte) *OpenAPIValidatorConfig {
	return &OpenAPIValidatorConfig{
		Enabled: true,
		Spec:    spec,
		SkipPaths: []string{
			"/health",
			"/metrics",
		},
	}
}

// OpenAPIValidator creates a middleware that validates requests (and
// optionally responses) against an OpenAPI 3 document. Multipart requests
// are routed but their bodies are not validated: file parts are checked by
// the handlers instead.
func OpenAPIValidator(config *OpenAPIValidatorConfig) (func(http.Handler) http.Handler, error) {
	if config == nil || !config.Enabled {
		slog.Info("OpenAPI validation disabled")
		return func(next http.Handler) http.Handler { return next }, nil
	}

	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(config.Spec)
	if err != nil {
		return nil, fmt.Errorf("failed to load OpenAPI spec: %w", err)
	}
	if err := doc.Validate(loader.Context); err != nil {
		return nil, fmt.Errorf("invalid OpenAPI spec: %w", err)
	}

	router, err := gorillamux.NewRouter(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to create OpenAPI router: %w", err)
	}

	slog.Info("OpenAPI validation enabled", slog.Bool("validate_responses", config.ValidateResponses))

	options := &openapi3filter.Options{AuthenticationFunc: openapi3filter.NoopAuthenticationFunc}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if shouldSkipPath(r.URL.Path, config.SkipPaths) || r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			logger := observability.FromContext(r.Context())

			route, pathParams, err := router.FindRoute(r)
			if err != nil {
				logger.Warn("Request not in OpenAPI spec",
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path))
				status := http.StatusNotFound
				if errors.Is(err, routers.ErrMethodNotAllowed) {
					status = http.StatusMethodNotAllowed
				}
				writeValidationError(w, status, fmt.Sprintf("No such endpoint: %s %s", r.Method, r.URL.Path))
				return
			}

			input := &openapi3filter.RequestValidationInput{
				Request:    r,
				PathParams: pathParams,
				Route:      route,
				Options:    options,
			}
			if isMultipart(r) {
				input.Options = &openapi3filter.Options{
					AuthenticationFunc: openapi3filter.NoopAuthenticationFunc,
					ExcludeRequestBody: true,
				}
			}

			if err := openapi3filter.ValidateRequest(r.Context(), input); err != nil {
				logger.Warn("Request validation failed",
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.String("error", err.Error()))
				writeValidationError(w, http.StatusBadRequest, "Request validation failed: "+err.Error())
				return
			}

			if !config.ValidateResponses {
				next.ServeHTTP(w, r)
				return
			}

			recorder := &responseRecorder{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(recorder, r)

			if err := openapi3filter.ValidateResponse(r.Context(), &openapi3filter.ResponseValidationInput{
				RequestValidationInput: input,
				Status:                 recorder.statusCode,
				Header:                 recorder.Header(),
				Body:                   io.NopCloser(bytes.NewReader(recorder.body)),
				Options:                options,
			}); err != nil {
				// The response is already on the wire; log only.
				logger.Warn("Response validation failed",
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.Int("status", recorder.statusCode),
					slog.String("error", err.Error()))
			}
		})
	}, nil
}

func isMultipart(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "multipart/form-data"
}

func shouldSkipPath(path string, skipPaths []string) bool {
	for _, skipPath := range skipPaths {
		if strings.HasPrefix(path, skipPath) {
			return true
		}
	}
	return false
}

func writeValidationError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error": message,
	})
}

// responseRecorder wraps http.ResponseWriter to capture response data
type responseRecorder struct {
	http.ResponseWriter
	statusCode int
	body       []byte
}

func (r *responseRecorder) WriteHeader(statusCode int) {
	r.statusCode = statusCode
	r.ResponseWriter.WriteHeader(statusCode)
}

func (r *responseRecorder) Write(b []byte) (int, error) {
	r.body = append(r.body, b...)
	return r.ResponseWriter.Write(b)
}
