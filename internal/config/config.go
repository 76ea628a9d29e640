package config

import (
	"fmt"
	"log"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	APIBaseURL      string
	OAuthClientID   string
	StateDir        string
	SessionSecret   string
	CSRFCookieName  string
	CSRFHeaderName  string
	RequestTimeout  time.Duration
	MetricsTextfile string
	CookieHeader    string // raw Cookie header applied for one run
	LogLevel        string
	LogFormat       string
	Environment     string // development, staging, production

	// Mock API only
	Port              string
	AllowedOrigins    string
	OpenAPIValidation bool
	MediaDir          string
	DatabaseURL       string
	SessionTTL        time.Duration
	RateLimitRPS      float64
	RateLimitBurst    int
}

// Load loads configuration from environment variables and validates it
func Load() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := &Config{
		APIBaseURL:        getEnv("API_BASE_URL", "http://localhost:8090/api"),
		OAuthClientID:     getEnv("OAUTH_CLIENT_ID", ""),
		StateDir:          getEnv("STATE_DIR", defaultStateDir()),
		SessionSecret:     getEnv("SESSION_SECRET", ""),
		CSRFCookieName:    getEnv("CSRF_COOKIE_NAME", "csrftoken"),
		CSRFHeaderName:    getEnv("CSRF_HEADER_NAME", "X-CSRFToken"),
		RequestTimeout:    getDuration("REQUEST_TIMEOUT", 10*time.Second),
		MetricsTextfile:   getEnv("METRICS_TEXTFILE", ""),
		CookieHeader:      getEnv("MARKET_COOKIE", ""),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		LogFormat:         getEnv("LOG_FORMAT", "text"),
		Environment:       getEnv("ENVIRONMENT", "development"),
		Port:              getEnv("PORT", "8090"),
		AllowedOrigins:    getEnv("ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:8090"),
		OpenAPIValidation: getBool("OPENAPI_VALIDATION", true),
		MediaDir:          getEnv("MEDIA_DIR", "./media"),
		DatabaseURL:       getEnv("DATABASE_URL", ""),
		SessionTTL:        getDuration("SESSION_TTL", 24*time.Hour),
		RateLimitRPS:      getFloat("RATE_LIMIT_RPS", 20),
		RateLimitBurst:    getInt("RATE_LIMIT_BURST", 50),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks configuration for security and correctness
func (c *Config) Validate() error {
	u, err := url.Parse(c.APIBaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("API_BASE_URL must be an absolute URL (got %q)", c.APIBaseURL)
	}

	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be positive (got %s)", c.RequestTimeout)
	}

	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive (got %s)", c.SessionTTL)
	}

	if c.RateLimitRPS < 0 || c.RateLimitBurst < 0 {
		return fmt.Errorf("RATE_LIMIT_RPS and RATE_LIMIT_BURST must not be negative")
	}

	if c.CSRFCookieName == "" || c.CSRFHeaderName == "" {
		return fmt.Errorf("CSRF_COOKIE_NAME and CSRF_HEADER_NAME must not be empty")
	}

	// Production environment requires strong secrets
	if c.IsProduction() {
		if u.Scheme != "https" {
			return fmt.Errorf("API_BASE_URL must use https in production")
		}

		if c.SessionSecret == "" || c.SessionSecret == "change-this-in-production" {
			return fmt.Errorf("SESSION_SECRET must be set to a strong random value in production")
		}

		if len(c.SessionSecret) < 32 {
			return fmt.Errorf("SESSION_SECRET must be at least 32 characters in production (got %d)", len(c.SessionSecret))
		}

		if c.OAuthClientID == "" {
			return fmt.Errorf("OAUTH_CLIENT_ID must be set in production")
		}
	} else if c.SessionSecret == "" {
		// Development/staging: provide default if not set
		c.SessionSecret = "dev-secret-not-for-production"
		log.Println("Using default SESSION_SECRET for development")
	}

	return nil
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Environment == "production" || c.Environment == "prod"
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development" || c.Environment == "dev" || c.Environment == ""
}

// SessionPath is where the logged-in session is persisted.
func (c *Config) SessionPath() string {
	return filepath.Join(c.StateDir, "session.json")
}

// CookiePath is where the cookie jar is persisted.
func (c *Config) CookiePath() string {
	return filepath.Join(c.StateDir, "cookies.json")
}

func defaultStateDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".campus-market"
	}
	return filepath.Join(home, ".campus-market")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
		log.Printf("Invalid %s=%q, using %s", key, value, defaultValue)
	}
	return defaultValue
}

func getBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
		log.Printf("Invalid %s=%q, using %g", key, value, defaultValue)
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
		log.Printf("Invalid %s=%q, using %d", key, value, defaultValue)
	}
	return defaultValue
}
