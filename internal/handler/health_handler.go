package handler

import (
	"context"
	"net/http"
	"os"
	"time"
)

// Health returns basic health check
func Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// HealthCheckResult represents the result of a health check
type HealthCheckResult struct {
	Status    string `json:"status"`
	LatencyMs int64  `json:"latency_ms,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Pinger is a storage backend that can be probed. *sql.DB implements it.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Ready reports whether the image directory can be written and, when db is
// not nil, whether the database answers.
func Ready(imageDir string, db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		checks := map[string]HealthCheckResult{
			"images": checkImageDir(ctx, imageDir),
		}
		if db != nil {
			checks["database"] = checkDatabase(ctx, db)
		}

		response := map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
			"checks":    checks,
		}

		allUp := true
		for _, check := range checks {
			if check.Status != "up" {
				allUp = false
			}
		}

		status := http.StatusOK
		if allUp {
			response["status"] = "ready"
		} else {
			response["status"] = "not_ready"
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, response)
	}
}

func checkImageDir(ctx context.Context, dir string) HealthCheckResult {
	start := time.Now()
	if err := ctx.Err(); err != nil {
		return HealthCheckResult{Status: "down", Error: err.Error()}
	}

	f, err := os.CreateTemp(dir, ".ready-*")
	if err != nil {
		return HealthCheckResult{Status: "down", Error: err.Error()}
	}
	name := f.Name()
	f.Close()
	_ = os.Remove(name)

	return HealthCheckResult{
		Status:    "up",
		LatencyMs: time.Since(start).Milliseconds(),
	}
}

func checkDatabase(ctx context.Context, db Pinger) HealthCheckResult {
	start := time.Now()
	if err := db.PingContext(ctx); err != nil {
		return HealthCheckResult{Status: "down", Error: err.Error()}
	}
	return HealthCheckResult{
		Status:    "up",
		LatencyMs: time.Since(start).Milliseconds(),
	}
}
