package health

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"time"

	"github.com/hydr0g3nz/ecom_inventory_service/pkg/logger"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
)

// Check represents a single health check function.
type Check func(ctx context.Context) error

// Health runs a registry of named checks and exposes them over plain
// net/http, since this core has no REST API surface otherwise.
type Health struct {
	logger    logger.Logger
	startTime time.Time
	checks    map[string]Check
}

// NewHealth creates a Health registry. Callers register checks with
// RegisterCheck, or use the DatabaseCheck/KafkaCheck/RedisCheck helpers
// below to build the standard three.
func NewHealth(log logger.Logger) *Health {
	return &Health{
		logger:    log,
		startTime: time.Now(),
		checks:    make(map[string]Check),
	}
}

// RegisterCheck registers a new health check under name.
func (h *Health) RegisterCheck(name string, check Check) {
	h.checks[name] = check
}

// DatabaseCheck pings db with a bounded timeout.
func DatabaseCheck(db *sql.DB) Check {
	return func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		return db.PingContext(ctx)
	}
}

// KafkaCheck dials the first reachable broker to verify the cluster is
// up, without subscribing to any topic.
func KafkaCheck(brokers []string) Check {
	return func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		var lastErr error
		for _, addr := range brokers {
			conn, err := (&kafka.Dialer{Timeout: 2 * time.Second}).DialContext(ctx, "tcp", addr)
			if err == nil {
				conn.Close()
				return nil
			}
			lastErr = err
		}
		return lastErr
	}
}

// RedisCheck pings client with a bounded timeout.
func RedisCheck(client *redis.Client) Check {
	return func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		return client.Ping(ctx).Err()
	}
}

func (h *Health) runChecks(ctx context.Context) map[string]error {
	results := make(map[string]error, len(h.checks))
	for name, check := range h.checks {
		results[name] = check(ctx)
	}
	return results
}

// LivenessHandler always reports alive: it proves the process is
// scheduling goroutines, not that its dependencies are reachable.
func (h *Health) LivenessHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

// ReadinessHandler reports ready only if every registered check passes,
// used by the orchestrator to gate traffic to this instance.
func (h *Health) ReadinessHandler(w http.ResponseWriter, r *http.Request) {
	results := h.runChecks(r.Context())

	details := make(map[string]string, len(results))
	ready := true
	for name, err := range results {
		if err != nil {
			ready = false
			details[name] = err.Error()
			h.logger.Warn("readiness check failed", "check", name, "error", err)
			continue
		}
		details[name] = "ok"
	}

	status := http.StatusOK
	body := map[string]interface{}{"status": "ready", "checks": details}
	if !ready {
		status = http.StatusServiceUnavailable
		body["status"] = "not ready"
	}
	writeJSON(w, status, body)
}

// RegisterHandlers mounts /healthz (liveness) and /readyz (readiness) on
// mux.
func (h *Health) RegisterHandlers(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", h.LivenessHandler)
	mux.HandleFunc("/readyz", h.ReadinessHandler)
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
