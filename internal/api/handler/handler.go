// Package handler provides HTTP handlers for all API endpoints.
// Handlers read through the store and trigger monitor runs; heavier reads
// are cached with ETags.
package handler

import (
	"net/http"
	"time"

	"github.com/speettolab/speetto-monitor/internal/api/respond"
	"github.com/speettolab/speetto-monitor/internal/cache"
	"github.com/speettolab/speetto-monitor/internal/config"
	"github.com/speettolab/speetto-monitor/internal/db"
	"github.com/speettolab/speetto-monitor/internal/monitor"
	"github.com/speettolab/speetto-monitor/internal/store"
)

// Handler holds shared dependencies for all endpoint handlers.
type Handler struct {
	store   store.Store
	monitor *monitor.Monitor
	pool    *db.Pool // nil when running on the in-memory store
	cache   *cache.Cache
	cfg     *config.Config
}

// New creates a Handler with shared dependencies.
func New(st store.Store, mon *monitor.Monitor, pool *db.Pool, c *cache.Cache, cfg *config.Config) *Handler {
	return &Handler{
		store:   st,
		monitor: mon,
		pool:    pool,
		cache:   c,
		cfg:     cfg,
	}
}

// Root serves API info at /.
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"name":    "Speetto Monitor API",
		"version": "1.0.0",
		"status":  "running",
		"endpoints": []string{
			"/api/v1/status",
			"/api/v1/check-now",
			"/api/v1/notification-logs",
		},
	})
}

// HealthCheck returns basic health status.
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// HealthCheckDB verifies database connectivity.
func (h *Handler) HealthCheckDB(w http.ResponseWriter, r *http.Request) {
	if h.pool == nil {
		respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
			"status":    "healthy",
			"database":  "not_configured",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
		return
	}
	if err := h.pool.HealthCheck(r.Context()); err != nil {
		respond.WriteJSONObject(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status":    "unhealthy",
			"database":  "disconnected",
			"error":     "Database connection check failed",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"database":  "connected",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// HealthCheckCache returns cache statistics.
func (h *Handler) HealthCheckCache(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"cache":     h.cache.Stats(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
