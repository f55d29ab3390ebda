package handler

import (
	"context"
	"net/http"
	"time"
)

// Pinger checks connectivity of a backing service
type Pinger interface {
	Health(ctx context.Context) error
}

// DashboardCounter reports how many dashboards are live
type DashboardCounter interface {
	Len() int
}

// HealthHandler handles health check requests
type HealthHandler struct {
	store      Pinger
	dashboards DashboardCounter
	version    string
}

// NewHealthHandler creates a new health handler. store may be nil when the
// secure store lives in memory.
func NewHealthHandler(store Pinger, dashboards DashboardCounter, version string) *HealthHandler {
	return &HealthHandler{
		store:      store,
		dashboards: dashboards,
		version:    version,
	}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status     string            `json:"status"`
	Version    string            `json:"version"`
	Checks     map[string]string `json:"checks"`
	Uptime     string            `json:"uptime,omitempty"`
	Dashboards int               `json:"dashboards"`
}

var startTime = time.Now()

// GetHealth handles GET /health
func (h *HealthHandler) GetHealth(w http.ResponseWriter, r *http.Request) {
	checks := map[string]string{"api": "healthy"}
	status := "ok"

	if h.store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := h.store.Health(ctx); err != nil {
			checks["store"] = "unhealthy: " + err.Error()
			status = "degraded"
		} else {
			checks["store"] = "healthy"
		}
	}

	httpStatus := http.StatusOK
	if status == "degraded" {
		httpStatus = http.StatusServiceUnavailable
	}

	respondJSON(w, HealthResponse{
		Status:     status,
		Version:    h.version,
		Uptime:     time.Since(startTime).String(),
		Checks:     checks,
		Dashboards: h.dashboards.Len(),
	}, httpStatus)
}

// GetReadiness handles GET /health/ready
func (h *HealthHandler) GetReadiness(w http.ResponseWriter, r *http.Request) {
	if h.store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := h.store.Health(ctx); err != nil {
			respondError(w, "store not ready", http.StatusServiceUnavailable)
			return
		}
	}

	respondJSON(w, map[string]string{"status": "ready"}, http.StatusOK)
}

// GetLiveness handles GET /health/live
func GetLiveness(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, map[string]string{"status": "alive"}, http.StatusOK)
}
