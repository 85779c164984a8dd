package healthprobe

import (
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"time"
)

// HealthChecker provides health and readiness checks. Readiness is
// component based: the probe reports ready only once every registered
// component has been marked ready.
type HealthChecker struct {
	startTime time.Time

	mu         sync.RWMutex
	components map[string]bool
}

// New creates a new HealthChecker with no registered components.
func New() *HealthChecker {
	return &HealthChecker{
		startTime:  time.Now(),
		components: make(map[string]bool),
	}
}

// Register adds a component to the readiness set, initially not ready.
func (h *HealthChecker) Register(name string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.components[name] = false
}

// SetReady marks a component as ready (or not) to serve traffic.
// Unregistered components are registered implicitly.
func (h *HealthChecker) SetReady(name string, ready bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.components[name] = ready
}

// IsReady reports whether every registered component is ready. A probe
// with no registered components is not ready.
func (h *HealthChecker) IsReady() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if len(h.components) == 0 {
		return false
	}
	for _, ready := range h.components {
		if !ready {
			return false
		}
	}
	return true
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status  string   `json:"status"`
	Uptime  string   `json:"uptime"`
	Waiting []string `json:"waiting,omitempty"`
	Message string   `json:"message,omitempty"`
}

// Health returns an HTTP handler for liveness checks.
// Always returns 200 OK if the application is running.
func (h *HealthChecker) Health() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uptime := time.Since(h.startTime)
		resp := HealthResponse{
			Status: "healthy",
			Uptime: uptime.String(),
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(resp)
	}
}

// Ready returns an HTTP handler for readiness checks.
// Returns 200 OK if every component is ready, 503 otherwise with the
// names of the components still waiting.
func (h *HealthChecker) Ready() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !h.IsReady() {
			resp := HealthResponse{
				Status:  "not_ready",
				Waiting: h.waiting(),
				Message: "application is starting",
			}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(resp)
			return
		}

		uptime := time.Since(h.startTime)
		resp := HealthResponse{
			Status: "ready",
			Uptime: uptime.String(),
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(resp)
	}
}

func (h *HealthChecker) waiting() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var names []string
	for name, ready := range h.components {
		if !ready {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}
