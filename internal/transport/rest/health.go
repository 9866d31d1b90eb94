package rest

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"time"

	"github.com/frahmantamala/equipment-tracker/internal"
)

type HealthStatus string

const (
	HealthHealthy   HealthStatus = "healthy"
	HealthUnhealthy HealthStatus = "unhealthy"
)

type HealthResponse struct {
	Status     HealthStatus          `json:"status"`
	CheckedAt  time.Time             `json:"checked_at"`
	Components map[string]CheckEntry `json:"components"`
}

type CheckEntry struct {
	Status     HealthStatus `json:"status"`
	Message    string       `json:"message,omitempty"`
	CheckedAt  time.Time    `json:"checked_at"`
	DurationMs int64        `json:"duration_ms"`
}

// Checker probes one backing component.
type Checker func(ctx context.Context) error

type HealthHandler struct {
	checkers map[string]Checker
	timeout  time.Duration
}

// NewHealthHandler builds the health endpoints over named checkers, for
// example {"postgres": db.PingContext}.
func NewHealthHandler(checkers map[string]Checker) *HealthHandler {
	return &HealthHandler{checkers: checkers, timeout: 2 * time.Second}
}

// Ping only says the process is up.
func (h *HealthHandler) Ping(w http.ResponseWriter, r *http.Request) {
	writeHealthJSON(w, http.StatusOK, map[string]string{"status": "OK"})
}

// Health runs every checker and answers 503 if any of them fails.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := internal.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	names := make([]string, 0, len(h.checkers))
	for name := range h.checkers {
		names = append(names, name)
	}
	sort.Strings(names)

	resp := HealthResponse{
		Status:     HealthHealthy,
		Components: make(map[string]CheckEntry, len(names)),
	}
	for _, name := range names {
		start := time.Now()
		err := h.checkers[name](ctx)

		entry := CheckEntry{
			Status:     HealthHealthy,
			CheckedAt:  time.Now().UTC(),
			DurationMs: time.Since(start).Milliseconds(),
		}
		if err != nil {
			entry.Status = HealthUnhealthy
			entry.Message = err.Error()
			resp.Status = HealthUnhealthy
		}
		resp.Components[name] = entry
	}
	resp.CheckedAt = time.Now().UTC()

	status := http.StatusOK
	if resp.Status == HealthUnhealthy {
		status = http.StatusServiceUnavailable
	}
	writeHealthJSON(w, status, resp)
}

func writeHealthJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
