package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/xavierca1/lead-funnel/internal/infra/worker"
)

// Check probes one dependency. A nil Check means "not configured".
type Check func(ctx context.Context) error

type SchedulerStatus interface {
	State() worker.State
}

type HealthHandler struct {
	Checks    map[string]Check
	Scheduler SchedulerStatus
	Transport string
	StartTime time.Time
}

type HealthResponse struct {
	Status       string            `json:"status"`
	Version      string            `json:"version"`
	Uptime       string            `json:"uptime"`
	Dependencies map[string]string `json:"dependencies"`
	Scheduler    *worker.State     `json:"scheduler,omitempty"`
}

const Version = "1.0.0"

func NewHealthHandler(checks map[string]Check, scheduler SchedulerStatus, transport string) *HealthHandler {
	return &HealthHandler{
		Checks:    checks,
		Scheduler: scheduler,
		Transport: transport,
		StartTime: time.Now(),
	}
}

func (h *HealthHandler) Handle(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	deps := make(map[string]string, len(h.Checks)+1)
	status := "healthy"

	for name, check := range h.Checks {
		if check == nil {
			deps[name] = "not configured"
			continue
		}
		if err := check(ctx); err != nil {
			deps[name] = fmt.Sprintf("unhealthy: %v", err)
			status = "degraded"
			continue
		}
		deps[name] = "healthy"
	}
	deps["mail"] = h.Transport

	response := HealthResponse{
		Status:       status,
		Version:      Version,
		Uptime:       time.Since(h.StartTime).Round(time.Second).String(),
		Dependencies: deps,
	}
	if h.Scheduler != nil {
		st := h.Scheduler.State()
		response.Scheduler = &st
		if !st.Running {
			response.Status = "degraded"
		}
	}

	code := http.StatusOK
	if response.Status == "degraded" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, response)
}
