package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/bakushin-github/bakushin.dev/internal/platform/httpx"
)

// BuildInfo describes the running binary.
type BuildInfo struct {
	Version   string
	StartedAt time.Time
}

// ReadinessCheck reports whether the service can serve traffic.
type ReadinessCheck func(ctx context.Context) error

// HealthHandlers serves /healthz and /readyz.
type HealthHandlers struct {
	build BuildInfo
	clock func() time.Time
	ready ReadinessCheck
}

// HealthOption customises HealthHandlers.
type HealthOption func(*HealthHandlers)

// WithHealthBuildInfo sets the reported build information.
func WithHealthBuildInfo(info BuildInfo) HealthOption {
	return func(h *HealthHandlers) { h.build = info }
}

// WithHealthClock overrides the clock used for uptime.
func WithHealthClock(clock func() time.Time) HealthOption {
	return func(h *HealthHandlers) {
		if clock != nil {
			h.clock = clock
		}
	}
}

// WithReadinessCheck sets the readiness probe.
func WithReadinessCheck(check ReadinessCheck) HealthOption {
	return func(h *HealthHandlers) { h.ready = check }
}

// NewHealthHandlers constructs the health endpoints.
func NewHealthHandlers(opts ...HealthOption) *HealthHandlers {
	h := &HealthHandlers{clock: time.Now}
	for _, opt := range opts {
		opt(h)
	}
	if h.build.StartedAt.IsZero() {
		h.build.StartedAt = h.clock()
	}
	return h
}

// Healthz reports liveness.
func (h *HealthHandlers) Healthz(w http.ResponseWriter, r *http.Request) {
	now := h.clock()
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"version":   h.build.Version,
		"uptime":    now.Sub(h.build.StartedAt).Round(time.Second).String(),
		"timestamp": now.UTC().Format(time.RFC3339),
	})
}

// Readyz reports readiness.
func (h *HealthHandlers) Readyz(w http.ResponseWriter, r *http.Request) {
	if h.ready != nil {
		if err := h.ready(r.Context()); err != nil {
			httpx.WriteError(r.Context(), w, httpx.NewError("not_ready", err.Error(), http.StatusServiceUnavailable))
			return
		}
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}
