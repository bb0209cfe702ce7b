package handler

import (
	"context"
	"net/http"
	"sort"

	"go.uber.org/zap"
)

// Pinger is any dependency with a liveness probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

// FeedStater reports the ready state of the live feed.
type FeedStater interface {
	FeedState() string
}

type HealthHandler struct {
	checks map[string]Pinger
	feed   FeedStater
	logger *zap.Logger
}

// NewHealthHandler takes named dependency checks. Nil entries are skipped.
func NewHealthHandler(checks map[string]Pinger, feed FeedStater, logger *zap.Logger) *HealthHandler {
	clean := make(map[string]Pinger, len(checks))
	for name, p := range checks {
		if p != nil {
			clean[name] = p
		}
	}
	return &HealthHandler{
		checks: clean,
		feed:   feed,
		logger: logger,
	}
}

// Check serves GET /health. A failing dependency degrades the service; a
// feed that is still connecting does not.
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	overallStatus := "healthy"
	results := make(map[string]string, len(h.checks)+1)

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if err := h.checks[name].Ping(r.Context()); err != nil {
			results[name] = "unhealthy"
			overallStatus = "degraded"
			h.logger.Warn("health check failed", zap.String("check", name), zap.Error(err))
			continue
		}
		results[name] = "healthy"
	}

	if h.feed != nil {
		results["feed"] = h.feed.FeedState()
	}

	statusCode := http.StatusOK
	if overallStatus == "degraded" {
		statusCode = http.StatusServiceUnavailable
	}
	writeJSON(w, statusCode, map[string]any{
		"status": overallStatus,
		"checks": results,
	})
}

// FeedStateFunc adapts a function to FeedStater.
type FeedStateFunc func() string

func (f FeedStateFunc) FeedState() string { return f() }
