package http

import (
	"net/http"

	apierrors "github.com/NIKPRIN6598/Cleaner-Selector/internal/errors"
)

// MetricsHandler exposes the Prometheus registry, or a 503 problem when the
// metric exporter is disabled.
type MetricsHandler struct {
	prometheus http.Handler
}

// NewMetricsHandler creates a new metrics handler. prom may be nil.
func NewMetricsHandler(prom http.Handler) *MetricsHandler {
	return &MetricsHandler{prometheus: prom}
}

// ServeHTTP handles GET /metrics
func (h *MetricsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.prometheus == nil {
		apierrors.NewProblemDetails(http.StatusServiceUnavailable, apierrors.TypeServiceDown,
			"Service Unavailable", "metric exporter is disabled", r.URL.Path).Write(w)
		return
	}
	h.prometheus.ServeHTTP(w, r)
}
