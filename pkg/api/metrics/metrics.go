// Package metrics provides the HTTP handler exposing Prometheus metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler is an HTTP handle for serving metric data.
type Handler struct {
	Path   string
	Handle http.Handler
}

// New creates a handler serving the collectors of gatherer in the Prometheus text format.
func New(gatherer prometheus.Gatherer) *Handler {
	return &Handler{
		Path:   "/metrics",
		Handle: promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}),
	}
}
