// Package status provides the HTTP handler reporting the state and health of a wrapped service.
package status

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/nicholas-fedor/servicewrap/pkg/service"
	"github.com/nicholas-fedor/servicewrap/pkg/types"
)

// Source is the service whose status is reported. *service.Service satisfies it.
type Source interface {
	Descriptor() service.Descriptor
	State() types.State
	Session() string
	IsHealthy(ctx context.Context) bool
	Endpoint(ctx context.Context) (string, error)
}

// Response is the JSON body served by the handler.
type Response struct {
	Image    string `json:"image"`
	State    string `json:"state"`
	Healthy  bool   `json:"healthy"`
	Endpoint string `json:"endpoint,omitempty"`
	Session  string `json:"session"`
}

// Handler serves the status of one service.
type Handler struct {
	Path   string
	Source Source
}

// New creates a status handler for the given service.
func New(source Source) *Handler {
	return &Handler{
		Path:   "/v1/status",
		Source: source,
	}
}

// ServeHTTP probes the service and writes its status.
//
// The response code is 200 when the service is healthy and 503 otherwise, so the endpoint can
// back load balancer health checks.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)

		return
	}

	desc := h.Source.Descriptor()
	response := Response{
		Image:   desc.Reference(),
		State:   h.Source.State().String(),
		Healthy: h.Source.IsHealthy(r.Context()),
		Session: h.Source.Session(),
	}

	if endpoint, err := h.Source.Endpoint(r.Context()); err == nil {
		response.Endpoint = endpoint
	}

	code := http.StatusOK
	if !response.Healthy {
		code = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)

	if err := json.NewEncoder(w).Encode(response); err != nil {
		logrus.WithError(err).Debug("Failed to write status response")
	}
}
