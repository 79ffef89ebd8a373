// Package api wires the status and metrics endpoints of a wrapped service into the HTTP API.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/nicholas-fedor/servicewrap/pkg/api"
	metricsAPI "github.com/nicholas-fedor/servicewrap/pkg/api/metrics"
	"github.com/nicholas-fedor/servicewrap/pkg/api/status"
)

// errStartFailed indicates the HTTP API server could not be started.
var errStartFailed = errors.New("failed to start HTTP API")

// New builds the HTTP API for a service.
//
// The status endpoint is registered when source is set and the metrics endpoint when gatherer is
// set. Both sit behind the bearer token when one is given.
//
// Parameters:
//   - addr: Listen address, e.g. ":8080".
//   - token: Bearer token, empty to disable authentication.
//   - source: Service whose status is served, or nil.
//   - gatherer: Prometheus gatherer served on /metrics, or nil.
//   - server: Optional server replacing the default http.Server.
//
// Returns:
//   - *api.API: API with the handlers registered.
func New(
	addr, token string,
	source status.Source,
	gatherer prometheus.Gatherer,
	server ...api.HTTPServer,
) *api.API {
	httpAPI := api.New(token, addr, server...)

	if source != nil {
		statusHandler := status.New(source)
		httpAPI.RegisterHandler(statusHandler.Path, statusHandler)
	}

	if gatherer != nil {
		metricsHandler := metricsAPI.New(gatherer)
		httpAPI.RegisterHandler(metricsHandler.Path, metricsHandler.Handle)
	}

	return httpAPI
}

// SetupAndStartAPI builds the HTTP API and starts it in the background.
//
// The server shuts down when ctx is cancelled. Parameters are those of New.
//
// Returns:
//   - error: Non-nil if the server could not be started.
func SetupAndStartAPI(
	ctx context.Context,
	addr, token string,
	source status.Source,
	gatherer prometheus.Gatherer,
	server ...api.HTTPServer,
) error {
	httpAPI := New(addr, token, source, gatherer, server...)

	if err := httpAPI.Start(ctx, false); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logrus.WithError(err).Error("Failed to start API")

		return fmt.Errorf("%w: %w", errStartFailed, err)
	}

	return nil
}
