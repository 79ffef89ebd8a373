// Package api provides the HTTP server used by servicewrap run.
//
// Key components:
//   - API: Manages server setup and endpoint registration, with optional bearer-token auth.
//   - RunHTTPServer: Serves until the context is cancelled, then shuts down gracefully.
//
// Usage example:
//
//	httpAPI := api.New("", ":8080")
//	httpAPI.RegisterHandler(metricsHandler.Path, metricsHandler.Handle)
//	if err := httpAPI.Start(ctx, false); err != nil {
//	    logrus.WithError(err).Error("API start failed")
//	}
package api
