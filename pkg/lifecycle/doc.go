// Package lifecycle manages execution of lifecycle hooks for wrapped services.
// It runs a post-start command once the service is healthy and a pre-stop command before it is removed.
//
// Key components:
//   - Hooks: Commands and timeout configured for a service.
//   - Execute Functions: Handle hook execution (e.g., ExecutePostStartCommand).
//
// Usage example:
//
//	if err := lifecycle.ExecutePostStartCommand(ctx, svc, hooks); err != nil {
//	    logrus.WithError(err).Error("Post-start failed")
//	}
//	defer lifecycle.ExecutePreStopCommand(ctx, svc, hooks)
//
// The package runs commands through service.Service.Exec and uses logrus for logging.
package lifecycle
