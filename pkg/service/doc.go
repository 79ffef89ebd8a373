// Package service provides the service wrapper: a fixed container image and version bound to a
// lifecycle-managed object with a service-specific readiness check.
//
// The wrapper does not run containers itself. It holds a types.Lifecycle collaborator, such as
// the Docker client from pkg/container or the testcontainers provider, and delegates launch and
// teardown to it.
//
// Key components:
//   - Service: Start, Stop, IsHealthy, WaitUntilHealthy and the scoped Run helper.
//   - Descriptor: Immutable image, version, port and environment of a wrapped service.
//   - Option: Functional options for New.
//   - ConfigurationError, LaunchError, TeardownError: Error kinds matching ErrConfiguration,
//     ErrLaunch and ErrTeardown.
//   - Observer: Hook for metrics on state changes, starts, stops and probes.
//
// Usage example:
//
//	svc, err := service.New(lc, "ghcr.io/navikt/mock-oauth2-server", "9011",
//	    service.WithVersion("2.1.10"),
//	    service.WithProbe(probe.HTTP{Path: "/default/jwks", RequiredKeys: []string{"keys"}}),
//	)
//	if err != nil {
//	    return err
//	}
//	return svc.Run(ctx, func(ctx context.Context, svc *service.Service) error {
//	    endpoint, err := svc.Endpoint(ctx)
//	    ...
//	})
package service
