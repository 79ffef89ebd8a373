// Package metrics provides Prometheus collectors for service wrapper lifecycle events.
//
// Metrics implements service.Observer, so it can be attached to any wrapper with
// service.WithObserver. Events are queued and applied by a background goroutine, so observers never
// block the lifecycle calls that emit them.
//
// Key components:
//   - Metrics: Collector set with event queue.
//   - Metric: A single queued lifecycle event.
//
// Usage example:
//
//	m := metrics.Default()
//	svc, err := service.New(lc, image, "9011", service.WithObserver(m))
//	defer m.Shutdown()
package metrics
