// Package probe provides readiness checks for wrapped services.
//
// A probe inspects a running instance through a Target, which resolves published ports and
// runs commands inside the instance. Probes report readiness by returning nil; any failure is
// returned as an error wrapping ErrProbeFailed.
//
// Key components:
//   - HTTP: GET against a published port, optionally requiring keys in a JSON object body.
//   - Exec: command run inside the instance, healthy on exit code 0.
//   - Func: adapter for ad hoc checks.
//
// Usage example:
//
//	p := probe.HTTP{Port: "9011/tcp", Path: "/default/jwks", RequiredKeys: []string{"keys"}}
//	if err := p.Check(ctx, target); err != nil {
//	    logrus.WithError(err).Debug("Service not ready")
//	}
package probe
