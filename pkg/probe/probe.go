package probe

import (
	"context"
	"errors"

	"github.com/docker/go-connections/nat"

	"github.com/nicholas-fedor/servicewrap/pkg/types"
)

// ErrProbeFailed is wrapped by every error returned from a probe.
var ErrProbeFailed = errors.New("readiness probe failed")

// Errors for probe checks.
var (
	// errUnexpectedStatus indicates the readiness endpoint answered with a non-2xx status.
	errUnexpectedStatus = errors.New("unexpected status code")
	// errRequestFailed indicates the readiness request could not be sent or read.
	errRequestFailed = errors.New("readiness request failed")
	// errNotJSONObject indicates the readiness body is not a JSON object.
	errNotJSONObject = errors.New("response body is not a JSON object")
	// errMissingKeys indicates the readiness body lacks required keys.
	errMissingKeys = errors.New("response body is missing required keys")
	// errEndpointUnavailable indicates the published address of the port could not be resolved.
	errEndpointUnavailable = errors.New("endpoint unavailable")
	// errNonZeroExit indicates the probe command exited with a non-zero code.
	errNonZeroExit = errors.New("command exited with non-zero code")
	// errExecFailed indicates the probe command could not be run.
	errExecFailed = errors.New("command could not be run")
	// errEmptyCommand indicates an exec probe was configured without a command.
	errEmptyCommand = errors.New("empty probe command")
)

// Target is the running instance a probe inspects.
type Target interface {
	// Endpoint returns the "host:port" address under which a container port is reachable.
	// An empty port resolves to the service's own port.
	Endpoint(ctx context.Context, port nat.Port) (string, error)
	// Exec runs a command inside the instance.
	Exec(ctx context.Context, cmd []string) (types.ExecResult, error)
}

// Probe checks whether a target is ready.
type Probe interface {
	Check(ctx context.Context, target Target) error
}

// Func adapts an ordinary function to the Probe interface.
type Func func(ctx context.Context, target Target) error

// Check calls f(ctx, target).
func (f Func) Check(ctx context.Context, target Target) error {
	return f(ctx, target)
}
