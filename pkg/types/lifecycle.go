package types

import (
	"context"
	"time"

	"github.com/docker/go-connections/nat"
)

// Lifecycle defines the interface of the external collaborator that actually
// creates and destroys containers on behalf of a service wrapper.
//
// Implementations are expected to be thin adapters over a real container runtime
// client and to hold no per-instance state beyond what the Instance carries.
type Lifecycle interface {
	// Start launches a container for the request and returns its handle.
	//
	// It returns once the runtime reports the process as launched, not necessarily ready.
	Start(ctx context.Context, req StartRequest) (Instance, error)

	// Stop terminates and removes the instance, waiting up to timeout for a graceful exit.
	//
	// An instance that no longer exists is treated as already stopped.
	Stop(ctx context.Context, instance Instance, timeout time.Duration) error

	// Logs returns the combined stdout and stderr output of the instance.
	Logs(ctx context.Context, instance Instance) (string, error)

	// Exec runs a command inside the instance and returns its exit code and output.
	Exec(ctx context.Context, instance Instance, cmd []string) (ExecResult, error)

	// MappedPort returns the host port bound to the given container port.
	MappedPort(ctx context.Context, instance Instance, port nat.Port) (string, error)

	// Host returns the address under which mapped ports are reachable.
	Host(ctx context.Context, instance Instance) (string, error)
}

// StartRequest describes a container to be launched by a Lifecycle.
type StartRequest struct {
	Image     string              // Fully qualified image reference including tag.
	Name      string              // Optional container name.
	Env       map[string]string   // Environment variables.
	Cmd       []string            // Command override, empty for the image default.
	Ports     []nat.Port          // Container ports to expose.
	HostPorts map[nat.Port]string // Fixed host bindings; unlisted ports get a random host port.
	Labels    map[string]string   // Container labels.
}

// EnvList renders the environment as KEY=VALUE pairs in a stable order.
//
// Returns:
//   - []string: Sorted environment entries.
func (r StartRequest) EnvList() []string {
	return sortedPairs(r.Env)
}

// ExecResult holds the outcome of a command executed inside an instance.
type ExecResult struct {
	ExitCode int    // Process exit code.
	Output   string // Combined, trimmed stdout and stderr.
}

// Success reports whether the command exited with code 0.
func (r ExecResult) Success() bool {
	return r.ExitCode == 0
}
