package container

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/sirupsen/logrus"

	cerrdefs "github.com/containerd/errdefs"
	dockerContainer "github.com/docker/docker/api/types/container"
	dockerClient "github.com/docker/docker/client"
	dockerStdcopy "github.com/docker/docker/pkg/stdcopy"

	"github.com/nicholas-fedor/servicewrap/pkg/types"
)

// defaultStopSignal is sent to running containers when no other signal is configured.
const defaultStopSignal = "SIGTERM"

// client is the concrete implementation of the types.Lifecycle interface.
//
// It wraps the Docker API client and applies custom behavior via ClientOptions.
type client struct {
	api dockerClient.APIClient
	ClientOptions
}

// ClientOptions configures the behavior of the Docker lifecycle client.
type ClientOptions struct {
	PullPolicy    PullPolicy // When to pull images; defaults to PullMissing.
	StopSignal    string     // Signal sent on stop; defaults to the image's or SIGTERM.
	RemoveVolumes bool       // Remove anonymous volumes together with the container.
	Host          string     // Address for mapped ports; derived from the daemon host when empty.
	Platform      string     // Optional "os/arch[/variant]" passed to create, e.g. "linux/amd64".
}

// NewClient initializes a new Docker lifecycle client.
//
// It configures the client using environment variables (e.g., DOCKER_HOST, DOCKER_API_VERSION) and validates
// a forced API version, falling back to autonegotiation if the daemon rejects it.
//
// Parameters:
//   - opts: Options to customize container management behavior.
//
// Returns:
//   - types.Lifecycle: Initialized client instance.
//   - error: Non-nil if the client cannot be created or the pull policy is invalid.
func NewClient(opts ClientOptions) (types.Lifecycle, error) {
	ctx := context.Background()

	if opts.PullPolicy == "" {
		opts.PullPolicy = PullMissing
	}

	if err := opts.PullPolicy.Validate(); err != nil {
		return nil, err
	}

	if _, err := parsePlatform(opts.Platform); err != nil {
		return nil, err
	}

	// Initialize client with autonegotiation, ignoring DOCKER_API_VERSION initially.
	cli, err := dockerClient.NewClientWithOpts(
		dockerClient.FromEnv,
		dockerClient.WithAPIVersionNegotiation(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errClientInitFailed, err)
	}

	// Apply forced API version if set and accepted by the daemon.
	if version := strings.Trim(os.Getenv("DOCKER_API_VERSION"), "\""); version != "" {
		pinned, err := dockerClient.NewClientWithOpts(
			dockerClient.FromEnv,
			dockerClient.WithVersion(version),
		)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", errClientInitFailed, err)
		}

		if _, err := pinned.Ping(ctx); err != nil && strings.Contains(err.Error(), "page not found") {
			logrus.WithFields(logrus.Fields{
				"version":  version,
				"error":    err,
				"endpoint": "/_ping",
			}).Warn("Invalid API version; falling back to autonegotiation")
			cli.NegotiateAPIVersion(ctx)
		} else {
			cli = pinned
		}
	} else {
		cli.NegotiateAPIVersion(ctx)
	}

	logrus.WithFields(logrus.Fields{
		"client_version": cli.ClientVersion(),
		"daemon_host":    cli.DaemonHost(),
	}).Debug("Initialized Docker client")

	return client{api: cli, ClientOptions: opts}, nil
}

// Logs returns the combined stdout and stderr output of the instance.
//
// Parameters:
//   - ctx: Context for the request.
//   - inst: Instance to read logs from.
//
// Returns:
//   - string: Demultiplexed log output.
//   - error: Non-nil if the log stream cannot be opened or read.
func (c client) Logs(ctx context.Context, inst types.Instance) (string, error) {
	id, err := instanceID(inst)
	if err != nil {
		return "", err
	}

	reader, err := c.api.ContainerLogs(ctx, id, dockerContainer.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", errReadLogsFailed, err)
	}
	defer reader.Close()

	var output bytes.Buffer

	// Both streams go to the same buffer to keep their interleaving.
	if _, err := dockerStdcopy.StdCopy(&output, &output, reader); err != nil {
		return "", fmt.Errorf("%w: %w", errReadLogsFailed, err)
	}

	return output.String(), nil
}

// MappedPort returns the host port bound to a container port.
//
// Parameters:
//   - ctx: Context for the request.
//   - inst: Instance to inspect.
//   - port: Container port, e.g. "9011/tcp".
//
// Returns:
//   - string: Host port.
//   - error: Non-nil if the container cannot be inspected or the port is not published.
func (c client) MappedPort(ctx context.Context, inst types.Instance, port nat.Port) (string, error) {
	id, err := instanceID(inst)
	if err != nil {
		return "", err
	}

	info, err := c.api.ContainerInspect(ctx, id)
	if err != nil {
		return "", fmt.Errorf("%w: %w", errInspectContainerFailed, err)
	}

	if info.NetworkSettings == nil {
		return "", fmt.Errorf("%w: %s", errPortNotMapped, port)
	}

	for _, binding := range info.NetworkSettings.Ports[port] {
		if binding.HostPort != "" {
			return binding.HostPort, nil
		}
	}

	return "", fmt.Errorf("%w: %s", errPortNotMapped, port)
}

// Host returns the address under which published ports are reachable.
//
// Local sockets map to localhost; remote daemons map to their hostname.
func (c client) Host(_ context.Context, _ types.Instance) (string, error) {
	if c.ClientOptions.Host != "" {
		return c.ClientOptions.Host, nil
	}

	return hostFromDaemon(c.api.DaemonHost())
}

// hostFromDaemon derives the published-port address from a daemon host URL.
func hostFromDaemon(daemonHost string) (string, error) {
	parsed, err := url.Parse(daemonHost)
	if err != nil {
		return "", fmt.Errorf("%w: %w", errInvalidDaemonHost, err)
	}

	switch parsed.Scheme {
	case "unix", "npipe", "":
		return "localhost", nil
	default:
		if parsed.Hostname() == "" {
			return "", fmt.Errorf("%w: %s", errInvalidDaemonHost, daemonHost)
		}

		return parsed.Hostname(), nil
	}
}

// waitContext returns a context bounded by timeout, or the parent when timeout is zero.
func waitContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, timeout)
}

// isNotFound reports whether the daemon answered with a not-found error.
func isNotFound(err error) bool {
	return cerrdefs.IsNotFound(err)
}
