package testcontainer

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/sirupsen/logrus"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	cerrdefs "github.com/containerd/errdefs"
	tcexec "github.com/testcontainers/testcontainers-go/exec"

	"github.com/nicholas-fedor/servicewrap/pkg/types"
)

// DefaultWaitTimeout bounds the port wait strategy when Options.WaitForPorts is set.
const DefaultWaitTimeout = 60 * time.Second

// Options configures the testcontainers lifecycle provider.
type Options struct {
	AlwaysPull   bool          // Pull the image on every start.
	Platform     string        // Optional image platform, e.g. "linux/amd64".
	WaitForPorts bool          // Block Start until every exposed port accepts connections.
	WaitTimeout  time.Duration // Upper bound for the port wait; defaults to DefaultWaitTimeout.
}

// provider implements types.Lifecycle on top of testcontainers.GenericContainer.
type provider struct {
	Options
}

// instance is the handle returned by provider.Start.
type instance struct {
	container testcontainers.Container
	id        types.InstanceID
	name      string
}

// ID returns the container ID.
func (i *instance) ID() types.InstanceID { return i.id }

// Name returns the container name without the leading slash.
func (i *instance) Name() string { return i.name }

// NewProvider returns a lifecycle driver that launches containers through testcontainers-go.
//
// Parameters:
//   - opts: Pull, platform and wait settings.
//
// Returns:
//   - types.Lifecycle: Provider instance.
func NewProvider(opts Options) types.Lifecycle {
	if opts.WaitTimeout <= 0 {
		opts.WaitTimeout = DefaultWaitTimeout
	}

	return provider{Options: opts}
}

// Start creates and starts a container for the request.
//
// Parameters:
//   - ctx: Context for the operation.
//   - req: Container description.
//
// Returns:
//   - types.Instance: Handle of the started container.
//   - error: Non-nil if the container could not be started.
func (p provider) Start(ctx context.Context, req types.StartRequest) (types.Instance, error) {
	clog := logrus.WithField("image", req.Image)
	clog.Debug("Starting container with testcontainers")

	ctr, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: buildRequest(req, p.Options),
		Started:          true,
	})
	if err != nil {
		// A container that was created but failed to start is still returned and must be removed.
		if termErr := testcontainers.TerminateContainer(ctr); termErr != nil {
			clog.WithError(termErr).Warn("Failed to remove container after failed start")
		}

		return nil, fmt.Errorf("%w: %w", errStartFailed, err)
	}

	inst := &instance{container: ctr, id: types.InstanceID(ctr.GetContainerID())}
	inst.name = inst.id.ShortID()

	if info, err := ctr.Inspect(ctx); err == nil && info.Name != "" {
		inst.name = strings.TrimPrefix(info.Name, "/")
	}

	clog.WithFields(logrus.Fields{
		"container": inst.name,
		"id":        inst.id.ShortID(),
	}).Info("Started container")

	return inst, nil
}

// Stop terminates and removes the container.
//
// Parameters:
//   - ctx: Context for the operation.
//   - inst: Handle returned by Start.
//   - timeout: Grace period before the container is killed.
//
// Returns:
//   - error: Non-nil if the container could not be removed; a missing container is not an error.
func (p provider) Stop(ctx context.Context, inst types.Instance, timeout time.Duration) error {
	own, err := ownInstance(inst)
	if err != nil {
		return err
	}

	clog := logrus.WithFields(logrus.Fields{
		"container": own.name,
		"id":        own.id.ShortID(),
	})
	clog.WithField("timeout", timeout).Debug("Terminating container")

	if err := own.container.Terminate(ctx, testcontainers.StopTimeout(timeout)); err != nil {
		if cerrdefs.IsNotFound(err) {
			clog.Debug("Container already removed")

			return nil
		}

		return fmt.Errorf("%w: %w", errTerminateFailed, err)
	}

	clog.Info("Removed container")

	return nil
}

// Logs returns the demultiplexed stdout and stderr output of the container.
func (p provider) Logs(ctx context.Context, inst types.Instance) (string, error) {
	own, err := ownInstance(inst)
	if err != nil {
		return "", err
	}

	reader, err := own.container.Logs(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: %w", errLogsFailed, err)
	}
	defer reader.Close()

	logs, err := io.ReadAll(reader)
	if err != nil {
		return "", fmt.Errorf("%w: %w", errLogsFailed, err)
	}

	return string(logs), nil
}

// Exec runs a command inside the container and collects its exit code and output.
func (p provider) Exec(ctx context.Context, inst types.Instance, cmd []string) (types.ExecResult, error) {
	own, err := ownInstance(inst)
	if err != nil {
		return types.ExecResult{}, err
	}

	code, reader, err := own.container.Exec(ctx, cmd, tcexec.Multiplexed())
	if err != nil {
		return types.ExecResult{}, fmt.Errorf("%w: %w", errExecFailed, err)
	}

	output, err := io.ReadAll(reader)
	if err != nil {
		logrus.WithError(err).WithField("container", own.name).Debug("Failed to read exec output")
	}

	return types.ExecResult{ExitCode: code, Output: strings.TrimSpace(string(output))}, nil
}

// MappedPort returns the host port bound to the given container port.
func (p provider) MappedPort(ctx context.Context, inst types.Instance, port nat.Port) (string, error) {
	own, err := ownInstance(inst)
	if err != nil {
		return "", err
	}

	mapped, err := own.container.MappedPort(ctx, port)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", errPortLookupFailed, port, err)
	}

	return mapped.Port(), nil
}

// Host returns the address under which mapped ports are reachable.
func (p provider) Host(ctx context.Context, inst types.Instance) (string, error) {
	own, err := ownInstance(inst)
	if err != nil {
		return "", err
	}

	host, err := own.container.Host(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: %w", errHostLookupFailed, err)
	}

	return host, nil
}

// buildRequest translates a start request into a testcontainers request.
//
// Fixed host bindings use the "host:container/proto" form understood by ExposedPorts.
func buildRequest(req types.StartRequest, opts Options) testcontainers.ContainerRequest {
	exposed := make([]string, 0, len(req.Ports))
	strategies := make([]wait.Strategy, 0, len(req.Ports))

	for _, port := range req.Ports {
		spec := string(port)
		if hostPort := req.HostPorts[port]; hostPort != "" {
			spec = hostPort + ":" + spec
		}

		exposed = append(exposed, spec)
		strategies = append(strategies, wait.ForListeningPort(port))
	}

	request := testcontainers.ContainerRequest{
		Image:           req.Image,
		Name:            req.Name,
		Env:             req.Env,
		Cmd:             req.Cmd,
		Labels:          req.Labels,
		ExposedPorts:    exposed,
		AlwaysPullImage: opts.AlwaysPull,
		ImagePlatform:   opts.Platform,
	}

	if opts.WaitForPorts && len(strategies) > 0 {
		request.WaitingFor = wait.ForAll(strategies...).WithDeadline(opts.WaitTimeout)
	}

	return request
}

// ownInstance rejects handles that were not created by this provider.
func ownInstance(inst types.Instance) (*instance, error) {
	own, ok := inst.(*instance)
	if !ok || own == nil || own.container == nil {
		return nil, fmt.Errorf("%w: %T", errForeignInstance, inst)
	}

	return own, nil
}
