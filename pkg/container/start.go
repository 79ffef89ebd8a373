package container

import (
	"context"
	"fmt"
	"strings"

	"github.com/docker/go-connections/nat"
	"github.com/sirupsen/logrus"

	dockerContainer "github.com/docker/docker/api/types/container"
	dockerStrslice "github.com/docker/docker/api/types/strslice"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"

	"github.com/nicholas-fedor/servicewrap/pkg/types"
)

// Start pulls the image if needed, then creates and starts a container for the request.
//
// If the container is created but fails to start (e.g. its host port is already bound),
// it is removed again so no orphan is left behind.
//
// Parameters:
//   - ctx: Context for the requests; its deadline bounds the whole launch.
//   - req: Container description.
//
// Returns:
//   - types.Instance: Handle of the started container.
//   - error: Non-nil if the image, create or start step fails.
func (c client) Start(ctx context.Context, req types.StartRequest) (types.Instance, error) {
	clog := logrus.WithFields(logrus.Fields{
		"image": req.Image,
		"name":  req.Name,
	})

	if err := c.ensureImage(ctx, req.Image); err != nil {
		return nil, err
	}

	config, hostConfig := buildCreateConfig(req)

	platform, err := parsePlatform(c.Platform)
	if err != nil {
		return nil, err
	}

	clog.Debug("Creating container")

	created, err := c.api.ContainerCreate(ctx, config, hostConfig, nil, platform, req.Name)
	if err != nil {
		clog.WithError(err).Debug("Failed to create container")

		return nil, fmt.Errorf("%w: %w", errCreateContainerFailed, err)
	}

	for _, warning := range created.Warnings {
		clog.WithField("id", types.InstanceID(created.ID).ShortID()).Warn(warning)
	}

	clog = clog.WithField("id", types.InstanceID(created.ID).ShortID())
	clog.Debug("Starting container")

	if err := c.api.ContainerStart(ctx, created.ID, dockerContainer.StartOptions{}); err != nil {
		clog.WithError(err).Debug("Failed to start container")

		// The caller's context may already be done; cleanup must still reach the daemon.
		cleanupCtx := context.WithoutCancel(ctx)
		if rmErr := c.api.ContainerRemove(cleanupCtx, created.ID, dockerContainer.RemoveOptions{
			Force:         true,
			RemoveVolumes: c.RemoveVolumes,
		}); rmErr != nil && !isNotFound(rmErr) {
			clog.WithError(rmErr).Warn("Failed to clean up container after start error")
		}

		return nil, fmt.Errorf("%w: %w", errStartContainerFailed, err)
	}

	clog.Info("Started container")

	return newInstance(created.ID, req.Name), nil
}

// buildCreateConfig translates a start request into Docker create configurations.
//
// Every requested port is published; ports without a fixed host binding get a random one.
func buildCreateConfig(req types.StartRequest) (*dockerContainer.Config, *dockerContainer.HostConfig) {
	exposed := nat.PortSet{}
	bindings := nat.PortMap{}

	publish := func(port nat.Port) {
		exposed[port] = struct{}{}
		bindings[port] = []nat.PortBinding{{HostPort: req.HostPorts[port]}}
	}

	for _, port := range req.Ports {
		publish(port)
	}

	for port := range req.HostPorts {
		if _, ok := exposed[port]; !ok {
			publish(port)
		}
	}

	config := &dockerContainer.Config{
		Image:        req.Image,
		Env:          req.EnvList(),
		ExposedPorts: exposed,
		Labels:       req.Labels,
	}

	if len(req.Cmd) > 0 {
		config.Cmd = dockerStrslice.StrSlice(req.Cmd)
	}

	hostConfig := &dockerContainer.HostConfig{
		PortBindings: bindings,
	}

	return config, hostConfig
}

// parsePlatform converts an "os/arch[/variant]" string into an OCI platform.
//
// An empty string yields nil, which lets the daemon pick its default platform.
func parsePlatform(platform string) (*ocispec.Platform, error) {
	if platform == "" {
		return nil, nil //nolint:nilnil // nil platform means daemon default
	}

	parts := strings.Split(platform, "/")
	if len(parts) < 2 || len(parts) > 3 || parts[0] == "" || parts[1] == "" {
		return nil, fmt.Errorf("%w: %q", errInvalidPlatform, platform)
	}

	parsed := &ocispec.Platform{OS: parts[0], Architecture: parts[1]}
	if len(parts) == 3 {
		parsed.Variant = parts[2]
	}

	return parsed, nil
}
