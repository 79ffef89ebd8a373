package container

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	dockerContainer "github.com/docker/docker/api/types/container"

	"github.com/nicholas-fedor/servicewrap/pkg/types"
)

// stopPollInterval is the delay between container state checks while stopping.
const stopPollInterval = time.Second

// Stop stops and removes a container.
//
// A container that no longer exists counts as stopped, which keeps teardown idempotent.
//
// Parameters:
//   - ctx: Context for the requests.
//   - inst: Instance to stop.
//   - timeout: Duration to wait for the container to exit before forcing removal.
//
// Returns:
//   - error: Non-nil if stop or removal fails.
func (c client) Stop(ctx context.Context, inst types.Instance, timeout time.Duration) error {
	id, err := instanceID(inst)
	if err != nil {
		return err
	}

	clog := logrus.WithFields(logrus.Fields{
		"container": inst.Name(),
		"id":        inst.ID().ShortID(),
	})

	info, err := c.api.ContainerInspect(ctx, id)
	if err != nil {
		if isNotFound(err) {
			clog.Debug("Container already removed")

			return nil
		}

		clog.WithError(err).Debug("Failed to inspect container")

		return fmt.Errorf("%w: %w", errInspectContainerFailed, err)
	}

	if info.ContainerJSONBase != nil && info.State != nil && info.State.Running {
		signal := c.stopSignal(info)
		clog.WithField("signal", signal).Info("Stopping container")

		if err := c.api.ContainerKill(ctx, id, signal); err != nil && !isNotFound(err) {
			clog.WithError(err).Debug("Failed to stop container")

			return fmt.Errorf("%w: %w", errStopContainerFailed, err)
		}
	}

	return c.removeContainer(ctx, inst, timeout)
}

// stopSignal picks the configured signal, then the image's, then SIGTERM.
func (c client) stopSignal(info dockerContainer.InspectResponse) string {
	if c.StopSignal != "" {
		return c.StopSignal
	}

	if info.Config != nil && info.Config.StopSignal != "" {
		return info.Config.StopSignal
	}

	return defaultStopSignal
}

// removeContainer waits for a container to exit, force-removes it and confirms the removal.
func (c client) removeContainer(ctx context.Context, inst types.Instance, timeout time.Duration) error {
	id := string(inst.ID())
	clog := logrus.WithFields(logrus.Fields{
		"container": inst.Name(),
		"id":        inst.ID().ShortID(),
	})

	stopped, err := c.waitForStopOrTimeout(ctx, id, timeout)
	if err != nil {
		clog.WithError(err).Debug("Failed to wait for container stop")

		return err
	}

	if !stopped {
		clog.WithField("timeout", timeout).Warn("Container did not stop within timeout")
	}

	clog.Debug("Removing container")

	err = c.api.ContainerRemove(ctx, id, dockerContainer.RemoveOptions{
		Force:         true,
		RemoveVolumes: c.RemoveVolumes,
	})
	if err != nil {
		if isNotFound(err) {
			return nil // Container already gone.
		}

		clog.WithError(err).Debug("Failed to remove container")

		return fmt.Errorf("%w: %w", errRemoveContainerFailed, err)
	}

	// Confirm removal completed.
	gone, err := c.waitForStopOrTimeout(ctx, id, timeout)
	if err != nil {
		clog.WithError(err).Debug("Failed to confirm container removal")

		return err
	}

	if !gone {
		return fmt.Errorf("%w: %s (%s)", errContainerNotRemoved, inst.Name(), inst.ID().ShortID())
	}

	clog.Info("Removed container")

	return nil
}

// waitForStopOrTimeout polls a container until it is stopped or gone, or the wait time elapses.
//
// Returns:
//   - bool: True if stopped or gone, false if still running after waitTime.
//   - error: Non-nil if inspection fails for a reason other than not-found.
func (c client) waitForStopOrTimeout(ctx context.Context, id string, waitTime time.Duration) (bool, error) {
	deadline := time.After(waitTime)

	for {
		info, err := c.api.ContainerInspect(ctx, id)
		if err != nil {
			if isNotFound(err) {
				return true, nil // Container gone, treat as stopped.
			}

			return false, fmt.Errorf("%w: %w", errInspectContainerFailed, err)
		}

		if info.ContainerJSONBase == nil || info.State == nil || !info.State.Running {
			return true, nil
		}

		select {
		case <-deadline:
			return false, nil
		case <-ctx.Done():
			return false, fmt.Errorf("%w: %w", errInspectContainerFailed, ctx.Err())
		case <-time.After(stopPollInterval):
		}
	}
}
