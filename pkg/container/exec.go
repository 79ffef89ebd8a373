package container

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	dockerContainer "github.com/docker/docker/api/types/container"
	dockerStdcopy "github.com/docker/docker/pkg/stdcopy"

	"github.com/nicholas-fedor/servicewrap/pkg/types"
)

// execPollInterval is the delay between exec status checks.
const execPollInterval = 250 * time.Millisecond

// Exec runs a command inside a container and waits for it to finish.
//
// Attaching starts the exec and streams its output. If the attach cannot be established the
// exec is started detached instead, and only its exit code is reported.
//
// Parameters:
//   - ctx: Context for the requests; cancel it to stop waiting.
//   - inst: Instance to run the command in.
//   - cmd: Command and arguments, not wrapped in a shell.
//
// Returns:
//   - types.ExecResult: Exit code and captured output.
//   - error: Non-nil if the exec cannot be created, started or inspected.
func (c client) Exec(ctx context.Context, inst types.Instance, cmd []string) (types.ExecResult, error) {
	id, err := instanceID(inst)
	if err != nil {
		return types.ExecResult{}, err
	}

	clog := logrus.WithField("container_id", inst.ID().ShortID())
	clog.WithField("command", cmd).Debug("Creating exec instance")

	exec, err := c.api.ContainerExecCreate(ctx, id, dockerContainer.ExecOptions{
		AttachStdout: true,
		AttachStderr: true,
		Cmd:          cmd,
	})
	if err != nil {
		clog.WithError(err).Debug("Failed to create exec instance")

		return types.ExecResult{}, fmt.Errorf("%w: %w", errCreateExecFailed, err)
	}

	clog = clog.WithField("exec_id", exec.ID)

	output, err := c.captureExecOutput(ctx, exec.ID)
	if err != nil {
		clog.WithError(err).Debug("Failed to attach to exec instance, starting detached")

		if err := c.api.ContainerExecStart(ctx, exec.ID, dockerContainer.ExecStartOptions{Detach: true}); err != nil {
			clog.WithError(err).Debug("Failed to start exec instance")

			return types.ExecResult{}, fmt.Errorf("%w: %w", errStartExecFailed, err)
		}
	}

	exitCode, err := c.waitForExec(ctx, exec.ID)
	if err != nil {
		return types.ExecResult{}, err
	}

	clog.WithFields(logrus.Fields{
		"exit_code": exitCode,
		"output":    output,
	}).Debug("Executed command")

	return types.ExecResult{ExitCode: exitCode, Output: output}, nil
}

// captureExecOutput attaches to an exec instance, which also starts it, and reads its output.
func (c client) captureExecOutput(ctx context.Context, execID string) (string, error) {
	response, err := c.api.ContainerExecAttach(ctx, execID, dockerContainer.ExecAttachOptions{})
	if err != nil {
		return "", err
	}
	defer response.Close()

	var output bytes.Buffer

	// The exec is already running once attached, so a broken stream only loses output.
	if _, err := dockerStdcopy.StdCopy(&output, &output, response.Reader); err != nil {
		logrus.WithError(err).WithField("exec_id", execID).Debug("Failed to read exec output")
	}

	return strings.TrimSpace(output.String()), nil
}

// waitForExec polls an exec instance until it is no longer running.
func (c client) waitForExec(ctx context.Context, execID string) (int, error) {
	for {
		inspect, err := c.api.ContainerExecInspect(ctx, execID)
		if err != nil {
			return 0, fmt.Errorf("%w: %w", errInspectExecFailed, err)
		}

		if !inspect.Running {
			return inspect.ExitCode, nil
		}

		select {
		case <-ctx.Done():
			return 0, fmt.Errorf("%w: %w", errInspectExecFailed, ctx.Err())
		case <-time.After(execPollInterval):
		}
	}
}
