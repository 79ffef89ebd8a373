package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/nicholas-fedor/servicewrap/pkg/service"
	"github.com/nicholas-fedor/servicewrap/pkg/types"
)

// DefaultTimeout bounds a hook command when Hooks.Timeout is not set.
const DefaultTimeout = time.Minute

// Errors for lifecycle hook execution.
var (
	// errPostStartFailed indicates the post-start command could not run or exited non-zero.
	errPostStartFailed = errors.New("post-start command execution failed")
	// errNonZeroExit indicates a hook command exited with a non-zero code.
	errNonZeroExit = errors.New("command exited with non-zero code")
)

// Executor runs commands inside a running service. *service.Service satisfies it.
type Executor interface {
	Descriptor() service.Descriptor
	Exec(ctx context.Context, cmd []string) (types.ExecResult, error)
}

// Hooks are the lifecycle commands of a service.
type Hooks struct {
	PostStart []string      // Run once the service is healthy; failure aborts the run.
	PreStop   []string      // Run before the service is stopped; failure is only logged.
	Timeout   time.Duration // Per-command timeout; defaults to DefaultTimeout.
}

// ExecutePostStartCommand runs the post-start hook of a service.
//
// Parameters:
//   - ctx: Context for the command.
//   - svc: Running service.
//   - hooks: Configured hooks.
//
// Returns:
//   - error: Non-nil if the command fails to run or exits non-zero, nil when skipped.
func ExecutePostStartCommand(ctx context.Context, svc Executor, hooks Hooks) error {
	clog := logrus.WithField("image", svc.Descriptor().Reference())

	if len(hooks.PostStart) == 0 {
		clog.Debug("No post-start command supplied. Skipping")

		return nil
	}

	clog.WithField("command", hooks.PostStart).Debug("Executing post-start command")

	if err := execute(ctx, svc, hooks.PostStart, hooks.Timeout); err != nil {
		clog.WithError(err).Debug("Post-start command failed")

		return fmt.Errorf("%w for %s: %w", errPostStartFailed, svc.Descriptor().Reference(), err)
	}

	clog.Debug("Post-start command executed")

	return nil
}

// ExecutePreStopCommand runs the pre-stop hook of a service.
//
// The service is stopped regardless of the outcome, so failures are only logged.
func ExecutePreStopCommand(ctx context.Context, svc Executor, hooks Hooks) {
	clog := logrus.WithField("image", svc.Descriptor().Reference())

	if len(hooks.PreStop) == 0 {
		clog.Debug("No pre-stop command supplied. Skipping")

		return
	}

	clog.WithField("command", hooks.PreStop).Debug("Executing pre-stop command")

	// The caller's context is usually cancelled by the time the service shuts down.
	if err := execute(context.WithoutCancel(ctx), svc, hooks.PreStop, hooks.Timeout); err != nil {
		clog.WithError(err).Warn("Pre-stop command failed")
	}
}

// execute runs one command with a timeout and turns a non-zero exit into an error.
func execute(ctx context.Context, svc Executor, command []string, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	result, err := svc.Exec(ctx, command)
	if err != nil {
		return err
	}

	if !result.Success() {
		logrus.WithField("output", result.Output).Trace("Hook command output")

		return fmt.Errorf("%w: %d", errNonZeroExit, result.ExitCode)
	}

	return nil
}
