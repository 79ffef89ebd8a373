package probe

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
)

// Exec probes readiness by running a command inside the instance.
//
// This is the in-container variant of an HTTP check, e.g. running curl against localhost, and
// succeeds when the command exits with code 0.
type Exec struct {
	Command []string
}

// Check runs the command and inspects its exit code.
//
// Parameters:
//   - ctx: Context for the command.
//   - target: Instance to run the command in.
//
// Returns:
//   - error: Non-nil wrapping ErrProbeFailed if the command cannot run or exits non-zero.
func (p Exec) Check(ctx context.Context, target Target) error {
	if len(p.Command) == 0 {
		return fmt.Errorf("%w: %w", ErrProbeFailed, errEmptyCommand)
	}

	clog := logrus.WithField("command", p.Command)
	clog.Debug("Running readiness command")

	result, err := target.Exec(ctx, p.Command)
	if err != nil {
		return fmt.Errorf("%w: %w: %w", ErrProbeFailed, errExecFailed, err)
	}

	if !result.Success() {
		clog.WithFields(logrus.Fields{
			"exit_code": result.ExitCode,
			"output":    result.Output,
		}).Debug("Readiness command failed")

		return fmt.Errorf("%w: %w: %d", ErrProbeFailed, errNonZeroExit, result.ExitCode)
	}

	return nil
}
