package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/nicholas-fedor/servicewrap/pkg/lifecycle"
	"github.com/nicholas-fedor/servicewrap/pkg/service"
)

// newCheckCommand creates the check subcommand.
func newCheckCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Start the service, wait until it is healthy and remove it",
		Long: "\nStarts the service and waits up to --health-window for a healthy verdict. The container is\n" +
			"removed afterwards in every case. The exit code is non-zero if the service never became healthy.",
		Args: cobra.NoArgs,
		RunE: checkService,
	}
}

// checkService implements the check subcommand.
func checkService(cmd *cobra.Command, _ []string) error {
	svc, cfg, err := newService(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return svc.Run(ctx, func(ctx context.Context, svc *service.Service) error {
		if err := svc.WaitUntilHealthy(ctx, cfg.HealthWindow); err != nil {
			if logs, logErr := svc.Logs(ctx); logErr == nil {
				logrus.WithField("image", svc.Descriptor().Reference()).Debug("Service output:\n" + logs)
			}

			return err
		}

		endpoint, err := svc.Endpoint(ctx)
		if err != nil {
			return err
		}

		if err := lifecycle.ExecutePostStartCommand(ctx, svc, cfg.Hooks); err != nil {
			return err
		}

		lifecycle.ExecutePreStopCommand(ctx, svc, cfg.Hooks)

		_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s is healthy at %s\n", svc.Descriptor().Reference(), endpoint)

		return err
	})
}
