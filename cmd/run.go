package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/nicholas-fedor/servicewrap/internal/api"
	"github.com/nicholas-fedor/servicewrap/internal/flags"
	"github.com/nicholas-fedor/servicewrap/internal/logging"
	"github.com/nicholas-fedor/servicewrap/internal/meta"
	"github.com/nicholas-fedor/servicewrap/internal/scheduling"
	"github.com/nicholas-fedor/servicewrap/pkg/lifecycle"
	"github.com/nicholas-fedor/servicewrap/pkg/metrics"
	"github.com/nicholas-fedor/servicewrap/pkg/notifications"
	"github.com/nicholas-fedor/servicewrap/pkg/service"
)

// newRunCommand creates the run subcommand.
func newRunCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start the service and keep it running until interrupted",
		Long: "\nStarts the service, waits until it is healthy and keeps it running until SIGINT or SIGTERM.\n" +
			"With --probe-schedule the service is re-probed periodically and health changes are sent to\n" +
			"the configured notification URLs.",
		Args: cobra.NoArgs,
		RunE: runService,
	}
}

// runService implements the run subcommand.
func runService(cmd *cobra.Command, _ []string) error {
	runCfg, err := flags.ReadRunConfig(cmd.Root().PersistentFlags())
	if err != nil {
		return err
	}

	var extra []service.Option
	if runCfg.MetricsAddr != "" {
		extra = append(extra, service.WithObserver(metrics.Default()))
	}

	svc, cfg, err := newService(cmd, extra...)
	if err != nil {
		return err
	}

	var notifier *notifications.Notifier
	if len(runCfg.NotificationURLs) > 0 {
		notifier, err = notifications.New(runCfg.NotificationURLs, notifications.Options{
			Template: runCfg.NotificationTemplate,
			Title:    runCfg.NotificationTitle,
			Delay:    runCfg.NotificationDelay,
			Stdout:   runCfg.NotificationStdout,
		})
		if err != nil {
			return fmt.Errorf("failed to set up notifications: %w", err)
		}

		defer notifier.Close()
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return svc.Run(ctx, func(ctx context.Context, svc *service.Service) error {
		return serve(ctx, svc, cfg, runCfg, notifier)
	})
}

// serve waits for the first healthy verdict and then keeps the service up until ctx ends.
func serve(
	ctx context.Context,
	svc *service.Service,
	cfg flags.ServiceConfig,
	runCfg flags.RunConfig,
	notifier *notifications.Notifier,
) error {
	desc := svc.Descriptor()

	if err := svc.WaitUntilHealthy(ctx, cfg.HealthWindow); err != nil {
		report(notifier, desc, "", false)

		return err
	}

	endpoint, err := svc.Endpoint(ctx)
	if err != nil {
		return err
	}

	if err := lifecycle.ExecutePostStartCommand(ctx, svc, cfg.Hooks); err != nil {
		return err
	}

	defer lifecycle.ExecutePreStopCommand(ctx, svc, cfg.Hooks)

	report(notifier, desc, endpoint, true)

	if runCfg.MetricsAddr != "" {
		if err := api.SetupAndStartAPI(ctx, runCfg.MetricsAddr, runCfg.APIToken, svc, prometheus.DefaultGatherer); err != nil {
			return err
		}
	}

	var names []string
	if notifier != nil {
		names = notifier.GetNames()
	}

	probeLock := make(chan bool, 1)
	probeLock <- true

	return scheduling.RunProbesOnSchedule(ctx, runCfg.ProbeSchedule, probeLock,
		func(ctx context.Context) {
			healthy := svc.IsHealthy(ctx)
			logrus.WithFields(logrus.Fields{
				"image":   desc.Reference(),
				"healthy": healthy,
			}).Info("Probed service")
			report(notifier, desc, endpoint, healthy)
		},
		func(next time.Time) {
			logging.WriteStartupMessage(false, logging.StartupInfo{
				Version:     meta.Version,
				Service:     desc,
				Endpoint:    endpoint,
				Notifiers:   names,
				NextProbe:   next,
				MetricsAddr: runCfg.MetricsAddr,
			})
		},
	)
}

// report forwards a health verdict to the notifier, if one is configured.
func report(notifier *notifications.Notifier, desc service.Descriptor, endpoint string, healthy bool) {
	if notifier == nil {
		return
	}

	notifier.Update(notifications.Status{
		Image:    desc.Reference(),
		Endpoint: endpoint,
		Healthy:  healthy,
	})
}
