// Package scheduling runs periodic readiness probes of a started service using cron specifications.
// It manages probe concurrency and blocks until the process is asked to shut down.
package scheduling

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron"
	"github.com/sirupsen/logrus"
)

// probeWaitTimeout bounds how long shutdown waits for a running probe.
const probeWaitTimeout = 60 * time.Second

// errInvalidSchedule indicates the cron specification could not be parsed.
var errInvalidSchedule = errors.New("invalid probe schedule")

// WaitForRunningProbe waits for any currently running probe to complete before proceeding with shutdown.
//
// Parameters:
//   - ctx: The context for cancellation, allowing early shutdown on context timeout.
//   - lock: The channel used to synchronize probes, ensuring only one runs at a time.
func WaitForRunningProbe(ctx context.Context, lock chan bool) {
	logrus.Debug("Checking lock status before shutdown.")

	if len(lock) == 0 {
		select {
		case <-lock:
			logrus.Debug("Lock acquired, probe finished.")
		case <-time.After(probeWaitTimeout):
			logrus.Warn("Timeout waiting for running probe to finish, proceeding with shutdown.")
		case <-ctx.Done():
			logrus.Debug("Context cancelled while waiting for running probe.")
		}
	} else {
		logrus.Debug("No probe running, lock available.")
	}
}

// RunProbesOnSchedule executes probe according to the cron specification until shutdown.
//
// It returns when ctx is cancelled or the process receives SIGINT or SIGTERM. An empty
// scheduleSpec schedules nothing and only waits for shutdown. Runs that would overlap a still
// running probe are skipped.
//
// Parameters:
//   - ctx: The context controlling the scheduler's lifecycle.
//   - scheduleSpec: Cron expression (with seconds) or descriptor such as "@every 30s".
//   - lock: A channel ensuring only one probe runs at a time, or nil to create a new one.
//   - probe: Function performing one probe.
//   - started: Optional callback receiving the time of the first scheduled run, zero when none.
//
// Returns:
//   - error: Non-nil if the schedule is invalid, nil on shutdown.
func RunProbesOnSchedule(
	ctx context.Context,
	scheduleSpec string,
	lock chan bool,
	probe func(context.Context),
	started func(next time.Time),
) error {
	if lock == nil {
		lock = make(chan bool, 1)
		lock <- true
	}

	scheduler := cron.New()

	probeFunc := func() {
		select {
		case v := <-lock:
			defer func() { lock <- v }()

			probe(ctx)
		default:
			logrus.Debug("Skipped probe, another probe is still running.")
		}

		nextRuns := scheduler.Entries()
		if len(nextRuns) > 0 {
			logrus.Debug("Scheduled next probe: " + nextRuns[0].Next.String())
		}
	}

	if scheduleSpec != "" {
		if err := scheduler.AddFunc(scheduleSpec, probeFunc); err != nil {
			return fmt.Errorf("%w: %q: %w", errInvalidSchedule, scheduleSpec, err)
		}
	}

	var nextRun time.Time
	if entries := scheduler.Entries(); len(entries) > 0 {
		nextRun = entries[0].Schedule.Next(time.Now())
	}

	if started != nil {
		started(nextRun)
	}

	scheduler.Start()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(interrupt)

	select {
	case <-ctx.Done():
		logrus.Debug("Context canceled, stopping scheduler...")
	case sig := <-interrupt:
		logrus.WithField("signal", sig.String()).Debug("Received interrupt signal, stopping scheduler...")
	}

	scheduler.Stop()
	logrus.Debug("Waiting for running probe to be finished...")

	// ctx is already done here; the wait is bounded by probeWaitTimeout instead.
	WaitForRunningProbe(context.WithoutCancel(ctx), lock)

	logrus.Debug("Scheduler stopped and probes completed.")

	return nil
}
