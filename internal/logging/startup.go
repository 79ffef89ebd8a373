// Package logging provides functions for logging startup information of a wrapped service.
// It handles the initialization messages, notifier setup logging, and probe schedule display.
package logging

import (
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/nicholas-fedor/servicewrap/internal/util"
	"github.com/nicholas-fedor/servicewrap/pkg/service"
)

// StartupInfo collects what is reported once a service is up.
type StartupInfo struct {
	Version     string             // Version of servicewrap.
	Service     service.Descriptor // Wrapped service.
	Endpoint    string             // Published host:port, empty when unknown.
	Notifiers   []string           // Names of configured notification services.
	NextProbe   time.Time          // First scheduled probe, zero when probes are not scheduled.
	MetricsAddr string             // Listen address of the HTTP API, empty when disabled.
}

// WriteStartupMessage logs startup information about the running service.
//
// Parameters:
//   - quiet: Suppress the message entirely.
//   - info: Values to report.
func WriteStartupMessage(quiet bool, info StartupInfo) {
	if quiet {
		return
	}

	startupLog := logrus.NewEntry(logrus.StandardLogger())

	startupLog.Info("Servicewrap ", info.Version)

	fields := logrus.Fields{"image": info.Service.Reference()}
	if info.Endpoint != "" {
		fields["endpoint"] = info.Endpoint
	}

	startupLog.WithFields(fields).Info("Service is running")

	LogNotifierInfo(startupLog, info.Notifiers)
	LogScheduleInfo(startupLog, info.NextProbe)

	if info.MetricsAddr != "" {
		startupLog.Info("The HTTP API is enabled at " + info.MetricsAddr + ".")
	}

	if logrus.IsLevelEnabled(logrus.TraceLevel) {
		startupLog.Warn(
			"Trace level enabled: log will include sensitive information as credentials and tokens",
		)
	}
}

// LogNotifierInfo logs the configured notification services, or that there are none.
func LogNotifierInfo(log *logrus.Entry, notifierNames []string) {
	if len(notifierNames) > 0 {
		log.Info("Using notifications: " + strings.Join(notifierNames, ", "))
	} else {
		log.Info("Using no notifications")
	}
}

// LogScheduleInfo logs when the next scheduled probe happens.
//
// Parameters:
//   - log: Entry to write to.
//   - sched: Time of the first scheduled probe, or zero if probes are not scheduled.
func LogScheduleInfo(log *logrus.Entry, sched time.Time) {
	if sched.IsZero() {
		log.Info("Scheduled probes are disabled.")

		return
	}

	until := util.FormatDuration(time.Until(sched))
	log.Info("Scheduling next probe: " + sched.Format("2006-01-02 15:04:05 -0700 MST"))
	log.Info("Note that the next probe will be performed in " + until)
}
