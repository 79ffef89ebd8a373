package notifications

import (
	"time"
)

// Status is a health verdict of one service.
type Status struct {
	Image    string    // Image reference including version.
	Endpoint string    // Published address, empty when unknown.
	Healthy  bool      // Probe verdict.
	Time     time.Time // When the verdict was taken; set by Update when zero.
}

// Options configures a Notifier.
type Options struct {
	Template string        // text/template rendered with a Status; DefaultTemplate when empty.
	Title    string        // Title passed to services that support one.
	Delay    time.Duration // Delay before each send.
	Stdout   bool          // Log shoutrrr output to stdout instead of logrus trace.
}

// DefaultTemplate renders a one-line transition message.
const DefaultTemplate = `{{.Image}} is {{if .Healthy}}healthy{{else}}unhealthy{{end}}` +
	`{{with .Endpoint}} at {{.}}{{end}} ({{.Time.Format "2006-01-02 15:04:05"}})`
