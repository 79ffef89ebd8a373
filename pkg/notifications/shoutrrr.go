package notifications

import (
	"bytes"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
	"text/template"
	"time"

	"github.com/nicholas-fedor/shoutrrr"
	"github.com/sirupsen/logrus"

	shoutrrrTypes "github.com/nicholas-fedor/shoutrrr/pkg/types"
)

// LocalLog is a logrus logger for notification internals.
var LocalLog = logrus.WithField("notify", "no")

// Errors for notifier construction.
var (
	// errNoURLs indicates a notifier was requested without any service URL.
	errNoURLs = errors.New("no notification URLs configured")
	// errInitSender indicates shoutrrr rejected the configured URLs.
	errInitSender = errors.New("failed to initialize shoutrrr")
	// errParseTemplate indicates the notification template could not be parsed.
	errParseTemplate = errors.New("failed to parse notification template")
)

// router defines the interface for sending Shoutrrr notifications.
// It abstracts the underlying service implementation.
type router interface {
	Send(message string, params *shoutrrrTypes.Params) []error
}

// Notifier sends a message whenever the health verdict of a service changes.
type Notifier struct {
	Urls     []string
	Router   router
	template *template.Template
	params   *shoutrrrTypes.Params
	delay    time.Duration
	messages chan string
	done     chan bool

	mu     sync.Mutex
	last   map[string]bool
	closed bool
}

// GetScheme extracts the scheme part of a Shoutrrr URL.
// It returns "invalid" if no scheme is found.
func GetScheme(url string) string {
	schemeEnd := strings.Index(url, ":")
	if schemeEnd <= 0 {
		return "invalid"
	}

	return url[:schemeEnd]
}

// New creates a notifier for the given shoutrrr URLs and starts its sending goroutine.
//
// Parameters:
//   - urls: Shoutrrr service URLs, e.g. "slack://token@channel".
//   - opts: Template, title and delay.
//
// Returns:
//   - *Notifier: Started notifier; call Close to flush it.
//   - error: Non-nil if no URL is given, a URL is invalid, or the template does not parse.
func New(urls []string, opts Options) (*Notifier, error) {
	if len(urls) == 0 {
		return nil, errNoURLs
	}

	var logger shoutrrrTypes.StdLogger
	if opts.Stdout {
		logger = log.New(os.Stdout, ``, 0)
	} else {
		logger = log.New(logrus.StandardLogger().WriterLevel(logrus.TraceLevel), "Shoutrrr: ", 0)
	}

	sender, err := shoutrrr.NewSender(logger, urls...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errInitSender, err)
	}

	return newNotifier(urls, sender, opts)
}

// newNotifier wires a notifier around any router.
func newNotifier(urls []string, sender router, opts Options) (*Notifier, error) {
	tplString := opts.Template
	if tplString == "" {
		tplString = DefaultTemplate
	}

	tpl, err := template.New("notification").Parse(tplString)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errParseTemplate, err)
	}

	params := &shoutrrrTypes.Params{}
	if opts.Title != "" {
		params.SetTitle(opts.Title)
	}

	notifier := &Notifier{
		Urls:     urls,
		Router:   sender,
		template: tpl,
		params:   params,
		delay:    opts.Delay,
		messages: make(chan string, 1),
		done:     make(chan bool),
		last:     map[string]bool{},
	}

	go sendNotifications(notifier)

	return notifier, nil
}

// GetNames returns the notification service names derived from the URLs.
func (n *Notifier) GetNames() []string {
	names := make([]string, len(n.Urls))
	for i, u := range n.Urls {
		names[i] = GetScheme(u)
	}

	return names
}

// Update records a health verdict and queues a message if it differs from the previous one.
//
// The first verdict for an image is always sent. Verdicts arriving after Close are dropped.
//
// Returns:
//   - bool: True if a message was queued.
func (n *Notifier) Update(status Status) bool {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.closed {
		LocalLog.WithField("image", status.Image).Debug("Notifier closed, dropping health update")

		return false
	}

	previous, seen := n.last[status.Image]
	n.last[status.Image] = status.Healthy

	if seen && previous == status.Healthy {
		return false
	}

	if status.Time.IsZero() {
		status.Time = time.Now()
	}

	msg, err := n.buildMessage(status)
	if err != nil {
		LocalLog.WithError(err).Warn("Skipping notification due to template error")

		return false
	}

	n.messages <- msg

	return true
}

// Close prevents further messages from being queued and waits until all queued messages are sent.
func (n *Notifier) Close() {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()

		return
	}

	n.closed = true
	close(n.messages)
	n.mu.Unlock()

	LocalLog.Debug("Waiting for the notification goroutine to finish")

	<-n.done
}

// buildMessage renders a status with the configured template.
func (n *Notifier) buildMessage(status Status) (string, error) {
	var body bytes.Buffer

	if err := n.template.Execute(&body, status); err != nil {
		return "", fmt.Errorf("failed to execute notification template: %w", err)
	}

	return body.String(), nil
}

// sendNotifications processes queued messages and sends them via the router.
// It applies the configured delay between sends and logs errors locally.
func sendNotifications(notifier *Notifier) {
	for msg := range notifier.messages {
		time.Sleep(notifier.delay)
		errs := notifier.Router.Send(msg, notifier.params)

		for i, err := range errs {
			if err != nil {
				LocalLog.WithFields(logrus.Fields{
					"service": GetScheme(notifier.Urls[i]),
					"index":   i,
				}).WithError(err).Error("Failed to send shoutrrr notification")
			}
		}
	}

	notifier.done <- true
}
