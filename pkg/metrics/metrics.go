package metrics

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nicholas-fedor/servicewrap/pkg/service"
	"github.com/nicholas-fedor/servicewrap/pkg/types"
)

var metrics *Metrics

// errRegisterFailed indicates a collector could not be registered, usually because it already is.
var errRegisterFailed = errors.New("failed to register metric")

// Compile-time check that Metrics observes services.
var _ service.Observer = (*Metrics)(nil)

// Outcome label values.
const (
	resultSuccess = "success"
	resultFailure = "failure"
)

// EventKind identifies the lifecycle event carried by a Metric.
type EventKind int

// Lifecycle events recorded by Metrics.
const (
	EventStateChanged EventKind = iota
	EventStarted
	EventStopped
	EventProbed
)

// Metric is a single lifecycle event of a wrapped service.
type Metric struct {
	Kind     EventKind     // Event type.
	Image    string        // Image reference including version.
	State    types.State   // New state, for EventStateChanged.
	Failed   bool          // Whether a start or stop attempt failed.
	Healthy  bool          // Probe verdict, for EventProbed.
	Duration time.Duration // Duration of a start attempt or probe.
}

// Metrics handles processing and exposing service lifecycle metrics.
type Metrics struct {
	channel       chan *Metric             // Channel for queuing metrics.
	starts        *prometheus.CounterVec   // Launch attempts by image and result.
	stops         *prometheus.CounterVec   // Teardown attempts by image and result.
	probes        *prometheus.CounterVec   // Readiness probes by image and result.
	startDuration *prometheus.HistogramVec // Launch durations by image.
	probeDuration *prometheus.HistogramVec // Probe durations by image.
	running       *prometheus.GaugeVec     // 1 while a service is running.
	healthy       *prometheus.GaugeVec     // Verdict of the last probe.
	dropped       prometheus.Counter       // Counter for dropped metrics.
	stopCh        chan struct{}            // Channel for shutdown signaling.
	shutdownOnce  sync.Once                // Ensures shutdown is called only once.
	//nolint:containedctx
	ctx    context.Context    // Context for cancellation.
	cancel context.CancelFunc // Cancel function for the context.
}

// NewWithRegistry creates a new Metrics handler with a custom Prometheus registry.
//
// Parameters:
//   - registry: Prometheus registerer to use for metric registration.
//
// Returns:
//   - (*Metrics, error): Metrics handler with Prometheus metrics and goroutine, or an error if registration fails.
func NewWithRegistry(registry prometheus.Registerer) (*Metrics, error) {
	// channelBufferSize sets the metrics channel capacity.
	const channelBufferSize = 64

	ctx, cancel := context.WithCancel(context.Background())

	metrics := &Metrics{
		starts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "servicewrap_starts_total",
			Help: "Number of service launch attempts",
		}, []string{"image", "result"}),
		stops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "servicewrap_stops_total",
			Help: "Number of service teardown attempts",
		}, []string{"image", "result"}),
		probes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "servicewrap_probes_total",
			Help: "Number of readiness probes",
		}, []string{"image", "result"}),
		startDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "servicewrap_start_duration_seconds",
			Help:    "Duration of service launch attempts",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		}, []string{"image"}),
		probeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "servicewrap_probe_duration_seconds",
			Help:    "Duration of readiness probes",
			Buckets: prometheus.DefBuckets,
		}, []string{"image"}),
		running: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "servicewrap_service_running",
			Help: "Whether the service is in the running state",
		}, []string{"image"}),
		healthy: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "servicewrap_service_healthy",
			Help: "Verdict of the most recent readiness probe",
		}, []string{"image"}),
		dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "servicewrap_metrics_dropped_total",
			Help: "Number of metrics dropped due to full channel",
		}),
		channel: make(chan *Metric, channelBufferSize),
		stopCh:  make(chan struct{}),
		ctx:     ctx,
		cancel:  cancel,
	}

	metricsList := []prometheus.Collector{
		metrics.starts,
		metrics.stops,
		metrics.probes,
		metrics.startDuration,
		metrics.probeDuration,
		metrics.running,
		metrics.healthy,
		metrics.dropped,
	}
	for _, m := range metricsList {
		err := registry.Register(m)
		if err != nil {
			cancel()

			return nil, fmt.Errorf("%w: %w", errRegisterFailed, err)
		}
	}

	// Start goroutine to process metrics.
	go metrics.HandleUpdate()

	return metrics, nil
}

// Default initializes or returns the singleton Metrics handler. It panics on registration failure, such as duplicate registration against the default registry.
//
// Returns:
//   - *Metrics: Metrics handler with Prometheus metrics and goroutine.
func Default() *Metrics {
	if metrics != nil {
		return metrics
	}

	var err error

	metrics, err = NewWithRegistry(prometheus.DefaultRegisterer)
	if err != nil {
		panic(err)
	}

	return metrics
}

// QueueIsEmpty checks if the metrics channel is empty.
func (m *Metrics) QueueIsEmpty() bool {
	return len(m.channel) == 0
}

// Register attempts to enqueue a metric for processing.
// If the channel is full, the metric is dropped and the dropped counter is incremented.
//
// Parameters:
//   - metric: Metric to register.
func (m *Metrics) Register(metric *Metric) {
	select {
	case m.channel <- metric:
	default:
		m.dropped.Inc()
	}
}

// StateChanged records the running gauge of a service.
func (m *Metrics) StateChanged(desc service.Descriptor, _ types.State, to types.State) {
	m.Register(&Metric{Kind: EventStateChanged, Image: desc.Reference(), State: to})
}

// Started records a launch attempt.
func (m *Metrics) Started(desc service.Descriptor, duration time.Duration, err error) {
	m.Register(&Metric{Kind: EventStarted, Image: desc.Reference(), Failed: err != nil, Duration: duration})
}

// Stopped records a teardown attempt.
func (m *Metrics) Stopped(desc service.Descriptor, err error) {
	m.Register(&Metric{Kind: EventStopped, Image: desc.Reference(), Failed: err != nil})
}

// Probed records a readiness probe.
func (m *Metrics) Probed(desc service.Descriptor, healthy bool, duration time.Duration) {
	m.Register(&Metric{Kind: EventProbed, Image: desc.Reference(), Healthy: healthy, Duration: duration})
}

// Shutdown gracefully stops the metrics processing goroutine.
// It closes the stopCh channel and cancels the context to signal the goroutine to exit.
// This method is idempotent and can be called multiple times safely.
func (m *Metrics) Shutdown() {
	m.shutdownOnce.Do(func() {
		close(m.stopCh)
		m.cancel()
	})
}

// HandleUpdate processes metrics from the channel.
func (m *Metrics) HandleUpdate() {
	for {
		select {
		case change, ok := <-m.channel:
			if !ok {
				return
			}

			if change != nil {
				m.apply(change)
			}
		case <-m.stopCh:
			return
		case <-m.ctx.Done():
			return
		}
	}
}

// apply updates the collectors for one event.
func (m *Metrics) apply(change *Metric) {
	switch change.Kind {
	case EventStateChanged:
		m.running.WithLabelValues(change.Image).Set(boolValue(change.State == types.StateRunning))

		if change.State != types.StateRunning {
			m.healthy.WithLabelValues(change.Image).Set(0)
		}
	case EventStarted:
		m.starts.WithLabelValues(change.Image, result(!change.Failed)).Inc()
		m.startDuration.WithLabelValues(change.Image).Observe(change.Duration.Seconds())
	case EventStopped:
		m.stops.WithLabelValues(change.Image, result(!change.Failed)).Inc()
	case EventProbed:
		m.probes.WithLabelValues(change.Image, result(change.Healthy)).Inc()
		m.probeDuration.WithLabelValues(change.Image).Observe(change.Duration.Seconds())
		m.healthy.WithLabelValues(change.Image).Set(boolValue(change.Healthy))
	}
}

func result(success bool) string {
	if success {
		return resultSuccess
	}

	return resultFailure
}

func boolValue(value bool) float64 {
	if value {
		return 1
	}

	return 0
}
