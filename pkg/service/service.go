package service

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"net"
	"reflect"
	"slices"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/docker/go-connections/nat"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/nicholas-fedor/servicewrap/pkg/probe"
	"github.com/nicholas-fedor/servicewrap/pkg/types"
)

// Labels set on every instance started by a Service.
const (
	LabelSession = "dev.servicewrap.session" // Unique per wrapper.
	LabelImage   = "dev.servicewrap.image"   // Image reference including version.
)

// Backoff bounds used by WaitUntilHealthy.
const (
	waitInitialInterval = 100 * time.Millisecond
	waitMaxInterval     = 2 * time.Second
)

// Service binds a fixed image and version to a lifecycle-managed container.
//
// A Service owns at most one instance at a time: none before Start, none after a successful
// Stop. All methods are safe for concurrent use; Start and Stop are serialized.
type Service struct {
	lifecycle      types.Lifecycle
	desc           Descriptor
	probe          probe.Probe
	observers      []Observer
	startupTimeout time.Duration
	stopTimeout    time.Duration
	session        string

	opMu     sync.Mutex // Serializes Start and Stop.
	mu       sync.RWMutex
	state    types.State
	instance types.Instance
}

// New builds a service wrapper. It does not start anything.
//
// Parameters:
//   - lifecycle: Collaborator that starts and stops containers.
//   - image: Image repository without tag, e.g. "ghcr.io/navikt/mock-oauth2-server".
//   - port: Service port, "9011" or "9011/tcp".
//   - opts: Options such as WithVersion and WithProbe.
//
// Returns:
//   - *Service: Wrapper in the unstarted state.
//   - error: *ConfigurationError matching ErrConfiguration for invalid values.
func New(lifecycle types.Lifecycle, image string, port string, opts ...Option) (*Service, error) {
	if isNil(lifecycle) {
		return nil, &ConfigurationError{Field: "lifecycle", Value: "<nil>", Err: errNoLifecycle}
	}

	svc := &Service{
		lifecycle:   lifecycle,
		desc:        Descriptor{Image: image, Version: DefaultVersion},
		stopTimeout: DefaultStopTimeout,
		session:     uuid.NewString(),
		state:       types.StateUnstarted,
	}

	for _, opt := range opts {
		opt(svc)
	}

	if err := validateImage(image); err != nil {
		return nil, err
	}

	if err := validateVersion(image, svc.desc.Version); err != nil {
		return nil, err
	}

	parsed, err := parseServicePort(port)
	if err != nil {
		return nil, err
	}

	svc.desc.Port = parsed

	if err := validateHostPort(svc.desc.HostPort); err != nil {
		return nil, err
	}

	if svc.startupTimeout < 0 {
		return nil, &ConfigurationError{
			Field: "startup timeout",
			Value: svc.startupTimeout.String(),
			Err:   errNegativeTimeout,
		}
	}

	if svc.stopTimeout < 0 {
		return nil, &ConfigurationError{
			Field: "stop timeout",
			Value: svc.stopTimeout.String(),
			Err:   errNegativeTimeout,
		}
	}

	if svc.probe == nil {
		svc.probe = probe.HTTP{Port: svc.desc.Port, Path: "/"}
	}

	return svc, nil
}

// Descriptor returns a copy of the service configuration.
func (s *Service) Descriptor() Descriptor {
	return s.desc.clone()
}

// Session returns the unique session ID placed on the instance labels.
func (s *Service) Session() string {
	return s.session
}

// State returns the current lifecycle state.
func (s *Service) State() types.State {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.state
}

// Instance returns the handle of the running instance, or nil if none is held.
func (s *Service) Instance() types.Instance {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.instance
}

// Start launches the service through the lifecycle collaborator.
//
// Start returns once the collaborator reports the container as started, which does not imply
// readiness; use IsHealthy or WaitUntilHealthy for that. It is allowed from the unstarted,
// stopped and failed states.
//
// Parameters:
//   - ctx: Context for the launch, bounded further by WithStartupTimeout.
//
// Returns:
//   - error: ErrAlreadyStarted when starting or running, *LaunchError when the collaborator fails.
func (s *Service) Start(ctx context.Context) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	current := s.State()
	if !current.CanStart() {
		return fmt.Errorf("%w: state is %s", ErrAlreadyStarted, current)
	}

	clog := s.logger()
	s.transition(types.StateStarting, nil)

	if s.startupTimeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, s.startupTimeout)
		defer cancel()
	}

	clog.Debug("Starting service")

	start := time.Now()
	inst, err := s.lifecycle.Start(ctx, s.startRequest())
	duration := time.Since(start)

	s.notify(func(o Observer) { o.Started(s.Descriptor(), duration, err) })

	if err != nil {
		clog.WithError(err).Debug("Failed to start service")
		s.transition(types.StateFailed, nil)

		return &LaunchError{Image: s.desc.Reference(), Err: err}
	}

	s.transition(types.StateRunning, inst)

	clog.WithFields(logrus.Fields{
		"id":       inst.ID().ShortID(),
		"duration": duration,
	}).Info("Started service")

	return nil
}

// Stop terminates and removes the running instance.
//
// Stop is safe to call at any time. Without a held instance it only marks the service stopped,
// so calling it before Start, after a failed Start, or twice in a row returns nil.
//
// Parameters:
//   - ctx: Context for the teardown.
//
// Returns:
//   - error: *TeardownError if the collaborator fails; the handle is kept so Stop can be retried.
func (s *Service) Stop(ctx context.Context) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	inst := s.Instance()
	if inst == nil {
		if s.State() != types.StateStopped {
			s.transition(types.StateStopped, nil)
		}

		return nil
	}

	clog := s.logger().WithField("id", inst.ID().ShortID())
	clog.Debug("Stopping service")

	err := s.lifecycle.Stop(ctx, inst, s.stopTimeout)

	s.notify(func(o Observer) { o.Stopped(s.Descriptor(), err) })

	if err != nil {
		clog.WithError(err).Debug("Failed to stop service")

		return &TeardownError{
			Image:      s.desc.Reference(),
			InstanceID: inst.ID().ShortID(),
			Err:        err,
		}
	}

	s.transition(types.StateStopped, nil)
	clog.Info("Stopped service")

	return nil
}

// IsHealthy runs the readiness probe against the running instance.
//
// It returns false without probing unless the service is running. Probe failures are expected
// while the service warms up, so they are logged at debug level and reported as false.
func (s *Service) IsHealthy(ctx context.Context) bool {
	s.mu.RLock()
	state, inst := s.state, s.instance
	s.mu.RUnlock()

	if state != types.StateRunning || inst == nil {
		return false
	}

	start := time.Now()
	err := s.probe.Check(ctx, target{service: s, instance: inst})
	duration := time.Since(start)
	healthy := err == nil

	s.notify(func(o Observer) { o.Probed(s.Descriptor(), healthy, duration) })

	if err != nil {
		s.logger().WithError(err).Debug("Service is not healthy")
	}

	return healthy
}

// WaitUntilHealthy polls IsHealthy with exponential backoff until it succeeds or window elapses.
//
// Parameters:
//   - ctx: Context for the wait.
//   - window: Maximum time to wait. Zero or less probes exactly once.
//
// Returns:
//   - error: ErrNotRunning if the service stops running, ErrNotHealthy if the window elapses.
func (s *Service) WaitUntilHealthy(ctx context.Context, window time.Duration) error {
	if window <= 0 {
		if s.State() != types.StateRunning {
			return ErrNotRunning
		}

		if !s.IsHealthy(ctx) {
			return ErrNotHealthy
		}

		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, window)
	defer cancel()

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = waitInitialInterval
	policy.MaxInterval = waitMaxInterval
	policy.MaxElapsedTime = window

	attempts := 0
	operation := func() error {
		attempts++

		if s.State() != types.StateRunning {
			return backoff.Permanent(ErrNotRunning)
		}

		if !s.IsHealthy(ctx) {
			return ErrNotHealthy
		}

		return nil
	}

	err := backoff.Retry(operation, backoff.WithContext(policy, ctx))

	clog := s.logger().WithField("attempts", attempts)
	if err == nil {
		clog.Debug("Service is healthy")

		return nil
	}

	clog.WithError(err).Debug("Stopped waiting for service")

	switch {
	case errors.Is(err, ErrNotRunning):
		return err
	case errors.Is(err, ErrNotHealthy):
		return fmt.Errorf("%w within %s", ErrNotHealthy, window)
	default:
		// The window or the caller's context ran out while waiting.
		return fmt.Errorf("%w: %w", ErrNotHealthy, err)
	}
}

// Run starts the service, calls fn, and stops the service on every exit path.
//
// Launch errors are returned after the cleanup Stop. An error from fn is returned as is, and a
// teardown failure during that cleanup is only logged. After fn succeeds, a teardown failure is
// returned. A panic in fn is re-raised after the service has been stopped.
//
// Parameters:
//   - ctx: Context for start, fn and stop. Cancellation does not skip the teardown.
//   - fn: Work to run while the service is up.
//
// Returns:
//   - error: Launch, fn or teardown error as described above.
func (s *Service) Run(ctx context.Context, fn func(ctx context.Context, svc *Service) error) (err error) {
	if err := s.Start(ctx); err != nil {
		if errors.Is(err, ErrAlreadyStarted) {
			return err
		}

		if stopErr := s.Stop(context.WithoutCancel(ctx)); stopErr != nil {
			s.logger().WithError(stopErr).Warn("Failed to clean up after launch error")
		}

		return err
	}

	defer func() {
		recovered := recover()

		stopErr := s.Stop(context.WithoutCancel(ctx))

		switch {
		case recovered != nil:
			if stopErr != nil {
				s.logger().WithError(stopErr).Warn("Failed to clean up after panic")
			}

			panic(recovered)
		case stopErr == nil:
		case err != nil:
			s.logger().WithError(stopErr).Warn("Failed to clean up after error")
		default:
			err = stopErr
		}
	}()

	return fn(ctx, s)
}

// Endpoint returns the "host:port" address of the service port.
func (s *Service) Endpoint(ctx context.Context) (string, error) {
	inst := s.Instance()
	if inst == nil {
		return "", ErrNotRunning
	}

	return s.endpoint(ctx, inst, s.desc.Port)
}

// Logs returns the combined output of the running instance.
func (s *Service) Logs(ctx context.Context) (string, error) {
	inst := s.Instance()
	if inst == nil {
		return "", ErrNotRunning
	}

	return s.lifecycle.Logs(ctx, inst)
}

// Exec runs a command inside the running instance.
func (s *Service) Exec(ctx context.Context, cmd []string) (types.ExecResult, error) {
	inst := s.Instance()
	if inst == nil {
		return types.ExecResult{}, ErrNotRunning
	}

	return s.lifecycle.Exec(ctx, inst, cmd)
}

// endpoint resolves the published address of a container port.
func (s *Service) endpoint(ctx context.Context, inst types.Instance, port nat.Port) (string, error) {
	host, err := s.lifecycle.Host(ctx, inst)
	if err != nil {
		return "", err
	}

	mapped, err := s.lifecycle.MappedPort(ctx, inst, port)
	if err != nil {
		return "", err
	}

	return net.JoinHostPort(host, mapped), nil
}

// startRequest builds the request forwarded to the collaborator.
func (s *Service) startRequest() types.StartRequest {
	labels := maps.Clone(s.desc.Labels)
	if labels == nil {
		labels = map[string]string{}
	}

	labels[LabelSession] = s.session
	labels[LabelImage] = s.desc.Reference()

	req := types.StartRequest{
		Image:  s.desc.Reference(),
		Name:   s.desc.Name,
		Env:    maps.Clone(s.desc.Env),
		Cmd:    slices.Clone(s.desc.Cmd),
		Ports:  []nat.Port{s.desc.Port},
		Labels: labels,
	}

	if s.desc.HostPort != "" {
		req.HostPorts = map[nat.Port]string{s.desc.Port: s.desc.HostPort}
	}

	return req
}

// transition moves to a new state and sets the held instance, then informs observers.
func (s *Service) transition(to types.State, inst types.Instance) {
	s.mu.Lock()
	from := s.state
	s.state = to
	s.instance = inst
	s.mu.Unlock()

	s.logger().WithField("from", from.String()).Trace("State changed")
	s.notify(func(o Observer) { o.StateChanged(s.Descriptor(), from, to) })
}

// notify calls fn for every registered observer.
func (s *Service) notify(fn func(Observer)) {
	for _, observer := range s.observers {
		fn(observer)
	}
}

func (s *Service) logger() *logrus.Entry {
	return logrus.WithFields(logrus.Fields{
		"image": s.desc.Reference(),
		"state": s.State().String(),
	})
}

// target binds probes to one instance of a service.
type target struct {
	service  *Service
	instance types.Instance
}

// Endpoint resolves a container port; the empty port is the service port.
func (t target) Endpoint(ctx context.Context, port nat.Port) (string, error) {
	if port == "" {
		port = t.service.desc.Port
	}

	return t.service.endpoint(ctx, t.instance, port)
}

func (t target) Exec(ctx context.Context, cmd []string) (types.ExecResult, error) {
	return t.service.lifecycle.Exec(ctx, t.instance, cmd)
}

// isNil reports whether v is nil or an interface holding a nil pointer, map, slice, func or channel.
func isNil(v any) bool {
	if v == nil {
		return true
	}

	switch rv := reflect.ValueOf(v); rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return rv.IsNil()
	default:
		return false
	}
}
