package service

import (
	"maps"
	"slices"
	"time"

	"github.com/nicholas-fedor/servicewrap/pkg/probe"
)

// DefaultStopTimeout is how long Stop waits for the instance to exit before forcing removal.
const DefaultStopTimeout = 10 * time.Second

// Option customizes a Service built by New.
type Option func(*Service)

// WithVersion sets the image tag. An empty version is rejected by New.
func WithVersion(version string) Option {
	return func(s *Service) {
		s.desc.Version = version
	}
}

// WithEnv adds environment variables, overriding earlier values for the same keys.
func WithEnv(env map[string]string) Option {
	return func(s *Service) {
		if s.desc.Env == nil {
			s.desc.Env = map[string]string{}
		}

		maps.Copy(s.desc.Env, env)
	}
}

// WithCmd overrides the image command.
func WithCmd(cmd ...string) Option {
	return func(s *Service) {
		s.desc.Cmd = slices.Clone(cmd)
	}
}

// WithLabels adds container labels. Labels reserved by the wrapper cannot be overridden.
func WithLabels(labels map[string]string) Option {
	return func(s *Service) {
		if s.desc.Labels == nil {
			s.desc.Labels = map[string]string{}
		}

		maps.Copy(s.desc.Labels, labels)
	}
}

// WithName sets a fixed container name.
func WithName(name string) Option {
	return func(s *Service) {
		s.desc.Name = name
	}
}

// WithHostPort binds the service port to a fixed host port instead of a random one.
func WithHostPort(port string) Option {
	return func(s *Service) {
		s.desc.HostPort = port
	}
}

// WithProbe replaces the default readiness probe, an HTTP GET of "/" on the service port.
func WithProbe(p probe.Probe) Option {
	return func(s *Service) {
		s.probe = detachProbe(p)
	}
}

// WithObserver registers an observer for lifecycle events. It may be given more than once.
func WithObserver(observer Observer) Option {
	return func(s *Service) {
		if observer != nil {
			s.observers = append(s.observers, observer)
		}
	}
}

// WithStartupTimeout bounds Start. Zero leaves Start bounded only by the caller's context.
func WithStartupTimeout(timeout time.Duration) Option {
	return func(s *Service) {
		s.startupTimeout = timeout
	}
}

// WithStopTimeout sets how long Stop waits for the instance to exit before forcing removal.
func WithStopTimeout(timeout time.Duration) Option {
	return func(s *Service) {
		s.stopTimeout = timeout
	}
}

// detachProbe copies the slices of the built-in probes so later changes by the caller have no effect.
func detachProbe(p probe.Probe) probe.Probe {
	switch v := p.(type) {
	case probe.HTTP:
		v.RequiredKeys = slices.Clone(v.RequiredKeys)

		return v
	case *probe.HTTP:
		if v == nil {
			return p
		}

		return detachProbe(*v)
	case probe.Exec:
		v.Command = slices.Clone(v.Command)

		return v
	case *probe.Exec:
		if v == nil {
			return p
		}

		return detachProbe(*v)
	default:
		return p
	}
}
