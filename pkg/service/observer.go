package service

import (
	"time"

	"github.com/nicholas-fedor/servicewrap/pkg/types"
)

// Observer receives lifecycle events of a Service.
//
// Callbacks run synchronously on the goroutine that triggered them, outside the wrapper's locks.
type Observer interface {
	// StateChanged is called after every state transition.
	StateChanged(desc Descriptor, from types.State, to types.State)
	// Started is called after each launch attempt with its duration and outcome.
	Started(desc Descriptor, duration time.Duration, err error)
	// Stopped is called after each teardown attempt of a held instance.
	Stopped(desc Descriptor, err error)
	// Probed is called after each readiness probe.
	Probed(desc Descriptor, healthy bool, duration time.Duration)
}
