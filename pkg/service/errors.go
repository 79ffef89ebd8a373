package service

import (
	"errors"
	"fmt"
)

// Sentinel errors matched by errors.Is.
var (
	// ErrConfiguration indicates an invalid service descriptor or option.
	ErrConfiguration = errors.New("invalid service configuration")
	// ErrLaunch indicates the lifecycle collaborator could not start the service.
	ErrLaunch = errors.New("failed to launch service")
	// ErrTeardown indicates the lifecycle collaborator could not stop or remove the service.
	ErrTeardown = errors.New("failed to tear down service")
	// ErrAlreadyStarted indicates Start was called while the service is starting or running.
	ErrAlreadyStarted = errors.New("service already started")
	// ErrNotRunning indicates an operation that needs a running instance was called without one.
	ErrNotRunning = errors.New("service is not running")
	// ErrNotHealthy indicates the service did not become healthy within the wait window.
	ErrNotHealthy = errors.New("service did not become healthy")
)

// Errors describing invalid configuration values.
var (
	errNoLifecycle     = errors.New("lifecycle collaborator is required")
	errEmptyImage      = errors.New("image must not be empty")
	errImageHasTag     = errors.New("image must not carry a tag or digest, use WithVersion")
	errEmptyVersion    = errors.New("version must not be empty")
	errPortOutOfRange  = errors.New("port must be between 1 and 65535")
	errNegativeTimeout = errors.New("timeout must not be negative")
)

// ConfigurationError reports an invalid descriptor value detected by New.
type ConfigurationError struct {
	Field string // Name of the offending setting, e.g. "version".
	Value string // Offending value as given.
	Err   error  // Underlying cause.
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s: %s %q: %v", ErrConfiguration, e.Field, e.Value, e.Err)
}

// Is reports whether target is ErrConfiguration.
func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// LaunchError reports that the lifecycle collaborator failed to start the service.
type LaunchError struct {
	Image string // Image reference that was being launched.
	Err   error  // Error returned by the collaborator.
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("%s %s: %v", ErrLaunch, e.Image, e.Err)
}

// Is reports whether target is ErrLaunch.
func (e *LaunchError) Is(target error) bool {
	return target == ErrLaunch
}

func (e *LaunchError) Unwrap() error {
	return e.Err
}

// TeardownError reports that the lifecycle collaborator failed to stop or remove the instance.
//
// The wrapper keeps its instance handle after a TeardownError, so calling Stop again retries.
type TeardownError struct {
	Image      string // Image reference of the service.
	InstanceID string // Short ID of the instance that could not be removed.
	Err        error  // Error returned by the collaborator.
}

func (e *TeardownError) Error() string {
	return fmt.Sprintf("%s %s (%s): %v", ErrTeardown, e.Image, e.InstanceID, e.Err)
}

// Is reports whether target is ErrTeardown.
func (e *TeardownError) Is(target error) bool {
	return target == ErrTeardown
}

func (e *TeardownError) Unwrap() error {
	return e.Err
}
