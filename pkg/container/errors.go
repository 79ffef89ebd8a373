package container

import (
	"errors"
)

// Errors for client construction in client.go.
var (
	// errClientInitFailed indicates the Docker client could not be created from the environment.
	errClientInitFailed = errors.New("failed to initialize Docker client")
	// errForeignInstance indicates an instance handle was not created by this client.
	errForeignInstance = errors.New("instance was not created by the Docker client")
)

// Errors for image operations in image.go.
var (
	// errInspectImageFailed indicates a failure to inspect an image from the Docker daemon.
	errInspectImageFailed = errors.New("failed to inspect image")
	// errPullImageFailed indicates a failure to pull an image from the registry.
	errPullImageFailed = errors.New("failed to pull image")
	// errImageNotPresent indicates the image is missing locally and the pull policy forbids pulling.
	errImageNotPresent = errors.New("image not present locally and pull policy is never")
	// errInvalidPullPolicy indicates an unknown pull policy was configured.
	errInvalidPullPolicy = errors.New("invalid pull policy")
)

// Errors for container start operations in start.go.
var (
	// errCreateContainerFailed indicates a failure to create a new container.
	errCreateContainerFailed = errors.New("failed to create container")
	// errStartContainerFailed indicates a failure to start a newly created container.
	errStartContainerFailed = errors.New("failed to start container")
	// errInvalidPlatform indicates the configured platform is not of the form os/arch[/variant].
	errInvalidPlatform = errors.New("invalid platform")
)

// Errors for container stop operations in stop.go.
var (
	// errInspectContainerFailed indicates a failure to inspect a container’s details.
	errInspectContainerFailed = errors.New("failed to inspect container")
	// errStopContainerFailed indicates a failure to stop a container with a signal.
	errStopContainerFailed = errors.New("failed to stop container")
	// errRemoveContainerFailed indicates a failure to remove a container from the host.
	errRemoveContainerFailed = errors.New("failed to remove container")
	// errContainerNotRemoved indicates a container was not removed after the stop operation.
	errContainerNotRemoved = errors.New("container not removed after timeout")
)

// Errors for exec operations in exec.go.
var (
	// errCreateExecFailed indicates a failure to create an exec instance in a container.
	errCreateExecFailed = errors.New("failed to create exec instance")
	// errStartExecFailed indicates a failure to start an exec instance in a container.
	errStartExecFailed = errors.New("failed to start exec instance")
	// errInspectExecFailed indicates a failure to inspect an exec instance’s status.
	errInspectExecFailed = errors.New("failed to inspect exec instance")
)

// Errors for log and port lookups in client.go.
var (
	// errReadLogsFailed indicates the log stream of a container could not be read.
	errReadLogsFailed = errors.New("failed to read container logs")
	// errPortNotMapped indicates the container port has no host binding.
	errPortNotMapped = errors.New("port is not mapped to the host")
	// errInvalidDaemonHost indicates the daemon host URL could not be parsed.
	errInvalidDaemonHost = errors.New("invalid daemon host")
)
