package testcontainer

import "errors"

var (
	// errStartFailed indicates testcontainers could not create or start the container.
	errStartFailed = errors.New("failed to start container")
	// errTerminateFailed indicates the container could not be stopped and removed.
	errTerminateFailed = errors.New("failed to terminate container")
	// errLogsFailed indicates the container's log stream could not be read.
	errLogsFailed = errors.New("failed to read container logs")
	// errExecFailed indicates a command could not be run inside the container.
	errExecFailed = errors.New("failed to execute command in container")
	// errPortLookupFailed indicates the host binding of a port could not be resolved.
	errPortLookupFailed = errors.New("failed to resolve mapped port")
	// errHostLookupFailed indicates the container host could not be resolved.
	errHostLookupFailed = errors.New("failed to resolve container host")
	// errForeignInstance indicates an instance handle created by another lifecycle driver.
	errForeignInstance = errors.New("instance was not started by this provider")
)
