// Package types defines the core interfaces and structs shared by servicewrap.
// It describes the contract of the external lifecycle collaborator that creates and
// destroys containers, together with the values exchanged with it.
//
// Key components:
//   - Lifecycle: Interface implemented by the Docker and testcontainers drivers.
//   - Instance: Handle to a started container owned by a service wrapper.
//   - StartRequest: Everything a driver needs to launch a container.
//   - ExecResult: Exit code and output of a command run inside an instance.
//   - State: Lifecycle state of a service wrapper.
//
// Usage example:
//
//	lc, _ := container.NewClient(container.ClientOptions{})
//	inst, err := lc.Start(ctx, types.StartRequest{Image: "nginx:1.27", Ports: []nat.Port{"80/tcp"}})
//	if err == nil {
//	    defer lc.Stop(ctx, inst, 10*time.Second)
//	}
package types
