// Package container implements the servicewrap lifecycle collaborator on top of the Docker Engine API.
// It pulls images, creates and starts containers with published ports, executes commands inside them,
// collects their logs, and stops and removes them again.
//
// Key components:
//   - NewClient: Builds a types.Lifecycle from DOCKER_HOST, DOCKER_TLS_VERIFY and DOCKER_API_VERSION.
//   - ClientOptions: Pull policy, stop signal, volume removal and host override.
//   - instance: The types.Instance handle returned by Start.
//
// Usage example:
//
//	lc, err := container.NewClient(container.ClientOptions{PullPolicy: container.PullMissing})
//	if err != nil {
//	    logrus.WithError(err).Fatal("Docker is not available")
//	}
//	inst, err := lc.Start(ctx, types.StartRequest{Image: "nginx:1.27", Ports: []nat.Port{"80/tcp"}})
//	port, _ := lc.MappedPort(ctx, inst, "80/tcp")
//	defer lc.Stop(ctx, inst, 10*time.Second)
//
// The package talks to the daemon through docker/docker client libraries, resolves registry
// credentials through the registry package, and logs through logrus.
package container
