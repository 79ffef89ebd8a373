// Package testcontainer provides a types.Lifecycle backed by testcontainers-go.
//
// It is meant for test suites that already depend on testcontainers: containers get the
// library's session labels and are reaped by its resource reaper if the test process dies.
//
// Usage example:
//
//	lifecycle := testcontainer.NewProvider(testcontainer.Options{WaitForPorts: true})
//	svc, err := service.New(lifecycle, "nginx", "80")
package testcontainer
