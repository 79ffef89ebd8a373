package service_test

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
	"github.com/onsi/gomega/gbytes"
	"github.com/onsi/gomega/ghttp"
	"github.com/sirupsen/logrus"

	"github.com/nicholas-fedor/servicewrap/pkg/probe"
	"github.com/nicholas-fedor/servicewrap/pkg/service"
	"github.com/nicholas-fedor/servicewrap/pkg/types"
)

const testImage = "ghcr.io/navikt/mock-oauth2-server"

var _ = ginkgo.Describe("New", func() {
	var lifecycle *fakeLifecycle

	ginkgo.BeforeEach(func() {
		lifecycle = newFakeLifecycle("127.0.0.1", "49153")
	})

	ginkgo.It("should apply defaults without starting anything", func() {
		svc, err := service.New(lifecycle, testImage, "9011")
		gomega.Expect(err).NotTo(gomega.HaveOccurred())

		desc := svc.Descriptor()
		gomega.Expect(desc.Version).To(gomega.Equal(service.DefaultVersion))
		gomega.Expect(desc.Port).To(gomega.BeEquivalentTo("9011/tcp"))
		gomega.Expect(desc.Reference()).To(gomega.Equal(testImage + ":latest"))
		gomega.Expect(svc.State()).To(gomega.Equal(types.StateUnstarted))
		gomega.Expect(svc.Instance()).To(gomega.BeNil())
		gomega.Expect(svc.Session()).NotTo(gomega.BeEmpty())
		gomega.Expect(lifecycle.requests).To(gomega.BeEmpty())
	})

	ginkgo.It("should keep the descriptor immutable", func() {
		svc, err := service.New(lifecycle, testImage, "9011/tcp",
			service.WithEnv(map[string]string{"SERVER_PORT": "9011"}),
			service.WithCmd("java", "-jar", "app.jar"),
		)
		gomega.Expect(err).NotTo(gomega.HaveOccurred())

		desc := svc.Descriptor()
		desc.Env["SERVER_PORT"] = "1"
		desc.Cmd[0] = "sh"
		desc.Version = "mutated"

		gomega.Expect(svc.Descriptor().Env).To(gomega.HaveKeyWithValue("SERVER_PORT", "9011"))
		gomega.Expect(svc.Descriptor().Cmd[0]).To(gomega.Equal("java"))
		gomega.Expect(svc.Descriptor().Version).To(gomega.Equal(service.DefaultVersion))
	})

	ginkgo.It("should not share the command slice with the caller", func() {
		cmd := []string{"java", "-jar", "app.jar", "--port=9011"}
		svc, err := service.New(lifecycle, testImage, "9011", service.WithCmd(cmd...))
		gomega.Expect(err).NotTo(gomega.HaveOccurred())

		cmd[0] = "rm"

		gomega.Expect(svc.Descriptor().Cmd).To(gomega.Equal([]string{"java", "-jar", "app.jar", "--port=9011"}))

		gomega.Expect(svc.Start(context.Background())).To(gomega.Succeed())
		lifecycle.requests[0].Cmd[0] = "sh"

		gomega.Expect(svc.Descriptor().Cmd[0]).To(gomega.Equal("java"))
	})

	ginkgo.It("should give every wrapper its own session", func() {
		first, err := service.New(lifecycle, testImage, "9011")
		gomega.Expect(err).NotTo(gomega.HaveOccurred())
		second, err := service.New(lifecycle, testImage, "9011")
		gomega.Expect(err).NotTo(gomega.HaveOccurred())

		gomega.Expect(first.Session()).NotTo(gomega.Equal(second.Session()))
	})

	ginkgo.DescribeTable("should reject invalid configuration",
		func(image string, port string, field string, opts ...service.Option) {
			svc, err := service.New(lifecycle, image, port, opts...)
			gomega.Expect(svc).To(gomega.BeNil())
			gomega.Expect(err).To(gomega.MatchError(service.ErrConfiguration))

			var configErr *service.ConfigurationError
			gomega.Expect(errors.As(err, &configErr)).To(gomega.BeTrue())
			gomega.Expect(configErr.Field).To(gomega.Equal(field))
		},
		ginkgo.Entry("empty image", "", "9011", "image"),
		ginkgo.Entry("malformed image", "Not A Valid/Image", "9011", "image"),
		ginkgo.Entry("image with tag", testImage+":2.1.10", "9011", "image"),
		ginkgo.Entry("image with digest",
			testImage+"@sha256:4dbc5f9c07028a985e14d1393e849ea07f68804c4293050d5a641b138db72daa", "9011", "image"),
		ginkgo.Entry("empty version", testImage, "9011", "version", service.WithVersion("")),
		ginkgo.Entry("malformed version", testImage, "9011", "version", service.WithVersion("1.2.0 beta")),
		ginkgo.Entry("port zero", testImage, "0", "port"),
		ginkgo.Entry("port too large", testImage, "70000", "port"),
		ginkgo.Entry("port range", testImage, "8000-8010", "port"),
		ginkgo.Entry("non-numeric port", testImage, "http", "port"),
		ginkgo.Entry("empty port", testImage, "", "port"),
		ginkgo.Entry("host port", testImage, "9011", "host port", service.WithHostPort("x")),
		ginkgo.Entry("negative startup timeout", testImage, "9011", "startup timeout",
			service.WithStartupTimeout(-time.Second)),
		ginkgo.Entry("negative stop timeout", testImage, "9011", "stop timeout",
			service.WithStopTimeout(-time.Second)),
	)

	ginkgo.It("should reject a missing lifecycle collaborator", func() {
		_, err := service.New(nil, testImage, "9011")
		gomega.Expect(err).To(gomega.MatchError(service.ErrConfiguration))
	})

	ginkgo.It("should reject a typed nil lifecycle collaborator", func() {
		var typed *fakeLifecycle

		svc, err := service.New(typed, testImage, "9011")
		gomega.Expect(svc).To(gomega.BeNil())
		gomega.Expect(err).To(gomega.MatchError(service.ErrConfiguration))

		var configErr *service.ConfigurationError
		gomega.Expect(errors.As(err, &configErr)).To(gomega.BeTrue())
		gomega.Expect(configErr.Field).To(gomega.Equal("lifecycle"))
	})
})

var _ = ginkgo.Describe("the service wrapper", func() {
	var server *ghttp.Server
	var lifecycle *fakeLifecycle
	var observer *recordingObserver
	var ctx context.Context

	newService := func(opts ...service.Option) *service.Service {
		opts = append([]service.Option{service.WithObserver(observer)}, opts...)

		svc, err := service.New(lifecycle, testImage, "9011", opts...)
		gomega.Expect(err).NotTo(gomega.HaveOccurred())

		return svc
	}

	ginkgo.BeforeEach(func() {
		ctx = context.Background()
		server = ghttp.NewServer()
		server.SetAllowUnhandledRequests(true)
		server.SetUnhandledRequestStatusCode(http.StatusServiceUnavailable)

		host, port, err := net.SplitHostPort(server.Addr())
		gomega.Expect(err).NotTo(gomega.HaveOccurred())

		lifecycle = newFakeLifecycle(host, port)
		observer = &recordingObserver{}
	})

	ginkgo.AfterEach(func() {
		server.Close()
	})

	ginkgo.When("it was never started", func() {
		ginkgo.It("should stop without error and leave no instance", func() {
			svc := newService()

			gomega.Expect(svc.Stop(ctx)).To(gomega.Succeed())
			gomega.Expect(svc.Instance()).To(gomega.BeNil())
			gomega.Expect(svc.State()).To(gomega.Equal(types.StateStopped))
			gomega.Expect(lifecycle.stopCalls()).To(gomega.BeZero())
		})

		ginkgo.It("should report unhealthy without probing", func() {
			svc := newService()

			gomega.Expect(svc.IsHealthy(ctx)).To(gomega.BeFalse())
			gomega.Expect(server.ReceivedRequests()).To(gomega.BeEmpty())
			gomega.Expect(observer.probes).To(gomega.BeEmpty())
		})

		ginkgo.It("should refuse instance operations", func() {
			svc := newService()

			_, err := svc.Endpoint(ctx)
			gomega.Expect(err).To(gomega.MatchError(service.ErrNotRunning))
			_, err = svc.Logs(ctx)
			gomega.Expect(err).To(gomega.MatchError(service.ErrNotRunning))
			_, err = svc.Exec(ctx, []string{"true"})
			gomega.Expect(err).To(gomega.MatchError(service.ErrNotRunning))
			gomega.Expect(svc.WaitUntilHealthy(ctx, time.Second)).To(gomega.MatchError(service.ErrNotRunning))
		})
	})

	ginkgo.It("should go through a full lifecycle for a pinned version", func() {
		server.RouteToHandler("GET", "/", ghttp.RespondWith(http.StatusOK, "ok"))
		svc := newService(service.WithVersion("1.2.0"))

		gomega.Expect(svc.Start(ctx)).To(gomega.Succeed())
		gomega.Expect(svc.State()).To(gomega.Equal(types.StateRunning))
		gomega.Expect(svc.Instance()).NotTo(gomega.BeNil())
		gomega.Expect(lifecycle.requests).To(gomega.HaveLen(1))
		gomega.Expect(lifecycle.requests[0].Image).To(gomega.Equal(testImage + ":1.2.0"))

		gomega.Expect(svc.IsHealthy(ctx)).To(gomega.BeTrue())

		gomega.Expect(svc.Stop(ctx)).To(gomega.Succeed())
		gomega.Expect(svc.IsHealthy(ctx)).To(gomega.BeFalse())
		gomega.Expect(svc.Instance()).To(gomega.BeNil())
		gomega.Expect(lifecycle.runningCount()).To(gomega.BeZero())
		gomega.Expect(lifecycle.stopTimeouts).To(gomega.Equal([]time.Duration{service.DefaultStopTimeout}))
		gomega.Expect(observer.transitions).To(gomega.Equal([]string{
			"unstarted->starting",
			"starting->running",
			"running->stopped",
		}))
		gomega.Expect(observer.probes).To(gomega.Equal([]bool{true}))
	})

	ginkgo.It("should forward the descriptor to the collaborator", func() {
		svc := newService(
			service.WithName("keyset"),
			service.WithHostPort("19011"),
			service.WithEnv(map[string]string{"SERVER_PORT": "9011"}),
			service.WithCmd("--debug"),
			service.WithLabels(map[string]string{"team": "auth", service.LabelSession: "spoofed"}),
		)

		gomega.Expect(svc.Start(ctx)).To(gomega.Succeed())

		req := lifecycle.requests[0]
		gomega.Expect(req.Name).To(gomega.Equal("keyset"))
		gomega.Expect(req.Ports).To(gomega.ConsistOf(gomega.BeEquivalentTo("9011/tcp")))
		gomega.Expect(req.HostPorts).To(gomega.HaveKeyWithValue(gomega.BeEquivalentTo("9011/tcp"), "19011"))
		gomega.Expect(req.Env).To(gomega.Equal(map[string]string{"SERVER_PORT": "9011"}))
		gomega.Expect(req.Cmd).To(gomega.Equal([]string{"--debug"}))
		gomega.Expect(req.Labels).To(gomega.HaveKeyWithValue("team", "auth"))
		gomega.Expect(req.Labels).To(gomega.HaveKeyWithValue(service.LabelSession, svc.Session()))
		gomega.Expect(req.Labels).To(gomega.HaveKeyWithValue(service.LabelImage, testImage+":latest"))
	})

	ginkgo.It("should report the published endpoint", func() {
		svc := newService()
		gomega.Expect(svc.Start(ctx)).To(gomega.Succeed())

		endpoint, err := svc.Endpoint(ctx)
		gomega.Expect(err).NotTo(gomega.HaveOccurred())
		gomega.Expect(endpoint).To(gomega.Equal(server.Addr()))
	})

	ginkgo.It("should delegate logs and exec to the collaborator", func() {
		lifecycle.logs = "started server on port 9011"
		lifecycle.execResult = types.ExecResult{ExitCode: 0, Output: "ok"}
		svc := newService()
		gomega.Expect(svc.Start(ctx)).To(gomega.Succeed())

		logs, err := svc.Logs(ctx)
		gomega.Expect(err).NotTo(gomega.HaveOccurred())
		gomega.Expect(logs).To(gomega.ContainSubstring("port 9011"))

		result, err := svc.Exec(ctx, []string{"echo", "ok"})
		gomega.Expect(err).NotTo(gomega.HaveOccurred())
		gomega.Expect(result.Output).To(gomega.Equal("ok"))
	})

	ginkgo.It("should be idempotent on repeated Stop", func() {
		svc := newService()
		gomega.Expect(svc.Start(ctx)).To(gomega.Succeed())

		gomega.Expect(svc.Stop(ctx)).To(gomega.Succeed())
		gomega.Expect(svc.Stop(ctx)).To(gomega.Succeed())
		gomega.Expect(lifecycle.stopCalls()).To(gomega.Equal(1))
	})

	ginkgo.It("should refuse to start twice", func() {
		svc := newService()
		gomega.Expect(svc.Start(ctx)).To(gomega.Succeed())

		gomega.Expect(svc.Start(ctx)).To(gomega.MatchError(service.ErrAlreadyStarted))
		gomega.Expect(lifecycle.requests).To(gomega.HaveLen(1))
	})

	ginkgo.It("should restart after a stop", func() {
		svc := newService()
		gomega.Expect(svc.Start(ctx)).To(gomega.Succeed())
		first := svc.Instance()
		gomega.Expect(svc.Stop(ctx)).To(gomega.Succeed())

		gomega.Expect(svc.Start(ctx)).To(gomega.Succeed())
		gomega.Expect(svc.Instance().ID()).NotTo(gomega.Equal(first.ID()))
	})

	ginkgo.When("the collaborator cannot start the container", func() {
		ginkgo.It("should return a launch error and still stop safely", func() {
			lifecycle.startErr = errPortAllocated
			svc := newService(service.WithHostPort("9011"))

			err := svc.Start(ctx)
			gomega.Expect(err).To(gomega.MatchError(service.ErrLaunch))
			gomega.Expect(err).To(gomega.MatchError(errPortAllocated))

			var launchErr *service.LaunchError
			gomega.Expect(errors.As(err, &launchErr)).To(gomega.BeTrue())
			gomega.Expect(launchErr.Image).To(gomega.Equal(testImage + ":latest"))

			gomega.Expect(svc.State()).To(gomega.Equal(types.StateFailed))
			gomega.Expect(svc.Instance()).To(gomega.BeNil())
			gomega.Expect(svc.IsHealthy(ctx)).To(gomega.BeFalse())

			gomega.Expect(svc.Stop(ctx)).To(gomega.Succeed())
			gomega.Expect(svc.State()).To(gomega.Equal(types.StateStopped))
			gomega.Expect(lifecycle.stopCalls()).To(gomega.BeZero())
			gomega.Expect(observer.starts).To(gomega.ConsistOf(gomega.MatchError(errPortAllocated)))
		})

		ginkgo.It("should allow a retry from the failed state", func() {
			lifecycle.startErr = errPortAllocated
			svc := newService()
			gomega.Expect(svc.Start(ctx)).To(gomega.MatchError(service.ErrLaunch))

			lifecycle.startErr = nil
			gomega.Expect(svc.Start(ctx)).To(gomega.Succeed())
			gomega.Expect(svc.State()).To(gomega.Equal(types.StateRunning))
		})

		ginkgo.It("should bound the launch with the startup timeout", func() {
			lifecycle.blockStart = true
			svc := newService(service.WithStartupTimeout(50 * time.Millisecond))

			err := svc.Start(ctx)
			gomega.Expect(err).To(gomega.MatchError(service.ErrLaunch))
			gomega.Expect(err).To(gomega.MatchError(context.DeadlineExceeded))
		})
	})

	ginkgo.When("the collaborator cannot remove the container", func() {
		ginkgo.It("should return a teardown error and keep the handle for a retry", func() {
			lifecycle.stopErrs = []error{errRemoveFailed}
			svc := newService(service.WithStopTimeout(time.Second))
			gomega.Expect(svc.Start(ctx)).To(gomega.Succeed())

			err := svc.Stop(ctx)
			gomega.Expect(err).To(gomega.MatchError(service.ErrTeardown))
			gomega.Expect(err).To(gomega.MatchError(errRemoveFailed))
			gomega.Expect(svc.Instance()).NotTo(gomega.BeNil())
			gomega.Expect(svc.State()).To(gomega.Equal(types.StateRunning))

			gomega.Expect(svc.Stop(ctx)).To(gomega.Succeed())
			gomega.Expect(svc.Instance()).To(gomega.BeNil())
			gomega.Expect(lifecycle.stopTimeouts).To(gomega.Equal([]time.Duration{time.Second, time.Second}))
		})
	})

	ginkgo.Describe("IsHealthy", func() {
		ginkgo.It("should report false for a failing endpoint without erroring", func() {
			svc := newService()
			gomega.Expect(svc.Start(ctx)).To(gomega.Succeed())

			gomega.Expect(svc.IsHealthy(ctx)).To(gomega.BeFalse())
			gomega.Expect(observer.probes).To(gomega.Equal([]bool{false}))
		})

		ginkgo.It("should log probe failures at debug level only", func() {
			resetLogrus, logbuf := captureLogrus(logrus.DebugLevel)
			defer resetLogrus()

			svc := newService()
			gomega.Expect(svc.Start(ctx)).To(gomega.Succeed())
			gomega.Expect(svc.IsHealthy(ctx)).To(gomega.BeFalse())

			gomega.Eventually(logbuf).Should(gbytes.Say(`level=debug msg="Service is not healthy".*503`))
		})

		ginkgo.It("should not share the required keys with the caller", func() {
			server.RouteToHandler("GET", "/default/jwks",
				ghttp.RespondWith(http.StatusOK, `{"keys":[]}`, http.Header{"Content-Type": {"application/json"}}))

			keys := []string{"keys"}
			svc := newService(service.WithProbe(probe.HTTP{Path: "/default/jwks", RequiredKeys: keys}))
			keys[0] = "issuer"

			gomega.Expect(svc.Start(ctx)).To(gomega.Succeed())
			gomega.Expect(svc.IsHealthy(ctx)).To(gomega.BeTrue())
		})

		ginkgo.It("should use a custom probe", func() {
			lifecycle.execResult = types.ExecResult{ExitCode: 7}
			svc := newService(service.WithProbe(probe.Exec{Command: []string{"curl", "-fsS", "localhost:9011"}}))
			gomega.Expect(svc.Start(ctx)).To(gomega.Succeed())

			gomega.Expect(svc.IsHealthy(ctx)).To(gomega.BeFalse())

			lifecycle.execResult = types.ExecResult{ExitCode: 0}
			gomega.Expect(svc.IsHealthy(ctx)).To(gomega.BeTrue())
		})

		ginkgo.It("should be safe to call while the service stops", func() {
			server.RouteToHandler("GET", "/", ghttp.RespondWith(http.StatusOK, "ok"))
			svc := newService()
			gomega.Expect(svc.Start(ctx)).To(gomega.Succeed())

			var wg sync.WaitGroup
			for range 4 {
				wg.Add(1)

				go func() {
					defer ginkgo.GinkgoRecover()
					defer wg.Done()

					for range 5 {
						svc.IsHealthy(ctx)
					}
				}()
			}

			gomega.Expect(svc.Stop(ctx)).To(gomega.Succeed())
			wg.Wait()
			gomega.Expect(svc.IsHealthy(ctx)).To(gomega.BeFalse())
		})
	})

	ginkgo.Describe("WaitUntilHealthy", func() {
		ginkgo.It("should succeed once the endpoint starts responding", func() {
			server.AppendHandlers(
				ghttp.RespondWith(http.StatusServiceUnavailable, "starting"),
				ghttp.RespondWith(http.StatusServiceUnavailable, "starting"),
				ghttp.RespondWith(http.StatusOK, "ok"),
			)
			svc := newService()
			gomega.Expect(svc.Start(ctx)).To(gomega.Succeed())

			gomega.Expect(svc.WaitUntilHealthy(ctx, 10*time.Second)).To(gomega.Succeed())
			gomega.Expect(observer.probes).To(gomega.Equal([]bool{false, false, true}))
		})

		ginkgo.It("should give up when the window elapses", func() {
			svc := newService()
			gomega.Expect(svc.Start(ctx)).To(gomega.Succeed())

			start := time.Now()
			err := svc.WaitUntilHealthy(ctx, 300*time.Millisecond)
			gomega.Expect(err).To(gomega.MatchError(service.ErrNotHealthy))
			gomega.Expect(time.Since(start)).To(gomega.BeNumerically("<", 3*time.Second))
		})

		ginkgo.It("should probe once for a zero window", func() {
			svc := newService()
			gomega.Expect(svc.Start(ctx)).To(gomega.Succeed())

			gomega.Expect(svc.WaitUntilHealthy(ctx, 0)).To(gomega.MatchError(service.ErrNotHealthy))
			gomega.Expect(server.ReceivedRequests()).To(gomega.HaveLen(1))
		})
	})

	ginkgo.Describe("Run", func() {
		ginkgo.It("should run the body against a started service and stop it afterwards", func() {
			svc := newService()

			err := svc.Run(ctx, func(_ context.Context, running *service.Service) error {
				gomega.Expect(running).To(gomega.BeIdenticalTo(svc))
				gomega.Expect(running.State()).To(gomega.Equal(types.StateRunning))

				return nil
			})
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(svc.State()).To(gomega.Equal(types.StateStopped))
			gomega.Expect(lifecycle.runningCount()).To(gomega.BeZero())
		})

		ginkgo.It("should return the body error and still stop", func() {
			svc := newService()

			err := svc.Run(ctx, func(context.Context, *service.Service) error { return errFnFailed })
			gomega.Expect(err).To(gomega.MatchError(errFnFailed))
			gomega.Expect(lifecycle.runningCount()).To(gomega.BeZero())
		})

		ginkgo.It("should log instead of return a teardown error after a body error", func() {
			resetLogrus, logbuf := captureLogrus(logrus.WarnLevel)
			defer resetLogrus()

			lifecycle.stopErrs = []error{errRemoveFailed}
			svc := newService()

			err := svc.Run(ctx, func(context.Context, *service.Service) error { return errFnFailed })
			gomega.Expect(err).To(gomega.MatchError(errFnFailed))
			gomega.Expect(err).NotTo(gomega.MatchError(service.ErrTeardown))
			gomega.Eventually(logbuf).Should(gbytes.Say(`Failed to clean up after error`))
		})

		ginkgo.It("should return a teardown error after a successful body", func() {
			lifecycle.stopErrs = []error{errRemoveFailed}
			svc := newService()

			err := svc.Run(ctx, func(context.Context, *service.Service) error { return nil })
			gomega.Expect(err).To(gomega.MatchError(service.ErrTeardown))
		})

		ginkgo.It("should stop the service when the body panics", func() {
			svc := newService()

			gomega.Expect(func() {
				_ = svc.Run(ctx, func(context.Context, *service.Service) error { panic("boom") })
			}).To(gomega.PanicWith("boom"))
			gomega.Expect(svc.State()).To(gomega.Equal(types.StateStopped))
			gomega.Expect(lifecycle.runningCount()).To(gomega.BeZero())
		})

		ginkgo.It("should return launch errors without running the body", func() {
			lifecycle.startErr = errPortAllocated
			svc := newService()
			called := false

			err := svc.Run(ctx, func(context.Context, *service.Service) error {
				called = true

				return nil
			})
			gomega.Expect(err).To(gomega.MatchError(service.ErrLaunch))
			gomega.Expect(called).To(gomega.BeFalse())
			gomega.Expect(svc.State()).To(gomega.Equal(types.StateStopped))
		})

		ginkgo.It("should tear down even when the context is cancelled", func() {
			svc := newService()
			cancelled, cancel := context.WithCancel(ctx)

			err := svc.Run(cancelled, func(context.Context, *service.Service) error {
				cancel()

				return nil
			})
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(lifecycle.runningCount()).To(gomega.BeZero())
		})
	})
})
