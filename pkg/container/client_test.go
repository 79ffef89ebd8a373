package container

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"regexp"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
	"github.com/onsi/gomega/gbytes"
	"github.com/onsi/gomega/ghttp"
	"github.com/sirupsen/logrus"

	dockerContainerType "github.com/docker/docker/api/types/container"
	dockerClient "github.com/docker/docker/client"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"

	"github.com/nicholas-fedor/servicewrap/pkg/container/mocks"
	"github.com/nicholas-fedor/servicewrap/pkg/types"
)

const (
	testImage       = "ghcr.io/navikt/mock-oauth2-server:2.1.10"
	testContainerID = "3d88e0e3543281c747d88b27e246578b65ae8964ba86c7cd7522cf84e0978134"
)

type foreignInstance struct{}

func (foreignInstance) ID() types.InstanceID { return "foreign" }
func (foreignInstance) Name() string         { return "foreign" }

var _ = ginkgo.Describe("the client", func() {
	var docker *dockerClient.Client
	var mockServer *ghttp.Server
	var ctx context.Context
	var cli client

	ginkgo.BeforeEach(func() {
		ctx = context.Background()
		mockServer = ghttp.NewServer()
		docker, _ = dockerClient.NewClientWithOpts(
			dockerClient.WithHost(mockServer.URL()),
			dockerClient.WithHTTPClient(mockServer.HTTPTestServer.Client()))
		cli = client{api: docker, ClientOptions: ClientOptions{PullPolicy: PullMissing}}
	})
	ginkgo.AfterEach(func() {
		mockServer.Close()
	})

	ginkgo.Describe("Start", func() {
		request := types.StartRequest{
			Image: testImage,
			Name:  "keyset-test",
			Env:   map[string]string{"SERVER_PORT": "9011", "LOG_LEVEL": "debug"},
			Ports: []nat.Port{"9011/tcp"},
			Labels: map[string]string{
				"dev.servicewrap.session": "abc",
			},
		}

		ginkgo.When("the image is present locally", func() {
			ginkgo.It("should create and start the container", func() {
				mockServer.AppendHandlers(
					mocks.InspectImageHandler(testImage, mocks.Found),
					mocks.CreateContainerHandler(testContainerID, func(_ http.ResponseWriter, r *http.Request) {
						body, err := io.ReadAll(r.Body)
						gomega.Expect(err).NotTo(gomega.HaveOccurred())

						var created dockerContainerType.CreateRequest
						gomega.Expect(json.Unmarshal(body, &created)).To(gomega.Succeed())
						gomega.Expect(created.Image).To(gomega.Equal(testImage))
						gomega.Expect(created.Env).To(gomega.Equal([]string{"LOG_LEVEL=debug", "SERVER_PORT=9011"}))
						gomega.Expect(created.ExposedPorts).To(gomega.HaveKey(nat.Port("9011/tcp")))
						gomega.Expect(created.Labels).To(gomega.HaveKeyWithValue("dev.servicewrap.session", "abc"))
						gomega.Expect(created.HostConfig.PortBindings).To(gomega.HaveKeyWithValue(
							nat.Port("9011/tcp"),
							[]nat.PortBinding{{HostPort: ""}},
						))
					}),
					mocks.StartContainerHandler(testContainerID, http.StatusNoContent, ""),
				)

				inst, err := cli.Start(ctx, request)
				gomega.Expect(err).NotTo(gomega.HaveOccurred())
				gomega.Expect(inst.ID()).To(gomega.Equal(types.InstanceID(testContainerID)))
				gomega.Expect(inst.Name()).To(gomega.Equal("keyset-test"))
				gomega.Expect(mockServer.ReceivedRequests()).To(gomega.HaveLen(3))
			})
		})

		ginkgo.When("the image is missing", func() {
			ginkgo.It("should pull it before creating the container", func() {
				mockServer.AppendHandlers(
					mocks.InspectImageHandler(testImage, mocks.Missing),
					mocks.PullImageHandler(
						`{"status":"Pulling from navikt/mock-oauth2-server","id":"2.1.10"}`,
						`{"status":"Status: Downloaded newer image for `+testImage+`"}`,
					),
					mocks.CreateContainerHandler(testContainerID),
					mocks.StartContainerHandler(testContainerID, http.StatusNoContent, ""),
				)

				inst, err := cli.Start(ctx, request)
				gomega.Expect(err).NotTo(gomega.HaveOccurred())
				gomega.Expect(inst.ID().ShortID()).To(gomega.Equal("3d88e0e35432"))
			})

			ginkgo.It("should fail when the pull stream reports an error", func() {
				mockServer.AppendHandlers(
					mocks.InspectImageHandler(testImage, mocks.Missing),
					mocks.PullImageHandler(mocks.PullErrorMessage("manifest unknown")),
				)

				_, err := cli.Start(ctx, request)
				gomega.Expect(err).To(gomega.MatchError(errPullImageFailed))
				gomega.Expect(err).To(gomega.MatchError(gomega.ContainSubstring("manifest unknown")))
			})

			ginkgo.It("should not pull when the pull policy is never", func() {
				cli.PullPolicy = PullNever
				mockServer.AppendHandlers(mocks.InspectImageHandler(testImage, mocks.Missing))

				_, err := cli.Start(ctx, request)
				gomega.Expect(err).To(gomega.MatchError(errImageNotPresent))
				gomega.Expect(mockServer.ReceivedRequests()).To(gomega.HaveLen(1))
			})
		})

		ginkgo.When("the pull policy is always", func() {
			ginkgo.It("should pull without inspecting first", func() {
				cli.PullPolicy = PullAlways
				mockServer.AppendHandlers(
					mocks.PullImageHandler(`{"status":"Image is up to date"}`),
					mocks.CreateContainerHandler(testContainerID),
					mocks.StartContainerHandler(testContainerID, http.StatusNoContent, ""),
				)

				_, err := cli.Start(ctx, request)
				gomega.Expect(err).NotTo(gomega.HaveOccurred())
			})
		})

		ginkgo.When("the container fails to start", func() {
			ginkgo.It("should remove the created container and report the daemon error", func() {
				mockServer.AppendHandlers(
					mocks.InspectImageHandler(testImage, mocks.Found),
					mocks.CreateContainerHandler(testContainerID),
					mocks.StartContainerHandler(
						testContainerID,
						http.StatusInternalServerError,
						"Bind for 0.0.0.0:9011 failed: port is already allocated",
					),
					mocks.RemoveContainerHandler(testContainerID, mocks.Found),
				)

				inst, err := cli.Start(ctx, request)
				gomega.Expect(inst).To(gomega.BeNil())
				gomega.Expect(err).To(gomega.MatchError(errStartContainerFailed))
				gomega.Expect(err).To(gomega.MatchError(gomega.ContainSubstring("port is already allocated")))
				gomega.Expect(mockServer.ReceivedRequests()).To(gomega.HaveLen(4))
			})
		})

		ginkgo.When("the create call fails", func() {
			ginkgo.It("should return a create error", func() {
				mockServer.AppendHandlers(
					mocks.InspectImageHandler(testImage, mocks.Found),
					ghttp.CombineHandlers(
						ghttp.VerifyRequest("POST", gomega.HaveSuffix("/containers/create")),
						ghttp.RespondWithJSONEncoded(http.StatusConflict, map[string]string{
							"message": "Conflict. The container name \"/keyset-test\" is already in use",
						}),
					),
				)

				_, err := cli.Start(ctx, request)
				gomega.Expect(err).To(gomega.MatchError(errCreateContainerFailed))
			})
		})
	})

	ginkgo.Describe("Stop", func() {
		inst := newInstance(testContainerID, "/keyset")

		ginkgo.When("the container is running", func() {
			ginkgo.It("should kill, remove and confirm the removal", func() {
				mockServer.AppendHandlers(
					mocks.InspectContainerHandler(testContainerID, MockInspect(testContainerID)),
					mocks.KillContainerHandler(testContainerID, mocks.Found),
					mocks.InspectContainerHandler(testContainerID, MockInspect(testContainerID, WithRunning(false))),
					mocks.RemoveContainerHandler(testContainerID, mocks.Found),
					mocks.InspectContainerHandler(testContainerID, nil),
				)

				err := cli.Stop(ctx, inst, time.Second)
				gomega.Expect(err).NotTo(gomega.HaveOccurred())
				gomega.Expect(mockServer.ReceivedRequests()).To(gomega.HaveLen(5))
			})

			ginkgo.It("should use the image stop signal", func() {
				mockServer.AppendHandlers(
					mocks.InspectContainerHandler(testContainerID, MockInspect(testContainerID, WithStopSignal("SIGINT"))),
					ghttp.CombineHandlers(
						ghttp.VerifyRequest("POST", gomega.HaveSuffix("containers/%s/kill", testContainerID), "signal=SIGINT"),
						ghttp.RespondWith(http.StatusNoContent, nil),
					),
					mocks.InspectContainerHandler(testContainerID, nil),
					mocks.RemoveContainerHandler(testContainerID, mocks.Missing),
				)

				gomega.Expect(cli.Stop(ctx, inst, time.Second)).To(gomega.Succeed())
			})

			ginkgo.It("should warn but proceed with removal when the container outlives the timeout", func() {
				mockServer.AppendHandlers(
					mocks.InspectContainerHandler(testContainerID, MockInspect(testContainerID)),
					mocks.KillContainerHandler(testContainerID, mocks.Found),
					mocks.InspectContainerHandler(testContainerID, MockInspect(testContainerID)),
					mocks.RemoveContainerHandler(testContainerID, mocks.Found),
					mocks.InspectContainerHandler(testContainerID, nil),
				)

				resetLogrus, logbuf := captureLogrus(logrus.DebugLevel)
				defer resetLogrus()

				err := cli.Stop(ctx, inst, 100*time.Millisecond)
				gomega.Expect(err).NotTo(gomega.HaveOccurred())
				gomega.Eventually(logbuf, 2*time.Second).
					Should(gbytes.Say(`Container did not stop within timeout.*container=keyset`))
			})
		})

		ginkgo.When("the container no longer exists", func() {
			ginkgo.It("should treat it as stopped", func() {
				mockServer.AppendHandlers(mocks.InspectContainerHandler(testContainerID, nil))

				gomega.Expect(cli.Stop(ctx, inst, time.Second)).To(gomega.Succeed())
				gomega.Expect(mockServer.ReceivedRequests()).To(gomega.HaveLen(1))
			})
		})

		ginkgo.When("the daemon fails to inspect the container", func() {
			ginkgo.It("should return an inspect error", func() {
				mockServer.AppendHandlers(ghttp.CombineHandlers(
					ghttp.VerifyRequest("GET", gomega.HaveSuffix("/containers/%s/json", testContainerID)),
					ghttp.RespondWith(http.StatusInternalServerError, "server error"),
				))

				err := cli.Stop(ctx, inst, time.Second)
				gomega.Expect(err).To(gomega.MatchError(errInspectContainerFailed))
			})
		})

		ginkgo.When("the removal fails", func() {
			ginkgo.It("should return a removal error", func() {
				mockServer.AppendHandlers(
					mocks.InspectContainerHandler(testContainerID, MockInspect(testContainerID, WithRunning(false))),
					mocks.InspectContainerHandler(testContainerID, MockInspect(testContainerID, WithRunning(false))),
					ghttp.CombineHandlers(
						ghttp.VerifyRequest("DELETE", gomega.HaveSuffix("containers/%s", testContainerID)),
						ghttp.RespondWithJSONEncoded(http.StatusInternalServerError, map[string]string{
							"message": "driver failed to remove root filesystem",
						}),
					),
				)

				err := cli.Stop(ctx, inst, time.Second)
				gomega.Expect(err).To(gomega.MatchError(errRemoveContainerFailed))
			})
		})

		ginkgo.It("should reject handles from other drivers", func() {
			err := cli.Stop(ctx, foreignInstance{}, time.Second)
			gomega.Expect(err).To(gomega.MatchError(errForeignInstance))
			gomega.Expect(mockServer.ReceivedRequests()).To(gomega.BeEmpty())
		})
	})

	ginkgo.Describe("MappedPort", func() {
		inst := newInstance(testContainerID, "keyset")

		ginkgo.It("should return the published host port", func() {
			mockServer.AppendHandlers(mocks.InspectContainerHandler(
				testContainerID,
				MockInspect(testContainerID, WithPublishedPort("9011/tcp", "49153")),
			))

			port, err := cli.MappedPort(ctx, inst, "9011/tcp")
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(port).To(gomega.Equal("49153"))
		})

		ginkgo.It("should fail for ports that are not published", func() {
			mockServer.AppendHandlers(mocks.InspectContainerHandler(testContainerID, MockInspect(testContainerID)))

			_, err := cli.MappedPort(ctx, inst, "9011/tcp")
			gomega.Expect(err).To(gomega.MatchError(errPortNotMapped))
		})
	})

	ginkgo.Describe("Host", func() {
		ginkgo.It("should prefer the configured host", func() {
			cli.ClientOptions.Host = "docker.internal"

			host, err := cli.Host(ctx, nil)
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(host).To(gomega.Equal("docker.internal"))
		})

		ginkgo.It("should derive the host from the daemon address", func() {
			host, err := cli.Host(ctx, nil)
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(host).To(gomega.Equal("127.0.0.1"))
		})

		ginkgo.DescribeTable("hostFromDaemon",
			func(daemonHost string, expected string) {
				host, err := hostFromDaemon(daemonHost)
				gomega.Expect(err).NotTo(gomega.HaveOccurred())
				gomega.Expect(host).To(gomega.Equal(expected))
			},
			ginkgo.Entry("unix socket", "unix:///var/run/docker.sock", "localhost"),
			ginkgo.Entry("named pipe", "npipe:////./pipe/docker_engine", "localhost"),
			ginkgo.Entry("remote tcp", "tcp://10.0.0.5:2376", "10.0.0.5"),
		)
	})

	ginkgo.Describe("Logs", func() {
		ginkgo.It("should return stdout and stderr output", func() {
			mockServer.AppendHandlers(mocks.LogsHandler(testContainerID, "started server\n", "warning: debug mode\n"))

			logs, err := cli.Logs(ctx, newInstance(testContainerID, "keyset"))
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(logs).To(gomega.ContainSubstring("started server"))
			gomega.Expect(logs).To(gomega.ContainSubstring("warning: debug mode"))
		})
	})

	ginkgo.Describe("Exec", func() {
		ginkgo.It("should report the exit code of the command", func() {
			execID := "ex-exec-id"
			mockServer.RouteToHandler("POST", regexp.MustCompile(`/containers/`+testContainerID+`/exec$`),
				mocks.ExecCreateHandler(testContainerID, execID))
			mockServer.RouteToHandler("POST", regexp.MustCompile(`/exec/`+execID+`/start$`),
				mocks.ExecStartHandler())
			mockServer.RouteToHandler("GET", regexp.MustCompile(`/exec/`+execID+`/json$`),
				mocks.ExecInspectHandler(execID, 7))

			result, err := cli.Exec(ctx, newInstance(testContainerID, "keyset"), []string{"curl", "-fsS", "http://localhost:9011/default/jwks"})
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(result.ExitCode).To(gomega.Equal(7))
			gomega.Expect(result.Success()).To(gomega.BeFalse())
		})

		ginkgo.It("should fail when the exec cannot be created", func() {
			mockServer.AppendHandlers(ghttp.CombineHandlers(
				ghttp.VerifyRequest("POST", gomega.HaveSuffix("/containers/%s/exec", testContainerID)),
				ghttp.RespondWithJSONEncoded(http.StatusConflict, map[string]string{
					"message": "container is not running",
				}),
			))

			_, err := cli.Exec(ctx, newInstance(testContainerID, "keyset"), []string{"true"})
			gomega.Expect(err).To(gomega.MatchError(errCreateExecFailed))
		})
	})
})

var _ = ginkgo.Describe("buildCreateConfig", func() {
	ginkgo.It("should bind fixed host ports and publish unlisted ones", func() {
		config, hostConfig := buildCreateConfig(types.StartRequest{
			Image:     testImage,
			Cmd:       []string{"java", "-jar", "app.jar"},
			Ports:     []nat.Port{"9011/tcp"},
			HostPorts: map[nat.Port]string{"9011/tcp": "9011", "8080/tcp": "18080"},
		})

		gomega.Expect(config.Cmd).To(gomega.BeEquivalentTo([]string{"java", "-jar", "app.jar"}))
		gomega.Expect(config.ExposedPorts).To(gomega.HaveLen(2))
		gomega.Expect(hostConfig.PortBindings[nat.Port("9011/tcp")]).To(gomega.Equal([]nat.PortBinding{{HostPort: "9011"}}))
		gomega.Expect(hostConfig.PortBindings[nat.Port("8080/tcp")]).To(gomega.Equal([]nat.PortBinding{{HostPort: "18080"}}))
	})

	ginkgo.It("should leave the command unset when none is requested", func() {
		config, _ := buildCreateConfig(types.StartRequest{Image: testImage})

		gomega.Expect(config.Cmd).To(gomega.BeNil())
	})
})

var _ = ginkgo.DescribeTable("parsePlatform",
	func(input string, expected *ocispec.Platform, valid bool) {
		platform, err := parsePlatform(input)
		if !valid {
			gomega.Expect(err).To(gomega.MatchError(errInvalidPlatform))

			return
		}

		gomega.Expect(err).NotTo(gomega.HaveOccurred())
		gomega.Expect(platform).To(gomega.Equal(expected))
	},
	ginkgo.Entry("empty uses the daemon default", "", nil, true),
	ginkgo.Entry("os and arch", "linux/amd64", &ocispec.Platform{OS: "linux", Architecture: "amd64"}, true),
	ginkgo.Entry("with variant", "linux/arm64/v8", &ocispec.Platform{OS: "linux", Architecture: "arm64", Variant: "v8"}, true),
	ginkgo.Entry("missing arch", "linux", nil, false),
	ginkgo.Entry("too many parts", "linux/arm/v7/extra", nil, false),
)

var _ = ginkgo.DescribeTable("PullPolicy.Validate",
	func(policy PullPolicy, valid bool) {
		if valid {
			gomega.Expect(policy.Validate()).To(gomega.Succeed())
		} else {
			gomega.Expect(policy.Validate()).To(gomega.MatchError(errInvalidPullPolicy))
		}
	},
	ginkgo.Entry("missing", PullMissing, true),
	ginkgo.Entry("always", PullAlways, true),
	ginkgo.Entry("never", PullNever, true),
	ginkgo.Entry("unknown", PullPolicy("sometimes"), false),
)

// Capture logrus output in buffer.
func captureLogrus(level logrus.Level) (func(), *gbytes.Buffer) {
	logbuf := gbytes.NewBuffer()

	origOut := logrus.StandardLogger().Out
	logrus.SetOutput(logbuf)

	origLev := logrus.StandardLogger().Level
	logrus.SetLevel(level)

	return func() {
		logrus.SetOutput(origOut)
		logrus.SetLevel(origLev)
	}, logbuf
}
