// Package mocks provides ghttp handlers that emulate the Docker Engine API endpoints used by the container package.
package mocks

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"
)

// FoundStatus selects between a successful and a not-found response.
type FoundStatus bool

const (
	Found   FoundStatus = true
	Missing FoundStatus = false
)

// Mock response fixture for no-content status (204).
var noContentStatusResponse = ghttp.RespondWith(http.StatusNoContent, nil)

// Includes a standard "No such container" message with the ID.
func containerNotFoundResponse(containerID string) http.HandlerFunc {
	return ghttp.RespondWithJSONEncoded(http.StatusNotFound, map[string]string{
		"message": "No such container: " + containerID,
	})
}

// Returns 404 if containerInfo is nil; otherwise, serves the provided info.
func InspectContainerHandler(containerID string, containerInfo *container.InspectResponse) http.HandlerFunc {
	responseHandler := containerNotFoundResponse(containerID)
	if containerInfo != nil {
		responseHandler = ghttp.RespondWithJSONEncoded(http.StatusOK, containerInfo)
	}

	return ghttp.CombineHandlers(
		ghttp.VerifyRequest("GET", gomega.HaveSuffix("/containers/%s/json", containerID)),
		responseHandler,
	)
}

// Returns 204 if found, 404 if not.
func KillContainerHandler(containerID string, found FoundStatus) http.HandlerFunc {
	responseHandler := noContentStatusResponse
	if !found {
		responseHandler = containerNotFoundResponse(containerID)
	}

	return ghttp.CombineHandlers(
		ghttp.VerifyRequest("POST", gomega.HaveSuffix("containers/%s/kill", containerID)),
		responseHandler,
	)
}

// Returns 204 if found, 404 if not.
func RemoveContainerHandler(containerID string, found FoundStatus) http.HandlerFunc {
	responseHandler := noContentStatusResponse
	if !found {
		responseHandler = containerNotFoundResponse(containerID)
	}

	return ghttp.CombineHandlers(
		ghttp.VerifyRequest("DELETE", gomega.HaveSuffix("containers/%s", containerID)),
		responseHandler,
	)
}

// Verifies a create request and applies the given assertions to its decoded body.
func CreateContainerHandler(containerID string, verify ...http.HandlerFunc) http.HandlerFunc {
	handlers := []http.HandlerFunc{
		ghttp.VerifyRequest("POST", gomega.HaveSuffix("/containers/create")),
	}
	handlers = append(handlers, verify...)
	handlers = append(handlers, ghttp.RespondWithJSONEncoded(
		http.StatusCreated,
		container.CreateResponse{ID: containerID},
	))

	return ghttp.CombineHandlers(handlers...)
}

// Responds with the given status to a container start request; 500 carries the daemon message.
func StartContainerHandler(containerID string, status int, message string) http.HandlerFunc {
	responseHandler := noContentStatusResponse
	if status != http.StatusNoContent {
		responseHandler = ghttp.RespondWithJSONEncoded(status, map[string]string{"message": message})
	}

	return ghttp.CombineHandlers(
		ghttp.VerifyRequest("POST", gomega.HaveSuffix("/containers/%s/start", containerID)),
		responseHandler,
	)
}

// Serves an image inspect response, or 404 when the image is missing.
func InspectImageHandler(imageRef string, found FoundStatus) http.HandlerFunc {
	responseHandler := ghttp.RespondWithJSONEncoded(http.StatusNotFound, map[string]string{
		"message": "No such image: " + imageRef,
	})
	if found {
		responseHandler = ghttp.RespondWithJSONEncoded(http.StatusOK, image.InspectResponse{
			ID:       "sha256:4dbc5f9c07028a985e14d1393e849ea07f68804c4293050d5a641b138db72daa",
			RepoTags: []string{imageRef},
		})
	}

	return ghttp.CombineHandlers(
		ghttp.VerifyRequest("GET", gomega.HaveSuffix("/images/%s/json", imageRef)),
		responseHandler,
	)
}

// Streams the given JSON progress messages as a pull response.
func PullImageHandler(messages ...string) http.HandlerFunc {
	return ghttp.CombineHandlers(
		ghttp.VerifyRequest("POST", gomega.HaveSuffix("/images/create")),
		ghttp.RespondWith(http.StatusOK, strings.Join(messages, "\n")),
	)
}

// PullErrorMessage renders a progress message that carries a pull error.
func PullErrorMessage(message string) string {
	return fmt.Sprintf(`{"errorDetail":{"message":%q},"error":%q}`, message, message)
}

// Responds to an exec create request with the given exec ID.
func ExecCreateHandler(containerID string, execID string) http.HandlerFunc {
	return ghttp.CombineHandlers(
		ghttp.VerifyRequest("POST", gomega.HaveSuffix("/containers/%s/exec", containerID)),
		ghttp.RespondWithJSONEncoded(http.StatusCreated, container.ExecCreateResponse{ID: execID}),
	)
}

// Accepts exec start requests.
func ExecStartHandler() http.HandlerFunc {
	return ghttp.RespondWith(http.StatusOK, nil)
}

// Reports a finished exec with the given exit code.
func ExecInspectHandler(execID string, exitCode int) http.HandlerFunc {
	return ghttp.CombineHandlers(
		ghttp.VerifyRequest("GET", gomega.HaveSuffix("/exec/%s/json", execID)),
		ghttp.RespondWithJSONEncoded(http.StatusOK, container.ExecInspect{
			ExecID:   execID,
			Running:  false,
			ExitCode: exitCode,
		}),
	)
}

// Serves multiplexed stdout and stderr log frames.
func LogsHandler(containerID string, stdout string, stderr string) http.HandlerFunc {
	var body bytes.Buffer

	_, err := stdcopy.NewStdWriter(&body, stdcopy.Stdout).Write([]byte(stdout))
	gomega.ExpectWithOffset(1, err).ShouldNot(gomega.HaveOccurred())

	_, err = stdcopy.NewStdWriter(&body, stdcopy.Stderr).Write([]byte(stderr))
	gomega.ExpectWithOffset(1, err).ShouldNot(gomega.HaveOccurred())

	return ghttp.CombineHandlers(
		ghttp.VerifyRequest("GET", gomega.HaveSuffix("/containers/%s/logs", containerID)),
		ghttp.RespondWith(http.StatusOK, body.Bytes()),
	)
}
