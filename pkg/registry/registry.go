package registry

import (
	"context"
	"errors"
	"fmt"

	"github.com/distribution/reference"
	"github.com/docker/docker/api/types/image"
	"github.com/sirupsen/logrus"
)

// Domains for Docker Hub, the default registry.
const (
	DefaultRegistryDomain = "docker.io"
	DefaultRegistryHost   = "index.docker.io"
)

// Errors for registry operations.
var (
	// errFailedGetAuth indicates a failure to retrieve authentication credentials for an image.
	errFailedGetAuth = errors.New("failed to get authentication credentials")
	// errFailedParseReference indicates an image reference could not be parsed.
	errFailedParseReference = errors.New("failed to parse image reference")
)

// GetPullOptions creates a struct with all options needed for pulling an image.
//
// Parameters:
//   - imageRef: Image reference to pull.
//
// Returns:
//   - image.PullOptions: Options with encoded credentials, empty when none are configured.
//   - error: Non-nil if credential lookup fails.
func GetPullOptions(imageRef string) (image.PullOptions, error) {
	fields := logrus.Fields{
		"image": imageRef,
	}

	logrus.WithFields(fields).Debug("Retrieving pull options")

	auth, err := EncodedAuth(imageRef)
	if err != nil {
		logrus.WithError(err).WithFields(fields).Debug("Failed to get authentication credentials")

		return image.PullOptions{}, fmt.Errorf("%w: %w", errFailedGetAuth, err)
	}

	if auth == "" {
		logrus.WithFields(fields).Debug("No authentication credentials found")

		return image.PullOptions{}, nil
	}

	return image.PullOptions{
		RegistryAuth:  auth,
		PrivilegeFunc: DefaultAuthHandler,
	}, nil
}

// DefaultAuthHandler is called by the Docker client when the initial credentials are rejected.
// It retries anonymously, since resending the same credentials cannot succeed.
func DefaultAuthHandler(_ context.Context) (string, error) {
	logrus.Debug("Authentication rejected, retrying without credentials")

	return "", nil
}

// RegistryAddress extracts the registry host from an image reference.
//
// Docker Hub's short domain is mapped to the host its credentials are stored under.
//
// Parameters:
//   - imageRef: Image reference, with or without tag.
//
// Returns:
//   - string: Registry host.
//   - error: Non-nil if the reference cannot be parsed.
func RegistryAddress(imageRef string) (string, error) {
	normalizedRef, err := reference.ParseNormalizedNamed(imageRef)
	if err != nil {
		return "", fmt.Errorf("%w: %w", errFailedParseReference, err)
	}

	address := reference.Domain(normalizedRef)
	if address == DefaultRegistryDomain {
		address = DefaultRegistryHost
	}

	return address, nil
}
