package registry

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	dockerCliConfig "github.com/docker/cli/cli/config"
	dockerConfigConfigfile "github.com/docker/cli/cli/config/configfile"
	dockerConfigCredentials "github.com/docker/cli/cli/config/credentials"
	dockerConfigTypes "github.com/docker/cli/cli/config/types"
)

// Environment variables holding explicit registry credentials.
const (
	EnvRegistryUser     = "SERVICEWRAP_REGISTRY_USER"
	EnvRegistryPassword = "SERVICEWRAP_REGISTRY_PASSWORD"
)

// Errors for registry authentication operations.
var (
	// errUnsetRegAuthVars indicates the registry credential environment variables are not set.
	errUnsetRegAuthVars = errors.New(
		"registry auth environment variables (" + EnvRegistryUser + ", " + EnvRegistryPassword + ") not set",
	)
	// errFailedGetRegistryAddress indicates a failure to extract the registry address from an image reference.
	errFailedGetRegistryAddress = errors.New("failed to get registry address")
	// errFailedLoadDockerConfig indicates a failure to load the Docker configuration file.
	errFailedLoadDockerConfig = errors.New("failed to load Docker config")
	// errFailedMarshalAuthConfig indicates a failure to marshal the auth config to JSON.
	errFailedMarshalAuthConfig = errors.New("failed to marshal auth config to JSON")
)

// EncodedAuth returns encoded credentials for an image reference.
//
// Explicit environment credentials win; otherwise the Docker CLI configuration is consulted.
// An empty string with a nil error means anonymous access.
func EncodedAuth(imageRef string) (string, error) {
	clog := logrus.WithField("image_ref", imageRef)

	auth, err := EncodedEnvAuth()
	if err == nil {
		clog.Debug("Using registry credentials from environment")

		return auth, nil
	}

	clog.WithError(err).Debug("Environment auth not available, trying config file")

	return EncodedConfigAuth(imageRef)
}

// EncodedEnvAuth encodes the credentials from SERVICEWRAP_REGISTRY_USER and
// SERVICEWRAP_REGISTRY_PASSWORD, failing if either is unset.
func EncodedEnvAuth() (string, error) {
	username := os.Getenv(EnvRegistryUser)
	password := os.Getenv(EnvRegistryPassword)

	if username == "" || password == "" {
		return "", errUnsetRegAuthVars
	}

	logrus.WithField("username", username).Debug("Loaded auth credentials from environment")

	return EncodeAuth(dockerConfigTypes.AuthConfig{
		Username: username,
		Password: password,
	})
}

// EncodedConfigAuth retrieves credentials for the image's registry from the Docker CLI
// configuration directory ($DOCKER_CONFIG or ~/.docker).
func EncodedConfigAuth(imageRef string) (string, error) {
	clog := logrus.WithField("image_ref", imageRef)

	server, err := RegistryAddress(imageRef)
	if err != nil {
		return "", fmt.Errorf("%w: %w", errFailedGetRegistryAddress, err)
	}

	configDir := os.Getenv("DOCKER_CONFIG")
	if configDir == "" {
		configDir = dockerCliConfig.Dir()
	}

	configFile, err := dockerCliConfig.Load(configDir)
	if err != nil {
		clog.WithError(err).WithField("config_dir", configDir).Debug("Failed to load Docker config")

		return "", fmt.Errorf("%w: %w", errFailedLoadDockerConfig, err)
	}

	auth, _ := CredentialsStore(*configFile).Get(server)
	if auth == (dockerConfigTypes.AuthConfig{}) {
		clog.WithFields(logrus.Fields{
			"server":      server,
			"config_file": configFile.Filename,
		}).Debug("No credentials found in config")

		return "", nil
	}

	clog.WithFields(logrus.Fields{
		"username": auth.Username,
		"server":   server,
	}).Debug("Loaded auth credentials from config")

	return EncodeAuth(auth)
}

// CredentialsStore returns the native credential helper configured in the file, or the
// file-backed store when none is set.
func CredentialsStore(configFile dockerConfigConfigfile.ConfigFile) dockerConfigCredentials.Store {
	if configFile.CredentialsStore != "" {
		return dockerConfigCredentials.NewNativeStore(&configFile, configFile.CredentialsStore)
	}

	return dockerConfigCredentials.NewFileStore(&configFile)
}

// EncodeAuth base64-encodes an AuthConfig for the X-Registry-Auth header.
func EncodeAuth(authConfig dockerConfigTypes.AuthConfig) (string, error) {
	buf, err := json.Marshal(authConfig)
	if err != nil {
		return "", fmt.Errorf("%w: %w", errFailedMarshalAuthConfig, err)
	}

	return base64.URLEncoding.EncodeToString(buf), nil
}
