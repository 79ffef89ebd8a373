package service

import (
	"maps"
	"slices"
	"strconv"

	"github.com/distribution/reference"
	"github.com/docker/go-connections/nat"
)

// DefaultVersion is the image tag used when WithVersion is not given.
const DefaultVersion = "latest"

// Descriptor is the configuration of a wrapped service.
//
// It is resolved once by New; Service.Descriptor hands out copies, so it cannot change during the
// lifetime of the wrapper.
type Descriptor struct {
	Image    string            `yaml:"image"`
	Version  string            `yaml:"version"`
	Port     nat.Port          `yaml:"port"`
	HostPort string            `yaml:"hostPort,omitempty"`
	Name     string            `yaml:"name,omitempty"`
	Env      map[string]string `yaml:"env,omitempty"`
	Cmd      []string          `yaml:"cmd,omitempty"`
	Labels   map[string]string `yaml:"labels,omitempty"`
}

// Reference returns the image reference including the version tag.
func (d Descriptor) Reference() string {
	return d.Image + ":" + d.Version
}

// clone returns a deep copy of the descriptor.
func (d Descriptor) clone() Descriptor {
	d.Env = maps.Clone(d.Env)
	d.Cmd = slices.Clone(d.Cmd)
	d.Labels = maps.Clone(d.Labels)

	return d
}

// validateImage checks that image is a repository reference without tag or digest.
func validateImage(image string) error {
	if image == "" {
		return &ConfigurationError{Field: "image", Value: image, Err: errEmptyImage}
	}

	named, err := reference.ParseNormalizedNamed(image)
	if err != nil {
		return &ConfigurationError{Field: "image", Value: image, Err: err}
	}

	if _, ok := named.(reference.Tagged); ok {
		return &ConfigurationError{Field: "image", Value: image, Err: errImageHasTag}
	}

	if _, ok := named.(reference.Digested); ok {
		return &ConfigurationError{Field: "image", Value: image, Err: errImageHasTag}
	}

	return nil
}

// validateVersion checks that version is a valid image tag.
func validateVersion(image string, version string) error {
	if version == "" {
		return &ConfigurationError{Field: "version", Value: version, Err: errEmptyVersion}
	}

	named, err := reference.ParseNormalizedNamed(image)
	if err != nil {
		return &ConfigurationError{Field: "image", Value: image, Err: err}
	}

	if _, err := reference.WithTag(named, version); err != nil {
		return &ConfigurationError{Field: "version", Value: version, Err: err}
	}

	return nil
}

// parseServicePort normalizes "9011" or "9011/tcp" into a nat.Port.
func parseServicePort(port string) (nat.Port, error) {
	proto, number := nat.SplitProtoPort(port)

	if err := validatePortNumber(number); err != nil {
		return "", &ConfigurationError{Field: "port", Value: port, Err: err}
	}

	parsed, err := nat.NewPort(proto, number)
	if err != nil {
		return "", &ConfigurationError{Field: "port", Value: port, Err: err}
	}

	return parsed, nil
}

// validateHostPort checks an optional fixed host port.
func validateHostPort(port string) error {
	if port == "" {
		return nil
	}

	if err := validatePortNumber(port); err != nil {
		return &ConfigurationError{Field: "host port", Value: port, Err: err}
	}

	return nil
}

// validatePortNumber checks that number is a single port in 1..65535.
func validatePortNumber(number string) error {
	value, err := strconv.Atoi(number)
	if err != nil {
		return errPortOutOfRange
	}

	if value < 1 || value > 65535 {
		return errPortOutOfRange
	}

	return nil
}
