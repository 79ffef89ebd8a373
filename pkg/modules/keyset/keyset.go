package keyset

import (
	"context"
	"fmt"
	"strings"

	"github.com/nicholas-fedor/servicewrap/pkg/probe"
	"github.com/nicholas-fedor/servicewrap/pkg/service"
	"github.com/nicholas-fedor/servicewrap/pkg/types"
)

// Container settings of the mock OAuth2 server.
const (
	Image         = "ghcr.io/navikt/mock-oauth2-server"
	Port          = "9011"
	DefaultIssuer = "default"
)

// requiredKeys are the top-level members of a JWKS document checked by the readiness probe.
var requiredKeys = []string{"keys"}

// New builds the key-set service wrapper.
//
// Options are applied after the module defaults, so WithVersion, WithEnv or WithProbe given here
// override them.
//
// Parameters:
//   - lifecycle: Collaborator that launches the container.
//   - opts: Additional service options.
//
// Returns:
//   - *service.Service: Unstarted wrapper.
//   - error: Non-nil if the options are invalid.
func New(lifecycle types.Lifecycle, opts ...service.Option) (*service.Service, error) {
	defaults := []service.Option{
		service.WithEnv(map[string]string{"SERVER_PORT": Port}),
		WithIssuer(DefaultIssuer),
	}

	return service.New(lifecycle, Image, Port, append(defaults, opts...)...)
}

// WithIssuer probes the key set of the given issuer instead of the default one.
func WithIssuer(issuer string) service.Option {
	return service.WithProbe(probe.HTTP{
		Path:         JWKSPath(issuer),
		RequiredKeys: requiredKeys,
	})
}

// JWKSPath returns the path of an issuer's key-set document.
func JWKSPath(issuer string) string {
	return "/" + strings.Trim(issuer, "/") + "/jwks"
}

// IssuerURL returns the base URL of the default issuer of a running key-set service.
func IssuerURL(ctx context.Context, svc *service.Service) (string, error) {
	endpoint, err := svc.Endpoint(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to resolve issuer endpoint: %w", err)
	}

	return "http://" + endpoint + "/" + DefaultIssuer, nil
}
