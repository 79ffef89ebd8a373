package probe

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/sirupsen/logrus"
)

// DefaultHTTPTimeout bounds a single HTTP probe when no timeout is configured.
const DefaultHTTPTimeout = 5 * time.Second

// maxBodySize caps how much of a readiness response is read.
const maxBodySize = 1 << 20

// Client is the HTTP client used by HTTP probes.
var Client = &http.Client{}

// UserAgent is the User-Agent header value sent by HTTP probes.
// It can be customized at build time using linker flags.
var UserAgent = "servicewrap/unknown"

// HTTP probes a readiness endpoint with a GET request.
//
// The probe succeeds on any 2xx status. When RequiredKeys is set, the body must also be a JSON
// object containing every listed key, as served by key-set documents such as JWKS.
type HTTP struct {
	Port         nat.Port      // Container port; empty means the service port.
	Path         string        // Request path; defaults to "/".
	Scheme       string        // URL scheme; defaults to "http".
	Timeout      time.Duration // Per-request timeout; defaults to DefaultHTTPTimeout.
	RequiredKeys []string      // Top-level JSON keys that must be present.
}

// Check performs the readiness request against the target.
//
// Parameters:
//   - ctx: Context for the request.
//   - target: Instance to probe.
//
// Returns:
//   - error: Non-nil wrapping ErrProbeFailed if the endpoint is unreachable or not ready.
func (p HTTP) Check(ctx context.Context, target Target) error {
	endpoint, err := target.Endpoint(ctx, p.Port)
	if err != nil {
		return fmt.Errorf("%w: %w: %w", ErrProbeFailed, errEndpointUnavailable, err)
	}

	url := p.URL(endpoint)
	clog := logrus.WithField("url", url)

	timeout := p.Timeout
	if timeout <= 0 {
		timeout = DefaultHTTPTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("%w: %w: %w", ErrProbeFailed, errRequestFailed, err)
	}

	req.Header.Set("User-Agent", UserAgent)

	res, err := Client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w: %w", ErrProbeFailed, errRequestFailed, err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, maxBodySize))
	if err != nil {
		return fmt.Errorf("%w: %w: %w", ErrProbeFailed, errRequestFailed, err)
	}

	clog.WithField("status", res.StatusCode).Trace("Received readiness response")

	if res.StatusCode < http.StatusOK || res.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("%w: %w: %d", ErrProbeFailed, errUnexpectedStatus, res.StatusCode)
	}

	if len(p.RequiredKeys) == 0 {
		return nil
	}

	return checkKeys(body, p.RequiredKeys)
}

// URL builds the request URL for an endpoint address.
func (p HTTP) URL(endpoint string) string {
	scheme := p.Scheme
	if scheme == "" {
		scheme = "http"
	}

	path := p.Path
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	return fmt.Sprintf("%s://%s%s", scheme, endpoint, path)
}

// checkKeys verifies that body is a JSON object holding every required key.
func checkKeys(body []byte, required []string) error {
	var document map[string]json.RawMessage
	if err := json.Unmarshal(body, &document); err != nil || document == nil {
		return fmt.Errorf("%w: %w", ErrProbeFailed, errNotJSONObject)
	}

	var missing []string

	for _, key := range required {
		if _, ok := document[key]; !ok {
			missing = append(missing, key)
		}
	}

	if len(missing) > 0 {
		slices.Sort(missing)

		return fmt.Errorf("%w: %w: %s", ErrProbeFailed, errMissingKeys, strings.Join(missing, ", "))
	}

	return nil
}
