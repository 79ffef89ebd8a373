package container

import (
	"context"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	dockerJSONMessage "github.com/docker/docker/pkg/jsonmessage"

	"github.com/nicholas-fedor/servicewrap/pkg/registry"
)

// PullPolicy controls when Start pulls the requested image.
type PullPolicy string

// Supported pull policies.
const (
	PullMissing PullPolicy = "missing" // Pull only when the image is not present locally.
	PullAlways  PullPolicy = "always"  // Pull on every start.
	PullNever   PullPolicy = "never"   // Never pull; fail when the image is missing.
)

// Validate returns an error for unknown pull policies.
func (p PullPolicy) Validate() error {
	switch p {
	case PullMissing, PullAlways, PullNever:
		return nil
	default:
		return fmt.Errorf("%w: %q", errInvalidPullPolicy, string(p))
	}
}

// ensureImage makes sure the image is available locally according to the pull policy.
//
// Parameters:
//   - ctx: Context for the requests.
//   - imageRef: Fully qualified image reference.
//
// Returns:
//   - error: Non-nil if the image is unavailable.
func (c client) ensureImage(ctx context.Context, imageRef string) error {
	clog := logrus.WithFields(logrus.Fields{
		"image":       imageRef,
		"pull_policy": c.PullPolicy,
	})

	if c.PullPolicy != PullAlways {
		_, err := c.api.ImageInspect(ctx, imageRef)
		if err == nil {
			clog.Debug("Image present locally")

			return nil
		}

		if !isNotFound(err) {
			clog.WithError(err).Debug("Failed to inspect image")

			return fmt.Errorf("%w: %w", errInspectImageFailed, err)
		}

		if c.PullPolicy == PullNever {
			return fmt.Errorf("%w: %s", errImageNotPresent, imageRef)
		}
	}

	return c.pullImage(ctx, imageRef)
}

// pullImage pulls an image and drains the progress stream, surfacing stream errors.
func (c client) pullImage(ctx context.Context, imageRef string) error {
	clog := logrus.WithField("image", imageRef)

	opts, err := registry.GetPullOptions(imageRef)
	if err != nil {
		// Public images still pull without credentials.
		clog.WithError(err).Warn("Could not resolve registry credentials, pulling anonymously")
	}

	clog.Info("Pulling image")

	response, err := c.api.ImagePull(ctx, imageRef, opts)
	if err != nil {
		clog.WithError(err).Debug("Failed to start image pull")

		return fmt.Errorf("%w: %w", errPullImageFailed, err)
	}
	defer response.Close()

	if err := dockerJSONMessage.DisplayJSONMessagesStream(response, io.Discard, 0, false, nil); err != nil {
		clog.WithError(err).Debug("Image pull reported an error")

		return fmt.Errorf("%w: %w", errPullImageFailed, err)
	}

	clog.Debug("Pulled image")

	return nil
}
