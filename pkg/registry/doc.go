// Package registry resolves credentials and pull options for the images servicewrap launches.
//
// Key components:
//   - GetPullOptions: Builds image pull options carrying encoded registry credentials.
//   - EncodedAuth: Looks up credentials from the environment, then the Docker CLI config.
//   - RegistryAddress: Maps an image reference to the registry host used for credential lookup.
//
// Usage example:
//
//	opts, err := registry.GetPullOptions("ghcr.io/navikt/mock-oauth2-server:2.1.10")
//	if err != nil {
//	    logrus.WithError(err).Warn("Pulling without credentials")
//	}
//	reader, err := api.ImagePull(ctx, ref, opts)
package registry
