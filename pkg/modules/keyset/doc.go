// Package keyset wraps a mock OAuth2 server whose readiness endpoint serves a JSON key-set
// document, for tests that need a token issuer with a published JWKS.
//
// Usage example:
//
//	svc, err := keyset.New(lifecycle, service.WithVersion("2.1.10"))
//	if err != nil {
//	    return err
//	}
//	return svc.Run(ctx, func(ctx context.Context, svc *service.Service) error {
//	    issuer, err := keyset.IssuerURL(ctx, svc)
//	    ...
//	})
package keyset
