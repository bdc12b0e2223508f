// Package http exposes the access-control engine over HTTP.
package http

import (
	"context"

	securityDomain "github.com/loamstore/access/internal/security/domain"
)

// credentialsKey is a context key type for storing caller credentials.
type credentialsKey struct{}

// WithCredentials stores the caller's credentials in the context.
// This is called by the credentials middleware after decoding the headers.
func WithCredentials(ctx context.Context, c securityDomain.Credentials) context.Context {
	return context.WithValue(ctx, credentialsKey{}, c)
}

// GetCredentials retrieves the caller's credentials from the context.
// Returns (credentials, true) if present, or (zero, false) if the
// credentials middleware did not run.
func GetCredentials(ctx context.Context) (securityDomain.Credentials, bool) {
	c, ok := ctx.Value(credentialsKey{}).(securityDomain.Credentials)
	return c, ok
}
