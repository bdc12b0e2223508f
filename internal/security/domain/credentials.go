// Package domain defines the access-control domain model: credentials,
// system and table permissions, visibility authorizations, and the typed
// security errors surfaced to callers.
package domain

import "crypto/subtle"

// Reserved identities and tables recognized by the decision engine.
const (
	// SystemUsername is the non-human identity used for trusted inter-node
	// calls. It is authenticated by secret/instance match against the
	// process-wide system credential, never against the identity backend.
	SystemUsername = "!SYSTEM"

	// MetadataTableID is the store's internal table describing its own
	// tablet layout. READ on it is universally granted.
	MetadataTableID = "!METADATA"
)

// Credentials is the identity presented on every call: a username, an opaque
// secret, and the cluster-instance tag the caller believes it is talking to.
// Credentials are compared by value and never persisted by the engine.
type Credentials struct {
	User       string
	Secret     []byte
	InstanceID string
}

// NewCredentials builds a Credentials value from its parts.
func NewCredentials(user string, secret []byte, instanceID string) Credentials {
	return Credentials{User: user, Secret: secret, InstanceID: instanceID}
}

// SecretMatches reports whether the presented secret equals other,
// comparing the full content in constant time.
func (c Credentials) SecretMatches(other []byte) bool {
	return subtle.ConstantTimeCompare(c.Secret, other) == 1
}

// Equal reports whether two credentials carry the same user, secret, and
// instance tag.
func (c Credentials) Equal(other Credentials) bool {
	return c.User == other.User &&
		c.InstanceID == other.InstanceID &&
		c.SecretMatches(other.Secret)
}

// IsSystem reports whether the credentials name the system identity.
func (c Credentials) IsSystem() bool {
	return c.User == SystemUsername
}
