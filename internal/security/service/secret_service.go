// Package service provides security-related services for secret hashing.
// Secrets presented by users are Argon2id-hashed before they reach the
// identity store; the plain secret never persists.
package service

import (
	"github.com/allisson/go-pwdhash"

	apperrors "github.com/loamstore/access/internal/errors"
)

// SecretService hashes and verifies user secrets.
type SecretService interface {
	// HashSecret hashes a plain secret for storage.
	HashSecret(secret []byte) (string, error)

	// CompareSecret performs a constant-time comparison between a plain
	// secret and its stored hash.
	CompareSecret(secret []byte, hashedSecret string) bool
}

// secretService implements SecretService using Argon2id.
type secretService struct {
	hasher *pwdhash.PasswordHasher
}

// NewSecretService creates a new SecretService instance using Argon2id hashing.
// Uses the Moderate policy for a balance between security and performance.
func NewSecretService() SecretService {
	hasher, err := pwdhash.New(
		pwdhash.WithPolicy(pwdhash.PolicyModerate),
	)
	if err != nil {
		// This should never happen with valid policy
		panic(err)
	}

	return &secretService{hasher: hasher}
}

// HashSecret hashes a plain secret using Argon2id.
func (s *secretService) HashSecret(secret []byte) (string, error) {
	hashed, err := s.hasher.Hash(secret)
	if err != nil {
		return "", apperrors.Wrap(err, "failed to hash secret")
	}
	return hashed, nil
}

// CompareSecret verifies a plain secret against its stored hash.
func (s *secretService) CompareSecret(secret []byte, hashedSecret string) bool {
	ok, err := s.hasher.Verify(secret, hashedSecret)
	if err != nil {
		return false
	}
	return ok
}
