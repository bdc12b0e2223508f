package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"

	apperrors "github.com/loamstore/access/internal/errors"
)

func TestCredentials(t *testing.T) {
	t.Run("SecretMatches_FullContent", func(t *testing.T) {
		c := NewCredentials("alice", []byte("s3cret"), "inst-1")
		assert.True(t, c.SecretMatches([]byte("s3cret")))
		assert.False(t, c.SecretMatches([]byte("s3cre")))
		assert.False(t, c.SecretMatches([]byte("S3cret")))
		assert.False(t, c.SecretMatches(nil))
	})

	t.Run("Equal", func(t *testing.T) {
		a := NewCredentials("alice", []byte("s3cret"), "inst-1")
		assert.True(t, a.Equal(NewCredentials("alice", []byte("s3cret"), "inst-1")))
		assert.False(t, a.Equal(NewCredentials("alice", []byte("s3cret"), "inst-2")))
		assert.False(t, a.Equal(NewCredentials("bob", []byte("s3cret"), "inst-1")))
		assert.False(t, a.Equal(NewCredentials("alice", []byte("other"), "inst-1")))
	})

	t.Run("IsSystem", func(t *testing.T) {
		assert.True(t, NewCredentials(SystemUsername, nil, "inst-1").IsSystem())
		assert.False(t, NewCredentials("alice", nil, "inst-1").IsSystem())
	})
}

func TestSystemPermission(t *testing.T) {
	t.Run("ParseValid", func(t *testing.T) {
		for _, p := range SystemPermissions() {
			parsed, ok := ParseSystemPermission(p.String())
			assert.True(t, ok)
			assert.Equal(t, p, parsed)
		}
	})

	t.Run("ParseInvalid", func(t *testing.T) {
		_, ok := ParseSystemPermission("fly")
		assert.False(t, ok)
		assert.False(t, SystemPermission("").Valid())
	})
}

func TestTablePermission(t *testing.T) {
	t.Run("ParseValid", func(t *testing.T) {
		for _, p := range TablePermissions() {
			parsed, ok := ParseTablePermission(p.String())
			assert.True(t, ok)
			assert.Equal(t, p, parsed)
		}
	})

	t.Run("ParseInvalid", func(t *testing.T) {
		_, ok := ParseTablePermission("read ")
		assert.False(t, ok)
	})

	t.Run("DistinctFromSystemEnum", func(t *testing.T) {
		// "bulk-import" is table-only, "create-user" system-only.
		_, ok := ParseSystemPermission("bulk-import")
		assert.False(t, ok)
		_, ok = ParseTablePermission("create-user")
		assert.False(t, ok)
	})
}

func TestAuthorizations(t *testing.T) {
	t.Run("Normalization", func(t *testing.T) {
		a := NewAuthorizations("secret", "public", "secret", " ", "public")
		assert.Equal(t, Authorizations{"public", "secret"}, a)
	})

	t.Run("ContainsAndEqual", func(t *testing.T) {
		a := NewAuthorizations("b", "a")
		assert.True(t, a.Contains("a"))
		assert.False(t, a.Contains("c"))
		assert.True(t, a.Equal(NewAuthorizations("a", "b")))
		assert.False(t, a.Equal(NewAuthorizations("a")))
		assert.True(t, NewAuthorizations().Equal(NoAuthorizations))
	})

	t.Run("String", func(t *testing.T) {
		assert.Equal(t, "a,b", NewAuthorizations("b", "a").String())
		assert.Equal(t, "", NoAuthorizations.String())
	})
}

func TestError(t *testing.T) {
	t.Run("Message", func(t *testing.T) {
		err := NewError("alice", ErrCodePermissionDenied)
		assert.Contains(t, err.Error(), "alice")
		assert.Contains(t, err.Error(), "PERMISSION_DENIED")
	})

	t.Run("UnwrapsToSentinels", func(t *testing.T) {
		tests := []struct {
			code     ErrorCode
			sentinel error
		}{
			{ErrCodeBadCredentials, apperrors.ErrUnauthorized},
			{ErrCodeInvalidInstance, apperrors.ErrUnauthorized},
			{ErrCodePermissionDenied, apperrors.ErrForbidden},
			{ErrCodeGrantInvalid, apperrors.ErrForbidden},
			{ErrCodeUserDoesntExist, apperrors.ErrNotFound},
			{ErrCodeTableDoesntExist, apperrors.ErrNotFound},
		}
		for _, tt := range tests {
			t.Run(string(tt.code), func(t *testing.T) {
				assert.True(t, apperrors.Is(NewError("u", tt.code), tt.sentinel))
			})
		}
	})

	t.Run("IsCode", func(t *testing.T) {
		err := apperrors.Wrap(NewError("u", ErrCodeGrantInvalid), "grant system permission")
		assert.True(t, IsCode(err, ErrCodeGrantInvalid))
		assert.False(t, IsCode(err, ErrCodePermissionDenied))
		assert.False(t, IsCode(apperrors.New("boom"), ErrCodeGrantInvalid))
	})
}
