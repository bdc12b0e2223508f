// Package dto provides data transfer objects for HTTP request and response handling.
package dto

import (
	validation "github.com/jellydator/validation"

	customValidation "github.com/loamstore/access/internal/validation"
)

// InitializeSecurityRequest seeds the bootstrap root identity.
type InitializeSecurityRequest struct {
	RootUser   string `json:"root_user"`
	RootSecret string `json:"root_secret"` // base64-encoded
}

// Validate checks if the initialize request is valid.
func (r *InitializeSecurityRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.RootUser,
			validation.Required,
			validation.Length(1, 128),
			customValidation.Username,
		),
		validation.Field(&r.RootSecret,
			validation.Required,
			customValidation.Base64,
		),
	)
}

// AuthenticateUserRequest verifies a user's credentials on their behalf.
type AuthenticateUserRequest struct {
	User   string `json:"user"`
	Secret string `json:"secret"` // base64-encoded
}

// Validate checks if the authenticate request is valid.
func (r *AuthenticateUserRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.User,
			validation.Required,
			validation.Length(1, 128),
		),
		validation.Field(&r.Secret,
			customValidation.Base64,
		),
	)
}

// CreateUserRequest creates a new user with an optional initial label set.
type CreateUserRequest struct {
	User           string   `json:"user"`
	Secret         string   `json:"secret"` // base64-encoded
	Authorizations []string `json:"authorizations"`
}

// Validate checks if the create user request is valid.
func (r *CreateUserRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.User,
			validation.Required,
			validation.Length(1, 128),
			customValidation.Username,
		),
		validation.Field(&r.Secret,
			validation.Required,
			customValidation.Base64,
		),
		validation.Field(&r.Authorizations,
			customValidation.VisibilityLabels,
		),
	)
}

// ChangePasswordRequest replaces a user's secret.
type ChangePasswordRequest struct {
	Secret string `json:"secret"` // base64-encoded
}

// Validate checks if the change password request is valid.
func (r *ChangePasswordRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Secret,
			validation.Required,
			customValidation.Base64,
		),
	)
}

// ChangeAuthorizationsRequest replaces a user's visibility labels.
type ChangeAuthorizationsRequest struct {
	Authorizations []string `json:"authorizations"`
}

// Validate checks if the change authorizations request is valid.
func (r *ChangeAuthorizationsRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Authorizations,
			customValidation.VisibilityLabels,
		),
	)
}

// ClearUserCacheRequest selects which cached entries to drop for a user.
type ClearUserCacheRequest struct {
	Password       bool     `json:"password"`
	Authorizations bool     `json:"authorizations"`
	System         bool     `json:"system"`
	Tables         []string `json:"tables"`
}

// Validate checks if the clear user cache request is valid.
func (r *ClearUserCacheRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Tables,
			validation.Each(customValidation.TableID),
		),
	)
}
