package dto

import (
	securityDomain "github.com/loamstore/access/internal/security/domain"
)

// DecisionResponse carries the outcome of a permission check or an
// authentication attempt.
type DecisionResponse struct {
	Allowed bool `json:"allowed"`
}

// NewDecisionResponse wraps a boolean decision.
func NewDecisionResponse(allowed bool) DecisionResponse {
	return DecisionResponse{Allowed: allowed}
}

// AuthorizationsResponse carries a user's visibility labels.
type AuthorizationsResponse struct {
	User           string   `json:"user"`
	Authorizations []string `json:"authorizations"`
}

// NewAuthorizationsResponse maps a label set to its API representation.
func NewAuthorizationsResponse(user string, auths securityDomain.Authorizations) AuthorizationsResponse {
	labels := []string(auths)
	if labels == nil {
		labels = []string{}
	}
	return AuthorizationsResponse{User: user, Authorizations: labels}
}

// ListUsersResponse carries every known username.
type ListUsersResponse struct {
	Users []string `json:"users"`
}

// NewListUsersResponse wraps a username list, normalizing nil to empty.
func NewListUsersResponse(users []string) ListUsersResponse {
	if users == nil {
		users = []string{}
	}
	return ListUsersResponse{Users: users}
}

// CacheStatusResponse reports whether either backend still holds cached
// entries an explicit sweep could clear.
type CacheStatusResponse struct {
	Pending bool `json:"pending"`
}
