// Package validation provides custom validation rules for the application.
package validation

import (
	"regexp"
	"strings"

	validation "github.com/jellydator/validation"

	apperrors "github.com/loamstore/access/internal/errors"
)

var (
	// usernameRegex restricts usernames to a safe identifier alphabet.
	usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._\-]*$`)
	// tableIDRegex matches table identifiers assigned by the table manager.
	tableIDRegex = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._\-]*$`)
	// labelRegex matches a single visibility label.
	labelRegex = regexp.MustCompile(`^[a-zA-Z0-9._\-:/]+$`)
)

// WrapValidationError wraps validation errors as domain ErrInvalidInput
func WrapValidationError(err error) error {
	if err == nil {
		return nil
	}
	return apperrors.Wrap(apperrors.ErrInvalidInput, err.Error())
}

// Username validates a username. Names starting with "!" are reserved for
// internal identities and never accepted from the outside.
var Username = validation.NewStringRuleWithError(
	func(s string) bool {
		return usernameRegex.MatchString(s)
	},
	validation.NewError(
		"validation_username_format",
		"must contain only letters, digits, dots, underscores, or hyphens and must not start with a reserved character",
	),
)

// TableID validates a table identifier supplied by a caller. The reserved
// metadata identifier is accepted because callers legitimately name it.
var TableID = validation.By(func(value interface{}) error {
	s, ok := value.(string)
	if !ok {
		return validation.NewError("validation_table_id_type", "must be a string")
	}
	if s == "" {
		return nil // Let Required handle empty strings
	}
	if strings.HasPrefix(s, "!") {
		return nil // reserved identifiers such as the metadata table
	}
	if !tableIDRegex.MatchString(s) {
		return validation.NewError(
			"validation_table_id_format",
			"must contain only letters, digits, dots, underscores, or hyphens",
		)
	}
	return nil
})

// VisibilityLabel validates a single authorization label.
var VisibilityLabel = validation.NewStringRuleWithError(
	func(s string) bool {
		return labelRegex.MatchString(s)
	},
	validation.NewError(
		"validation_label_format",
		"must contain only letters, digits, dots, underscores, hyphens, colons, or slashes",
	),
)

// VisibilityLabels validates every label in a string slice.
var VisibilityLabels = validation.By(func(value interface{}) error {
	labels, ok := value.([]string)
	if !ok {
		return validation.NewError("validation_labels_type", "must be a list of strings")
	}
	for _, label := range labels {
		if !labelRegex.MatchString(label) {
			return validation.NewError(
				"validation_label_format",
				"label "+label+" must contain only letters, digits, dots, underscores, hyphens, colons, or slashes",
			)
		}
	}
	return nil
})

// NoWhitespace validates that string doesn't contain leading/trailing whitespace
var NoWhitespace = validation.NewStringRuleWithError(
	func(s string) bool {
		return s == strings.TrimSpace(s)
	},
	validation.NewError("validation_no_whitespace", "must not contain leading or trailing whitespace"),
)

// NotBlank validates that a string is not empty after trimming whitespace
var NotBlank = validation.NewStringRuleWithError(
	func(s string) bool {
		return strings.TrimSpace(s) != ""
	},
	validation.NewError("validation_not_blank", "must not be blank"),
)
