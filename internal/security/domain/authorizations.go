package domain

import (
	"slices"
	"strings"
)

// Authorizations is the set of opaque visibility labels associated with a
// user, used for record-level read filtering elsewhere in the store. The
// engine exposes them only as get/set; labels are kept sorted and
// de-duplicated so two sets compare by simple equality.
type Authorizations []string

// NoAuthorizations is the empty label set.
var NoAuthorizations = Authorizations{}

// NewAuthorizations builds a normalized label set: blank labels dropped,
// duplicates removed, remainder sorted.
func NewAuthorizations(labels ...string) Authorizations {
	out := make(Authorizations, 0, len(labels))
	for _, l := range labels {
		l = strings.TrimSpace(l)
		if l == "" {
			continue
		}
		if !slices.Contains(out, l) {
			out = append(out, l)
		}
	}
	slices.Sort(out)
	return out
}

// Contains reports whether the set holds the given label.
func (a Authorizations) Contains(label string) bool {
	return slices.Contains(a, label)
}

// Equal reports whether two normalized sets hold the same labels.
func (a Authorizations) Equal(other Authorizations) bool {
	return slices.Equal(a, other)
}

// String renders the set as a comma-separated list.
func (a Authorizations) String() string {
	return strings.Join(a, ",")
}
