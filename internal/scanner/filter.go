package scanner

import (
	"strings"

	"github.com/IGLOU-EU/go-wildcard/v2"
)

// Filter selects resources by name with shell-style patterns ("*", "?").
// Exclude patterns win over include patterns; an empty include list admits
// every name not excluded.
type Filter struct {
	Include []string
	Exclude []string
}

// Allowed reports whether a resource named name passes the filter.
func (f Filter) Allowed(name string) bool {
	name = strings.TrimSpace(name)
	for _, pattern := range f.Exclude {
		if wildcard.Match(pattern, name) {
			return false
		}
	}
	if len(f.Include) == 0 {
		return true
	}
	for _, pattern := range f.Include {
		if wildcard.Match(pattern, name) {
			return true
		}
	}
	return false
}
