// Package resolve matches user-typed names against tenant records.
package resolve

import "strings"

// ByName finds an entity by display name in two phases: exact
// case-insensitive trimmed equality first, then bidirectional substring
// containment. Collection order breaks ties, first match wins. The caller
// decides whether a miss is fatal; for assignees it must be.
func ByName[T any](collection []T, nameOf func(T) string, query string) (T, bool) {
	var zero T
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return zero, false
	}
	for _, item := range collection {
		if strings.ToLower(strings.TrimSpace(nameOf(item))) == q {
			return item, true
		}
	}
	for _, item := range collection {
		name := strings.ToLower(strings.TrimSpace(nameOf(item)))
		if name == "" {
			continue
		}
		if strings.Contains(name, q) || strings.Contains(q, name) {
			return item, true
		}
	}
	return zero, false
}

// ByEmail requires exact case-insensitive equality; there is no fuzzy phase
// for emails.
func ByEmail[T any](collection []T, emailOf func(T) string, query string) (T, bool) {
	var zero T
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return zero, false
	}
	for _, item := range collection {
		if strings.ToLower(strings.TrimSpace(emailOf(item))) == q {
			return item, true
		}
	}
	return zero, false
}
