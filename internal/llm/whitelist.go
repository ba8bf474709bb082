package llm

import (
	"sort"
	"strings"
)

// Whitelist gates which upstream models tenants may select. Patterns are
// matched as substrings of the normalized model name, so "gemini 2.5 pro"
// admits every 2.5 Pro revision without enumerating them.
type Whitelist struct {
	patterns []string
}

func NewWhitelist(patterns []string) *Whitelist {
	normalized := make([]string, 0, len(patterns))
	for _, p := range patterns {
		if n := normalizeModelName(p); n != "" {
			normalized = append(normalized, n)
		}
	}
	return &Whitelist{patterns: normalized}
}

// normalizeModelName lowercases and collapses separator runs to single
// spaces so "gemini-2.5-pro", "gemini_2.5_pro" and "Gemini 2.5 Pro" all
// compare equal.
func normalizeModelName(name string) string {
	s := strings.ToLower(name)
	s = strings.NewReplacer("-", " ", "_", " ", ".", ".").Replace(s)
	return strings.Join(strings.Fields(s), " ")
}

// IsWhitelisted reports whether the model id or display name matches any
// configured pattern. An empty whitelist admits nothing.
func (w *Whitelist) IsWhitelisted(idOrName string) bool {
	candidate := normalizeModelName(idOrName)
	if candidate == "" {
		return false
	}
	for _, p := range w.patterns {
		if strings.Contains(candidate, p) {
			return true
		}
	}
	return false
}

// FilterCatalog keeps only whitelisted chat models, dropping embedding
// models regardless of the whitelist, and returns them sorted by display
// name case-insensitively.
func (w *Whitelist) FilterCatalog(models []Descriptor) []Descriptor {
	out := make([]Descriptor, 0, len(models))
	for _, m := range models {
		if strings.Contains(strings.ToLower(m.ID), "embedding") {
			continue
		}
		if w.IsWhitelisted(m.ID) || w.IsWhitelisted(m.DisplayName) {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return strings.ToLower(out[i].DisplayName) < strings.ToLower(out[j].DisplayName)
	})
	return out
}
