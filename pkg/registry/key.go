package registry

import (
	"strings"

	"github.com/atlas-intel/dossier/pkg/payload"
)

// NormalizeDomain reduces a raw domain or URL to its bare lowercase host:
// scheme prefixes are stripped and everything from the first path, query or
// fragment separator on is cut off.
func NormalizeDomain(raw string) string {
	d := strings.TrimSpace(strings.ToLower(raw))
	d = strings.TrimPrefix(d, "http://")
	d = strings.TrimPrefix(d, "https://")

	if idx := strings.IndexAny(d, "/?#"); idx != -1 {
		d = d[:idx]
	}

	return d
}

// NormalizeName lowercases a display name and collapses internal whitespace.
func NormalizeName(raw string) string {
	return strings.ToLower(strings.Join(strings.Fields(raw), " "))
}

// BuildEntityKey derives the canonical identity string for an entity.
// Domain is the strongest identity signal (one company, one domain) and wins
// over the name whenever present; name is a deliberately weaker fallback.
// With neither, the key is the "n/v" placeholder and callers must treat the
// identity as unresolvable.
func BuildEntityKey(domain string, name string) string {
	if d := NormalizeDomain(domain); d != "" {
		return "domain:" + d
	}
	if n := NormalizeName(name); n != "" {
		return "name:" + n
	}
	return payload.Placeholder
}
