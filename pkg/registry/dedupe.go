package registry

import (
	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/atlas-intel/dossier/pkg/payload"
)

// DedupeEntities collapses a batch of entity deltas to one payload per
// identity. It is a pure single pass over the input and never touches the
// registry: the first payload seen for a key survives, later payloads for the
// same key are dropped, and input order is preserved as the caller's
// priority.
//
// The resolved entity key is written back into each surviving payload so the
// merge sees a consistent key. Payloads whose identity is fully unresolvable
// (no domain, no name) get a generated unique suffix instead of the bare
// placeholder, so they stay distinct rather than silently collapsing into one
// entity.
func DedupeEntities(deltas []payload.EntityDelta) []payload.EntityDelta {
	seen := make(map[string]bool, len(deltas))
	result := make([]payload.EntityDelta, 0, len(deltas))

	for _, d := range deltas {
		key := resolveDedupeKey(d)
		if key == payload.Placeholder {
			key = payload.Placeholder + "#" + newOpaqueSuffix()
		}
		if seen[key] {
			continue
		}
		seen[key] = true

		d.EntityKey = key
		result = append(result, d)
	}

	return result
}

// resolveDedupeKey picks the identity to dedupe on: an explicit
// non-placeholder entity_key wins, then the payload's domain, then its name.
func resolveDedupeKey(d payload.EntityDelta) string {
	if d.EntityKey != "" && d.EntityKey != payload.Placeholder {
		return d.EntityKey
	}
	return BuildEntityKey(d.Domain, d.EntityName)
}

func newOpaqueSuffix() string {
	id, err := gonanoid.New()
	if err != nil {
		// Only fails when the system entropy source does; the fixed suffix
		// still keeps the placeholder from matching real keys.
		return "unresolved"
	}
	return id
}
