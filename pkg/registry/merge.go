package registry

import (
	"github.com/atlas-intel/dossier/pkg/logger"
	"github.com/atlas-intel/dossier/pkg/payload"
)

// MergeStats are the audit counts returned by Merge. The merge itself always
// succeeds structurally; content trust is decided by the contract validator
// before the merge and by the crossref check after it.
type MergeStats struct {
	NewEntities     int `json:"new_entities"`
	UpdatedEntities int `json:"updated_entities"`
	NewRelations    int `json:"new_relations"`
}

// Merge folds one validated step delta into the registry. This is the single
// read-modify-write transaction point of the whole pipeline.
//
// Entity deltas are deduplicated first, then looked up by entity key:
// unknown keys create a new entity (allocating an id unless the payload pins
// one), known keys update the existing entity by shallow attribute union
// (delta values win per key, absent keys are preserved) and append-only
// source accumulation. Relation deltas are appended unconditionally; endpoint
// existence is deliberately not checked here, the crossref audit covers it.
func Merge(
	reg *Registry,
	entitiesDelta []payload.EntityDelta,
	relationsDelta []payload.RelationDelta,
	alloc *IDAllocator,
) MergeStats {
	var stats MergeStats

	if alloc == nil {
		alloc = NewIDAllocator()
	}

	deduped := DedupeEntities(entitiesDelta)

	for _, d := range deduped {
		existing := reg.EntityByKey(d.EntityKey)
		if existing == nil {
			candidate := newEntityFromDelta(d, reg, alloc)
			if prior := reg.Entity(candidate.EntityID); prior != nil {
				// Id already taken: a singleton or pinned id arrived under a
				// key variant (www vs apex domain, say). The first entity
				// keeps its id and key; the delta folds onto it so nothing
				// accumulated so far is lost.
				mergeIntoExisting(prior, d)
				stats.UpdatedEntities++
				continue
			}
			reg.insert(candidate)
			stats.NewEntities++
			continue
		}

		mergeIntoExisting(existing, d)
		stats.UpdatedEntities++
	}

	for _, rd := range relationsDelta {
		reg.Relations = append(reg.Relations, Relation{
			SourceID:     rd.SourceID,
			TargetID:     rd.TargetID,
			RelationType: rd.RelationType,
			Evidence:     append([]payload.SourceRef{}, rd.Evidence...),
		})
		stats.NewRelations++
	}

	logger.Debug("[Registry] Merged delta",
		"new_entities", stats.NewEntities,
		"updated_entities", stats.UpdatedEntities,
		"new_relations", stats.NewRelations,
	)

	return stats
}

func newEntityFromDelta(d payload.EntityDelta, reg *Registry, alloc *IDAllocator) *Entity {
	id := d.EntityID
	if id == "" {
		id = alloc.Allocate(d.EntityType, reg)
	}

	attrs := make(map[string]any, len(d.Attributes))
	for k, v := range d.Attributes {
		attrs[k] = v
	}

	return &Entity{
		EntityID:   id,
		EntityType: d.EntityType,
		EntityName: d.EntityName,
		Domain:     d.Domain,
		EntityKey:  d.EntityKey,
		Attributes: attrs,
		Sources:    append([]payload.SourceRef{}, d.Sources...),
	}
}

// mergeIntoExisting applies the documented update semantics: shallow map
// union on attributes with the delta winning per key, sources appended
// without dedup (source dedup is each agent's own responsibility).
func mergeIntoExisting(e *Entity, d payload.EntityDelta) {
	if e.Attributes == nil {
		e.Attributes = make(map[string]any, len(d.Attributes))
	}
	for k, v := range d.Attributes {
		e.Attributes[k] = v
	}

	e.Sources = append(e.Sources, d.Sources...)
}
