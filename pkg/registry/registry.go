package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
)

// Registry is the aggregate root of one pipeline run: every validated step
// delta is folded into it and the export stage reads its snapshot at the end.
// It lives in memory for the duration of a run; there is no persistence
// between runs except through exported files.
//
// Exactly one entity exists per distinct entity key at any time. Relations
// are an append-only sequence in merge order.
type Registry struct {
	EntitiesByID  map[string]*Entity
	EntitiesByKey map[string]string
	Relations     []Relation
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		EntitiesByID:  make(map[string]*Entity),
		EntitiesByKey: make(map[string]string),
	}
}

// Entity returns the entity with the given id, or nil.
func (r *Registry) Entity(id string) *Entity {
	return r.EntitiesByID[id]
}

// EntityByKey returns the entity with the given entity key, or nil.
func (r *Registry) EntityByKey(key string) *Entity {
	id, ok := r.EntitiesByKey[key]
	if !ok {
		return nil
	}
	return r.EntitiesByID[id]
}

// insert adds a new entity to both indices. The caller guarantees that
// neither the id nor the key is already taken.
func (r *Registry) insert(e *Entity) {
	r.EntitiesByID[e.EntityID] = e
	r.EntitiesByKey[e.EntityKey] = e.EntityID
}

// Snapshot is the stable dict form of a registry, consumed by the exporter
// and the crossref check.
type Snapshot struct {
	Entities  []Entity   `json:"entities"`
	Relations []Relation `json:"relations"`
}

// Snapshot returns the registry's export form. Entities are ordered by id so
// the output is stable across runs with identical inputs.
func (r *Registry) Snapshot() Snapshot {
	entities := make([]Entity, 0, len(r.EntitiesByID))
	for _, e := range r.EntitiesByID {
		entities = append(entities, *e)
	}
	sort.Slice(entities, func(i, j int) bool {
		return entities[i].EntityID < entities[j].EntityID
	})

	relations := make([]Relation, len(r.Relations))
	copy(relations, r.Relations)

	return Snapshot{Entities: entities, Relations: relations}
}

// FromSnapshot rebuilds a registry from an exported snapshot. This is how a
// fresh allocator and the crossref check resume against a registry built by a
// separate process.
func FromSnapshot(s Snapshot) *Registry {
	r := NewRegistry()
	for i := range s.Entities {
		e := s.Entities[i]
		r.insert(&e)
	}
	r.Relations = append(r.Relations, s.Relations...)
	return r
}

// LoadSnapshot reads an exported snapshot from disk.
func LoadSnapshot(path string) (Snapshot, error) {
	var s Snapshot
	data, err := os.ReadFile(path)
	if err != nil {
		return s, fmt.Errorf("failed to read registry snapshot: %w", err)
	}
	if err := json.Unmarshal(data, &s); err != nil {
		return s, fmt.Errorf("failed to parse registry snapshot: %w", err)
	}
	return s, nil
}
