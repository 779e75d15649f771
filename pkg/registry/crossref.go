package registry

import "fmt"

// CrossrefIssue flags one relation endpoint that does not resolve to an
// entity in the registry.
type CrossrefIssue struct {
	RelationIndex int    `json:"relation_index"`
	Field         string `json:"field"`
	EntityID      string `json:"entity_id"`
	Message       string `json:"message"`
}

// CheckCrossrefs audits every relation for dangling endpoints. The merge is
// deliberately permissive about them, so this is a separate report a human or
// CI step runs before publishing results, not an inline gate.
func CheckCrossrefs(reg *Registry) []CrossrefIssue {
	var issues []CrossrefIssue

	for i, rel := range reg.Relations {
		if reg.Entity(rel.SourceID) == nil {
			issues = append(issues, crossrefIssue(i, "source_id", rel.SourceID))
		}
		if reg.Entity(rel.TargetID) == nil {
			issues = append(issues, crossrefIssue(i, "target_id", rel.TargetID))
		}
	}

	return issues
}

func crossrefIssue(idx int, field string, id string) CrossrefIssue {
	return CrossrefIssue{
		RelationIndex: idx,
		Field:         field,
		EntityID:      id,
		Message:       fmt.Sprintf("relation %d references unknown entity %q via %s", idx, id, field),
	}
}
