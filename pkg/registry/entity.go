package registry

import "github.com/atlas-intel/dossier/pkg/payload"

// Entity is a node in the intelligence graph: the target company, a
// manufacturer, a customer, a site, or any other related party.
//
// EntityID is assigned once at creation and never changes. EntityKey is the
// deterministic business identity (domain- or name-derived) that dedup and
// merge operate on; the two are independent on purpose so that ids stay
// stable even when identity resolution improves between steps.
type Entity struct {
	EntityID   string              `json:"entity_id"`
	EntityType string              `json:"entity_type"`
	EntityName string              `json:"entity_name"`
	Domain     string              `json:"domain,omitempty"`
	EntityKey  string              `json:"entity_key"`
	Attributes map[string]any      `json:"attributes"`
	Sources    []payload.SourceRef `json:"sources"`
}

// Relation is a directed, typed edge between two entities. Relations are
// facts asserted by a single agent: they accumulate and are never revised.
type Relation struct {
	SourceID     string              `json:"source_id"`
	TargetID     string              `json:"target_id"`
	RelationType string              `json:"relation_type"`
	Evidence     []payload.SourceRef `json:"evidence"`
}

// Entity type vocabulary. Unknown types are legal and fall back to the ENT
// id prefix.
const (
	TypeTargetCompany = "target_company"
	TypeManufacturer  = "manufacturer"
	TypeCustomer      = "customer"
	TypeSite          = "site"
	TypeSubsidiary    = "subsidiary"
	TypePeer          = "peer"
	TypeSupplier      = "supplier"
)

// TargetEntityID is the fixed id of the single target company of a run.
const TargetEntityID = "TGT-001"
