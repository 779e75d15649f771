package payload

import "encoding/json"

// Placeholder is the sentinel value meaning "not verifiable". It is used
// throughout instead of empty strings or nulls so that absence of evidence
// stays explicit and auditable in persisted artifacts.
const Placeholder = "n/v"

// StepMeta identifies one step execution. Every agent output carries it and
// the contract validator checks its shape before anything else is trusted.
type StepMeta struct {
	StepID          string `json:"step_id"`
	AgentName       string `json:"agent_name"`
	RunID           string `json:"run_id"`
	StartedAtUTC    string `json:"started_at_utc"`
	FinishedAtUTC   string `json:"finished_at_utc"`
	PipelineVersion string `json:"pipeline_version"`
}

// SourceRef is a single evidence citation.
type SourceRef struct {
	Publisher     string `json:"publisher"`
	URL           string `json:"url"`
	AccessedAtUTC string `json:"accessed_at_utc"`
}

// EntityDelta is one step's proposal for a new or updated entity. EntityID is
// usually empty and assigned by the registry at merge time; the intake step is
// the exception and pins the target company to its fixed id.
type EntityDelta struct {
	EntityID   string         `json:"entity_id,omitempty"`
	EntityType string         `json:"entity_type"`
	EntityName string         `json:"entity_name"`
	Domain     string         `json:"domain,omitempty"`
	EntityKey  string         `json:"entity_key,omitempty"`
	Attributes map[string]any `json:"attributes,omitempty"`
	Sources    []SourceRef    `json:"sources,omitempty"`
}

// RelationDelta is one step's proposal for a directed edge. Relations are
// append-only facts and are never revised after merge.
type RelationDelta struct {
	SourceID     string      `json:"source_id"`
	TargetID     string      `json:"target_id"`
	RelationType string      `json:"relation_type"`
	Evidence     []SourceRef `json:"evidence,omitempty"`
}

// CaseNormalized is the intake step's canonical view of the case input. Later
// steps receive it as folded-forward meta and must stay consistent with it.
type CaseNormalized struct {
	CompanyNameRaw       string `json:"company_name_raw"`
	CompanyNameCanonical string `json:"company_name_canonical"`
	WebDomainRaw         string `json:"web_domain_raw"`
	WebDomainNormalized  string `json:"web_domain_normalized"`
	EntityKey            string `json:"entity_key"`
}

// StepOutput is the common envelope every agent returns. Step-specific
// sections are optional typed fields; Raw keeps the decoded top-level keys so
// the validator can distinguish a missing section from an empty one.
type StepOutput struct {
	StepMeta       StepMeta        `json:"step_meta"`
	EntitiesDelta  []EntityDelta   `json:"entities_delta"`
	RelationsDelta []RelationDelta `json:"relations_delta"`
	Findings       []string        `json:"findings"`
	Sources        []SourceRef     `json:"sources"`

	CaseNormalized   *CaseNormalized     `json:"case_normalized,omitempty"`
	TargetEntityStub *EntityDelta        `json:"target_entity_stub,omitempty"`
	PrimarySources   []SourceRef         `json:"primary_sources,omitempty"`
	FieldSources     map[string][]string `json:"field_sources,omitempty"`
	SearchAttempts   []string            `json:"search_attempts,omitempty"`

	Raw map[string]json.RawMessage `json:"-"`
}

// AgentResult is what an agent call hands back to the runner. OK reflects the
// agent's own self-validation; the contract validator is the second gate.
type AgentResult struct {
	OK     bool        `json:"ok"`
	Error  string      `json:"error,omitempty"`
	Output *StepOutput `json:"output,omitempty"`
}

// Decode parses raw agent output into a StepOutput while preserving the
// top-level sections that were actually present.
func Decode(data []byte) (*StepOutput, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	var out StepOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	out.Raw = raw
	return &out, nil
}

// HasSection reports whether the named top-level section was present in the
// decoded output, regardless of whether it was empty.
func (o *StepOutput) HasSection(name string) bool {
	if o.Raw == nil {
		return false
	}
	_, ok := o.Raw[name]
	return ok
}

// Encode marshals the envelope back to JSON for artifact persistence.
func (o *StepOutput) Encode() ([]byte, error) {
	return json.MarshalIndent(o, "", "  ")
}
