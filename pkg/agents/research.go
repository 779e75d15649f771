package agents

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/atlas-intel/dossier/pkg/ai"
	"github.com/atlas-intel/dossier/pkg/fetch"
	"github.com/atlas-intel/dossier/pkg/payload"
	"github.com/atlas-intel/dossier/pkg/pipeline"
	"github.com/atlas-intel/dossier/pkg/registry"
)

// researchEntity is the model-facing shape of a proposed entity. Attribute
// values are kept as strings in the schema; unverifiable fields carry the
// "n/v" placeholder instead of being omitted.
type researchEntity struct {
	EntityType string            `json:"entity_type" jsonschema_description:"One of target_company, manufacturer, customer, site, subsidiary, peer, supplier."`
	EntityName string            `json:"entity_name" jsonschema_description:"Name of the entity as found in the evidence."`
	Domain     string            `json:"domain" jsonschema_description:"Web domain of the entity, or n/v if unknown."`
	Attributes map[string]string `json:"attributes" jsonschema_description:"Factual attributes extracted from the evidence. Use n/v for unverifiable values."`
}

type researchRelation struct {
	SourceID     string `json:"source_id" jsonschema_description:"Entity id or name of the relation source. Use TGT-001 for the target company."`
	TargetID     string `json:"target_id" jsonschema_description:"Entity id or name of the relation target."`
	RelationType string `json:"relation_type" jsonschema_description:"Relation type such as operates_at, supplies_to or competes_with."`
}

// researchResponse is the structured output contract for all model-backed
// research steps.
type researchResponse struct {
	Entities       []researchEntity    `json:"entities"`
	Relations      []researchRelation  `json:"relations"`
	Findings       []string            `json:"findings" jsonschema_description:"Short factual statements supported by the evidence."`
	FieldSources   map[string][]string `json:"field_sources" jsonschema_description:"Maps each non-placeholder attribute to the evidence URLs backing it."`
	SearchAttempts []string            `json:"search_attempts" jsonschema_description:"Evidence locations that were checked but yielded nothing."`
}

// ResearchAgent is the shared implementation behind every model-backed step.
// It fetches the evidence pages for the run, asks the model for a structured
// extraction focused on one research question, and assembles the step output
// envelope. When PinTarget is set, attributes the model reports for the
// target company are folded onto the fixed TGT-001 entity so its identity can
// never drift from the intake result.
type ResearchAgent struct {
	stepID      string
	agentName   string
	focus       string
	pinTarget   bool
	noRelations bool

	client  ai.Client
	fetcher *fetch.Fetcher
	now     func() time.Time
}

// NewResearchAgentParams contains configuration for one research step.
type NewResearchAgentParams struct {
	StepID    string
	AgentName string
	Focus     string

	// PinTarget folds target-company attributes onto the fixed TGT-001
	// entity. NoRelations discards any relations the model proposes; the
	// legal identity step records facts about the target only.
	PinTarget   bool
	NoRelations bool

	Client  ai.Client
	Fetcher *fetch.Fetcher
}

// NewResearchAgent creates a model-backed research agent for one step.
func NewResearchAgent(params NewResearchAgentParams) *ResearchAgent {
	return &ResearchAgent{
		stepID:      params.StepID,
		agentName:   params.AgentName,
		focus:       params.Focus,
		pinTarget:   params.PinTarget,
		noRelations: params.NoRelations,
		client:      params.Client,
		fetcher:     params.Fetcher,
		now:         time.Now,
	}
}

func (a *ResearchAgent) Name() string {
	return a.agentName
}

const researchSystemPrompt = `You are a careful company research analyst.
You only report facts that are supported by the evidence text you are given.
For any value you cannot verify from the evidence, use the exact string "n/v".
Never guess and never invent URLs.`

func (a *ResearchAgent) Run(ctx context.Context, in pipeline.AgentInput) (payload.AgentResult, error) {
	started := a.now()

	if in.Meta.CaseNormalized == nil {
		return payload.AgentResult{OK: false, Error: "case_normalized meta missing, intake must run first"}, nil
	}
	caseNorm := in.Meta.CaseNormalized

	homepage := "https://" + caseNorm.WebDomainNormalized
	page, err := a.fetcher.Fetch(ctx, homepage)
	if err != nil {
		return payload.AgentResult{
			OK:    false,
			Error: fmt.Sprintf("evidence fetch failed: %v", err),
		}, nil
	}

	evidence := payload.SourceRef{
		Publisher:     caseNorm.WebDomainNormalized,
		URL:           page.URL,
		AccessedAtUTC: timestampUTC(page.FetchedAt),
	}

	prompt := a.buildPrompt(caseNorm, page)

	var resp researchResponse
	if err := a.client.GenerateCompletionWithFormat(
		ctx,
		"company_research",
		"Structured company research extraction from web evidence.",
		prompt,
		&resp,
		ai.WithSystemPrompts(researchSystemPrompt),
	); err != nil {
		return payload.AgentResult{
			OK:    false,
			Error: fmt.Sprintf("model extraction failed: %v", err),
		}, nil
	}

	out := a.assemble(in, caseNorm, evidence, &resp, started)

	return payload.AgentResult{OK: true, Output: out}, nil
}

func (a *ResearchAgent) buildPrompt(caseNorm *payload.CaseNormalized, page *fetch.Page) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Target company: %s\n", caseNorm.CompanyNameCanonical)
	fmt.Fprintf(&b, "Web domain: %s\n", caseNorm.WebDomainNormalized)
	fmt.Fprintf(&b, "Research question: %s\n\n", a.focus)
	fmt.Fprintf(&b, "Evidence page: %s\n", page.URL)
	if page.Title != "" {
		fmt.Fprintf(&b, "Page title: %s\n", page.Title)
	}
	b.WriteString("\nEvidence text:\n")
	b.WriteString(page.Text)
	b.WriteString("\n\nCite only the evidence page URL above in field_sources.")
	return b.String()
}

// assemble turns the model response into the step output envelope. All
// entities get the fetched evidence attached as their source so nothing in
// the registry ever cites a page this run did not actually read.
func (a *ResearchAgent) assemble(
	in pipeline.AgentInput,
	caseNorm *payload.CaseNormalized,
	evidence payload.SourceRef,
	resp *researchResponse,
	started time.Time,
) *payload.StepOutput {
	entities := make([]payload.EntityDelta, 0, len(resp.Entities))
	for _, e := range resp.Entities {
		delta := payload.EntityDelta{
			EntityType: e.EntityType,
			EntityName: e.EntityName,
			Attributes: attributesToAny(e.Attributes),
			Sources:    []payload.SourceRef{evidence},
		}
		if e.Domain != "" && e.Domain != payload.Placeholder {
			delta.Domain = registry.NormalizeDomain(e.Domain)
		}

		if a.pinTarget && e.EntityType == registry.TypeTargetCompany {
			delta.EntityID = registry.TargetEntityID
			delta.EntityName = caseNorm.CompanyNameCanonical
			delta.Domain = caseNorm.WebDomainNormalized
			delta.EntityKey = caseNorm.EntityKey
		}

		entities = append(entities, delta)
	}

	if a.pinTarget && !hasTargetEntity(entities) {
		entities = append(entities, payload.EntityDelta{
			EntityID:   registry.TargetEntityID,
			EntityType: registry.TypeTargetCompany,
			EntityName: caseNorm.CompanyNameCanonical,
			Domain:     caseNorm.WebDomainNormalized,
			EntityKey:  caseNorm.EntityKey,
			Attributes: map[string]any{},
			Sources:    []payload.SourceRef{evidence},
		})
	}

	relations := make([]payload.RelationDelta, 0, len(resp.Relations))
	if !a.noRelations {
		for _, r := range resp.Relations {
			relations = append(relations, payload.RelationDelta{
				SourceID:     r.SourceID,
				TargetID:     r.TargetID,
				RelationType: r.RelationType,
				Evidence:     []payload.SourceRef{evidence},
			})
		}
	}

	out := &payload.StepOutput{
		StepMeta: payload.StepMeta{
			StepID:          a.stepID,
			AgentName:       a.agentName,
			RunID:           in.RunID,
			StartedAtUTC:    timestampUTC(started),
			FinishedAtUTC:   timestampUTC(a.now()),
			PipelineVersion: in.PipelineVersion,
		},
		EntitiesDelta:  entities,
		RelationsDelta: relations,
		Findings:       resp.Findings,
		Sources:        []payload.SourceRef{evidence},
	}
	if out.Findings == nil {
		out.Findings = []string{}
	}
	if len(resp.FieldSources) > 0 {
		out.FieldSources = resp.FieldSources
	}
	if len(resp.SearchAttempts) > 0 {
		out.SearchAttempts = resp.SearchAttempts
	}

	return out
}

func hasTargetEntity(entities []payload.EntityDelta) bool {
	for _, e := range entities {
		if e.EntityID == registry.TargetEntityID {
			return true
		}
	}
	return false
}

func attributesToAny(attrs map[string]string) map[string]any {
	out := make(map[string]any, len(attrs))
	for k, v := range attrs {
		out[k] = v
	}
	return out
}
