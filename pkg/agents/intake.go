package agents

import (
	"context"
	"strings"
	"time"

	"github.com/atlas-intel/dossier/pkg/payload"
	"github.com/atlas-intel/dossier/pkg/pipeline"
	"github.com/atlas-intel/dossier/pkg/registry"
)

// timestampFormat is the wire shape of all step timestamps: UTC, second
// precision, trailing Z.
const timestampFormat = "2006-01-02T15:04:05Z"

func timestampUTC(t time.Time) string {
	return t.UTC().Format(timestampFormat)
}

// IntakeAgent normalizes the raw case input into the canonical case view and
// seeds the registry with the target company stub. It performs no network or
// model calls, so it can never fail on external conditions.
type IntakeAgent struct {
	now func() time.Time
}

// NewIntakeAgent creates the intake agent.
func NewIntakeAgent() *IntakeAgent {
	return &IntakeAgent{now: time.Now}
}

func (a *IntakeAgent) Name() string {
	return "intake"
}

func (a *IntakeAgent) Run(ctx context.Context, in pipeline.AgentInput) (payload.AgentResult, error) {
	started := a.now()

	nameCanonical := strings.Join(strings.Fields(in.Case.CompanyName), " ")
	domainNormalized := registry.NormalizeDomain(in.Case.WebDomain)
	entityKey := registry.BuildEntityKey(domainNormalized, nameCanonical)

	caseNorm := &payload.CaseNormalized{
		CompanyNameRaw:       in.Case.CompanyName,
		CompanyNameCanonical: nameCanonical,
		WebDomainRaw:         in.Case.WebDomain,
		WebDomainNormalized:  domainNormalized,
		EntityKey:            entityKey,
	}

	stub := &payload.EntityDelta{
		EntityID:   registry.TargetEntityID,
		EntityType: registry.TypeTargetCompany,
		EntityName: nameCanonical,
		Domain:     domainNormalized,
		EntityKey:  entityKey,
		Attributes: map[string]any{
			"country": in.Case.Country,
		},
	}

	out := &payload.StepOutput{
		StepMeta: payload.StepMeta{
			StepID:          "S00_intake",
			AgentName:       a.Name(),
			RunID:           in.RunID,
			StartedAtUTC:    timestampUTC(started),
			FinishedAtUTC:   timestampUTC(a.now()),
			PipelineVersion: in.PipelineVersion,
		},
		EntitiesDelta:  []payload.EntityDelta{*stub},
		RelationsDelta: []payload.RelationDelta{},
		Findings: []string{
			"case normalized from raw input",
		},
		Sources:          []payload.SourceRef{},
		CaseNormalized:   caseNorm,
		TargetEntityStub: stub,
	}

	return payload.AgentResult{OK: true, Output: out}, nil
}
