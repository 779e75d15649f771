package agents

import (
	"context"
	"fmt"
	"time"

	"github.com/atlas-intel/dossier/pkg/fetch"
	"github.com/atlas-intel/dossier/pkg/payload"
	"github.com/atlas-intel/dossier/pkg/pipeline"
)

// SourceRegistryAgent verifies that the target company's homepage is
// reachable and registers it as the run's primary evidence source. It
// deliberately records no company facts of its own; claims belong to the
// later research steps that can cite field-level evidence.
type SourceRegistryAgent struct {
	fetcher *fetch.Fetcher
	now     func() time.Time
}

// NewSourceRegistryAgentParams contains configuration for the source
// registry agent.
type NewSourceRegistryAgentParams struct {
	Fetcher *fetch.Fetcher
}

// NewSourceRegistryAgent creates the source registry agent.
func NewSourceRegistryAgent(params NewSourceRegistryAgentParams) *SourceRegistryAgent {
	return &SourceRegistryAgent{
		fetcher: params.Fetcher,
		now:     time.Now,
	}
}

func (a *SourceRegistryAgent) Name() string {
	return "source_registry"
}

func (a *SourceRegistryAgent) Run(ctx context.Context, in pipeline.AgentInput) (payload.AgentResult, error) {
	started := a.now()

	if in.Meta.CaseNormalized == nil {
		return payload.AgentResult{OK: false, Error: "case_normalized meta missing, intake must run first"}, nil
	}

	domain := in.Meta.CaseNormalized.WebDomainNormalized
	homepage := "https://" + domain

	page, err := a.fetcher.Fetch(ctx, homepage)
	if err != nil {
		return payload.AgentResult{
			OK:    false,
			Error: fmt.Sprintf("homepage not reachable: %v", err),
		}, nil
	}

	accessed := timestampUTC(page.FetchedAt)
	primary := []payload.SourceRef{
		{
			Publisher:     domain,
			URL:           page.URL,
			AccessedAtUTC: accessed,
		},
	}

	out := &payload.StepOutput{
		StepMeta: payload.StepMeta{
			StepID:          "S10_source_registry",
			AgentName:       a.Name(),
			RunID:           in.RunID,
			StartedAtUTC:    timestampUTC(started),
			FinishedAtUTC:   timestampUTC(a.now()),
			PipelineVersion: in.PipelineVersion,
		},
		EntitiesDelta:  []payload.EntityDelta{},
		RelationsDelta: []payload.RelationDelta{},
		Findings: []string{
			fmt.Sprintf("homepage %s reachable and registered as primary source", page.URL),
		},
		Sources:        primary,
		PrimarySources: primary,
	}

	return payload.AgentResult{OK: true, Output: out}, nil
}
