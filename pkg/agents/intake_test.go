package agents

import (
	"context"
	"testing"

	"github.com/atlas-intel/dossier/pkg/payload"
	"github.com/atlas-intel/dossier/pkg/pipeline"
	"github.com/atlas-intel/dossier/pkg/registry"
)

func TestIntakeAgent_Normalizes(t *testing.T) {
	tests := []struct {
		name       string
		company    string
		domain     string
		wantName   string
		wantDomain string
		wantKey    string
	}{
		{
			name:       "messy whitespace and url prefix",
			company:    "  Acme   GmbH ",
			domain:     "https://www.acme.com/path",
			wantName:   "Acme GmbH",
			wantDomain: "www.acme.com",
			wantKey:    "domain:www.acme.com",
		},
		{
			name:       "already clean",
			company:    "Globex Corporation",
			domain:     "globex.example",
			wantName:   "Globex Corporation",
			wantDomain: "globex.example",
			wantKey:    "domain:globex.example",
		},
		{
			name:       "uppercase domain",
			company:    "Initech",
			domain:     "WWW.Initech.IO",
			wantName:   "Initech",
			wantDomain: "www.initech.io",
			wantKey:    "domain:www.initech.io",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			agent := NewIntakeAgent()
			result, err := agent.Run(context.Background(), pipeline.AgentInput{
				Case: &payload.CaseInput{
					CompanyName: tc.company,
					WebDomain:   tc.domain,
					Country:     "DE",
				},
				RunID:           "run-test",
				PipelineVersion: "v1.0.0",
			})
			if err != nil {
				t.Fatalf("Run() error = %v", err)
			}
			if !result.OK {
				t.Fatalf("Run() not ok: %s", result.Error)
			}

			out := result.Output
			if out.CaseNormalized == nil {
				t.Fatalf("Run() case_normalized missing")
			}
			if got := out.CaseNormalized.CompanyNameCanonical; got != tc.wantName {
				t.Errorf("canonical name = %q, want %q", got, tc.wantName)
			}
			if got := out.CaseNormalized.WebDomainNormalized; got != tc.wantDomain {
				t.Errorf("normalized domain = %q, want %q", got, tc.wantDomain)
			}
			if got := out.CaseNormalized.EntityKey; got != tc.wantKey {
				t.Errorf("entity key = %q, want %q", got, tc.wantKey)
			}
		})
	}
}

func TestIntakeAgent_PinsTargetEntity(t *testing.T) {
	agent := NewIntakeAgent()
	result, err := agent.Run(context.Background(), pipeline.AgentInput{
		Case: &payload.CaseInput{
			CompanyName: "Acme GmbH",
			WebDomain:   "acme.com",
		},
		RunID:           "run-test",
		PipelineVersion: "v1.0.0",
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	out := result.Output
	if out.TargetEntityStub == nil {
		t.Fatalf("Run() target_entity_stub missing")
	}
	if out.TargetEntityStub.EntityID != registry.TargetEntityID {
		t.Errorf("stub entity id = %q, want %q", out.TargetEntityStub.EntityID, registry.TargetEntityID)
	}
	if out.TargetEntityStub.EntityType != registry.TypeTargetCompany {
		t.Errorf("stub entity type = %q, want %q", out.TargetEntityStub.EntityType, registry.TypeTargetCompany)
	}

	if len(out.EntitiesDelta) != 1 {
		t.Fatalf("entities_delta length = %d, want 1", len(out.EntitiesDelta))
	}
	if out.EntitiesDelta[0].EntityID != registry.TargetEntityID {
		t.Errorf("delta entity id = %q, want %q", out.EntitiesDelta[0].EntityID, registry.TargetEntityID)
	}
	if len(out.RelationsDelta) != 0 {
		t.Errorf("relations_delta length = %d, want 0", len(out.RelationsDelta))
	}
	if out.StepMeta.StepID != "S00_intake" {
		t.Errorf("step id = %q, want S00_intake", out.StepMeta.StepID)
	}
}
