package pipeline

import (
	"context"

	"github.com/atlas-intel/dossier/pkg/payload"
)

// RunMeta is the intake-derived state folded forward to later steps.
type RunMeta struct {
	CaseNormalized   *payload.CaseNormalized `json:"case_normalized,omitempty"`
	TargetEntityStub *payload.EntityDelta    `json:"target_entity_stub,omitempty"`
}

// AgentInput is everything a step agent may draw on: the raw case, run
// identity, and the meta payloads earlier steps produced.
type AgentInput struct {
	Case            *payload.CaseInput
	RunID           string
	PipelineVersion string
	Meta            RunMeta
}

// Agent is one research step's implementation. Agents are thin collaborators
// around HTTP or LLM calls; the runner depends only on the result shape,
// never on how an agent obtains its data.
type Agent interface {
	Name() string
	Run(ctx context.Context, in AgentInput) (payload.AgentResult, error)
}

// AgentRegistry maps step ids to their agent implementations. It is built
// statically at startup so a missing binding is a configuration error before
// any step executes, not a reflection failure halfway through a run.
type AgentRegistry map[string]Agent

// Lookup returns the agent bound to a step id.
func (r AgentRegistry) Lookup(stepID string) (Agent, bool) {
	a, ok := r[stepID]
	return a, ok
}
