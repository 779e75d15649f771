package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/atlas-intel/dossier/internal/artifacts"
	"github.com/atlas-intel/dossier/pkg/contract"
	"github.com/atlas-intel/dossier/pkg/payload"
)

type stubAgent struct {
	name   string
	run    func(in AgentInput) (payload.AgentResult, error)
	called *bool
}

func (s *stubAgent) Name() string { return s.name }

func (s *stubAgent) Run(ctx context.Context, in AgentInput) (payload.AgentResult, error) {
	if s.called != nil {
		*s.called = true
	}
	return s.run(in)
}

func stubOutput(stepID string) *payload.StepOutput {
	return &payload.StepOutput{
		StepMeta: payload.StepMeta{
			StepID:          stepID,
			AgentName:       "stub",
			RunID:           "run-1",
			StartedAtUTC:    "2026-01-02T10:00:00Z",
			FinishedAtUTC:   "2026-01-02T10:00:05Z",
			PipelineVersion: "v1.0.0",
		},
		EntitiesDelta:  []payload.EntityDelta{},
		RelationsDelta: []payload.RelationDelta{},
		Findings:       []string{},
		Sources:        []payload.SourceRef{},
	}
}

func okAgent(stepID string, called *bool) Agent {
	return &stubAgent{
		name:   "stub",
		called: called,
		run: func(in AgentInput) (payload.AgentResult, error) {
			return payload.AgentResult{OK: true, Output: stubOutput(stepID)}, nil
		},
	}
}

func testContracts(t *testing.T, stepIDs ...string) *contract.Set {
	t.Helper()
	content := "contracts:\n"
	for _, id := range stepIDs {
		content += "  - step_id: " + id + "\n"
	}
	path := filepath.Join(t.TempDir(), "contracts.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write contracts: %v", err)
	}
	set, err := contract.LoadSet(path)
	if err != nil {
		t.Fatalf("LoadSet() error = %v", err)
	}
	return set
}

func testDAG() *DAG {
	return &DAG{Steps: []Step{
		{StepID: "A"},
		{StepID: "B", DependsOn: []string{"A"}},
		{StepID: "C", DependsOn: []string{"B"}},
	}}
}

func testCase() *payload.CaseInput {
	return &payload.CaseInput{CompanyName: "Acme GmbH", WebDomain: "acme.com"}
}

func TestNewRunner_ConfigErrors(t *testing.T) {
	dag := testDAG()
	contracts := testContracts(t, "A", "B", "C")
	agents := AgentRegistry{"A": okAgent("A", nil), "B": okAgent("B", nil), "C": okAgent("C", nil)}

	tests := []struct {
		name   string
		params NewRunnerParams
	}{
		{
			name: "empty run id",
			params: NewRunnerParams{DAG: dag, Contracts: contracts, Agents: agents,
				RunID: "", PipelineVersion: "v1.0.0"},
		},
		{
			name: "empty pipeline version",
			params: NewRunnerParams{DAG: dag, Contracts: contracts, Agents: agents,
				RunID: "run-1", PipelineVersion: ""},
		},
		{
			name: "missing contract entry",
			params: NewRunnerParams{DAG: dag, Contracts: testContracts(t, "A", "B"), Agents: agents,
				RunID: "run-1", PipelineVersion: "v1.0.0"},
		},
		{
			name: "missing agent binding",
			params: NewRunnerParams{DAG: dag, Contracts: contracts,
				Agents: AgentRegistry{"A": okAgent("A", nil)},
				RunID:  "run-1", PipelineVersion: "v1.0.0"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewRunner(tc.params); !errors.Is(err, ErrConfig) {
				t.Fatalf("NewRunner() error = %v, want ErrConfig", err)
			}
		})
	}
}

func TestRunner_HappyPath(t *testing.T) {
	store, err := artifacts.NewStore(t.TempDir(), "run-1")
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}

	var calledC bool
	runner, err := NewRunner(NewRunnerParams{
		DAG:       testDAG(),
		Contracts: testContracts(t, "A", "B", "C"),
		Agents: AgentRegistry{
			"A": okAgent("A", nil),
			"B": okAgent("B", nil),
			"C": okAgent("C", &calledC),
		},
		Store:           store,
		RunID:           "run-1",
		PipelineVersion: "v1.0.0",
	})
	if err != nil {
		t.Fatalf("NewRunner() error = %v", err)
	}

	reg, err := runner.Run(context.Background(), testCase())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if reg == nil {
		t.Fatalf("Run() returned nil registry")
	}
	if !calledC {
		t.Fatalf("final step never ran")
	}

	for _, step := range []string{"A", "B", "C"} {
		for _, name := range []string{"output.json", "validator.json", "merge.json"} {
			path := filepath.Join(store.StepsDir(), step, name)
			if _, err := os.Stat(path); err != nil {
				t.Errorf("artifact %s/%s missing: %v", step, name, err)
			}
		}
	}
}

func TestRunner_MergesValidatedDeltas(t *testing.T) {
	store, err := artifacts.NewStore(t.TempDir(), "run-1")
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}

	entityAgent := &stubAgent{
		name: "stub",
		run: func(in AgentInput) (payload.AgentResult, error) {
			out := stubOutput("A")
			out.EntitiesDelta = []payload.EntityDelta{{
				EntityType: "manufacturer",
				EntityName: "Widget Works",
				Domain:     "widgets.example",
			}}
			return payload.AgentResult{OK: true, Output: out}, nil
		},
	}

	runner, err := NewRunner(NewRunnerParams{
		DAG:             &DAG{Steps: []Step{{StepID: "A"}}},
		Contracts:       testContracts(t, "A"),
		Agents:          AgentRegistry{"A": entityAgent},
		Store:           store,
		RunID:           "run-1",
		PipelineVersion: "v1.0.0",
	})
	if err != nil {
		t.Fatalf("NewRunner() error = %v", err)
	}

	reg, err := runner.Run(context.Background(), testCase())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got := reg.EntityByKey("domain:widgets.example"); got == nil {
		t.Fatalf("validated entity delta not merged")
	} else if got.EntityID != "MFR-001" {
		t.Errorf("allocated id = %q, want MFR-001", got.EntityID)
	}
}

func TestRunner_AgentFailureStopsRun(t *testing.T) {
	store, err := artifacts.NewStore(t.TempDir(), "run-1")
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}

	failing := &stubAgent{
		name: "stub",
		run: func(in AgentInput) (payload.AgentResult, error) {
			return payload.AgentResult{OK: false, Error: "homepage not reachable"}, nil
		},
	}

	var calledC bool
	runner, err := NewRunner(NewRunnerParams{
		DAG:       testDAG(),
		Contracts: testContracts(t, "A", "B", "C"),
		Agents: AgentRegistry{
			"A": okAgent("A", nil),
			"B": failing,
			"C": okAgent("C", &calledC),
		},
		Store:           store,
		RunID:           "run-1",
		PipelineVersion: "v1.0.0",
	})
	if err != nil {
		t.Fatalf("NewRunner() error = %v", err)
	}

	_, runErr := runner.Run(context.Background(), testCase())
	if !errors.Is(runErr, ErrAgentFailed) {
		t.Fatalf("Run() error = %v, want ErrAgentFailed", runErr)
	}
	if calledC {
		t.Fatalf("step after failure still ran")
	}
	if _, err := os.Stat(filepath.Join(store.StepsDir(), "B", "agent_error.json")); err != nil {
		t.Errorf("agent_error.json missing: %v", err)
	}
}

func TestRunner_ContractRejectionStopsRun(t *testing.T) {
	store, err := artifacts.NewStore(t.TempDir(), "run-1")
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}

	// self-validation passes but the meta carries the placeholder version,
	// which the gatekeeper must reject
	lying := &stubAgent{
		name: "stub",
		run: func(in AgentInput) (payload.AgentResult, error) {
			out := stubOutput("B")
			out.StepMeta.PipelineVersion = "n/v"
			return payload.AgentResult{OK: true, Output: out}, nil
		},
	}

	var calledC bool
	runner, err := NewRunner(NewRunnerParams{
		DAG:       testDAG(),
		Contracts: testContracts(t, "A", "B", "C"),
		Agents: AgentRegistry{
			"A": okAgent("A", nil),
			"B": lying,
			"C": okAgent("C", &calledC),
		},
		Store:           store,
		RunID:           "run-1",
		PipelineVersion: "v1.0.0",
	})
	if err != nil {
		t.Fatalf("NewRunner() error = %v", err)
	}

	_, runErr := runner.Run(context.Background(), testCase())
	if !errors.Is(runErr, ErrContractRejected) {
		t.Fatalf("Run() error = %v, want ErrContractRejected", runErr)
	}
	if calledC {
		t.Fatalf("step after rejection still ran")
	}

	// the rejected output and its verdict must both be on disk
	for _, name := range []string{"output.json", "validator.json"} {
		if _, err := os.Stat(filepath.Join(store.StepsDir(), "B", name)); err != nil {
			t.Errorf("artifact B/%s missing: %v", name, err)
		}
	}
}
