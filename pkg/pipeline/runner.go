package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/atlas-intel/dossier/internal/artifacts"
	"github.com/atlas-intel/dossier/pkg/contract"
	"github.com/atlas-intel/dossier/pkg/logger"
	"github.com/atlas-intel/dossier/pkg/payload"
	"github.com/atlas-intel/dossier/pkg/registry"
)

// Failure classes of a run, mapped to process exit codes by the CLI.
var (
	ErrConfig           = errors.New("pipeline configuration error")
	ErrAgentFailed      = errors.New("agent self-validation failed")
	ErrContractRejected = errors.New("contract gatekeeper rejected step output")
)

// Step lifecycle states. A validated_failed step terminates the run; the
// remaining steps are logged as skipped, never silently dropped.
const (
	statePending         = "pending"
	stateRunning         = "running"
	stateValidatedOK     = "validated_ok"
	stateValidatedFailed = "validated_failed"
	stateSkipped         = "skipped"
)

// Runner executes a run's DAG strictly sequentially: one step at a time, in
// declared order, each gated by the contract validator before its delta may
// reach the registry merge. There is no retry loop and no partial-credit
// continuation; the first gatekeeper failure stops the run.
type Runner struct {
	dag       *DAG
	validator *contract.Validator
	agents    AgentRegistry
	store     *artifacts.Store

	runID           string
	pipelineVersion string
}

// NewRunnerParams defines the configuration for creating a Runner.
type NewRunnerParams struct {
	DAG             *DAG
	Contracts       *contract.Set
	Agents          AgentRegistry
	Store           *artifacts.Store
	RunID           string
	PipelineVersion string
}

// NewRunner creates a runner and verifies the configuration is complete:
// every DAG step needs both a contract entry and an agent binding. These are
// configuration errors and abort before any step executes.
func NewRunner(params NewRunnerParams) (*Runner, error) {
	if params.RunID == "" {
		return nil, fmt.Errorf("%w: run id is empty", ErrConfig)
	}
	if params.PipelineVersion == "" {
		return nil, fmt.Errorf("%w: pipeline version is not resolvable", ErrConfig)
	}

	for _, step := range params.DAG.Steps {
		if _, ok := params.Contracts.Get(step.StepID); !ok {
			return nil, fmt.Errorf("%w: no contract entry for step %q", ErrConfig, step.StepID)
		}
		if _, ok := params.Agents.Lookup(step.StepID); !ok {
			return nil, fmt.Errorf("%w: no agent bound to step %q", ErrConfig, step.StepID)
		}
	}

	return &Runner{
		dag:             params.DAG,
		validator:       contract.NewValidator(params.Contracts),
		agents:          params.Agents,
		store:           params.Store,
		runID:           params.RunID,
		pipelineVersion: params.PipelineVersion,
	}, nil
}

// Run drains the DAG against a fresh registry and returns it. Every step
// leaves an output.json / validator.json pair (or agent_error.json) behind
// regardless of outcome.
func (r *Runner) Run(ctx context.Context, caseInput *payload.CaseInput) (*registry.Registry, error) {
	reg := registry.NewRegistry()
	alloc := registry.NewIDAllocator()
	meta := RunMeta{}

	states := make(map[string]string, len(r.dag.Steps))
	for _, step := range r.dag.Steps {
		states[step.StepID] = statePending
	}

	logger.Info("[Pipeline] Starting run", "run_id", r.runID, "steps", len(r.dag.Steps), "version", r.pipelineVersion)

	for i, step := range r.dag.Steps {
		for _, dep := range step.DependsOn {
			if states[dep] != stateValidatedOK {
				return reg, fmt.Errorf("%w: step %q ran before its dependency %q completed", ErrConfig, step.StepID, dep)
			}
		}

		states[step.StepID] = stateRunning
		agent, _ := r.agents.Lookup(step.StepID)
		started := time.Now()
		logger.Info("[Pipeline] Running step", "step", step.StepID, "agent", agent.Name())

		result, err := agent.Run(ctx, AgentInput{
			Case:            caseInput,
			RunID:           r.runID,
			PipelineVersion: r.pipelineVersion,
			Meta:            meta,
		})
		if err != nil || !result.OK {
			states[step.StepID] = stateValidatedFailed
			r.persistAgentError(step.StepID, result, err)
			r.logSkipped(states, i+1)
			if err != nil {
				return reg, fmt.Errorf("%w: step %s: %v", ErrAgentFailed, step.StepID, err)
			}
			return reg, fmt.Errorf("%w: step %s: %s", ErrAgentFailed, step.StepID, result.Error)
		}

		out, err := r.persistAndDecode(step.StepID, result.Output)
		if err != nil {
			states[step.StepID] = stateValidatedFailed
			r.logSkipped(states, i+1)
			return reg, fmt.Errorf("%w: step %s: %v", ErrAgentFailed, step.StepID, err)
		}

		verdict := r.validator.Validate(contract.StepContext{
			StepID: step.StepID,
			RunID:  r.runID,
			Now:    time.Now().UTC(),
			Case:   meta.CaseNormalized,
		}, out)

		if err := r.store.WriteStepFile(step.StepID, "validator.json", verdict); err != nil {
			logger.Error("[Pipeline] Failed to persist validator verdict", "step", step.StepID, "err", err)
		}
		for _, w := range verdict.Warnings {
			logger.Warn("[Pipeline] Contract warning", "step", step.StepID, "code", w.Code, "path", w.Path, "msg", w.Message)
		}

		if !verdict.OK {
			states[step.StepID] = stateValidatedFailed
			for _, e := range verdict.Errors {
				logger.Error("[Pipeline] Contract violation", "step", step.StepID, "code", e.Code, "path", e.Path, "msg", e.Message)
			}
			r.logSkipped(states, i+1)
			return reg, fmt.Errorf("%w: step %s failed with %d error(s)", ErrContractRejected, step.StepID, len(verdict.Errors))
		}

		stats := registry.Merge(reg, out.EntitiesDelta, out.RelationsDelta, alloc)
		if err := r.store.WriteStepFile(step.StepID, "merge.json", stats); err != nil {
			logger.Error("[Pipeline] Failed to persist merge stats", "step", step.StepID, "err", err)
		}

		r.foldMetaForward(&meta, out)

		states[step.StepID] = stateValidatedOK
		logger.Info("[Pipeline] Step completed", "step", step.StepID,
			"duration_ms", time.Since(started).Milliseconds(),
			"new_entities", stats.NewEntities,
			"updated_entities", stats.UpdatedEntities,
			"new_relations", stats.NewRelations,
		)
	}

	logger.Info("[Pipeline] Run completed", "run_id", r.runID,
		"entities", len(reg.EntitiesByID), "relations", len(reg.Relations))

	return reg, nil
}

// persistAndDecode writes the raw agent output and re-decodes the persisted
// form, so the validator sees exactly the sections that made it to disk.
func (r *Runner) persistAndDecode(stepID string, out *payload.StepOutput) (*payload.StepOutput, error) {
	if out == nil {
		return nil, fmt.Errorf("agent reported ok but returned no output")
	}

	data, err := out.Encode()
	if err != nil {
		return nil, fmt.Errorf("failed to encode step output: %w", err)
	}
	if err := r.store.WriteStepFile(stepID, "output.json", out); err != nil {
		return nil, err
	}

	decoded, err := payload.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("failed to re-decode step output: %w", err)
	}
	return decoded, nil
}

// foldMetaForward carries intake-derived payloads to later steps that
// declare a need for them, persisting them under meta/ as the audit copy.
func (r *Runner) foldMetaForward(meta *RunMeta, out *payload.StepOutput) {
	if out.CaseNormalized != nil {
		meta.CaseNormalized = out.CaseNormalized
		if err := r.store.WriteMetaFile("case_normalized.json", out.CaseNormalized); err != nil {
			logger.Error("[Pipeline] Failed to persist case_normalized meta", "err", err)
		}
	}
	if out.TargetEntityStub != nil {
		meta.TargetEntityStub = out.TargetEntityStub
		if err := r.store.WriteMetaFile("target_entity_stub.json", out.TargetEntityStub); err != nil {
			logger.Error("[Pipeline] Failed to persist target_entity_stub meta", "err", err)
		}
	}
}

func (r *Runner) persistAgentError(stepID string, result payload.AgentResult, err error) {
	errPayload := map[string]any{
		"ok":    false,
		"error": result.Error,
	}
	if err != nil {
		errPayload["error"] = err.Error()
	}
	if result.Output != nil {
		errPayload["partial_output"] = result.Output
	}
	if werr := r.store.WriteStepFile(stepID, "agent_error.json", errPayload); werr != nil {
		logger.Error("[Pipeline] Failed to persist agent error", "step", stepID, "err", werr)
	}
}

// logSkipped marks every not-yet-run step as skipped after a terminal
// failure, so the artifact trail shows why later steps never produced
// output.
func (r *Runner) logSkipped(states map[string]string, from int) {
	for _, step := range r.dag.Steps[from:] {
		if states[step.StepID] == statePending {
			states[step.StepID] = stateSkipped
			logger.Warn("[Pipeline] Skipping step after terminal failure", "step", step.StepID)
		}
	}
}
