package contract

import (
	"regexp"
	"time"

	"github.com/atlas-intel/dossier/pkg/payload"
)

// StepContext carries the run-level facts a step output is checked against.
// Case is the intake step's folded-forward normalization and is nil while the
// intake step itself is being validated.
type StepContext struct {
	StepID string
	RunID  string
	Now    time.Time
	Case   *payload.CaseNormalized
}

// Validator gates step outputs before they are allowed to reach the registry
// merge. Validation runs in strict stages: required sections, then step_meta
// shape, then step-specific rules. Each stage short-circuits on failure, so
// later stages never report errors that assume an earlier stage passed.
type Validator struct {
	set *Set
}

// NewValidator creates a validator over a loaded contract table.
func NewValidator(set *Set) *Validator {
	return &Validator{set: set}
}

// Validate checks one step output against its contract. The output must have
// been decoded with payload.Decode so section presence is known. A missing
// contract entry is reported as a hard error: an unknown step must never
// merge.
func (v *Validator) Validate(sc StepContext, out *payload.StepOutput) Result {
	result := Result{StepID: sc.StepID, OK: true}

	c, ok := v.set.Get(sc.StepID)
	if !ok {
		result.addError(issuef(CodeMissingSection, "", "no contract registered for step %q", sc.StepID))
		return result
	}

	// Stage 1: required top-level sections.
	for _, section := range c.RequiredSections() {
		if !out.HasSection(section) {
			result.addError(issuef(CodeMissingSection, "/"+section, "required section %q is missing", section))
		}
	}
	if !result.OK {
		return result
	}

	// Stage 2: step_meta shape.
	validateStepMeta(sc, out.StepMeta, &result)
	if !result.OK {
		return result
	}

	// Stage 3: step-specific structural and semantic rules.
	if rule := rulesByKind[c.Kind]; rule != nil {
		rule(sc, out, &result)
	}

	return result
}

var (
	timestampPattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}Z$`)
	gitSHAPattern    = regexp.MustCompile(`^[0-9a-f]{7,40}$`)
	semverPattern    = regexp.MustCompile(`^v?\d+\.\d+\.\d+(?:-[0-9A-Za-z.-]+)?(?:\+[0-9A-Za-z.-]+)?$`)
)

func validateStepMeta(sc StepContext, meta payload.StepMeta, result *Result) {
	if meta.StepID == "" {
		result.addError(issuef(CodeMissingMetaField, "/step_meta/step_id", "step_meta.step_id is empty"))
	} else if meta.StepID != sc.StepID {
		result.addError(issuef(CodeStepIDMismatch, "/step_meta/step_id",
			"step_meta.step_id %q does not match running step %q", meta.StepID, sc.StepID))
	}

	if meta.AgentName == "" {
		result.addError(issuef(CodeMissingMetaField, "/step_meta/agent_name", "step_meta.agent_name is empty"))
	}

	if meta.RunID == "" {
		result.addError(issuef(CodeMissingMetaField, "/step_meta/run_id", "step_meta.run_id is empty"))
	} else if sc.RunID != "" && meta.RunID != sc.RunID {
		result.addError(issuef(CodeRunIDMismatch, "/step_meta/run_id",
			"step_meta.run_id %q does not match run %q", meta.RunID, sc.RunID))
	}

	if !timestampPattern.MatchString(meta.StartedAtUTC) {
		result.addError(issuef(CodeInvalidTimestamp, "/step_meta/started_at_utc",
			"started_at_utc %q is not an ISO-8601 UTC timestamp", meta.StartedAtUTC))
	}
	if !timestampPattern.MatchString(meta.FinishedAtUTC) {
		result.addError(issuef(CodeInvalidTimestamp, "/step_meta/finished_at_utc",
			"finished_at_utc %q is not an ISO-8601 UTC timestamp", meta.FinishedAtUTC))
	}

	if !validPipelineVersion(meta.PipelineVersion) {
		result.addError(issuef(CodeInvalidVersion, "/step_meta/pipeline_version",
			"pipeline_version %q is neither a git SHA nor a SemVer string", meta.PipelineVersion))
	}
}

// validPipelineVersion accepts a 7-40 char hex git SHA or a SemVer string
// (optionally with pre-release and build metadata). The literal placeholder
// is rejected: a run must know exactly which pipeline produced it.
func validPipelineVersion(version string) bool {
	if version == "" || version == payload.Placeholder {
		return false
	}
	return gitSHAPattern.MatchString(version) || semverPattern.MatchString(version)
}
