package contract

import "fmt"

// Issue is one validation finding. Path is a JSON-pointer-like locator into
// the offending payload so a stop can be diagnosed without reproducing the
// run.
type Issue struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Path    string `json:"path"`
}

// Result is a validator verdict for one step output. Errors are hard stops;
// warnings are surfaced in the persisted verdict for human review but never
// block merging or scheduling.
type Result struct {
	StepID   string  `json:"step_id"`
	OK       bool    `json:"ok"`
	Errors   []Issue `json:"errors"`
	Warnings []Issue `json:"warnings"`
}

func issuef(code string, path string, format string, args ...any) Issue {
	return Issue{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Path:    path,
	}
}

func (r *Result) addError(i Issue) {
	r.Errors = append(r.Errors, i)
	r.OK = false
}

func (r *Result) addWarning(i Issue) {
	r.Warnings = append(r.Warnings, i)
}

// Issue codes. Grouped by the validation stage that emits them.
const (
	CodeMissingSection = "missing_section"

	CodeMissingMetaField      = "missing_meta_field"
	CodeStepIDMismatch        = "step_id_mismatch"
	CodeRunIDMismatch         = "run_id_mismatch"
	CodeInvalidTimestamp      = "invalid_timestamp"
	CodeInvalidVersion        = "invalid_pipeline_version"
	CodeInvalidDomain         = "invalid_domain"
	CodeEntityKeyMismatch     = "entity_key_mismatch"
	CodeLowQualityName        = "low_quality_name"
	CodeEmptyPrimarySources   = "empty_primary_sources"
	CodeMalformedSource       = "malformed_source"
	CodeClaimInFindings       = "claim_in_findings"
	CodeMissingTargetEntity   = "missing_target_entity"
	CodeIdentityDrift         = "identity_drift"
	CodeRelationsNotAllowed   = "relations_not_allowed"
	CodeInvalidFoundingYear   = "invalid_founding_year"
	CodeUnknownRegisterSignal = "unrecognized_register_signal"
	CodeMissingClaimSources   = "missing_sources_for_claims"
	CodeMissingFieldSources   = "missing_field_sources"
	CodeAllPlaceholder        = "all_placeholder"
	CodeInvalidSiteEntity     = "invalid_site_entity"
	CodeMissingSiteRelation   = "missing_operates_at_relation"
	CodeUnsubstantiatedClaim  = "unsubstantiated_negative_claim"
)
