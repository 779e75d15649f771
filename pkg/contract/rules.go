package contract

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/atlas-intel/dossier/pkg/payload"
)

// ruleFunc is one step kind's stage-three check. Rules may assume stages one
// and two already passed.
type ruleFunc func(sc StepContext, out *payload.StepOutput, result *Result)

var rulesByKind = map[string]ruleFunc{
	KindIntake:         ruleIntake,
	KindSourceRegistry: ruleSourceRegistry,
	KindLegalIdentity:  ruleLegalIdentity,
	KindLocations:      ruleLocations,
	KindCompanySize:    ruleCompanySize,
	KindGeneric:        nil,
}

// domainPattern is a deliberately loose RFC-style check: dotted lowercase
// labels with an alphabetic TLD of at least two characters.
var domainPattern = regexp.MustCompile(`^(?:[a-z0-9](?:[a-z0-9-]*[a-z0-9])?\.)+[a-z]{2,}$`)

func ruleIntake(sc StepContext, out *payload.StepOutput, result *Result) {
	cn := out.CaseNormalized
	if cn == nil {
		result.addError(issuef(CodeMissingSection, "/case_normalized", "case_normalized section is empty"))
		return
	}

	if !domainPattern.MatchString(cn.WebDomainNormalized) {
		result.addError(issuef(CodeInvalidDomain, "/case_normalized/web_domain_normalized",
			"%q is not a syntactically valid domain", cn.WebDomainNormalized))
	}

	wantKey := "domain:" + cn.WebDomainNormalized
	if cn.EntityKey != wantKey {
		result.addError(issuef(CodeEntityKeyMismatch, "/case_normalized/entity_key",
			"entity_key %q must equal %q", cn.EntityKey, wantKey))
	}

	// Heuristic low-quality-name signal: a single all-lowercase token is
	// unlikely to be a usable company display name.
	name := strings.TrimSpace(cn.CompanyNameCanonical)
	if name != "" && !strings.ContainsAny(name, " \t") && name == strings.ToLower(name) {
		result.addWarning(issuef(CodeLowQualityName, "/case_normalized/company_name_canonical",
			"company name %q is a single all-lowercase token", name))
	}
}

// claimKeywords mark prose that asserts company facts. The source-registry
// step only discovers sources; any assertion belongs to a later step with
// evidence gating.
var claimKeywords = []string{
	"founded",
	"headquartered",
	"revenue",
	"employees",
	"acquired",
	"merged with",
	"subsidiary of",
	"owned by",
}

func ruleSourceRegistry(sc StepContext, out *payload.StepOutput, result *Result) {
	if len(out.PrimarySources) == 0 {
		result.addError(issuef(CodeEmptyPrimarySources, "/primary_sources",
			"primary_sources must be a non-empty list"))
	}
	for i, src := range out.PrimarySources {
		validateSourceRef(fmt.Sprintf("/primary_sources/%d", i), src, result)
	}

	for i, finding := range out.Findings {
		lower := strings.ToLower(finding)
		for _, kw := range claimKeywords {
			if strings.Contains(lower, kw) {
				result.addError(issuef(CodeClaimInFindings, fmt.Sprintf("/findings/%d", i),
					"findings must not contain factual claims (found %q)", kw))
				break
			}
		}
	}
}

// legalFields are the target-entity attributes the legal-identity step is
// allowed to fill in, each gated by evidence when non-placeholder.
var legalFields = []string{
	"legal_name",
	"legal_form",
	"registration_signals",
	"founding_year",
}

// registerMarkers are recognized register-authority signals. A
// registration_signals value carrying none of them is treated as invented.
var registerMarkers = []string{
	"hrb",
	"hra",
	"handelsregister",
	"firmenbuch",
	"companies house",
	"sec",
	"edgar",
	"kvk",
	"siren",
	"siret",
	"cvr",
	"registro mercantil",
}

func ruleLegalIdentity(sc StepContext, out *payload.StepOutput, result *Result) {
	target := findTargetEntity(out.EntitiesDelta)
	if target == nil {
		result.addError(issuef(CodeMissingTargetEntity, "/entities_delta",
			"legal-identity step requires an entity with entity_id %q", "TGT-001"))
		return
	}

	checkIdentityContinuity(sc, target, result)

	if len(out.RelationsDelta) != 0 {
		result.addError(issuef(CodeRelationsNotAllowed, "/relations_delta",
			"legal-identity step must not propose relations, it only mutates the target entity"))
	}

	if yearRaw, present := target.Attributes["founding_year"]; present && !isPlaceholder(yearRaw) {
		year, ok := asInt(yearRaw)
		if !ok || year < 1800 || year > sc.Now.Year() {
			result.addError(issuef(CodeInvalidFoundingYear, "/entities_delta/0/attributes/founding_year",
				"founding_year %v must be an integer between 1800 and %d", yearRaw, sc.Now.Year()))
		}
	}

	if sig, present := target.Attributes["registration_signals"]; present && !isPlaceholder(sig) {
		if !hasRegisterMarker(asString(sig)) {
			result.addError(issuef(CodeUnknownRegisterSignal, "/entities_delta/0/attributes/registration_signals",
				"registration_signals %q carries no recognized register-authority marker", asString(sig)))
		}
	}

	validateEvidenceGating(sc, out, target, legalFields, "legal identity", result)
}

func ruleLocations(sc StepContext, out *payload.StepOutput, result *Result) {
	for i, e := range out.EntitiesDelta {
		path := fmt.Sprintf("/entities_delta/%d", i)
		if e.EntityType != "site" {
			result.addError(issuef(CodeInvalidSiteEntity, path+"/entity_type",
				"locations step only proposes site entities, got %q", e.EntityType))
			continue
		}
		if e.EntityName == "" {
			result.addError(issuef(CodeInvalidSiteEntity, path+"/entity_name", "site entity has no name"))
		}
		if !hasAnyAttribute(e, "address", "city", "country") {
			result.addError(issuef(CodeInvalidSiteEntity, path+"/attributes",
				"site %q needs at least one of address, city or country", e.EntityName))
		}
		if !hasOperatesAtRelation(out.RelationsDelta, e) {
			result.addError(issuef(CodeMissingSiteRelation, path,
				"site %q has no operates_at relation sourced from %s", e.EntityName, "TGT-001"))
		}
	}

	if len(out.EntitiesDelta) > 0 && len(out.Sources) == 0 {
		result.addError(issuef(CodeMissingClaimSources, "/sources",
			"site entities were proposed but sources is empty"))
	}

	if reportsNoEvidence(out.Findings) && len(out.Sources) == 0 && len(out.SearchAttempts) == 0 {
		result.addError(issuef(CodeUnsubstantiatedClaim, "/findings",
			"a no-evidence finding requires sources or search_attempts to substantiate it"))
	}
}

// sizeFields are the size-signal attributes the company-size step may fill
// in, each gated by evidence when non-placeholder.
var sizeFields = []string{
	"employee_count",
	"employee_range",
	"revenue",
	"revenue_range",
}

func ruleCompanySize(sc StepContext, out *payload.StepOutput, result *Result) {
	target := findTargetEntity(out.EntitiesDelta)
	if target == nil {
		result.addError(issuef(CodeMissingTargetEntity, "/entities_delta",
			"company-size step requires an entity with entity_id %q", "TGT-001"))
		return
	}

	checkIdentityContinuity(sc, target, result)
	validateEvidenceGating(sc, out, target, sizeFields, "company size", result)
}

// validateEvidenceGating enforces the pipeline's trust model: no unsourced
// factual claims enter the registry. Any gated field moving from placeholder
// to a concrete value requires a non-empty sources list and a per-field
// field_sources entry; an all-placeholder payload passes with a warning.
func validateEvidenceGating(
	sc StepContext,
	out *payload.StepOutput,
	target *payload.EntityDelta,
	fields []string,
	label string,
	result *Result,
) {
	var claimed []string
	for _, f := range fields {
		if v, present := target.Attributes[f]; present && !isPlaceholder(v) {
			claimed = append(claimed, f)
		}
	}

	if len(claimed) == 0 {
		result.addWarning(issuef(CodeAllPlaceholder, "/entities_delta/0/attributes",
			"no verifiable %s evidence found, all fields are placeholders", label))
		return
	}

	if len(out.Sources) == 0 {
		result.addError(issuef(CodeMissingClaimSources, "/sources",
			"%s fields %v are claimed but sources is empty", label, claimed))
	}
	for _, f := range claimed {
		if len(out.FieldSources[f]) == 0 {
			result.addError(issuef(CodeMissingFieldSources, "/field_sources/"+f,
				"field %q is claimed but has no field_sources entry", f))
		}
	}
}

// checkIdentityContinuity verifies the target entity still carries the
// identity established by the intake step.
func checkIdentityContinuity(sc StepContext, target *payload.EntityDelta, result *Result) {
	if sc.Case == nil {
		return
	}
	if target.EntityKey != sc.Case.EntityKey {
		result.addError(issuef(CodeIdentityDrift, "/entities_delta/0/entity_key",
			"entity_key %q does not match intake value %q", target.EntityKey, sc.Case.EntityKey))
	}
	if target.Domain != "" && target.Domain != sc.Case.WebDomainNormalized {
		result.addError(issuef(CodeIdentityDrift, "/entities_delta/0/domain",
			"domain %q does not match intake value %q", target.Domain, sc.Case.WebDomainNormalized))
	}
}

func validateSourceRef(path string, src payload.SourceRef, result *Result) {
	if strings.TrimSpace(src.Publisher) == "" {
		result.addError(issuef(CodeMalformedSource, path+"/publisher", "source publisher is empty"))
	}
	if !strings.HasPrefix(src.URL, "http://") && !strings.HasPrefix(src.URL, "https://") {
		result.addError(issuef(CodeMalformedSource, path+"/url", "source url %q is not http(s)", src.URL))
	}
}

func findTargetEntity(deltas []payload.EntityDelta) *payload.EntityDelta {
	for i := range deltas {
		if deltas[i].EntityID == "TGT-001" {
			return &deltas[i]
		}
	}
	return nil
}

func hasOperatesAtRelation(relations []payload.RelationDelta, site payload.EntityDelta) bool {
	for _, rel := range relations {
		if rel.RelationType != "operates_at" || rel.SourceID != "TGT-001" {
			continue
		}
		// Sites have no registry id yet, so agents reference them by the
		// proposed id, the entity key, or the display name.
		switch rel.TargetID {
		case site.EntityID, site.EntityKey, site.EntityName:
			if rel.TargetID != "" {
				return true
			}
		}
	}
	return false
}

func hasAnyAttribute(e payload.EntityDelta, keys ...string) bool {
	for _, k := range keys {
		if v, ok := e.Attributes[k]; ok && !isPlaceholder(v) {
			return true
		}
	}
	return false
}

func reportsNoEvidence(findings []string) bool {
	for _, f := range findings {
		if strings.Contains(strings.ToLower(f), "no evidence") {
			return true
		}
	}
	return false
}

func hasRegisterMarker(signal string) bool {
	lower := strings.ToLower(signal)
	for _, marker := range registerMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

func isPlaceholder(v any) bool {
	s, ok := v.(string)
	if !ok {
		return false
	}
	return s == "" || s == payload.Placeholder
}

func asString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		if n != float64(int(n)) {
			return 0, false
		}
		return int(n), true
	case string:
		parsed, err := strconv.Atoi(strings.TrimSpace(n))
		if err != nil {
			return 0, false
		}
		return parsed, true
	default:
		return 0, false
	}
}
