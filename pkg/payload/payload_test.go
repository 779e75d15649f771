package payload

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDecode_TracksSectionPresence(t *testing.T) {
	data := []byte(`{
		"step_meta": {"step_id": "S50_products"},
		"entities_delta": [],
		"relations_delta": [],
		"findings": ["offers industrial sensors"],
		"sources": []
	}`)

	out, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	for _, present := range []string{"step_meta", "entities_delta", "relations_delta", "findings", "sources"} {
		if !out.HasSection(present) {
			t.Errorf("HasSection(%q) = false, want true", present)
		}
	}
	for _, absent := range []string{"primary_sources", "case_normalized", "field_sources"} {
		if out.HasSection(absent) {
			t.Errorf("HasSection(%q) = true, want false", absent)
		}
	}
}

func TestDecode_EmptySectionStillPresent(t *testing.T) {
	out, err := Decode([]byte(`{"primary_sources": [], "step_meta": {}}`))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if !out.HasSection("primary_sources") {
		t.Fatalf("empty section reported as missing")
	}
	if len(out.PrimarySources) != 0 {
		t.Fatalf("primary_sources = %v, want empty", out.PrimarySources)
	}
}

func TestDecode_RejectsNonObject(t *testing.T) {
	if _, err := Decode([]byte(`[1, 2, 3]`)); err == nil {
		t.Fatalf("Decode() accepted a non-object payload")
	}
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	out := &StepOutput{
		StepMeta: StepMeta{
			StepID:          "S00_intake",
			AgentName:       "intake",
			RunID:           "run-1",
			StartedAtUTC:    "2026-01-02T10:00:00Z",
			FinishedAtUTC:   "2026-01-02T10:00:01Z",
			PipelineVersion: "v1.0.0",
		},
		EntitiesDelta:  []EntityDelta{},
		RelationsDelta: []RelationDelta{},
		Findings:       []string{},
		Sources:        []SourceRef{},
		CaseNormalized: &CaseNormalized{
			CompanyNameCanonical: "Acme GmbH",
			WebDomainNormalized:  "acme.com",
			EntityKey:            "domain:acme.com",
		},
	}

	data, err := out.Encode()
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	decoded, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	if !decoded.HasSection("case_normalized") {
		t.Errorf("case_normalized lost in roundtrip")
	}
	if decoded.HasSection("target_entity_stub") {
		t.Errorf("absent optional section appeared after roundtrip")
	}
	if decoded.CaseNormalized.EntityKey != "domain:acme.com" {
		t.Errorf("entity key = %q", decoded.CaseNormalized.EntityKey)
	}
}

func TestLoadCaseFile(t *testing.T) {
	write := func(t *testing.T, content string) string {
		t.Helper()
		path := filepath.Join(t.TempDir(), "case.json")
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("write case file: %v", err)
		}
		return path
	}

	t.Run("valid", func(t *testing.T) {
		c, err := LoadCaseFile(write(t, `{"company_name": "Acme GmbH", "web_domain": "acme.com", "country": "DE"}`))
		if err != nil {
			t.Fatalf("LoadCaseFile() error = %v", err)
		}
		if c.CompanyName != "Acme GmbH" || c.WebDomain != "acme.com" {
			t.Fatalf("LoadCaseFile() = %+v", c)
		}
	})

	t.Run("missing required field", func(t *testing.T) {
		if _, err := LoadCaseFile(write(t, `{"company_name": "Acme GmbH"}`)); err == nil {
			t.Fatalf("LoadCaseFile() accepted case without web_domain")
		}
	})

	t.Run("malformed json", func(t *testing.T) {
		if _, err := LoadCaseFile(write(t, `{`)); err == nil {
			t.Fatalf("LoadCaseFile() accepted malformed json")
		}
	})
}
