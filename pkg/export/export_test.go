package export

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"strings"
	"testing"

	"github.com/atlas-intel/dossier/internal/artifacts"
	"github.com/atlas-intel/dossier/pkg/payload"
	"github.com/atlas-intel/dossier/pkg/registry"
)

func testSnapshot() registry.Snapshot {
	return registry.Snapshot{
		Entities: []registry.Entity{
			{
				EntityID:   "MFR-001",
				EntityType: registry.TypeManufacturer,
				EntityName: "Widget Works",
				EntityKey:  "name:widget works",
				Attributes: map[string]any{"country": "DE"},
			},
			{
				EntityID:   registry.TargetEntityID,
				EntityType: registry.TypeTargetCompany,
				EntityName: "Acme GmbH",
				Domain:     "acme.com",
				EntityKey:  "domain:acme.com",
				Attributes: map[string]any{"legal_form": "GmbH"},
				Sources: []payload.SourceRef{
					{Publisher: "acme.com", URL: "https://acme.com", AccessedAtUTC: "2026-01-02T10:00:00Z"},
				},
			},
		},
		Relations: []registry.Relation{
			{
				SourceID:     registry.TargetEntityID,
				TargetID:     "MFR-001",
				RelationType: "manufactured_by",
				Evidence: []payload.SourceRef{
					{Publisher: "acme.com", URL: "https://acme.com/partners", AccessedAtUTC: "2026-01-02T10:00:00Z"},
				},
			},
		},
	}
}

func TestWriteAll_ProducesAllArtifacts(t *testing.T) {
	store, err := artifacts.NewStore(t.TempDir(), "run-export")
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}

	e := NewExporter(store)
	caseNorm := &payload.CaseNormalized{
		CompanyNameCanonical: "Acme GmbH",
		WebDomainNormalized:  "acme.com",
		EntityKey:            "domain:acme.com",
	}
	if err := e.WriteAll(testSnapshot(), "run-export", caseNorm); err != nil {
		t.Fatalf("WriteAll() error = %v", err)
	}

	for _, name := range []string{"registry.json", "entities.json", "relations.json", "relations.csv", "report.md"} {
		if _, err := os.Stat(store.ExportPath(name)); err != nil {
			t.Errorf("export %s missing: %v", name, err)
		}
	}
}

func TestWriteAll_EntitiesJSONRoundTrips(t *testing.T) {
	store, err := artifacts.NewStore(t.TempDir(), "run-export")
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}

	e := NewExporter(store)
	if err := e.WriteAll(testSnapshot(), "run-export", nil); err != nil {
		t.Fatalf("WriteAll() error = %v", err)
	}

	data, err := os.ReadFile(store.ExportPath("entities.json"))
	if err != nil {
		t.Fatalf("read entities.json: %v", err)
	}
	var entities []registry.Entity
	if err := json.Unmarshal(data, &entities); err != nil {
		t.Fatalf("parse entities.json: %v", err)
	}
	if len(entities) != 2 {
		t.Fatalf("entities.json has %d entities, want 2", len(entities))
	}
}

func TestWriteAll_RelationsCSV(t *testing.T) {
	store, err := artifacts.NewStore(t.TempDir(), "run-export")
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}

	e := NewExporter(store)
	if err := e.WriteAll(testSnapshot(), "run-export", nil); err != nil {
		t.Fatalf("WriteAll() error = %v", err)
	}

	f, err := os.Open(store.ExportPath("relations.csv"))
	if err != nil {
		t.Fatalf("open relations.csv: %v", err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("parse relations.csv: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("relations.csv has %d rows, want header plus 1", len(records))
	}
	if records[0][0] != "source_id" {
		t.Errorf("csv header = %v", records[0])
	}
	if records[1][2] != "manufactured_by" {
		t.Errorf("relation type = %q, want manufactured_by", records[1][2])
	}
}

func TestWriteAll_ReportContainsTarget(t *testing.T) {
	store, err := artifacts.NewStore(t.TempDir(), "run-export")
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}

	e := NewExporter(store)
	caseNorm := &payload.CaseNormalized{
		CompanyNameCanonical: "Acme GmbH",
		WebDomainNormalized:  "acme.com",
	}
	if err := e.WriteAll(testSnapshot(), "run-export", caseNorm); err != nil {
		t.Fatalf("WriteAll() error = %v", err)
	}

	data, err := os.ReadFile(store.ExportPath("report.md"))
	if err != nil {
		t.Fatalf("read report.md: %v", err)
	}
	report := string(data)

	for _, want := range []string{
		"# Company Research Report: Acme GmbH",
		"## Target Company",
		"TGT-001",
		"## Manufacturer",
		"| TGT-001 | manufactured_by | MFR-001 |",
	} {
		if !strings.Contains(report, want) {
			t.Errorf("report missing %q", want)
		}
	}
}
