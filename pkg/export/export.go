package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/atlas-intel/dossier/internal/artifacts"
	"github.com/atlas-intel/dossier/pkg/logger"
	"github.com/atlas-intel/dossier/pkg/payload"
	"github.com/atlas-intel/dossier/pkg/registry"
)

// ErrExport wraps any failure while producing the final artifacts. The run
// itself succeeded at that point; only the export stage is at fault.
var ErrExport = errors.New("export failed")

// Exporter renders the final registry state into the run's export artifacts:
// entity and relation dumps, a flat relations CSV, and a Markdown report.
type Exporter struct {
	store *artifacts.Store
	now   func() time.Time
}

// NewExporter creates an exporter writing into the given artifact store.
func NewExporter(store *artifacts.Store) *Exporter {
	return &Exporter{store: store, now: time.Now}
}

// WriteAll renders every export artifact for the run.
func (e *Exporter) WriteAll(snap registry.Snapshot, runID string, caseNorm *payload.CaseNormalized) error {
	if err := e.writeJSONExport("registry.json", snap); err != nil {
		return err
	}
	if err := e.writeJSONExport("entities.json", snap.Entities); err != nil {
		return err
	}
	if err := e.writeJSONExport("relations.json", snap.Relations); err != nil {
		return err
	}
	if err := e.writeRelationsCSV(snap.Relations); err != nil {
		return err
	}
	if err := e.writeReport(snap, runID, caseNorm); err != nil {
		return err
	}

	logger.Info("[Export] Wrote run exports",
		"run_id", runID,
		"entities", len(snap.Entities),
		"relations", len(snap.Relations),
	)
	return nil
}

func (e *Exporter) writeJSONExport(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: marshal %s: %v", ErrExport, name, err)
	}
	if err := e.store.WriteExportFile(name, append(data, '\n')); err != nil {
		return fmt.Errorf("%w: %v", ErrExport, err)
	}
	return nil
}

func (e *Exporter) writeRelationsCSV(relations []registry.Relation) error {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write([]string{"source_id", "target_id", "relation_type", "evidence_urls"}); err != nil {
		return fmt.Errorf("%w: %v", ErrExport, err)
	}
	for _, r := range relations {
		urls := make([]string, 0, len(r.Evidence))
		for _, ev := range r.Evidence {
			urls = append(urls, ev.URL)
		}
		if err := w.Write([]string{r.SourceID, r.TargetID, r.RelationType, strings.Join(urls, " ")}); err != nil {
			return fmt.Errorf("%w: %v", ErrExport, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("%w: %v", ErrExport, err)
	}

	if err := e.store.WriteExportFile("relations.csv", buf.Bytes()); err != nil {
		return fmt.Errorf("%w: %v", ErrExport, err)
	}
	return nil
}

func (e *Exporter) writeReport(snap registry.Snapshot, runID string, caseNorm *payload.CaseNormalized) error {
	var b strings.Builder

	title := "Company Research Report"
	if caseNorm != nil {
		title = fmt.Sprintf("Company Research Report: %s", caseNorm.CompanyNameCanonical)
	}
	fmt.Fprintf(&b, "# %s\n\n", title)
	fmt.Fprintf(&b, "- Run: `%s`\n", runID)
	fmt.Fprintf(&b, "- Generated: %s\n", e.now().UTC().Format(time.RFC3339))
	if caseNorm != nil {
		fmt.Fprintf(&b, "- Web domain: %s\n", caseNorm.WebDomainNormalized)
	}
	b.WriteString("\n")

	if target, ok := findEntity(snap.Entities, registry.TargetEntityID); ok {
		b.WriteString("## Target Company\n\n")
		writeEntitySection(&b, target)
	}

	byType := groupByType(snap.Entities)
	types := make([]string, 0, len(byType))
	for t := range byType {
		if t == registry.TypeTargetCompany {
			continue
		}
		types = append(types, t)
	}
	sort.Strings(types)

	for _, t := range types {
		fmt.Fprintf(&b, "## %s\n\n", sectionHeading(t))
		for _, ent := range byType[t] {
			writeEntitySection(&b, ent)
		}
	}

	if len(snap.Relations) > 0 {
		b.WriteString("## Relations\n\n")
		b.WriteString("| Source | Relation | Target |\n")
		b.WriteString("|---|---|---|\n")
		for _, r := range snap.Relations {
			fmt.Fprintf(&b, "| %s | %s | %s |\n", r.SourceID, r.RelationType, r.TargetID)
		}
		b.WriteString("\n")
	}

	if err := e.store.WriteExportFile("report.md", []byte(b.String())); err != nil {
		return fmt.Errorf("%w: %v", ErrExport, err)
	}
	return nil
}

func writeEntitySection(b *strings.Builder, ent registry.Entity) {
	fmt.Fprintf(b, "### %s (`%s`)\n\n", ent.EntityName, ent.EntityID)
	if ent.Domain != "" && ent.Domain != payload.Placeholder {
		fmt.Fprintf(b, "- Domain: %s\n", ent.Domain)
	}

	keys := make([]string, 0, len(ent.Attributes))
	for k := range ent.Attributes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(b, "- %s: %v\n", k, ent.Attributes[k])
	}

	if len(ent.Sources) > 0 {
		b.WriteString("- Sources:\n")
		for _, s := range ent.Sources {
			fmt.Fprintf(b, "  - %s (%s)\n", s.URL, s.Publisher)
		}
	}
	b.WriteString("\n")
}

func findEntity(entities []registry.Entity, id string) (registry.Entity, bool) {
	for _, e := range entities {
		if e.EntityID == id {
			return e, true
		}
	}
	return registry.Entity{}, false
}

func groupByType(entities []registry.Entity) map[string][]registry.Entity {
	out := make(map[string][]registry.Entity)
	for _, e := range entities {
		out[e.EntityType] = append(out[e.EntityType], e)
	}
	return out
}

// sectionHeading turns an entity type into a readable report heading.
func sectionHeading(entityType string) string {
	words := strings.Split(entityType, "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
