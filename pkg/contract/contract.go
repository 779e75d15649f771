package contract

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
)

// Contract kinds select the step-specific rule set applied in stage three.
// Most research steps are generic and get only the envelope and step_meta
// checks.
const (
	KindIntake         = "intake"
	KindSourceRegistry = "source_registry"
	KindLegalIdentity  = "legal_identity"
	KindLocations      = "locations"
	KindCompanySize    = "company_size"
	KindGeneric        = "generic"
)

// baseSections are required at the top level of every step output.
var baseSections = []string{
	"step_meta",
	"entities_delta",
	"relations_delta",
	"findings",
	"sources",
}

// Contract declares what one step's output must carry: which extra
// top-level sections it needs and which rule kind gates it.
type Contract struct {
	StepID        string   `yaml:"step_id"`
	Kind          string   `yaml:"kind"`
	ExtraSections []string `yaml:"extra_sections"`
}

// RequiredSections returns the base envelope sections plus the step's extras.
func (c Contract) RequiredSections() []string {
	sections := make([]string, 0, len(baseSections)+len(c.ExtraSections))
	sections = append(sections, baseSections...)
	sections = append(sections, c.ExtraSections...)
	return sections
}

// Set is the full contract table of a run, loaded once from configuration.
type Set struct {
	contracts map[string]Contract
}

type contractFile struct {
	Contracts []Contract `yaml:"contracts"`
}

//go:embed contracts.yaml
var defaultContracts []byte

// LoadSet parses a contract table from YAML. An empty path loads the
// embedded default table.
func LoadSet(path string) (*Set, error) {
	data := defaultContracts
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read contract config: %w", err)
		}
	}

	var file contractFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse contract config: %w", err)
	}

	set := &Set{contracts: make(map[string]Contract, len(file.Contracts))}
	for _, c := range file.Contracts {
		if c.StepID == "" {
			return nil, fmt.Errorf("contract entry without step_id")
		}
		if _, dup := set.contracts[c.StepID]; dup {
			return nil, fmt.Errorf("duplicate contract entry for step %q", c.StepID)
		}
		if c.Kind == "" {
			c.Kind = KindGeneric
		}
		if !knownKind(c.Kind) {
			return nil, fmt.Errorf("contract for step %q has unknown kind %q", c.StepID, c.Kind)
		}
		set.contracts[c.StepID] = c
	}

	return set, nil
}

// Get returns the contract for a step id.
func (s *Set) Get(stepID string) (Contract, bool) {
	c, ok := s.contracts[stepID]
	return c, ok
}

func knownKind(kind string) bool {
	switch kind {
	case KindIntake, KindSourceRegistry, KindLegalIdentity, KindLocations, KindCompanySize, KindGeneric:
		return true
	}
	return false
}
