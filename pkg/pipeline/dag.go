package pipeline

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
)

// Step is one node of the declarative dependency graph.
type Step struct {
	StepID    string   `yaml:"step_id"`
	DependsOn []string `yaml:"depends_on"`
}

// DAG is the declared step sequence of a run. Steps execute strictly in the
// order they are declared; depends_on entries are asserted, not used for
// reordering, so a malformed graph fails loudly instead of running steps out
// of order.
type DAG struct {
	Steps []Step `yaml:"steps"`
}

//go:embed dag.yaml
var defaultDAG []byte

// LoadDAG parses a dependency graph from YAML and verifies it is well
// formed: unique step ids, and every dependency declared before its
// dependent. An empty path loads the embedded default graph.
func LoadDAG(path string) (*DAG, error) {
	data := defaultDAG
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read DAG config: %w", err)
		}
	}

	var dag DAG
	if err := yaml.Unmarshal(data, &dag); err != nil {
		return nil, fmt.Errorf("failed to parse DAG config: %w", err)
	}
	if len(dag.Steps) == 0 {
		return nil, fmt.Errorf("DAG config declares no steps")
	}

	declared := make(map[string]bool, len(dag.Steps))
	for _, step := range dag.Steps {
		if step.StepID == "" {
			return nil, fmt.Errorf("DAG entry without step_id")
		}
		if declared[step.StepID] {
			return nil, fmt.Errorf("duplicate DAG entry for step %q", step.StepID)
		}
		for _, dep := range step.DependsOn {
			if !declared[dep] {
				return nil, fmt.Errorf("step %q depends on %q which is not declared before it", step.StepID, dep)
			}
		}
		declared[step.StepID] = true
	}

	return &dag, nil
}
