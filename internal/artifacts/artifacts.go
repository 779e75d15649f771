package artifacts

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Store manages the persisted artifact layout of one run:
//
//	<root>/<run_id>/meta/...              intake-derived payloads
//	<root>/<run_id>/steps/<STEP>/...      output.json / validator.json / agent_error.json
//	<root>/<run_id>/exports/...           final entities, relations, report
//
// Every step leaves its output and verdict behind, successful or not, so a
// stopped run can be diagnosed from disk alone.
type Store struct {
	root  string
	runID string
}

// NewStore creates the artifact store for a run and its base directories.
func NewStore(root string, runID string) (*Store, error) {
	s := &Store{root: root, runID: runID}
	for _, dir := range []string{s.MetaDir(), s.StepsDir(), s.ExportsDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create artifact dir %s: %w", dir, err)
		}
	}
	return s, nil
}

func (s *Store) RunDir() string     { return filepath.Join(s.root, s.runID) }
func (s *Store) MetaDir() string    { return filepath.Join(s.RunDir(), "meta") }
func (s *Store) StepsDir() string   { return filepath.Join(s.RunDir(), "steps") }
func (s *Store) ExportsDir() string { return filepath.Join(s.RunDir(), "exports") }

// StepDir returns (and creates) the artifact directory of one step.
func (s *Store) StepDir(stepID string) (string, error) {
	dir := filepath.Join(s.StepsDir(), stepID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create step dir %s: %w", dir, err)
	}
	return dir, nil
}

// WriteStepFile persists one JSON artifact under a step's directory.
func (s *Store) WriteStepFile(stepID string, name string, v any) error {
	dir, err := s.StepDir(stepID)
	if err != nil {
		return err
	}
	return writeJSON(filepath.Join(dir, name), v)
}

// WriteMetaFile persists one JSON artifact under meta/.
func (s *Store) WriteMetaFile(name string, v any) error {
	return writeJSON(filepath.Join(s.MetaDir(), name), v)
}

// WriteExportFile persists one artifact under exports/.
func (s *Store) WriteExportFile(name string, data []byte) error {
	return writeAtomic(filepath.Join(s.ExportsDir(), name), data)
}

// ExportPath returns the path of a named export artifact.
func (s *Store) ExportPath(name string) string {
	return filepath.Join(s.ExportsDir(), name)
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", filepath.Base(path), err)
	}
	return writeAtomic(path, append(data, '\n'))
}

// writeAtomic writes via a temp file and rename so readers never observe a
// partially written artifact.
func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s: %w", path, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to rename %s into place: %w", path, err)
	}
	return nil
}
