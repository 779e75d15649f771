package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/atlas-intel/dossier/pkg/logger"
	"github.com/atlas-intel/dossier/pkg/registry"

	"github.com/spf13/cobra"
)

var crossrefFlags struct {
	snapshot      string
	artifactsRoot string
	runID         string
}

var crossrefCmd = &cobra.Command{
	Use:   "crossref",
	Short: "Audit an exported registry for dangling relation endpoints",
	Long: `crossref reloads an exported registry snapshot and reports every relation
whose source or target does not resolve to a known entity. Dangling endpoints
are legal during a run; this audit is the pre-publication check.`,
	Run: func(cmd *cobra.Command, args []string) {
		os.Exit(runCrossref())
	},
}

func init() {
	crossrefCmd.Flags().StringVar(&crossrefFlags.snapshot, "snapshot", "", "path to a registry.json export")
	crossrefCmd.Flags().StringVar(&crossrefFlags.artifactsRoot, "artifacts", "artifacts", "artifact storage root")
	crossrefCmd.Flags().StringVar(&crossrefFlags.runID, "run-id", "", "run whose export to audit (alternative to --snapshot)")
	rootCmd.AddCommand(crossrefCmd)
}

func runCrossref() int {
	path := crossrefFlags.snapshot
	if path == "" {
		if crossrefFlags.runID == "" {
			logger.Error("[CLI] Either --snapshot or --run-id is required")
			return exitConfigError
		}
		path = filepath.Join(crossrefFlags.artifactsRoot, crossrefFlags.runID, "exports", "registry.json")
	}

	snap, err := registry.LoadSnapshot(path)
	if err != nil {
		logger.Error("[CLI] Failed to load registry snapshot", "path", path, "err", err)
		return exitConfigError
	}

	issues := registry.CheckCrossrefs(registry.FromSnapshot(snap))
	if len(issues) == 0 {
		logger.Info("[CLI] Crossref audit clean",
			"entities", len(snap.Entities), "relations", len(snap.Relations))
		return exitOK
	}

	for _, issue := range issues {
		logger.Warn("[CLI] Dangling relation endpoint",
			"relation", issue.RelationIndex, "field", issue.Field, "entity_id", issue.EntityID)
	}

	data, err := json.MarshalIndent(issues, "", "  ")
	if err == nil {
		fmt.Println(string(data))
	}

	return exitOK
}
