package main

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/atlas-intel/dossier/internal/artifacts"
	"github.com/atlas-intel/dossier/internal/storage"
	"github.com/atlas-intel/dossier/internal/util"
	"github.com/atlas-intel/dossier/pkg/agents"
	"github.com/atlas-intel/dossier/pkg/ai"
	oll "github.com/atlas-intel/dossier/pkg/ai/ollama"
	oai "github.com/atlas-intel/dossier/pkg/ai/openai"
	"github.com/atlas-intel/dossier/pkg/contract"
	"github.com/atlas-intel/dossier/pkg/export"
	"github.com/atlas-intel/dossier/pkg/fetch"
	"github.com/atlas-intel/dossier/pkg/logger"
	"github.com/atlas-intel/dossier/pkg/payload"
	"github.com/atlas-intel/dossier/pkg/pipeline"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/spf13/cobra"
)

var runFlags struct {
	runID           string
	caseFile        string
	pipelineVersion string
	artifactsRoot   string
	dagFile         string
	contractsFile   string
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute a full research run for one case",
	Run: func(cmd *cobra.Command, args []string) {
		os.Exit(runPipeline())
	},
}

func init() {
	runCmd.Flags().StringVar(&runFlags.runID, "run-id", "", "run identifier (generated when empty)")
	runCmd.Flags().StringVar(&runFlags.caseFile, "case-file", "", "path to the case input JSON file")
	runCmd.Flags().StringVar(&runFlags.pipelineVersion, "pipeline-version", "", "pipeline version (overrides PIPELINE_VERSION and the case file)")
	runCmd.Flags().StringVar(&runFlags.artifactsRoot, "artifacts", "artifacts", "artifact storage root")
	runCmd.Flags().StringVar(&runFlags.dagFile, "dag", "", "step DAG YAML (built-in when empty)")
	runCmd.Flags().StringVar(&runFlags.contractsFile, "contracts", "", "contract table YAML (built-in when empty)")
	runCmd.MarkFlagRequired("case-file")
	rootCmd.AddCommand(runCmd)
}

// resolvePipelineVersion picks the version in precedence order: the command
// line flag, the PIPELINE_VERSION environment variable, then the case file.
func resolvePipelineVersion(caseInput *payload.CaseInput) string {
	if runFlags.pipelineVersion != "" {
		return runFlags.pipelineVersion
	}
	if v := util.GetEnv("PIPELINE_VERSION"); v != "" {
		return v
	}
	return caseInput.PipelineVersion
}

func newAIClient() (ai.Client, error) {
	adapter := util.GetEnvString("AI_ADAPTER", "openai")

	switch adapter {
	case "ollama":
		return oll.NewResearchOllamaClient(oll.NewResearchOllamaClientParams{
			ChatModel: util.GetEnv("AI_CHAT_MODEL"),
			BaseURL:   util.GetEnv("AI_CHAT_URL"),
			ApiKey:    util.GetEnv("AI_CHAT_KEY"),
		})
	default:
		return oai.NewResearchOpenAIClient(oai.NewResearchOpenAIClientParams{
			ChatModel: util.GetEnv("AI_CHAT_MODEL"),
			BaseURL:   util.GetEnv("AI_CHAT_URL"),
			APIKey:    util.GetEnv("AI_CHAT_KEY"),
		}), nil
	}
}

func runPipeline() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	caseInput, err := payload.LoadCaseFile(runFlags.caseFile)
	if err != nil {
		logger.Error("[CLI] Invalid case file", "path", runFlags.caseFile, "err", err)
		return exitConfigError
	}

	version := resolvePipelineVersion(caseInput)
	if version == "" {
		logger.Error("[CLI] Pipeline version is not resolvable",
			"hint", "set --pipeline-version, PIPELINE_VERSION or the case file field")
		return exitConfigError
	}

	runID := runFlags.runID
	if runID == "" {
		id, err := gonanoid.New()
		if err != nil {
			logger.Error("[CLI] Failed to generate run id", "err", err)
			return exitConfigError
		}
		runID = "run-" + id
	}

	dag, err := pipeline.LoadDAG(runFlags.dagFile)
	if err != nil {
		logger.Error("[CLI] Invalid step DAG", "err", err)
		return exitConfigError
	}
	contracts, err := contract.LoadSet(runFlags.contractsFile)
	if err != nil {
		logger.Error("[CLI] Invalid contract table", "err", err)
		return exitConfigError
	}

	aiClient, err := newAIClient()
	if err != nil {
		logger.Error("[CLI] Failed to create AI client", "err", err)
		return exitConfigError
	}
	fetcher := fetch.NewFetcher(fetch.NewFetcherParams{
		Timeout: time.Duration(util.GetEnvInt("FETCH_TIMEOUT_SECONDS", 20)) * time.Second,
		Retries: util.GetEnvInt("FETCH_RETRIES", 2),
	})

	store, err := artifacts.NewStore(runFlags.artifactsRoot, runID)
	if err != nil {
		logger.Error("[CLI] Failed to create artifact store", "err", err)
		return exitConfigError
	}

	runner, err := pipeline.NewRunner(pipeline.NewRunnerParams{
		DAG:             dag,
		Contracts:       contracts,
		Agents:          agents.DefaultRegistry(aiClient, fetcher),
		Store:           store,
		RunID:           runID,
		PipelineVersion: version,
	})
	if err != nil {
		logger.Error("[CLI] Invalid runner configuration", "err", err)
		return exitConfigError
	}

	reg, runErr := runner.Run(ctx, caseInput)
	if runErr != nil {
		switch {
		case errors.Is(runErr, pipeline.ErrAgentFailed):
			logger.Error("[CLI] Run stopped on agent failure", "run_id", runID, "err", runErr)
			return exitAgentFailed
		case errors.Is(runErr, pipeline.ErrContractRejected):
			logger.Error("[CLI] Run stopped on contract rejection", "run_id", runID, "err", runErr)
			return exitContractRejected
		default:
			logger.Error("[CLI] Run stopped on configuration error", "run_id", runID, "err", runErr)
			return exitConfigError
		}
	}

	var caseNorm *payload.CaseNormalized
	if data, err := os.ReadFile(filepath.Join(store.MetaDir(), "case_normalized.json")); err == nil {
		var cn payload.CaseNormalized
		if err := json.Unmarshal(data, &cn); err == nil {
			caseNorm = &cn
		}
	}

	exporter := export.NewExporter(store)
	if err := exporter.WriteAll(reg.Snapshot(), runID, caseNorm); err != nil {
		logger.Error("[CLI] Export failed", "run_id", runID, "err", err)
		return exitExportFailed
	}

	if storage.Enabled() {
		client, err := storage.NewS3Client(ctx)
		if err != nil {
			logger.Error("[CLI] Export upload failed", "run_id", runID, "err", err)
			return exitExportFailed
		}
		if err := storage.UploadExports(ctx, client, runID, store.ExportsDir()); err != nil {
			logger.Error("[CLI] Export upload failed", "run_id", runID, "err", err)
			return exitExportFailed
		}
	}

	logger.Info("[CLI] Run finished", "run_id", runID, "artifacts", store.RunDir())
	return exitOK
}
