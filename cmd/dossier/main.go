package main

import (
	"os"

	"github.com/atlas-intel/dossier/internal/util"
	"github.com/atlas-intel/dossier/pkg/logger"
	"github.com/atlas-intel/dossier/pkg/logger/console"

	"github.com/spf13/cobra"
)

// Process exit codes. Scripts calling the CLI branch on these, so they are
// part of the public interface.
const (
	exitOK               = 0
	exitConfigError      = 1
	exitAgentFailed      = 2
	exitContractRejected = 3
	exitExportFailed     = 4
)

var rootCmd = &cobra.Command{
	Use:   "dossier",
	Short: "Company research pipeline",
	Long: `dossier runs a staged company research pipeline: deterministic intake,
evidence gathering, model-backed research steps gated by output contracts,
and a final export of the merged entity registry.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	util.LoadEnv()

	debug := util.GetEnvBool("DEBUG", false)

	consoleLogger := console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug: debug,
	})
	logger.Init(consoleLogger)

	if err := rootCmd.Execute(); err != nil {
		logger.Error("Command failed", "err", err)
		os.Exit(exitConfigError)
	}
}
