package main

import (
	"github.com/atlas-intel/dossier/internal/server"

	"github.com/spf13/cobra"
)

var serveFlags struct {
	artifactsRoot string
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve run artifacts and verdicts over HTTP",
	Run: func(cmd *cobra.Command, args []string) {
		server.Init(serveFlags.artifactsRoot)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveFlags.artifactsRoot, "artifacts", "artifacts", "artifact storage root")
	rootCmd.AddCommand(serveCmd)
}
