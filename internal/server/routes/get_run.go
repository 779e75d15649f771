package routes

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/atlas-intel/dossier/internal/server/middleware"
	"github.com/atlas-intel/dossier/pkg/contract"

	"github.com/labstack/echo/v4"
)

// GetRunHandler returns the per-step validation verdicts of one run.
func GetRunHandler(c echo.Context) error {
	type stepStatus struct {
		StepID     string           `json:"step_id"`
		Verdict    *contract.Result `json:"verdict,omitempty"`
		AgentError string           `json:"agent_error,omitempty"`
	}

	root := c.(*middleware.AppContext).App.ArtifactsRoot
	runID := c.Param("run_id")

	if strings.ContainsAny(runID, "/\\") || strings.Contains(runID, "..") {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid identifier"})
	}

	stepsDir := filepath.Join(root, runID, "steps")
	entries, err := os.ReadDir(stepsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "run not found"})
		}
		return c.String(http.StatusInternalServerError, err.Error())
	}

	steps := []stepStatus{}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		status := stepStatus{StepID: entry.Name()}

		if data, err := os.ReadFile(filepath.Join(stepsDir, entry.Name(), "validator.json")); err == nil {
			var result contract.Result
			if err := json.Unmarshal(data, &result); err == nil {
				status.Verdict = &result
			}
		}
		if data, err := os.ReadFile(filepath.Join(stepsDir, entry.Name(), "agent_error.json")); err == nil {
			var agentErr struct {
				Error string `json:"error"`
			}
			if err := json.Unmarshal(data, &agentErr); err == nil {
				status.AgentError = agentErr.Error
			}
		}

		steps = append(steps, status)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"run_id": runID,
		"steps":  steps,
	})
}
