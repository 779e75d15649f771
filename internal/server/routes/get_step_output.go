package routes

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/atlas-intel/dossier/internal/server/middleware"

	"github.com/labstack/echo/v4"
)

// GetStepOutputHandler returns the raw persisted output of one step.
func GetStepOutputHandler(c echo.Context) error {
	root := c.(*middleware.AppContext).App.ArtifactsRoot
	runID := c.Param("run_id")
	stepID := c.Param("step_id")

	// path params must not escape the artifact tree
	if strings.ContainsAny(runID+stepID, "/\\") || strings.Contains(runID+stepID, "..") {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid identifier"})
	}

	path := filepath.Join(root, runID, "steps", stepID, "output.json")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "step output not found"})
		}
		return c.String(http.StatusInternalServerError, err.Error())
	}

	return c.JSONBlob(http.StatusOK, data)
}
