package routes

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/atlas-intel/dossier/internal/server/middleware"

	"github.com/labstack/echo/v4"
)

// GetReportHandler serves the final Markdown report of a run.
func GetReportHandler(c echo.Context) error {
	root := c.(*middleware.AppContext).App.ArtifactsRoot
	runID := c.Param("run_id")

	if strings.ContainsAny(runID, "/\\") || strings.Contains(runID, "..") {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid identifier"})
	}

	path := filepath.Join(root, runID, "exports", "report.md")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "report not found"})
		}
		return c.String(http.StatusInternalServerError, err.Error())
	}

	return c.Blob(http.StatusOK, "text/markdown; charset=utf-8", data)
}
