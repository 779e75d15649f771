package routes

import (
	"net/http"
	"os"

	"github.com/atlas-intel/dossier/internal/server/middleware"

	"github.com/labstack/echo/v4"
)

// GetRunsHandler lists the run ids present in the artifact store.
func GetRunsHandler(c echo.Context) error {
	root := c.(*middleware.AppContext).App.ArtifactsRoot

	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return c.JSON(http.StatusOK, map[string]any{"runs": []string{}})
		}
		return c.String(http.StatusInternalServerError, err.Error())
	}

	runs := []string{}
	for _, entry := range entries {
		if entry.IsDir() {
			runs = append(runs, entry.Name())
		}
	}

	return c.JSON(http.StatusOK, map[string]any{"runs": runs})
}
