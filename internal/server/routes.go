package server

import (
	"github.com/atlas-intel/dossier/internal/server/routes"

	"github.com/labstack/echo/v4"
)

func RegisterRoutes(e *echo.Echo) {
	// Health check route
	e.GET("/health", func(c echo.Context) error {
		return c.String(200, "OK")
	})

	apiRoutes := e.Group("/api")

	// Run inspection routes
	apiRoutes.GET("/runs", routes.GetRunsHandler)
	apiRoutes.GET("/runs/:run_id", routes.GetRunHandler)
	apiRoutes.GET("/runs/:run_id/steps/:step_id/output", routes.GetStepOutputHandler)
	apiRoutes.GET("/runs/:run_id/report", routes.GetReportHandler)

	// Case routes
	apiRoutes.POST("/cases/validate", routes.ValidateCaseHandler)
}
