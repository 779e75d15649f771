package routes

import (
	"net/http"

	"github.com/atlas-intel/dossier/pkg/payload"
	"github.com/atlas-intel/dossier/pkg/registry"

	"github.com/labstack/echo/v4"
)

// ValidateCaseHandler checks a case input body without starting a run. It
// returns the normalized identity the intake step would produce, so callers
// can preview dedup keys before committing to a pipeline run.
func ValidateCaseHandler(c echo.Context) error {
	var in payload.CaseInput
	if err := c.Bind(&in); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	if err := c.Validate(&in); err != nil {
		return c.JSON(http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
	}

	domain := registry.NormalizeDomain(in.WebDomain)
	name := registry.NormalizeName(in.CompanyName)

	return c.JSON(http.StatusOK, map[string]string{
		"web_domain_normalized": domain,
		"entity_key":            registry.BuildEntityKey(domain, in.CompanyName),
		"company_name_key":      name,
	})
}
