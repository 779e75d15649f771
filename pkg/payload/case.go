package payload

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/go-playground/validator"
)

// CaseInput is the intake payload one pipeline run is started with.
type CaseInput struct {
	CompanyName     string `json:"company_name" validate:"required"`
	WebDomain       string `json:"web_domain" validate:"required"`
	Country         string `json:"country,omitempty"`
	PipelineVersion string `json:"pipeline_version,omitempty"`
}

var caseValidate = validator.New()

// LoadCaseFile reads and validates a case file from disk.
func LoadCaseFile(path string) (*CaseInput, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read case file: %w", err)
	}

	var c CaseInput
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse case file: %w", err)
	}
	if err := caseValidate.Struct(&c); err != nil {
		return nil, fmt.Errorf("invalid case file: %w", err)
	}

	return &c, nil
}
