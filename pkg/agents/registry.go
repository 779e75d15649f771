package agents

import (
	"github.com/atlas-intel/dossier/pkg/ai"
	"github.com/atlas-intel/dossier/pkg/fetch"
	"github.com/atlas-intel/dossier/pkg/pipeline"
)

// DefaultRegistry binds every pipeline step to its agent implementation.
// The intake and source registry steps are deterministic; everything after
// them is a focused variant of the shared research agent.
func DefaultRegistry(client ai.Client, fetcher *fetch.Fetcher) pipeline.AgentRegistry {
	research := func(stepID, name, focus string, pinTarget, noRelations bool) pipeline.Agent {
		return NewResearchAgent(NewResearchAgentParams{
			StepID:      stepID,
			AgentName:   name,
			Focus:       focus,
			PinTarget:   pinTarget,
			NoRelations: noRelations,
			Client:      client,
			Fetcher:     fetcher,
		})
	}

	return pipeline.AgentRegistry{
		"S00_intake": NewIntakeAgent(),
		"S10_source_registry": NewSourceRegistryAgent(NewSourceRegistryAgentParams{
			Fetcher: fetcher,
		}),
		"S20_legal_identity": research(
			"S20_legal_identity", "legal_identity",
			"Determine the registered legal name, legal form, commercial register signals and founding year of the target company.",
			true, true,
		),
		"S30_locations": research(
			"S30_locations", "locations",
			"Identify the operating sites of the target company with address, city and country, and link each site to the company.",
			false, false,
		),
		"S40_company_size": research(
			"S40_company_size", "company_size",
			"Estimate the size of the target company: employee count or range and revenue or revenue range.",
			true, true,
		),
		"S50_products": research(
			"S50_products", "products",
			"List the main products and services the target company offers.",
			false, false,
		),
		"S51_manufacturing": research(
			"S51_manufacturing", "manufacturing",
			"Identify manufacturers and production partners involved in making the target company's products.",
			false, false,
		),
		"S52_customers": research(
			"S52_customers", "customers",
			"Identify named customers and customer segments of the target company.",
			false, false,
		),
		"S53_suppliers": research(
			"S53_suppliers", "suppliers",
			"Identify suppliers providing materials or components to the target company.",
			false, false,
		),
		"S54_peers": research(
			"S54_peers", "peers",
			"Identify peer companies competing in the target company's market.",
			false, false,
		),
		"S55_sustainability": research(
			"S55_sustainability", "sustainability",
			"Summarize the sustainability programs and environmental commitments of the target company.",
			false, false,
		),
		"S56_certifications": research(
			"S56_certifications", "certifications",
			"List quality and compliance certifications held by the target company.",
			false, false,
		),
		"S57_news": research(
			"S57_news", "news",
			"Summarize recent public news about the target company.",
			false, false,
		),
	}
}
