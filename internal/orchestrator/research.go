// Package orchestrator provides the default collaborator implementations
// the pipeline delegates to: research over the Perplexity API, synthesis
// over the Gemini API, and document generation from the synthesized
// markdown. All of them fall back to deterministic mock output when
// their API client is unconfigured, so the pipeline stays exercisable in
// development.
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/strategyfactory/api/internal/client"
	"github.com/strategyfactory/api/internal/model"
	"github.com/strategyfactory/api/internal/pipeline"
)

// Perplexity sonar pricing, dollars per token.
const researchCostPerToken = 0.000001

type researchQuery struct {
	section string
	prompt  string
}

func baseQueries(company, context string) []researchQuery {
	return []researchQuery{
		{"overview", fmt.Sprintf("Company overview, size, industry and business model of %s. %s", company, context)},
		{"tech_stack", fmt.Sprintf("What technology stack, software vendors and IT systems does %s use?", company)},
		{"ai_adoption", fmt.Sprintf("Current state of AI adoption in %s's industry, and any AI initiatives at %s.", company, company)},
		{"pain_points", fmt.Sprintf("Known operational pain points, inefficiencies and challenges reported for %s or typical in its industry.", company)},
	}
}

func comprehensiveQueries(company string) []researchQuery {
	return []researchQuery{
		{"competitors", fmt.Sprintf("Main competitors of %s and how they use AI.", company)},
		{"regulation", fmt.Sprintf("Regulatory and compliance constraints relevant to AI adoption for %s.", company)},
		{"data_maturity", fmt.Sprintf("Data infrastructure and data maturity signals for %s.", company)},
		{"vendors", fmt.Sprintf("AI vendors and platforms commonly used in %s's industry, with pricing signals.", company)},
		{"talent", fmt.Sprintf("Hiring activity and technical talent profile of %s.", company)},
		{"financials", fmt.Sprintf("Revenue, growth and budget signals for %s relevant to technology investment.", company)},
	}
}

// ResearchOrchestrator implements pipeline.Researcher over Perplexity.
type ResearchOrchestrator struct {
	client *client.PerplexityClient
}

func NewResearchOrchestrator(c *client.PerplexityClient) *ResearchOrchestrator {
	return &ResearchOrchestrator{client: c}
}

// Research runs the query set for the input's mode and aggregates the
// answers into sections.
func (o *ResearchOrchestrator) Research(input model.CompanyInput, progress pipeline.ProgressFunc) (*model.ResearchOutput, error) {
	queries := baseQueries(input.Name, input.Context)
	if input.Mode == model.ModeComprehensive {
		queries = append(queries, comprehensiveQueries(input.Name)...)
	}

	output := &model.ResearchOutput{
		CompanyName:       input.Name,
		ResearchTimestamp: time.Now().Format(time.RFC3339),
		ResearchMode:      input.Mode,
		Sections:          make(map[string]string, len(queries)),
	}

	for i, q := range queries {
		if progress != nil {
			progress(fmt.Sprintf("Querying: %s", q.section), float64(i)/float64(len(queries)))
		}

		if !o.client.IsConfigured() {
			output.Sections[q.section] = mockResearchSection(input.Name, q.section)
			output.QueryCount++
			continue
		}

		answer, tokens, err := o.client.Search(context.Background(), q.prompt)
		if err != nil {
			return nil, fmt.Errorf("research query %s: %w", q.section, err)
		}
		output.Sections[q.section] = answer
		output.QueryCount++
		output.TotalCost += float64(tokens) * researchCostPerToken
	}

	if progress != nil {
		progress("Research finished", 1.0)
	}
	return output, nil
}

func mockResearchSection(company, section string) string {
	return fmt.Sprintf("[mock research] %s findings for %s. Configure a Perplexity API key for live data.", section, company)
}
