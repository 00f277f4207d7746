package orchestrator

import (
	"fmt"
	"sort"
	"strings"

	"github.com/strategyfactory/api/internal/model"
)

// deliverablePrompts maps a deliverable ID to the instruction part of its
// synthesis prompt. IDs missing from the map get a generic instruction.
var deliverablePrompts = map[string]string{
	"01_tech_inventory":         "Produce a technology inventory: systems, vendors, integration points and estimated modernity of each.",
	"02_maturity_assessment":    "Assess the company's AI maturity across data, tooling, talent and governance, with a score per dimension.",
	"03_pain_points":            "Analyze operational pain points and rank them by cost, frequency and automation potential.",
	"04_use_case_library":       "Build a library of AI use cases mapped to the pain points, each with a one-line description, value driver and prerequisite data.",
	"05_quick_wins":             "List quick wins achievable within 90 days, with effort and owner suggestions.",
	"06_roadmap":                "Draft a phased 18-month AI adoption roadmap with milestones and dependencies between use cases.",
	"07_roi_calculator":         "Estimate return on investment per use case: assumptions, cost inputs and expected savings as tables.",
	"08_vendor_comparison":      "Compare candidate AI vendors and platforms relevant to the identified use cases.",
	"09_license_consolidation":  "Propose a consolidation plan for overlapping software licenses and AI subscriptions.",
	"10_data_governance":        "Define data governance guidelines: ownership, quality gates, retention and access policy.",
	"11_ai_policy":              "Draft an internal AI usage policy covering approved tools, prohibited uses and review processes.",
	"12_change_management":      "Outline a change management and enablement plan for affected teams.",
	"13_prompt_library":         "Curate a prompt library of reusable prompts per department, with usage notes.",
	"14_glossary":               "Compile a glossary of AI terms the client's staff will encounter, with plain-language definitions.",
	"15_mermaid_diagrams":       "Produce Mermaid diagram definitions (flowchart or graph blocks) visualizing the roadmap and target architecture.",
	"16_executive_presentation": "Condense the full analysis into an executive presentation outline, one slide per heading.",
	"17_strategy_document":      "Assemble the full strategy document structure with sections drawing on the complete analysis.",
}

func promptFor(id, title string, input model.CompanyInput, research *model.ResearchOutput) string {
	instruction, ok := deliverablePrompts[id]
	if !ok {
		instruction = fmt.Sprintf("Write the %q section of an AI strategy document.", title)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You are preparing the %q deliverable of an AI strategy for %s.\n\n", title, input.Name)
	if input.Context != "" {
		fmt.Fprintf(&b, "Additional context from the client: %s\n\n", input.Context)
	}
	b.WriteString("Research findings:\n")
	for _, section := range sortedSections(research) {
		fmt.Fprintf(&b, "## %s\n%s\n\n", section, research.Sections[section])
	}
	b.WriteString(instruction)
	b.WriteString("\nRespond in well-structured markdown.")
	return b.String()
}

func sortedSections(research *model.ResearchOutput) []string {
	names := make([]string, 0, len(research.Sections))
	for name := range research.Sections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
