// Package registry holds the static deliverable catalog: every artifact
// the pipeline can produce, its output format and its dependency list.
// The catalog is read-only configuration consumed by the tracker and the
// runner.
package registry

import "github.com/strategyfactory/api/internal/model"

// DepAllMarkdown is the dependency token expanding to every
// markdown-format deliverable in the catalog.
const DepAllMarkdown = "ALL_MARKDOWN"

// Deliverable describes one catalog entry.
type Deliverable struct {
	Name         string
	Format       model.Format
	Dependencies []string
}

// Catalog maps deliverable IDs to their metadata. The numeric prefix
// gives a stable on-disk ordering for the markdown files.
var Catalog = map[string]Deliverable{
	"01_tech_inventory": {
		Name:   "Technology Inventory",
		Format: model.FormatMarkdown,
	},
	"02_maturity_assessment": {
		Name:   "AI Maturity Assessment",
		Format: model.FormatMarkdown,
	},
	"03_pain_points": {
		Name:   "Pain Points Analysis",
		Format: model.FormatMarkdown,
	},
	"04_use_case_library": {
		Name:         "AI Use Case Library",
		Format:       model.FormatMarkdown,
		Dependencies: []string{"03_pain_points"},
	},
	"05_quick_wins": {
		Name:         "Quick Wins",
		Format:       model.FormatMarkdown,
		Dependencies: []string{"04_use_case_library"},
	},
	"06_roadmap": {
		Name:         "Implementation Roadmap",
		Format:       model.FormatMarkdown,
		Dependencies: []string{"04_use_case_library", "05_quick_wins"},
	},
	"07_roi_calculator": {
		Name:         "ROI Calculator",
		Format:       model.FormatMarkdown,
		Dependencies: []string{"04_use_case_library"},
	},
	"08_vendor_comparison": {
		Name:   "Vendor Comparison",
		Format: model.FormatMarkdown,
	},
	"09_license_consolidation": {
		Name:   "License Consolidation Plan",
		Format: model.FormatMarkdown,
	},
	"10_data_governance": {
		Name:   "Data Governance Guidelines",
		Format: model.FormatMarkdown,
	},
	"11_ai_policy": {
		Name:   "AI Usage Policy",
		Format: model.FormatMarkdown,
	},
	"12_change_management": {
		Name:   "Change Management Plan",
		Format: model.FormatMarkdown,
	},
	"13_prompt_library": {
		Name:   "Prompt Library",
		Format: model.FormatMarkdown,
	},
	"14_glossary": {
		Name:   "AI Glossary",
		Format: model.FormatMarkdown,
	},
	"15_mermaid_diagrams": {
		Name:         "Strategy Diagrams",
		Format:       model.FormatMarkdown,
		Dependencies: []string{"06_roadmap"},
	},
	"16_executive_presentation": {
		Name:         "Executive Presentation",
		Format:       model.FormatPresentation,
		Dependencies: []string{DepAllMarkdown},
	},
	"17_strategy_document": {
		Name:         "Full Strategy Document",
		Format:       model.FormatDocument,
		Dependencies: []string{DepAllMarkdown},
	},
}

// Get returns the catalog entry for id.
func Get(id string) (Deliverable, bool) {
	d, ok := Catalog[id]
	return d, ok
}

// IDs returns every deliverable ID in the catalog.
func IDs() []string {
	ids := make([]string, 0, len(Catalog))
	for id := range Catalog {
		ids = append(ids, id)
	}
	return ids
}

// MarkdownIDs returns the IDs of all markdown-format deliverables.
func MarkdownIDs() []string {
	var ids []string
	for id, d := range Catalog {
		if d.Format == model.FormatMarkdown {
			ids = append(ids, id)
		}
	}
	return ids
}

// DocumentIDs returns the IDs of all binary document deliverables, the
// ones produced by the generation phase.
func DocumentIDs() []string {
	var ids []string
	for id, d := range Catalog {
		if d.Format.Binary() {
			ids = append(ids, id)
		}
	}
	return ids
}

// FindByName maps a declared display name back to its catalog ID.
func FindByName(name string) (string, bool) {
	for id, d := range Catalog {
		if d.Name == name {
			return id, true
		}
	}
	return "", false
}
