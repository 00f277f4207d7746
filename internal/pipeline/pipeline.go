// Package pipeline drives the three-phase analysis run: research,
// synthesis, generation. Each phase is independently resumable; the
// actual work is delegated to external collaborators consumed through
// the interfaces below.
package pipeline

import "github.com/strategyfactory/api/internal/model"

// ProgressFunc receives incremental progress from a collaborator.
// progress is in [0,1].
type ProgressFunc func(message string, progress float64)

// Researcher gathers company intelligence.
type Researcher interface {
	Research(input model.CompanyInput, progress ProgressFunc) (*model.ResearchOutput, error)
}

// Synthesizer turns research into markdown deliverables. Synthesize is
// invoked only for the requested subset; per-deliverable failures are
// reported post hoc through Errors rather than aborting the batch.
type Synthesizer interface {
	Synthesize(input model.CompanyInput, research *model.ResearchOutput, deliverables []string, progress ProgressFunc) (*model.SynthesisOutput, error)
	SaveDeliverables(dirName string) (map[string]string, error)
	Errors() []model.SynthesisError
}

// Generator produces the binary documents (presentations, reports) from
// the synthesized markdown.
type Generator interface {
	GenerateAll(dirName string, input model.CompanyInput, research *model.ResearchOutput, synthesis *model.SynthesisOutput, progress ProgressFunc) (*model.GenerationResult, error)
}
