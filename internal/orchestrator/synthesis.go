package orchestrator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/strategyfactory/api/internal/client"
	"github.com/strategyfactory/api/internal/model"
	"github.com/strategyfactory/api/internal/pipeline"
	"github.com/strategyfactory/api/internal/registry"
)

// Gemini flash pricing, dollars per token, blended in/out.
const synthesisCostPerToken = 0.0000005

// SynthesisOrchestrator implements pipeline.Synthesizer over Gemini. It
// accumulates per-deliverable failures instead of aborting, so a single
// bad generation does not discard the rest of the batch. Instances carry
// per-run state and must not be shared across runs.
type SynthesisOrchestrator struct {
	client     *client.GeminiClient
	outputBase string

	output *model.SynthesisOutput
	errors []model.SynthesisError
}

func NewSynthesisOrchestrator(c *client.GeminiClient, outputBase string) *SynthesisOrchestrator {
	return &SynthesisOrchestrator{client: c, outputBase: outputBase}
}

// Synthesize produces markdown for each requested deliverable. Failed
// deliverables are recorded in Errors and skipped in the output.
func (o *SynthesisOrchestrator) Synthesize(input model.CompanyInput, research *model.ResearchOutput, deliverables []string, progress pipeline.ProgressFunc) (*model.SynthesisOutput, error) {
	o.output = &model.SynthesisOutput{
		CompanyName:  input.Name,
		Deliverables: make(map[string]string, len(deliverables)),
	}
	o.errors = nil

	for i, id := range deliverables {
		entry, ok := registry.Get(id)
		if !ok {
			o.errors = append(o.errors, model.SynthesisError{Deliverable: id, Error: "unknown deliverable"})
			continue
		}
		if progress != nil {
			progress(fmt.Sprintf("Synthesizing: %s", entry.Name), float64(i)/float64(len(deliverables)))
		}

		content, tokens, err := o.synthesizeOne(id, entry, input, research)
		if err != nil {
			o.errors = append(o.errors, model.SynthesisError{Deliverable: id, Error: err.Error()})
			continue
		}
		o.output.Deliverables[id] = content
		o.output.TotalCost += float64(tokens) * synthesisCostPerToken
	}

	if progress != nil {
		progress("Synthesis finished", 1.0)
	}
	return o.output, nil
}

func (o *SynthesisOrchestrator) synthesizeOne(id string, entry registry.Deliverable, input model.CompanyInput, research *model.ResearchOutput) (string, int, error) {
	if !o.client.IsConfigured() {
		return mockDeliverable(entry.Name, input.Name), 0, nil
	}
	return o.client.Generate(context.Background(), promptFor(id, entry.Name, input, research))
}

// SaveDeliverables writes the synthesized markdown under the run's
// markdown directory and returns the path per deliverable ID.
func (o *SynthesisOrchestrator) SaveDeliverables(dirName string) (map[string]string, error) {
	if o.output == nil {
		return nil, fmt.Errorf("save deliverables: nothing synthesized")
	}
	dir := filepath.Join(o.outputBase, dirName, "markdown")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("save deliverables: %w", err)
	}

	paths := make(map[string]string, len(o.output.Deliverables))
	for id, content := range o.output.Deliverables {
		path := filepath.Join(dir, id+".md")
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			return nil, fmt.Errorf("save deliverable %s: %w", id, err)
		}
		paths[id] = path
	}
	return paths, nil
}

// Errors reports per-deliverable failures from the last Synthesize call.
func (o *SynthesisOrchestrator) Errors() []model.SynthesisError {
	return o.errors
}

func mockDeliverable(title, company string) string {
	return fmt.Sprintf("# %s\n\n[mock synthesis] %s deliverable for %s. Configure a Gemini API key for live output.\n", title, title, company)
}
