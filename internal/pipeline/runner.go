package pipeline

import (
	"fmt"
	"log"
	"strings"

	"github.com/strategyfactory/api/internal/jobs"
	"github.com/strategyfactory/api/internal/model"
	"github.com/strategyfactory/api/internal/registry"
	"github.com/strategyfactory/api/internal/tracker"
)

// Collaborators supplies fresh collaborator instances per run. The
// synthesizer accumulates per-run state (its error list), so instances
// must not be shared between concurrent jobs.
type Collaborators struct {
	NewResearcher  func() Researcher
	NewSynthesizer func() Synthesizer
	NewGenerator   func() Generator
}

// Runner executes pipeline jobs on background workers. One Runner is
// shared by all jobs; per-run state lives in the tracker, the job handle
// and the per-run collaborators.
type Runner struct {
	registry   *jobs.Registry
	collab     Collaborators
	outputBase string
}

// NewRunner wires a runner with its collaborator factories.
func NewRunner(reg *jobs.Registry, collab Collaborators, outputBase string) *Runner {
	return &Runner{
		registry:   reg,
		collab:     collab,
		outputBase: outputBase,
	}
}

// Run drives one job through research, synthesis and generation. It
// always removes the job from the registry before returning, success or
// failure. Designed to be called on its own goroutine.
func (r *Runner) Run(job *model.Job) model.Outcome {
	log.Printf("Pipeline start: job=%s company=%s continue=%v newVersion=%v",
		job.ID, job.CompanyName, job.Continue, job.NewVersion)

	t, err := r.buildTracker(job)
	if err != nil {
		return r.fail(job, nil, err)
	}

	// The tracker may have resolved a timestamped directory; that name is
	// what continue, summary and the final message address the run by.
	r.registry.UpdateDirName(job.ID, t.DirName())

	research, outcome := r.runResearch(job, t)
	if outcome != model.OutcomeSuccess {
		return outcome
	}

	if outcome := r.checkCancelled(job); outcome != model.OutcomeSuccess {
		return outcome
	}

	synthesis, outcome := r.runSynthesis(job, t, research)
	if outcome != model.OutcomeSuccess {
		return outcome
	}

	if outcome := r.checkCancelled(job); outcome != model.OutcomeSuccess {
		return outcome
	}

	if outcome := r.runGeneration(job, t, research, synthesis); outcome != model.OutcomeSuccess {
		return outcome
	}

	job.Publish(model.ProgressUpdate{
		Complete:    true,
		CompanySlug: t.DirName(),
		Message:     "Analysis complete",
		Progress:    100,
	})
	r.registry.Remove(job.ID)
	log.Printf("Pipeline complete: job=%s dir=%s", job.ID, t.DirName())
	return model.OutcomeSuccess
}

func (r *Runner) buildTracker(job *model.Job) (*tracker.Tracker, error) {
	if job.Continue {
		return tracker.Open(job.DirName, r.outputBase)
	}
	input := &model.CompanyInput{
		Name:    job.CompanyName,
		Context: job.Context,
		Mode:    job.Mode,
	}
	return tracker.New(job.CompanyName, r.outputBase, tracker.Options{
		Input:      input,
		NewVersion: job.NewVersion,
	})
}

func (r *Runner) runResearch(job *model.Job, t *tracker.Tracker) (*model.ResearchOutput, model.Outcome) {
	job.Publish(model.ProgressUpdate{
		Phase:   model.PhaseResearch,
		Message: "Starting research...",
		Status:  "Gathering company intelligence",
		Detail:  "Initializing",
	})

	state := t.State()
	researchDone := state.Phases[model.PhaseResearch].Status == model.StatusCompleted

	if job.Continue && researchDone {
		research, err := t.LoadResearchOutput()
		if err != nil {
			return nil, r.fail(job, t, fmt.Errorf("load research cache: %w", err))
		}
		if research == nil {
			// Deliberate: re-running research here would silently bypass
			// the user's request to reuse the cached data.
			return nil, r.fail(job, t, fmt.Errorf("cannot continue: research cache not found"))
		}
		job.Publish(model.ProgressUpdate{
			Phase:    model.PhaseResearch,
			Message:  "Using cached research data",
			Status:   "Cached",
			Progress: 100,
			Detail:   "Skipping research - using existing data",
		})
		return research, model.OutcomeSuccess
	}

	if err := t.StartPhase(model.PhaseResearch); err != nil {
		return nil, r.fail(job, t, err)
	}

	research, err := r.collab.NewResearcher().Research(t.Input(), func(message string, progress float64) {
		job.Publish(model.ProgressUpdate{
			Phase:    model.PhaseResearch,
			Message:  "Research: " + message,
			Status:   "Researching",
			Progress: int(progress * 100),
			Detail:   message,
		})
	})
	if err != nil {
		return nil, r.fail(job, t, err)
	}
	if research == nil {
		return nil, r.fail(job, t, fmt.Errorf("research produced no output"))
	}

	if err := t.SaveResearchOutput(research); err != nil {
		return nil, r.fail(job, t, err)
	}
	if err := t.CompletePhase(model.PhaseResearch, fmt.Sprintf("Completed research with %d queries", research.QueryCount)); err != nil {
		return nil, r.fail(job, t, err)
	}

	job.Publish(model.ProgressUpdate{
		Phase:    model.PhaseResearch,
		Message:  "Research complete",
		Status:   "Completed",
		Progress: 100,
	})
	return research, model.OutcomeSuccess
}

func (r *Runner) runSynthesis(job *model.Job, t *tracker.Tracker, research *model.ResearchOutput) (*model.SynthesisOutput, model.Outcome) {
	pendingMarkdown := intersect(t.PendingDeliverables(), registry.MarkdownIDs())

	if len(pendingMarkdown) == 0 {
		job.Publish(model.ProgressUpdate{
			Phase:    model.PhaseSynthesis,
			Message:  "All markdown deliverables already generated",
			Status:   "Cached",
			Progress: 100,
			Detail:   "Skipping synthesis - all deliverables complete",
		})
		state := t.State()
		if state.Phases[model.PhaseSynthesis].Status != model.StatusCompleted {
			if err := t.CompletePhase(model.PhaseSynthesis, "All markdown deliverables already generated"); err != nil {
				return nil, r.fail(job, t, err)
			}
		}
		return &model.SynthesisOutput{
			CompanyName:  t.CompanyName(),
			Deliverables: map[string]string{},
		}, model.OutcomeSuccess
	}

	job.Publish(model.ProgressUpdate{
		Phase:   model.PhaseSynthesis,
		Message: "Starting synthesis...",
		Status:  "Generating deliverables",
		Detail:  "Initializing",
	})

	if err := t.StartPhase(model.PhaseSynthesis); err != nil {
		return nil, r.fail(job, t, err)
	}

	synthesizer := r.collab.NewSynthesizer()
	synthesis, err := synthesizer.Synthesize(t.Input(), research, pendingMarkdown, func(message string, progress float64) {
		job.Publish(model.ProgressUpdate{
			Phase:    model.PhaseSynthesis,
			Message:  "Synthesis: " + message,
			Status:   "Synthesizing",
			Progress: int(progress * 100),
			Detail:   message,
		})
	})
	if err != nil {
		return nil, r.fail(job, t, err)
	}

	filePaths, err := synthesizer.SaveDeliverables(t.DirName())
	if err != nil {
		return nil, r.fail(job, t, err)
	}

	// Individually successful deliverables are marked completed before
	// the error check: they stay completed even when the phase fails, so
	// a later continue re-attempts only the failed ones.
	for id, path := range filePaths {
		if err := t.CompleteDeliverable(id, path); err != nil {
			return nil, r.fail(job, t, err)
		}
	}

	if synthesis != nil && synthesis.TotalCost > 0 {
		if err := t.AddCost(synthesis.TotalCost, "synthesis"); err != nil {
			return nil, r.fail(job, t, err)
		}
	}

	if synthErrors := synthesizer.Errors(); len(synthErrors) > 0 {
		summary := summarizeSynthesisErrors(synthErrors)
		if err := t.FailPhase(model.PhaseSynthesis, summary); err != nil {
			log.Printf("Could not record synthesis failure: %v", err)
		}
		for _, se := range synthErrors {
			log.Printf("Synthesis error for %s: %s", se.Deliverable, se.Error)
		}
		return nil, r.terminate(job, t, fmt.Errorf("%s", summary))
	}

	if err := t.CompletePhase(model.PhaseSynthesis, fmt.Sprintf("Generated %d deliverables", len(filePaths))); err != nil {
		return nil, r.fail(job, t, err)
	}

	job.Publish(model.ProgressUpdate{
		Phase:    model.PhaseSynthesis,
		Message:  "Synthesis complete",
		Status:   "Completed",
		Progress: 100,
	})
	return synthesis, model.OutcomeSuccess
}

func (r *Runner) runGeneration(job *model.Job, t *tracker.Tracker, research *model.ResearchOutput, synthesis *model.SynthesisOutput) model.Outcome {
	pendingDocs := intersect(t.PendingDeliverables(), registry.DocumentIDs())

	if len(pendingDocs) == 0 {
		job.Publish(model.ProgressUpdate{
			Phase:    model.PhaseGeneration,
			Message:  "All presentations and documents already generated",
			Status:   "Cached",
			Progress: 100,
			Detail:   "Skipping generation - all files complete",
		})
		state := t.State()
		if state.Phases[model.PhaseGeneration].Status != model.StatusCompleted {
			if err := t.CompletePhase(model.PhaseGeneration, "All documents already generated"); err != nil {
				return r.fail(job, t, err)
			}
		}
		return model.OutcomeSuccess
	}

	job.Publish(model.ProgressUpdate{
		Phase:   model.PhaseGeneration,
		Message: "Starting document generation...",
		Status:  "Creating presentations and reports",
		Detail:  "Initializing",
	})

	if err := t.StartPhase(model.PhaseGeneration); err != nil {
		return r.fail(job, t, err)
	}

	result, err := r.collab.NewGenerator().GenerateAll(t.DirName(), t.Input(), research, synthesis, func(message string, progress float64) {
		job.Publish(model.ProgressUpdate{
			Phase:    model.PhaseGeneration,
			Message:  "Generation: " + message,
			Status:   "Generating",
			Progress: int(progress * 100),
			Detail:   message,
		})
	})
	if err != nil {
		return r.fail(job, t, err)
	}

	for _, produced := range result.Deliverables {
		id, ok := registry.FindByName(produced.Name)
		if !ok {
			log.Printf("Generated artifact %q matches no catalog entry", produced.Name)
			continue
		}
		if err := t.CompleteDeliverable(id, produced.Path); err != nil {
			return r.fail(job, t, err)
		}
	}

	if err := t.CompletePhase(model.PhaseGeneration, fmt.Sprintf("Generated %d documents", len(result.Deliverables))); err != nil {
		return r.fail(job, t, err)
	}

	job.Publish(model.ProgressUpdate{
		Phase:    model.PhaseGeneration,
		Message:  "Generation complete",
		Status:   "Completed",
		Progress: 100,
	})
	return model.OutcomeSuccess
}

// checkCancelled polls the cooperative flag at a phase boundary.
func (r *Runner) checkCancelled(job *model.Job) model.Outcome {
	if !job.IsCancelled() {
		return model.OutcomeSuccess
	}

	job.Publish(model.ProgressUpdate{
		Message:   "Analysis cancelled by user",
		Cancelled: true,
		Complete:  true,
	})
	r.registry.Remove(job.ID)
	log.Printf("Pipeline cancelled: job=%s", job.ID)
	return model.OutcomeCancelled
}

// fail records a terminal error against the phase in progress, publishes
// the classified explanation and deregisters the job. The tracker's
// recorded current phase wins; keyword sniffing is the fallback for
// failures before any tracker exists.
func (r *Runner) fail(job *model.Job, t *tracker.Tracker, err error) model.Outcome {
	phase := "unknown"
	if t != nil {
		if current := t.State().CurrentPhase; current != "" {
			phase = current
		} else {
			phase = inferPhase(err)
		}
	} else {
		phase = inferPhase(err)
	}

	details := Classify(err, phase)
	log.Printf("Pipeline failed: job=%s phase=%s: %v", job.ID, phase, err)

	if t != nil {
		// The raw message goes into the persisted error log regardless of
		// how it classified.
		if trackErr := t.FailPhase(phase, err.Error()); trackErr != nil {
			log.Printf("Could not save error to tracker: %v", trackErr)
		}
	}

	return r.publishFailure(job, phase, err, details)
}

// terminate ends the run for an error the tracker has already recorded,
// such as aggregated synthesis failures.
func (r *Runner) terminate(job *model.Job, t *tracker.Tracker, err error) model.Outcome {
	phase := "unknown"
	if t != nil && t.State().CurrentPhase != "" {
		phase = t.State().CurrentPhase
	}
	details := Classify(err, phase)
	log.Printf("Pipeline failed: job=%s phase=%s: %v", job.ID, phase, err)
	return r.publishFailure(job, phase, err, details)
}

func (r *Runner) publishFailure(job *model.Job, phase string, err error, details ErrorDetails) model.Outcome {
	job.Publish(model.ProgressUpdate{
		Complete:      true,
		Error:         err.Error(),
		ErrorTitle:    details.Title,
		ErrorMessage:  details.Message,
		ErrorSolution: details.Solution,
		ErrorDetail:   details.Technical,
		ErrorPhase:    phase,
	})
	r.registry.Remove(job.ID)
	return model.OutcomeFailed
}

// summarizeSynthesisErrors builds the phase failure summary: count plus
// the first three failing deliverables with truncated messages.
func summarizeSynthesisErrors(errs []model.SynthesisError) string {
	parts := make([]string, 0, 3)
	for i, se := range errs {
		if i == 3 {
			break
		}
		parts = append(parts, fmt.Sprintf("%s: %s", se.Deliverable, truncate(se.Error, 100)))
	}
	return fmt.Sprintf("%d deliverable(s) failed: %s", len(errs), strings.Join(parts, "; "))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func intersect(a, b []string) []string {
	set := make(map[string]struct{}, len(b))
	for _, id := range b {
		set[id] = struct{}{}
	}
	var out []string
	for _, id := range a {
		if _, ok := set[id]; ok {
			out = append(out, id)
		}
	}
	return out
}
