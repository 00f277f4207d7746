// Package tracker owns the pipeline state record: creation, load,
// mutation and persistence to state.json. It is the sole mutator of
// PipelineState; the runner and handlers go through its operations.
package tracker

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/strategyfactory/api/internal/model"
	"github.com/strategyfactory/api/internal/registry"
	"github.com/strategyfactory/api/pkg/slug"
)

const (
	stateFileName         = "state.json"
	researchCacheFileName = "research_cache.json"
)

// Subdirectories created under every company run directory.
var outputSubdirs = []string{"markdown", "mermaid_images", "presentations", "documents"}

// Options controls tracker construction.
type Options struct {
	// Input seeds a fresh state. Ignored when an existing snapshot is
	// loaded.
	Input *model.CompanyInput

	// NewVersion forces a fresh state in a timestamped directory even
	// when a snapshot already exists for the slug.
	NewVersion bool
}

// Tracker manages one company run's state and its on-disk snapshot.
type Tracker struct {
	mu sync.Mutex

	companyName string
	companySlug string
	outputBase  string
	outputDir   string

	state *model.PipelineState
}

// New loads the existing state for companyName under outputBase, or
// creates a fresh one when none exists or a new version is requested.
func New(companyName, outputBase string, opts Options) (*Tracker, error) {
	companySlug := slug.Make(companyName)

	dirName := companySlug
	if opts.NewVersion {
		dirName = fmt.Sprintf("%s_%s", companySlug, time.Now().Format("20060102_150405"))
	}

	t := &Tracker{
		companyName: companyName,
		companySlug: companySlug,
		outputBase:  outputBase,
		outputDir:   filepath.Join(outputBase, dirName),
	}

	if _, err := os.Stat(t.stateFile()); err == nil && !opts.NewVersion {
		if err := t.reload(); err != nil {
			return nil, fmt.Errorf("load state for %s: %w", companyName, err)
		}
		log.Printf("Loaded existing state for %s", t.companyName)
		return t, nil
	}

	if err := t.createState(opts.Input); err != nil {
		return nil, fmt.Errorf("create state for %s: %w", companyName, err)
	}
	log.Printf("Created new state for %s", companyName)
	return t, nil
}

// Open loads an existing run by its exact directory name, which may carry
// a version timestamp. Unlike New it never derives a slug from the name,
// since slug normalization would mangle timestamped directory names.
func Open(dirName, outputBase string) (*Tracker, error) {
	t := &Tracker{
		outputBase: outputBase,
		outputDir:  filepath.Join(outputBase, dirName),
	}
	if _, err := os.Stat(t.stateFile()); err != nil {
		return nil, fmt.Errorf("no analysis found for %s: %w", dirName, err)
	}
	if err := t.reload(); err != nil {
		return nil, fmt.Errorf("load state for %s: %w", dirName, err)
	}
	return t, nil
}

func (t *Tracker) reload() error {
	state, err := t.loadState()
	if err != nil {
		return err
	}
	t.state = state
	t.companyName = state.CompanyName
	t.companySlug = state.CompanySlug
	return nil
}

// OutputDir returns the resolved run directory, including the version
// timestamp when one was created.
func (t *Tracker) OutputDir() string { return t.outputDir }

// DirName returns the run directory's base name, the identifier clients
// use to address this run.
func (t *Tracker) DirName() string { return filepath.Base(t.outputDir) }

// CompanyName returns the display name recorded in state.
func (t *Tracker) CompanyName() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state.CompanyName
}

// Input returns a copy of the run's company input.
func (t *Tracker) Input() model.CompanyInput {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state.Input
}

// State returns a deep copy of the current state for read-only use.
func (t *Tracker) State() model.PipelineState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return copyState(t.state)
}

func (t *Tracker) stateFile() string {
	return filepath.Join(t.outputDir, stateFileName)
}

func (t *Tracker) researchCacheFile() string {
	return filepath.Join(t.outputDir, researchCacheFileName)
}

func (t *Tracker) createState(input *model.CompanyInput) error {
	if err := t.ensureDirectories(); err != nil {
		return err
	}

	deliverables := make(map[string]*model.DeliverableProgress, len(registry.Catalog))
	for _, id := range registry.IDs() {
		deliverables[id] = &model.DeliverableProgress{Status: model.StatusPending}
	}

	phases := map[string]*model.PhaseProgress{
		model.PhaseResearch:   {Name: "Research", Status: model.StatusPending},
		model.PhaseSynthesis:  {Name: "Synthesis", Status: model.StatusPending},
		model.PhaseGeneration: {Name: "Document Generation", Status: model.StatusPending},
	}

	if input == nil {
		input = &model.CompanyInput{Name: t.companyName, Mode: model.ModeQuick}
	}

	now := time.Now()
	t.state = &model.PipelineState{
		CompanyName:  t.companyName,
		CompanySlug:  t.companySlug,
		OutputDir:    t.outputDir,
		Input:        *input,
		CreatedAt:    now,
		UpdatedAt:    now,
		Phases:       phases,
		Deliverables: deliverables,
		Errors:       []model.ErrorEntry{},
	}

	return t.saveStateLocked()
}

func (t *Tracker) ensureDirectories() error {
	if err := os.MkdirAll(t.outputDir, 0o755); err != nil {
		return err
	}
	for _, sub := range outputSubdirs {
		if err := os.MkdirAll(filepath.Join(t.outputDir, sub), 0o755); err != nil {
			return err
		}
	}
	return nil
}

// saveStateLocked persists the state synchronously. Callers hold no lock
// during construction; mutating operations take t.mu first.
func (t *Tracker) saveStateLocked() error {
	t.state.UpdatedAt = time.Now()
	data, err := json.MarshalIndent(t.state, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(t.stateFile(), data, 0o644)
}

// ============================================================
// Phase management
// ============================================================

// StartPhase marks a phase in progress and points current_phase at it.
// Unknown phase names are ignored.
func (t *Tracker) StartPhase(name string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	phase, ok := t.state.Phases[name]
	if !ok {
		return nil
	}
	now := time.Now()
	phase.Status = model.StatusInProgress
	phase.StartedAt = &now
	t.state.CurrentPhase = name
	if err := t.saveStateLocked(); err != nil {
		return err
	}
	log.Printf("Started phase: %s", name)
	return nil
}

// CompletePhase marks a phase completed, records the summary and writes
// the phase summary artifact.
func (t *Tracker) CompletePhase(name, summary string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	phase, ok := t.state.Phases[name]
	if !ok {
		return nil
	}
	now := time.Now()
	phase.Status = model.StatusCompleted
	phase.CompletedAt = &now
	phase.Summary = summary
	if err := t.saveStateLocked(); err != nil {
		return err
	}

	if err := t.writePhaseSummaryLocked(name, summary); err != nil {
		// The artifact is informational; losing it does not lose state.
		log.Printf("Could not write phase summary for %s: %v", name, err)
	}
	log.Printf("Completed phase: %s", name)
	return nil
}

// FailPhase marks a phase failed and appends to the error log. Failure is
// recorded, never raised.
func (t *Tracker) FailPhase(name, errMsg string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	phase, ok := t.state.Phases[name]
	if !ok {
		return nil
	}
	phase.Status = model.StatusFailed
	t.state.Errors = append(t.state.Errors, model.ErrorEntry{
		Phase:     name,
		Error:     errMsg,
		Timestamp: time.Now(),
	})
	if err := t.saveStateLocked(); err != nil {
		return err
	}
	log.Printf("Phase %s failed: %s", name, errMsg)
	return nil
}

// ============================================================
// Deliverable management
// ============================================================

// UpdateDeliverable sets a deliverable's status. The first transition
// into in-progress records the start time; supplying an error increments
// the retry count.
func (t *Tracker) UpdateDeliverable(id string, status model.Status, filePath, errMsg string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	d, ok := t.state.Deliverables[id]
	if !ok {
		return nil
	}
	d.Status = status

	if status == model.StatusInProgress && d.StartedAt == nil {
		now := time.Now()
		d.StartedAt = &now
	}
	if filePath != "" {
		d.FilePath = filePath
	}
	if errMsg != "" {
		d.Error = errMsg
		d.RetryCount++
	}
	return t.saveStateLocked()
}

// CompleteDeliverable marks a deliverable completed with its output path.
func (t *Tracker) CompleteDeliverable(id, filePath string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	d, ok := t.state.Deliverables[id]
	if !ok {
		return nil
	}
	now := time.Now()
	d.Status = model.StatusCompleted
	d.FilePath = filePath
	d.CompletedAt = &now
	if err := t.saveStateLocked(); err != nil {
		return err
	}
	log.Printf("Completed deliverable: %s", id)
	return nil
}

// FailDeliverable marks a deliverable failed, increments its retry count
// and appends to the error log.
func (t *Tracker) FailDeliverable(id, errMsg string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	d, ok := t.state.Deliverables[id]
	if !ok {
		return nil
	}
	d.Status = model.StatusFailed
	d.Error = errMsg
	d.RetryCount++
	t.state.Errors = append(t.state.Errors, model.ErrorEntry{
		Deliverable: id,
		Error:       errMsg,
		Timestamp:   time.Now(),
	})
	if err := t.saveStateLocked(); err != nil {
		return err
	}
	log.Printf("Deliverable %s failed: %s", id, errMsg)
	return nil
}

// PendingDeliverables returns deliverables still owed: pending ones plus
// failed ones, which stay eligible for retry.
func (t *Tracker) PendingDeliverables() []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	var ids []string
	for id, d := range t.state.Deliverables {
		if d.Status == model.StatusPending || d.Status == model.StatusFailed {
			ids = append(ids, id)
		}
	}
	return ids
}

// CompletedDeliverables returns all completed deliverable IDs.
func (t *Tracker) CompletedDeliverables() []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	var ids []string
	for id, d := range t.state.Deliverables {
		if d.Status == model.StatusCompleted {
			ids = append(ids, id)
		}
	}
	return ids
}

// DependenciesMet reports whether every dependency of id is completed.
// The ALL_MARKDOWN token expands to all markdown-format catalog entries.
// Dependency IDs absent from the state map are treated as satisfied so
// catalog additions never wedge existing runs.
func (t *Tracker) DependenciesMet(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.dependenciesMetLocked(id)
}

func (t *Tracker) dependenciesMetLocked(id string) bool {
	info, ok := registry.Get(id)
	if !ok {
		return true
	}

	for _, dep := range info.Dependencies {
		if dep == registry.DepAllMarkdown {
			for _, mdID := range registry.MarkdownIDs() {
				d, ok := t.state.Deliverables[mdID]
				if !ok {
					continue
				}
				if d.Status != model.StatusCompleted {
					return false
				}
			}
			continue
		}
		d, ok := t.state.Deliverables[dep]
		if !ok {
			continue
		}
		if d.Status != model.StatusCompleted {
			return false
		}
	}
	return true
}

// ReadyDeliverables returns pending deliverables whose dependencies are
// met. Recomputed on every call; completions change the answer.
func (t *Tracker) ReadyDeliverables() []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	var ready []string
	for id, d := range t.state.Deliverables {
		if d.Status != model.StatusPending && d.Status != model.StatusFailed {
			continue
		}
		if t.dependenciesMetLocked(id) {
			ready = append(ready, id)
		}
	}
	return ready
}

// ============================================================
// Cost tracking
// ============================================================

// CostTypeResearch routes a cost into the research bucket; any other
// type lands in synthesis.
const CostTypeResearch = "research"

// AddCost accumulates spend in the bucket for costType and recomputes
// the total as the sum of both buckets.
func (t *Tracker) AddCost(amount float64, costType string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if costType == CostTypeResearch {
		t.state.ResearchCost += amount
	} else {
		t.state.SynthesisCost += amount
	}
	t.state.TotalCost = t.state.ResearchCost + t.state.SynthesisCost
	return t.saveStateLocked()
}

// ============================================================
// Reset
// ============================================================

// Reset recreates a fresh state for the same company. When keepResearch
// is set, the captured research output is carried over and the research
// phase marked completed, so synthesis and generation can be redone
// without re-paying for research.
func (t *Tracker) Reset(keepResearch bool) error {
	t.mu.Lock()
	research := t.state.ResearchOutput
	input := t.state.Input
	t.mu.Unlock()

	if err := t.createState(&input); err != nil {
		return err
	}

	if keepResearch && research != nil {
		if err := t.SaveResearchOutput(research); err != nil {
			return err
		}
		t.mu.Lock()
		t.state.Phases[model.PhaseResearch].Status = model.StatusCompleted
		err := t.saveStateLocked()
		t.mu.Unlock()
		if err != nil {
			return err
		}
	}

	log.Printf("Reset progress for %s", t.companyName)
	return nil
}

func copyState(s *model.PipelineState) model.PipelineState {
	out := *s

	out.Phases = make(map[string]*model.PhaseProgress, len(s.Phases))
	for name, p := range s.Phases {
		cp := *p
		out.Phases[name] = &cp
	}
	out.Deliverables = make(map[string]*model.DeliverableProgress, len(s.Deliverables))
	for id, d := range s.Deliverables {
		cd := *d
		out.Deliverables[id] = &cd
	}
	out.Errors = append([]model.ErrorEntry(nil), s.Errors...)
	if s.ResearchOutput != nil {
		ro := *s.ResearchOutput
		out.ResearchOutput = &ro
	}
	return out
}
