package model

import "time"

// CompanyInput describes what to analyze. Created once per run and never
// mutated afterwards.
type CompanyInput struct {
	Name    string       `json:"name"`
	Context string       `json:"context,omitempty"`
	Mode    ResearchMode `json:"mode"`
}

// DeliverableProgress tracks one deliverable through the pipeline.
type DeliverableProgress struct {
	Status      Status     `json:"status"`
	FilePath    string     `json:"filePath,omitempty"`
	Error       string     `json:"error,omitempty"`
	RetryCount  int        `json:"retryCount"`
	StartedAt   *time.Time `json:"startedAt,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// PhaseProgress tracks one pipeline phase.
type PhaseProgress struct {
	Name        string     `json:"name"`
	Status      Status     `json:"status"`
	StartedAt   *time.Time `json:"startedAt,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	Summary     string     `json:"summary,omitempty"`
}

// ErrorEntry is one record in the ordered error log. Exactly one of Phase
// or Deliverable names the failing unit.
type ErrorEntry struct {
	Phase       string    `json:"phase,omitempty"`
	Deliverable string    `json:"deliverable,omitempty"`
	Error       string    `json:"error"`
	Timestamp   time.Time `json:"timestamp"`
}

// ResearchOutput is the externally produced research result. The core
// treats its Sections as opaque; the envelope fields matter for caching
// and cost restoration.
type ResearchOutput struct {
	CompanyName       string            `json:"company_name"`
	ResearchTimestamp string            `json:"research_timestamp"`
	ResearchMode      ResearchMode      `json:"research_mode"`
	Sections          map[string]string `json:"sections,omitempty"`
	QueryCount        int               `json:"query_count,omitempty"`
	TotalCost         float64           `json:"total_cost"`

	// LegacyTimestamp carries the pre-rename field from old cache files.
	LegacyTimestamp string `json:"timestamp,omitempty"`
}

// SynthesisOutput holds the markdown bodies produced by the synthesis
// collaborator, keyed by deliverable ID.
type SynthesisOutput struct {
	CompanyName  string            `json:"company_name"`
	Deliverables map[string]string `json:"deliverables"`
	TotalCost    float64           `json:"total_cost"`
}

// SynthesisError reports one deliverable the collaborator failed on.
type SynthesisError struct {
	Deliverable string `json:"deliverable"`
	Error       string `json:"error"`
}

// GeneratedFile is one artifact produced by the generation collaborator,
// identified by its declared registry name.
type GeneratedFile struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

// GenerationResult aggregates the generation collaborator's output.
type GenerationResult struct {
	Deliverables []GeneratedFile `json:"deliverables"`
}

// PipelineState is the aggregate root persisted as state.json, one per
// company run directory.
type PipelineState struct {
	CompanyName string       `json:"company_name"`
	CompanySlug string       `json:"company_slug"`
	OutputDir   string       `json:"output_dir"`
	Input       CompanyInput `json:"input_data"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`

	CurrentPhase string                          `json:"current_phase,omitempty"`
	Phases       map[string]*PhaseProgress       `json:"phases"`
	Deliverables map[string]*DeliverableProgress `json:"deliverables"`
	Errors       []ErrorEntry                    `json:"errors"`

	ResearchOutput    *ResearchOutput `json:"research_output,omitempty"`
	ResearchCachePath string          `json:"research_cache_path,omitempty"`

	ResearchCost  float64 `json:"total_research_cost"`
	SynthesisCost float64 `json:"total_synthesis_cost"`
	TotalCost     float64 `json:"total_cost"`
}
