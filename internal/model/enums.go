package model

// Status tracks the lifecycle of a phase or deliverable.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Research modes
type ResearchMode string

const (
	ModeQuick         ResearchMode = "quick"
	ModeComprehensive ResearchMode = "comprehensive"
)

// ParseResearchMode maps a request string to a mode, defaulting to quick.
func ParseResearchMode(s string) ResearchMode {
	if s == string(ModeComprehensive) {
		return ModeComprehensive
	}
	return ModeQuick
}

// Deliverable output formats
type Format string

const (
	FormatMarkdown     Format = "markdown"
	FormatPresentation Format = "pptx"
	FormatDocument     Format = "docx"
)

// Binary reports whether the format is produced by the generation phase.
func (f Format) Binary() bool {
	return f == FormatPresentation || f == FormatDocument
}

// Pipeline phases
const (
	PhaseResearch   = "research"
	PhaseSynthesis  = "synthesis"
	PhaseGeneration = "generation"
)

// PhaseOrder lists the phases in execution order.
var PhaseOrder = []string{PhaseResearch, PhaseSynthesis, PhaseGeneration}

// Outcome classifies how a pipeline run terminated.
type Outcome string

const (
	OutcomeSuccess   Outcome = "success"
	OutcomeCancelled Outcome = "cancelled"
	OutcomeFailed    Outcome = "failed"
)
