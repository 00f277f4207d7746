package model

import "time"

// LoginRequest carries the operator credentials.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse returns the bearer token for subsequent requests.
type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// AnalysisStartRequest starts a fresh pipeline run.
type AnalysisStartRequest struct {
	Company string `json:"company" validate:"required,min=1,max=200"`
	Context string `json:"context" validate:"max=10000"`
	Mode    string `json:"mode" validate:"required,oneof=quick comprehensive"`
}

// AnalysisStartResponse acknowledges a started run.
type AnalysisStartResponse struct {
	JobID       string    `json:"jobId"`
	CompanyName string    `json:"companyName"`
	CompanySlug string    `json:"companySlug"`
	StartedAt   time.Time `json:"startedAt"`
}

// AnalysisCancelResponse acknowledges a cancellation.
type AnalysisCancelResponse struct {
	Success     bool   `json:"success"`
	JobID       string `json:"jobId"`
	CompanyName string `json:"companyName"`
	Message     string `json:"message"`
}

// PhaseSummary is the per-phase slice of a progress summary.
type PhaseSummary struct {
	Status  Status `json:"status"`
	Summary string `json:"summary,omitempty"`
}

// DeliverableCounts summarizes deliverable completion.
type DeliverableCounts struct {
	Total           int     `json:"total"`
	Completed       int     `json:"completed"`
	Pending         int     `json:"pending"`
	ProgressPercent float64 `json:"progress_percent"`
}

// CostSummary splits accumulated spend by phase family.
type CostSummary struct {
	Research  float64 `json:"research"`
	Synthesis float64 `json:"synthesis"`
	Total     float64 `json:"total"`
}

// ProgressSummary is the full status view for one company run, served for
// both running and idle slugs.
type ProgressSummary struct {
	CompanyName  string                  `json:"company_name"`
	CurrentPhase string                  `json:"current_phase,omitempty"`
	Phases       map[string]PhaseSummary `json:"phases"`
	Deliverables DeliverableCounts       `json:"deliverables"`
	Costs        CostSummary             `json:"costs"`
	Errors       []ErrorEntry            `json:"errors"`
}

// AnalysisListEntry is one row on the previous-analyses listing.
type AnalysisListEntry struct {
	CompanyName     string    `json:"companyName"`
	CompanySlug     string    `json:"companySlug"`
	CreatedAt       time.Time `json:"createdAt"`
	CurrentPhase    string    `json:"currentPhase,omitempty"`
	ProgressPercent float64   `json:"progressPercent"`
	TotalCost       float64   `json:"totalCost"`
	Running         bool      `json:"running"`
}
