package service

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/strategyfactory/api/internal/jobs"
	"github.com/strategyfactory/api/internal/model"
	"github.com/strategyfactory/api/internal/pipeline"
	"github.com/strategyfactory/api/internal/tracker"
	"github.com/strategyfactory/api/pkg/slug"
)

// ErrAnalysisNotFound is returned when no run directory exists for a slug.
var ErrAnalysisNotFound = errors.New("analysis not found")

// ErrAnalysisRunning is returned when deleting a run that has an active job.
var ErrAnalysisRunning = errors.New("analysis is currently running")

// ErrInvalidCompanyName is returned when a company name contains no
// characters usable in a directory identifier.
var ErrInvalidCompanyName = errors.New("company name yields an empty identifier")

// ProgressStreamer forwards a job's progress updates to subscribers.
type ProgressStreamer interface {
	StreamJob(job *model.Job)
}

// AnalysisService coordinates pipeline runs: starting, continuing,
// cancelling and reporting on them.
type AnalysisService struct {
	registry   *jobs.Registry
	runner     *pipeline.Runner
	streamer   ProgressStreamer
	outputBase string
}

// NewAnalysisService wires the service. streamer may be nil, in which
// case progress stays on the job channel for direct consumption.
func NewAnalysisService(registry *jobs.Registry, runner *pipeline.Runner, streamer ProgressStreamer, outputBase string) *AnalysisService {
	return &AnalysisService{
		registry:   registry,
		runner:     runner,
		streamer:   streamer,
		outputBase: outputBase,
	}
}

// Start launches a fresh analysis on a background worker. Every start
// creates a new timestamped version directory, so prior runs for the
// same company are never clobbered.
func (s *AnalysisService) Start(req *model.AnalysisStartRequest) (*model.AnalysisStartResponse, error) {
	companySlug := slug.Make(req.Company)
	if companySlug == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidCompanyName, req.Company)
	}

	jobID := uuid.New().String()[:8]
	job := model.NewJob(jobID, req.Company, companySlug)
	job.Context = req.Context
	job.Mode = model.ParseResearchMode(req.Mode)
	job.NewVersion = true

	if existing, err := s.registry.Register(job); err != nil {
		return nil, fmt.Errorf("%w (job %s)", err, existing.ID)
	}

	if s.streamer != nil {
		s.streamer.StreamJob(job)
	}
	go s.runner.Run(job)
	log.Printf("Started analysis job %s for %s", jobID, req.Company)

	return &model.AnalysisStartResponse{
		JobID:       jobID,
		CompanyName: req.Company,
		CompanySlug: companySlug,
		StartedAt:   job.StartedAt,
	}, nil
}

// Continue resumes an existing run identified by its directory name.
// Completed phases and deliverables are skipped by the runner.
func (s *AnalysisService) Continue(dirName string) (*model.AnalysisStartResponse, error) {
	t, err := tracker.Open(dirName, s.outputBase)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrAnalysisNotFound, dirName)
	}

	if existing, ok := s.registry.FindBySlug(dirName); ok {
		return nil, fmt.Errorf("%w (job %s)", jobs.ErrCompanyBusy, existing.ID)
	}

	input := t.Input()
	state := t.State()
	jobID := uuid.New().String()[:8]
	job := model.NewJob(jobID, t.CompanyName(), state.CompanySlug)
	job.DirName = dirName
	job.Context = input.Context
	job.Mode = input.Mode
	job.Continue = true

	if existing, err := s.registry.Register(job); err != nil {
		return nil, fmt.Errorf("%w (job %s)", err, existing.ID)
	}

	if s.streamer != nil {
		s.streamer.StreamJob(job)
	}
	go s.runner.Run(job)
	log.Printf("Continuing analysis job %s for %s", jobID, dirName)

	return &model.AnalysisStartResponse{
		JobID:       jobID,
		CompanyName: t.CompanyName(),
		CompanySlug: dirName,
		StartedAt:   job.StartedAt,
	}, nil
}

// Cancel requests cooperative cancellation of a running job.
func (s *AnalysisService) Cancel(jobID string) (*model.AnalysisCancelResponse, error) {
	job, err := s.registry.Cancel(jobID)
	if err != nil {
		return nil, err
	}

	return &model.AnalysisCancelResponse{
		Success:     true,
		JobID:       jobID,
		CompanyName: job.CompanyName,
		Message:     fmt.Sprintf("Analysis of %q cancelled.", job.CompanyName),
	}, nil
}

// Job looks up an active job handle.
func (s *AnalysisService) Job(jobID string) (*model.Job, bool) {
	return s.registry.Get(jobID)
}

// Summary reports progress for any run, active or not, straight from its
// persisted state.
func (s *AnalysisService) Summary(dirName string) (*model.ProgressSummary, error) {
	t, err := tracker.Open(dirName, s.outputBase)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrAnalysisNotFound, dirName)
	}
	summary := t.ProgressSummary()
	return &summary, nil
}

// List enumerates every run directory with a state snapshot.
func (s *AnalysisService) List() ([]model.AnalysisListEntry, error) {
	entries, err := os.ReadDir(s.outputBase)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var out []model.AnalysisListEntry
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		t, err := tracker.Open(entry.Name(), s.outputBase)
		if err != nil {
			continue
		}
		state := t.State()
		summary := t.ProgressSummary()
		_, running := s.registry.FindBySlug(entry.Name())

		out = append(out, model.AnalysisListEntry{
			CompanyName:     state.CompanyName,
			CompanySlug:     entry.Name(),
			CreatedAt:       state.CreatedAt,
			CurrentPhase:    state.CurrentPhase,
			ProgressPercent: summary.Deliverables.ProgressPercent,
			TotalCost:       state.TotalCost,
			Running:         running,
		})
	}
	return out, nil
}

// Delete removes a run directory and everything in it. Refused while a
// job is active for the slug.
func (s *AnalysisService) Delete(dirName string) error {
	if _, running := s.registry.FindBySlug(dirName); running {
		return ErrAnalysisRunning
	}

	dir := filepath.Join(s.outputBase, dirName)
	if _, err := os.Stat(filepath.Join(dir, "state.json")); err != nil {
		return fmt.Errorf("%w: %s", ErrAnalysisNotFound, dirName)
	}
	return os.RemoveAll(dir)
}
