// Package jobs tracks in-flight pipeline runs. The registry is the only
// coordination point between HTTP handlers and pipeline workers; it is
// never persisted, so a process restart loses job handles while their
// on-disk state stays resumable.
package jobs

import (
	"errors"
	"sync"

	"github.com/strategyfactory/api/internal/model"
)

// ErrJobNotFound is returned for lookups of unknown job IDs.
var ErrJobNotFound = errors.New("job not found")

// ErrCompanyBusy is returned when a second job is started for a company
// slug that already has an active one.
var ErrCompanyBusy = errors.New("analysis already running for company")

// Registry is a mutex-guarded map of active jobs keyed by job ID. At
// most one active job per company slug is allowed; this substitutes for
// file locking on the run directory.
type Registry struct {
	mu   sync.RWMutex
	jobs map[string]*model.Job
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{jobs: make(map[string]*model.Job)}
}

// Register adds a job after checking no other job is active for the same
// company slug. Returns ErrCompanyBusy together with the conflicting job.
func (r *Registry) Register(job *model.Job) (*model.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.jobs {
		if existing.CompanySlug == job.CompanySlug {
			return existing, ErrCompanyBusy
		}
	}
	r.jobs[job.ID] = job
	return job, nil
}

// Get looks up a job by ID.
func (r *Registry) Get(jobID string) (*model.Job, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	job, ok := r.jobs[jobID]
	return job, ok
}

// FindBySlug returns the active job addressed by name: either its stable
// company slug or its resolved run directory.
func (r *Registry) FindBySlug(name string) (*model.Job, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, job := range r.jobs {
		if job.CompanySlug == name || job.DirName == name {
			return job, true
		}
	}
	return nil, false
}

// UpdateDirName records the run directory the tracker resolved for a job.
// The company slug itself never changes, so conflict detection is not
// affected.
func (r *Registry) UpdateDirName(jobID, dirName string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if job, ok := r.jobs[jobID]; ok {
		job.DirName = dirName
	}
}

// Cancel sets the job's cooperative cancellation flag, delivers the
// terminal cancelled message and removes the job immediately.
func (r *Registry) Cancel(jobID string) (*model.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[jobID]
	if !ok {
		return nil, ErrJobNotFound
	}

	job.Cancel()
	job.Publish(model.ProgressUpdate{
		Message:   "Analysis cancelled by user",
		Cancelled: true,
		Complete:  true,
	})
	delete(r.jobs, jobID)
	return job, nil
}

// Remove deletes a job that reached a terminal state.
func (r *Registry) Remove(jobID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.jobs, jobID)
}

// Len reports the number of active jobs.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.jobs)
}
