package model

import (
	"sync/atomic"
	"time"
)

// ProgressUpdate is one message pushed onto a job's progress channel and
// streamed to subscribers. Complete set with Error empty means success;
// Complete with Error set terminates the stream with failure details.
type ProgressUpdate struct {
	Phase    string `json:"phase,omitempty"`
	Message  string `json:"message,omitempty"`
	Status   string `json:"status,omitempty"`
	Progress int    `json:"progress"`
	Detail   string `json:"detail,omitempty"`

	Complete    bool   `json:"complete,omitempty"`
	CompanySlug string `json:"company_slug,omitempty"`

	Error         string `json:"error,omitempty"`
	ErrorTitle    string `json:"error_title,omitempty"`
	ErrorMessage  string `json:"error_message,omitempty"`
	ErrorSolution string `json:"error_solution,omitempty"`
	ErrorDetail   string `json:"error_technical,omitempty"`
	ErrorPhase    string `json:"error_phase,omitempty"`
	Cancelled     bool   `json:"cancelled,omitempty"`

	Keepalive bool `json:"keepalive,omitempty"`
}

// Job is the in-memory handle to one in-flight pipeline run. It is never
// persisted; a process restart loses all jobs while their PipelineState
// remains resumable on disk.
type Job struct {
	ID          string
	CompanyName string

	// CompanySlug is the stable slug of the company name. It never
	// changes and is the key for one-job-per-company conflict checks.
	CompanySlug string

	// DirName is the resolved run directory, set once the tracker
	// decides it. Differs from CompanySlug for timestamped versions.
	DirName string

	Context    string
	Mode       ResearchMode
	NewVersion bool
	Continue   bool
	StartedAt  time.Time

	// Progress is drained by the streaming endpoint. Buffered so the
	// worker never blocks on a slow or absent subscriber.
	Progress chan ProgressUpdate

	cancelled atomic.Bool
}

// NewJob creates a job handle with a buffered progress channel.
func NewJob(id, companyName, companySlug string) *Job {
	return &Job{
		ID:          id,
		CompanyName: companyName,
		CompanySlug: companySlug,
		StartedAt:   time.Now(),
		Progress:    make(chan ProgressUpdate, 256),
	}
}

// Cancel sets the cooperative cancellation flag. The runner polls it at
// phase boundaries only.
func (j *Job) Cancel() {
	j.cancelled.Store(true)
}

// IsCancelled reports whether cancellation was requested.
func (j *Job) IsCancelled() bool {
	return j.cancelled.Load()
}

// Publish pushes an update without blocking. Ordinary updates are dropped
// when the buffer is full rather than stalling the pipeline worker, but a
// terminal update evicts the oldest buffered entries until it fits, so a
// subscriber always observes the end of the stream.
func (j *Job) Publish(update ProgressUpdate) {
	if !update.Complete {
		select {
		case j.Progress <- update:
		default:
		}
		return
	}
	for {
		select {
		case j.Progress <- update:
			return
		default:
			select {
			case <-j.Progress:
			default:
			}
		}
	}
}
