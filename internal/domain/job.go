package domain

import "time"

// Status is the lifecycle state of a video generation job.
type Status string

const (
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusError      Status = "error"
)

// Terminal reports whether the status is final. Terminal jobs never change again.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusError
}

// Job is a single video generation request tracked by the registry.
type Job struct {
	ID          string
	Status      Status
	InputText   string
	Voice       string
	Progress    int
	CurrentStep string
	Script      string
	CreatedAt   time.Time
	CompletedAt *time.Time

	// LocalPath is the rendered file on disk; empty once uploaded and removed.
	LocalPath string
	// ResultURL is the public object storage URL when an uploader is configured.
	ResultURL string
	// Error holds the failure message for jobs in StatusError.
	Error string
}

// Terminal reports whether the job reached a final state.
func (j Job) Terminal() bool {
	return j.Status.Terminal()
}

// ResultLocation returns where the finished video lives, preferring the
// uploaded URL over the local file.
func (j Job) ResultLocation() string {
	if j.ResultURL != "" {
		return j.ResultURL
	}
	return j.LocalPath
}
