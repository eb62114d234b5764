package domain

import "errors"

var (
	// ErrJobNotFound is returned when a job id has no record in the registry
	ErrJobNotFound = errors.New("job not found")

	// ErrJobNotReady is returned when a result is requested before the job completes
	ErrJobNotReady = errors.New("video not ready yet")

	// ErrInvalidInput is returned when a submission is missing the text field
	ErrInvalidInput = errors.New("missing required field: text")

	// ErrQueueFull is returned when the worker pool cannot accept more jobs
	ErrQueueFull = errors.New("job queue is full")
)

// PipelineError tags a failure with the pipeline step that produced it
type PipelineError struct {
	Step string
	Err  error
}

func (e *PipelineError) Error() string {
	return e.Step + ": " + e.Err.Error()
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

// NewPipelineError wraps err with the name of the step that failed
func NewPipelineError(step string, err error) error {
	return &PipelineError{Step: step, Err: err}
}
