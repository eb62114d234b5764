// Package registry keeps the in-memory record of every video generation job.
// All reads return copies, so callers never observe a record mid-update.
package registry

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vidforge/vidforge/internal/domain"
	"github.com/vidforge/vidforge/shared/logger"
)

const (
	// DefaultRetention is how long terminal jobs stay visible before eviction.
	DefaultRetention = time.Hour

	// DefaultSweepInterval is how often the janitor scans for expired jobs.
	DefaultSweepInterval = time.Minute

	initialStep   = "Starting video generation..."
	completedStep = "Video ready!"
)

// Config configures a Registry.
type Config struct {
	Logger *logger.Logger

	// Retention is how long completed and errored jobs are kept.
	// Zero means DefaultRetention.
	Retention time.Duration

	// SweepInterval is the janitor period. Zero means DefaultSweepInterval.
	SweepInterval time.Duration

	// OnEvict runs after a job is removed, either by Remove or by the
	// janitor. It receives the final snapshot so callers can delete
	// artifacts the job left on disk.
	OnEvict func(domain.Job)
}

type entry struct {
	job        domain.Job
	cancel     context.CancelFunc
	finishedAt time.Time
}

// Registry is the shared job store. It is safe for concurrent use.
type Registry struct {
	logger        *logger.Logger
	retention     time.Duration
	sweepInterval time.Duration
	onEvict       func(domain.Job)

	mu   sync.RWMutex
	jobs map[string]*entry

	stopChan chan struct{}
	wg       sync.WaitGroup
}

// New creates an empty registry. Call Start to run the eviction janitor.
func New(cfg Config) *Registry {
	retention := cfg.Retention
	if retention <= 0 {
		retention = DefaultRetention
	}
	sweepInterval := cfg.SweepInterval
	if sweepInterval <= 0 {
		sweepInterval = DefaultSweepInterval
	}
	log := cfg.Logger
	if log == nil {
		log = logger.NewDefault()
	}

	return &Registry{
		logger:        log,
		retention:     retention,
		sweepInterval: sweepInterval,
		onEvict:       cfg.OnEvict,
		jobs:          make(map[string]*entry),
		stopChan:      make(chan struct{}),
	}
}

// Create registers a new queued job and returns its snapshot.
func (r *Registry) Create(inputText, voice string) domain.Job {
	job := domain.Job{
		ID:          uuid.NewString(),
		Status:      domain.StatusQueued,
		InputText:   inputText,
		Voice:       voice,
		Progress:    0,
		CurrentStep: initialStep,
		CreatedAt:   time.Now().UTC(),
	}

	r.mu.Lock()
	r.jobs[job.ID] = &entry{job: job}
	r.mu.Unlock()

	return job
}

// Get returns a snapshot of the job or domain.ErrJobNotFound.
func (r *Registry) Get(id string) (domain.Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.jobs[id]
	if !ok {
		return domain.Job{}, domain.ErrJobNotFound
	}
	return e.job, nil
}

// List returns snapshots of all jobs, newest first.
func (r *Registry) List() []domain.Job {
	r.mu.RLock()
	jobs := make([]domain.Job, 0, len(r.jobs))
	for _, e := range r.jobs {
		jobs = append(jobs, e.job)
	}
	r.mu.RUnlock()

	sort.Slice(jobs, func(i, j int) bool {
		if jobs[i].CreatedAt.Equal(jobs[j].CreatedAt) {
			return jobs[i].ID < jobs[j].ID
		}
		return jobs[i].CreatedAt.After(jobs[j].CreatedAt)
	})
	return jobs
}

// Remove deletes the job and returns its last snapshot. A bound pipeline
// context is canceled first, so in-flight work stops instead of writing to
// a record that no longer exists. Returns domain.ErrJobNotFound when the
// id is unknown, which makes a repeated Remove fail cleanly.
func (r *Registry) Remove(id string) (domain.Job, error) {
	r.mu.Lock()
	e, ok := r.jobs[id]
	if !ok {
		r.mu.Unlock()
		return domain.Job{}, domain.ErrJobNotFound
	}
	if e.cancel != nil {
		e.cancel()
	}
	job := e.job
	delete(r.jobs, id)
	r.mu.Unlock()

	if r.onEvict != nil {
		r.onEvict(job)
	}
	return job, nil
}

// BindCancel attaches the pipeline cancel func to a live job so Remove can
// abort it. Returns false when the job is gone or already terminal, in
// which case the caller should cancel and skip processing.
func (r *Registry) BindCancel(id string, cancel context.CancelFunc) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.jobs[id]
	if !ok || e.job.Terminal() {
		return false
	}
	e.cancel = cancel
	return true
}

// MarkProcessing moves a queued job to processing and returns its snapshot.
// Returns false when the job is gone or terminal.
func (r *Registry) MarkProcessing(id string) (domain.Job, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.jobs[id]
	if !ok || e.job.Terminal() {
		return domain.Job{}, false
	}
	e.job.Status = domain.StatusProcessing
	e.job.Progress = 0
	return e.job, true
}

// SetProgress records a checkpoint. Writes to missing or terminal jobs are
// dropped, which keeps canceled pipelines from resurrecting their records.
func (r *Registry) SetProgress(id string, progress int, step string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.jobs[id]
	if !ok || e.job.Terminal() {
		return
	}
	e.job.Progress = progress
	e.job.CurrentStep = step
}

// SetScript stores the generated script on a live job.
func (r *Registry) SetScript(id, script string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.jobs[id]
	if !ok || e.job.Terminal() {
		return
	}
	e.job.Script = script
}

// Complete marks the job finished with its artifact locations.
func (r *Registry) Complete(id, localPath, resultURL string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.jobs[id]
	if !ok || e.job.Terminal() {
		return
	}
	now := time.Now().UTC()
	e.job.Status = domain.StatusCompleted
	e.job.Progress = 100
	e.job.CurrentStep = completedStep
	e.job.LocalPath = localPath
	e.job.ResultURL = resultURL
	e.job.CompletedAt = &now
	e.finishedAt = now
}

// Fail marks the job errored with the given message.
func (r *Registry) Fail(id, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.jobs[id]
	if !ok || e.job.Terminal() {
		return
	}
	e.job.Status = domain.StatusError
	e.job.Error = message
	e.job.CurrentStep = "Error: " + message
	e.finishedAt = time.Now().UTC()
}

// Start launches the eviction janitor.
func (r *Registry) Start() {
	r.wg.Add(1)
	go r.janitorLoop()
}

// Stop shuts the janitor down and waits for it to exit.
func (r *Registry) Stop() {
	close(r.stopChan)
	r.wg.Wait()
}

func (r *Registry) janitorLoop() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopChan:
			return
		case <-ticker.C:
			r.sweep(time.Now().UTC())
		}
	}
}

// sweep evicts terminal jobs older than the retention window.
func (r *Registry) sweep(now time.Time) {
	r.mu.Lock()
	var evicted []domain.Job
	for id, e := range r.jobs {
		if !e.job.Terminal() {
			continue
		}
		if now.Sub(e.finishedAt) < r.retention {
			continue
		}
		evicted = append(evicted, e.job)
		delete(r.jobs, id)
	}
	r.mu.Unlock()

	for _, job := range evicted {
		r.logger.Info("Evicted expired job",
			slog.String("job_id", job.ID),
			slog.String("status", string(job.Status)),
		)
		if r.onEvict != nil {
			r.onEvict(job)
		}
	}
}
