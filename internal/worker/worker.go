package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/vidforge/vidforge/internal/domain"
	"github.com/vidforge/vidforge/internal/pipeline"
	"github.com/vidforge/vidforge/internal/registry"
	"github.com/vidforge/vidforge/shared/logger"
)

// Runner produces a finished video for a job, reporting progress through obs.
type Runner interface {
	Run(ctx context.Context, job domain.Job, obs pipeline.Observer) (pipeline.Result, error)
}

// Archiver persists terminal job snapshots for later inspection.
type Archiver interface {
	Record(ctx context.Context, job domain.Job) error
}

// Config holds worker pool configuration
type Config struct {
	Logger      *logger.Logger
	Registry    *registry.Registry
	Runner      Runner
	Archiver    Archiver
	Concurrency int
	QueueSize   int
	JobTimeout  time.Duration
}

// Pool runs video generation jobs on a fixed set of goroutines. Jobs wait
// in a bounded channel; Enqueue returns domain.ErrQueueFull when it is full
// so the API can shed load instead of piling up work.
type Pool struct {
	logger      *logger.Logger
	registry    *registry.Registry
	runner      Runner
	archiver    Archiver
	concurrency int
	jobTimeout  time.Duration
	jobsChan    chan string
	stopChan    chan struct{}
	wg          sync.WaitGroup
}

// New creates a new worker pool
func New(cfg *Config) *Pool {
	return &Pool{
		logger:      cfg.Logger,
		registry:    cfg.Registry,
		runner:      cfg.Runner,
		archiver:    cfg.Archiver,
		concurrency: cfg.Concurrency,
		jobTimeout:  cfg.JobTimeout,
		jobsChan:    make(chan string, cfg.QueueSize),
		stopChan:    make(chan struct{}),
	}
}

// Enqueue hands a job id to the pool without blocking.
func (p *Pool) Enqueue(jobID string) error {
	select {
	case p.jobsChan <- jobID:
		return nil
	default:
		return domain.ErrQueueFull
	}
}

// Start spawns the worker goroutines.
func (p *Pool) Start() {
	p.logger.Info("Starting worker pool",
		slog.Int("concurrency", p.concurrency),
		slog.Int("queue_size", cap(p.jobsChan)),
		slog.Duration("job_timeout", p.jobTimeout),
	)
	p.spawnWorkerPool()
}

// Stop stops accepting new work and waits for in-flight jobs to finish.
func (p *Pool) Stop() {
	p.logger.Info("Stopping worker pool...")
	close(p.stopChan)
	p.wg.Wait()
	p.logger.Info("Worker pool stopped")
}
