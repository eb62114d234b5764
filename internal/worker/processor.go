package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/vidforge/vidforge/internal/registry"
)

const archiveTimeout = 5 * time.Second

// jobObserver forwards pipeline updates into the registry.
type jobObserver struct {
	registry *registry.Registry
	jobID    string
}

func (o jobObserver) Progress(progress int, step string) {
	o.registry.SetProgress(o.jobID, progress, step)
}

func (o jobObserver) Script(script string) {
	o.registry.SetScript(o.jobID, script)
}

// processJob runs the full pipeline for one job and records the outcome.
// It never lets an error or panic escape into the worker loop.
func (p *Pool) processJob(jobID string) {
	jobCtx, cancel := context.WithTimeout(context.Background(), p.jobTimeout)
	defer cancel()

	// Bind the cancel func so a cleanup request can abort the pipeline.
	if !p.registry.BindCancel(jobID, cancel) {
		p.logger.Warn("Job gone before processing, skipping",
			slog.String("job_id", jobID),
		)
		return
	}

	job, ok := p.registry.MarkProcessing(jobID)
	if !ok {
		p.logger.Warn("Job not processable, skipping",
			slog.String("job_id", jobID),
		)
		return
	}

	defer func() {
		if rec := recover(); rec != nil {
			p.logger.Error("Job panicked",
				slog.String("job_id", jobID),
				slog.Any("panic", rec),
			)
			p.registry.Fail(jobID, fmt.Sprintf("internal error: %v", rec))
			p.archive(jobID)
		}
	}()

	result, err := p.runner.Run(jobCtx, job, jobObserver{registry: p.registry, jobID: jobID})
	if err != nil {
		if errors.Is(err, context.Canceled) {
			// Cleanup removed the job mid-run; nothing left to record.
			p.logger.Info("Job canceled",
				slog.String("job_id", jobID),
			)
			return
		}

		message := err.Error()
		if errors.Is(err, context.DeadlineExceeded) {
			message = fmt.Sprintf("video generation timed out after %s", p.jobTimeout)
		}

		p.logger.Error("Job processing failed",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()),
		)
		p.registry.Fail(jobID, message)
		p.archive(jobID)
		return
	}

	p.registry.Complete(jobID, result.LocalPath, result.URL)
	p.logger.Info("Job completed successfully",
		slog.String("job_id", jobID),
		slog.String("local_path", result.LocalPath),
		slog.String("url", result.URL),
	)
	p.archive(jobID)
}

// archive records the terminal snapshot when an archiver is configured.
func (p *Pool) archive(jobID string) {
	if p.archiver == nil {
		return
	}

	job, err := p.registry.Get(jobID)
	if err != nil || !job.Terminal() {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), archiveTimeout)
	defer cancel()

	if err := p.archiver.Record(ctx, job); err != nil {
		p.logger.Warn("Failed to archive job",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()),
		)
	}
}
