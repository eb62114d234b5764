package worker

import (
	"log/slog"
)

// spawnWorkerPool spawns N worker goroutines based on concurrency configuration
func (p *Pool) spawnWorkerPool() {
	for i := 0; i < p.concurrency; i++ {
		p.wg.Add(1)
		go p.workerLoop(i)
	}

	p.logger.Info("Worker pool spawned",
		slog.Int("worker_count", p.concurrency),
	)
}

// workerLoop is the main processing loop for each worker goroutine
func (p *Pool) workerLoop(workerNum int) {
	defer p.wg.Done()

	p.logger.Debug("Worker goroutine started",
		slog.Int("worker_num", workerNum),
	)

	for {
		select {
		case <-p.stopChan:
			p.logger.Debug("Worker goroutine stopping",
				slog.Int("worker_num", workerNum),
			)
			return

		case jobID := <-p.jobsChan:
			p.logger.Info("Worker received job",
				slog.Int("worker_num", workerNum),
				slog.String("job_id", jobID),
			)
			p.processJob(jobID)
		}
	}
}
