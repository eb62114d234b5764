package handler

import (
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vidforge/vidforge/internal/api/dto"
	"github.com/vidforge/vidforge/internal/archive"
	"github.com/vidforge/vidforge/internal/domain"
)

// maxListedTextLen caps input_text in listing responses. Full text stays on
// the job record and in the archive.
const maxListedTextLen = 100

// GenerateVideo handles POST /generate-video
// Validates the topic text, registers a job and queues it for the worker pool
func (h *VideoHandler) GenerateVideo(c *gin.Context) {
	var req dto.GenerateVideoRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Text) == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Missing required field: text",
		})
		return
	}

	job := h.registry.Create(strings.TrimSpace(req.Text), req.Voice)

	if err := h.pool.Enqueue(job.ID); err != nil {
		h.registry.Remove(job.ID)
		h.logger.Warn("Job queue full, rejecting submission",
			slog.String("job_id", job.ID),
		)
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": err.Error(),
		})
		return
	}

	h.logger.Info("Video generation queued",
		slog.String("job_id", job.ID),
		slog.Int("text_length", len(job.InputText)),
		slog.String("voice", job.Voice),
	)

	c.JSON(http.StatusAccepted, dto.GenerateVideoResponse{
		JobID:          job.ID,
		Status:         string(job.Status),
		Message:        "Video generation started",
		CheckStatusURL: "/job-status/" + job.ID,
		DownloadURL:    "/download-video/" + job.ID,
		EstimatedTime:  "2-3 minutes",
	})
}

// GetJobStatus handles GET /job-status/:job_id
func (h *VideoHandler) GetJobStatus(c *gin.Context) {
	jobID := c.Param("job_id")

	job, err := h.registry.Get(jobID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Job not found",
		})
		return
	}

	resp := dto.JobStatusResponse{
		JobID:       job.ID,
		Status:      string(job.Status),
		Progress:    job.Progress,
		CurrentStep: job.CurrentStep,
		CreatedAt:   job.CreatedAt.Format(time.RFC3339),
	}

	switch job.Status {
	case domain.StatusCompleted:
		if job.CompletedAt != nil {
			resp.CompletedAt = job.CompletedAt.Format(time.RFC3339)
		}
		resp.ResultLocation = job.ResultLocation()
		resp.DownloadURL = "/download-video/" + job.ID
	case domain.StatusError:
		resp.ErrorMessage = job.Error
	}

	c.JSON(http.StatusOK, resp)
}

// DownloadVideo handles GET /download-video/:job_id
// Streams a local artifact as an attachment, or returns the public URL when
// the artifact was uploaded and the local copy discarded
func (h *VideoHandler) DownloadVideo(c *gin.Context) {
	jobID := c.Param("job_id")

	job, err := h.registry.Get(jobID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Job not found",
		})
		return
	}

	if job.Status != domain.StatusCompleted {
		c.JSON(http.StatusConflict, gin.H{
			"error":  "Video not ready yet",
			"status": string(job.Status),
		})
		return
	}

	if job.LocalPath != "" {
		if _, err := os.Stat(job.LocalPath); err != nil {
			h.logger.Error("Video artifact missing from disk",
				slog.String("job_id", job.ID),
				slog.String("path", job.LocalPath),
			)
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Video file not found",
			})
			return
		}
		c.FileAttachment(job.LocalPath, "video_"+job.ID+".mp4")
		return
	}

	if job.ResultURL != "" {
		c.JSON(http.StatusOK, gin.H{
			"video_url": job.ResultURL,
		})
		return
	}

	c.JSON(http.StatusNotFound, gin.H{
		"error": "Video file not found",
	})
}

// ListJobs handles GET /jobs
// Lists every job currently in the registry, newest first
func (h *VideoHandler) ListJobs(c *gin.Context) {
	jobs := h.registry.List()

	summaries := make([]dto.JobSummary, len(jobs))
	for i, job := range jobs {
		summaries[i] = dto.JobSummary{
			JobID:       job.ID,
			Status:      string(job.Status),
			Progress:    job.Progress,
			CurrentStep: job.CurrentStep,
			InputText:   truncateText(job.InputText, maxListedTextLen),
			CreatedAt:   job.CreatedAt.Format(time.RFC3339),
		}
	}

	c.JSON(http.StatusOK, dto.ListJobsResponse{
		Jobs:  summaries,
		Total: len(summaries),
	})
}

// CleanupJob handles DELETE /cleanup/:job_id
// Cancels the job if it is still running and removes its record and artifacts
func (h *VideoHandler) CleanupJob(c *gin.Context) {
	jobID := c.Param("job_id")

	job, err := h.registry.Remove(jobID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Job not found",
		})
		return
	}

	h.logger.Info("Job cleaned up",
		slog.String("job_id", job.ID),
		slog.String("status", string(job.Status)),
	)

	c.JSON(http.StatusOK, dto.CleanupResponse{
		Message: "Job cleaned up successfully",
	})
}

// ListArchivedJobs handles GET /jobs/archived
// Pages through terminal jobs persisted to Postgres
func (h *VideoHandler) ListArchivedJobs(c *gin.Context) {
	if h.archive == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "job archive is not configured",
		})
		return
	}

	var req dto.ListArchivedJobsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid query parameters",
		})
		return
	}

	if req.PageSize <= 0 {
		req.PageSize = 20
	}
	if req.PageSize > 100 {
		req.PageSize = 100
	}

	cursor, err := DecodeArchiveCursor(req.Cursor)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid cursor",
		})
		return
	}

	rows, err := h.archive.List(c.Request.Context(), archive.ListFilter{
		Status:   req.Status,
		PageSize: req.PageSize,
		Cursor:   cursor,
	})
	if err != nil {
		h.logger.Error("Failed to list archived jobs", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to list archived jobs",
		})
		return
	}

	hasMore := len(rows) > req.PageSize
	if hasMore {
		rows = rows[:req.PageSize]
	}

	jobs := make([]dto.ArchivedJobDTO, len(rows))
	for i, row := range rows {
		item := dto.ArchivedJobDTO{
			JobID:        row.JobID,
			Status:       row.Status,
			InputText:    truncateText(row.InputText, maxListedTextLen),
			Voice:        row.Voice,
			ResultURL:    row.ResultURL,
			ErrorMessage: row.Error,
			CreatedAt:    row.CreatedAt.Format(time.RFC3339),
			ArchivedAt:   row.ArchivedAt.Format(time.RFC3339),
		}
		if row.CompletedAt != nil {
			item.CompletedAt = row.CompletedAt.Format(time.RFC3339)
		}
		jobs[i] = item
	}

	var nextCursor string
	if hasMore {
		last := rows[len(rows)-1]
		nextCursor = EncodeArchiveCursor(&archive.Cursor{
			CreatedAt: last.CreatedAt,
			JobID:     last.JobID,
		})
	}

	c.JSON(http.StatusOK, dto.ListArchivedJobsResponse{
		Jobs:       jobs,
		NextCursor: nextCursor,
	})
}

func truncateText(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + "..."
}
