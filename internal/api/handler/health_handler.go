package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shirou/gopsutil/v3/disk"

	"github.com/vidforge/vidforge/internal/api/dto"
)

// HealthCheck handles GET /health
// Reports degraded, with the reasons, when provider credentials are missing
// or the archive database stops answering
func (h *VideoHandler) HealthCheck(c *gin.Context) {
	jobs := h.registry.List()
	active := 0
	for _, job := range jobs {
		if !job.Terminal() {
			active++
		}
	}

	resp := dto.HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   h.version,
		Service:   h.service,
		Jobs: dto.HealthJobs{
			Active: active,
			Total:  len(jobs),
		},
	}

	// Disk stats are best-effort; a probe failure never degrades health.
	if usage, err := disk.Usage(h.workDir); err == nil {
		resp.Disk = &dto.HealthDisk{
			FreeMB:      usage.Free / 1024 / 1024,
			UsedPercent: usage.UsedPercent,
		}
	}

	if h.db != nil {
		if err := h.db.HealthCheck(c.Request.Context()); err != nil {
			resp.Database = "error"
			resp.Status = "degraded"
		} else {
			resp.Database = "ok"
		}
	}

	if len(h.missingEnv) > 0 {
		resp.MissingEnvVars = h.missingEnv
		resp.Status = "degraded"
	}

	code := http.StatusOK
	if resp.Status != "healthy" {
		code = http.StatusServiceUnavailable
	}

	c.JSON(code, resp)
}
