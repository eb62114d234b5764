package router

import (
	"github.com/gin-gonic/gin"

	"github.com/vidforge/vidforge/internal/api/handler"
)

// SetupRouter configures and returns the Gin router with all routes
func SetupRouter(deps *handler.Dependencies) *gin.Engine {
	r := gin.New()

	// Middleware
	r.Use(gin.Recovery())
	r.Use(LoggerMiddleware(deps.Logger))
	r.Use(CORSMiddleware())

	videoHandler := handler.NewVideoHandler(deps)

	// Health check endpoint
	r.GET("/health", videoHandler.HealthCheck)

	// Flat paths so existing n8n workflows keep working
	r.POST("/generate-video", videoHandler.GenerateVideo)
	r.GET("/job-status/:job_id", videoHandler.GetJobStatus)
	r.GET("/download-video/:job_id", videoHandler.DownloadVideo)
	r.GET("/jobs", videoHandler.ListJobs)
	r.GET("/jobs/archived", videoHandler.ListArchivedJobs)
	r.DELETE("/cleanup/:job_id", videoHandler.CleanupJob)

	return r
}
