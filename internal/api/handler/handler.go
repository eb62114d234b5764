package handler

import (
	"github.com/vidforge/vidforge/internal/archive"
	"github.com/vidforge/vidforge/internal/registry"
	"github.com/vidforge/vidforge/internal/worker"
	"github.com/vidforge/vidforge/shared/logger"
	"github.com/vidforge/vidforge/shared/postgresql"
)

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Logger   *logger.Logger
	Registry *registry.Registry
	Pool     *worker.Pool
	Archive  *archive.Archive   // nil when no database is configured
	DBClient *postgresql.Client // nil when no database is configured
	Version  string
	Service  string
	WorkDir  string
	// MissingEnv lists provider credentials absent from the environment.
	// A non-empty list degrades /health without blocking startup.
	MissingEnv []string
}

// VideoHandler handles video generation HTTP requests
type VideoHandler struct {
	logger     *logger.Logger
	registry   *registry.Registry
	pool       *worker.Pool
	archive    *archive.Archive
	db         *postgresql.Client
	version    string
	service    string
	workDir    string
	missingEnv []string
}

// NewVideoHandler creates a new VideoHandler instance
func NewVideoHandler(deps *Dependencies) *VideoHandler {
	version := deps.Version
	if version == "" {
		version = "1.0.0"
	}
	service := deps.Service
	if service == "" {
		service = "vidforge"
	}

	return &VideoHandler{
		logger:     deps.Logger,
		registry:   deps.Registry,
		pool:       deps.Pool,
		archive:    deps.Archive,
		db:         deps.DBClient,
		version:    version,
		service:    service,
		workDir:    deps.WorkDir,
		missingEnv: deps.MissingEnv,
	}
}
