package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/vidforge/vidforge/internal/api/handler"
	"github.com/vidforge/vidforge/internal/api/router"
	"github.com/vidforge/vidforge/internal/archive"
	"github.com/vidforge/vidforge/internal/config"
	"github.com/vidforge/vidforge/internal/domain"
	"github.com/vidforge/vidforge/internal/pipeline"
	"github.com/vidforge/vidforge/internal/pipeline/render"
	"github.com/vidforge/vidforge/internal/pipeline/script"
	"github.com/vidforge/vidforge/internal/pipeline/speech"
	"github.com/vidforge/vidforge/internal/pipeline/stock"
	"github.com/vidforge/vidforge/internal/pipeline/upload"
	"github.com/vidforge/vidforge/internal/registry"
	"github.com/vidforge/vidforge/internal/worker"
	"github.com/vidforge/vidforge/shared/logger"
	"github.com/vidforge/vidforge/shared/postgresql"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables or flags")
	}

	// Parse command-line flags
	configPath := flag.String("config", "", "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(config.ResolvePath(*configPath))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// Initialize logger
	appLogger, err := initLogger(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	appLogger.Info("Starting video generation service",
		slog.String("app", cfg.App.Name),
		slog.String("version", cfg.App.Version),
		slog.String("environment", cfg.App.Environment),
	)

	workDir := cfg.Pipeline.WorkDir
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return fmt.Errorf("failed to create work directory: %w", err)
	}

	// Initialize job registry. Evicted jobs take their on-disk artifacts
	// with them.
	reg := registry.New(registry.Config{
		Logger:        appLogger,
		Retention:     cfg.Worker.Retention,
		SweepInterval: cfg.Worker.SweepInterval,
		OnEvict: func(job domain.Job) {
			if err := os.RemoveAll(filepath.Join(workDir, job.ID)); err != nil {
				appLogger.Warn("Failed to remove job artifacts",
					slog.String("job_id", job.ID),
					slog.Any("error", err),
				)
			}
		},
	})
	reg.Start()

	// Initialize PostgreSQL client and the job archive. Both are optional;
	// without DATABASE_URL terminal jobs live only in memory.
	var dbClient *postgresql.Client
	var jobArchive *archive.Archive
	if cfg.Database.URL != "" {
		dbClient, err = initPostgreSQL(&cfg.Database, appLogger)
		if err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}

		jobArchive = archive.New(dbClient)
		schemaCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err = jobArchive.EnsureSchema(schemaCtx)
		cancel()
		if err != nil {
			return fmt.Errorf("failed to prepare job archive: %w", err)
		}

		appLogger.Info("Database connection established")
	} else {
		appLogger.Info("DATABASE_URL not set, job archive disabled")
	}

	missingEnv := cfg.MissingProviderEnv()
	if len(missingEnv) > 0 {
		appLogger.Warn("Provider credentials missing, jobs will fail until they are set",
			slog.Any("missing", missingEnv),
		)
	}

	// Build the generation pipeline.
	scriptWriter := script.NewGenerator(script.Config{
		APIKey:  cfg.Providers.OpenAI.APIKey,
		BaseURL: cfg.Providers.OpenAI.BaseURL,
		Model:   cfg.Providers.OpenAI.Model,
	})
	speechClient := speech.NewClient(speech.Config{
		APIKey:            cfg.Providers.ElevenLabs.APIKey,
		BaseURL:           cfg.Providers.ElevenLabs.BaseURL,
		RequestsPerSecond: cfg.Providers.ElevenLabs.RequestsPerSecond,
	})
	footageClient := stock.NewClient(stock.Config{
		APIKey:            cfg.Providers.Pexels.APIKey,
		BaseURL:           cfg.Providers.Pexels.BaseURL,
		RequestsPerSecond: cfg.Providers.Pexels.RequestsPerSecond,
	})
	renderer := render.New(render.Config{
		Logger:      appLogger,
		FFmpegPath:  cfg.Pipeline.FFmpegPath,
		FFprobePath: cfg.Pipeline.FFprobePath,
		FPS:         cfg.Pipeline.FPS,
		FontFile:    cfg.Pipeline.FontFile,
	})

	uploader, err := initUploader(&cfg.Storage, appLogger)
	if err != nil {
		return fmt.Errorf("failed to initialize uploader: %w", err)
	}

	pipelineCfg := pipeline.Config{
		Logger:    appLogger,
		Script:    scriptWriter,
		Speech:    speechClient,
		Footage:   footageClient,
		Renderer:  renderer,
		WorkDir:   workDir,
		KeepLocal: cfg.Pipeline.KeepLocal,
	}
	if uploader != nil {
		pipelineCfg.Uploader = uploader
	}
	pipe := pipeline.New(pipelineCfg)

	// Create the worker pool
	poolCfg := &worker.Config{
		Logger:      appLogger,
		Registry:    reg,
		Runner:      pipe,
		Concurrency: cfg.Worker.Concurrency,
		QueueSize:   cfg.Worker.QueueSize,
		JobTimeout:  cfg.Worker.JobTimeout,
	}
	if jobArchive != nil {
		poolCfg.Archiver = jobArchive
	}
	pool := worker.New(poolCfg)
	pool.Start()

	// Initialize router
	r := initRouter(cfg.App.Environment, &handler.Dependencies{
		Logger:     appLogger,
		Registry:   reg,
		Pool:       pool,
		Archive:    jobArchive,
		DBClient:   dbClient,
		Version:    cfg.App.Version,
		Service:    cfg.App.Name,
		WorkDir:    workDir,
		MissingEnv: missingEnv,
	})

	// Create HTTP server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	appLogger.Info("Starting HTTP server",
		slog.String("address", addr),
		slog.Duration("read_timeout", cfg.Server.ReadTimeout),
		slog.Duration("write_timeout", cfg.Server.WriteTimeout),
	)

	// Start server in goroutine
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Error("Server failed to start",
				slog.Any("error", err),
			)
			os.Exit(1)
		}
	}()

	appLogger.Info("Video generation service is running",
		slog.String("address", addr),
		slog.Int("workers", cfg.Worker.Concurrency),
		slog.Int("queue_size", cfg.Worker.QueueSize),
	)

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")

	// Stop accepting requests first, then drain the pool.
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Error("Server forced to shutdown",
			slog.Any("error", err),
		)
	}

	// Give in-flight jobs time to finish or cancel.
	done := make(chan struct{})
	go func() {
		pool.Stop()
		close(done)
	}()

	select {
	case <-done:
		appLogger.Info("Worker pool stopped gracefully")
	case <-time.After(30 * time.Second):
		appLogger.Warn("Worker shutdown timeout exceeded, forcing exit")
	}

	reg.Stop()
	if dbClient != nil {
		dbClient.Close()
	}

	appLogger.Info("Server shutdown complete")
	return nil
}

// initLogger initializes and configures the application logger
func initLogger(cfg *config.LoggingConfig) (*logger.Logger, error) {
	loggerCfg := &logger.Config{
		Level:        cfg.Level,
		Format:       cfg.Format,
		Output:       cfg.Output,
		EnableSource: cfg.EnableSource,
		TimeFormat:   cfg.TimeFormat,
	}

	return logger.New(loggerCfg)
}

// initPostgreSQL initializes the PostgreSQL database client
func initPostgreSQL(cfg *config.DatabaseConfig, log *logger.Logger) (*postgresql.Client, error) {
	dbConfig := &postgresql.Config{
		URL:             cfg.URL,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.ConnMaxIdleTime,
	}

	return postgresql.NewClient(dbConfig, log)
}

// initUploader builds the object store uploader when credentials are
// configured. A nil uploader keeps rendered videos on local disk.
func initUploader(cfg *config.StorageConfig, log *logger.Logger) (*upload.Uploader, error) {
	if cfg.AccessKey == "" || cfg.SecretKey == "" {
		log.Info("Object storage credentials not set, serving videos from local disk")
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	uploader, err := upload.New(ctx, upload.Config{
		Bucket:    cfg.Bucket,
		AccessKey: cfg.AccessKey,
		SecretKey: cfg.SecretKey,
		Region:    cfg.Region,
		Endpoint:  cfg.Endpoint,
	})
	if err != nil {
		return nil, err
	}

	log.Info("Object storage configured",
		slog.String("bucket", cfg.Bucket),
	)
	return uploader, nil
}

// initRouter initializes the Gin router with all routes and middleware
func initRouter(environment string, deps *handler.Dependencies) *gin.Engine {
	// Set Gin mode based on environment
	if environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	// Setup router
	return router.SetupRouter(deps)
}
