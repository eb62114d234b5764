package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// MinPort is the minimum valid port number
	MinPort = 1
	// MaxPort is the maximum valid port number
	MaxPort = 65535
)

// Config represents the complete application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Logging   LoggingConfig   `yaml:"logging"`
	App       AppConfig       `yaml:"app"`
	Worker    WorkerConfig    `yaml:"worker"`
	Pipeline  PipelineConfig  `yaml:"pipeline"`
	Providers ProvidersConfig `yaml:"providers"`
	Storage   StorageConfig   `yaml:"storage"`
	Database  DatabaseConfig  `yaml:"database"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level        string `yaml:"level"`
	Format       string `yaml:"format"`
	Output       string `yaml:"output"`
	EnableSource bool   `yaml:"enable_source"`
	TimeFormat   string `yaml:"time_format"`
}

// AppConfig holds application metadata
type AppConfig struct {
	Name        string `yaml:"name"`
	Version     string `yaml:"version"`
	Environment string `yaml:"environment"`
}

// WorkerConfig holds worker pool and registry eviction configuration
type WorkerConfig struct {
	Concurrency   int           `yaml:"concurrency"`
	QueueSize     int           `yaml:"queue_size"`
	JobTimeout    time.Duration `yaml:"job_timeout"`
	Retention     time.Duration `yaml:"retention"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

// PipelineConfig holds video generation settings
type PipelineConfig struct {
	WorkDir     string `yaml:"work_dir"`
	FPS         int    `yaml:"fps"`
	FontFile    string `yaml:"font_file"`
	KeepLocal   bool   `yaml:"keep_local"`
	FFmpegPath  string `yaml:"ffmpeg_path"`
	FFprobePath string `yaml:"ffprobe_path"`
}

// ProvidersConfig holds external provider settings. API keys normally come
// from the environment; the YAML fields exist for local development.
type ProvidersConfig struct {
	OpenAI     OpenAIConfig     `yaml:"openai"`
	ElevenLabs ElevenLabsConfig `yaml:"elevenlabs"`
	Pexels     PexelsConfig     `yaml:"pexels"`
}

// OpenAIConfig holds script generation settings
type OpenAIConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
}

// ElevenLabsConfig holds speech synthesis settings
type ElevenLabsConfig struct {
	APIKey            string  `yaml:"api_key"`
	BaseURL           string  `yaml:"base_url"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
}

// PexelsConfig holds stock footage settings
type PexelsConfig struct {
	APIKey            string  `yaml:"api_key"`
	BaseURL           string  `yaml:"base_url"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
}

// StorageConfig holds S3-compatible upload settings. Uploads are disabled
// until a bucket and credentials are present.
type StorageConfig struct {
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
}

// DatabaseConfig holds PostgreSQL connection configuration. The archive is
// disabled until a connection URL is present.
type DatabaseConfig struct {
	URL             string        `yaml:"url"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time"`
}

// Default returns the built-in configuration. Every field can be overridden
// by a config file and then by the environment.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    2 * time.Minute,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
			Output: "stdout",
		},
		App: AppConfig{
			Name:        "vidforge",
			Version:     "1.0.0",
			Environment: "development",
		},
		Worker: WorkerConfig{
			Concurrency:   2,
			QueueSize:     16,
			JobTimeout:    10 * time.Minute,
			Retention:     time.Hour,
			SweepInterval: time.Minute,
		},
		Pipeline: PipelineConfig{
			WorkDir: "data/jobs",
			FPS:     25,
		},
		Providers: ProvidersConfig{
			OpenAI: OpenAIConfig{
				Model: "gpt-4o",
			},
			ElevenLabs: ElevenLabsConfig{
				RequestsPerSecond: 2,
			},
			Pexels: PexelsConfig{
				RequestsPerSecond: 2,
			},
		},
		Storage: StorageConfig{
			Bucket: "text-to-video-ai",
		},
		Database: DatabaseConfig{
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: 30 * time.Minute,
			ConnMaxIdleTime: 5 * time.Minute,
		},
	}
}

// Load builds the configuration from defaults, an optional YAML file and
// environment overrides, in that order. An empty path skips the file so the
// service still boots on a bare PaaS container.
func Load(configPath string) (*Config, error) {
	config := Default()

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	config.applyEnv()

	return config, nil
}

// ResolvePath picks the config file location: the explicit flag value first,
// then VIDFORGE_CONFIG_PATH, then configs/config.yaml when it exists.
func ResolvePath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}

	if env := os.Getenv("VIDFORGE_CONFIG_PATH"); env != "" {
		return env
	}

	if _, err := os.Stat("configs/config.yaml"); err == nil {
		return "configs/config.yaml"
	}

	return ""
}

func (c *Config) applyEnv() {
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Server.Port = p
		}
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}

	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		c.Providers.OpenAI.APIKey = v
	}
	if v := os.Getenv("OPENAI_BASE_URL"); v != "" {
		c.Providers.OpenAI.BaseURL = v
	}
	if v := os.Getenv("ELEVENLABS_API_KEY"); v != "" {
		c.Providers.ElevenLabs.APIKey = v
	}
	if v := os.Getenv("PEXELS_API_KEY"); v != "" {
		c.Providers.Pexels.APIKey = v
	}

	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.Database.URL = v
	}

	if v := os.Getenv("CLOUD_STORAGE_BUCKET"); v != "" {
		c.Storage.Bucket = v
	}

	// DigitalOcean Spaces credentials take precedence over plain AWS ones
	// when an endpoint is set, matching the original deployment layout.
	if endpoint := os.Getenv("SPACES_ENDPOINT"); endpoint != "" {
		c.Storage.Endpoint = endpoint
		if v := os.Getenv("SPACES_ACCESS_KEY_ID"); v != "" {
			c.Storage.AccessKey = v
		}
		if v := os.Getenv("SPACES_SECRET_ACCESS_KEY"); v != "" {
			c.Storage.SecretKey = v
		}
		if v := os.Getenv("SPACES_REGION"); v != "" {
			c.Storage.Region = v
		}
		return
	}

	if v := os.Getenv("AWS_ACCESS_KEY_ID"); v != "" {
		c.Storage.AccessKey = v
	}
	if v := os.Getenv("AWS_SECRET_ACCESS_KEY"); v != "" {
		c.Storage.SecretKey = v
	}
	if v := os.Getenv("AWS_REGION"); v != "" {
		c.Storage.Region = v
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port < MinPort || c.Server.Port > MaxPort {
		return fmt.Errorf("invalid server port: %d (must be between %d and %d)", c.Server.Port, MinPort, MaxPort)
	}

	if c.Worker.Concurrency <= 0 {
		return fmt.Errorf("worker concurrency must be greater than 0")
	}

	if c.Worker.QueueSize <= 0 {
		return fmt.Errorf("worker queue_size must be greater than 0")
	}

	if c.Worker.JobTimeout <= 0 {
		return fmt.Errorf("worker job_timeout must be greater than 0")
	}

	if c.Worker.Retention <= 0 {
		return fmt.Errorf("worker retention must be greater than 0")
	}

	if c.Worker.SweepInterval <= 0 {
		return fmt.Errorf("worker sweep_interval must be greater than 0")
	}

	if c.Pipeline.WorkDir == "" {
		return fmt.Errorf("pipeline work_dir is required")
	}

	if c.Pipeline.FPS <= 0 {
		return fmt.Errorf("pipeline fps must be greater than 0")
	}

	return nil
}

// MissingProviderEnv lists required provider credentials that are still
// unset after the environment merge. The health endpoint reports these
// instead of failing startup, so the service can boot before secrets land.
func (c *Config) MissingProviderEnv() []string {
	var missing []string

	if c.Providers.OpenAI.APIKey == "" {
		missing = append(missing, "OPENAI_API_KEY")
	}
	if c.Providers.ElevenLabs.APIKey == "" {
		missing = append(missing, "ELEVENLABS_API_KEY")
	}
	if c.Providers.Pexels.APIKey == "" {
		missing = append(missing, "PEXELS_API_KEY")
	}

	return missing
}
