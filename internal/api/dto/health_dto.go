package dto

type HealthResponse struct {
	Status         string      `json:"status"`
	Timestamp      string      `json:"timestamp"`
	Version        string      `json:"version"`
	Service        string      `json:"service"`
	MissingEnvVars []string    `json:"missing_env_vars,omitempty"`
	Jobs           HealthJobs  `json:"jobs"`
	Disk           *HealthDisk `json:"disk,omitempty"`
	Database       string      `json:"database,omitempty"`
}

type HealthJobs struct {
	Active int `json:"active"`
	Total  int `json:"total"`
}

type HealthDisk struct {
	FreeMB      uint64  `json:"free_mb"`
	UsedPercent float64 `json:"used_percent"`
}
