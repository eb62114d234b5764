package dto

type GenerateVideoRequest struct {
	Text  string `json:"text"`
	Voice string `json:"voice"`
}

type GenerateVideoResponse struct {
	JobID          string `json:"job_id"`
	Status         string `json:"status"`
	Message        string `json:"message"`
	CheckStatusURL string `json:"check_status_url"`
	DownloadURL    string `json:"download_url"`
	EstimatedTime  string `json:"estimated_time"`
}

type JobStatusResponse struct {
	JobID          string `json:"job_id"`
	Status         string `json:"status"`
	Progress       int    `json:"progress"`
	CurrentStep    string `json:"current_step"`
	CreatedAt      string `json:"created_at"`
	CompletedAt    string `json:"completed_at,omitempty"`
	ResultLocation string `json:"result_location,omitempty"`
	DownloadURL    string `json:"download_url,omitempty"`
	ErrorMessage   string `json:"error_message,omitempty"`
}

type JobSummary struct {
	JobID       string `json:"job_id"`
	Status      string `json:"status"`
	Progress    int    `json:"progress"`
	CurrentStep string `json:"current_step"`
	InputText   string `json:"input_text"`
	CreatedAt   string `json:"created_at"`
}

type ListJobsResponse struct {
	Jobs  []JobSummary `json:"jobs"`
	Total int          `json:"total"`
}

type ListArchivedJobsRequest struct {
	Status   string `form:"status"`
	PageSize int    `form:"page_size"`
	Cursor   string `form:"cursor"`
}

type ArchivedJobDTO struct {
	JobID        string `json:"job_id"`
	Status       string `json:"status"`
	InputText    string `json:"input_text"`
	Voice        string `json:"voice,omitempty"`
	ResultURL    string `json:"result_url,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
	CreatedAt    string `json:"created_at"`
	CompletedAt  string `json:"completed_at,omitempty"`
	ArchivedAt   string `json:"archived_at"`
}

type ListArchivedJobsResponse struct {
	Jobs       []ArchivedJobDTO `json:"jobs"`
	NextCursor string           `json:"next_cursor,omitempty"`
}

type CleanupResponse struct {
	Message string `json:"message"`
}
