package dto

type ConvertResponse struct {
	TaskID  string `json:"task_id"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

type TaskResponse struct {
	ID             string  `json:"id"`
	Status         string  `json:"status"`
	Progress       int     `json:"progress"`
	ErrorMessage   string  `json:"error,omitempty"`
	DownloadURL    string  `json:"download_url,omitempty"`
	OutputFilename string  `json:"filename,omitempty"`
	CreatedAt      string  `json:"created_at"`
	CompletedAt    *string `json:"completed_at,omitempty"`
}

type StatusResponse struct {
	Status string `json:"status"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	TraceID string `json:"trace_id,omitempty"`
}
