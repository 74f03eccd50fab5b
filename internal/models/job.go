package models

// WebSocket message types
type WSMessage struct {
	Type    string      `json:"type"` // "status_update" | "completed" | "error"
	Payload interface{} `json:"payload"`
}

type StatusUpdate struct {
	JobID      string `json:"job_id"`
	Step       int    `json:"step"`
	TotalSteps int    `json:"total_steps"`
	StepName   string `json:"step_name"`
}

type CompletedEvent struct {
	JobID       string `json:"job_id"`
	DownloadURL string `json:"download_url"`
	SlideCount  int    `json:"slide_count"`
}

type ErrorEvent struct {
	JobID        string `json:"job_id"`
	ErrorMessage string `json:"error_message"`
}
