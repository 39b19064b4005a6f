package models

// ProgressUpdate is broadcast over the websocket hub as jobs move a
// request through the pipeline.
type ProgressUpdate struct {
	JobID     string  `json:"job_id"`
	RequestID int64   `json:"request_id,omitempty"`
	Message   string  `json:"message"`
	Status    string  `json:"status,omitempty"`
	Progress  float64 `json:"progress"`
	Done      bool    `json:"done"`
}
