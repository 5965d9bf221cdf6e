package api

import "time"

// timestampFormat is used for RFC3339 timestamps in API payloads.
const timestampFormat = "2006-01-02T15:04:05.000Z07:00"

// TaskStatus is the full read-only projection of one conversion task,
// returned by the per-task status endpoint.
type TaskStatus struct {
	ID           string   `json:"id"`
	URL          string   `json:"url"`
	Status       string   `json:"status"`
	Progress     int      `json:"progress"`
	CurrentStep  string   `json:"current_step"`
	Title        string   `json:"title,omitempty"`
	Script       string   `json:"script,omitempty"`
	AudioFile    string   `json:"audio_file,omitempty"`
	VideoFile    string   `json:"video_file,omitempty"`
	ErrorMessage string   `json:"error_message,omitempty"`
	CreatedAt    string   `json:"created_at,omitempty"`
	UpdatedAt    string   `json:"updated_at,omitempty"`
	Logs         []string `json:"logs"`
}

// TaskSummary is the compact listing form of a task.
type TaskSummary struct {
	ID           string `json:"id"`
	URL          string `json:"url"`
	Status       string `json:"status"`
	Progress     int    `json:"progress"`
	CurrentStep  string `json:"current_step,omitempty"`
	Title        string `json:"title,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
	CreatedAt    string `json:"created_at,omitempty"`
}

// ConvertRequest is the submission payload.
type ConvertRequest struct {
	URL string `json:"url"`
}

// ConvertResponse acknowledges an accepted submission.
type ConvertResponse struct {
	TaskID string `json:"task_id"`
}

// TaskListResponse wraps a collection of task summaries.
type TaskListResponse struct {
	Tasks []TaskSummary `json:"tasks"`
}

// StageHealth mirrors readiness reporting for pipeline stages.
type StageHealth struct {
	Name   string `json:"name"`
	Ready  bool   `json:"ready"`
	Detail string `json:"detail,omitempty"`
}

// WorkflowStatus summarizes orchestrator state.
type WorkflowStatus struct {
	Running     bool           `json:"running"`
	QueueStats  map[string]int `json:"queue_stats"`
	LastError   string         `json:"last_error,omitempty"`
	StageHealth []StageHealth  `json:"stage_health"`
}

// DependencyStatus captures availability of an external tool.
type DependencyStatus struct {
	Name      string `json:"name"`
	Command   string `json:"command"`
	Optional  bool   `json:"optional"`
	Available bool   `json:"available"`
	Detail    string `json:"detail,omitempty"`
}

// DaemonStatus aggregates daemon runtime information.
type DaemonStatus struct {
	Running      bool               `json:"running"`
	PID          int                `json:"pid"`
	QueueDBPath  string             `json:"queue_db_path"`
	LockFilePath string             `json:"lock_file_path"`
	Workflow     WorkflowStatus     `json:"workflow"`
	Dependencies []DependencyStatus `json:"dependencies"`
}

// ErrorResponse is the JSON error envelope returned by the daemon.
type ErrorResponse struct {
	Error string `json:"error"`
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timestampFormat)
}
