package queue

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a conversion task.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// InterruptedReason is the error message set on tasks failed because the
// daemon stopped while they were still processing.
const InterruptedReason = "Interrupted by daemon shutdown"

var allStatuses = []Status{
	StatusPending,
	StatusProcessing,
	StatusCompleted,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// Task represents a blog-to-podcast conversion persisted in SQLite.
type Task struct {
	ID           string
	URL          string
	Status       Status
	Progress     int
	CurrentStep  string
	Title        string
	ArticleText  string
	Script       string
	TimelineJSON string
	AudioFile    string
	VideoFile    string
	ErrorMessage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// LogEntry is one append-only progress line attached to a task.
type LogEntry struct {
	TaskID    string
	Message   string
	CreatedAt time.Time
}

// HealthSummary describes aggregated task counts per lifecycle state.
type HealthSummary struct {
	Total      int
	Pending    int
	Processing int
	Completed  int
	Failed     int
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsTerminal reports whether a status admits no further transitions.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}
