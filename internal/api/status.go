// Package api defines wire-format types and converters for the daemon's
// HTTP surface. It translates internal queue models into transport-friendly
// DTOs so clients never couple to internal types.
package api

import (
	"fmt"
	"net/url"
	"strings"

	"blogcast/internal/queue"
)

// StatusFromTask builds the full status projection for one task.
func StatusFromTask(task *queue.Task, logs []queue.LogEntry) TaskStatus {
	status := TaskStatus{
		ID:           task.ID,
		URL:          task.URL,
		Status:       string(task.Status),
		Progress:     task.Progress,
		CurrentStep:  task.CurrentStep,
		Title:        task.Title,
		Script:       task.Script,
		AudioFile:    task.AudioFile,
		VideoFile:    task.VideoFile,
		ErrorMessage: task.ErrorMessage,
		CreatedAt:    formatTimestamp(task.CreatedAt),
		UpdatedAt:    formatTimestamp(task.UpdatedAt),
		Logs:         make([]string, 0, len(logs)),
	}
	for _, entry := range logs {
		status.Logs = append(status.Logs, entry.Message)
	}
	return status
}

// SummaryFromTask builds the compact listing form of a task.
func SummaryFromTask(task *queue.Task) TaskSummary {
	return TaskSummary{
		ID:           task.ID,
		URL:          task.URL,
		Status:       string(task.Status),
		Progress:     task.Progress,
		CurrentStep:  task.CurrentStep,
		Title:        task.Title,
		ErrorMessage: task.ErrorMessage,
		CreatedAt:    formatTimestamp(task.CreatedAt),
	}
}

// SummariesFromTasks converts a task slice, preserving order.
func SummariesFromTasks(tasks []*queue.Task) []TaskSummary {
	summaries := make([]TaskSummary, 0, len(tasks))
	for _, task := range tasks {
		if task == nil {
			continue
		}
		summaries = append(summaries, SummaryFromTask(task))
	}
	return summaries
}

// ValidateSubmissionURL rejects submissions before a task is created. Only
// absolute http and https URLs are accepted.
func ValidateSubmissionURL(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", fmt.Errorf("url is required")
	}
	parsed, err := url.Parse(trimmed)
	if err != nil {
		return "", fmt.Errorf("invalid url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", fmt.Errorf("url scheme must be http or https")
	}
	if parsed.Host == "" {
		return "", fmt.Errorf("url host is required")
	}
	return trimmed, nil
}
