package queue

import (
	"database/sql"
	"errors"
	"time"
)

const taskColumns = "id, url, status, progress, current_step, title, article_text, script, timeline_json, audio_file, video_file, error_message, created_at, updated_at"

func scanTask(scanner interface{ Scan(dest ...any) error }) (*Task, error) {
	var (
		id           string
		url          string
		statusStr    string
		progress     sql.NullInt64
		currentStep  sql.NullString
		title        sql.NullString
		articleText  sql.NullString
		script       sql.NullString
		timelineJSON sql.NullString
		audioFile    sql.NullString
		videoFile    sql.NullString
		errorMessage sql.NullString
		createdRaw   sql.NullString
		updatedRaw   sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&url,
		&statusStr,
		&progress,
		&currentStep,
		&title,
		&articleText,
		&script,
		&timelineJSON,
		&audioFile,
		&videoFile,
		&errorMessage,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	task := &Task{
		ID:           id,
		URL:          url,
		Status:       Status(statusStr),
		Progress:     int(progress.Int64),
		CurrentStep:  currentStep.String,
		Title:        title.String,
		ArticleText:  articleText.String,
		Script:       script.String,
		TimelineJSON: timelineJSON.String,
		AudioFile:    audioFile.String,
		VideoFile:    videoFile.String,
		ErrorMessage: errorMessage.String,
	}

	if created, err := parseTimeString(createdRaw.String); err == nil {
		task.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		task.UpdatedAt = updated
	}
	return task, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
