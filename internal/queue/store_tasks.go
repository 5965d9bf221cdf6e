package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Create inserts a new pending task for a blog URL and records its first
// log line.
func (s *Store) Create(ctx context.Context, url string) (*Task, error) {
	ctx = ensureContext(ctx)
	id := uuid.NewString()
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin create tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(
		ctx,
		`INSERT INTO tasks (id, url, status, progress, created_at, updated_at)
         VALUES (?, ?, ?, 0, ?, ?)`,
		id,
		url,
		StatusPending,
		timestamp,
		timestamp,
	); err != nil {
		return nil, fmt.Errorf("insert task: %w", err)
	}

	if _, err := tx.ExecContext(
		ctx,
		`INSERT INTO task_logs (task_id, message, created_at) VALUES (?, ?, ?)`,
		id,
		"Task created",
		timestamp,
	); err != nil {
		return nil, fmt.Errorf("insert task log: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit create: %w", err)
	}

	return s.GetByID(ctx, id)
}

// GetByID fetches a task by identifier. Returns nil when no task matches.
func (s *Store) GetByID(ctx context.Context, id string) (*Task, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)
	task, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	return task, nil
}

// List returns tasks filtered by status set (or all tasks when no status is
// provided), most recent first.
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Task, error) {
	ctx = ensureContext(ctx)
	var (
		rows *sql.Rows
		err  error
	)

	baseQuery := `SELECT ` + taskColumns + ` FROM tasks`
	orderClause := ` ORDER BY created_at DESC`

	if len(statuses) == 0 {
		rows, err = s.db.QueryContext(ctx, baseQuery+orderClause)
	} else {
		placeholders := makePlaceholders(len(statuses))
		args := make([]any, len(statuses))
		for i, status := range statuses {
			args[i] = status
		}
		query := baseQuery + ` WHERE status IN (` + placeholders + `)` + orderClause
		rows, err = s.db.QueryContext(ctx, query, args...)
	}
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

// Logs returns the append-only log lines for a task in insertion order.
func (s *Store) Logs(ctx context.Context, id string) ([]LogEntry, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT task_id, message, created_at FROM task_logs WHERE task_id = ? ORDER BY id`,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("query task logs: %w", err)
	}
	defer rows.Close()

	var entries []LogEntry
	for rows.Next() {
		var (
			entry      LogEntry
			createdRaw sql.NullString
		)
		if err := rows.Scan(&entry.TaskID, &entry.Message, &createdRaw); err != nil {
			return nil, err
		}
		if created, err := parseTimeString(createdRaw.String); err == nil {
			entry.CreatedAt = created
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// AppendLog records a log line for a task without touching any other field.
func (s *Store) AppendLog(ctx context.Context, id, message string) error {
	_, err := s.execWithRetry(
		ctx,
		`INSERT INTO task_logs (task_id, message, created_at) VALUES (?, ?, ?)`,
		id,
		message,
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("append task log: %w", err)
	}
	return nil
}

// SetProgress advances a task's progress, updates the current step label,
// and records a log line in one transaction. Progress never moves
// backwards: the stored value is the maximum of the current and the new
// value.
func (s *Store) SetProgress(ctx context.Context, id string, progress int, step, message string) error {
	ctx = ensureContext(ctx)
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)

	return retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin progress tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		if _, err := tx.ExecContext(
			ctx,
			`UPDATE tasks SET progress = MAX(progress, ?), current_step = ?, updated_at = ? WHERE id = ?`,
			progress,
			nullableString(step),
			timestamp,
			id,
		); err != nil {
			return fmt.Errorf("update progress: %w", err)
		}

		if message != "" {
			if _, err := tx.ExecContext(
				ctx,
				`INSERT INTO task_logs (task_id, message, created_at) VALUES (?, ?, ?)`,
				id,
				message,
				timestamp,
			); err != nil {
				return fmt.Errorf("insert progress log: %w", err)
			}
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit progress: %w", err)
		}
		return nil
	})
}

// SetTitle stores the extracted article title.
func (s *Store) SetTitle(ctx context.Context, id, title string) error {
	return s.setColumn(ctx, id, "title", title)
}

// SetArticleText stores the extracted article body.
func (s *Store) SetArticleText(ctx context.Context, id, text string) error {
	return s.setColumn(ctx, id, "article_text", text)
}

// SetScript stores the generated dialogue script.
func (s *Store) SetScript(ctx context.Context, id, script string) error {
	return s.setColumn(ctx, id, "script", script)
}

// SetTimeline stores the serialized caption timeline.
func (s *Store) SetTimeline(ctx context.Context, id, timelineJSON string) error {
	return s.setColumn(ctx, id, "timeline_json", timelineJSON)
}

// SetAudioFile stores the path of the stitched podcast audio.
func (s *Store) SetAudioFile(ctx context.Context, id, path string) error {
	return s.setColumn(ctx, id, "audio_file", path)
}

// SetVideoFile stores the path of the rendered podcast video.
func (s *Store) SetVideoFile(ctx context.Context, id, path string) error {
	return s.setColumn(ctx, id, "video_file", path)
}

// setColumn writes exactly one column so concurrent writers never clobber
// fields they do not own.
func (s *Store) setColumn(ctx context.Context, id, column, value string) error {
	query := `UPDATE tasks SET ` + column + ` = ?, updated_at = ? WHERE id = ?`
	_, err := s.execWithRetry(
		ctx,
		query,
		nullableString(value),
		time.Now().UTC().Format(time.RFC3339Nano),
		id,
	)
	if err != nil {
		return fmt.Errorf("update %s: %w", column, err)
	}
	return nil
}

// ClaimPending atomically moves a pending task to processing. Returns false
// when the task is missing or some other worker already claimed it.
func (s *Store) ClaimPending(ctx context.Context, id string) (bool, error) {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE tasks SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		StatusProcessing,
		time.Now().UTC().Format(time.RFC3339Nano),
		id,
		StatusPending,
	)
	if err != nil {
		return false, fmt.Errorf("claim task: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// MarkCompleted transitions a task to completed with full progress.
func (s *Store) MarkCompleted(ctx context.Context, id string) error {
	ctx = ensureContext(ctx)
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)

	return retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin complete tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		if _, err := tx.ExecContext(
			ctx,
			`UPDATE tasks SET status = ?, progress = 100, current_step = 'Completed', updated_at = ? WHERE id = ?`,
			StatusCompleted,
			timestamp,
			id,
		); err != nil {
			return fmt.Errorf("mark completed: %w", err)
		}

		if _, err := tx.ExecContext(
			ctx,
			`INSERT INTO task_logs (task_id, message, created_at) VALUES (?, ?, ?)`,
			id,
			"Conversion completed",
			timestamp,
		); err != nil {
			return fmt.Errorf("insert completion log: %w", err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit completion: %w", err)
		}
		return nil
	})
}

// MarkFailed transitions a task to failed and records the failure reason.
func (s *Store) MarkFailed(ctx context.Context, id, message string) error {
	ctx = ensureContext(ctx)
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)

	return retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin fail tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		if _, err := tx.ExecContext(
			ctx,
			`UPDATE tasks SET status = ?, error_message = ?, current_step = 'Failed', updated_at = ? WHERE id = ?`,
			StatusFailed,
			nullableString(message),
			timestamp,
			id,
		); err != nil {
			return fmt.Errorf("mark failed: %w", err)
		}

		logLine := "Conversion failed"
		if message != "" {
			logLine = "Conversion failed: " + message
		}
		if _, err := tx.ExecContext(
			ctx,
			`INSERT INTO task_logs (task_id, message, created_at) VALUES (?, ?, ?)`,
			id,
			logLine,
			timestamp,
		); err != nil {
			return fmt.Errorf("insert failure log: %w", err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit failure: %w", err)
		}
		return nil
	})
}
