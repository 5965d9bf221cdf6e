package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"blogcast/internal/api"
	"blogcast/internal/queue"
)

func newTasksCommand(ctx *commandContext) *cobra.Command {
	var statusFilters []string

	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "List conversion tasks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, filter := range statusFilters {
				if _, ok := queue.ParseStatus(filter); !ok {
					return fmt.Errorf("unknown status %q", filter)
				}
			}

			c, err := ctx.dialClient()
			if err != nil {
				return err
			}
			tasks, err := c.Tasks(cmd.Context(), statusFilters...)
			if err != nil {
				return err
			}
			if len(tasks) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No tasks.")
				return nil
			}

			fmt.Fprintln(cmd.OutOrStdout(), renderTaskTable(tasks))
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&statusFilters, "status", nil, "Filter by status (pending, processing, completed, failed)")

	cmd.AddCommand(newTasksClearCommand(ctx))
	cmd.AddCommand(newTasksRemoveCommand(ctx))
	return cmd
}

// newTasksClearCommand operates on the store directly so it also works when
// the daemon is stopped or the schema needs resetting.
func newTasksClearCommand(ctx *commandContext) *cobra.Command {
	var completedOnly, failedOnly bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove tasks from the store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if completedOnly && failedOnly {
				return fmt.Errorf("--completed and --failed are mutually exclusive")
			}
			store, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			var removed int64
			switch {
			case completedOnly:
				removed, err = store.ClearCompleted(cmd.Context())
			case failedOnly:
				removed, err = store.ClearFailed(cmd.Context())
			default:
				removed, err = store.Clear(cmd.Context())
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d task(s)\n", removed)
			return nil
		},
	}

	cmd.Flags().BoolVar(&completedOnly, "completed", false, "Remove only completed tasks")
	cmd.Flags().BoolVar(&failedOnly, "failed", false, "Remove only failed tasks")
	return cmd
}

func newTasksRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <task-id>",
		Short: "Remove one task from the store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			removed, err := store.Remove(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !removed {
				return fmt.Errorf("task %s not found", args[0])
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed task %s\n", args[0])
			return nil
		},
	}
}

func openStore(ctx *commandContext) (*queue.Store, error) {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return nil, err
	}
	return queue.Open(cfg)
}

func renderTaskTable(tasks []api.TaskSummary) string {
	headers := []string{"ID", "Status", "Progress", "Step", "Title", "URL"}
	rows := make([][]string, 0, len(tasks))
	for _, task := range tasks {
		step := task.CurrentStep
		if task.Status == string(queue.StatusFailed) && task.ErrorMessage != "" {
			step = task.ErrorMessage
		}
		rows = append(rows, []string{
			shortID(task.ID),
			task.Status,
			strconv.Itoa(task.Progress) + "%",
			truncateCell(step, 32),
			truncateCell(task.Title, 32),
			truncateCell(task.URL, 48),
		})
	}
	return renderTable(headers, rows, []columnAlignment{alignLeft, alignLeft, alignRight, alignLeft, alignLeft, alignLeft})
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func truncateCell(value string, limit int) string {
	if limit <= 3 || len(value) <= limit {
		return value
	}
	return value[:limit-3] + "..."
}
