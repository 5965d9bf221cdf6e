package main

import (
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"blogcast/internal/api"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var follow bool

	cmd := &cobra.Command{
		Use:   "status [task-id]",
		Short: "Show daemon status, or the progress of one task",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := ctx.dialClient()
			if err != nil {
				return err
			}

			if len(args) == 0 {
				status, err := c.DaemonStatus(cmd.Context())
				if err != nil {
					return err
				}
				printDaemonStatus(cmd, status)
				return nil
			}

			taskID := args[0]
			for {
				status, err := c.TaskStatus(cmd.Context(), taskID)
				if err != nil {
					return err
				}
				if status == nil {
					return fmt.Errorf("task %s not found", taskID)
				}
				printTaskStatus(cmd, status)
				if !follow || status.Status == "completed" || status.Status == "failed" {
					return nil
				}
				select {
				case <-cmd.Context().Done():
					return cmd.Context().Err()
				case <-time.After(2 * time.Second):
				}
				fmt.Fprintln(cmd.OutOrStdout())
			}
		},
	}

	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Poll until the task reaches a terminal state")
	return cmd
}

func printTaskStatus(cmd *cobra.Command, status *api.TaskStatus) {
	out := cmd.OutOrStdout()
	colorize := writerSupportsColor(out)

	fmt.Fprintln(out, renderSectionHeader("Task "+status.ID))
	fmt.Fprintln(out, renderStatusLine("Status", statusKindForTask(status.Status), status.Status, colorize))
	fmt.Fprintf(out, "%s%-*s %s\n", statusIndent, statusLabelWidth, "Progress:", renderProgressBar(status.Progress, 25))
	if status.CurrentStep != "" {
		fmt.Fprintf(out, "%s%-*s %s\n", statusIndent, statusLabelWidth, "Step:", status.CurrentStep)
	}
	if status.Title != "" {
		fmt.Fprintf(out, "%s%-*s %s\n", statusIndent, statusLabelWidth, "Title:", status.Title)
	}
	if status.AudioFile != "" {
		fmt.Fprintf(out, "%s%-*s %s\n", statusIndent, statusLabelWidth, "Audio:", status.AudioFile)
	}
	if status.VideoFile != "" {
		fmt.Fprintf(out, "%s%-*s %s\n", statusIndent, statusLabelWidth, "Video:", status.VideoFile)
	}
	if status.ErrorMessage != "" {
		fmt.Fprintln(out, renderStatusLine("Error", statusError, status.ErrorMessage, colorize))
	}
	if len(status.Logs) > 0 {
		fmt.Fprintln(out, statusIndent+"Log:")
		for _, line := range status.Logs {
			fmt.Fprintf(out, "%s%s%s\n", statusIndent, statusIndent, line)
		}
	}
}

func printDaemonStatus(cmd *cobra.Command, status *api.DaemonStatus) {
	out := cmd.OutOrStdout()
	colorize := writerSupportsColor(out)

	fmt.Fprintln(out, renderSectionHeader("Daemon"))
	runningKind := statusError
	runningText := "stopped"
	if status.Running {
		runningKind = statusOK
		runningText = fmt.Sprintf("running (pid %d)", status.PID)
	}
	fmt.Fprintln(out, renderStatusLine("Daemon", runningKind, runningText, colorize))
	fmt.Fprintf(out, "%s%-*s %s\n", statusIndent, statusLabelWidth, "Task DB:", status.QueueDBPath)
	if status.Workflow.LastError != "" {
		fmt.Fprintln(out, renderStatusLine("Last error", statusWarn, status.Workflow.LastError, colorize))
	}

	fmt.Fprintln(out, renderSectionHeader("Queue"))
	names := make([]string, 0, len(status.Workflow.QueueStats))
	for name := range status.Workflow.QueueStats {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(out, "%s%-*s %d\n", statusIndent, statusLabelWidth, name+":", status.Workflow.QueueStats[name])
	}

	fmt.Fprintln(out, renderSectionHeader("Stages"))
	for _, stage := range status.Workflow.StageHealth {
		kind := statusOK
		detail := stage.Detail
		if !stage.Ready {
			kind = statusError
		}
		fmt.Fprintln(out, renderStatusLine(stage.Name, kind, detail, colorize))
	}

	fmt.Fprintln(out, renderSectionHeader("Dependencies"))
	for _, dep := range status.Dependencies {
		kind := statusOK
		detail := dep.Command
		if !dep.Available {
			kind = statusError
			detail = dep.Detail
		}
		fmt.Fprintln(out, renderStatusLine(dep.Name, kind, detail, colorize))
	}
}
