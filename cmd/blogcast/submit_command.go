package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"blogcast/internal/api"
)

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "submit <url>",
		Short: "Submit a blog article for conversion",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			url, err := api.ValidateSubmissionURL(args[0])
			if err != nil {
				return err
			}

			c, err := ctx.dialClient()
			if err != nil {
				return err
			}
			taskID, err := c.Convert(cmd.Context(), url)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Accepted: task %s\n", taskID)
			fmt.Fprintf(cmd.OutOrStdout(), "Track progress with `blogcast status %s`\n", taskID)
			return nil
		},
	}
}
