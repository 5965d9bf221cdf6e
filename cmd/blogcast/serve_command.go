package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"blogcast/internal/daemon"
	"blogcast/internal/logging"
	"blogcast/internal/pipeline"
	"blogcast/internal/preflight"
	"blogcast/internal/queue"
	"blogcast/internal/workflow"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var skipPreflight bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the conversion daemon in the foreground",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return err
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if !skipPreflight {
				results := preflight.RunAll(runCtx, cfg)
				if failures := preflight.Failures(results); len(failures) > 0 {
					fmt.Fprint(cmd.ErrOrStderr(), preflight.Summarize(results))
					return fmt.Errorf("%d preflight check(s) failed", len(failures))
				}
			}

			logger, err := logging.NewFromConfig(cfg)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			store, err := queue.Open(cfg)
			if err != nil {
				return fmt.Errorf("open task store: %w", err)
			}

			stages := pipeline.NewStages(cfg, store, logger)
			manager := workflow.NewManager(cfg, store, stages, logger)

			d, err := daemon.New(cfg, store, manager, logger)
			if err != nil {
				store.Close()
				return err
			}
			defer d.Close()

			if err := d.Start(runCtx); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "blogcast daemon listening on %s\n", d.Addr())

			<-runCtx.Done()
			return nil
		},
	}

	cmd.Flags().BoolVar(&skipPreflight, "skip-preflight", false, "Start even when preflight checks fail")
	return cmd
}
