package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"blogcast/internal/config"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}

	configCmd.AddCommand(newConfigValidateCommand(ctx))
	configCmd.AddCommand(newConfigInitCommand())
	configCmd.AddCommand(newConfigShowCommand(ctx))

	return configCmd
}

func newConfigInitCommand() *cobra.Command {
	var targetPath string
	var overwrite bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a sample configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			target := strings.TrimSpace(targetPath)
			if target == "" {
				defaultPath, err := config.DefaultConfigPath()
				if err != nil {
					return fmt.Errorf("determine default config path: %w", err)
				}
				target = defaultPath
			}

			if overwrite {
				expanded, err := config.ExpandPath(target)
				if err != nil {
					return fmt.Errorf("resolve config path: %w", err)
				}
				if err := os.Remove(expanded); err != nil && !os.IsNotExist(err) {
					return fmt.Errorf("remove existing config: %w", err)
				}
			}

			written, err := config.CreateSample(target)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote sample configuration to %s\n", written)
			fmt.Fprintln(out, "Edit the file to set llm.api_key (or export BLOGCAST_LLM_API_KEY) before running blogcast.")
			return nil
		},
	}

	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Destination for the configuration file")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite existing configuration if present")
	return cmd
}

func newConfigValidateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return fmt.Errorf("ensure directories: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Configuration OK")
			return nil
		},
	}
}

func newConfigShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "media_dir      = %s\n", cfg.MediaDir)
			fmt.Fprintf(out, "log_dir        = %s\n", cfg.LogDir)
			fmt.Fprintf(out, "api_bind       = %s\n", cfg.APIBind)
			fmt.Fprintf(out, "llm.model      = %s\n", cfg.LLM.Model)
			fmt.Fprintf(out, "llm.api_key    = %s\n", maskSecret(cfg.LLM.APIKey))
			fmt.Fprintf(out, "tts.binary     = %s\n", cfg.TTS.Binary)
			fmt.Fprintf(out, "tts.voices     = %s, %s\n", cfg.TTS.VoiceHostA, cfg.TTS.VoiceHostB)
			fmt.Fprintf(out, "render.size    = %dx%d @ %d fps\n", cfg.Render.Width, cfg.Render.Height, cfg.Render.FPS)
			fmt.Fprintf(out, "stage_timeout  = %ds\n", cfg.Workflow.StageTimeoutSeconds)
			fmt.Fprintf(out, "max_concurrent = %d\n", cfg.Workflow.MaxConcurrent)
			return nil
		},
	}
}

func maskSecret(value string) string {
	if value == "" {
		return "(unset)"
	}
	if len(value) <= 8 {
		return "****"
	}
	return value[:4] + "..." + value[len(value)-4:]
}
