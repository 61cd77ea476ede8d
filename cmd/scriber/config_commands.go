package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"scriber/internal/config"
)

func newConfigCommand(cmdCtx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}

	configCmd.AddCommand(newConfigNewCommand())
	configCmd.AddCommand(newConfigShowCommand(cmdCtx))

	return configCmd
}

func newConfigNewCommand() *cobra.Command {
	var targetPath string
	var overwrite bool

	cmd := &cobra.Command{
		Use:         "new",
		Short:       "Write a sample configuration file",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			target := strings.TrimSpace(targetPath)
			if target == "" {
				defaultPath, err := config.DefaultConfigPath()
				if err != nil {
					return fmt.Errorf("determine default config path: %w", err)
				}
				target = defaultPath
			} else {
				expanded, err := config.ExpandPath(target)
				if err != nil {
					return fmt.Errorf("resolve config path: %w", err)
				}
				target = expanded
			}

			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return fmt.Errorf("create config directory: %w", err)
			}
			if !overwrite {
				if _, err := os.Stat(target); err == nil {
					return fmt.Errorf("config file already exists at %s (use --overwrite to replace it)", target)
				} else if !os.IsNotExist(err) {
					return fmt.Errorf("check config path: %w", err)
				}
			}

			if err := os.WriteFile(target, []byte(config.SampleConfig()), 0o644); err != nil {
				return fmt.Errorf("write sample config: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Wrote sample configuration to %s\n", target)
			return nil
		},
	}

	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Destination for the configuration file")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite existing configuration if present")
	return cmd
}

func newConfigShowCommand(cmdCtx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cmdCtx.ensureConfig()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "staging_dir:            %s\n", cfg.Paths.StagingDir)
			fmt.Fprintf(out, "library_dir:            %s\n", cfg.Paths.LibraryDir)
			fmt.Fprintf(out, "log_dir:                %s\n", cfg.Paths.LogDir)
			fmt.Fprintf(out, "bind:                   %s\n", cfg.API.Bind)
			fmt.Fprintf(out, "auth:                   %s\n", enabledDisabled(cfg.API.Token != ""))
			fmt.Fprintf(out, "segment_seconds:        %d\n", cfg.Pipeline.SegmentSeconds)
			fmt.Fprintf(out, "extract_concurrency:    %d\n", cfg.Pipeline.ExtractConcurrency)
			fmt.Fprintf(out, "transcribe_concurrency: %d\n", cfg.Pipeline.TranscribeConcurrency)
			fmt.Fprintf(out, "tool_timeout_seconds:   %d\n", cfg.Pipeline.ToolTimeoutSeconds)
			fmt.Fprintf(out, "thumbnail:              %s\n", enabledDisabled(cfg.Pipeline.Thumbnail))
			fmt.Fprintf(out, "whisper_binary:         %s\n", cfg.WhisperBinary())
			fmt.Fprintf(out, "whisper_model:          %s\n", cfg.Whisper.Model)
			fmt.Fprintf(out, "whisper_language:       %s\n", cfg.Whisper.Language)
			fmt.Fprintf(out, "log_format:             %s\n", cfg.Logging.Format)
			fmt.Fprintf(out, "log_level:              %s\n", cfg.Logging.Level)
			return nil
		},
	}
}

func enabledDisabled(value bool) string {
	if value {
		return "enabled"
	}
	return "disabled"
}
