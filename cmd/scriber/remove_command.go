package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"scriber/internal/jobs"
)

func newRemoveCommand(cmdCtx *commandContext) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "remove <job-id>",
		Short: "Delete a job record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cmdCtx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := jobs.Open(cfg)
			if err != nil {
				return fmt.Errorf("open job store: %w", err)
			}
			defer store.Close()

			job, err := resolveJob(cmd, store, strings.TrimSpace(args[0]))
			if err != nil {
				return err
			}
			// A processing row backs a live pipeline run; deleting it would
			// orphan the run's final Update.
			if job.Status == jobs.StatusProcessing && !force {
				return fmt.Errorf("job %s is still processing; pass --force to delete it anyway", job.ID)
			}

			removed, err := store.Remove(cmd.Context(), job.ID)
			if err != nil {
				return fmt.Errorf("remove job: %w", err)
			}
			if !removed {
				return fmt.Errorf("no job matches %q", job.ID)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed job %s (%s)\n", job.ID, job.Title)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Delete the record even if the job is still processing")
	return cmd
}
