package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"scriber/internal/jobs"
)

func newShowCommand(cmdCtx *commandContext) *cobra.Command {
	var withSubtitles bool

	cmd := &cobra.Command{
		Use:   "show <job-id>",
		Short: "Show details for one job",
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

			id := strings.TrimSpace(args[0])
			job, err := resolveJob(cmd, store, id)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "ID:      %s\n", job.ID)
			fmt.Fprintf(out, "Title:   %s\n", job.Title)
			fmt.Fprintf(out, "Status:  %s\n", job.Status)
			if job.OwnerID != "" {
				fmt.Fprintf(out, "Owner:   %s\n", job.OwnerID)
			}
			fmt.Fprintf(out, "Source:  %s\n", job.SourcePath)
			if job.SegmentCount > 0 {
				fmt.Fprintf(out, "Segments: %d\n", job.SegmentCount)
			}
			if job.Status == jobs.StatusProcessing {
				fmt.Fprintf(out, "Progress: %s %.0f%% (%s)\n", job.ProgressStage, job.ProgressPercent, job.ProgressMessage)
			}
			if job.ErrorMessage != "" {
				fmt.Fprintf(out, "Error:   %s\n", job.ErrorMessage)
			}
			if job.ResultRef != "" {
				fmt.Fprintf(out, "Result:  %s\n", job.ResultRef)
			}
			if job.ThumbnailRef != "" {
				fmt.Fprintf(out, "Thumbnail: %s\n", job.ThumbnailRef)
			}
			fmt.Fprintf(out, "Created: %s\n", job.CreatedAt.Local().Format(time.RFC1123))
			fmt.Fprintf(out, "Updated: %s\n", job.UpdatedAt.Local().Format(time.RFC1123))

			if withSubtitles && job.SubtitleText != "" {
				fmt.Fprintln(out)
				fmt.Fprintln(out, job.SubtitleText)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&withSubtitles, "subtitles", false, "Print the merged subtitle track")
	return cmd
}

// resolveJob accepts a full UUID or an unambiguous prefix.
func resolveJob(cmd *cobra.Command, store *jobs.Store, id string) (*jobs.Job, error) {
	if job, err := store.GetByID(cmd.Context(), id); err == nil {
		return job, nil
	}

	items, err := store.List(cmd.Context())
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	var matches []*jobs.Job
	for _, job := range items {
		if strings.HasPrefix(job.ID, id) {
			matches = append(matches, job)
		}
	}
	switch len(matches) {
	case 1:
		return matches[0], nil
	case 0:
		return nil, fmt.Errorf("no job matches %q", id)
	default:
		return nil, fmt.Errorf("%q is ambiguous (%d matches)", id, len(matches))
	}
}
