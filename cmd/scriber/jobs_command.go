package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"scriber/internal/jobs"
)

func newJobsCommand(cmdCtx *commandContext) *cobra.Command {
	var statusFilter string

	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "List subtitling jobs",
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

			var statuses []jobs.Status
			if trimmed := strings.TrimSpace(statusFilter); trimmed != "" {
				status, ok := jobs.ParseStatus(trimmed)
				if !ok {
					return fmt.Errorf("unknown status %q (valid: %v)", trimmed, jobs.AllStatuses())
				}
				statuses = append(statuses, status)
			}

			items, err := store.List(cmd.Context(), statuses...)
			if err != nil {
				return fmt.Errorf("list jobs: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(items) == 0 {
				fmt.Fprintln(out, "No jobs.")
				return nil
			}

			rows := make([][]string, 0, len(items))
			for _, job := range items {
				rows = append(rows, []string{
					shortID(job.ID),
					job.Title,
					string(job.Status),
					progressCell(job),
					formatAge(time.Since(job.CreatedAt)),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"ID", "Title", "Status", "Progress", "Age"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight},
			))
			return nil
		},
	}

	cmd.Flags().StringVar(&statusFilter, "status", "", "Filter by status (processing, processed, failed)")
	return cmd
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func progressCell(job *jobs.Job) string {
	if job.Status != jobs.StatusProcessing {
		return ""
	}
	if job.ProgressStage == "" {
		return fmt.Sprintf("%.0f%%", job.ProgressPercent)
	}
	return fmt.Sprintf("%s %.0f%%", job.ProgressStage, job.ProgressPercent)
}

func formatAge(d time.Duration) string {
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd", int(d.Hours()/24))
	}
}
