package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"scriber/internal/blob"
	"scriber/internal/daemon"
	"scriber/internal/deps"
	"scriber/internal/jobs"
	"scriber/internal/logging"
	"scriber/internal/pipeline"
	"scriber/internal/services/ffmpeg"
	"scriber/internal/services/whisper"
	"scriber/internal/staging"
)

func newServeCommand(cmdCtx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the subtitling service",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cmdCtx.ensureConfig()
			if err != nil {
				return err
			}

			lockPath := filepath.Join(cfg.Paths.LogDir, "scriber.lock")
			lock := flock.New(lockPath)
			locked, err := lock.TryLock()
			if err != nil {
				return fmt.Errorf("acquire instance lock: %w", err)
			}
			if !locked {
				return fmt.Errorf("another scriber instance holds %s", lockPath)
			}
			defer func() {
				_ = lock.Unlock()
			}()

			logger, err := logging.NewFromConfig(cfg)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			for _, status := range deps.CheckBinaries(deps.Required(cfg)) {
				logger.Info("dependency check",
					logging.String("name", status.Name),
					logging.String("command", status.Command),
					logging.Bool("available", status.Available),
					logging.String("detail", status.Detail),
				)
			}

			store, err := jobs.Open(cfg)
			if err != nil {
				return fmt.Errorf("open job store: %w", err)
			}
			defer store.Close()

			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			if reset, err := store.ResetStuckProcessing(ctx); err != nil {
				logger.Warn("failed to reset stuck jobs", logging.Error(err))
			} else if reset > 0 {
				logger.Info("reset stuck jobs from previous run", logging.Int64("count", reset))
			}

			retention := time.Duration(cfg.Pipeline.StagingRetentionHours) * time.Hour
			staging.CleanStale(cfg.Paths.StagingDir, retention, logger)
			go func() {
				ticker := time.NewTicker(time.Hour)
				defer ticker.Stop()
				for {
					select {
					case <-ctx.Done():
						return
					case <-ticker.C:
						staging.CleanStale(cfg.Paths.StagingDir, retention, logger)
					}
				}
			}()

			blobs, err := blob.NewLocalStore(cfg.Paths.LibraryDir, time.Duration(cfg.API.SignedURLTTLSeconds)*time.Second)
			if err != nil {
				return fmt.Errorf("init blob store: %w", err)
			}

			toolTimeout := time.Duration(cfg.Pipeline.ToolTimeoutSeconds) * time.Second
			ffmpegSvc := ffmpeg.NewService(cfg.FFmpegBinary(), toolTimeout, logger)
			whisperSvc := whisper.NewService(cfg.WhisperBinary(), cfg.Whisper.Model, cfg.Whisper.Language, toolTimeout, logger)
			runner := pipeline.NewRunner(cfg, store, blobs, ffmpegSvc, whisperSvc, logger)

			server := daemon.NewServer(cfg, store, blobs, runner, logger)
			if err := server.Start(ctx); err != nil {
				return err
			}

			logger.Info("scriber serving",
				logging.String("address", server.Addr()),
				logging.String("staging_dir", cfg.Paths.StagingDir),
				logging.String("library_dir", cfg.Paths.LibraryDir),
			)

			<-ctx.Done()
			logger.Info("shutdown requested, draining pipeline runs")
			server.Stop()
			// A signal-triggered stop is a clean exit, not an error.
			if cause := context.Cause(ctx); !errors.Is(cause, context.Canceled) {
				return cause
			}
			return nil
		},
	}
}
