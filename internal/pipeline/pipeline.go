// Package pipeline drives one subtitling job from uploaded source to
// published artifact: probe, plan, extract, transcribe, merge, burn-in,
// publish. Each accepted job gets exactly one run; there is no retry in
// place and no resumable state outside the job row.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"scriber/internal/batch"
	"scriber/internal/blob"
	"scriber/internal/config"
	"scriber/internal/fileutil"
	"scriber/internal/jobs"
	"scriber/internal/logging"
	"scriber/internal/media/ffprobe"
	"scriber/internal/segment"
	"scriber/internal/services"
	"scriber/internal/services/ffmpeg"
	"scriber/internal/services/whisper"
	"scriber/internal/staging"
	"scriber/internal/subtitle"
)

// Runner owns the services a pipeline run needs. Construct once and share;
// each Run call is independent.
type Runner struct {
	cfg      *config.Config
	store    *jobs.Store
	blobs    blob.Store
	ffmpeg   *ffmpeg.Service
	whisper  *whisper.Service
	probeRun ffprobe.Runner
	logger   *slog.Logger
}

// NewRunner wires a pipeline runner from its collaborators.
func NewRunner(cfg *config.Config, store *jobs.Store, blobs blob.Store, ffmpegSvc *ffmpeg.Service, whisperSvc *whisper.Service, logger *slog.Logger) *Runner {
	return &Runner{
		cfg:     cfg,
		store:   store,
		blobs:   blobs,
		ffmpeg:  ffmpegSvc,
		whisper: whisperSvc,
		logger:  logging.NewComponentLogger(logger, "pipeline"),
	}
}

// WithProbeRunner sets a custom ffprobe runner (for testing).
func (r *Runner) WithProbeRunner(run ffprobe.Runner) {
	if r != nil && run != nil {
		r.probeRun = run
	}
}

// Run processes one job to a terminal state. The returned error mirrors what
// was persisted on the job row; callers that fire-and-forget may ignore it.
func (r *Runner) Run(ctx context.Context, job *jobs.Job) error {
	ctx = logging.WithJob(ctx, job.ID)
	runLogger := logging.WithContext(ctx, r.logger)

	runLogger.Info("job run started",
		logging.String(logging.FieldEventType, "run_start"),
		logging.String("source_file", job.SourcePath),
		logging.String("title", job.Title),
	)
	started := time.Now()

	// The upload copy is consumed by this run; it goes on both terminal paths.
	defer staging.CleanupFile(job.SourcePath, runLogger)

	workDir, err := staging.JobDir(r.cfg.Paths.StagingDir, job.ID)
	if err != nil {
		return r.fail(ctx, runLogger, job, err)
	}
	defer staging.Cleanup(workDir, runLogger)

	resultText, resultRef, err := r.process(ctx, runLogger, job, workDir)
	if err != nil {
		return r.fail(ctx, runLogger, job, err)
	}

	job.SetProcessed(resultText, resultRef)
	if err := r.store.Update(ctx, job); err != nil {
		runLogger.Error("failed to persist processed job", logging.Error(err))
		return err
	}

	runLogger.Info("job run completed",
		logging.String(logging.FieldEventType, "run_complete"),
		logging.String("result_ref", resultRef),
		logging.Int("segments", job.SegmentCount),
		logging.Duration("elapsed", time.Since(started)),
	)
	return nil
}

func (r *Runner) process(ctx context.Context, runLogger *slog.Logger, job *jobs.Job, workDir string) (string, string, error) {
	// Probe.
	r.progress(ctx, runLogger, job, "probe", "Inspecting source media", 5)
	probe, err := ffprobe.Inspect(ctx, r.cfg.FFprobeBinary(), job.SourcePath, r.probeRun)
	if err != nil {
		return "", "", err
	}
	total, err := probe.Duration()
	if err != nil {
		return "", "", services.Wrap(services.ErrValidation, "probe", "", "source has no readable duration", err)
	}
	if !probe.HasAudio() {
		return "", "", services.Wrap(services.ErrValidation, "probe", "", "source has no audio stream", nil)
	}

	// Plan.
	segmentLength := time.Duration(r.cfg.Pipeline.SegmentSeconds) * time.Second
	plan, err := segment.Plan(total, segmentLength)
	if err != nil {
		return "", "", err
	}
	job.SegmentCount = len(plan)
	r.progress(ctx, runLogger, job, "extract", fmt.Sprintf("Extracting %d segments", len(plan)), 15)

	// Extract.
	extractDir := filepath.Join(workDir, "segments")
	extractTasks := make([]batch.Task[ffmpeg.Artifact], len(plan))
	for i, seg := range plan {
		seg := seg
		extractTasks[i] = func(taskCtx context.Context) (ffmpeg.Artifact, error) {
			return r.ffmpeg.Extract(taskCtx, job.SourcePath, seg, extractDir)
		}
	}
	artifacts, err := batch.Run(ctx, extractTasks, r.cfg.Pipeline.ExtractConcurrency)
	if err != nil {
		return "", "", fmt.Errorf("extract: %w", err)
	}

	// Transcribe.
	r.progress(ctx, runLogger, job, "transcribe", fmt.Sprintf("Transcribing %d segments", len(artifacts)), 50)
	transcribeDir := filepath.Join(workDir, "transcripts")
	transcribeTasks := make([]batch.Task[subtitle.Part], len(artifacts))
	for i, art := range artifacts {
		art := art
		transcribeTasks[i] = func(taskCtx context.Context) (subtitle.Part, error) {
			raw, err := r.whisper.Transcribe(taskCtx, art.AudioPath, transcribeDir)
			if err != nil {
				return subtitle.Part{}, err
			}
			return subtitle.Part{Segment: art.Segment, Raw: raw}, nil
		}
	}
	parts, err := batch.Run(ctx, transcribeTasks, r.cfg.Pipeline.TranscribeConcurrency)
	if err != nil {
		return "", "", fmt.Errorf("transcribe: %w", err)
	}

	// Merge.
	r.progress(ctx, runLogger, job, "merge", "Merging subtitle tracks", 80)
	track, err := subtitle.Merge(parts)
	if err != nil {
		return "", "", err
	}
	rendered := subtitle.Render(track)
	srtPath := filepath.Join(workDir, "subtitles.srt")
	if err := fileutil.WriteFileAtomic(srtPath, []byte(rendered)); err != nil {
		return "", "", fmt.Errorf("write merged subtitles: %w", err)
	}

	// Burn-in on the original source, not the re-encoded cuts.
	r.progress(ctx, runLogger, job, "publish", "Rendering subtitled media", 85)
	finalPath := filepath.Join(workDir, "final.mp4")
	if err := r.ffmpeg.BurnIn(ctx, job.SourcePath, srtPath, finalPath); err != nil {
		return "", "", err
	}

	resultRef, err := r.blobs.Put(finalPath, "processed")
	if err != nil {
		return "", "", fmt.Errorf("publish result: %w", err)
	}

	// Thumbnail is enrichment; a failure does not fail the job.
	thumbPath := filepath.Join(workDir, "thumbnail.jpg")
	if r.cfg.Pipeline.Thumbnail {
		if err := r.ffmpeg.Thumbnail(ctx, job.SourcePath, thumbPath); err != nil {
			runLogger.Warn("thumbnail generation failed",
				logging.Error(err),
				logging.String(logging.FieldEventType, "thumbnail_failed"),
			)
		} else if ref, putErr := r.blobs.Put(thumbPath, "thumbnails"); putErr != nil {
			runLogger.Warn("thumbnail publish failed", logging.Error(putErr))
		} else {
			job.ThumbnailRef = ref
		}
	}

	return rendered, resultRef, nil
}

// progress persists a stage transition. Persistence failures are logged and
// swallowed so observability hiccups cannot kill a healthy run.
func (r *Runner) progress(ctx context.Context, runLogger *slog.Logger, job *jobs.Job, stage, message string, percent float64) {
	job.SetProgress(stage, message, percent)
	if err := r.store.Update(ctx, job); err != nil {
		runLogger.Warn("failed to persist progress", logging.Error(err), logging.String(logging.FieldStage, stage))
		return
	}
	runLogger.Info("stage started",
		logging.String(logging.FieldEventType, "stage_start"),
		logging.String(logging.FieldStage, stage),
		logging.String("message", message),
	)
}

func (r *Runner) fail(ctx context.Context, runLogger *slog.Logger, job *jobs.Job, runErr error) error {
	job.SetFailed(services.FailureMessage(runErr))
	runLogger.Error("job run failed",
		logging.String(logging.FieldEventType, "run_failure"),
		logging.String("error_message", job.ErrorMessage),
		logging.Error(runErr),
	)
	if err := r.store.Update(ctx, job); err != nil {
		runLogger.Error("failed to persist job failure", logging.Error(err))
	}
	return runErr
}
