package pipeline_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"scriber/internal/blob"
	"scriber/internal/config"
	"scriber/internal/jobs"
	"scriber/internal/logging"
	"scriber/internal/pipeline"
	"scriber/internal/services"
	"scriber/internal/services/ffmpeg"
	"scriber/internal/services/whisper"
	"scriber/internal/testsupport"
)

const probeJSON = `{
  "streams": [
    {"index": 0, "codec_type": "video", "codec_name": "h264"},
    {"index": 1, "codec_type": "audio", "codec_name": "aac"}
  ],
  "format": {"filename": "in.mp4", "duration": "150.250000"}
}`

type fixture struct {
	cfg    *config.Config
	store  *jobs.Store
	blobs  *blob.LocalStore
	runner *pipeline.Runner
	job    *jobs.Job
}

// newFixture wires a runner whose external tools are stubbed: ffmpeg calls
// create their output file, whisper writes a one-cue SRT per segment, and
// ffprobe reports a 150.25s source with audio and video streams.
func newFixture(t *testing.T, transcribe func(audioPath, outDir string) error) *fixture {
	t.Helper()

	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	store := testsupport.MustOpenStore(t, cfg)

	blobs, err := blob.NewLocalStore(cfg.Paths.LibraryDir, time.Minute)
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}

	source := filepath.Join(cfg.Paths.StagingDir, "in.mp4")
	testsupport.WriteFile(t, source, 64)
	job := testsupport.NewJob(t, store, source, "alice")

	ffmpegSvc := ffmpeg.NewService("ffmpeg", time.Minute, logging.NewNop())
	ffmpegSvc.WithCommandRunner(func(_ context.Context, _ string, args ...string) ([]byte, error) {
		testsupport.WriteFile(t, args[len(args)-1], 8)
		return nil, nil
	})

	whisperSvc := whisper.NewService("whisper", "base", "en", time.Minute, logging.NewNop())
	whisperSvc.WithCommandRunner(func(_ context.Context, _ string, args ...string) ([]byte, error) {
		outDir := ""
		for i, arg := range args {
			if arg == "--output_dir" && i+1 < len(args) {
				outDir = args[i+1]
			}
		}
		return nil, transcribe(args[0], outDir)
	})

	runner := pipeline.NewRunner(cfg, store, blobs, ffmpegSvc, whisperSvc, logging.NewNop())
	runner.WithProbeRunner(func(context.Context, string, ...string) ([]byte, error) {
		return []byte(probeJSON), nil
	})

	return &fixture{cfg: cfg, store: store, blobs: blobs, runner: runner, job: job}
}

func srtStub(audioPath, outDir string) error {
	base := strings.TrimSuffix(filepath.Base(audioPath), filepath.Ext(audioPath))
	cue := fmt.Sprintf("1\n00:00:00,500 --> 00:00:01,000\nLine from %s\n", base)
	return os.WriteFile(filepath.Join(outDir, base+".srt"), []byte(cue), 0o644)
}

func TestRunProcessesJobEndToEnd(t *testing.T) {
	fx := newFixture(t, srtStub)

	if err := fx.runner.Run(context.Background(), fx.job); err != nil {
		t.Fatalf("Run: %v", err)
	}

	got, err := fx.store.GetByID(context.Background(), fx.job.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != jobs.StatusProcessed {
		t.Fatalf("status = %s (%s)", got.Status, got.ErrorMessage)
	}
	if got.SegmentCount != 3 {
		t.Errorf("segment count = %d, want 3", got.SegmentCount)
	}
	if got.ResultRef == "" {
		t.Error("result ref should be set")
	}
	if got.ThumbnailRef == "" {
		t.Error("thumbnail ref should be set")
	}

	// Cues from segment 3 (starts at 120s) must be shifted into place and
	// renumbered across the whole track.
	if !strings.Contains(got.SubtitleText, "00:02:00,500 --> 00:02:01,000") {
		t.Errorf("third segment cue not offset:\n%s", got.SubtitleText)
	}
	if !strings.HasPrefix(got.SubtitleText, "1\n") || !strings.Contains(got.SubtitleText, "\n3\n") {
		t.Errorf("cues not renumbered:\n%s", got.SubtitleText)
	}

	rc, err := fx.blobs.Open(got.ResultRef)
	if err != nil {
		t.Fatalf("published artifact missing: %v", err)
	}
	rc.Close()

	entries, err := os.ReadDir(fx.cfg.Paths.StagingDir)
	if err != nil {
		t.Fatal(err)
	}
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), "job-") {
			t.Errorf("staging dir not cleaned: %s", entry.Name())
		}
	}
	if _, statErr := os.Stat(fx.job.SourcePath); !os.IsNotExist(statErr) {
		t.Errorf("upload copy not removed after success: stat err = %v", statErr)
	}
}

func TestRunFailsJobOnTranscriptionError(t *testing.T) {
	fx := newFixture(t, func(audioPath, outDir string) error {
		if strings.Contains(audioPath, "segment_002") {
			return errors.New("exit status 1")
		}
		return srtStub(audioPath, outDir)
	})

	err := fx.runner.Run(context.Background(), fx.job)
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected ErrExternalTool, got %v", err)
	}

	got, lookupErr := fx.store.GetByID(context.Background(), fx.job.ID)
	if lookupErr != nil {
		t.Fatalf("GetByID: %v", lookupErr)
	}
	if got.Status != jobs.StatusFailed {
		t.Fatalf("status = %s", got.Status)
	}
	if got.ErrorMessage == "" {
		t.Error("failed job should carry a reason")
	}
	if got.SubtitleText != "" || got.ResultRef != "" || got.ThumbnailRef != "" {
		t.Errorf("failed job must not expose partial results: %+v", got)
	}

	entries, readErr := os.ReadDir(fx.cfg.Paths.StagingDir)
	if readErr != nil {
		t.Fatal(readErr)
	}
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), "job-") {
			t.Errorf("staging dir not cleaned after failure: %s", entry.Name())
		}
	}
	if _, statErr := os.Stat(fx.job.SourcePath); !os.IsNotExist(statErr) {
		t.Errorf("upload copy not removed after failure: stat err = %v", statErr)
	}
}

func TestRunRejectsSourceWithoutAudio(t *testing.T) {
	fx := newFixture(t, srtStub)
	fx.runner.WithProbeRunner(func(context.Context, string, ...string) ([]byte, error) {
		return []byte(`{"streams":[{"index":0,"codec_type":"video"}],"format":{"duration":"30.0"}}`), nil
	})

	err := fx.runner.Run(context.Background(), fx.job)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}

	got, lookupErr := fx.store.GetByID(context.Background(), fx.job.ID)
	if lookupErr != nil {
		t.Fatalf("GetByID: %v", lookupErr)
	}
	if got.Status != jobs.StatusFailed {
		t.Errorf("status = %s", got.Status)
	}
}

func TestRunThumbnailFailureIsNonFatal(t *testing.T) {
	fx := newFixture(t, srtStub)

	// Reuse the standard stub but refuse thumbnail invocations.
	ffmpegSvc := ffmpeg.NewService("ffmpeg", time.Minute, logging.NewNop())
	ffmpegSvc.WithCommandRunner(func(_ context.Context, _ string, args ...string) ([]byte, error) {
		for _, arg := range args {
			if arg == "-frames:v" {
				return []byte("cannot seek"), errors.New("exit status 1")
			}
		}
		testsupport.WriteFile(t, args[len(args)-1], 8)
		return nil, nil
	})

	whisperSvc := whisper.NewService("whisper", "base", "en", time.Minute, logging.NewNop())
	whisperSvc.WithCommandRunner(func(_ context.Context, _ string, args ...string) ([]byte, error) {
		outDir := ""
		for i, arg := range args {
			if arg == "--output_dir" && i+1 < len(args) {
				outDir = args[i+1]
			}
		}
		return nil, srtStub(args[0], outDir)
	})

	runner := pipeline.NewRunner(fx.cfg, fx.store, fx.blobs, ffmpegSvc, whisperSvc, logging.NewNop())
	runner.WithProbeRunner(func(context.Context, string, ...string) ([]byte, error) {
		return []byte(probeJSON), nil
	})

	if err := runner.Run(context.Background(), fx.job); err != nil {
		t.Fatalf("Run: %v", err)
	}

	got, err := fx.store.GetByID(context.Background(), fx.job.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != jobs.StatusProcessed {
		t.Fatalf("status = %s (%s)", got.Status, got.ErrorMessage)
	}
	if got.ThumbnailRef != "" {
		t.Errorf("thumbnail ref should stay empty on failure, got %q", got.ThumbnailRef)
	}
}
