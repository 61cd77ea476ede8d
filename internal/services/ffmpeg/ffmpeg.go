// Package ffmpeg adapts the external ffmpeg binary for the three operations
// the pipeline needs: cutting a re-encoded segment with a normalized audio
// derivative, burning a subtitle track into the source video, and grabbing a
// thumbnail frame.
package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"scriber/internal/logging"
	"scriber/internal/segment"
	"scriber/internal/services"
)

// CommandRunner executes an external binary and returns its combined output.
// Tests inject fakes through this hook.
type CommandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

func defaultRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput() //nolint:gosec
}

// Artifact is one extracted segment: the planned window plus the standalone
// video cut and its mono 16 kHz PCM audio derivative. The pipeline run that
// created it owns both files.
type Artifact struct {
	Segment   segment.Segment
	VideoPath string
	AudioPath string
}

// Service wraps ffmpeg invocations with timeout and error classification.
type Service struct {
	binary  string
	timeout time.Duration
	logger  *slog.Logger
	run     CommandRunner
}

// NewService constructs an ffmpeg service. timeout bounds each invocation.
func NewService(binary string, timeout time.Duration, logger *slog.Logger) *Service {
	if strings.TrimSpace(binary) == "" {
		binary = "ffmpeg"
	}
	return &Service{
		binary:  binary,
		timeout: timeout,
		logger:  logging.NewComponentLogger(logger, "ffmpeg"),
		run:     defaultRunner,
	}
}

// WithCommandRunner sets a custom command runner (for testing).
func (s *Service) WithCommandRunner(run CommandRunner) {
	if s != nil && run != nil {
		s.run = run
	}
}

// Extract cuts one segment out of the source and derives its audio track.
// The cut is re-encoded rather than stream-copied so the segment starts
// cleanly even when the window does not land on a keyframe.
func (s *Service) Extract(ctx context.Context, source string, seg segment.Segment, outDir string) (Artifact, error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return Artifact{}, services.Wrap(services.ErrValidation, "extract", fmt.Sprintf("segment %d", seg.Index), "ensure output dir", err)
	}

	videoPath := filepath.Join(outDir, fmt.Sprintf("segment_%03d.mp4", seg.Index))
	audioPath := filepath.Join(outDir, fmt.Sprintf("segment_%03d.wav", seg.Index))

	cutArgs := []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-ss", formatSeconds(seg.Start),
		"-t", formatSeconds(seg.Duration()),
		"-i", source,
		"-c:v", "libx264",
		"-preset", "veryfast",
		"-c:a", "aac",
		videoPath,
	}
	if err := s.invoke(ctx, "extract", seg.Index, cutArgs, videoPath); err != nil {
		return Artifact{}, err
	}

	audioArgs := []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", videoPath,
		"-vn",
		"-ac", "1",
		"-ar", "16000",
		"-c:a", "pcm_s16le",
		audioPath,
	}
	if err := s.invoke(ctx, "extract audio", seg.Index, audioArgs, audioPath); err != nil {
		return Artifact{}, err
	}

	return Artifact{Segment: seg, VideoPath: videoPath, AudioPath: audioPath}, nil
}

// BurnIn renders the subtitle file into the frames of source, writing the
// result to outputPath. The audio stream is copied unchanged.
func (s *Service) BurnIn(ctx context.Context, source, srtPath, outputPath string) error {
	args := []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", source,
		"-vf", "subtitles=" + filterEscape(srtPath),
		"-c:a", "copy",
		outputPath,
	}
	return s.invoke(ctx, "burn-in", 0, args, outputPath)
}

// Thumbnail grabs a single scaled frame near the start of source.
func (s *Service) Thumbnail(ctx context.Context, source, outputPath string) error {
	args := []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-ss", "1",
		"-i", source,
		"-frames:v", "1",
		"-vf", "scale=640:-2",
		outputPath,
	}
	return s.invoke(ctx, "thumbnail", 0, args, outputPath)
}

func (s *Service) invoke(ctx context.Context, operation string, segmentIndex int, args []string, expectedOutput string) error {
	toolCtx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		toolCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	label := operation
	if segmentIndex > 0 {
		label = fmt.Sprintf("%s: segment %d", operation, segmentIndex)
	}

	started := time.Now()
	output, err := s.run(toolCtx, s.binary, args...)
	if err != nil {
		if errors.Is(toolCtx.Err(), context.DeadlineExceeded) {
			return services.Wrap(services.ErrTimeout, "ffmpeg", label,
				fmt.Sprintf("no result within %s", s.timeout), nil)
		}
		return services.Wrap(services.ErrExternalTool, "ffmpeg", label,
			strings.TrimSpace(string(output)), err)
	}

	info, statErr := os.Stat(expectedOutput)
	if statErr != nil || info.Size() == 0 {
		return services.Wrap(services.ErrExternalTool, "ffmpeg", label,
			fmt.Sprintf("produced no output at %s", expectedOutput), nil)
	}

	s.logger.Debug("ffmpeg invocation complete",
		logging.String("operation", operation),
		logging.Int(logging.FieldSegment, segmentIndex),
		logging.Duration("elapsed", time.Since(started)),
	)
	return nil
}

func formatSeconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', 3, 64)
}

// filterEscape quotes a path for use inside an ffmpeg filter expression,
// where ':' and '\' are metacharacters.
func filterEscape(path string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `'`, `\'`, `:`, `\:`)
	return "'" + replacer.Replace(path) + "'"
}
