// Package whisper adapts the external whisper CLI for speech-to-text. Each
// call transcribes one mono 16 kHz WAV file and returns the generated SRT
// text verbatim; timestamps in the output are relative to the start of the
// audio it was given.
package whisper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/text/language"

	"scriber/internal/logging"
	"scriber/internal/services"
)

// CommandRunner executes an external binary and returns its combined output.
type CommandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

func defaultRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput() //nolint:gosec
}

// Service wraps whisper invocations with timeout and error classification.
type Service struct {
	binary   string
	model    string
	language string
	timeout  time.Duration
	logger   *slog.Logger
	run      CommandRunner
}

// NewService constructs a whisper service. An empty model or language leaves
// the corresponding flag off so the binary's own default applies.
func NewService(binary, model, lang string, timeout time.Duration, logger *slog.Logger) *Service {
	if strings.TrimSpace(binary) == "" {
		binary = "whisper"
	}
	return &Service{
		binary:   binary,
		model:    strings.TrimSpace(model),
		language: normalizeLanguage(lang),
		timeout:  timeout,
		logger:   logging.NewComponentLogger(logger, "whisper"),
		run:      defaultRunner,
	}
}

// normalizeLanguage reduces a configured language value to the base BCP 47
// subtag whisper expects, so "en-US" and "en_GB" both become "en". Values the
// parser cannot place (whisper also accepts full names like "English") pass
// through unchanged.
func normalizeLanguage(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	tag, err := language.Parse(strings.ReplaceAll(value, "_", "-"))
	if err != nil {
		return value
	}
	base, confidence := tag.Base()
	if confidence == language.No {
		return value
	}
	return base.String()
}

// WithCommandRunner sets a custom command runner (for testing).
func (s *Service) WithCommandRunner(run CommandRunner) {
	if s != nil && run != nil {
		s.run = run
	}
}

// Model returns the configured model name for logging.
func (s *Service) Model() string {
	if s.model != "" {
		return s.model
	}
	return "default"
}

// Transcribe runs whisper against audioPath and returns the SRT text it
// produced. outDir receives the tool's output files; the expected SRT name
// is derived from the audio file's base name.
func (s *Service) Transcribe(ctx context.Context, audioPath, outDir string) (string, error) {
	if strings.TrimSpace(audioPath) == "" {
		return "", services.Wrap(services.ErrValidation, "transcribe", "", "audio path required", nil)
	}
	if outDir == "" {
		outDir = filepath.Dir(audioPath)
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", services.Wrap(services.ErrValidation, "transcribe", "", "ensure output dir", err)
	}

	args := s.buildArgs(audioPath, outDir)

	toolCtx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		toolCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	started := time.Now()
	output, err := s.run(toolCtx, s.binary, args...)
	if err != nil {
		if errors.Is(toolCtx.Err(), context.DeadlineExceeded) {
			return "", services.Wrap(services.ErrTimeout, "whisper", filepath.Base(audioPath),
				fmt.Sprintf("no result within %s", s.timeout), nil)
		}
		return "", services.Wrap(services.ErrExternalTool, "whisper", filepath.Base(audioPath),
			strings.TrimSpace(string(output)), err)
	}

	baseName := strings.TrimSuffix(filepath.Base(audioPath), filepath.Ext(audioPath))
	srtPath := filepath.Join(outDir, baseName+".srt")
	text, readErr := os.ReadFile(srtPath)
	if readErr != nil {
		return "", services.Wrap(services.ErrExternalTool, "whisper", filepath.Base(audioPath),
			fmt.Sprintf("produced no SRT at %s", srtPath), readErr)
	}
	if strings.TrimSpace(string(text)) == "" {
		// Silence in the audio yields an empty file, not a failure.
		s.logger.Debug("transcription produced no cues", logging.String("audio", audioPath))
	}

	s.logger.Debug("transcription complete",
		logging.String("audio", audioPath),
		logging.String("model", s.Model()),
		logging.Duration("elapsed", time.Since(started)),
	)
	return string(text), nil
}

func (s *Service) buildArgs(audioPath, outDir string) []string {
	args := []string{
		audioPath,
		"--output_format", "srt",
		"--output_dir", outDir,
		"--verbose", "False",
	}
	if s.model != "" {
		args = append(args, "--model", s.model)
	}
	if s.language != "" {
		args = append(args, "--language", s.language)
	}
	return args
}
