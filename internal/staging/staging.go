// Package staging manages per-job scratch directories under the configured
// staging root and reclaims disk from runs that never cleaned up after
// themselves.
package staging

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"scriber/internal/logging"
)

const jobDirPrefix = "job-"

// JobDir creates and returns the scratch directory for one job run. The
// directory holds the segment cuts, audio derivatives, and whisper output
// until the pipeline publishes or fails.
func JobDir(stagingDir, jobID string) (string, error) {
	if strings.TrimSpace(stagingDir) == "" {
		return "", fmt.Errorf("staging dir required")
	}
	dir := filepath.Join(stagingDir, jobDirPrefix+jobID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create job dir: %w", err)
	}
	return dir, nil
}

// Cleanup removes a job's scratch directory. Best effort: failures are
// logged and left for the stale sweep.
func Cleanup(dir string, logger *slog.Logger) {
	if strings.TrimSpace(dir) == "" {
		return
	}
	if err := os.RemoveAll(dir); err != nil {
		if logger != nil {
			logger.Warn("failed to remove job staging directory",
				logging.String("path", dir),
				logging.Error(err),
				logging.String(logging.FieldEventType, "staging_cleanup_failed"),
			)
		}
	}
}

// CleanupFile removes one staged file, typically the original upload copy
// once its job reaches a terminal state. Best effort like Cleanup; a file
// that is already gone is not an error.
func CleanupFile(path string, logger *slog.Logger) {
	if strings.TrimSpace(path) == "" {
		return
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		if logger != nil {
			logger.Warn("failed to remove staged source file",
				logging.String("path", path),
				logging.Error(err),
				logging.String(logging.FieldEventType, "staging_cleanup_failed"),
			)
		}
	}
}

// CleanStaleResult contains the outcome of a stale directory sweep.
type CleanStaleResult struct {
	Removed []string
	Errors  []CleanupError
}

// CleanupError pairs a directory path with its cleanup error.
type CleanupError struct {
	Path  string
	Error error
}

// CleanStale removes job staging directories older than maxAge. Non-job
// entries under the staging root are left alone.
func CleanStale(stagingDir string, maxAge time.Duration, logger *slog.Logger) CleanStaleResult {
	result := CleanStaleResult{}

	stagingDir = strings.TrimSpace(stagingDir)
	if stagingDir == "" {
		return result
	}

	entries, err := os.ReadDir(stagingDir)
	if err != nil {
		if !os.IsNotExist(err) {
			result.Errors = append(result.Errors, CleanupError{Path: stagingDir, Error: err})
		}
		return result
	}

	cutoff := time.Now().Add(-maxAge)

	for _, entry := range entries {
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), jobDirPrefix) {
			continue
		}

		dirPath := filepath.Join(stagingDir, entry.Name())
		info, err := entry.Info()
		if err != nil {
			result.Errors = append(result.Errors, CleanupError{Path: dirPath, Error: err})
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}

		if err := os.RemoveAll(dirPath); err != nil {
			result.Errors = append(result.Errors, CleanupError{Path: dirPath, Error: err})
			if logger != nil {
				logger.Warn("failed to remove stale staging directory",
					logging.String("path", dirPath),
					logging.Error(err),
					logging.String(logging.FieldEventType, "staging_cleanup_failed"),
				)
			}
			continue
		}
		result.Removed = append(result.Removed, dirPath)
		if logger != nil {
			logger.Info("removed stale staging directory",
				logging.String("path", dirPath),
				logging.Duration("age", time.Since(info.ModTime())),
				logging.String(logging.FieldEventType, "staging_cleanup"),
			)
		}
	}

	return result
}
