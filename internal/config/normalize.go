package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizePipeline()
	c.normalizeWhisper()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.StagingDir, err = expandPath(c.Paths.StagingDir); err != nil {
		return fmt.Errorf("paths.staging_dir: %w", err)
	}
	if c.Paths.LibraryDir, err = expandPath(c.Paths.LibraryDir); err != nil {
		return fmt.Errorf("paths.library_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizePipeline() {
	if c.Pipeline.SegmentSeconds == 0 {
		c.Pipeline.SegmentSeconds = defaultSegmentSeconds
	}
	if c.Pipeline.ExtractConcurrency == 0 {
		c.Pipeline.ExtractConcurrency = defaultExtractConcurrency
	}
	if c.Pipeline.TranscribeConcurrency == 0 {
		c.Pipeline.TranscribeConcurrency = defaultTranscribeConcurrency
	}
	if c.Pipeline.ToolTimeoutSeconds == 0 {
		c.Pipeline.ToolTimeoutSeconds = defaultToolTimeoutSeconds
	}
	if c.Pipeline.StagingRetentionHours == 0 {
		c.Pipeline.StagingRetentionHours = defaultStagingRetentionHours
	}
}

func (c *Config) normalizeWhisper() {
	c.Whisper.Binary = strings.TrimSpace(c.Whisper.Binary)
	c.Whisper.Model = strings.TrimSpace(c.Whisper.Model)
	c.Whisper.Language = strings.TrimSpace(c.Whisper.Language)
	if c.Whisper.Model == "" {
		c.Whisper.Model = defaultWhisperModel
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
