package config

import (
	"fmt"
	"strings"
)

// Validate checks configuration invariants after normalization.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Paths.StagingDir) == "" {
		return fmt.Errorf("paths.staging_dir is required")
	}
	if strings.TrimSpace(c.Paths.LibraryDir) == "" {
		return fmt.Errorf("paths.library_dir is required")
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		return fmt.Errorf("paths.log_dir is required")
	}
	if err := c.validateAPI(); err != nil {
		return err
	}
	if err := c.validatePipeline(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateAPI() error {
	if strings.TrimSpace(c.API.Bind) == "" {
		return fmt.Errorf("api.bind is required")
	}
	if c.API.MaxUploadMiB < 1 {
		return fmt.Errorf("api.max_upload_mib must be positive, got %d", c.API.MaxUploadMiB)
	}
	if c.API.SignedURLTTLSeconds < 1 {
		return fmt.Errorf("api.signed_url_ttl_seconds must be positive, got %d", c.API.SignedURLTTLSeconds)
	}
	return nil
}

func (c *Config) validatePipeline() error {
	if c.Pipeline.SegmentSeconds < 1 {
		return fmt.Errorf("pipeline.segment_seconds must be positive, got %d", c.Pipeline.SegmentSeconds)
	}
	if c.Pipeline.ExtractConcurrency < 1 {
		return fmt.Errorf("pipeline.extract_concurrency must be positive, got %d", c.Pipeline.ExtractConcurrency)
	}
	if c.Pipeline.TranscribeConcurrency < 1 {
		return fmt.Errorf("pipeline.transcribe_concurrency must be positive, got %d", c.Pipeline.TranscribeConcurrency)
	}
	if c.Pipeline.ToolTimeoutSeconds < 1 {
		return fmt.Errorf("pipeline.tool_timeout_seconds must be positive, got %d", c.Pipeline.ToolTimeoutSeconds)
	}
	if c.Pipeline.StagingRetentionHours < 1 {
		return fmt.Errorf("pipeline.staging_retention_hours must be positive, got %d", c.Pipeline.StagingRetentionHours)
	}
	return nil
}
