package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"scriber/internal/config"
)

func TestDefaultValidates(t *testing.T) {
	cfg := config.Default()
	// Defaults use ~ paths; expansion happens in Load, so patch directly.
	base := t.TempDir()
	cfg.Paths.StagingDir = filepath.Join(base, "staging")
	cfg.Paths.LibraryDir = filepath.Join(base, "library")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.toml")
	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if exists {
		t.Fatal("expected exists=false for missing file")
	}
	if resolved != path {
		t.Fatalf("resolved = %q, want %q", resolved, path)
	}
	if cfg.Pipeline.SegmentSeconds != 60 {
		t.Fatalf("segment_seconds = %d, want default 60", cfg.Pipeline.SegmentSeconds)
	}
}

func TestLoadParsesOverrides(t *testing.T) {
	base := t.TempDir()
	path := filepath.Join(base, "config.toml")
	content := `
[paths]
staging_dir = "` + filepath.Join(base, "work") + `"
library_dir = "` + filepath.Join(base, "out") + `"
log_dir = "` + filepath.Join(base, "logs") + `"

[pipeline]
segment_seconds = 30
transcribe_concurrency = 4

[whisper]
model = "small"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !exists {
		t.Fatal("expected exists=true")
	}
	if cfg.Pipeline.SegmentSeconds != 30 {
		t.Fatalf("segment_seconds = %d, want 30", cfg.Pipeline.SegmentSeconds)
	}
	if cfg.Pipeline.TranscribeConcurrency != 4 {
		t.Fatalf("transcribe_concurrency = %d, want 4", cfg.Pipeline.TranscribeConcurrency)
	}
	if cfg.Whisper.Model != "small" {
		t.Fatalf("whisper.model = %q, want small", cfg.Whisper.Model)
	}
	// Untouched sections keep defaults.
	if cfg.Pipeline.ExtractConcurrency != 2 {
		t.Fatalf("extract_concurrency = %d, want default 2", cfg.Pipeline.ExtractConcurrency)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	base := t.TempDir()
	path := filepath.Join(base, "config.toml")
	content := `
[pipeline]
segment_seconds = -5
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, _, _, err := config.Load(path); err == nil {
		t.Fatal("expected validation error for negative segment_seconds")
	}
}

func TestSampleConfigMentionsEverySection(t *testing.T) {
	sample := config.SampleConfig()
	for _, section := range []string{"[paths]", "[api]", "[pipeline]", "[whisper]", "[logging]"} {
		if !strings.Contains(sample, section) {
			t.Errorf("sample config missing %s", section)
		}
	}
}
