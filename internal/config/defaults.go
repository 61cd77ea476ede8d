package config

const (
	defaultStagingDir            = "~/.local/share/scriber/staging"
	defaultLibraryDir            = "~/.local/share/scriber/library"
	defaultLogDir                = "~/.local/share/scriber/logs"
	defaultAPIBind               = "127.0.0.1:8754"
	defaultMaxUploadMiB          = 2048
	defaultSignedURLTTLSeconds   = 900
	defaultSegmentSeconds        = 60
	defaultExtractConcurrency    = 2
	defaultTranscribeConcurrency = 2
	defaultToolTimeoutSeconds    = 600
	defaultStagingRetentionHours = 24
	defaultWhisperBinary         = "whisper"
	defaultWhisperModel          = "base"
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StagingDir: defaultStagingDir,
			LibraryDir: defaultLibraryDir,
			LogDir:     defaultLogDir,
		},
		API: API{
			Bind:                defaultAPIBind,
			MaxUploadMiB:        defaultMaxUploadMiB,
			SignedURLTTLSeconds: defaultSignedURLTTLSeconds,
		},
		Pipeline: Pipeline{
			SegmentSeconds:        defaultSegmentSeconds,
			ExtractConcurrency:    defaultExtractConcurrency,
			TranscribeConcurrency: defaultTranscribeConcurrency,
			ToolTimeoutSeconds:    defaultToolTimeoutSeconds,
			StagingRetentionHours: defaultStagingRetentionHours,
			Thumbnail:             true,
		},
		Whisper: Whisper{
			Binary:   defaultWhisperBinary,
			Model:    defaultWhisperModel,
			Language: "en",
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
