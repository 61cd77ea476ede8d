package jobs

import (
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Status represents the lifecycle of a transcription job. A job is created
// in StatusProcessing and ends in exactly one of StatusProcessed or
// StatusFailed; there are no other transitions.
type Status string

const (
	StatusProcessing Status = "processing"
	StatusProcessed  Status = "processed"
	StatusFailed     Status = "failed"
)

var allStatuses = []Status{
	StatusProcessing,
	StatusProcessed,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// AllStatuses returns the lifecycle states in order.
func AllStatuses() []Status {
	out := make([]Status, len(allStatuses))
	copy(out, allStatuses)
	return out
}

// ParseStatus validates a raw status string.
func ParseStatus(value string) (Status, bool) {
	status := Status(strings.ToLower(strings.TrimSpace(value)))
	_, ok := statusSet[status]
	return status, ok
}

// ServiceStopReason is the error message recorded when in-flight jobs are
// failed because the service restarted underneath them.
const ServiceStopReason = "Service restarted during processing"

// Job is one subtitling request persisted in SQLite.
type Job struct {
	ID              string
	OwnerID         string
	SourcePath      string
	Title           string
	Status          Status
	ErrorMessage    string
	SubtitleText    string
	ResultRef       string
	ThumbnailRef    string
	SegmentCount    int
	ProgressStage   string
	ProgressPercent float64
	ProgressMessage string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// IsTerminal reports whether the job has finished, successfully or not.
func (j Job) IsTerminal() bool {
	return j.Status == StatusProcessed || j.Status == StatusFailed
}

// SetProgress updates the in-flight progress fields.
func (j *Job) SetProgress(stage, message string, percent float64) {
	j.ProgressStage = stage
	j.ProgressMessage = message
	j.ProgressPercent = percent
}

// SetProcessed marks the job successful with its published artifacts.
func (j *Job) SetProcessed(subtitleText, resultRef string) {
	j.Status = StatusProcessed
	j.SubtitleText = subtitleText
	j.ResultRef = resultRef
	j.ErrorMessage = ""
	j.ProgressPercent = 100
	j.ProgressMessage = "Complete"
}

// SetFailed marks the job failed with a human-readable reason. Result fields
// stay empty so a failed job never exposes partial output.
func (j *Job) SetFailed(message string) {
	j.Status = StatusFailed
	j.ErrorMessage = message
	j.SubtitleText = ""
	j.ResultRef = ""
	j.ThumbnailRef = ""
}

var titleCaser = cases.Title(language.English)

// InferTitle derives a display title from a media file name: extension
// stripped, separators flattened to spaces, words title-cased.
func InferTitle(path string) string {
	base := strings.TrimSpace(filepath.Base(path))
	base = strings.TrimSuffix(base, filepath.Ext(base))
	for _, sep := range []string{".", "_", "-"} {
		base = strings.ReplaceAll(base, sep, " ")
	}
	base = strings.Join(strings.Fields(base), " ")
	if base == "" {
		return "Untitled Upload"
	}
	return titleCaser.String(base)
}
