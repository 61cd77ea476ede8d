// Package segment plans the time windows a source video is split into for
// independent transcription.
package segment

import (
	"fmt"
	"time"

	"scriber/internal/services"
)

// Segment is one planned time window. Windows are contiguous, non-overlapping,
// and together cover [0, total) exactly.
type Segment struct {
	Index int // 1-based
	Start time.Duration
	End   time.Duration // exclusive
}

// Duration returns the window length.
func (s Segment) Duration() time.Duration {
	return s.End - s.Start
}

func (s Segment) String() string {
	return fmt.Sprintf("segment %d [%s, %s)", s.Index, s.Start, s.End)
}

// Plan computes the ordered segment windows for a video of the given total
// duration. The final segment is truncated to end exactly at total.
func Plan(total, length time.Duration) ([]Segment, error) {
	if total <= 0 {
		return nil, services.Wrap(services.ErrValidation, "plan", "", fmt.Sprintf("total duration must be positive, got %s", total), nil)
	}
	if length <= 0 {
		return nil, services.Wrap(services.ErrValidation, "plan", "", fmt.Sprintf("segment length must be positive, got %s", length), nil)
	}

	count := int((total + length - 1) / length)
	segments := make([]Segment, 0, count)
	for i := 0; i < count; i++ {
		start := time.Duration(i) * length
		end := start + length
		if end > total {
			end = total
		}
		segments = append(segments, Segment{Index: i + 1, Start: start, End: end})
	}
	return segments, nil
}
