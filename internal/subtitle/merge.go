package subtitle

import (
	"fmt"

	"scriber/internal/segment"
	"scriber/internal/services"
	"scriber/internal/timecode"
)

// Part pairs a planned segment with the raw subtitle text its transcription
// produced.
type Part struct {
	Segment segment.Segment
	Raw     string
}

// Merge re-times each part's cues by its segment's start offset and
// concatenates them into one track with indices renumbered 1..N.
// A part with zero cues is valid (silence) and contributes nothing.
// Any malformed part aborts the merge.
func Merge(parts []Part) (Track, error) {
	var merged Track
	for _, part := range parts {
		cues, err := ParseTrack(part.Raw)
		if err != nil {
			return nil, services.Wrap(services.ErrFormat, "merge",
				fmt.Sprintf("segment %d", part.Segment.Index), "", err)
		}
		for _, cue := range cues {
			start, err := timecode.Offset(cue.Start, part.Segment.Start)
			if err != nil {
				return nil, err
			}
			end, err := timecode.Offset(cue.End, part.Segment.Start)
			if err != nil {
				return nil, err
			}
			merged = append(merged, Cue{
				Index: len(merged) + 1,
				Start: start,
				End:   end,
				Lines: cue.Lines,
			})
		}
	}

	// Input segments are ordered and non-overlapping, so start times must
	// already be strictly increasing; anything else is a planner defect.
	for i := 1; i < len(merged); i++ {
		if merged[i].Start <= merged[i-1].Start {
			return nil, services.Wrap(services.ErrInvariant, "merge", "",
				fmt.Sprintf("cue %d start %s not after cue %d start %s",
					merged[i].Index, timecode.Format(merged[i].Start),
					merged[i-1].Index, timecode.Format(merged[i-1].Start)), nil)
		}
	}

	return merged, nil
}
