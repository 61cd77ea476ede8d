// Package timecode parses and formats SRT cue timing lines
// (HH:MM:SS,mmm --> HH:MM:SS,mmm) and shifts timestamps along the
// absolute timeline of the source video.
package timecode

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	"scriber/internal/services"
)

var rangeRe = regexp.MustCompile(`^(\d{2}):(\d{2}):(\d{2}),(\d{3})\s*-->\s*(\d{2}):(\d{2}):(\d{2}),(\d{3})$`)

// ParseRange decodes an SRT timing line into start and end offsets.
// The format is strict: two-digit hours, minutes, and seconds, three-digit
// milliseconds, separated by "-->" with optional surrounding whitespace.
func ParseRange(text string) (time.Duration, time.Duration, error) {
	match := rangeRe.FindStringSubmatch(text)
	if match == nil {
		return 0, 0, services.Wrap(services.ErrFormat, "timecode", "parse", fmt.Sprintf("invalid timing line %q", text), nil)
	}
	start, err := assemble(match[1:5])
	if err != nil {
		return 0, 0, services.Wrap(services.ErrFormat, "timecode", "parse", fmt.Sprintf("invalid timing line %q", text), err)
	}
	end, err := assemble(match[5:9])
	if err != nil {
		return 0, 0, services.Wrap(services.ErrFormat, "timecode", "parse", fmt.Sprintf("invalid timing line %q", text), err)
	}
	return start, end, nil
}

// Format renders a non-negative offset in fixed-width SRT form, truncating
// sub-millisecond precision.
func Format(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	millis := d.Milliseconds()
	hours := millis / 3_600_000
	millis -= hours * 3_600_000
	minutes := millis / 60_000
	millis -= minutes * 60_000
	seconds := millis / 1_000
	millis -= seconds * 1_000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", hours, minutes, seconds, millis)
}

// FormatRange renders a start/end pair as one SRT timing line.
func FormatRange(start, end time.Duration) string {
	return Format(start) + " --> " + Format(end)
}

// Offset shifts a timestamp by delta. A negative result means the caller's
// segment arithmetic is broken, since offsets within a segment can never
// reach below the segment's start on the absolute timeline.
func Offset(d, delta time.Duration) (time.Duration, error) {
	shifted := d + delta
	if shifted < 0 {
		return 0, services.Wrap(services.ErrInvariant, "timecode", "offset",
			fmt.Sprintf("negative timestamp: %s shifted by %s", d, delta), nil)
	}
	return shifted, nil
}

func assemble(parts []string) (time.Duration, error) {
	hours, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, err
	}
	minutes, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, err
	}
	seconds, err := strconv.Atoi(parts[2])
	if err != nil {
		return 0, err
	}
	millis, err := strconv.Atoi(parts[3])
	if err != nil {
		return 0, err
	}
	if minutes > 59 || seconds > 59 {
		return 0, fmt.Errorf("minutes and seconds must be below 60")
	}
	total := time.Duration(hours)*time.Hour +
		time.Duration(minutes)*time.Minute +
		time.Duration(seconds)*time.Second +
		time.Duration(millis)*time.Millisecond
	return total, nil
}
