// Package subtitle models SRT cue tracks: strict parsing, rendering, and the
// merge that re-times per-segment tracks onto the absolute video timeline.
package subtitle

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"scriber/internal/services"
	"scriber/internal/timecode"
)

// Cue is one timed subtitle entry.
type Cue struct {
	Index int
	Start time.Duration
	End   time.Duration
	Lines []string
}

// Track is an ordered sequence of cues.
type Track []Cue

// ParseTrack decodes raw SRT text into cues. Parsing is strict: a malformed
// block fails the whole track rather than being skipped, because a corrupt
// segment invalidates the merged result. Empty input yields an empty track.
func ParseTrack(raw string) (Track, error) {
	content := strings.ReplaceAll(raw, "\r\n", "\n")
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, nil
	}

	var track Track
	for _, block := range strings.Split(content, "\n\n") {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}
		cue, err := parseBlock(block)
		if err != nil {
			return nil, err
		}
		track = append(track, cue)
	}
	return track, nil
}

func parseBlock(block string) (Cue, error) {
	lines := strings.Split(block, "\n")
	if len(lines) < 3 {
		return Cue{}, services.Wrap(services.ErrFormat, "subtitle", "parse",
			fmt.Sprintf("cue block %q needs index, timing, and text lines", firstLine(block)), nil)
	}

	index, err := strconv.Atoi(strings.TrimSpace(lines[0]))
	if err != nil {
		return Cue{}, services.Wrap(services.ErrFormat, "subtitle", "parse",
			fmt.Sprintf("cue index %q is not an integer", lines[0]), nil)
	}

	start, end, err := timecode.ParseRange(strings.TrimSpace(lines[1]))
	if err != nil {
		return Cue{}, err
	}

	text := lines[2:]
	for _, line := range text {
		if strings.TrimSpace(line) == "" {
			return Cue{}, services.Wrap(services.ErrFormat, "subtitle", "parse",
				fmt.Sprintf("cue %d contains a blank text line", index), nil)
		}
	}

	return Cue{Index: index, Start: start, End: end, Lines: text}, nil
}

// Render encodes a track as SRT text with a trailing newline.
func Render(track Track) string {
	if len(track) == 0 {
		return ""
	}
	var b strings.Builder
	for i, cue := range track {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(strconv.Itoa(cue.Index))
		b.WriteString("\n")
		b.WriteString(timecode.FormatRange(cue.Start, cue.End))
		b.WriteString("\n")
		for _, line := range cue.Lines {
			b.WriteString(line)
			b.WriteString("\n")
		}
	}
	return b.String()
}

func firstLine(block string) string {
	if i := strings.IndexByte(block, '\n'); i >= 0 {
		return block[:i]
	}
	return block
}
