package subtitle

import (
	"errors"
	"testing"
	"time"

	"scriber/internal/services"
)

const sampleTrack = `1
00:00:01,000 --> 00:00:02,500
Hello there.

2
00:00:03,000 --> 00:00:05,000
Two lines of
dialogue here.
`

func TestParseTrack(t *testing.T) {
	track, err := ParseTrack(sampleTrack)
	if err != nil {
		t.Fatalf("ParseTrack: %v", err)
	}
	if len(track) != 2 {
		t.Fatalf("expected 2 cues, got %d", len(track))
	}
	if track[0].Start != time.Second || track[0].End != 2500*time.Millisecond {
		t.Errorf("cue 1 timing = %v-%v", track[0].Start, track[0].End)
	}
	if len(track[1].Lines) != 2 {
		t.Errorf("cue 2 lines = %v", track[1].Lines)
	}
}

func TestParseTrackEmptyInput(t *testing.T) {
	for _, input := range []string{"", "   \n\n  "} {
		track, err := ParseTrack(input)
		if err != nil {
			t.Fatalf("ParseTrack(%q): %v", input, err)
		}
		if len(track) != 0 {
			t.Fatalf("ParseTrack(%q): expected empty track", input)
		}
	}
}

func TestParseTrackCRLF(t *testing.T) {
	track, err := ParseTrack("1\r\n00:00:00,000 --> 00:00:01,000\r\nHi\r\n")
	if err != nil {
		t.Fatalf("ParseTrack: %v", err)
	}
	if len(track) != 1 || track[0].Lines[0] != "Hi" {
		t.Fatalf("track = %+v", track)
	}
}

func TestParseTrackRejectsMalformedBlocks(t *testing.T) {
	cases := map[string]string{
		"missing text":   "1\n00:00:00,000 --> 00:00:01,000",
		"bad index":      "one\n00:00:00,000 --> 00:00:01,000\nHi\n",
		"bad timing":     "1\n00:00:00 --> 00:00:01\nHi\n",
		"timing missing": "1\nHi\nthere\n",
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseTrack(input)
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.Is(err, services.ErrFormat) {
				t.Fatalf("expected format marker, got %v", err)
			}
		})
	}
}

func TestRenderRoundTrip(t *testing.T) {
	track, err := ParseTrack(sampleTrack)
	if err != nil {
		t.Fatal(err)
	}
	if got := Render(track); got != sampleTrack {
		t.Errorf("Render =\n%q\nwant\n%q", got, sampleTrack)
	}
}

func TestRenderEmptyTrack(t *testing.T) {
	if got := Render(nil); got != "" {
		t.Errorf("Render(nil) = %q, want empty", got)
	}
}
