package subtitle

import (
	"errors"
	"testing"
	"time"

	"scriber/internal/segment"
	"scriber/internal/services"
)

func seg(index int, start, end time.Duration) segment.Segment {
	return segment.Segment{Index: index, Start: start, End: end}
}

func TestMergeOffsetsAndRenumbers(t *testing.T) {
	parts := []Part{
		{Segment: seg(1, 0, 60*time.Second), Raw: "1\n00:00:00,000 --> 00:00:02,000\nHi\n"},
		{Segment: seg(2, 60*time.Second, 120*time.Second), Raw: "1\n00:00:00,000 --> 00:00:01,500\nBye\n"},
	}

	merged, err := Merge(parts)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if len(merged) != 2 {
		t.Fatalf("expected 2 cues, got %d", len(merged))
	}
	if merged[0].Index != 1 || merged[1].Index != 2 {
		t.Errorf("indices = %d, %d", merged[0].Index, merged[1].Index)
	}
	if merged[0].Start != 0 || merged[0].End != 2*time.Second {
		t.Errorf("cue 1 timing = %v-%v", merged[0].Start, merged[0].End)
	}
	if merged[1].Start != time.Minute || merged[1].End != time.Minute+1500*time.Millisecond {
		t.Errorf("cue 2 timing = %v-%v", merged[1].Start, merged[1].End)
	}

	want := `1
00:00:00,000 --> 00:00:02,000
Hi

2
00:01:00,000 --> 00:01:01,500
Bye
`
	if got := Render(merged); got != want {
		t.Errorf("Render =\n%q\nwant\n%q", got, want)
	}
}

func TestMergeSkipsSilentSegments(t *testing.T) {
	parts := []Part{
		{Segment: seg(1, 0, 60*time.Second), Raw: "1\n00:00:01,000 --> 00:00:02,000\nFirst\n"},
		{Segment: seg(2, 60*time.Second, 120*time.Second), Raw: ""},
		{Segment: seg(3, 120*time.Second, 150*time.Second), Raw: "1\n00:00:05,000 --> 00:00:06,000\nLast\n"},
	}

	merged, err := Merge(parts)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if len(merged) != 2 {
		t.Fatalf("expected 2 cues, got %d", len(merged))
	}
	if merged[1].Start != 125*time.Second {
		t.Errorf("last cue start = %v, want 2m5s", merged[1].Start)
	}
}

func TestMergeCountsAndOrdering(t *testing.T) {
	// Three segments with 2, 3, and 1 cues: merged track must hold exactly
	// 6 cues indexed 1..6 with strictly increasing start times.
	parts := []Part{
		{Segment: seg(1, 0, 30*time.Second), Raw: "1\n00:00:01,000 --> 00:00:02,000\na\n\n2\n00:00:03,000 --> 00:00:04,000\nb\n"},
		{Segment: seg(2, 30*time.Second, 60*time.Second), Raw: "1\n00:00:00,500 --> 00:00:01,000\nc\n\n2\n00:00:02,000 --> 00:00:03,000\nd\n\n3\n00:00:04,000 --> 00:00:05,000\ne\n"},
		{Segment: seg(3, 60*time.Second, 90*time.Second), Raw: "1\n00:00:10,000 --> 00:00:11,000\nf\n"},
	}

	merged, err := Merge(parts)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if len(merged) != 6 {
		t.Fatalf("expected 6 cues, got %d", len(merged))
	}
	for i, cue := range merged {
		if cue.Index != i+1 {
			t.Errorf("cue %d has index %d", i, cue.Index)
		}
		if i > 0 && cue.Start <= merged[i-1].Start {
			t.Errorf("cue %d start %v not after previous %v", i+1, cue.Start, merged[i-1].Start)
		}
	}
}

func TestMergeFailsOnMalformedSegment(t *testing.T) {
	parts := []Part{
		{Segment: seg(1, 0, 60*time.Second), Raw: "1\n00:00:00,000 --> 00:00:01,000\nok\n"},
		{Segment: seg(2, 60*time.Second, 120*time.Second), Raw: "garbage"},
	}

	_, err := Merge(parts)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrFormat) {
		t.Fatalf("expected format marker, got %v", err)
	}
}
