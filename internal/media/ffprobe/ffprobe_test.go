package ffprobe

import (
	"context"
	"errors"
	"testing"
	"time"
)

const probeJSON = `{
  "streams": [
    {"index": 0, "codec_name": "h264", "codec_type": "video", "width": 1920, "height": 1080},
    {"index": 1, "codec_name": "aac", "codec_type": "audio", "sample_rate": "48000", "channels": 2}
  ],
  "format": {"filename": "in.mp4", "nb_streams": 2, "duration": "150.250000", "format_name": "mov,mp4"}
}`

func fakeRunner(output string, err error) Runner {
	return func(ctx context.Context, name string, args ...string) ([]byte, error) {
		return []byte(output), err
	}
}

func TestInspectParsesStreams(t *testing.T) {
	result, err := Inspect(context.Background(), "ffprobe", "in.mp4", fakeRunner(probeJSON, nil))
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	if !result.HasVideo() || !result.HasAudio() {
		t.Errorf("expected video and audio streams, got %+v", result.Streams)
	}

	duration, err := result.Duration()
	if err != nil {
		t.Fatalf("Duration: %v", err)
	}
	want := 150*time.Second + 250*time.Millisecond
	if duration != want {
		t.Errorf("duration = %v, want %v", duration, want)
	}
}

func TestInspectToolFailure(t *testing.T) {
	boom := errors.New("exit status 1")
	_, err := Inspect(context.Background(), "ffprobe", "in.mp4", fakeRunner("moov atom not found", boom))
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, boom) {
		t.Fatalf("expected underlying error preserved, got %v", err)
	}
}

func TestInspectEmptyPath(t *testing.T) {
	if _, err := Inspect(context.Background(), "ffprobe", "  ", nil); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestDurationMissing(t *testing.T) {
	result, err := Inspect(context.Background(), "ffprobe", "in.mp4", fakeRunner(`{"format":{}}`, nil))
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	if _, err := result.Duration(); err == nil {
		t.Fatal("expected error for missing duration")
	}
}
