package sessionlog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cwbudde/steel-capture/steelcap"
)

func TestDataLoggerWritesSession(t *testing.T) {
	frames := make(chan steelcap.CaptureFrame, 4)
	audio := make(chan *steelcap.AudioChunk, 4)

	dl, err := NewDataLogger(frames, audio, t.TempDir(), steelcap.NewBuddyEmmonsE9(), 1234)
	if err != nil {
		t.Fatalf("NewDataLogger: %v", err)
	}

	audio <- &steelcap.AudioChunk{Samples: []float32{0.1, -0.2, 0.3}, SampleRate: 48000}
	frames <- steelcap.CaptureFrame{TimestampUs: 1}
	frames <- steelcap.CaptureFrame{TimestampUs: 2}
	close(frames)
	close(audio)

	if err := dl.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}

	dir := dl.SessionDir()
	if filepath.Base(dir) != "session_1234" {
		t.Errorf("session dir = %q, want basename session_1234", dir)
	}

	for _, name := range []string{"manifest.json", "frames.jsonl", "audio_raw.bin", "stats.json"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("expected %s to exist: %v", name, err)
		}
	}

	raw, err := os.ReadFile(filepath.Join(dir, "audio_raw.bin"))
	if err != nil {
		t.Fatalf("read audio_raw.bin: %v", err)
	}
	if len(raw) != 3*4 {
		t.Errorf("audio_raw.bin len = %d, want 12", len(raw))
	}

	r, err := Open(mustOpen(t, filepath.Join(dir, "frames.jsonl")))
	if err != nil {
		t.Fatalf("Open frames.jsonl: %v", err)
	}
	got := r.ReadAll()
	if len(got) != 2 {
		t.Fatalf("len(frames) = %d, want 2", len(got))
	}
}

func mustOpen(t *testing.T, path string) *os.File {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	t.Cleanup(func() { f.Close() })
	return f
}
