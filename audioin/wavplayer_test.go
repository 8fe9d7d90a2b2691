package audioin

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cwbudde/wav"
	"github.com/go-audio/audio"

	"github.com/cwbudde/steel-capture/steelcap"
)

func writeTestWav(t *testing.T, path string, sampleRate int, numSamples int) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create wav: %v", err)
	}
	defer f.Close()

	enc := wav.NewEncoder(f, sampleRate, 16, 1, 1)
	defer enc.Close()

	data := make([]int, numSamples)
	for i := range data {
		data[i] = i % 100
	}
	buf := &audio.IntBuffer{
		Format:         &audio.Format{SampleRate: sampleRate, NumChannels: 1},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatalf("write wav: %v", err)
	}
}

func TestWavPlayerStreamsChunks(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.wav")
	writeTestWav(t, path, 48000, ChunkSize*3)

	player := NewWavPlayer(path)
	out := make(chan steelcap.InputEvent, 16)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := player.Run(ctx, out); err != nil {
		t.Fatalf("Run: %v", err)
	}
	close(out)

	count := 0
	for ev := range out {
		if ev.Audio == nil {
			t.Fatal("expected Audio event")
		}
		count++
	}
	if count != 3 {
		t.Errorf("got %d chunks, want 3", count)
	}
}

func TestWavPlayerMissingFile(t *testing.T) {
	player := NewWavPlayer(filepath.Join(t.TempDir(), "missing.wav"))
	out := make(chan steelcap.InputEvent, 4)
	if err := player.Run(context.Background(), out); err == nil {
		t.Fatal("expected error for missing file")
	}
}
