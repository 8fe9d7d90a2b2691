package audioin

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/cwbudde/wav"

	"github.com/cwbudde/steel-capture/steelcap"
)

// WavPlayer streams a recorded WAV file as AudioChunk events at
// real-time pace, for validating Goertzel thresholds against a known
// recording before any hardware is wired up. Pairs with the simulator,
// which supplies pedal/lever/bar ground truth while the WAV supplies
// audio.
type WavPlayer struct {
	path   string
	Logger *log.Logger
}

// NewWavPlayer prepares a player for the WAV file at path.
func NewWavPlayer(path string) *WavPlayer {
	return &WavPlayer{path: path, Logger: log.Default()}
}

// Run opens the file, mixes it to mono, and streams ChunkSize-sample
// chunks into out at the file's own real-time pace, stopping early if
// ctx is cancelled (including while blocked on a send to out).
func (p *WavPlayer) Run(ctx context.Context, out chan<- steelcap.InputEvent) error {
	f, err := os.Open(p.path)
	if err != nil {
		return fmt.Errorf("open wav file %s: %w", p.path, err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return fmt.Errorf("invalid wav file: %s", p.path)
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return fmt.Errorf("decode wav file: %w", err)
	}
	if buf == nil || buf.Format == nil || buf.Format.NumChannels < 1 {
		return fmt.Errorf("invalid wav buffer: %s", p.path)
	}

	sampleRate := uint32(buf.Format.SampleRate)
	channels := buf.Format.NumChannels

	p.Logger.Printf("wav: %s  %d Hz  %d ch  %d bit", p.path, sampleRate, channels, buf.SourceBitDepth)

	frames := len(buf.Data) / channels
	mono := make([]float32, frames)
	maxVal := float32(int(1) << (buf.SourceBitDepth - 1))
	if maxVal <= 0 {
		maxVal = 32768
	}
	for i := 0; i < frames; i++ {
		var sum float32
		for c := 0; c < channels; c++ {
			sum += float32(buf.Data[i*channels+c]) / maxVal
		}
		mono[i] = sum / float32(channels)
	}

	if sampleRate != TargetSampleRate {
		p.Logger.Printf("resampling wav from %d Hz to %d Hz", sampleRate, TargetSampleRate)
		resampled, err := resampleMono(mono, sampleRate)
		if err != nil {
			return fmt.Errorf("resample wav: %w", err)
		}
		mono = resampled
		sampleRate = TargetSampleRate
	}

	durationSecs := float64(len(mono)) / float64(sampleRate)
	p.Logger.Printf("wav: %.2fs, %d samples, streaming at real-time pace", durationSecs, len(mono))

	chunkDur := time.Duration(float64(ChunkSize) / float64(sampleRate) * float64(time.Second))
	start := time.Now()

	for i := 0; i*ChunkSize < len(mono); i++ {
		lo := i * ChunkSize
		hi := lo + ChunkSize
		if hi > len(mono) {
			hi = len(mono)
		}
		chunk := mono[lo:hi]

		target := chunkDur * time.Duration(i)
		if elapsed := time.Since(start); elapsed < target {
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(target - elapsed):
			}
		}

		samples := make([]float32, len(chunk))
		copy(samples, chunk)
		event := steelcap.InputEvent{Audio: &steelcap.AudioChunk{
			Samples:    samples,
			SampleRate: sampleRate,
		}}

		select {
		case out <- event:
		case <-ctx.Done():
			return nil
		}
	}

	p.Logger.Printf("wav playback complete")
	return nil
}
