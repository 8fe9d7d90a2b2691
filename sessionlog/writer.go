package sessionlog

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"

	"github.com/cwbudde/steel-capture/steelcap"
)

// DataLogger drains a CaptureFrame stream and an AudioChunk stream into a
// session directory: frames.jsonl (header + one CompactFrame per line),
// audio_raw.bin (raw f32 little-endian samples), manifest.json, and, once
// Run returns, stats.json.
type DataLogger struct {
	frames    <-chan steelcap.CaptureFrame
	audio     <-chan *steelcap.AudioChunk
	sessionDir string
	copedant  steelcap.Copedant
	Logger    *log.Logger
}

// NewDataLogger creates the session directory (outputDir/session_<unix
// timestamp>) and returns a logger ready to Run.
func NewDataLogger(frames <-chan steelcap.CaptureFrame, audio <-chan *steelcap.AudioChunk, outputDir string, copedant steelcap.Copedant, unixTimestamp int64) (*DataLogger, error) {
	sessionDir := filepath.Join(outputDir, fmt.Sprintf("session_%d", unixTimestamp))
	if err := os.MkdirAll(sessionDir, 0o755); err != nil {
		return nil, fmt.Errorf("create session dir: %w", err)
	}
	return &DataLogger{
		frames:     frames,
		audio:      audio,
		sessionDir: sessionDir,
		copedant:   copedant,
		Logger:     log.Default(),
	}, nil
}

// SessionDir returns the directory this logger is writing into.
func (d *DataLogger) SessionDir() string {
	return d.sessionDir
}

// Run drains both channels until frames is closed, writing as it goes.
// Blocks the calling goroutine.
func (d *DataLogger) Run() error {
	d.Logger.Printf("data logger -> %s", d.sessionDir)

	if err := d.writeManifest(); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}

	framesFile, err := os.Create(filepath.Join(d.sessionDir, "frames.jsonl"))
	if err != nil {
		return fmt.Errorf("create frames file: %w", err)
	}
	defer framesFile.Close()

	enc := json.NewEncoder(framesFile)
	if err := enc.Encode(buildHeader(d.copedant)); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	audioFile, err := os.Create(filepath.Join(d.sessionDir, "audio_raw.bin"))
	if err != nil {
		return fmt.Errorf("create audio file: %w", err)
	}
	defer audioFile.Close()

	var audioSampleCount uint64
	var audioSampleRate uint32 = 48000
	var frameCount uint64

	drainAudio := func() {
		for {
			select {
			case chunk, ok := <-d.audio:
				if !ok {
					return
				}
				audioSampleRate = chunk.SampleRate
				buf := make([]byte, 4)
				for _, s := range chunk.Samples {
					binary.LittleEndian.PutUint32(buf, math.Float32bits(s))
					audioFile.Write(buf)
					audioSampleCount++
				}
			default:
				return
			}
		}
	}

	for frame := range d.frames {
		drainAudio()

		compact := frame.ToCompact()
		if err := enc.Encode(compact); err != nil {
			d.Logger.Printf("write frame: %v", err)
			continue
		}
		frameCount++

		if frameCount%1000 == 0 {
			d.Logger.Printf("logged %d frames, %d audio samples", frameCount, audioSampleCount)
		}
	}
	drainAudio()

	stats := map[string]any{
		"total_frames":       frameCount,
		"total_audio_samples": audioSampleCount,
		"audio_sample_rate":  audioSampleRate,
	}
	statsBytes, err := json.MarshalIndent(stats, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal stats: %w", err)
	}
	if err := os.WriteFile(filepath.Join(d.sessionDir, "stats.json"), statsBytes, 0o644); err != nil {
		d.Logger.Printf("failed to write stats: %v", err)
	}

	d.Logger.Printf("session saved: %d frames, %d audio samples -> %s", frameCount, audioSampleCount, d.sessionDir)
	return nil
}

func (d *DataLogger) writeManifest() error {
	manifest := map[string]any{
		"system":   "steel-capture",
		"copedant": buildCopedantDoc(d.copedant),
		"sensor_config": map[string]any{
			"channels":    13,
			"rate_hz":     1000,
			"pedals":      steelcap.PedalNames,
			"knee_levers": steelcap.LeverNames,
		},
		"audio_config": map[string]any{
			"format":      "f32le",
			"channels":    1,
			"sample_rate": 48000,
			"bit_depth":   32,
		},
	}
	b, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(d.sessionDir, "manifest.json"), b, 0o644)
}
