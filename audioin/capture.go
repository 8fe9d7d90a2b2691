// Package audioin supplies PCM audio to the coordinator: live capture
// from a system input device via malgo, or real-time-paced playback of a
// recorded WAV file for development without a pedal steel plugged in.
package audioin

import (
	"encoding/binary"
	"fmt"
	"log"
	"math"

	"github.com/gen2brain/malgo"

	"github.com/cwbudde/steel-capture/dsp"
	"github.com/cwbudde/steel-capture/steelcap"
)

// ChunkSize is the number of mono samples batched into each AudioChunk
// event: a quarter of the string detector's 4096-sample analysis window.
const ChunkSize = 1024

// Capture owns a live malgo input stream and feeds mono f32 chunks into
// an InputEvent channel. Call Close to stop the stream; it runs until
// then.
type Capture struct {
	ctx    *malgo.AllocatedContext
	device *malgo.Device
	Logger *log.Logger
}

// StartCapture opens the default input device, preferring 48kHz, mixes
// down to mono, and streams ChunkSize-sample AudioChunks into out. It
// returns once the device is running; capture continues on malgo's
// internal callback until Close is called.
func StartCapture(out chan<- steelcap.InputEvent) (*Capture, error) {
	logger := log.Default()

	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(message string) {
		logger.Printf("malgo: %s", message)
	})
	if err != nil {
		return nil, fmt.Errorf("malgo init context: %w", err)
	}

	config := malgo.DefaultDeviceConfig(malgo.Capture)
	config.Capture.Format = malgo.FormatF32
	config.Capture.Channels = 0 // device default; mixed down below
	config.SampleRate = 48000

	sampleRate := config.SampleRate
	channels := 1

	accum := make([]float32, 0, ChunkSize*4)
	dcBlock := dsp.NewHighpass(20.0, float32(sampleRate), 0.707)

	callbacks := malgo.DeviceCallbacks{
		Data: func(output, input []byte, frameCount uint32) {
			if len(input) == 0 {
				return
			}
			mono := mixMonoF32Bytes(input, channels)
			for i, s := range mono {
				mono[i] = dsp.FlushDenormals(dcBlock.Process(s))
			}
			accum = append(accum, mono...)
			for len(accum) >= ChunkSize {
				samples := make([]float32, ChunkSize)
				copy(samples, accum[:ChunkSize])
				accum = accum[ChunkSize:]
				event := steelcap.InputEvent{Audio: &steelcap.AudioChunk{
					Samples:    samples,
					SampleRate: sampleRate,
				}}
				select {
				case out <- event:
				default:
				}
			}
		},
	}

	device, err := malgo.InitDevice(ctx.Context, config, callbacks)
	if err != nil {
		ctx.Uninit()
		ctx.Free()
		return nil, fmt.Errorf("init capture device: %w", err)
	}
	channels = int(config.Capture.Channels)
	if channels == 0 {
		channels = 1
	}

	if err := device.Start(); err != nil {
		device.Uninit()
		ctx.Uninit()
		ctx.Free()
		return nil, fmt.Errorf("start capture device: %w", err)
	}

	logger.Printf("capture config: %dHz %d ch f32", sampleRate, channels)

	return &Capture{ctx: ctx, device: device, Logger: logger}, nil
}

// Close stops the stream and releases the malgo context.
func (c *Capture) Close() {
	if c.device != nil {
		c.device.Uninit()
	}
	if c.ctx != nil {
		c.ctx.Uninit()
		c.ctx.Free()
	}
}

// mixMonoF32Bytes decodes little-endian f32 PCM and averages interleaved
// channels down to mono.
func mixMonoF32Bytes(data []byte, channels int) []float32 {
	if channels <= 0 {
		channels = 1
	}
	frameCount := len(data) / 4 / channels
	out := make([]float32, frameCount)
	for f := 0; f < frameCount; f++ {
		var sum float32
		for c := 0; c < channels; c++ {
			off := (f*channels + c) * 4
			bits := binary.LittleEndian.Uint32(data[off : off+4])
			sum += math.Float32frombits(bits)
		}
		out[f] = sum / float32(channels)
	}
	return out
}
