// Package calibrator measures per-string onset/release energy
// thresholds from a scripted pluck/silence routine and writes them to a
// Calibration file.
package calibrator

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/cwbudde/steel-capture/steelcap"
)

const analysisWindow = 4096

// Calibrator drives a fixed-duration pluck/silence routine per string
// over an audio-only input stream and derives onset/release thresholds
// from the resulting bimodal energy distribution.
type Calibrator struct {
	audio  <-chan steelcap.InputEvent
	engine *steelcap.Engine
	Logger *log.Logger
}

// NewCalibrator prepares a calibration run against engine's open-string
// tuning (bar assumed at the nut, no pedals/levers engaged).
func NewCalibrator(audio <-chan steelcap.InputEvent, engine *steelcap.Engine) *Calibrator {
	return &Calibrator{audio: audio, engine: engine, Logger: log.Default()}
}

// Run steps through all ten strings, collecting perStringSeconds of
// pluck energy followed by perStringSeconds of silence energy for each,
// and returns the derived Calibration. The caller is responsible for
// prompting the player between strings (e.g. via stdout) — Run itself
// only paces the audio windows.
func (c *Calibrator) Run(ctx context.Context, perStringSeconds float64, onString func(idx int, name string, freqHz float64)) (*steelcap.Calibration, error) {
	open := c.engine.EffectiveOpenPitches(&steelcap.SensorFrame{})

	cal := &steelcap.Calibration{}
	for si := 0; si < 10; si++ {
		freq := steelcap.MidiToHz(open[si])
		name := steelcap.E9StringNames[si]
		if onString != nil {
			onString(si, name, freq)
		}

		pluck, err := c.collectEnergySamples(ctx, freq, perStringSeconds)
		if err != nil {
			return nil, fmt.Errorf("collect pluck samples for string %d: %w", si+1, err)
		}
		silence, err := c.collectEnergySamples(ctx, freq, perStringSeconds)
		if err != nil {
			return nil, fmt.Errorf("collect silence samples for string %d: %w", si+1, err)
		}

		onset, release := computeThresholds(pluck, silence, c.Logger)
		cal.Strings[si] = steelcap.StringThreshold{Onset: onset, Release: release}
	}

	return cal, nil
}

// collectEnergySamples drains audio chunks for durationSecs, returning
// one Goertzel energy measurement per full analysis window.
func (c *Calibrator) collectEnergySamples(ctx context.Context, freq float64, durationSecs float64) ([]float64, error) {
	sampleRate := uint32(48000)
	totalTarget := int(durationSecs * float64(sampleRate))

	var audioBuf []float32
	var collected int
	var energies []float64

	for collected < totalTarget {
		select {
		case <-ctx.Done():
			return energies, ctx.Err()
		case ev, ok := <-c.audio:
			if !ok {
				return energies, fmt.Errorf("audio channel closed during calibration")
			}
			if ev.Audio == nil {
				continue
			}
			sampleRate = ev.Audio.SampleRate
			audioBuf = append(audioBuf, ev.Audio.Samples...)
			collected += len(ev.Audio.Samples)

			sr := float64(sampleRate)
			for len(audioBuf) >= analysisWindow {
				window := audioBuf[:analysisWindow]
				mag := steelcap.GoertzelMagnitude(window, freq, sr, analysisWindow)
				var mag2 float64
				if freq*2.0 < sr/2.0 {
					mag2 = steelcap.GoertzelMagnitude(window, freq*2.0, sr, analysisWindow)
				}
				energies = append(energies, (mag+0.3*mag2)/float64(analysisWindow))
				audioBuf = audioBuf[analysisWindow:]
			}
		case <-time.After(500 * time.Millisecond):
			return energies, fmt.Errorf("audio channel timed out during calibration")
		}
	}

	return energies, nil
}

// computeThresholds derives onset/release from pluck vs silence energy
// distributions: onset sits at the midpoint between the pluck floor
// (p75) and the noise ceiling (p75), release at 0.4x onset. p75 is used
// rather than the median because the first windows after a pick attack
// may still be partially silent and steel string energy decays, so the
// upper quartile best represents sustained ringing.
func computeThresholds(pluck, silence []float64, logger *log.Logger) (float64, float64) {
	if len(pluck) == 0 || len(silence) == 0 {
		logger.Printf("no energy samples collected, using default thresholds")
		return 0.02, 0.008
	}

	pluckP75 := percentile(pluck, 75)
	pluckMedian := percentile(pluck, 50)
	silenceP75 := percentile(silence, 75)
	silenceMedian := percentile(silence, 50)

	ratio := fmt.Sprintf("%.1f", pluckP75/max(silenceP75, 1e-10))
	logger.Printf("pluck: median=%.5f p75=%.5f | silence: median=%.5f p75=%.5f | ratio=%sx",
		pluckMedian, pluckP75, silenceMedian, silenceP75, ratio)

	if pluckP75 < 1e-8 {
		logger.Printf("no pluck energy detected (p75=%.2e); mic may not be picking up the instrument", pluckP75)
		return 0.02, 0.008
	}

	if pluckP75 <= silenceP75 {
		onset := silenceP75 * 1.5
		release := silenceP75 * 1.1
		logger.Printf("pluck energy (%.5f) <= noise floor (%.5f), setting onset above noise floor: %.5f", pluckP75, silenceP75, onset)
		return onset, release
	}

	onset := (pluckP75 + silenceP75) / 2.0
	release := onset * 0.4

	if pluckP75/silenceP75 < 3.0 {
		logger.Printf("marginal separation (%.1fx); detection may be unreliable", pluckP75/silenceP75)
	}

	return onset, release
}

func percentile(v []float64, p int) float64 {
	if len(v) == 0 {
		return 0
	}
	sorted := make([]float64, len(v))
	copy(sorted, v)
	sort.Float64s(sorted)
	idx := (p * len(sorted)) / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
