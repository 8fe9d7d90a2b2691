package steelcap

import "log"

// fretCandidates are the 241 fret positions (0.0 to 24.0 in 0.1 steps)
// the audio estimator scores against the buffered signal.
var fretCandidates = buildFretCandidates()

func buildFretCandidates() []float64 {
	c := make([]float64, 241)
	for i := range c {
		c[i] = float64(i) / 10.0
	}
	return c
}

// BarInference fuses two independent bar-position sources:
//
//  1. The Hall sensor array (BarSensor) — direct magnetic position, works
//     during silence, about +/-0.3 fret accuracy.
//  2. Audio spectral matching — Goertzel magnitude at the predicted string
//     frequencies for each fret candidate, refined to sub-0.1-fret precision
//     by parabolic interpolation around the best candidate. About +/-0.1
//     fret when the signal is clean, but requires strings to be sounding.
//
// When both agree (within 2 frets) the fused estimate blends toward audio
// (finer resolution); when they disagree by more than 2 frets the audio
// estimate is treated as a harmonic-alias mismatch and the sensor wins at
// reduced confidence, with the result's source reported as Sensor.
type BarInference struct {
	SilenceThreshold float64
	Smoothing        float64
	LastPosition     *float64

	analysisWindow       int
	samplesSinceAnalysis int
	analysisInterval     int
	sampleRate           float64

	audioBuf  []float32
	barSensor *BarSensor

	Logger *log.Logger
}

// NewBarInference returns a BarInference with production defaults:
// silence threshold 0.005, smoothing 0.7, 4096-sample analysis window
// (~85ms at 48kHz, enough to resolve the lowest string at ~123Hz),
// analysis every 2048 samples (~42ms), 48kHz assumed sample rate until a
// chunk with a different rate is pushed.
func NewBarInference() *BarInference {
	return &BarInference{
		SilenceThreshold: 0.005,
		Smoothing:        0.7,
		analysisWindow:   4096,
		analysisInterval: 2048,
		sampleRate:       48000,
		audioBuf:         make([]float32, 0, 8192),
		barSensor:        NewBarSensor(),
	}
}

// PushAudio appends samples to the internal ring buffer, bounded to 2x the
// analysis window.
func (b *BarInference) PushAudio(chunk *AudioChunk) {
	b.sampleRate = float64(chunk.SampleRate)
	b.audioBuf = append(b.audioBuf, chunk.Samples...)
	b.samplesSinceAnalysis += len(chunk.Samples)

	maxLen := b.analysisWindow * 2
	if len(b.audioBuf) > maxLen {
		excess := len(b.audioBuf) - maxLen
		b.audioBuf = append(b.audioBuf[:0], b.audioBuf[excess:]...)
	}
}

// Ready reports whether enough audio has accumulated to run analysis.
func (b *BarInference) Ready() bool {
	return len(b.audioBuf) >= b.analysisWindow && b.samplesSinceAnalysis >= b.analysisInterval
}

// Infer runs bar-position inference, fusing the Hall-sensor and audio
// estimates per sensor.BarSensors and the internally buffered audio.
func (b *BarInference) Infer(s *SensorFrame, engine *Engine) BarState {
	sPos, sConf, sOK := b.barSensor.Estimate(s.BarSensors)
	aPos, aConf, aOK := b.inferAudio(s, engine)

	switch {
	case sOK && aOK:
		disagreement := sPos - aPos
		if disagreement < 0 {
			disagreement = -disagreement
		}
		var pos, conf float64
		source := BarSourceFused
		if disagreement < 2.0 {
			const audioWeight = 0.6
			pos = sPos*(1.0-audioWeight) + aPos*audioWeight
			conf = sConf*0.5 + aConf*0.5
			if conf > 1.0 {
				conf = 1.0
			}
		} else {
			if b.Logger != nil {
				b.Logger.Printf("bar fusion: disagreement %.1f frets, trusting sensor", disagreement)
			}
			pos = sPos
			conf = sConf * 0.8
			source = BarSourceSensor
		}
		smoothed := b.smooth(pos)
		return BarState{Position: &smoothed, Confidence: conf, Source: source}

	case sOK:
		smoothed := b.smooth(sPos)
		return BarState{Position: &smoothed, Confidence: sConf * 0.8, Source: BarSourceSensor}

	case aOK:
		smoothed := b.smooth(aPos)
		return BarState{Position: &smoothed, Confidence: aConf * 0.7, Source: BarSourceAudio}

	default:
		b.LastPosition = nil
		return BarState{Source: BarSourceNone}
	}
}

func (b *BarInference) smooth(pos float64) float64 {
	var smoothed float64
	if b.LastPosition != nil {
		alpha := 1.0 - b.Smoothing
		smoothed = *b.LastPosition + alpha*(pos-*b.LastPosition)
	} else {
		smoothed = pos
	}
	b.LastPosition = &smoothed
	return smoothed
}

// inferAudio scores every fret candidate's predicted spectrum against the
// most recent analysis window and returns (fret, confidence, ok).
func (b *BarInference) inferAudio(s *SensorFrame, engine *Engine) (float64, float64, bool) {
	if !b.Ready() {
		return 0, 0, false
	}
	b.samplesSinceAnalysis = 0

	start := len(b.audioBuf) - b.analysisWindow
	if start < 0 {
		start = 0
	}
	samples := b.audioBuf[start:]

	rms := computeRMS(samples)
	if rms < b.SilenceThreshold {
		return 0, 0, false
	}

	open := engine.EffectiveOpenPitches(s)
	sr := b.sampleRate

	bestFret := 0.0
	bestScore := 0.0
	totalScore := 0.0
	for _, fret := range fretCandidates {
		score := scoreFret(fret, open, samples, sr)
		if score > bestScore {
			bestScore = score
			bestFret = fret
		}
		totalScore += score
	}

	if bestScore < 1e-10 || totalScore < 1e-10 {
		return 0, 0, false
	}

	avgScore := totalScore / float64(len(fretCandidates))
	confidence := clamp((bestScore/avgScore-1.0)/10.0, 0.1, 1.0)

	refined := refineFret(bestFret, open, samples, sr)

	if b.Logger != nil {
		b.Logger.Printf("audio: fret=%.2f (from %.1f) conf=%.2f score=%.2e", refined, bestFret, confidence, bestScore)
	}

	return refined, confidence, true
}

// scoreFret sums Goertzel magnitudes across all ten strings' predicted
// frequencies for a candidate fret, biased by a gentle prior favoring the
// typical 0-15 fret playing range — this breaks ties between harmonically
// equivalent positions (e.g. fret 5 and fret 17 can match the same audio
// in E9 tuning).
func scoreFret(fret float64, openMidi [10]float64, samples []float32, sr float64) float64 {
	score := 0.0
	n := len(samples)
	for _, midi := range openMidi {
		freq := MidiToHz(midi + fret)
		if freq > sr/2.0 || freq < 20.0 {
			continue
		}
		score += goertzelMagnitude(samples, freq, sr, n)
	}

	var prior float64
	switch {
	case fret <= 12.0:
		prior = 1.0
	case fret <= 15.0:
		prior = 1.0 - (fret-12.0)*0.02
	default:
		prior = 0.94 - (fret-15.0)*0.03
	}
	return score * prior
}

// refineFret applies parabolic interpolation around the best-scoring
// candidate for sub-0.1-fret precision.
func refineFret(best float64, open [10]float64, samples []float32, sr float64) float64 {
	const step = 0.1
	below := best - step
	if below < 0 {
		below = 0
	}
	above := best + step
	if above > 24.0 {
		above = 24.0
	}
	sBelow := scoreFret(below, open, samples, sr)
	sCenter := scoreFret(best, open, samples, sr)
	sAbove := scoreFret(above, open, samples, sr)
	denom := sBelow - 2.0*sCenter + sAbove
	absDenom := denom
	if absDenom < 0 {
		absDenom = -absDenom
	}
	if absDenom < 1e-20 {
		return best
	}
	offset := 0.5 * (sBelow - sAbove) / denom
	return clamp(best+offset*step, 0, 24.0)
}
