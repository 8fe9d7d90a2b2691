package steelcap

// StringDetector runs a ten-string matched-filter bank over buffered audio:
// each string's fundamental (plus a weighted second-harmonic contribution)
// is scored via Goertzel magnitude at the frequency the current bar
// position predicts, smoothed, and run through a hysteresis state machine
// to produce a stable active/inactive flag and a one-shot attack edge.
//
// Amplitude is peak-normalized rather than reported as raw smoothed energy:
// each string tracks a slowly decaying peak (half-life ~3.6s at the ~24Hz
// analysis cadence) and amplitude is energy/peak clamped to [0,1]. This
// keeps amplitude comparable across strings and playing dynamics instead of
// being a bare energy unit the caller would have to normalize itself.
type StringDetector struct {
	Energy  [10]float64
	Peak    [10]float64
	Active  [10]bool
	Onset   [10]float64
	Release [10]float64

	analysisWindow       int
	samplesSinceAnalysis int
	analysisInterval     int
	sampleRate           float64

	audioBuf []float32
}

// NewStringDetector returns a StringDetector with production defaults:
// onset 0.02 / release 0.008 per string, 4096-sample analysis window,
// analysis every 2048 samples, peak floor 0.01.
func NewStringDetector() *StringDetector {
	d := &StringDetector{
		analysisWindow:   4096,
		analysisInterval: 2048,
		sampleRate:       48000,
		audioBuf:         make([]float32, 0, 8192),
	}
	for i := range d.Onset {
		d.Onset[i] = 0.02
		d.Release[i] = 0.008
		d.Peak[i] = 0.01
	}
	return d
}

// SetThresholds overrides the per-string onset/release thresholds, e.g.
// from a loaded Calibration.
func (d *StringDetector) SetThresholds(onset, release [10]float64) {
	d.Onset = onset
	d.Release = release
}

// PushAudio appends samples to the internal ring buffer, bounded to 2x the
// analysis window.
func (d *StringDetector) PushAudio(chunk *AudioChunk) {
	d.sampleRate = float64(chunk.SampleRate)
	d.audioBuf = append(d.audioBuf, chunk.Samples...)
	d.samplesSinceAnalysis += len(chunk.Samples)

	maxLen := d.analysisWindow * 2
	if len(d.audioBuf) > maxLen {
		excess := len(d.audioBuf) - maxLen
		d.audioBuf = append(d.audioBuf[:0], d.audioBuf[excess:]...)
	}
}

// Ready reports whether enough audio has accumulated to run analysis.
func (d *StringDetector) Ready() bool {
	return len(d.audioBuf) >= d.analysisWindow && d.samplesSinceAnalysis >= d.analysisInterval
}

// Detect runs one analysis pass (if Ready and a bar position is known) and
// returns (active, attacks, amplitude) for all ten strings. When analysis
// doesn't run because too little audio has arrived, the previous active
// mask repeats, attacks are all false, and amplitude is the last smoothed
// energy over peak for each still-active string (zero for the others).
func (d *StringDetector) Detect(s *SensorFrame, barPosition *float64, engine *Engine) ([10]bool, [10]bool, [10]float32) {
	var attacks [10]bool
	var amplitude [10]float32

	if barPosition == nil {
		for i := range d.Active {
			d.Active[i] = false
		}
		return d.Active, attacks, amplitude
	}

	if !d.Ready() {
		for i := range d.Active {
			if d.Active[i] {
				amplitude[i] = float32(clamp(d.Energy[i]/d.Peak[i], 0, 1))
			}
		}
		return d.Active, attacks, amplitude
	}
	d.samplesSinceAnalysis = 0

	start := len(d.audioBuf) - d.analysisWindow
	if start < 0 {
		start = 0
	}
	window := d.audioBuf[start:]
	n := len(window)

	rms := computeRMS(window)
	if rms < 0.003 {
		for i := range d.Energy {
			d.Energy[i] *= 0.5
			d.Active[i] = false
		}
		return d.Active, attacks, amplitude
	}

	open := engine.EffectiveOpenPitches(s)
	sr := d.sampleRate
	nyquist := sr / 2.0

	for i := 0; i < 10; i++ {
		freq := MidiToHz(open[i] + *barPosition)
		// Skip frequencies outside the audible/Nyquist range: below 20Hz
		// (sub-audio, not a real pedal steel note) or at/above Nyquist
		// (Goertzel would alias). Reset this string's state so a stale
		// reading doesn't linger once the bar moves it back into range.
		if freq < 20.0 || freq >= nyquist {
			d.Energy[i] = 0
			d.Active[i] = false
			d.Peak[i] = 0.01
			continue
		}

		mag := goertzelMagnitude(window, freq, sr, n)
		mag2 := 0.0
		if 2*freq < nyquist {
			mag2 = goertzelMagnitude(window, 2*freq, sr, n)
		}
		raw := (mag + 0.3*mag2) / float64(n)

		d.Energy[i] = 0.6*d.Energy[i] + 0.4*raw

		decayed := d.Peak[i] * 0.992
		if d.Energy[i] > decayed {
			d.Peak[i] = d.Energy[i]
		} else {
			d.Peak[i] = decayed
		}
		if d.Peak[i] < 0.01 {
			d.Peak[i] = 0.01
		}

		if d.Active[i] && d.Energy[i] < d.Release[i] {
			d.Active[i] = false
		} else if !d.Active[i] && d.Energy[i] > d.Onset[i] {
			d.Active[i] = true
			attacks[i] = true
		}

		amplitude[i] = float32(clamp(d.Energy[i]/d.Peak[i], 0, 1))
	}

	return d.Active, attacks, amplitude
}

// Energies returns the current smoothed per-string energy values, mostly
// useful for calibration tooling.
func (d *StringDetector) Energies() [10]float64 {
	return d.Energy
}

// Reset clears all detector state.
func (d *StringDetector) Reset() {
	for i := range d.Energy {
		d.Energy[i] = 0
		d.Peak[i] = 0.01
		d.Active[i] = false
	}
	d.audioBuf = d.audioBuf[:0]
	d.samplesSinceAnalysis = 0
}
