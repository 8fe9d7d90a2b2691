package steelcap

import (
	"math"

	approx "github.com/cwbudde/algo-approx"
)

// ln2 is used to turn algo-approx's FastExp (base e) into a base-2 power,
// the same trick the teacher uses in piano/utils.go's pow2Approx.
const ln2 = 0.69314718055994530942

// pow2 approximates 2^x using algo-approx's fast exponential, avoiding the
// libm call math.Pow(2, x) would otherwise need. Called once per string per
// control-frame in Engine.EffectiveOpenPitches's consumers and, far more
// hotly, once per fret candidate per string in the bar-inference scorer
// (241 candidates x 10 strings per analysis window).
func pow2(x float64) float64 {
	return float64(approx.FastExp(float32(x) * ln2))
}

// MidiToHz converts a (possibly fractional) MIDI note number to Hz.
// A4 = MIDI 69 = 440 Hz.
func MidiToHz(midi float64) float64 {
	return 440.0 * pow2((midi-69.0)/12.0)
}

// HzToMidi converts Hz to a fractional MIDI note number.
func HzToMidi(hz float64) float64 {
	return 69.0 + 12.0*math.Log2(hz/440.0)
}

// Engine computes theoretical string pitches given a Copedant and the
// current mechanical state (pedal/lever engagement, bar position).
type Engine struct {
	copedant Copedant
}

// NewEngine wraps a Copedant for pitch computation.
func NewEngine(c Copedant) *Engine {
	return &Engine{copedant: c}
}

// Copedant returns the engine's underlying tuning definition.
func (e *Engine) Copedant() Copedant {
	return e.copedant
}

// EffectiveOpenPitches computes each string's effective open pitch (MIDI
// note number, fractional) given the current pedal/lever engagement.
// "Open" means the pitch the string would produce with the bar at the nut.
// Partial engagement produces proportional pitch bending.
func (e *Engine) EffectiveOpenPitches(s *SensorFrame) [10]float64 {
	midi := e.copedant.OpenStrings

	for i := 0; i < 3; i++ {
		engagement := float64(s.Pedals[i])
		if engagement == 0 {
			continue
		}
		for _, ch := range e.copedant.PedalChanges[i] {
			if ch.String >= 0 && ch.String < 10 {
				midi[ch.String] += ch.Delta * engagement
			}
		}
	}

	for i := 0; i < 5; i++ {
		engagement := float64(s.KneeLevers[i])
		if engagement == 0 {
			continue
		}
		for _, ch := range e.copedant.LeverChanges[i] {
			if ch.String >= 0 && ch.String < 10 {
				midi[ch.String] += ch.Delta * engagement
			}
		}
	}

	return midi
}

// PitchesAtBar computes each string's sounding pitch in Hz given its
// effective open pitch and a bar position in frets (bar perpendicular to
// the strings; no slant model).
func (e *Engine) PitchesAtBar(effectiveOpen [10]float64, barFret float64) [10]float64 {
	var hz [10]float64
	for i := 0; i < 10; i++ {
		hz[i] = MidiToHz(effectiveOpen[i] + barFret)
	}
	return hz
}

// ComputePitches is a convenience combining EffectiveOpenPitches and
// PitchesAtBar. If barFret is nil, returns the open-string pitches.
func (e *Engine) ComputePitches(s *SensorFrame, barFret *float64) [10]float64 {
	open := e.EffectiveOpenPitches(s)
	if barFret == nil {
		var hz [10]float64
		for i := 0; i < 10; i++ {
			hz[i] = MidiToHz(open[i])
		}
		return hz
	}
	return e.PitchesAtBar(open, *barFret)
}

// InferBarPosition infers the bar's fret position from a detected pitch on
// a given string: fret = 12 * log2(detected/open). Returns (0, false) if
// the result doesn't make physical sense (detected well below open, or
// outside the reasonable travel range of a bar).
func (e *Engine) InferBarPosition(detectedHz float64, stringIdx int, s *SensorFrame) (float64, bool) {
	if stringIdx < 0 || stringIdx >= 10 {
		return 0, false
	}
	open := e.EffectiveOpenPitches(s)
	openHz := MidiToHz(open[stringIdx])
	if detectedHz <= 0 || openHz <= 0 {
		return 0, false
	}
	ratio := detectedHz / openHz
	if ratio < 0.5 {
		return 0, false
	}
	fret := 12.0 * math.Log2(ratio)
	if fret < -0.5 || fret > 30.0 {
		return 0, false
	}
	return fret, true
}

// NewBuddyEmmonsE9 returns the standard Buddy Emmons E9 copedant: open
// tuning string1=F#4 ... string10=B2, with the classic pedal-A/B/C and
// LKL/LKR/LKV/RKL/RKR change tables. RKR is modeled at its hard stop for
// full engagement (str2 -2, str9 -1); partial engagement linearly
// interpolates toward that hard stop rather than snapping to the
// mechanical soft-stop detent (see DESIGN.md Open Question resolution).
//
// Source: b0b.com/wp/copedents/buddy-emmons-e9th/, cross-checked against
// the Wikipedia "Copedent" article (GFI Music Company attribution).
func NewBuddyEmmonsE9() Copedant {
	return Copedant{
		Name: "Buddy Emmons E9",
		// str1    str2    str3    str4   str5   str6    str7    str8   str9   str10
		// F#4     D#4     G#4     E4     B3     G#3     F#3     E3     D3     B2
		OpenStrings: [10]float64{66.0, 63.0, 68.0, 64.0, 59.0, 56.0, 54.0, 52.0, 50.0, 47.0},

		PedalChanges: [3][]ChangeDef{
			{ // Pedal A: str5 + str10, B->C#
				{String: 4, Delta: 2.0},
				{String: 9, Delta: 2.0},
			},
			{ // Pedal B: str3 + str6, G#->A
				{String: 2, Delta: 1.0},
				{String: 5, Delta: 1.0},
			},
			{ // Pedal C: str4 E->F#, str5 B->C#
				{String: 3, Delta: 2.0},
				{String: 4, Delta: 2.0},
			},
		},

		LeverChanges: [5][]ChangeDef{
			{ // LKL: str4 + str8, E->F
				{String: 3, Delta: 1.0},
				{String: 7, Delta: 1.0},
			},
			{ // LKR: str4, str5, str8 all down a semitone
				{String: 3, Delta: -1.0},
				{String: 4, Delta: -1.0},
				{String: 7, Delta: -1.0},
			},
			{ // LKV: str5 + str10, B->Bb
				{String: 4, Delta: -1.0},
				{String: 9, Delta: -1.0},
			},
			{ // RKL: str2 +1 (D#->E), str6 -2 (G#->F#). No str1 raise
				// (Buddy Emmons' actual setup omits it).
				{String: 1, Delta: 1.0},
				{String: 5, Delta: -2.0},
			},
			{ // RKR hard stop: str2 -2 (D#->C#), str9 -1 (D->C#)
				{String: 1, Delta: -2.0},
				{String: 8, Delta: -1.0},
			},
		},
	}
}
