// Package steelcap implements the real-time capture and sensor/audio fusion
// pipeline for a pedal steel guitar: pedal/lever-to-pitch mapping (Copedant),
// single-bin spectral analysis (Goertzel/RMS), bar-position sensing fused
// from Hall-effect sensors and audio, per-string attack detection, and the
// coordinator that assembles it all into a single CaptureFrame stream.
package steelcap

// PedalNames are the three floor pedal labels, in SensorFrame.Pedals order.
var PedalNames = [3]string{"A", "B", "C"}

// LeverNames are the five knee lever labels, in SensorFrame.KneeLevers order.
var LeverNames = [5]string{"LKL", "LKR", "LKV", "RKL", "RKR"}

// E9StringNames are the ten E9 string labels, string 1 (index 0) = highest.
var E9StringNames = [10]string{"1", "2", "3", "4", "5", "6", "7", "8", "9", "10"}

// BarSensorFrets are the fret positions of the four Hall-effect bar sensors.
var BarSensorFrets = [4]float64{0.0, 5.0, 10.0, 15.0}

// SensorFrame is a snapshot of all continuous control and ground-truth
// inputs at one instant, as produced by the Teensy (hardware) or the
// Simulator.
type SensorFrame struct {
	TimestampUs  uint64
	Pedals       [3]float32
	KneeLevers   [5]float32
	Volume       float32
	BarSensors   [4]float32
	StringActive [10]bool
}

// AudioChunk is a block of mono PCM samples captured at SampleRate.
type AudioChunk struct {
	TimestampUs uint64
	Samples     []float32
	SampleRate  uint32
}

// BarSource records which estimator(s) contributed to a BarState.
type BarSource int

const (
	BarSourceNone BarSource = iota
	BarSourceSensor
	BarSourceAudio
	BarSourceFused
)

func (s BarSource) String() string {
	switch s {
	case BarSourceSensor:
		return "sensor"
	case BarSourceAudio:
		return "audio"
	case BarSourceFused:
		return "fused"
	default:
		return "none"
	}
}

// BarState is the fused bar-position estimate produced by C4.
type BarState struct {
	Position   *float64 // nil = unknown (bar off strings, or no evidence)
	Confidence float64
	Source     BarSource
}

// CaptureFrame is the single, ordered, self-contained unit this system
// emits once per coordinator tick: everything a consumer (logger, OSC
// sender, WebSocket client, console) needs, with nothing upstream left to
// reconstruct.
type CaptureFrame struct {
	TimestampUs     uint64
	Pedals          [3]float32
	KneeLevers      [5]float32
	Volume          float32
	BarPosition     *float64
	BarConfidence   float64
	BarSource       BarSource
	BarSensorValues [4]float32
	StringPitchesHz [10]float64
	StringActive    [10]bool
	StringAttacks   [10]bool
	StringAmplitude [10]float32
}

// CompactFrame is the short-key wire/on-disk representation of a
// CaptureFrame, used by the JSONL session format (§6). Field meanings:
//
//	t  timestamp_us       kl knee_levers        v  volume
//	p  pedals             bs bar_sensors        bp bar_position (nil→null)
//	bc bar_confidence     bx bar_source (0..3)  hz string_pitches_hz
//	sa string_active      at attacks            am amplitude
type CompactFrame struct {
	T  uint64     `json:"t"`
	P  [3]float32 `json:"p"`
	Kl [5]float32 `json:"kl"`
	V  float32    `json:"v"`
	Bs [4]float32 `json:"bs"`
	Bp *float64   `json:"bp"`
	Bc float64    `json:"bc"`
	Bx int        `json:"bx"`
	Hz [10]float64 `json:"hz"`
	Sa [10]bool   `json:"sa"`
	At [10]bool   `json:"at"`
	Am [10]float32 `json:"am"`
}

// ToCompact converts a CaptureFrame to its wire representation.
func (f CaptureFrame) ToCompact() CompactFrame {
	return CompactFrame{
		T:  f.TimestampUs,
		P:  f.Pedals,
		Kl: f.KneeLevers,
		V:  f.Volume,
		Bs: f.BarSensorValues,
		Bp: f.BarPosition,
		Bc: f.BarConfidence,
		Bx: int(f.BarSource),
		Hz: f.StringPitchesHz,
		Sa: f.StringActive,
		At: f.StringAttacks,
		Am: f.StringAmplitude,
	}
}

// ToCaptureFrame converts a wire-format frame back into a CaptureFrame.
func (c CompactFrame) ToCaptureFrame() CaptureFrame {
	return CaptureFrame{
		TimestampUs:     c.T,
		Pedals:          c.P,
		KneeLevers:      c.Kl,
		Volume:          c.V,
		BarPosition:     c.Bp,
		BarConfidence:   c.Bc,
		BarSource:       BarSource(c.Bx),
		BarSensorValues: c.Bs,
		StringPitchesHz: c.Hz,
		StringActive:    c.Sa,
		StringAttacks:   c.At,
		StringAmplitude: c.Am,
	}
}

// ChangeDef is a single pedal/lever pitch modification: string index
// (0-based) and the semitone delta applied when the control is fully
// engaged (Value==1.0); partial engagement scales linearly.
type ChangeDef struct {
	String int
	Delta  float64
}

// Copedant is the full set of open-string pitches plus the per-control
// change tables that define a pedal steel tuning.
type Copedant struct {
	Name          string
	OpenStrings   [10]float64 // MIDI note numbers (may be fractional)
	PedalChanges  [3][]ChangeDef
	LeverChanges  [5][]ChangeDef
}

// InputEvent is the tagged union fed into the Coordinator: either a new
// SensorFrame or a new AudioChunk. Exactly one field is non-nil.
type InputEvent struct {
	Sensor *SensorFrame
	Audio  *AudioChunk
}
