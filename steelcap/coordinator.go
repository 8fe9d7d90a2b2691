package steelcap

import (
	"context"
	"log"
)

// Coordinator is the single-threaded ordering authority: it consumes the
// InputEvent stream, runs bar inference (C4), copedant pitch computation
// (C1), and string detection (C5), assembles the result into a
// CaptureFrame, and fans it out to every registered sink. Running
// everything for one frame on a single goroutine keeps ordering
// deterministic and keeps C1/C4/C5 free of any locking.
type Coordinator struct {
	Engine     *Engine
	Inference  *BarInference
	Detector   *StringDetector
	Logger     *log.Logger

	// UseAudioDetection selects which string-active/attack source feeds
	// the output frame. false (default): trust SensorFrame.StringActive
	// (simulator ground truth), compute attacks from its inactive->active
	// edges. true (hardware mode, where no such ground truth exists):
	// trust the StringDetector's own active mask and attacks.
	UseAudioDetection bool

	frameTxs   []chan CaptureFrame
	audioLogTx chan *AudioChunk

	prevActive       [10]bool
	prevPedalEngaged [3]bool
	prevLeverEngaged [5]bool
	frameCount       uint64
}

// NewCoordinator builds a Coordinator for the given copedant. Register
// output sinks with AddFrameSink/SetAudioLogSink before calling Run.
func NewCoordinator(copedant Copedant) *Coordinator {
	return &Coordinator{
		Engine:    NewEngine(copedant),
		Inference: NewBarInference(),
		Detector:  NewStringDetector(),
	}
}

// AddFrameSink registers a channel that receives every assembled
// CaptureFrame. Sends are best-effort and non-blocking: a full sink drops
// the frame rather than stalling the coordinator, since a slow consumer
// (e.g. a WebSocket client that's fallen behind) must never hold up the
// real-time pipeline feeding the logger and OSC output.
func (c *Coordinator) AddFrameSink(ch chan CaptureFrame) {
	c.frameTxs = append(c.frameTxs, ch)
}

// SetAudioLogSink registers a channel that receives a best-effort copy of
// every AudioChunk, for raw audio logging.
func (c *Coordinator) SetAudioLogSink(ch chan *AudioChunk) {
	c.audioLogTx = ch
}

// pedalStringMap maps each of the 3 pedals to the strings it affects, per
// the Buddy Emmons E9 copedant: A->{5,10}, B->{3,6}, C->{4,5} (1-indexed
// in the comment, 0-indexed below).
var pedalStringMap = [3][10]bool{
	{false, false, false, false, true, false, false, false, false, true},  // A: 5,10
	{false, false, true, false, false, true, false, false, false, false}, // B: 3,6
	{false, false, false, true, true, false, false, false, false, false}, // C: 4,5
}

// leverStringMap maps each of the 5 knee levers to the strings it affects:
// LKL->{4,8}, LKR->{4,5,8}, LKV->{5,10}, RKL->{2,6}, RKR->{2,9}.
var leverStringMap = [5][10]bool{
	{false, false, false, true, false, false, false, true, false, false},  // LKL: 4,8
	{false, false, false, true, true, false, false, true, false, false},  // LKR: 4,5,8
	{false, false, false, false, true, false, false, false, false, true}, // LKV: 5,10
	{false, true, false, false, false, true, false, false, false, false}, // RKL: 2,6
	{false, true, false, false, false, false, false, false, true, false}, // RKR: 2,9
}

// Run consumes events from in until it's closed or ctx is canceled,
// processing one event at a time.
func (c *Coordinator) Run(ctx context.Context, in <-chan InputEvent) {
	mode := "OFF (simulator ground truth)"
	if c.UseAudioDetection {
		mode = "ON"
	}
	if c.Logger != nil {
		c.Logger.Printf("coordinator running (audio string detection: %s)", mode)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-in:
			if !ok {
				if c.Logger != nil {
					c.Logger.Printf("coordinator shutting down after %d frames", c.frameCount)
				}
				return
			}
			c.handle(event)
		}
	}
}

func (c *Coordinator) handle(event InputEvent) {
	switch {
	case event.Sensor != nil:
		c.handleSensor(event.Sensor)
	case event.Audio != nil:
		c.handleAudio(event.Audio)
	}
}

func (c *Coordinator) handleSensor(sensor *SensorFrame) {
	barState := c.Inference.Infer(sensor, c.Engine)
	pitches := c.Engine.ComputePitches(sensor, barState.Position)

	// The detector always runs exactly once per sensor tick (it owns
	// analysis-window timing); which of its outputs are trusted depends
	// on UseAudioDetection.
	detActive, detAttacks, amplitude := c.Detector.Detect(sensor, barState.Position, c.Engine)

	var stringActive [10]bool
	if c.UseAudioDetection {
		stringActive = detActive
	} else {
		// Simulator mode: sensor ground truth wins; the detector still ran
		// above for diagnostics/amplitude but its active mask is unused.
		stringActive = sensor.StringActive
	}

	var attacks [10]bool
	if c.UseAudioDetection {
		attacks = detAttacks
	} else {
		for i := 0; i < 10; i++ {
			if stringActive[i] && !c.prevActive[i] {
				attacks[i] = true
			}
		}
	}

	var pedalEngaged [3]bool
	for i := 0; i < 3; i++ {
		pedalEngaged[i] = sensor.Pedals[i] > 0.5
	}
	for j := 0; j < 3; j++ {
		if pedalEngaged[j] != c.prevPedalEngaged[j] {
			for i := 0; i < 10; i++ {
				if stringActive[i] && pedalStringMap[j][i] {
					attacks[i] = true
				}
			}
		}
	}
	c.prevPedalEngaged = pedalEngaged

	var leverEngaged [5]bool
	for i := 0; i < 5; i++ {
		leverEngaged[i] = sensor.KneeLevers[i] > 0.5
	}
	for j := 0; j < 5; j++ {
		if leverEngaged[j] != c.prevLeverEngaged[j] {
			for i := 0; i < 10; i++ {
				if stringActive[i] && leverStringMap[j][i] {
					attacks[i] = true
				}
			}
		}
	}
	c.prevLeverEngaged = leverEngaged
	c.prevActive = stringActive

	frame := CaptureFrame{
		TimestampUs:     sensor.TimestampUs,
		Pedals:          sensor.Pedals,
		KneeLevers:      sensor.KneeLevers,
		Volume:          sensor.Volume,
		BarSensorValues: sensor.BarSensors,
		BarPosition:     barState.Position,
		BarConfidence:   barState.Confidence,
		BarSource:       barState.Source,
		StringPitchesHz: pitches,
		StringActive:    stringActive,
		StringAttacks:   attacks,
		StringAmplitude: amplitude,
	}

	for _, tx := range c.frameTxs {
		select {
		case tx <- frame:
		default:
		}
	}

	c.frameCount++
	if c.Logger != nil && c.frameCount%1000 == 0 {
		c.Logger.Printf("coordinator: %d frames processed", c.frameCount)
	}
}

func (c *Coordinator) handleAudio(chunk *AudioChunk) {
	if c.audioLogTx != nil {
		select {
		case c.audioLogTx <- chunk:
		default:
		}
	}
	c.Inference.PushAudio(chunk)
	c.Detector.PushAudio(chunk)
}
