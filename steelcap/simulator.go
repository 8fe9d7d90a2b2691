package steelcap

import (
	"context"
	"fmt"
	"log"
	"math"
	"time"
)

// gestureKind tags which field of gesture is populated.
type gestureKind int

const (
	gestureHold gestureKind = iota
	gestureVolumeSwell
	gestureBarPlace
	gestureBarLift
	gestureBarSlide
	gestureBarVibrato
	gesturePedalEngage
	gesturePedalRelease
	gestureLeverEngage
	gestureLeverRelease
	gesturePickStrings
	gestureMuteAll
)

type gesture struct {
	kind    gestureKind
	ms      uint32
	from    float64
	to      float64
	fret    float64
	width   float64
	rateHz  float64
	index   int
	strings []int
}

// simState is the simulator's mutable gesture-driven state.
type simState struct {
	pedals       [3]float32
	kneeLevers   [5]float32
	volume       float32
	barFret      *float64
	stringActive [10]bool
}

// Simulator generates realistic simulated sensor data and synthetic audio
// that exercises the full capture pipeline without any hardware, driven by
// a scripted sequence of gestures (pedal engagement, bar slides/vibrato,
// string picks).
type Simulator struct {
	engine       *Engine
	sampleRate   uint32
	sensorRateHz uint32
	// sampleCounter is a monotonic sample count used for phase-continuous
	// audio generation, avoiding the phase discontinuities wall-clock-based
	// generation would introduce under OS scheduling jitter.
	sampleCounter uint64
	Logger        *log.Logger
}

// NewSimulator builds a Simulator over copedant, ticking sensor frames at
// sensorRateHz and generating audio at 48kHz.
func NewSimulator(copedant Copedant, sensorRateHz uint32) *Simulator {
	return &Simulator{
		engine:       NewEngine(copedant),
		sampleRate:   48000,
		sensorRateHz: sensorRateHz,
	}
}

// Run executes a named demo sequence, emitting InputEvents on out until ctx
// is canceled. Only "basic" is implemented (see DESIGN.md); any other name
// returns an error rather than silently substituting the wrong sequence.
func (s *Simulator) Run(ctx context.Context, demo string, out chan<- InputEvent) error {
	if demo != "basic" && demo != "" {
		return fmt.Errorf("steelcap: simulator demo %q not implemented (only \"basic\")", demo)
	}
	if s.Logger != nil {
		s.Logger.Printf("simulator starting %q sequence...", demo)
	}

	state := simState{}
	tickUs := time.Duration(1_000_000/s.sensorRateHz) * time.Microsecond

	for _, g := range demoSequence() {
		if ctx.Err() != nil {
			return nil
		}
		s.execute(ctx, g, &state, tickUs, out)
	}

	if s.Logger != nil {
		s.Logger.Printf("sequence complete, holding final state")
	}
	for ctx.Err() == nil {
		s.emitTick(state, tickUs, out)
	}
	return nil
}

func (s *Simulator) execute(ctx context.Context, g gesture, state *simState, tickUs time.Duration, out chan<- InputEvent) {
	ticks := func(ms uint32) int {
		if ms == 0 {
			return 0
		}
		return int(uint64(ms) * 1000 / uint64(tickUs/time.Microsecond))
	}

	switch g.kind {
	case gestureHold:
		for i := 0; i < ticks(g.ms) && ctx.Err() == nil; i++ {
			s.emitTick(*state, tickUs, out)
		}

	case gestureVolumeSwell:
		n := ticks(g.ms)
		for i := 0; i < n && ctx.Err() == nil; i++ {
			t := float64(i) / float64(n)
			state.volume = float32(lerp(g.from, g.to, smoothstep(t)))
			s.emitTick(*state, tickUs, out)
		}
		state.volume = float32(g.to)

	case gestureBarPlace:
		fret := g.fret
		state.barFret = &fret

	case gestureBarLift:
		state.barFret = nil

	case gestureBarSlide:
		from := 0.0
		if state.barFret != nil {
			from = *state.barFret
		}
		n := ticks(g.ms)
		for i := 0; i < n && ctx.Err() == nil; i++ {
			t := float64(i) / float64(n)
			v := lerp(from, g.to, smoothstep(t))
			state.barFret = &v
			s.emitTick(*state, tickUs, out)
		}
		to := g.to
		state.barFret = &to

	case gestureBarVibrato:
		center := 3.0
		if state.barFret != nil {
			center = *state.barFret
		}
		n := ticks(g.ms)
		for i := 0; i < n && ctx.Err() == nil; i++ {
			tSec := float64(i) * float64(tickUs/time.Microsecond) / 1_000_000.0
			offset := g.width * math.Sin(2*math.Pi*g.rateHz*tSec)
			v := center + offset
			state.barFret = &v
			s.emitTick(*state, tickUs, out)
		}
		c := center
		state.barFret = &c

	case gesturePedalEngage:
		from := float64(state.pedals[g.index])
		n := ticks(g.ms)
		for i := 0; i < n && ctx.Err() == nil; i++ {
			t := float64(i) / float64(n)
			state.pedals[g.index] = float32(lerp(from, 1.0, smoothstep(t)))
			s.emitTick(*state, tickUs, out)
		}
		state.pedals[g.index] = 1.0

	case gesturePedalRelease:
		from := float64(state.pedals[g.index])
		n := ticks(g.ms)
		for i := 0; i < n && ctx.Err() == nil; i++ {
			t := float64(i) / float64(n)
			state.pedals[g.index] = float32(lerp(from, 0.0, smoothstep(t)))
			s.emitTick(*state, tickUs, out)
		}
		state.pedals[g.index] = 0.0

	case gestureLeverEngage:
		from := float64(state.kneeLevers[g.index])
		n := ticks(g.ms)
		for i := 0; i < n && ctx.Err() == nil; i++ {
			t := float64(i) / float64(n)
			state.kneeLevers[g.index] = float32(lerp(from, 1.0, smoothstep(t)))
			s.emitTick(*state, tickUs, out)
		}
		state.kneeLevers[g.index] = 1.0

	case gestureLeverRelease:
		from := float64(state.kneeLevers[g.index])
		n := ticks(g.ms)
		for i := 0; i < n && ctx.Err() == nil; i++ {
			t := float64(i) / float64(n)
			state.kneeLevers[g.index] = float32(lerp(from, 0.0, smoothstep(t)))
			s.emitTick(*state, tickUs, out)
		}
		state.kneeLevers[g.index] = 0.0

	case gesturePickStrings:
		state.stringActive = [10]bool{}
		for _, si := range g.strings {
			if si >= 0 && si < 10 {
				state.stringActive[si] = true
			}
		}

	case gestureMuteAll:
		state.stringActive = [10]bool{}
	}
}

// emitTick sends one SensorFrame (always) and, if the bar is down, volume
// is audible, and at least one string is active, a matching synthetic
// AudioChunk. Blocks tickUs between emissions to pace the sequence in
// real time.
func (s *Simulator) emitTick(state simState, tickUs time.Duration, out chan<- InputEvent) {
	ts := uint64(time.Now().UnixMicro())

	var barSensors [4]float32
	if state.barFret != nil {
		barSensors = simulateBarReadings(*state.barFret)
	}
	sensor := &SensorFrame{
		TimestampUs:  ts,
		Pedals:       state.pedals,
		KneeLevers:   state.kneeLevers,
		Volume:       state.volume,
		BarSensors:   barSensors,
		StringActive: state.stringActive,
	}
	out <- InputEvent{Sensor: sensor}

	anyActive := false
	for _, a := range state.stringActive {
		if a {
			anyActive = true
			break
		}
	}
	if state.barFret != nil && state.volume > 0.01 && anyActive {
		chunk := s.generateAudio(state, ts)
		out <- InputEvent{Audio: chunk}
	}

	time.Sleep(tickUs)
}

// generateAudio synthesizes one tick's worth of samples containing sine
// waves at the pitches the current pedal/lever/bar state implies for each
// active string.
func (s *Simulator) generateAudio(state simState, ts uint64) *AudioChunk {
	sensor := &SensorFrame{
		TimestampUs:  ts,
		Pedals:       state.pedals,
		KneeLevers:   state.kneeLevers,
		Volume:       state.volume,
		StringActive: state.stringActive,
	}
	barFret := 0.0
	if state.barFret != nil {
		barFret = *state.barFret
	}
	open := s.engine.EffectiveOpenPitches(sensor)

	samplesPerTick := int(s.sampleRate / s.sensorRateHz)
	samples := make([]float32, samplesPerTick)

	activeCount := 0
	for _, a := range state.stringActive {
		if a {
			activeCount++
		}
	}
	ampPerString := 0.0
	if activeCount > 0 {
		ampPerString = float64(state.volume) * 0.6 / float64(activeCount)
	}

	for si := 0; si < 10; si++ {
		if !state.stringActive[si] {
			continue
		}
		freq := MidiToHz(open[si] + barFret)
		for j := range samples {
			t := float64(s.sampleCounter+uint64(j)) / float64(s.sampleRate)
			samples[j] += float32(ampPerString * math.Sin(2*math.Pi*freq*t))
		}
	}
	s.sampleCounter += uint64(samplesPerTick)

	return &AudioChunk{TimestampUs: ts, Samples: samples, SampleRate: s.sampleRate}
}

// demoSequence exercises all the major pedal steel gestures: roughly 15
// seconds of playing with specific string picks, pedal/lever moves, bar
// slides and vibrato.
func demoSequence() []gesture {
	return []gesture{
		{kind: gestureHold, ms: 200},

		{kind: gestureBarPlace, fret: 3.0},
		{kind: gesturePickStrings, strings: []int{2, 3, 4}},
		{kind: gestureVolumeSwell, from: 0.0, to: 0.9, ms: 400},
		{kind: gestureHold, ms: 500},

		{kind: gesturePedalEngage, index: 0, ms: 150},
		{kind: gestureHold, ms: 600},
		{kind: gesturePedalRelease, index: 0, ms: 200},
		{kind: gestureHold, ms: 300},

		{kind: gesturePickStrings, strings: []int{2, 3, 4, 5}},
		{kind: gesturePedalEngage, index: 1, ms: 150},
		{kind: gestureHold, ms: 400},

		{kind: gestureBarSlide, to: 5.0, ms: 600},
		{kind: gesturePedalRelease, index: 1, ms: 200},
		{kind: gestureHold, ms: 400},

		{kind: gestureBarVibrato, width: 0.15, rateHz: 5.5, ms: 1200},

		{kind: gestureVolumeSwell, from: 0.9, to: 0.3, ms: 300},
		{kind: gestureBarSlide, to: 8.0, ms: 800},
		{kind: gesturePickStrings, strings: []int{4, 5, 7}},
		{kind: gestureVolumeSwell, from: 0.3, to: 0.9, ms: 300},
		{kind: gestureHold, ms: 500},

		{kind: gestureLeverEngage, index: 0, ms: 200},
		{kind: gestureHold, ms: 600},
		{kind: gestureLeverRelease, index: 0, ms: 200},

		{kind: gestureLeverEngage, index: 3, ms: 200},
		{kind: gestureHold, ms: 500},
		{kind: gestureLeverRelease, index: 3, ms: 200},

		{kind: gesturePickStrings, strings: []int{3, 4, 5}},
		{kind: gesturePedalEngage, index: 0, ms: 100},
		{kind: gesturePedalEngage, index: 1, ms: 120},
		{kind: gestureHold, ms: 600},

		{kind: gestureBarSlide, to: 3.0, ms: 1000},

		{kind: gesturePedalRelease, index: 1, ms: 150},
		{kind: gesturePedalRelease, index: 0, ms: 180},

		{kind: gestureBarVibrato, width: 0.2, rateHz: 5.0, ms: 1500},
		{kind: gestureVolumeSwell, from: 0.9, to: 0.0, ms: 800},
		{kind: gestureMuteAll},
	}
}
