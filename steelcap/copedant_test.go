package steelcap

import "testing"

func restFrame() *SensorFrame {
	return &SensorFrame{}
}

func testEngine() *Engine {
	return NewEngine(NewBuddyEmmonsE9())
}

func TestMidiToHzRoundtrip(t *testing.T) {
	if got := MidiToHz(69.0); abs(got-440.0) > 0.01 {
		t.Errorf("MidiToHz(69) = %v, want ~440", got)
	}
	if got := MidiToHz(60.0); abs(got-261.63) > 0.2 {
		t.Errorf("MidiToHz(60) = %v, want ~261.63", got)
	}
	if got := HzToMidi(440.0); abs(got-69.0) > 0.01 {
		t.Errorf("HzToMidi(440) = %v, want ~69", got)
	}
}

func TestOpenStringPitches(t *testing.T) {
	e := testEngine()
	open := e.EffectiveOpenPitches(restFrame())
	if abs(open[4]-59.0) > 0.01 {
		t.Errorf("string 5 open = %v, want 59.0 (B3)", open[4])
	}
}

func TestPedalARaises(t *testing.T) {
	e := testEngine()
	s := restFrame()
	s.Pedals[0] = 1.0
	open := e.EffectiveOpenPitches(s)
	if abs(open[4]-61.0) > 0.01 {
		t.Errorf("string 5 with pedal A = %v, want 61.0 (C#4)", open[4])
	}
	if abs(open[9]-49.0) > 0.01 {
		t.Errorf("string 10 with pedal A = %v, want 49.0 (C#3)", open[9])
	}
}

func TestPartialPedal(t *testing.T) {
	e := testEngine()
	s := restFrame()
	s.Pedals[0] = 0.5
	open := e.EffectiveOpenPitches(s)
	if abs(open[4]-60.0) > 0.01 {
		t.Errorf("string 5 at half pedal A = %v, want 60.0", open[4])
	}
}

func TestBarPositionInference(t *testing.T) {
	e := testEngine()
	s := restFrame()
	detected := MidiToHz(67.0)
	fret, ok := e.InferBarPosition(detected, 3, s)
	if !ok {
		t.Fatal("expected bar position inferred")
	}
	if abs(fret-3.0) > 0.05 {
		t.Errorf("fret = %v, want ~3.0", fret)
	}
}

func TestBarInferenceWithPedal(t *testing.T) {
	e := testEngine()
	s := restFrame()
	s.Pedals[0] = 1.0
	detected := MidiToHz(66.0)
	fret, ok := e.InferBarPosition(detected, 4, s)
	if !ok {
		t.Fatal("expected bar position inferred")
	}
	if abs(fret-5.0) > 0.05 {
		t.Errorf("fret = %v, want ~5.0", fret)
	}
}

func TestComputePitchesAtFret(t *testing.T) {
	e := testEngine()
	s := restFrame()
	fret := 3.0
	pitches := e.ComputePitches(s, &fret)
	if abs(pitches[3]-392.0) > 1.0 {
		t.Errorf("string 4 at fret 3 = %v, want ~392Hz (G4)", pitches[3])
	}
}

func TestLKLRaisesEToF(t *testing.T) {
	e := testEngine()
	s := restFrame()
	s.KneeLevers[0] = 1.0
	open := e.EffectiveOpenPitches(s)
	if abs(open[3]-65.0) > 0.01 {
		t.Errorf("string 4 with LKL = %v, want 65.0 (F4)", open[3])
	}
	if abs(open[7]-53.0) > 0.01 {
		t.Errorf("string 8 with LKL = %v, want 53.0 (F3)", open[7])
	}
}

func TestLKRLowersEToEb(t *testing.T) {
	e := testEngine()
	s := restFrame()
	s.KneeLevers[1] = 1.0
	open := e.EffectiveOpenPitches(s)
	if abs(open[3]-63.0) > 0.01 {
		t.Errorf("string 4 with LKR = %v, want 63.0", open[3])
	}
	if abs(open[4]-58.0) > 0.01 {
		t.Errorf("string 5 with LKR = %v, want 58.0", open[4])
	}
	if abs(open[7]-51.0) > 0.01 {
		t.Errorf("string 8 with LKR = %v, want 51.0", open[7])
	}
}

func TestPedalCRaisesEAndB(t *testing.T) {
	e := testEngine()
	s := restFrame()
	s.Pedals[2] = 1.0
	open := e.EffectiveOpenPitches(s)
	if abs(open[3]-66.0) > 0.01 {
		t.Errorf("string 4 with pedal C = %v, want 66.0", open[3])
	}
	if abs(open[4]-61.0) > 0.01 {
		t.Errorf("string 5 with pedal C = %v, want 61.0", open[4])
	}
}

func TestRKLChanges(t *testing.T) {
	e := testEngine()
	s := restFrame()
	s.KneeLevers[3] = 1.0
	open := e.EffectiveOpenPitches(s)
	if abs(open[0]-66.0) > 0.01 {
		t.Errorf("string 1 with RKL = %v, want unchanged 66.0", open[0])
	}
	if abs(open[1]-64.0) > 0.01 {
		t.Errorf("string 2 with RKL = %v, want 64.0", open[1])
	}
	if abs(open[5]-54.0) > 0.01 {
		t.Errorf("string 6 with RKL = %v, want 54.0", open[5])
	}
}

func TestRKRHardStop(t *testing.T) {
	e := testEngine()
	s := restFrame()
	s.KneeLevers[4] = 1.0
	open := e.EffectiveOpenPitches(s)
	if abs(open[1]-61.0) > 0.01 {
		t.Errorf("string 2 with RKR full = %v, want 61.0", open[1])
	}
	if abs(open[8]-49.0) > 0.01 {
		t.Errorf("string 9 with RKR full = %v, want 49.0", open[8])
	}
}

func TestRKRSoftStop(t *testing.T) {
	e := testEngine()
	s := restFrame()
	s.KneeLevers[4] = 0.5
	open := e.EffectiveOpenPitches(s)
	if abs(open[1]-62.0) > 0.01 {
		t.Errorf("string 2 with RKR half = %v, want 62.0", open[1])
	}
	if abs(open[8]-49.5) > 0.01 {
		t.Errorf("string 9 with RKR half = %v, want 49.5", open[8])
	}
}

func TestPedalAPlusC(t *testing.T) {
	e := testEngine()
	s := restFrame()
	s.Pedals[0] = 1.0
	s.Pedals[2] = 1.0
	open := e.EffectiveOpenPitches(s)
	if abs(open[4]-63.0) > 0.01 {
		t.Errorf("string 5 with A+C = %v, want 63.0", open[4])
	}
	if abs(open[3]-66.0) > 0.01 {
		t.Errorf("string 4 with A+C = %v, want 66.0", open[3])
	}
	if abs(open[9]-49.0) > 0.01 {
		t.Errorf("string 10 with A+C = %v, want 49.0", open[9])
	}
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
