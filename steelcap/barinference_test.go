package steelcap

import "testing"

func sensorAtFret(fret float64) *SensorFrame {
	s := restFrame()
	s.BarSensors = simulateBarReadings(fret)
	return s
}

func feedAndInfer(inf *BarInference, samples []float32, sr uint32, sensor *SensorFrame, engine *Engine) BarState {
	chunk := &AudioChunk{Samples: samples, SampleRate: sr}
	inf.PushAudio(chunk)
	if len(samples) < inf.analysisWindow {
		inf.analysisWindow = len(samples)
	}
	inf.samplesSinceAnalysis = inf.analysisInterval
	return inf.Infer(sensor, engine)
}

func TestGoertzelFindsFrequency(t *testing.T) {
	samples := sineWave(440.0, 48000, 100)
	n := len(samples)
	m440 := goertzelMagnitude(samples, 440.0, 48000.0, n)
	m300 := goertzelMagnitude(samples, 300.0, 48000.0, n)
	if m440 <= m300*5.0 {
		t.Errorf("440=%.1f should be >> 300=%.1f", m440, m300)
	}
}

func TestSensorOnlyDuringSilence(t *testing.T) {
	e := testEngine()
	inf := NewBarInference()
	sensor := sensorAtFret(3.0)
	r := inf.Infer(sensor, e)
	if r.Position == nil {
		t.Fatal("sensor should detect bar during silence")
	}
	if abs(*r.Position-3.0) >= 1.0 {
		t.Errorf("pos=%.2f, want ~3.0", *r.Position)
	}
	if r.Source != BarSourceSensor {
		t.Errorf("source = %v, want Sensor", r.Source)
	}
}

func TestFusedWithAudio(t *testing.T) {
	e := testEngine()
	inf := NewBarInference()
	sensor := sensorAtFret(3.0)
	open := e.EffectiveOpenPitches(sensor)
	freqs := []float64{MidiToHz(open[2] + 3.0), MidiToHz(open[3] + 3.0), MidiToHz(open[4] + 3.0)}
	samples := multiSine(freqs, 48000, 100)
	r := feedAndInfer(inf, samples, 48000, sensor, e)
	if r.Position == nil {
		t.Fatal("should detect fused")
	}
	if abs(*r.Position-3.0) >= 0.5 {
		t.Errorf("pos=%.2f, want ~3.0", *r.Position)
	}
	if r.Source != BarSourceFused {
		t.Errorf("source = %v, want Fused", r.Source)
	}
}

func TestFusedWithPedalA(t *testing.T) {
	e := testEngine()
	inf := NewBarInference()
	sensor := sensorAtFret(5.0)
	sensor.Pedals[0] = 1.0
	open := e.EffectiveOpenPitches(sensor)
	freqs := []float64{MidiToHz(open[2] + 5.0), MidiToHz(open[3] + 5.0), MidiToHz(open[4] + 5.0)}
	samples := multiSine(freqs, 48000, 100)
	r := feedAndInfer(inf, samples, 48000, sensor, e)
	if r.Position == nil {
		t.Fatal("expected position")
	}
	if abs(*r.Position-5.0) >= 0.5 {
		t.Errorf("pos=%.2f, want ~5.0", *r.Position)
	}
}

func TestSilenceWithNoBar(t *testing.T) {
	e := testEngine()
	inf := NewBarInference()
	sensor := restFrame()
	r := inf.Infer(sensor, e)
	if r.Position != nil {
		t.Error("expected no position")
	}
	if r.Source != BarSourceNone {
		t.Errorf("source = %v, want None", r.Source)
	}
}

func TestBarLiftedReturnsNone(t *testing.T) {
	e := testEngine()
	inf := NewBarInference()
	sensor := sensorAtFret(3.0)
	inf.Infer(sensor, e)
	if inf.LastPosition == nil {
		t.Fatal("expected last position set")
	}
	sensor2 := restFrame()
	r := inf.Infer(sensor2, e)
	if r.Position != nil {
		t.Error("expected no position after bar lifted")
	}
}
