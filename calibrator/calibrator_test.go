package calibrator

import (
	"log"
	"math"
	"testing"
)

func TestComputeThresholdsWellSeparated(t *testing.T) {
	pluck := make([]float64, 20)
	for i := range pluck {
		pluck[i] = 0.04 + float64(i)*0.001
	}
	silence := make([]float64, 20)
	for i := range silence {
		silence[i] = 0.0005 + float64(i)*0.0001
	}

	onset, release := computeThresholds(pluck, silence, log.Default())
	if !(onset > 0.01 && onset < 0.06) {
		t.Errorf("onset=%v not in expected range", onset)
	}
	if release >= onset {
		t.Errorf("release=%v should be below onset=%v", release, onset)
	}
	if math.Abs(release-onset*0.4) > 1e-9 {
		t.Errorf("release should be onset*0.4, got release=%v onset=%v", release, onset)
	}
}

func TestComputeThresholdsPoorSeparationBestEffort(t *testing.T) {
	pluck := repeat(0.02, 10)
	silence := repeat(0.015, 10)

	onset, release := computeThresholds(pluck, silence, log.Default())
	if !(onset > 0.015 && onset < 0.02) {
		t.Errorf("onset=%v should be between silence and pluck", onset)
	}
	if release >= onset {
		t.Errorf("release=%v should be < onset=%v", release, onset)
	}
}

func TestComputeThresholdsPluckBelowNoiseUsesNoiseCeiling(t *testing.T) {
	pluck := repeat(0.001, 10)
	silence := repeat(0.005, 10)

	onset, release := computeThresholds(pluck, silence, log.Default())
	if onset <= 0.005 {
		t.Errorf("onset=%v should be above noise floor", onset)
	}
	if release <= 0.005 {
		t.Errorf("release=%v should also be above noise floor", release)
	}
	if release >= onset {
		t.Errorf("release=%v should be < onset=%v", release, onset)
	}
}

func TestPercentile(t *testing.T) {
	v := make([]float64, 10)
	for i := range v {
		v[i] = float64(i + 1)
	}
	if got := percentile(v, 0); got != 1.0 {
		t.Errorf("p0 = %v, want 1.0", got)
	}
	if got := percentile(v, 100); got != 10.0 {
		t.Errorf("p100 = %v, want 10.0", got)
	}
	if got := percentile(v, 50); got != 6.0 {
		t.Errorf("p50 = %v, want 6.0", got)
	}
	if got := percentile(v, 25); got != 3.0 {
		t.Errorf("p25 = %v, want 3.0", got)
	}
	if got := percentile(v, 75); got != 8.0 {
		t.Errorf("p75 = %v, want 8.0", got)
	}
}

func repeat(v float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}
