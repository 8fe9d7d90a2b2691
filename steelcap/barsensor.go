package steelcap

import "math"

// BarSensor interpolates bar position from the 4 SS49E Hall sensors mounted
// along the treble-side rail at BarSensorFrets. A magnet on the bar's
// treble end produces a field that falls off roughly as 1/(d^2+h^2)^1.5;
// the nearest sensor always gets a strong reading and its neighbors give a
// gradient, so weighted local-peak interpolation recovers position to
// about +/-0.3 frets across the full range. Readings near zero everywhere
// (below PresenceThreshold) mean the bar is off the strings entirely,
// which doubles as reliable bar on/off detection during silence.
type BarSensor struct {
	SensorFrets        [4]float64
	PresenceThreshold  float64
	Smoothing          float64
	lastPosition       *float64
}

// NewBarSensor returns a BarSensor with the production defaults:
// presence threshold 0.05, smoothing 0.3.
func NewBarSensor() *BarSensor {
	return &BarSensor{
		SensorFrets:       BarSensorFrets,
		PresenceThreshold: 0.05,
		Smoothing:         0.3,
	}
}

// Estimate computes (position, confidence) from raw sensor readings, or
// (0, 0, false) if the bar isn't detected (lifted, or too far from every
// sensor to produce a meaningful reading).
func (b *BarSensor) Estimate(readings [4]float32) (float64, float64, bool) {
	var total float64
	for _, r := range readings {
		total += float64(r)
	}
	if total < b.PresenceThreshold {
		b.lastPosition = nil
		return 0, 0, false
	}

	peakIdx := 0
	peakVal := float64(readings[0])
	for i := 1; i < 4; i++ {
		if float64(readings[i]) > peakVal {
			peakVal = float64(readings[i])
			peakIdx = i
		}
	}
	if peakVal < b.PresenceThreshold {
		b.lastPosition = nil
		return 0, 0, false
	}

	haveLeft := peakIdx > 0
	haveRight := peakIdx < 3
	var neighborIdx int
	var neighborVal float64
	haveNeighbor := false
	switch {
	case haveLeft && haveRight:
		lv, rv := float64(readings[peakIdx-1]), float64(readings[peakIdx+1])
		if lv >= rv {
			neighborIdx, neighborVal = peakIdx-1, lv
		} else {
			neighborIdx, neighborVal = peakIdx+1, rv
		}
		haveNeighbor = true
	case haveLeft:
		neighborIdx, neighborVal = peakIdx-1, float64(readings[peakIdx-1])
		haveNeighbor = true
	case haveRight:
		neighborIdx, neighborVal = peakIdx+1, float64(readings[peakIdx+1])
		haveNeighbor = true
	}

	var rawPos float64
	if haveNeighbor && neighborVal > b.PresenceThreshold*0.5 {
		peakFret := b.SensorFrets[peakIdx]
		neighborFret := b.SensorFrets[neighborIdx]
		t := neighborVal / (peakVal + neighborVal)
		rawPos = peakFret + t*(neighborFret-peakFret)
	} else {
		rawPos = b.SensorFrets[peakIdx]
	}

	peakedness := peakVal / total // 0.25 (uniform) .. 1.0 (single sensor)
	confidence := clamp((peakedness-0.25)/0.75, 0.3, 1.0)

	var smoothed float64
	if b.lastPosition != nil {
		alpha := 1.0 - b.Smoothing
		smoothed = *b.lastPosition + alpha*(rawPos-*b.lastPosition)
	} else {
		smoothed = rawPos
	}
	b.lastPosition = &smoothed

	return smoothed, confidence, true
}

// Reset clears smoothing state, e.g. on session restart.
func (b *BarSensor) Reset() {
	b.lastPosition = nil
}

// simulateBarReadings models the Hall-sensor response to a bar at
// barFret, for the Simulator and for tests. Characteristic distance of
// 2.5 frets was chosen so the nearest sensor saturates while 1-2
// neighbors still produce a usable gradient.
func simulateBarReadings(barFret float64) [4]float32 {
	const charDist = 2.5
	const amplitude = 1.0
	var readings [4]float32
	for i, sensorFret := range BarSensorFrets {
		d := math.Abs(barFret - sensorFret)
		normalized := d / charDist
		denom := math.Pow(1.0+normalized*normalized, 1.5)
		v := amplitude / denom
		if v > 1.0 {
			v = 1.0
		}
		readings[i] = float32(v)
	}
	return readings
}
