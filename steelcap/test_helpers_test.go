package steelcap

import "math"

func sineWave(freqHz float64, sr uint32, ms uint32) []float32 {
	n := int(uint64(sr) * uint64(ms) / 1000)
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(0.8 * math.Sin(2*math.Pi*freqHz*float64(i)/float64(sr)))
	}
	return out
}

func multiSine(freqs []float64, sr uint32, ms uint32) []float32 {
	n := int(uint64(sr) * uint64(ms) / 1000)
	amp := 0.6 / float64(len(freqs))
	out := make([]float32, n)
	for i := range out {
		t := float64(i) / float64(sr)
		var sum float64
		for _, f := range freqs {
			sum += amp * math.Sin(2*math.Pi*f*t)
		}
		out[i] = float32(sum)
	}
	return out
}
