package audioin

import (
	dspresample "github.com/cwbudde/algo-dsp/dsp/resample"
)

// TargetSampleRate is the rate every analysis window in this repo is
// calibrated to (C2-C5's Goertzel bins, the string detector's matched
// filters). WavPlayer resamples files at other rates to it before handing
// samples off; live Capture instead opens the device at this rate and
// does not call resampleMono.
const TargetSampleRate = 48000

// resampleMono resamples mono to TargetSampleRate if it isn't already
// there, mirroring fitcommon.ResampleIfNeeded's from/to-rate shortcut.
func resampleMono(mono []float32, fromRate uint32) ([]float32, error) {
	if fromRate == TargetSampleRate {
		return mono, nil
	}

	in := make([]float64, len(mono))
	for i, s := range mono {
		in[i] = float64(s)
	}

	r, err := dspresample.NewForRates(
		float64(fromRate),
		float64(TargetSampleRate),
		dspresample.WithQuality(dspresample.QualityBest),
	)
	if err != nil {
		return nil, err
	}
	out := r.Process(in)

	result := make([]float32, len(out))
	for i, s := range out {
		result[i] = float32(s)
	}
	return result, nil
}
