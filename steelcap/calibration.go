package steelcap

import (
	"encoding/json"
	"log"
	"os"
)

// StringThreshold holds one string's onset/release energy thresholds, in
// the same spectral-energy units StringDetector.Onset/Release use.
type StringThreshold struct {
	Onset   float64 `json:"onset"`
	Release float64 `json:"release"`
}

// Calibration is a saved set of per-string onset/release thresholds,
// produced by the calibrator tool. LoadCalibration reads one back, and
// OnsetThresholds/ReleaseThresholds feed StringDetector.SetThresholds;
// cmd/steel-capture does not load a calibration file at startup.
type Calibration struct {
	Strings [10]StringThreshold `json:"strings"`
}

// LoadCalibration reads a calibration file. A missing or malformed file is
// non-fatal: it logs a warning via logger (or the default logger if nil)
// and returns nil (there is no error return), matching the teacher's
// preset.LoadJSON idiom of treating an optional config file as "use
// defaults" rather than a hard failure — a stale or corrupt calibration
// file shouldn't prevent the capture pipeline from starting.
func LoadCalibration(path string, logger *log.Logger) *Calibration {
	if logger == nil {
		logger = log.Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		logger.Printf("calibration: could not read %s: %v (using defaults)", path, err)
		return nil
	}
	var c Calibration
	if err := json.Unmarshal(data, &c); err != nil {
		logger.Printf("calibration: could not parse %s: %v (using defaults)", path, err)
		return nil
	}
	return &c
}

// Save writes the calibration to path as indented JSON.
func (c *Calibration) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// OnsetThresholds flattens the per-string onset values to the array shape
// StringDetector.SetThresholds expects. A nil Calibration returns the
// StringDetector defaults (0.02 per string).
func (c *Calibration) OnsetThresholds() [10]float64 {
	var out [10]float64
	for i := range out {
		out[i] = 0.02
	}
	if c == nil {
		return out
	}
	for i, st := range c.Strings {
		out[i] = st.Onset
	}
	return out
}

// ReleaseThresholds flattens the per-string release values. A nil
// Calibration returns the StringDetector defaults (0.008 per string).
func (c *Calibration) ReleaseThresholds() [10]float64 {
	var out [10]float64
	for i := range out {
		out[i] = 0.008
	}
	if c == nil {
		return out
	}
	for i, st := range c.Strings {
		out[i] = st.Release
	}
	return out
}
