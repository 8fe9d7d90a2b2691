package steelcap

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// CopedantFile is the on-disk JSON schema for a copedant definition,
// applied on top of NewBuddyEmmonsE9's defaults the same way the teacher's
// preset.File patches piano.NewDefaultParams: every field is optional and
// only overrides the default when present.
type CopedantFile struct {
	Name         *string         `json:"name"`
	OpenStrings  *[10]float64    `json:"open_strings"`
	PedalChanges *[3][]ChangeDef `json:"pedal_changes"`
	LeverChanges *[5][]ChangeDef `json:"lever_changes"`
}

// LoadCopedantJSON reads a copedant JSON file and applies it on top of the
// Buddy Emmons E9 defaults, following preset.LoadJSON's
// read-file/unmarshal/apply-onto-default shape. Unlike LoadCalibration, a
// bad copedant file is treated as a fatal startup error (not a silent
// fall-back to defaults) since it's an explicit user choice of tuning, not
// an optional tuning refinement.
func LoadCopedantJSON(path string) (Copedant, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Copedant{}, err
	}

	var f CopedantFile
	if err := json.Unmarshal(b, &f); err != nil {
		return Copedant{}, err
	}

	c := NewBuddyEmmonsE9()
	if err := ApplyCopedantFile(&c, &f); err != nil {
		return Copedant{}, err
	}
	return c, nil
}

// ApplyCopedantFile applies a parsed copedant file onto an existing
// Copedant, validating each field the way preset.ApplyFile validates piano
// preset overrides.
func ApplyCopedantFile(dst *Copedant, f *CopedantFile) error {
	if dst == nil {
		return fmt.Errorf("nil destination copedant")
	}
	if f == nil {
		return nil
	}

	if f.Name != nil {
		name := strings.TrimSpace(*f.Name)
		if name == "" {
			return fmt.Errorf("name must not be empty")
		}
		dst.Name = name
	}
	if f.OpenStrings != nil {
		for i, midi := range f.OpenStrings {
			if midi <= 0 {
				return fmt.Errorf("open_strings[%d] must be > 0, got %v", i, midi)
			}
		}
		dst.OpenStrings = *f.OpenStrings
	}
	if f.PedalChanges != nil {
		for i, changes := range f.PedalChanges {
			for _, ch := range changes {
				if ch.String < 0 || ch.String >= 10 {
					return fmt.Errorf("pedal_changes[%d]: string index %d out of range", i, ch.String)
				}
			}
		}
		dst.PedalChanges = *f.PedalChanges
	}
	if f.LeverChanges != nil {
		for i, changes := range f.LeverChanges {
			for _, ch := range changes {
				if ch.String < 0 || ch.String >= 10 {
					return fmt.Errorf("lever_changes[%d]: string index %d out of range", i, ch.String)
				}
			}
		}
		dst.LeverChanges = *f.LeverChanges
	}

	return nil
}
