// Package sessionlog writes and reads recorded capture sessions: a
// self-describing JSONL frame stream plus a raw f32le audio sidecar,
// mirroring the on-disk format documented in the wire protocol spec.
package sessionlog

import "github.com/cwbudde/steel-capture/steelcap"

// channelDoc describes one CompactFrame field for the JSONL header line.
// Readers that have never seen this codebase can parse frames from this
// alone.
type channelDoc struct {
	Key         string      `json:"key"`
	Name        string      `json:"name"`
	Type        string      `json:"type"`
	Count       int         `json:"count,omitempty"`
	Range       []float64   `json:"range,omitempty"`
	Unit        string      `json:"unit,omitempty"`
	Values      []string    `json:"values,omitempty"`
	NullMeaning string      `json:"null_meaning,omitempty"`
}

var frameChannels = []channelDoc{
	{Key: "t", Name: "timestamp_us", Type: "u64", Unit: "microseconds"},
	{Key: "p", Name: "pedals", Type: "f32[]", Count: 3, Range: []float64{0, 1}, Unit: "engagement"},
	{Key: "kl", Name: "knee_levers", Type: "f32[]", Count: 5, Range: []float64{0, 1}, Unit: "engagement"},
	{Key: "v", Name: "volume", Type: "f32", Range: []float64{0, 1}, Unit: "engagement"},
	{Key: "bs", Name: "bar_sensors", Type: "f32[]", Count: 4, Range: []float64{0, 1}, Unit: "hall_normalized"},
	{Key: "bp", Name: "bar_position", Type: "f32?", Range: []float64{0, 24}, Unit: "frets", NullMeaning: "bar lifted"},
	{Key: "bc", Name: "bar_confidence", Type: "f32", Range: []float64{0, 1}},
	{Key: "bx", Name: "bar_source", Type: "enum", Values: []string{"none", "sensor", "audio", "fused"}},
	{Key: "hz", Name: "string_pitches_hz", Type: "f64[]", Count: 10, Unit: "Hz"},
	{Key: "sa", Name: "string_active", Type: "bool[]", Count: 10},
	{Key: "at", Name: "attacks", Type: "bool[]", Count: 10},
	{Key: "am", Name: "string_amplitude", Type: "f32[]", Count: 10, Range: []float64{0, 1}},
}

type changeDoc struct {
	String int     `json:"string"`
	Semis  float64 `json:"semitones"`
}

type controlDoc struct {
	Name    string      `json:"name"`
	Changes []changeDoc `json:"changes"`
}

type copedantDoc struct {
	Name        string       `json:"name"`
	OpenStrings [10]float64  `json:"open_strings_midi"`
	Pedals      []controlDoc `json:"pedals"`
	Levers      []controlDoc `json:"levers"`
}

func buildCopedantDoc(c steelcap.Copedant) copedantDoc {
	doc := copedantDoc{
		Name:        c.Name,
		OpenStrings: c.OpenStrings,
		Pedals:      make([]controlDoc, len(c.PedalChanges)),
		Levers:      make([]controlDoc, len(c.LeverChanges)),
	}
	for i, changes := range c.PedalChanges {
		name := ""
		if i < len(steelcap.PedalNames) {
			name = steelcap.PedalNames[i]
		}
		doc.Pedals[i] = controlDoc{Name: name, Changes: changesToDoc(changes)}
	}
	for i, changes := range c.LeverChanges {
		name := ""
		if i < len(steelcap.LeverNames) {
			name = steelcap.LeverNames[i]
		}
		doc.Levers[i] = controlDoc{Name: name, Changes: changesToDoc(changes)}
	}
	return doc
}

func changesToDoc(changes []steelcap.ChangeDef) []changeDoc {
	out := make([]changeDoc, len(changes))
	for i, c := range changes {
		out[i] = changeDoc{String: c.String, Semis: c.Delta}
	}
	return out
}

// header is the first line of frames.jsonl: format identifier, frame
// rate, the copedant in force, and the documented channel table.
type header struct {
	Format   string      `json:"format"`
	RateHz   int         `json:"rate_hz"`
	Copedant copedantDoc `json:"copedant"`
	Channels []channelDoc `json:"channels"`
}

func buildHeader(c steelcap.Copedant) header {
	return header{
		Format:   formatName,
		RateHz:   frameRateHz,
		Copedant: buildCopedantDoc(c),
		Channels: frameChannels,
	}
}

const (
	formatName  = "steel-capture"
	frameRateHz = 60
)
