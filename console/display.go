// Package console renders a live ASCII dashboard of the capture state to
// a terminal, for monitoring without the WebSocket visualizer.
package console

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/cwbudde/steel-capture/steelcap"
)

var noteNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// Display renders a boxed dashboard for every Nth CaptureFrame, throttled
// to approximately UpdateHz redraws per second against a 1kHz-ish frame
// stream.
type Display struct {
	out      io.Writer
	updateHz uint32
}

// NewDisplay renders to w, redrawing at approximately updateHz (0 means
// a conservative default).
func NewDisplay(w io.Writer, updateHz uint32) *Display {
	return &Display{out: w, updateHz: updateHz}
}

// Run drains frames until the channel is closed, redrawing the dashboard
// periodically. Blocks the calling goroutine.
func (d *Display) Run(frames <-chan steelcap.CaptureFrame) {
	skip := uint64(50)
	if d.updateHz != 0 {
		s := uint64(1000 / d.updateHz)
		if s < 1 {
			s = 1
		}
		skip = s
	}

	bw := bufio.NewWriter(d.out)
	var count uint64
	for frame := range frames {
		count++
		if count%skip != 0 {
			continue
		}
		d.render(bw, frame)
		bw.Flush()
	}
}

func (d *Display) render(w io.Writer, frame steelcap.CaptureFrame) {
	fmt.Fprint(w, "\x1b[2J\x1b[H")

	fmt.Fprintln(w, "╔══════════════════════════════════════════════════════════╗")
	fmt.Fprintln(w, "║  STEEL CAPTURE — Live Monitor                           ║")
	fmt.Fprintln(w, "╠══════════════════════════════════════════════════════════╣")

	secs := float64(frame.TimestampUs) / 1_000_000.0
	fmt.Fprintf(w, "║  Time: %.2fs\n", secs)

	fmt.Fprintln(w, "║")
	fmt.Fprintln(w, "║  Pedals:")
	for i, val := range frame.Pedals {
		fmt.Fprintf(w, "║    %s: %s %.0f%%\n", steelcap.PedalNames[i], makeBar(val, 30), val*100)
	}

	fmt.Fprintln(w, "║")
	fmt.Fprintln(w, "║  Knee Levers:")
	for i, val := range frame.KneeLevers {
		fmt.Fprintf(w, "║    %3s: %s %.0f%%\n", steelcap.LeverNames[i], makeBar(val, 30), val*100)
	}

	fmt.Fprintln(w, "║")
	fmt.Fprintf(w, "║  Volume: %s %.0f%%\n", makeBar(frame.Volume, 30), frame.Volume*100)

	fmt.Fprintln(w, "║")
	if frame.BarPosition != nil {
		pos := *frame.BarPosition
		fmt.Fprintf(w, "║  Bar: fret %.2f (conf: %.0f%%, src: %s)\n", pos, frame.BarConfidence*100, frame.BarSource)
		fmt.Fprintf(w, "║  %s\n", makeFretboard(pos, 24))
	} else {
		fmt.Fprintln(w, "║  Bar: --- (not detected)")
		fmt.Fprintln(w, "║")
	}

	fmt.Fprintln(w, "║")
	fmt.Fprintln(w, "║  String Pitches:")
	for i, hz := range frame.StringPitchesHz {
		fmt.Fprintf(w, "║    %6s: %7.1f Hz  (%4s)\n", steelcap.E9StringNames[i], hz, hzToNoteName(hz))
	}

	fmt.Fprintln(w, "╚══════════════════════════════════════════════════════════╝")
}

func makeBar(val float32, width int) string {
	filled := int(math.Round(float64(val) * float64(width)))
	if filled < 0 {
		filled = 0
	}
	if filled > width {
		filled = width
	}
	empty := width - filled
	return "[" + strings.Repeat("█", filled) + strings.Repeat("░", empty) + "]"
}

func makeFretboard(pos float64, maxFret int) string {
	var b strings.Builder
	b.WriteString("Nut ")
	for fret := 0; fret <= maxFret; fret++ {
		if math.Abs(pos-float64(fret)) < 0.3 {
			b.WriteRune('▼')
		} else {
			b.WriteRune('│')
		}
		b.WriteByte(' ')
	}
	runes := []rune(b.String())
	for len(runes) < 54 {
		runes = append(runes, ' ')
	}
	if len(runes) > 54 {
		runes = runes[:54]
	}
	return string(runes)
}

func hzToNoteName(hz float64) string {
	if hz < 20.0 {
		return "---"
	}
	midi := 69.0 + 12.0*math.Log2(hz/440.0)
	noteNum := int(math.Round(midi))
	cents := int(math.Round((midi - float64(noteNum)) * 100.0))

	name := noteNames[((noteNum%12)+12)%12]
	octave := noteNum/12 - 1

	switch {
	case cents == 0:
		return fmt.Sprintf("%s%d", name, octave)
	case cents > 0:
		return fmt.Sprintf("%s%d+%d", name, octave, cents)
	default:
		return fmt.Sprintf("%s%d%d", name, octave, cents)
	}
}
