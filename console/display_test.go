package console

import (
	"strings"
	"testing"

	"github.com/cwbudde/steel-capture/steelcap"
)

func TestHzToNoteNameA440(t *testing.T) {
	if got := hzToNoteName(440.0); got != "A4" {
		t.Errorf("hzToNoteName(440) = %q, want A4", got)
	}
}

func TestHzToNoteNameSilence(t *testing.T) {
	if got := hzToNoteName(0); got != "---" {
		t.Errorf("hzToNoteName(0) = %q, want ---", got)
	}
}

func TestMakeBarFullAndEmpty(t *testing.T) {
	if got := makeBar(0, 10); got != "[░░░░░░░░░░]" {
		t.Errorf("makeBar(0,10) = %q", got)
	}
	if got := makeBar(1, 10); got != "[██████████]" {
		t.Errorf("makeBar(1,10) = %q", got)
	}
}

func TestMakeFretboardMarksBarPosition(t *testing.T) {
	fb := makeFretboard(5.0, 24)
	if !strings.Contains(fb, "▼") {
		t.Error("expected a bar marker in fretboard output")
	}
	if len([]rune(fb)) != 54 {
		t.Errorf("len(fb) = %d, want 54", len([]rune(fb)))
	}
}

func TestDisplayRunRendersFrame(t *testing.T) {
	var buf strings.Builder
	d := NewDisplay(&buf, 1000) // skip=1, render every frame

	frames := make(chan steelcap.CaptureFrame, 1)
	frames <- steelcap.CaptureFrame{TimestampUs: 2_000_000, Volume: 0.5}
	close(frames)

	d.Run(frames)

	out := buf.String()
	if !strings.Contains(out, "STEEL CAPTURE") {
		t.Error("expected dashboard header in output")
	}
	if !strings.Contains(out, "Time: 2.00s") {
		t.Errorf("expected timestamp line, got: %s", out)
	}
}
