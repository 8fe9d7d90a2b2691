package audioin

import (
	"encoding/binary"
	"math"
	"testing"
)

func floatBytes(values ...float32) []byte {
	out := make([]byte, 4*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint32(out[i*4:i*4+4], math.Float32bits(v))
	}
	return out
}

func TestMixMonoF32BytesSingleChannel(t *testing.T) {
	data := floatBytes(0.1, -0.2, 0.3)
	out := mixMonoF32Bytes(data, 1)
	want := []float32{0.1, -0.2, 0.3}
	if len(out) != len(want) {
		t.Fatalf("len = %d, want %d", len(out), len(want))
	}
	for i := range want {
		if out[i] != want[i] {
			t.Errorf("out[%d] = %v, want %v", i, out[i], want[i])
		}
	}
}

func TestMixMonoF32BytesStereo(t *testing.T) {
	data := floatBytes(1.0, -1.0, 0.5, 0.5)
	out := mixMonoF32Bytes(data, 2)
	if len(out) != 2 {
		t.Fatalf("len = %d, want 2", len(out))
	}
	if out[0] != 0.0 {
		t.Errorf("frame 0 = %v, want 0.0 (average of 1.0, -1.0)", out[0])
	}
	if out[1] != 0.5 {
		t.Errorf("frame 1 = %v, want 0.5", out[1])
	}
}
