// Package serial reads the Teensy binary sensor protocol over a USB
// serial link: sync word, host-relative timestamp, calibrated ADC
// channels (pedals, knee levers, volume, bar Hall sensors), and a
// trailing CRC-16.
package serial

import (
	"encoding/binary"
	"fmt"
)

// FrameSize is the total wire size of one Teensy frame in bytes.
//
//	offset  size  field
//	0       2     sync word (0xBEEF, little-endian)
//	2       4     timestamp_us (u32, wrapping, Teensy clock — unused; the
//	              host's own clock is used for consistency)
//	6       2×13  ADC channels (u16 each): 3 pedals, 5 knee levers, 1
//	              volume, 4 bar Hall sensors
//	32      2     CRC-16/CCITT-FALSE over bytes [0:32]
const FrameSize = 34

// NumChannels is the count of calibrated ADC channels in one frame: the
// original 9 (3 pedals + 5 knee levers + volume) plus 4 bar Hall sensors.
const NumChannels = 13

// SyncWord is the little-endian frame delimiter.
const SyncWord = 0xBEEF

// Calibration maps raw 12-bit ADC readings (0-4095) to 0.0-1.0 per
// channel, as a (min, max) pair.
type Calibration struct {
	Ranges [NumChannels][2]uint16
}

// DefaultCalibration assumes the full sensor range observed at rest and
// fully engaged; Reader.WithCalibration replaces it with measured ranges.
func DefaultCalibration() Calibration {
	c := Calibration{}
	for i := range c.Ranges {
		c.Ranges[i] = [2]uint16{200, 3800}
	}
	return c
}

func (c Calibration) apply(raw [NumChannels]uint16) [NumChannels]float32 {
	var out [NumChannels]float32
	for i, r := range raw {
		lo, hi := float32(c.Ranges[i][0]), float32(c.Ranges[i][1])
		span := hi - lo
		if span < 1.0 {
			span = 1.0
		}
		v := (float32(r) - lo) / span
		if v < 0 {
			v = 0
		} else if v > 1 {
			v = 1
		}
		out[i] = v
	}
	return out
}

// findSync returns the index of the first little-endian 0xBEEF sync word
// in buf, or -1 if none is present.
func findSync(buf []byte) int {
	for i := 0; i+1 < len(buf); i++ {
		if buf[i] == 0xEF && buf[i+1] == 0xBE {
			return i
		}
	}
	return -1
}

// parsedFrame is the decoded, not-yet-calibrated content of one frame.
type parsedFrame struct {
	raw [NumChannels]uint16
}

// parseFrame validates sync and CRC and decodes the channel values from
// exactly FrameSize bytes.
func parseFrame(data []byte) (parsedFrame, error) {
	if len(data) != FrameSize {
		return parsedFrame{}, fmt.Errorf("wrong size: %d", len(data))
	}

	sync := binary.LittleEndian.Uint16(data[0:2])
	if sync != SyncWord {
		return parsedFrame{}, fmt.Errorf("bad sync: 0x%04X", sync)
	}

	var pf parsedFrame
	for i := 0; i < NumChannels; i++ {
		off := 6 + i*2
		pf.raw[i] = binary.LittleEndian.Uint16(data[off : off+2])
	}

	receivedCRC := binary.LittleEndian.Uint16(data[FrameSize-2 : FrameSize])
	computedCRC := crc16(data[:FrameSize-2])
	if receivedCRC != computedCRC {
		return parsedFrame{}, fmt.Errorf("CRC mismatch: received 0x%04X, computed 0x%04X", receivedCRC, computedCRC)
	}

	return pf, nil
}

// crc16 computes CRC-16/CCITT-FALSE (poly 0x1021, init 0xFFFF).
func crc16(data []byte) uint16 {
	var crc uint16 = 0xFFFF
	for _, b := range data {
		crc ^= uint16(b) << 8
		for i := 0; i < 8; i++ {
			if crc&0x8000 != 0 {
				crc = (crc << 1) ^ 0x1021
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}
