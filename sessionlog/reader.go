package sessionlog

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/cwbudde/steel-capture/steelcap"
)

// Header is the parsed first line of a session's frames.jsonl.
type Header struct {
	Format       string
	RateHz       uint32
	CopedantName string
	Channels     []json.RawMessage
	Raw          json.RawMessage
}

// SessionReader streams CaptureFrames back out of a recorded frames.jsonl,
// validating the header up front.
type SessionReader struct {
	r      *bufio.Reader
	Header Header
}

type rawHeader struct {
	Format   string          `json:"format"`
	RateHz   uint32          `json:"rate_hz"`
	Copedant json.RawMessage `json:"copedant"`
	Channels []json.RawMessage `json:"channels"`
}

type rawCopedantName struct {
	Name string `json:"name"`
}

// Open reads and validates the header line. Returns an error if the
// header is missing, unparseable, or its "format" field is not
// "steel-capture".
func Open(r io.Reader) (*SessionReader, error) {
	br := bufio.NewReader(r)
	line, err := br.ReadString('\n')
	if err != nil && line == "" {
		if err == io.EOF {
			return nil, fmt.Errorf("empty file")
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return nil, fmt.Errorf("empty file")
	}

	var raw rawHeader
	if err := json.Unmarshal([]byte(line), &raw); err != nil {
		return nil, fmt.Errorf("parse header: %w", err)
	}
	if raw.Format == "" {
		return nil, fmt.Errorf("missing \"format\" field")
	}
	if raw.Format != formatName {
		return nil, fmt.Errorf("unknown format: %s", raw.Format)
	}
	rateHz := raw.RateHz
	if rateHz == 0 {
		rateHz = frameRateHz
	}

	var name rawCopedantName
	if len(raw.Copedant) > 0 {
		json.Unmarshal(raw.Copedant, &name)
	}

	return &SessionReader{
		r: br,
		Header: Header{
			Format:       raw.Format,
			RateHz:       rateHz,
			CopedantName: name.Name,
			Channels:     raw.Channels,
			Raw:          json.RawMessage(line),
		},
	}, nil
}

// NextFrame reads the next frame line. Returns (frame, true, nil) on
// success, (zero, false, nil) at EOF, and (zero, true, err) for an
// unparseable line (the caller may continue reading after an error).
func (s *SessionReader) NextFrame() (steelcap.CaptureFrame, bool, error) {
	for {
		line, err := s.r.ReadString('\n')
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			if err != nil {
				return steelcap.CaptureFrame{}, false, nil
			}
			continue
		}

		var compact steelcap.CompactFrame
		if uerr := json.Unmarshal([]byte(trimmed), &compact); uerr != nil {
			return steelcap.CaptureFrame{}, true, fmt.Errorf("parse frame: %w", uerr)
		}
		return compact.ToCaptureFrame(), true, nil
	}
}

// ReadAll reads all remaining frames, silently skipping malformed lines.
func (s *SessionReader) ReadAll() []steelcap.CaptureFrame {
	var frames []steelcap.CaptureFrame
	for {
		frame, ok, err := s.NextFrame()
		if !ok {
			return frames
		}
		if err == nil {
			frames = append(frames, frame)
		}
	}
}
