// Package oscout broadcasts CaptureFrames as OSC messages over UDP, for
// driving a synth or DAW in real time.
package oscout

import (
	"fmt"
	"log"
	"net"
	"strconv"

	"github.com/hypebeast/go-osc/osc"

	"github.com/cwbudde/steel-capture/steelcap"
)

var pedalAddrs = [3]string{"/steel/pedal/a", "/steel/pedal/b", "/steel/pedal/c"}

// Sender drains a CaptureFrame channel and forwards each frame as the
// `/steel/...` OSC surface to a single UDP target.
type Sender struct {
	client *osc.Client
	Logger *log.Logger
}

// NewSender resolves host:port (e.g. "127.0.0.1:9000") into an OSC
// client target.
func NewSender(target string) (*Sender, error) {
	host, portStr, err := net.SplitHostPort(target)
	if err != nil {
		return nil, fmt.Errorf("parse OSC target %q: %w", target, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("parse OSC target port %q: %w", target, err)
	}
	return &Sender{
		client: osc.NewClient(host, port),
		Logger: log.Default(),
	}, nil
}

// Run drains frames until the channel is closed, sending each as a burst
// of OSC messages. Blocks the calling goroutine.
func (s *Sender) Run(frames <-chan steelcap.CaptureFrame) {
	s.Logger.Printf("OSC sender active")
	for frame := range frames {
		if err := s.sendFrame(frame); err != nil {
			s.Logger.Printf("OSC send error: %v", err)
		}
	}
	s.Logger.Printf("OSC sender shutting down")
}

func (s *Sender) sendFrame(frame steelcap.CaptureFrame) error {
	for i, val := range frame.Pedals {
		if err := s.sendFloat(pedalAddrs[i], val); err != nil {
			return err
		}
	}

	for i, val := range frame.KneeLevers {
		if err := s.sendFloat(fmt.Sprintf("/steel/knee/%d", i), val); err != nil {
			return err
		}
	}

	if err := s.sendFloat("/steel/volume", frame.Volume); err != nil {
		return err
	}

	if frame.BarPosition != nil {
		if err := s.sendFloat("/steel/bar/pos", float32(*frame.BarPosition)); err != nil {
			return err
		}
		if err := s.sendFloat("/steel/bar/confidence", float32(frame.BarConfidence)); err != nil {
			return err
		}
	} else {
		if err := s.sendFloat("/steel/bar/pos", -1.0); err != nil {
			return err
		}
		if err := s.sendFloat("/steel/bar/confidence", 0.0); err != nil {
			return err
		}
	}

	if err := s.sendFloat("/steel/bar/source", float32(frame.BarSource)); err != nil {
		return err
	}

	for i, val := range frame.BarSensorValues {
		if err := s.sendFloat(fmt.Sprintf("/steel/bar/sensor/%d", i), val); err != nil {
			return err
		}
	}

	for i, hz := range frame.StringPitchesHz {
		if err := s.sendFloat(fmt.Sprintf("/steel/pitch/%d", i), float32(hz)); err != nil {
			return err
		}
	}

	return nil
}

func (s *Sender) sendFloat(addr string, val float32) error {
	msg := osc.NewMessage(addr)
	msg.Append(val)
	return s.client.Send(msg)
}
