package serial

import (
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	serialport "go.bug.st/serial"

	"github.com/cwbudde/steel-capture/steelcap"
)

// Reader streams SensorFrames off a Teensy over a USB serial link and
// pushes them into a channel of InputEvents, framed as Sensor events.
type Reader struct {
	portName    string
	baudRate    int
	calibration Calibration
	Logger      *log.Logger
}

// NewReader configures a Reader for portName at the Teensy firmware's
// fixed baud rate, with DefaultCalibration applied.
func NewReader(portName string) *Reader {
	return &Reader{
		portName:    portName,
		baudRate:    115200,
		calibration: DefaultCalibration(),
		Logger:      log.Default(),
	}
}

// WithCalibration overrides the default per-channel ADC calibration.
func (r *Reader) WithCalibration(cal Calibration) *Reader {
	r.calibration = cal
	return r
}

// Run opens the serial port and blocks, decoding frames and sending a
// SensorFrame-wrapped InputEvent for each one until ctx-style cancellation
// is signalled by closing done. It returns an error only if the port
// cannot be opened; read errors are logged and retried.
func (r *Reader) Run(done <-chan struct{}, out chan<- steelcap.InputEvent) error {
	r.Logger.Printf("opening serial port: %s @ %d", r.portName, r.baudRate)

	port, err := serialport.Open(r.portName, &serialport.Mode{BaudRate: r.baudRate})
	if err != nil {
		return fmt.Errorf("open serial port %s: %w (is the Teensy connected? run with --simulate for dev mode)", r.portName, err)
	}
	defer port.Close()
	port.SetReadTimeout(100 * time.Millisecond)

	r.Logger.Printf("serial port opened, reading frames")

	buf := make([]byte, 256)
	frameBuf := make([]byte, 0, FrameSize*4)
	var frameCount, errorCount uint64

	for {
		select {
		case <-done:
			return nil
		default:
		}

		n, err := port.Read(buf)
		if err != nil {
			if errors.Is(err, io.EOF) {
				continue
			}
			r.Logger.Printf("serial read error: %v", err)
			time.Sleep(100 * time.Millisecond)
			continue
		}
		if n == 0 {
			continue
		}
		frameBuf = append(frameBuf, buf[:n]...)

		for len(frameBuf) >= FrameSize {
			pos := findSync(frameBuf)
			if pos < 0 {
				keep := len(frameBuf) - 1
				if keep < 0 {
					keep = 0
				}
				frameBuf = frameBuf[len(frameBuf)-keep:]
				break
			}
			if pos > 0 {
				frameBuf = frameBuf[pos:]
			}
			if len(frameBuf) < FrameSize {
				break
			}

			frameBytes := frameBuf[:FrameSize]
			frameBuf = frameBuf[FrameSize:]

			pf, perr := parseFrame(frameBytes)
			if perr != nil {
				errorCount++
				continue
			}

			calibrated := r.calibration.apply(pf.raw)
			sensor := &steelcap.SensorFrame{
				TimestampUs: uint64(time.Now().UnixMicro()),
				Pedals:      [3]float32{calibrated[0], calibrated[1], calibrated[2]},
				KneeLevers:  [5]float32{calibrated[3], calibrated[4], calibrated[5], calibrated[6], calibrated[7]},
				Volume:      calibrated[8],
				BarSensors:  [4]float32{calibrated[9], calibrated[10], calibrated[11], calibrated[12]},
			}
			out <- steelcap.InputEvent{Sensor: sensor}
			frameCount++
			if frameCount%5000 == 0 {
				r.Logger.Printf("serial: %d frames, %d errors", frameCount, errorCount)
			}
		}
	}
}
