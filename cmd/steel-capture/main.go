package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/cwbudde/steel-capture/audioin"
	"github.com/cwbudde/steel-capture/calibrator"
	"github.com/cwbudde/steel-capture/console"
	"github.com/cwbudde/steel-capture/oscout"
	"github.com/cwbudde/steel-capture/serial"
	"github.com/cwbudde/steel-capture/sessionlog"
	"github.com/cwbudde/steel-capture/steelcap"
	"github.com/cwbudde/steel-capture/wsserver"
)

func main() {
	simulate := flag.Bool("simulate", true, "Run in simulator mode (no hardware required)")
	port := flag.String("port", "/dev/ttyACM0", "Serial port for Teensy (e.g. /dev/ttyACM0)")
	oscTarget := flag.String("osc-target", "127.0.0.1:9000", "OSC target address")
	oscEnabled := flag.Bool("osc", false, "Enable OSC output")
	logData := flag.Bool("log-data", false, "Enable data logging")
	outputDir := flag.String("output-dir", "./sessions", "Output directory for logged sessions")
	consoleEnabled := flag.Bool("console", false, "Enable console display")
	displayHz := flag.Uint("display-hz", 20, "Console display refresh rate (Hz)")
	wsEnabled := flag.Bool("ws", false, "Enable WebSocket server for browser visualization")
	wsAddr := flag.String("ws-addr", "0.0.0.0:8080", "WebSocket server bind address")
	wsFPS := flag.Uint("ws-fps", 60, "WebSocket broadcast rate (Hz)")
	wsAssetDir := flag.String("ws-asset-dir", ".", "Directory containing visualization.html and its assets")
	sensorRate := flag.Uint("sensor-rate", 1000, "Sensor sample rate (Hz)")
	demo := flag.String("demo", "basic", `Simulator demo sequence ("basic" is the only one implemented)`)
	detectStrings := flag.Bool("detect-strings", false, "Use audio-based string detection instead of simulator ground truth")
	audioFile := flag.String("audio-file", "", "Stream a WAV file as the audio source instead of the simulator's synthetic tone")
	calibrate := flag.String("calibrate", "", "Run the per-string calibrator and write thresholds to this file, then exit")
	copedantFile := flag.String("copedant", "", "Load a copedant definition from this JSON file instead of the built-in Buddy Emmons E9 tuning")
	flag.Parse()

	logger := log.New(os.Stderr, "", log.LstdFlags)

	copedant := steelcap.NewBuddyEmmonsE9()
	if *copedantFile != "" {
		loaded, err := steelcap.LoadCopedantJSON(*copedantFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "loading copedant %s: %v\n", *copedantFile, err)
			os.Exit(1)
		}
		copedant = loaded
	}
	engine := steelcap.NewEngine(copedant)

	logger.Printf("===============================================")
	logger.Printf("  STEEL CAPTURE")
	logger.Printf("  Copedant: %s", copedant.Name)
	if *simulate {
		logger.Printf("  Mode: SIMULATOR")
	} else {
		logger.Printf("  Mode: HARDWARE")
	}
	logger.Printf("===============================================")

	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Printf("shutting down...")
		cancel()
	}()

	if *calibrate != "" {
		runCalibration(ctx, logger, engine, *calibrate, *audioFile)
		return
	}

	input := make(chan steelcap.InputEvent, 4096)
	audioLog := make(chan *steelcap.AudioChunk, 1024)

	coord := steelcap.NewCoordinator(copedant)
	coord.Inference.Logger = logger
	coord.Detector = steelcap.NewStringDetector()
	coord.Logger = logger
	coord.UseAudioDetection = *detectStrings || !*simulate

	var wg sync.WaitGroup

	if *consoleEnabled {
		ch := make(chan steelcap.CaptureFrame, 256)
		coord.AddFrameSink(ch)
		disp := console.NewDisplay(os.Stdout, uint32(*displayHz))
		wg.Add(1)
		go func() {
			defer wg.Done()
			disp.Run(ch)
		}()
	}

	if *oscEnabled {
		ch := make(chan steelcap.CaptureFrame, 1024)
		coord.AddFrameSink(ch)
		sender, err := oscout.NewSender(*oscTarget)
		if err != nil {
			fmt.Fprintf(os.Stderr, "osc target: %v\n", err)
			os.Exit(1)
		}
		sender.Logger = logger
		wg.Add(1)
		go func() {
			defer wg.Done()
			sender.Run(ch)
		}()
	}

	if *logData {
		ch := make(chan steelcap.CaptureFrame, 4096)
		coord.AddFrameSink(ch)
		coord.SetAudioLogSink(audioLog)
		dl, err := sessionlog.NewDataLogger(ch, audioLog, *outputDir, copedant, time.Now().Unix())
		if err != nil {
			fmt.Fprintf(os.Stderr, "data logger: %v\n", err)
			os.Exit(1)
		}
		dl.Logger = logger
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := dl.Run(); err != nil {
				logger.Printf("data logger error: %v", err)
			}
		}()
	}

	if *wsEnabled {
		ch := make(chan steelcap.CaptureFrame, 1024)
		coord.AddFrameSink(ch)
		server := wsserver.NewServer(*wsAddr, uint32(*wsFPS), *wsAssetDir)
		server.Logger = logger
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := server.Run(ch); err != nil {
				logger.Printf("ws server error: %v", err)
			}
		}()
		logger.Printf("open http://%s in your browser", strings.Replace(*wsAddr, "0.0.0.0", "localhost", 1))
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		coord.Run(ctx, input)
	}()

	if *simulate {
		logger.Printf("starting simulator...")
		sim := steelcap.NewSimulator(copedant, uint32(*sensorRate))
		sim.Logger = logger
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := sim.Run(ctx, *demo, input); err != nil {
				logger.Printf("simulator error: %v", err)
			}
		}()
	} else {
		logger.Printf("starting serial reader on %s...", *port)
		reader := serial.NewReader(*port)
		reader.Logger = logger
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := reader.Run(ctx.Done(), input); err != nil {
				logger.Printf("serial reader error: %v", err)
			}
		}()
	}

	if *audioFile != "" {
		player := audioin.NewWavPlayer(*audioFile)
		player.Logger = logger
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := player.Run(ctx, input); err != nil {
				logger.Printf("wav player error: %v", err)
			}
		}()
	} else if !*simulate {
		cap, err := audioin.StartCapture(input)
		if err != nil {
			fmt.Fprintf(os.Stderr, "audio capture: %v\n", err)
			os.Exit(1)
		}
		defer cap.Close()
	}

	logger.Printf("running. press Ctrl+C to stop.")
	wg.Wait()
}

func runCalibration(ctx context.Context, logger *log.Logger, engine *steelcap.Engine, outPath string, audioFile string) {
	audio := make(chan steelcap.InputEvent, 64)

	if audioFile == "" {
		fmt.Fprintln(os.Stderr, "calibration requires --audio-file (live capture calibration not wired into this CLI)")
		os.Exit(1)
	}

	player := audioin.NewWavPlayer(audioFile)
	player.Logger = logger
	go func() {
		if err := player.Run(ctx, audio); err != nil {
			logger.Printf("wav player error: %v", err)
		}
		close(audio)
	}()

	c := calibrator.NewCalibrator(audio, engine)
	c.Logger = logger

	cal, err := c.Run(ctx, 2.0, func(idx int, name string, freqHz float64) {
		logger.Printf("string %d (%s) — %.1f Hz", idx+1, name, freqHz)
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "calibration failed: %v\n", err)
		os.Exit(1)
	}

	if err := cal.Save(filepath.Clean(outPath)); err != nil {
		fmt.Fprintf(os.Stderr, "saving calibration: %v\n", err)
		os.Exit(1)
	}
	logger.Printf("calibration written to %s", outPath)
}
