// gaze - webcam eye tracker that publishes a normalized gaze point
// to a JSON file, and optionally over HTTP and websockets.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/teslashibe/go-gaze/internal/log"
	"github.com/teslashibe/go-gaze/pkg/app"
	"github.com/teslashibe/go-gaze/pkg/camera"
	"github.com/teslashibe/go-gaze/pkg/filter"
	"github.com/teslashibe/go-gaze/pkg/keys"
)

func main() {
	cfg := parseFlags()

	// Raw terminal mode needs CR before every LF
	if cfg.Keys && keys.Interactive() {
		log.InitWriter(cfg.LogLevel, keys.CRLF(os.Stderr))
	} else {
		log.Init(cfg.LogLevel)
	}

	if err := run(cfg); err != nil {
		log.Error("gaze tracker failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg app.Config) error {
	a, err := app.New(cfg)
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	if err := a.Init(); err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}
	defer a.Shutdown()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	return a.Run(ctx)
}

// parseFlags parses command line flags and returns configuration.
// Precedence: flags, then GAZE_* environment variables, then defaults.
func parseFlags() app.Config {
	cfg := app.DefaultConfig()
	cfg.LoadEnvConfig()

	device := flag.Int("camera", cfg.Camera.Device, "Camera device index")
	preset := flag.String("camera-preset", "", "Camera preset: "+strings.Join(camera.PresetNames(), ", "))
	width := flag.Int("width", cfg.Camera.Width, "Requested frame width")
	height := flag.Int("height", cfg.Camera.Height, "Requested frame height")
	fps := flag.Int("fps", cfg.Camera.Framerate, "Requested frame rate, 0 = driver default")
	noMirror := flag.Bool("no-mirror", false, "Do not flip frames horizontally")

	output := flag.String("output", cfg.Output, "Gaze JSON file")
	backend := flag.String("backend", cfg.Backend, "Detection backend: haar, yunet, pigo")
	irisMode := flag.String("iris", cfg.Iris, "Iris localizer: hough, blob")
	cascadeDir := flag.String("cascade-dir", cfg.CascadeDir, "Directory with Haar cascade XML files")
	yunetModel := flag.String("yunet-model", cfg.YuNetModel, "YuNet ONNX model")
	pigoCascade := flag.String("pigo-cascade", cfg.PigoCascade, "pigo face cascade")

	filterKind := flag.String("filter", string(cfg.Filter), "Smoothing filter: kalman, ema")
	alpha := flag.Float64("alpha", cfg.Alpha, "EMA smoothing factor in (0, 1]")

	httpPort := flag.String("http-port", cfg.HTTPPort, "Serve the web API on this port, empty disables")
	calibrationFile := flag.String("calibration-file", cfg.CalibrationFile, "Load and save the calibration profile here")
	noPreview := flag.Bool("no-preview", false, "Run without the preview window")
	noKeys := flag.Bool("no-keys", false, "Ignore terminal key presses")

	logLevel := flag.String("log-level", cfg.LogLevel, "Log level: debug, info, warn, error")
	debug := flag.Bool("debug", false, "Enable verbose debug logging")
	debugFrames := flag.Bool("debug-frames", false, "Log every frame's detections (very verbose)")

	flag.Parse()

	set := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })

	if *preset != "" {
		p, ok := camera.GetPreset(*preset)
		if !ok {
			fmt.Fprintf(os.Stderr, "unknown camera preset %q\n", *preset)
			os.Exit(2)
		}
		cfg.Camera = p
	}
	cfg.Camera.Device = *device
	if set["width"] || *preset == "" {
		cfg.Camera.Width = *width
	}
	if set["height"] || *preset == "" {
		cfg.Camera.Height = *height
	}
	if set["fps"] || *preset == "" {
		cfg.Camera.Framerate = *fps
	}
	cfg.Camera.Mirror = !*noMirror

	cfg.Output = *output
	cfg.Backend, cfg.Iris = *backend, *irisMode
	cfg.CascadeDir, cfg.YuNetModel, cfg.PigoCascade = *cascadeDir, *yunetModel, *pigoCascade
	cfg.Filter, cfg.Alpha = filter.Kind(*filterKind), *alpha
	cfg.HTTPPort, cfg.CalibrationFile = *httpPort, *calibrationFile
	cfg.Preview, cfg.Keys = !*noPreview, !*noKeys

	cfg.LogLevel = *logLevel
	cfg.Debug, cfg.DebugFrames = *debug, *debugFrames
	if cfg.Debug || cfg.DebugFrames {
		cfg.LogLevel = "debug"
	}
	return cfg
}
