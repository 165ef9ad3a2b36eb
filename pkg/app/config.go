// Package app wires the camera, detectors, calibration, filter and
// publishers into a running gaze tracker.
package app

import (
	"strings"

	"github.com/teslashibe/go-gaze/internal/config"
	"github.com/teslashibe/go-gaze/pkg/camera"
	"github.com/teslashibe/go-gaze/pkg/filter"
	"github.com/teslashibe/go-gaze/pkg/publish"
)

// Face/eye detection backends.
const (
	BackendHaar  = "haar"  // Haar face and eye cascades
	BackendYuNet = "yunet" // YuNet faces, Haar eyes
	BackendPigo  = "pigo"  // pigo faces, proportional eye boxes
)

// Iris localizers.
const (
	IrisHough = "hough" // Circle Hough transform with contour fallback
	IrisBlob  = "blob"  // Largest dark blob, pure Go
)

// Config holds all configuration for the tracker.
// Flag parsing is done in cmd/gaze/main.go; this struct is data only.
type Config struct {
	Camera camera.Config

	// Output is the gaze file path.
	Output string

	// Detection
	Backend     string
	Iris        string
	CascadeDir  string // Haar cascades directory
	YuNetModel  string
	PigoCascade string

	// Smoothing
	Filter filter.Kind
	Alpha  float64 // EMA factor, used when Filter is "ema"

	// HTTPPort serves the web API when non-empty, e.g. "8080".
	HTTPPort string

	// CalibrationFile persists the calibration profile when non-empty.
	CalibrationFile string

	// Preview opens the overlay window.
	Preview bool

	// Keys enables terminal keyboard commands.
	Keys bool

	LogLevel    string
	Debug       bool
	DebugFrames bool
}

// DefaultConfig returns defaults for a laptop webcam.
func DefaultConfig() Config {
	return Config{
		Camera:     camera.DefaultConfig(),
		Output:     publish.DefaultPath,
		Backend:    BackendHaar,
		Iris:       IrisHough,
		CascadeDir: "models",
		YuNetModel: "models/face_detection_yunet.onnx",
		// pigo ships its cascade as "facefinder"
		PigoCascade: "models/facefinder",
		Filter:      filter.KindConstantVelocity,
		Alpha:       filter.DefaultAlpha,
		Preview:     true,
		Keys:        true,
		LogLevel:    "info",
	}
}

// LoadEnvConfig applies environment overrides. Call it before flag parsing
// so flags take precedence.
func (c *Config) LoadEnvConfig() {
	c.Output = config.String(config.EnvOutput, c.Output)
	c.Camera.Device = config.Int(config.EnvCamera, c.Camera.Device)
	c.HTTPPort = config.String(config.EnvHTTPPort, c.HTTPPort)
	c.LogLevel = config.String(config.EnvLogLevel, c.LogLevel)
	c.CalibrationFile = config.String(config.EnvCalibrationFile, c.CalibrationFile)
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if problems := c.Camera.Validate(); len(problems) > 0 {
		return &ConfigError{Field: "Camera", Message: "camera: " + strings.Join(problems, "; ")}
	}
	if c.Output == "" {
		return &ConfigError{Field: "Output", Message: "output path is required"}
	}
	switch c.Backend {
	case BackendHaar, BackendYuNet, BackendPigo:
	default:
		return &ConfigError{Field: "Backend", Message: "backend must be haar, yunet or pigo"}
	}
	switch c.Iris {
	case IrisHough, IrisBlob:
	default:
		return &ConfigError{Field: "Iris", Message: "iris must be hough or blob"}
	}
	if _, ok := filter.New(c.Filter, c.Alpha); !ok {
		return &ConfigError{Field: "Filter", Message: "filter must be kalman or ema"}
	}
	if c.Filter == filter.KindExponential && (c.Alpha <= 0 || c.Alpha > 1) {
		return &ConfigError{Field: "Alpha", Message: "alpha must be in (0, 1]"}
	}
	return nil
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return e.Message
}
