// Package config provides environment helpers for go-gaze commands.
package config

import (
	"os"
	"strconv"
)

// Environment variables understood by go-gaze.
const (
	EnvOutput          = "GAZE_OUTPUT"
	EnvCamera          = "GAZE_CAMERA"
	EnvHTTPPort        = "GAZE_HTTP_PORT"
	EnvLogLevel        = "GAZE_LOG_LEVEL"
	EnvCalibrationFile = "GAZE_CALIBRATION_FILE"
)

// String returns the value of key, or def when unset or empty.
func String(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// Int returns the integer value of key, or def when unset or unparsable.
func Int(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// Float returns the float value of key, or def when unset or unparsable.
func Float(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}
