// Package debug provides global debug logging flags
package debug

import "github.com/teslashibe/go-gaze/internal/log"

// Enabled controls whether debug logging is active
var Enabled bool

// Frames controls whether per-frame pipeline logs are shown (faces, eyes, iris).
// Use --debug-frames to enable these very verbose logs
var Frames bool

// Log logs a message at debug level only if debug mode is enabled
func Log(msg string, args ...any) {
	if Enabled {
		log.Debug(msg, args...)
	}
}

// FrameLog logs a message only if per-frame debug mode is enabled
func FrameLog(msg string, args ...any) {
	if Frames {
		log.Debug(msg, args...)
	}
}
