// Package gaze turns camera frames into a smoothed, optionally calibrated
// screen gaze coordinate.
//
// The per-frame pipeline is: pick the face, pick two eyes in the upper half
// of it, localize the iris in each eye, average them into a raw sample, map
// it through the live calibration, filter it, and publish the result. The
// only state carried between frames lives in a Session.
package gaze

import (
	"image"
	"time"

	"github.com/teslashibe/go-gaze/pkg/geom"
	"github.com/teslashibe/go-gaze/pkg/iris"
)

// Status explains why a frame did or did not produce a measurement.
type Status int

const (
	StatusNoFace Status = iota
	StatusTooFewEyes
	StatusNoIris
	StatusMeasured
)

func (s Status) String() string {
	switch s {
	case StatusNoFace:
		return "no_face"
	case StatusTooFewEyes:
		return "too_few_eyes"
	case StatusNoIris:
		return "no_iris"
	case StatusMeasured:
		return "measured"
	default:
		return "unknown"
	}
}

// Measurement is the outcome of processing one frame. Raw is only
// meaningful when OK is true.
type Measurement struct {
	Raw    geom.Point
	OK     bool
	Status Status

	Faces []image.Rectangle // All detected faces, frame coordinates
	Face  image.Rectangle   // Selected face, zero when none
	Eyes  [2]image.Rectangle
	Iris  [2]iris.Result // Left, right
}

// Estimate is the filtered gaze position published after each frame.
type Estimate struct {
	X          float64   `json:"x"`
	Y          float64   `json:"y"`
	Timestamp  time.Time `json:"timestamp"`
	Calibrated bool      `json:"calibrated"`
}

// Point returns the estimate as a geom.Point.
func (e Estimate) Point() geom.Point {
	return geom.Pt(e.X, e.Y)
}

// Publisher delivers estimates to a consumer. Failures are reported, never
// fatal to the tracking loop.
type Publisher interface {
	Publish(e Estimate) error
}

// PublisherFunc adapts a function to the Publisher interface.
type PublisherFunc func(e Estimate) error

// Publish calls f(e).
func (f PublisherFunc) Publish(e Estimate) error {
	return f(e)
}

// Command is a user control event.
type Command int

const (
	CommandQuit Command = iota + 1
	CommandToggleView
	CommandCalibrate
	CommandCancelCalibration
)

func (c Command) String() string {
	switch c {
	case CommandQuit:
		return "quit"
	case CommandToggleView:
		return "toggle_view"
	case CommandCalibrate:
		return "calibrate"
	case CommandCancelCalibration:
		return "cancel_calibration"
	default:
		return "none"
	}
}
