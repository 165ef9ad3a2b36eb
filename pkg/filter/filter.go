// Package filter smooths the per-frame gaze measurement over time.
//
// A Filter is stepped exactly once per processed frame. Frames without a
// measurement still step the filter (ok=false) so implementations can
// decide whether to hold or extrapolate. Outputs are always inside the
// unit square.
package filter

import (
	"github.com/teslashibe/go-gaze/pkg/geom"
)

// Filter is a temporal smoother over normalized gaze points.
type Filter interface {
	// Step advances one tick. p is only meaningful when ok is true.
	Step(p geom.Point, ok bool) geom.Point

	// Reset returns the filter to its initial state.
	Reset()
}

// Kind names a filter implementation.
type Kind string

const (
	KindExponential      Kind = "ema"
	KindConstantVelocity Kind = "kalman"
)

// New returns the filter of the given kind with default parameters.
// Unknown kinds return ok=false.
func New(kind Kind, alpha float64) (Filter, bool) {
	switch kind {
	case KindExponential:
		return NewExponential(alpha), true
	case KindConstantVelocity, "":
		return NewConstantVelocity(DefaultConstantVelocityConfig()), true
	default:
		return nil, false
	}
}
