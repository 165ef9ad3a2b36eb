package filter

import (
	"github.com/teslashibe/go-gaze/pkg/geom"
)

// DefaultAlpha is the smoothing factor used by the tracker.
const DefaultAlpha = 0.15

// Exponential is an exponential moving average: s ← α·m + (1-α)·s.
//
// The first measurement seeds the state directly. Before that the output is
// the screen centre; ticks without a measurement leave the state unchanged.
type Exponential struct {
	Alpha float64

	state  geom.Point
	seeded bool
}

// NewExponential creates an EMA filter. Alpha outside (0, 1] falls back to
// DefaultAlpha.
func NewExponential(alpha float64) *Exponential {
	if alpha <= 0 || alpha > 1 {
		alpha = DefaultAlpha
	}
	return &Exponential{Alpha: alpha, state: geom.Center}
}

// Step implements Filter.
func (e *Exponential) Step(p geom.Point, ok bool) geom.Point {
	if !ok || !p.Finite() {
		return e.state
	}
	if !e.seeded {
		e.state = p.Clamp01()
		e.seeded = true
		return e.state
	}
	e.state = geom.Pt(
		e.Alpha*p.X+(1-e.Alpha)*e.state.X,
		e.Alpha*p.Y+(1-e.Alpha)*e.state.Y,
	).Clamp01()
	return e.state
}

// Reset implements Filter.
func (e *Exponential) Reset() {
	e.state = geom.Center
	e.seeded = false
}
