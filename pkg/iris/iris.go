// Package iris locates the iris/pupil centre inside a cropped eye region.
//
// Localizers never fail: they return a Result that is either Found, with a
// normalized position inside the region, or NotFound. Callers that need a
// number regardless use Value, which falls back to the region centre. Keeping
// the two cases apart means a genuinely centred iris is distinguishable from
// a failed detection.
//
// Edge policy: found positions are clamped to [Margin, 1-Margin] with a
// default margin of 0.1. Readings in the outer tenth of an eye crop are
// almost always eyelid or eyebrow shadow, so they are pulled in rather than
// trusted.
package iris

import (
	"image"

	"github.com/teslashibe/go-gaze/pkg/geom"
)

// DefaultMargin is the clamp margin applied to found positions.
const DefaultMargin = 0.1

// Result is the outcome of localizing the iris in one eye region.
type Result struct {
	Point geom.Point // Normalized position within the region, valid when Found
	Found bool
}

// NotFound is the result of a failed localization.
var NotFound = Result{}

// Found returns a found result at p, clamped to [margin, 1-margin].
func Found(p geom.Point, margin float64) Result {
	return Result{Point: Clamp(p, margin), Found: true}
}

// Value returns the located position, or the region centre when not found.
func (r Result) Value() geom.Point {
	if r.Found {
		return r.Point
	}
	return geom.Center
}

// Clamp applies the edge policy to p.
func Clamp(p geom.Point, margin float64) geom.Point {
	margin = geom.Clamp(margin, 0, 0.5)
	return p.Clamp(margin, 1-margin)
}

// Localizer finds the iris centre in an eye image.
type Localizer interface {
	Localize(eye image.Image) Result
}

// LocalizerFunc adapts a function to the Localizer interface.
type LocalizerFunc func(eye image.Image) Result

// Localize calls f(eye).
func (f LocalizerFunc) Localize(eye image.Image) Result {
	return f(eye)
}
