package vision

import (
	"image"

	"github.com/teslashibe/go-gaze/pkg/detection"
)

// PigoFaces runs the pure-Go pigo cascade on the grayscale frame.
type PigoFaces struct {
	Detector *detection.Pigo
}

// DetectFaces finds faces in the frame.
func (p PigoFaces) DetectFaces(f *Frame) []image.Rectangle {
	if !f.Gray.IsContinuous() {
		return nil
	}
	return detection.Rects(p.Detector.Detect(f.Gray.ToBytes(), f.Gray.Cols(), f.Gray.Rows()), 0)
}

// ProportionalEyes places eye boxes by face geometry instead of running an
// eye detector. It pairs with face-only backends.
type ProportionalEyes struct{}

// DetectEyes derives the face from the search region, which is its upper
// half, and returns the two proportional eye boxes.
func (ProportionalEyes) DetectEyes(_ *Frame, region image.Rectangle) []image.Rectangle {
	face := image.Rect(region.Min.X, region.Min.Y, region.Max.X, region.Min.Y+2*region.Dy())
	return detection.ProportionalEyes(face)
}
