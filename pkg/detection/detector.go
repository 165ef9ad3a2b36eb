// Package detection provides pure-Go face detection and eye box estimation
package detection

import (
	"image"
)

// Detection represents a detected face
type Detection struct {
	Rect       image.Rectangle // Bounding box in pixels
	Confidence float64         // Detector score, scale depends on the backend
}

// Center returns the center point of the detection
func (d Detection) Center() image.Point {
	return image.Pt((d.Rect.Min.X+d.Rect.Max.X)/2, (d.Rect.Min.Y+d.Rect.Max.Y)/2)
}

// Rects returns the boxes of detections scoring at least minConfidence,
// keeping detection order.
func Rects(dets []Detection, minConfidence float64) []image.Rectangle {
	var out []image.Rectangle
	for _, d := range dets {
		if d.Confidence >= minConfidence {
			out = append(out, d.Rect)
		}
	}
	return out
}

// Eye box proportions relative to the face box. Typical frontal faces put
// the eyes between 20% and 45% of the face height, each in one lateral
// half, clear of the nose bridge.
const (
	eyeTop       = 0.20
	eyeBottom    = 0.45
	eyeWidth     = 0.33
	leftEyeFrom  = 0.12
	rightEyeFrom = 0.55
)

// ProportionalEyes estimates the two eye boxes from a face box. It is used
// by backends that only detect faces.
func ProportionalEyes(face image.Rectangle) []image.Rectangle {
	if face.Empty() {
		return nil
	}
	w, h := float64(face.Dx()), float64(face.Dy())
	y0 := face.Min.Y + int(h*eyeTop)
	y1 := face.Min.Y + int(h*eyeBottom)
	eyeW := int(w * eyeWidth)

	lx := face.Min.X + int(w*leftEyeFrom)
	rx := face.Min.X + int(w*rightEyeFrom)
	return []image.Rectangle{
		image.Rect(lx, y0, lx+eyeW, y1),
		image.Rect(rx, y0, rx+eyeW, y1),
	}
}
