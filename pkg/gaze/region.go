package gaze

import (
	"image"

	"github.com/teslashibe/go-gaze/pkg/geom"
)

// SelectFace returns the largest box by area. Ties go to the earliest box
// in detection order.
func SelectFace(boxes []image.Rectangle) (image.Rectangle, bool) {
	if len(boxes) == 0 {
		return image.Rectangle{}, false
	}
	best := 0
	for i := 1; i < len(boxes); i++ {
		if geom.Area(boxes[i]) > geom.Area(boxes[best]) {
			best = i
		}
	}
	return boxes[best], true
}

// EyeSearchRegion returns the upper half of the face box, where eyes are
// searched for.
func EyeSearchRegion(face image.Rectangle) image.Rectangle {
	return image.Rect(face.Min.X, face.Min.Y, face.Max.X, face.Min.Y+face.Dy()/2)
}

// SelectEyes picks the leftmost and rightmost boxes by their left edge.
// It needs at least two boxes. With equal left edges the earliest box is
// the left eye and the latest the right eye, so the two never coincide.
func SelectEyes(boxes []image.Rectangle) (left, right image.Rectangle, ok bool) {
	if len(boxes) < 2 {
		return image.Rectangle{}, image.Rectangle{}, false
	}
	l, r := 0, len(boxes)-1
	for i, b := range boxes {
		if b.Min.X < boxes[l].Min.X {
			l = i
		}
	}
	for i := len(boxes) - 1; i >= 0; i-- {
		if boxes[i].Min.X > boxes[r].Min.X {
			r = i
		}
	}
	return boxes[l], boxes[r], true
}
