package gaze

import (
	"image"

	"github.com/teslashibe/go-gaze/pkg/debug"
	"github.com/teslashibe/go-gaze/pkg/geom"
	"github.com/teslashibe/go-gaze/pkg/iris"
)

// FaceDetector finds face boxes in a frame.
type FaceDetector[F any] interface {
	DetectFaces(frame F) []image.Rectangle
}

// EyeDetector finds eye boxes inside region of a frame. Boxes are in frame
// coordinates.
type EyeDetector[F any] interface {
	DetectEyes(frame F, region image.Rectangle) []image.Rectangle
}

// IrisLocalizer locates the iris inside an eye box of a frame.
type IrisLocalizer[F any] interface {
	LocalizeIris(frame F, eye image.Rectangle) iris.Result
}

// Estimator produces a raw gaze measurement from one frame.
type Estimator[F any] struct {
	faces FaceDetector[F]
	eyes  EyeDetector[F]
	iris  IrisLocalizer[F]
}

// NewEstimator wires the detection backends.
func NewEstimator[F any](faces FaceDetector[F], eyes EyeDetector[F], localizer IrisLocalizer[F]) *Estimator[F] {
	return &Estimator[F]{faces: faces, eyes: eyes, iris: localizer}
}

// Measure runs region selection and iris localization on frame. Both iris
// samples are averaged; if only one eye yields an iris it is used alone.
func (e *Estimator[F]) Measure(frame F) Measurement {
	var m Measurement

	m.Faces = e.faces.DetectFaces(frame)
	face, ok := SelectFace(m.Faces)
	if !ok {
		m.Status = StatusNoFace
		return m
	}
	m.Face = face

	region := EyeSearchRegion(face)
	boxes := e.eyes.DetectEyes(frame, region)

	// Detectors may report boxes spilling out of the search region.
	inside := make([]image.Rectangle, 0, len(boxes))
	for _, b := range boxes {
		if b = b.Intersect(region); !b.Empty() {
			inside = append(inside, b)
		}
	}

	left, right, ok := SelectEyes(inside)
	if !ok {
		m.Status = StatusTooFewEyes
		debug.FrameLog("too few eyes", "found", len(inside))
		return m
	}
	m.Eyes = [2]image.Rectangle{left, right}
	m.Iris = [2]iris.Result{
		e.iris.LocalizeIris(frame, left),
		e.iris.LocalizeIris(frame, right),
	}

	switch {
	case m.Iris[0].Found && m.Iris[1].Found:
		m.Raw = geom.Mean(m.Iris[0].Point, m.Iris[1].Point)
	case m.Iris[0].Found:
		m.Raw = m.Iris[0].Point
	case m.Iris[1].Found:
		m.Raw = m.Iris[1].Point
	default:
		m.Status = StatusNoIris
		debug.FrameLog("no iris in either eye")
		return m
	}

	m.OK = true
	m.Status = StatusMeasured
	debug.FrameLog("measured", "raw_x", m.Raw.X, "raw_y", m.Raw.Y)
	return m
}
