package vision

import (
	"image"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"

	"github.com/teslashibe/go-gaze/pkg/debug"
)

// Cascade file names as shipped with OpenCV.
const (
	FaceCascade = "haarcascade_frontalface_default.xml"
	EyeCascade  = "haarcascade_eye.xml"
)

// HaarConfig holds Viola-Jones cascade parameters.
type HaarConfig struct {
	Dir          string  // Directory holding FaceCascade and EyeCascade
	FaceScale    float64 // Pyramid scale step for faces
	FaceNeighbor int     // Minimum neighbours for a face hit
	FaceMinSize  int     // Smallest face in pixels, 0 = no limit
	EyeScale     float64
	EyeNeighbor  int
}

// DefaultHaarConfig returns the parameters used for webcam faces.
func DefaultHaarConfig() HaarConfig {
	return HaarConfig{
		Dir:          "models",
		FaceScale:    1.3,
		FaceNeighbor: 5,
		EyeScale:     1.1,
		EyeNeighbor:  3,
	}
}

// Haar detects faces and eyes with OpenCV cascade classifiers. It serves as
// both the face and the eye detector of the estimator.
type Haar struct {
	config HaarConfig
	faces  gocv.CascadeClassifier
	eyes   gocv.CascadeClassifier
	mu     sync.Mutex
}

// NewHaar loads both cascades from config.Dir.
func NewHaar(config HaarConfig) (*Haar, error) {
	facePath := filepath.Join(config.Dir, FaceCascade)
	eyePath := filepath.Join(config.Dir, EyeCascade)
	for _, p := range []string{facePath, eyePath} {
		if _, err := os.Stat(p); err != nil {
			return nil, errors.Wrap(err, "cascade file")
		}
	}

	h := &Haar{
		config: config,
		faces:  gocv.NewCascadeClassifier(),
		eyes:   gocv.NewCascadeClassifier(),
	}
	if !h.faces.Load(facePath) {
		h.Close()
		return nil, errors.Errorf("load face cascade %s", facePath)
	}
	if !h.eyes.Load(eyePath) {
		h.Close()
		return nil, errors.Errorf("load eye cascade %s", eyePath)
	}
	return h, nil
}

// DetectFaces finds faces in the grayscale frame.
func (h *Haar) DetectFaces(f *Frame) []image.Rectangle {
	h.mu.Lock()
	defer h.mu.Unlock()

	minSize := image.Pt(h.config.FaceMinSize, h.config.FaceMinSize)
	faces := h.faces.DetectMultiScaleWithParams(f.Gray, h.config.FaceScale, h.config.FaceNeighbor, 0, minSize, image.Point{})
	if len(faces) > 0 {
		debug.FrameLog("haar faces", "count", len(faces))
	}
	return faces
}

// DetectEyes finds eyes inside region and returns them in frame coordinates.
func (h *Haar) DetectEyes(f *Frame, region image.Rectangle) []image.Rectangle {
	region = region.Intersect(f.Bounds())
	if region.Empty() {
		return nil
	}

	roi := f.Gray.Region(region)
	defer roi.Close()

	h.mu.Lock()
	eyes := h.eyes.DetectMultiScaleWithParams(roi, h.config.EyeScale, h.config.EyeNeighbor, 0, image.Point{}, image.Point{})
	h.mu.Unlock()

	for i := range eyes {
		eyes[i] = eyes[i].Add(region.Min)
	}
	return eyes
}

// Close releases the classifiers.
func (h *Haar) Close() error {
	h.faces.Close()
	h.eyes.Close()
	return nil
}
