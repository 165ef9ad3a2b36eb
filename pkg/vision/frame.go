// Package vision implements the tracker's frame source, detectors, iris
// localizers and preview window on top of OpenCV.
package vision

import (
	"image"
	"log/slog"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"

	"github.com/teslashibe/go-gaze/internal/log"
	"github.com/teslashibe/go-gaze/pkg/camera"
	"github.com/teslashibe/go-gaze/pkg/gaze"
)

var (
	// ErrOpen is returned when the capture device cannot be opened.
	ErrOpen = errors.New("cannot open camera")

	// ErrRead is returned when the camera stops delivering frames.
	ErrRead = errors.New("camera returned no frame")
)

// Frame is one captured image in colour and grayscale. Both Mats are owned
// by the Capture that produced them.
type Frame struct {
	Color gocv.Mat
	Gray  gocv.Mat
}

// Bounds returns the pixel rectangle of the frame.
func (f *Frame) Bounds() image.Rectangle {
	return image.Rect(0, 0, f.Gray.Cols(), f.Gray.Rows())
}

// NewFrame wraps a BGR image, deriving its grayscale copy. Close releases
// both Mats.
func NewFrame(color gocv.Mat) *Frame {
	f := &Frame{Color: color, Gray: gocv.NewMat()}
	gocv.CvtColor(color, &f.Gray, gocv.ColorBGRToGray)
	return f
}

// Close releases the frame's Mats.
func (f *Frame) Close() error {
	f.Color.Close()
	f.Gray.Close()
	return nil
}

// Capture reads frames from a webcam. It implements gaze.Source; the
// returned frame is reused by the next Read.
type Capture struct {
	config camera.Config
	vc     *gocv.VideoCapture
	frame  Frame
	log    *slog.Logger
}

var _ gaze.Source[*Frame] = (*Capture)(nil)

// Open starts capture on cfg.Device and requests the configured mode.
func Open(cfg camera.Config) (*Capture, error) {
	vc, err := gocv.OpenVideoCapture(cfg.Device)
	if err != nil {
		return nil, errors.Wrapf(ErrOpen, "device %d: %v", cfg.Device, err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, errors.Wrapf(ErrOpen, "device %d", cfg.Device)
	}

	vc.Set(gocv.VideoCaptureFrameWidth, float64(cfg.Width))
	vc.Set(gocv.VideoCaptureFrameHeight, float64(cfg.Height))
	if cfg.Framerate > 0 {
		vc.Set(gocv.VideoCaptureFPS, float64(cfg.Framerate))
	}

	c := &Capture{
		config: cfg,
		vc:     vc,
		frame:  Frame{Color: gocv.NewMat(), Gray: gocv.NewMat()},
		log:    log.Component("camera"),
	}
	c.log.Info("camera opened",
		"requested", cfg.String(),
		"width", int(vc.Get(gocv.VideoCaptureFrameWidth)),
		"height", int(vc.Get(gocv.VideoCaptureFrameHeight)),
		"fps", vc.Get(gocv.VideoCaptureFPS))
	return c, nil
}

// Read grabs the next frame.
func (c *Capture) Read() (*Frame, error) {
	if ok := c.vc.Read(&c.frame.Color); !ok || c.frame.Color.Empty() {
		return nil, ErrRead
	}
	if c.config.Mirror {
		gocv.Flip(c.frame.Color, &c.frame.Color, 1)
	}
	gocv.CvtColor(c.frame.Color, &c.frame.Gray, gocv.ColorBGRToGray)
	return &c.frame, nil
}

// Close releases the device.
func (c *Capture) Close() error {
	c.frame.Close()
	if err := c.vc.Close(); err != nil {
		return errors.Wrap(err, "close camera")
	}
	c.log.Info("camera closed")
	return nil
}
