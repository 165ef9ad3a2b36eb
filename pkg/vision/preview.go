package vision

import (
	"fmt"
	"image"
	"image/color"
	"log/slog"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-gaze/internal/log"
	"github.com/teslashibe/go-gaze/pkg/calibration"
	"github.com/teslashibe/go-gaze/pkg/gaze"
	"github.com/teslashibe/go-gaze/pkg/keys"
)

// Overlay colours. gocv takes RGBA and converts to BGR.
var (
	yellow = color.RGBA{R: 255, G: 255, A: 255}
	green  = color.RGBA{G: 255, A: 255}
	red    = color.RGBA{R: 255, A: 255}
	orange = color.RGBA{R: 255, G: 165, A: 255}
	blue   = color.RGBA{B: 255, A: 255}
	cyan   = color.RGBA{G: 255, B: 255, A: 255}
	white  = color.RGBA{R: 255, G: 255, B: 255, A: 255}
)

// FrameSink receives JPEG preview frames, e.g. the web server's camera
// stream.
type FrameSink interface {
	SendCameraFrame(jpeg []byte)
	CameraClients() int
}

// PreviewConfig configures the preview.
type PreviewConfig struct {
	Title       string
	Window      bool    // Open a desktop window
	Scale       float64 // Display scale of the window
	StreamEvery int     // Send every Nth frame to the sink, 0 disables
	Sink        FrameSink
}

// DefaultPreviewConfig opens a window at 1.5x and streams every third frame.
func DefaultPreviewConfig() PreviewConfig {
	return PreviewConfig{
		Title:       "Eye Gaze Tracker",
		Window:      true,
		Scale:       1.5,
		StreamEvery: 3,
	}
}

// Preview draws the tracker overlay and shows it in a window and/or streams
// it as JPEG. It implements gaze.View and must be used from the tracking
// goroutine, as OpenCV windows are not thread-safe.
type Preview struct {
	config  PreviewConfig
	window  *gocv.Window
	display gocv.Mat
	hidden  gocv.Mat
	frames  uint64
	key     int
	log     *slog.Logger
}

var _ gaze.View[*Frame] = (*Preview)(nil)

// NewPreview creates the preview and its window.
func NewPreview(config PreviewConfig) *Preview {
	if config.Scale <= 0 {
		config.Scale = 1
	}
	p := &Preview{
		config:  config,
		display: gocv.NewMat(),
		key:     -1,
		log:     log.Component("preview"),
	}
	if config.Window {
		p.window = gocv.NewWindow(config.Title)
		p.hidden = gocv.Zeros(100, 400, gocv.MatTypeCV8UC3)
		gocv.PutText(&p.hidden, "Visualization Hidden (Press Space)", image.Pt(10, 55),
			gocv.FontHersheySimplex, 0.55, white, 1)
	}
	return p
}

// Render draws the overlay onto the frame and shows or streams it.
func (p *Preview) Render(f *Frame, ov gaze.Overlay) {
	p.frames++

	streaming := p.config.Sink != nil && p.config.StreamEvery > 0 &&
		p.frames%uint64(p.config.StreamEvery) == 0 && p.config.Sink.CameraClients() > 0
	showing := p.window != nil && ov.Visible

	if showing || streaming {
		Draw(&f.Color, ov)
	}
	if streaming {
		p.stream(f.Color)
	}

	if p.window == nil {
		return
	}
	if showing {
		gocv.Resize(f.Color, &p.display, image.Point{}, p.config.Scale, p.config.Scale, gocv.InterpolationLinear)
		p.window.IMShow(p.display)
	} else {
		p.window.IMShow(p.hidden)
	}
	if k := p.window.WaitKey(1); k >= 0 {
		p.key = k & 0xff
	}
}

// Poll returns the command for the last key pressed in the window.
func (p *Preview) Poll() (gaze.Command, bool) {
	k := p.key
	p.key = -1
	if k < 0 {
		return 0, false
	}
	return keys.Command(k)
}

func (p *Preview) stream(img gocv.Mat) {
	buf, err := gocv.IMEncode(gocv.JPEGFileExt, img)
	if err != nil {
		p.log.Debug("jpeg encode failed", "error", err)
		return
	}
	defer buf.Close()
	p.config.Sink.SendCameraFrame(append([]byte(nil), buf.GetBytes()...))
}

// Close destroys the window.
func (p *Preview) Close() error {
	if p.window != nil {
		p.window.Close()
		p.hidden.Close()
	}
	p.display.Close()
	return nil
}

// Draw renders the tracker overlay onto img: the calibration target while
// calibrating, otherwise detections and the gaze dot.
func Draw(img *gocv.Mat, ov gaze.Overlay) {
	w, h := img.Cols(), img.Rows()
	if w == 0 || h == 0 {
		return
	}
	toPixels := func(x, y float64) image.Point {
		return image.Pt(int(x*float64(w)), int(y*float64(h)))
	}

	if ov.Calibration.State == calibration.StateCollecting.String() {
		drawTarget(img, toPixels(ov.Calibration.Target.X, ov.Calibration.Target.Y), ov.Calibration)
		return
	}

	m := ov.Measurement
	for _, face := range m.Faces {
		gocv.Rectangle(img, face, blue, 2)
	}
	if m.Status == gaze.StatusMeasured || m.Status == gaze.StatusNoIris {
		for i, eye := range m.Eyes {
			gocv.Rectangle(img, eye, green, 1)
			if r := m.Iris[i]; r.Found {
				c := image.Pt(eye.Min.X+int(r.Point.X*float64(eye.Dx())), eye.Min.Y+int(r.Point.Y*float64(eye.Dy())))
				gocv.Circle(img, c, 3, cyan, -1)
			}
		}
	}

	// Screen centre reference
	cx, cy := w/2, h/2
	gocv.Line(img, image.Pt(cx-20, cy), image.Pt(cx+20, cy), green, 2)
	gocv.Line(img, image.Pt(cx, cy-20), image.Pt(cx, cy+20), green, 2)

	dot := orange
	status := "Status: NOT CALIBRATED"
	if ov.Estimate.Calibrated {
		dot = red
		status = "Status: CALIBRATED"
	}
	g := toPixels(ov.Estimate.X, ov.Estimate.Y)
	gocv.Circle(img, g, 35, dot, -1)
	gocv.Circle(img, g, 42, white, 3)

	gocv.PutText(img, status, image.Pt(10, 30), gocv.FontHersheySimplex, 0.8, dot, 2)
	gocv.PutText(img, fmt.Sprintf("Gaze: (%.2f, %.2f)", ov.Estimate.X, ov.Estimate.Y), image.Pt(10, 60),
		gocv.FontHersheySimplex, 0.7, white, 2)
	if !ov.Estimate.Calibrated {
		gocv.PutText(img, "Press 'C' to calibrate for accurate tracking", image.Pt(10, 90),
			gocv.FontHersheySimplex, 0.6, yellow, 2)
	}
	if ov.Calibration.LastError != "" {
		gocv.PutText(img, "Calibration failed: "+ov.Calibration.LastError, image.Pt(10, 120),
			gocv.FontHersheySimplex, 0.5, red, 1)
	}
	gocv.PutText(img, keys.Help, image.Pt(10, h-20), gocv.FontHersheySimplex, 0.5, white, 1)
}

func drawTarget(img *gocv.Mat, t image.Point, s calibration.Status) {
	w, h := img.Cols(), img.Rows()

	gocv.Circle(img, t, 50, yellow, 3)
	gocv.Circle(img, t, 8, yellow, -1)
	gocv.Line(img, image.Pt(t.X-60, t.Y), image.Pt(t.X+60, t.Y), yellow, 2)
	gocv.Line(img, image.Pt(t.X, t.Y-60), image.Pt(t.X, t.Y+60), yellow, 2)

	gocv.PutText(img, fmt.Sprintf("LOOK AT THE YELLOW CROSS - Point %d/%d", s.Point+1, s.Points),
		image.Pt(w/2-300, 50), gocv.FontHersheySimplex, 0.9, yellow, 2)
	gocv.PutText(img, "Keep your HEAD STILL, move only your EYES",
		image.Pt(w/2-250, 90), gocv.FontHersheySimplex, 0.7, white, 2)

	// Progress for the current target
	bar := image.Rect(w/2-150, h-80, w/2+150, h-50)
	gocv.Rectangle(img, bar, white, 2)
	if fill := int(s.Progress * float64(bar.Dx())); fill > 0 {
		gocv.Rectangle(img, image.Rect(bar.Min.X, bar.Min.Y, bar.Min.X+fill, bar.Max.Y), green, -1)
	}
	gocv.PutText(img, fmt.Sprintf("%d/%d samples", s.Samples, s.Needed),
		image.Pt(bar.Min.X, bar.Min.Y-10), gocv.FontHersheySimplex, 0.6, white, 2)
}
