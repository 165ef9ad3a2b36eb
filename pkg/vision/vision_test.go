package vision

import (
	"image"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-gaze/pkg/calibration"
	"github.com/teslashibe/go-gaze/pkg/gaze"
	"github.com/teslashibe/go-gaze/pkg/geom"
	"github.com/teslashibe/go-gaze/pkg/iris"
)

// eyeFrame returns a light gray frame with a dark disc of radius r at c.
func eyeFrame(w, h int, c image.Point, r int) *Frame {
	img := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(200, 200, 200, 0), h, w, gocv.MatTypeCV8UC3)
	gocv.Circle(&img, c, r, color.RGBA{A: 255}, -1)
	return NewFrame(img)
}

func near(a, b geom.Point, tol float64) bool {
	return math.Abs(a.X-b.X) <= tol && math.Abs(a.Y-b.Y) <= tol
}

func TestHough_FindsDisc(t *testing.T) {
	f := eyeFrame(320, 240, image.Pt(130, 110), 12)
	defer f.Close()

	eye := image.Rect(100, 90, 180, 150)
	got := NewHough(DefaultHoughConfig()).LocalizeIris(f, eye)
	if !got.Found {
		t.Fatal("iris not found")
	}

	want := geom.Normalize(eye, 130, 110)
	if !near(got.Point, want, 0.06) {
		t.Errorf("iris at %v, want near %v", got.Point, want)
	}
}

func TestHough_ClampsToMargin(t *testing.T) {
	// Disc hugging the left edge of the box
	f := eyeFrame(320, 240, image.Pt(102, 120), 8)
	defer f.Close()

	got := NewHough(DefaultHoughConfig()).LocalizeIris(f, image.Rect(100, 100, 180, 140))
	if !got.Found {
		t.Fatal("iris not found")
	}
	if got.Point.X < iris.DefaultMargin || got.Point.X > 1-iris.DefaultMargin {
		t.Errorf("x = %v outside clamp range", got.Point.X)
	}
}

func TestHough_NothingDark(t *testing.T) {
	img := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(200, 200, 200, 0), 120, 160, gocv.MatTypeCV8UC3)
	f := NewFrame(img)
	defer f.Close()

	if got := NewHough(DefaultHoughConfig()).LocalizeIris(f, image.Rect(10, 10, 90, 70)); got.Found {
		t.Errorf("found iris in a blank eye: %v", got.Point)
	}
}

func TestHough_OutsideFrame(t *testing.T) {
	f := eyeFrame(160, 120, image.Pt(80, 60), 10)
	defer f.Close()

	if got := NewHough(DefaultHoughConfig()).LocalizeIris(f, image.Rect(500, 500, 600, 560)); got.Found {
		t.Error("expected not found for an eye box outside the frame")
	}
}

func TestBlob_FindsDisc(t *testing.T) {
	f := eyeFrame(320, 240, image.Pt(150, 120), 10)
	defer f.Close()

	eye := image.Rect(120, 100, 200, 140)
	got := Blob{Localizer: iris.DefaultDarkBlob()}.LocalizeIris(f, eye)
	if !got.Found {
		t.Fatal("iris not found")
	}
	if want := geom.Normalize(eye, 150, 120); !near(got.Point, want, 0.08) {
		t.Errorf("iris at %v, want near %v", got.Point, want)
	}
}

func TestProportionalEyes_InsideRegion(t *testing.T) {
	face := image.Rect(100, 100, 300, 340)
	region := gaze.EyeSearchRegion(face)

	eyes := ProportionalEyes{}.DetectEyes(nil, region)
	if len(eyes) != 2 {
		t.Fatalf("got %d eyes, want 2", len(eyes))
	}
	for _, e := range eyes {
		if !e.In(region) {
			t.Errorf("eye %v outside region %v", e, region)
		}
	}
}

type sink struct {
	mu     sync.Mutex
	frames [][]byte
}

func (s *sink) SendCameraFrame(jpeg []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frames = append(s.frames, jpeg)
}

func (s *sink) CameraClients() int { return 1 }

func TestPreview_StreamsEveryNthFrame(t *testing.T) {
	s := &sink{}
	p := NewPreview(PreviewConfig{StreamEvery: 2, Sink: s})
	defer p.Close()

	f := eyeFrame(160, 120, image.Pt(80, 60), 10)
	defer f.Close()

	ov := gaze.Overlay{Visible: true, Estimate: gaze.Estimate{X: 0.5, Y: 0.5, Timestamp: time.Now()}}
	for i := 0; i < 5; i++ {
		p.Render(f, ov)
	}

	if len(s.frames) != 2 {
		t.Fatalf("streamed %d frames, want 2", len(s.frames))
	}
	// JPEG SOI marker
	if b := s.frames[0]; len(b) < 2 || b[0] != 0xff || b[1] != 0xd8 {
		t.Error("streamed frame is not a JPEG")
	}
	if _, ok := p.Poll(); ok {
		t.Error("expected no command without a window")
	}
}

func TestDraw_CalibrationTarget(t *testing.T) {
	img := gocv.Zeros(240, 320, gocv.MatTypeCV8UC3)
	defer img.Close()

	Draw(&img, gaze.Overlay{Calibration: calibration.Status{
		State:  calibration.StateCollecting.String(),
		Points: 5,
		Needed: 30,
		Target: geom.Pt(0.5, 0.5),
	}})

	// Target centre is filled yellow (BGR 0,255,255)
	px := img.GetVecbAt(120, 160)
	if px[0] != 0 || px[1] != 255 || px[2] != 255 {
		t.Errorf("target centre = %v, want yellow", px)
	}
}

// findModel looks for a model file in models/ up the directory tree.
func findModel(name string) string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}
	for dir := cwd; dir != "/"; dir = filepath.Dir(dir) {
		p := filepath.Join(dir, "models", name)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

func TestNewYuNet_MissingModel(t *testing.T) {
	cfg := DefaultYuNetConfig()
	cfg.ModelPath = "/nonexistent/path/model.onnx"
	if _, err := NewYuNet(cfg); err == nil {
		t.Error("expected error for missing model")
	}
}

func TestYuNet_BlankFrame(t *testing.T) {
	path := findModel("face_detection_yunet.onnx")
	if path == "" {
		t.Skip("YuNet model not found, skipping test")
	}

	cfg := DefaultYuNetConfig()
	cfg.ModelPath = path
	y, err := NewYuNet(cfg)
	if err != nil {
		t.Fatalf("NewYuNet failed: %v", err)
	}
	defer y.Close()

	f := NewFrame(gocv.NewMatWithSizeFromScalar(gocv.NewScalar(255, 0, 0, 0), 240, 320, gocv.MatTypeCV8UC3))
	defer f.Close()
	if faces := y.DetectFaces(f); len(faces) != 0 {
		t.Errorf("found %d faces in a solid frame", len(faces))
	}
}

func TestNewHaar_MissingCascades(t *testing.T) {
	cfg := DefaultHaarConfig()
	cfg.Dir = "/nonexistent"
	if _, err := NewHaar(cfg); err == nil {
		t.Error("expected error for missing cascades")
	}
}

func TestHaar_EyesOffsetToFrame(t *testing.T) {
	path := findModel(FaceCascade)
	if path == "" {
		t.Skip("Haar cascades not found, skipping test")
	}

	cfg := DefaultHaarConfig()
	cfg.Dir = filepath.Dir(path)
	h, err := NewHaar(cfg)
	if err != nil {
		t.Fatalf("NewHaar failed: %v", err)
	}
	defer h.Close()

	f := eyeFrame(320, 240, image.Pt(160, 120), 10)
	defer f.Close()

	if faces := h.DetectFaces(f); len(faces) != 0 {
		t.Errorf("found %d faces in a synthetic frame", len(faces))
	}
	region := image.Rect(40, 30, 280, 150)
	for _, e := range h.DetectEyes(f, region) {
		if !e.Overlaps(region) {
			t.Errorf("eye %v not in frame coordinates of %v", e, region)
		}
	}
}
