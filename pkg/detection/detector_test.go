package detection

import (
	"image"
	"os"
	"path/filepath"
	"testing"
)

func TestDetection_Center(t *testing.T) {
	tests := []struct {
		name string
		det  Detection
		want image.Point
	}{
		{"origin box", Detection{Rect: image.Rect(0, 0, 100, 80)}, image.Pt(50, 40)},
		{"offset box", Detection{Rect: image.Rect(200, 100, 300, 220)}, image.Pt(250, 160)},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.det.Center(); got != tc.want {
				t.Errorf("Center() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestRects(t *testing.T) {
	dets := []Detection{
		{Rect: image.Rect(0, 0, 10, 10), Confidence: 9},
		{Rect: image.Rect(5, 5, 15, 15), Confidence: 2},
		{Rect: image.Rect(20, 20, 40, 40), Confidence: 5},
	}

	got := Rects(dets, 5)
	if len(got) != 2 || got[0] != dets[0].Rect || got[1] != dets[2].Rect {
		t.Errorf("Rects() = %v", got)
	}
	if Rects(nil, 0) != nil {
		t.Error("expected nil for no detections")
	}
}

func TestProportionalEyes(t *testing.T) {
	face := image.Rect(100, 50, 300, 290)
	eyes := ProportionalEyes(face)
	if len(eyes) != 2 {
		t.Fatalf("got %d eyes, want 2", len(eyes))
	}

	upper := image.Rect(face.Min.X, face.Min.Y, face.Max.X, face.Min.Y+face.Dy()/2)
	for i, e := range eyes {
		if e.Empty() {
			t.Errorf("eye %d is empty", i)
		}
		if !e.In(upper) {
			t.Errorf("eye %d %v outside upper half %v", i, e, upper)
		}
	}

	left, right := eyes[0], eyes[1]
	if left.Max.X > face.Min.X+face.Dx()/2 || right.Min.X < face.Min.X+face.Dx()/2 {
		t.Errorf("eyes not split across the face midline: %v %v", left, right)
	}
	if left.Overlaps(right) {
		t.Errorf("eyes overlap: %v %v", left, right)
	}

	if ProportionalEyes(image.Rectangle{}) != nil {
		t.Error("expected no eyes for an empty face")
	}
}

func TestNewPigo_MissingCascade(t *testing.T) {
	cfg := DefaultPigoConfig()
	cfg.CascadePath = "/nonexistent/facefinder"

	if _, err := NewPigo(cfg); err == nil {
		t.Error("expected error for missing cascade")
	}
}

// findCascade looks for the pigo face cascade in common locations
func findCascade() string {
	paths := []string{
		"models/facefinder",
		"../../models/facefinder",
		filepath.Join(os.Getenv("HOME"), ".go-gaze", "facefinder"),
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

func TestPigo_BlankImage(t *testing.T) {
	path := findCascade()
	if path == "" {
		t.Skip("pigo cascade not found, skipping test")
	}

	cfg := DefaultPigoConfig()
	cfg.CascadePath = path
	p, err := NewPigo(cfg)
	if err != nil {
		t.Fatalf("NewPigo failed: %v", err)
	}

	img := image.NewGray(image.Rect(0, 0, 320, 240))
	for i := range img.Pix {
		img.Pix[i] = 128
	}
	if dets := p.DetectImage(img); len(dets) != 0 {
		t.Errorf("found %d faces in a blank image", len(dets))
	}

	if dets := p.Detect(nil, 320, 240); dets != nil {
		t.Error("expected nil for a short pixel buffer")
	}
}
