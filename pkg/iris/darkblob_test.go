package iris

import (
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/teslashibe/go-gaze/pkg/geom"
)

// syntheticEye draws a dark disk on a light background.
func syntheticEye(w, h int, cx, cy, r float64) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			dx := float64(x) + 0.5 - cx
			dy := float64(y) + 0.5 - cy
			if dx*dx+dy*dy <= r*r {
				img.SetGray(x, y, color.Gray{Y: 15})
			} else {
				img.SetGray(x, y, color.Gray{Y: 210})
			}
		}
	}
	return img
}

func TestDarkBlob_Localize(t *testing.T) {
	d := DefaultDarkBlob()

	tests := []struct {
		name   string
		img    image.Image
		want   geom.Point
		within float64
	}{
		{
			name:   "centered iris",
			img:    syntheticEye(60, 40, 30, 20, 6),
			want:   geom.Pt(0.5, 0.5),
			within: 0.02,
		},
		{
			name:   "iris looking left",
			img:    syntheticEye(60, 40, 18, 20, 6),
			want:   geom.Pt(0.3, 0.5),
			within: 0.02,
		},
		{
			name:   "iris looking up right",
			img:    syntheticEye(60, 40, 42, 14, 5),
			want:   geom.Pt(0.7, 0.35),
			within: 0.03,
		},
		{
			name:   "large crop is downscaled",
			img:    syntheticEye(200, 100, 50, 50, 15),
			want:   geom.Pt(0.25, 0.5),
			within: 0.03,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := d.Localize(tt.img)
			if !got.Found {
				t.Fatal("expected iris to be found")
			}
			if math.Abs(got.Point.X-tt.want.X) > tt.within || math.Abs(got.Point.Y-tt.want.Y) > tt.within {
				t.Errorf("got %v, want %v (±%v)", got.Point, tt.want, tt.within)
			}
		})
	}
}

func TestDarkBlob_PicksLargestBlob(t *testing.T) {
	img := syntheticEye(80, 40, 56, 20, 8)
	// A small dark speck (eyelash, reflection edge) on the left.
	for y := 18; y < 21; y++ {
		for x := 10; x < 13; x++ {
			img.SetGray(x, y, color.Gray{Y: 0})
		}
	}

	got := DefaultDarkBlob().Localize(img)
	if !got.Found {
		t.Fatal("expected iris to be found")
	}
	if math.Abs(got.Point.X-0.7) > 0.03 {
		t.Errorf("X = %v, want ~0.7 (largest blob)", got.Point.X)
	}
}

func TestDarkBlob_NotFound(t *testing.T) {
	d := DefaultDarkBlob()

	blank := image.NewGray(image.Rect(0, 0, 40, 30))
	for i := range blank.Pix {
		blank.Pix[i] = 200
	}

	tests := []struct {
		name string
		img  image.Image
	}{
		{"uniform bright region", blank},
		{"nil image", nil},
		{"degenerate region", image.NewGray(image.Rect(0, 0, 1, 1))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := d.Localize(tt.img)
			if got.Found {
				t.Errorf("expected not found, got %v", got.Point)
			}
			if got.Value() != geom.Center {
				t.Errorf("Value() = %v, want region centre", got.Value())
			}
		})
	}
}

func TestDarkBlob_EdgeClamp(t *testing.T) {
	// Iris pressed against the left edge of the crop.
	img := syntheticEye(60, 40, 2, 20, 5)

	got := DefaultDarkBlob().Localize(img)
	if !got.Found {
		t.Fatal("expected iris to be found")
	}
	if got.Point.X != DefaultMargin {
		t.Errorf("X = %v, want clamped to %v", got.Point.X, DefaultMargin)
	}
	if got.Point.Y < DefaultMargin || got.Point.Y > 1-DefaultMargin {
		t.Errorf("Y = %v outside [%v, %v]", got.Point.Y, DefaultMargin, 1-DefaultMargin)
	}
}

func TestDarkBlob_SubImage(t *testing.T) {
	frame := syntheticEye(120, 80, 90, 40, 6)
	crop := frame.SubImage(image.Rect(60, 20, 120, 60))

	got := DefaultDarkBlob().Localize(crop)
	if !got.Found {
		t.Fatal("expected iris to be found")
	}
	if math.Abs(got.Point.X-0.5) > 0.02 || math.Abs(got.Point.Y-0.5) > 0.02 {
		t.Errorf("got %v, want (0.5, 0.5) within the crop", got.Point)
	}
}

func TestClamp(t *testing.T) {
	tests := []struct {
		name   string
		in     geom.Point
		margin float64
		want   geom.Point
	}{
		{"inside", geom.Pt(0.4, 0.6), 0.1, geom.Pt(0.4, 0.6)},
		{"low edge", geom.Pt(0.02, 0.05), 0.1, geom.Pt(0.1, 0.1)},
		{"high edge", geom.Pt(0.95, 1.0), 0.1, geom.Pt(0.9, 0.9)},
		{"zero margin", geom.Pt(-0.1, 1.1), 0, geom.Pt(0, 1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Clamp(tt.in, tt.margin); got != tt.want {
				t.Errorf("Clamp(%v, %v) = %v, want %v", tt.in, tt.margin, got, tt.want)
			}
		})
	}
}
