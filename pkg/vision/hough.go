package vision

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-gaze/pkg/debug"
	"github.com/teslashibe/go-gaze/pkg/geom"
	"github.com/teslashibe/go-gaze/pkg/iris"
)

// HoughConfig holds iris localization parameters. Radii are fractions of
// the shorter side of the eye box.
type HoughConfig struct {
	Blur      int     // Gaussian kernel size, odd
	DP        float64 // Accumulator resolution ratio
	Param1    float64 // Canny upper threshold
	Param2    float64 // Accumulator threshold
	MinRadius float64
	MaxRadius float64
	Threshold float32 // Dark-pixel cutoff for the contour fallback
	Margin    float64 // Edge clamp, see iris.Found
}

// DefaultHoughConfig returns parameters tuned for Haar eye boxes.
func DefaultHoughConfig() HoughConfig {
	return HoughConfig{
		Blur:      7,
		DP:        1,
		Param1:    50,
		Param2:    30,
		MinRadius: 0.1,
		MaxRadius: 0.4,
		Threshold: 70,
		Margin:    iris.DefaultMargin,
	}
}

// Hough locates the iris with a circle Hough transform, falling back to
// the centroid of the largest dark contour when no circle is found.
type Hough struct {
	config HoughConfig
}

// NewHough creates a localizer.
func NewHough(config HoughConfig) *Hough {
	if config.Blur%2 == 0 {
		config.Blur++
	}
	return &Hough{config: config}
}

// LocalizeIris implements gaze.IrisLocalizer.
func (h *Hough) LocalizeIris(f *Frame, eye image.Rectangle) iris.Result {
	eye = eye.Intersect(f.Bounds())
	if eye.Empty() {
		return iris.NotFound
	}

	roi := f.Gray.Region(eye)
	defer roi.Close()
	return h.Locate(roi)
}

// Locate finds the iris in a grayscale eye image.
func (h *Hough) Locate(eye gocv.Mat) iris.Result {
	w, ht := eye.Cols(), eye.Rows()
	if w == 0 || ht == 0 {
		return iris.NotFound
	}
	box := image.Rect(0, 0, w, ht)

	blurred := gocv.NewMat()
	defer blurred.Close()
	gocv.GaussianBlur(eye, &blurred, image.Pt(h.config.Blur, h.config.Blur), 0, 0, gocv.BorderDefault)

	side := float64(min(w, ht))
	circles := gocv.NewMat()
	defer circles.Close()
	gocv.HoughCirclesWithParams(blurred, &circles, gocv.HoughGradient,
		h.config.DP, float64(w)/2,
		h.config.Param1, h.config.Param2,
		int(side*h.config.MinRadius), int(side*h.config.MaxRadius))

	// Strongest circle first
	if !circles.Empty() && circles.Cols() > 0 {
		x := float64(circles.GetFloatAt(0, 0))
		y := float64(circles.GetFloatAt(0, 1))
		return iris.Found(geom.Normalize(box, x, y), h.config.Margin)
	}

	if x, y, ok := h.darkest(blurred); ok {
		debug.FrameLog("iris from contour fallback", "x", x, "y", y)
		return iris.Found(geom.Normalize(box, x, y), h.config.Margin)
	}
	return iris.NotFound
}

// darkest returns the centroid of the largest contour below the threshold.
func (h *Hough) darkest(eye gocv.Mat) (x, y float64, ok bool) {
	mask := gocv.NewMat()
	defer mask.Close()
	gocv.Threshold(eye, &mask, h.config.Threshold, 255, gocv.ThresholdBinaryInv)

	contours := gocv.FindContours(mask, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	best, bestArea := -1, 0.0
	for i := 0; i < contours.Size(); i++ {
		if area := gocv.ContourArea(contours.At(i)); area > bestArea {
			best, bestArea = i, area
		}
	}
	if best < 0 {
		return 0, 0, false
	}

	filled := gocv.Zeros(eye.Rows(), eye.Cols(), gocv.MatTypeCV8U)
	defer filled.Close()
	gocv.DrawContours(&filled, contours, best, color.RGBA{R: 255, G: 255, B: 255, A: 255}, -1)

	// Centroid from moments: cx = m10/m00, cy = m01/m00
	m := gocv.Moments(filled, true)
	if m["m00"] <= 0 {
		return 0, 0, false
	}
	return m["m10"] / m["m00"], m["m01"] / m["m00"], true
}
