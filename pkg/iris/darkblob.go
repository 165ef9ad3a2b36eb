package iris

import (
	"image"

	"github.com/disintegration/imaging"
	"golang.org/x/image/draw"

	"github.com/teslashibe/go-gaze/pkg/geom"
)

// DarkBlob finds the iris as the largest dark blob in the eye region:
// grayscale, blur, inverse binary threshold, then the centroid of the
// largest 4-connected component.
type DarkBlob struct {
	Threshold uint8   // Pixels darker than this are iris candidates
	BlurSigma float64 // Gaussian blur sigma, 0 disables
	MinArea   int     // Components smaller than this are ignored (pixels, after scaling)
	MaxWidth  int     // Wider crops are downscaled first, 0 disables
	Margin    float64 // Edge clamp margin
}

// DefaultDarkBlob returns the thresholds used by the webcam tracker.
func DefaultDarkBlob() DarkBlob {
	return DarkBlob{
		Threshold: 70,
		BlurSigma: 1.5, // roughly a 7x7 Gaussian kernel
		MinArea:   4,
		MaxWidth:  96,
		Margin:    DefaultMargin,
	}
}

// Localize implements Localizer.
func (d DarkBlob) Localize(eye image.Image) Result {
	if eye == nil {
		return NotFound
	}
	b := eye.Bounds()
	if b.Dx() < 2 || b.Dy() < 2 {
		return NotFound
	}

	src := d.shrink(eye)
	gray := imaging.Grayscale(src)
	if d.BlurSigma > 0 {
		gray = imaging.Blur(gray, d.BlurSigma)
	}

	w, h := gray.Bounds().Dx(), gray.Bounds().Dy()
	dark := make([]bool, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			// Grayscale output has R == G == B.
			dark[y*w+x] = gray.Pix[gray.PixOffset(x, y)] < d.Threshold
		}
	}

	blob, ok := largestComponent(dark, w, h)
	if !ok || blob.area < d.MinArea {
		return NotFound
	}

	cx := blob.sumX / float64(blob.area)
	cy := blob.sumY / float64(blob.area)
	return Found(geom.Pt(cx/float64(w), cy/float64(h)), d.Margin)
}

// shrink downscales crops wider than MaxWidth, keeping the aspect ratio.
func (d DarkBlob) shrink(eye image.Image) image.Image {
	b := eye.Bounds()
	if d.MaxWidth <= 0 || b.Dx() <= d.MaxWidth {
		return eye
	}
	h := b.Dy() * d.MaxWidth / b.Dx()
	if h < 1 {
		h = 1
	}
	dst := image.NewGray(image.Rect(0, 0, d.MaxWidth, h))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), eye, b, draw.Src, nil)
	return dst
}

type component struct {
	area       int
	sumX, sumY float64
}

// largestComponent labels the 4-connected components of mask and returns the
// biggest one. Centroid sums use pixel centres.
func largestComponent(mask []bool, w, h int) (component, bool) {
	seen := make([]bool, len(mask))
	stack := make([]int, 0, 64)

	var best component
	found := false

	for start := range mask {
		if !mask[start] || seen[start] {
			continue
		}

		var c component
		seen[start] = true
		stack = append(stack[:0], start)
		for len(stack) > 0 {
			i := stack[len(stack)-1]
			stack = stack[:len(stack)-1]

			x, y := i%w, i/w
			c.area++
			c.sumX += float64(x) + 0.5
			c.sumY += float64(y) + 0.5

			if x > 0 && mask[i-1] && !seen[i-1] {
				seen[i-1] = true
				stack = append(stack, i-1)
			}
			if x < w-1 && mask[i+1] && !seen[i+1] {
				seen[i+1] = true
				stack = append(stack, i+1)
			}
			if y > 0 && mask[i-w] && !seen[i-w] {
				seen[i-w] = true
				stack = append(stack, i-w)
			}
			if y < h-1 && mask[i+w] && !seen[i+w] {
				seen[i+w] = true
				stack = append(stack, i+w)
			}
		}

		if c.area > best.area {
			best = c
			found = true
		}
	}

	return best, found
}
