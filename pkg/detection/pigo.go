package detection

import (
	"image"
	"os"
	"sync"

	pigo "github.com/esimov/pigo/core"
	"github.com/pkg/errors"

	"github.com/teslashibe/go-gaze/pkg/debug"
)

// PigoConfig holds pigo cascade parameters.
type PigoConfig struct {
	CascadePath string
	MinSize     int     // Minimum face size in pixels
	MaxSize     int     // Maximum face size in pixels, 0 = image size
	ShiftFactor float64 // Window shift as a fraction of its size
	ScaleFactor float64 // Scale step between pyramid levels
	IoU         float64 // Cluster overlap threshold
	MinQuality  float64 // Detections scoring below this are dropped
}

// DefaultPigoConfig returns parameters for a webcam at arm's length.
func DefaultPigoConfig() PigoConfig {
	return PigoConfig{
		CascadePath: "models/facefinder",
		MinSize:     80,
		ShiftFactor: 0.1,
		ScaleFactor: 1.1,
		IoU:         0.2,
		MinQuality:  5.0,
	}
}

// Pigo detects faces with the pigo pixel-intensity-comparison cascade. It
// needs no cgo and runs on raw 8-bit grayscale buffers.
type Pigo struct {
	classifier *pigo.Pigo
	config     PigoConfig
	mu         sync.Mutex
}

// NewPigo loads the cascade at config.CascadePath.
func NewPigo(config PigoConfig) (*Pigo, error) {
	data, err := os.ReadFile(config.CascadePath)
	if err != nil {
		return nil, errors.Wrap(err, "read pigo cascade")
	}
	return NewPigoFromBytes(data, config)
}

// NewPigoFromBytes unpacks an in-memory cascade.
func NewPigoFromBytes(cascade []byte, config PigoConfig) (*Pigo, error) {
	classifier, err := pigo.NewPigo().Unpack(cascade)
	if err != nil {
		return nil, errors.Wrap(err, "unpack pigo cascade")
	}
	return &Pigo{classifier: classifier, config: config}, nil
}

// Detect finds faces in a row-major grayscale buffer of the given size.
func (p *Pigo) Detect(pixels []uint8, cols, rows int) []Detection {
	if cols <= 0 || rows <= 0 || len(pixels) < cols*rows {
		return nil
	}

	maxSize := p.config.MaxSize
	if maxSize <= 0 {
		maxSize = max(cols, rows)
	}

	params := pigo.CascadeParams{
		MinSize:     p.config.MinSize,
		MaxSize:     maxSize,
		ShiftFactor: p.config.ShiftFactor,
		ScaleFactor: p.config.ScaleFactor,
		ImageParams: pigo.ImageParams{
			Pixels: pixels,
			Rows:   rows,
			Cols:   cols,
			Dim:    cols,
		},
	}

	p.mu.Lock()
	dets := p.classifier.RunCascade(params, 0)
	dets = p.classifier.ClusterDetections(dets, p.config.IoU)
	p.mu.Unlock()

	var out []Detection
	for _, d := range dets {
		if float64(d.Q) < p.config.MinQuality {
			continue
		}
		half := d.Scale / 2
		out = append(out, Detection{
			Rect:       image.Rect(d.Col-half, d.Row-half, d.Col+half, d.Row+half),
			Confidence: float64(d.Q),
		})
	}

	if len(out) > 0 {
		debug.FrameLog("pigo faces", "count", len(out))
	}
	return out
}

// DetectImage is Detect on an image.Gray.
func (p *Pigo) DetectImage(img *image.Gray) []Detection {
	b := img.Bounds()
	pixels := img.Pix
	if img.Stride != b.Dx() || b.Min != (image.Point{}) {
		pixels = make([]uint8, 0, b.Dx()*b.Dy())
		for y := b.Min.Y; y < b.Max.Y; y++ {
			off := img.PixOffset(b.Min.X, y)
			pixels = append(pixels, img.Pix[off:off+b.Dx()]...)
		}
	}
	dets := p.Detect(pixels, b.Dx(), b.Dy())
	for i := range dets {
		dets[i].Rect = dets[i].Rect.Add(b.Min)
	}
	return dets
}
