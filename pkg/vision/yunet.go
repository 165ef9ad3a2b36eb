package vision

import (
	"image"
	"os"
	"sync"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"

	"github.com/teslashibe/go-gaze/pkg/debug"
)

// YuNetConfig holds settings for the YuNet face detector.
type YuNetConfig struct {
	ModelPath      string
	ScoreThreshold float64
	NMSThreshold   float64
	TopK           int
}

// DefaultYuNetConfig returns the settings used for webcam faces.
func DefaultYuNetConfig() YuNetConfig {
	return YuNetConfig{
		ModelPath:      "models/face_detection_yunet.onnx",
		ScoreThreshold: 0.6,
		NMSThreshold:   0.3,
		TopK:           5000,
	}
}

// YuNet uses OpenCV's FaceDetectorYN for face detection. It runs on the
// colour frame and is far more robust to pose and lighting than the Haar
// face cascade.
type YuNet struct {
	detector gocv.FaceDetectorYN
	config   YuNetConfig
	input    image.Point
	mu       sync.Mutex // Protects inference
}

// NewYuNet loads the ONNX model at config.ModelPath.
func NewYuNet(config YuNetConfig) (*YuNet, error) {
	if _, err := os.Stat(config.ModelPath); err != nil {
		return nil, errors.Wrap(err, "yunet model")
	}

	// Input size is updated per frame
	input := image.Pt(320, 320)
	detector := gocv.NewFaceDetectorYNWithParams(
		config.ModelPath,
		"", // No config file needed for ONNX
		input,
		float32(config.ScoreThreshold),
		float32(config.NMSThreshold),
		config.TopK,
		int(gocv.NetBackendDefault),
		int(gocv.NetTargetCPU),
	)

	return &YuNet{detector: detector, config: config, input: input}, nil
}

// DetectFaces finds faces in the colour frame.
func (y *YuNet) DetectFaces(f *Frame) []image.Rectangle {
	if f.Color.Empty() {
		return nil
	}

	y.mu.Lock()
	defer y.mu.Unlock()

	if size := image.Pt(f.Color.Cols(), f.Color.Rows()); size != y.input {
		y.detector.SetInputSize(size)
		y.input = size
	}

	faces := gocv.NewMat()
	defer faces.Close()
	y.detector.Detect(f.Color, &faces)

	// Each row: x, y, w, h, five landmark pairs, score
	var out []image.Rectangle
	for r := 0; r < faces.Rows(); r++ {
		x := int(faces.GetFloatAt(r, 0))
		top := int(faces.GetFloatAt(r, 1))
		w := int(faces.GetFloatAt(r, 2))
		h := int(faces.GetFloatAt(r, 3))
		out = append(out, image.Rect(x, top, x+w, top+h).Intersect(f.Bounds()))
	}

	if len(out) > 0 {
		debug.FrameLog("yunet faces", "count", len(out))
	}
	return out
}

// Close releases the detector resources.
func (y *YuNet) Close() error {
	y.mu.Lock()
	defer y.mu.Unlock()
	y.detector.Close()
	return nil
}
