package vision

import (
	"image"

	"github.com/teslashibe/go-gaze/pkg/iris"
)

// Blob adapts an image-based iris.Localizer, such as iris.DarkBlob, to
// frames.
type Blob struct {
	Localizer iris.Localizer
}

// LocalizeIris implements gaze.IrisLocalizer.
func (b Blob) LocalizeIris(f *Frame, eye image.Rectangle) iris.Result {
	eye = eye.Intersect(f.Bounds())
	if eye.Empty() {
		return iris.NotFound
	}

	roi := f.Gray.Region(eye)
	defer roi.Close()

	// Regions share the parent's stride; copy before converting.
	crop := roi.Clone()
	defer crop.Close()

	img, err := crop.ToImage()
	if err != nil {
		return iris.NotFound
	}
	return b.Localizer.Localize(img)
}
