package pattern

import (
	"fmt"
	"image/color"

	"gocv.io/x/gocv"
)

// Composite returns a copy of a BGR image with every masked pixel replaced by
// the highlight colour. The source image is not modified.
func Composite(img, mask gocv.Mat, highlight color.RGBA) gocv.Mat {
	mustBeColorImage(img)
	if mask.Rows() != img.Rows() || mask.Cols() != img.Cols() {
		panic(fmt.Sprintf("pattern: mask %dx%d does not match image %dx%d",
			mask.Cols(), mask.Rows(), img.Cols(), img.Rows()))
	}

	out := img.Clone()
	fill := gocv.NewMatWithSizeFromScalar(
		gocv.NewScalar(float64(highlight.B), float64(highlight.G), float64(highlight.R), 0),
		img.Rows(), img.Cols(), gocv.MatTypeCV8UC3)
	defer fill.Close()

	fill.CopyToWithMask(&out, mask)
	return out
}
