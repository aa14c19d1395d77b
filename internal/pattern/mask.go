package pattern

import (
	"image"

	"gocv.io/x/gocv"
)

// DefaultKernelSize is the side of the square structuring element used for
// mask cleanup.
const DefaultKernelSize = 3

// Detect matches a BGR image against a set of bands built in the given
// working space and returns the cleaned mask. An empty set falls back to
// FallbackBand evaluated in HSV.
func Detect(img gocv.Mat, bands []Band, space WorkingSpace) gocv.Mat {
	mask, _ := detect(img, bands, space, DefaultKernelSize, true)
	return mask
}

// detect returns the cleaned mask and whether the fallback band was used.
func detect(img gocv.Mat, bands []Band, space WorkingSpace, kernelSize int, useFallback bool) (gocv.Mat, bool) {
	mustBeColorImage(img)

	if len(bands) == 0 {
		if !useFallback {
			return blankMask(img), false
		}
		hsv := ToWorkingSpace(img, SpaceHSV)
		defer hsv.Close()
		raw := MatchBand(hsv, FallbackBand)
		defer raw.Close()
		return CleanupWithKernel(raw, kernelSize), true
	}

	work := ToWorkingSpace(img, space)
	defer work.Close()

	raw := MatchAny(work, bands)
	defer raw.Close()
	return CleanupWithKernel(raw, kernelSize), false
}

// MatchBand returns the raw mask of pixels inside a band. The image must be
// in the band's working space.
func MatchBand(work gocv.Mat, b Band) gocv.Mat {
	lower, upper := b.scalars()
	mask := gocv.NewMat()
	gocv.InRangeWithScalar(work, lower, upper, &mask)
	return mask
}

// MatchAny returns the union of the raw masks of every band. The result does
// not depend on band order or duplicates.
func MatchAny(work gocv.Mat, bands []Band) gocv.Mat {
	mask := blankMask(work)
	for _, b := range bands {
		m := MatchBand(work, b)
		gocv.BitwiseOr(mask, m, &mask)
		m.Close()
	}
	return mask
}

// Cleanup applies a morphological opening then closing with a 3x3 square
// element: the opening drops isolated specks, the closing fills pinholes.
func Cleanup(mask gocv.Mat) gocv.Mat {
	return CleanupWithKernel(mask, DefaultKernelSize)
}

// CleanupWithKernel is Cleanup with a custom odd element size.
func CleanupWithKernel(mask gocv.Mat, size int) gocv.Mat {
	if mask.Empty() {
		panic("pattern: empty mask")
	}
	if size < 1 {
		size = DefaultKernelSize
	}

	kernel := gocv.GetStructuringElement(gocv.MorphRect, image.Point{X: size, Y: size})
	defer kernel.Close()

	opened := gocv.NewMat()
	defer opened.Close()
	gocv.MorphologyEx(mask, &opened, gocv.MorphOpen, kernel)

	closed := gocv.NewMat()
	gocv.MorphologyEx(opened, &closed, gocv.MorphClose, kernel)
	return closed
}

func blankMask(img gocv.Mat) gocv.Mat {
	return gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), img.Rows(), img.Cols(), gocv.MatTypeCV8U)
}
