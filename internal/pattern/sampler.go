package pattern

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"swatch-inspector/pkg/colorutil"

	"gocv.io/x/gocv"
	"gonum.org/v1/gonum/stat"
)

// SampleRadius is the default neighbourhood radius (a 5x5 window).
const SampleRadius = 2

// SampleAt returns the truncated per-channel mean of the 5x5 window centred on
// (x, y). The window is clamped to the image edges.
func SampleAt(img gocv.Mat, x, y int) Sample {
	return SampleWindow(img, x, y, SampleRadius)
}

// SampleWindow is SampleAt with an explicit radius. The image must already be
// in the working space and (x, y) must lie inside it.
func SampleWindow(img gocv.Mat, x, y, radius int) Sample {
	mustBeColorImage(img)
	if x < 0 || y < 0 || x >= img.Cols() || y >= img.Rows() {
		panic(fmt.Sprintf("pattern: sample point (%d,%d) outside %dx%d image", x, y, img.Cols(), img.Rows()))
	}
	if radius < 0 {
		radius = 0
	}

	win := SampleRect(img.Cols(), img.Rows(), x, y, radius)
	n := win.Dx() * win.Dy()
	channels := [3][]float64{
		make([]float64, 0, n),
		make([]float64, 0, n),
		make([]float64, 0, n),
	}
	for row := win.Min.Y; row < win.Max.Y; row++ {
		for col := win.Min.X; col < win.Max.X; col++ {
			v := img.GetVecbAt(row, col)
			for c := 0; c < 3; c++ {
				channels[c] = append(channels[c], float64(v[c]))
			}
		}
	}

	var s Sample
	for c := 0; c < 3; c++ {
		s[c] = int(stat.Mean(channels[c], nil))
	}
	return s
}

// SampleRect returns the clamped sampling window around (x, y).
func SampleRect(width, height, x, y, radius int) image.Rectangle {
	return image.Rect(
		max(0, x-radius),
		max(0, y-radius),
		min(width, x+radius+1),
		min(height, y+radius+1),
	)
}

// SampleFromColor converts a colour into a sample in the working space. HSV
// follows OpenCV's 8-bit convention.
func SampleFromColor(c color.Color, space WorkingSpace) Sample {
	r, g, b, _ := c.RGBA()
	r8, g8, b8 := float64(r>>8), float64(g>>8), float64(b>>8)
	if space == SpaceRGB {
		return Sample{int(r8), int(g8), int(b8)}
	}
	h, s, v := colorutil.RGBToHSV(r8, g8, b8)
	hue := int(math.Round(h))
	if hue >= 180 {
		hue -= 180
	}
	return Sample{hue, int(math.Round(s)), int(math.Round(v))}
}
