// Package pattern implements colour-pattern detection: sampling a colour from
// an image, widening it into a tolerance band, matching bands against a target
// image and compositing the result.
//
// Images are gocv Mats of type CV_8UC3 in OpenCV's native BGR order. Masks are
// CV_8UC1 Mats holding 0 or 255. Every Mat returned from this package is owned
// by the caller.
package pattern

import (
	"fmt"
	"strings"

	"gocv.io/x/gocv"
)

// WorkingSpace selects the colour representation used for sampling, band
// construction and matching. A band is only meaningful in the space it was
// built in.
type WorkingSpace int

const (
	SpaceHSV WorkingSpace = iota // OpenCV 8-bit HSV: H 0-179, S 0-255, V 0-255
	SpaceRGB                     // R, G, B 0-255
)

func (s WorkingSpace) String() string {
	switch s {
	case SpaceHSV:
		return "hsv"
	case SpaceRGB:
		return "rgb"
	default:
		return "unknown"
	}
}

// ChannelNames returns short channel labels for status output.
func (s WorkingSpace) ChannelNames() [3]string {
	if s == SpaceRGB {
		return [3]string{"R", "G", "B"}
	}
	return [3]string{"H", "S", "V"}
}

// ParseWorkingSpace parses "hsv" or "rgb" (case-insensitive).
func ParseWorkingSpace(name string) (WorkingSpace, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "hsv":
		return SpaceHSV, nil
	case "rgb":
		return SpaceRGB, nil
	}
	return SpaceHSV, fmt.Errorf("unknown working space %q (want hsv or rgb)", name)
}

// ChannelMax returns the inclusive upper limit of each channel.
func ChannelMax(space WorkingSpace) [3]int {
	if space == SpaceHSV {
		return [3]int{179, 255, 255}
	}
	return [3]int{255, 255, 255}
}

// ToWorkingSpace converts a BGR image into the given working space.
func ToWorkingSpace(img gocv.Mat, space WorkingSpace) gocv.Mat {
	mustBeColorImage(img)

	out := gocv.NewMat()
	switch space {
	case SpaceRGB:
		gocv.CvtColor(img, &out, gocv.ColorBGRToRGB)
	default:
		gocv.CvtColor(img, &out, gocv.ColorBGRToHSV)
	}
	return out
}

// ToDeviceOrder converts an image in the given working space back to BGR.
func ToDeviceOrder(img gocv.Mat, space WorkingSpace) gocv.Mat {
	mustBeColorImage(img)

	out := gocv.NewMat()
	switch space {
	case SpaceRGB:
		gocv.CvtColor(img, &out, gocv.ColorRGBToBGR)
	default:
		gocv.CvtColor(img, &out, gocv.ColorHSVToBGR)
	}
	return out
}

func mustBeColorImage(img gocv.Mat) {
	if img.Empty() {
		panic("pattern: empty image")
	}
	if img.Channels() != 3 || img.Type() != gocv.MatTypeCV8UC3 {
		panic(fmt.Sprintf("pattern: expected 8-bit 3-channel image, got type %v", img.Type()))
	}
}
