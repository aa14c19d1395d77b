package pattern

import (
	"fmt"

	"gocv.io/x/gocv"
)

// Sample is a colour estimate in a working space.
type Sample [3]int

// Tolerances is the half-width of a band on each channel.
type Tolerances [3]int

// Uniform returns the same tolerance on every channel.
func Uniform(t int) Tolerances {
	return Tolerances{t, t, t}
}

// DefaultTolerances returns the default tolerances for a working space:
// a narrow hue window with wider saturation/value windows for HSV, and a
// uniform window for RGB.
func DefaultTolerances(space WorkingSpace) Tolerances {
	if space == SpaceHSV {
		return Tolerances{10, 50, 50}
	}
	return Uniform(30)
}

// Band is an inclusive per-channel range. Lower[c] <= Upper[c] always holds.
type Band struct {
	Lower [3]int
	Upper [3]int
}

// FallbackBand is used when no pattern has been selected. It is expressed in
// HSV and covers warm orange-red tones with high saturation and value.
var FallbackBand = Band{
	Lower: [3]int{0, 100, 100},
	Upper: [3]int{30, 255, 255},
}

// NewBand validates and returns a band. Inverted bounds are a programming
// error and panic.
func NewBand(lower, upper [3]int) Band {
	for c := 0; c < 3; c++ {
		if lower[c] > upper[c] {
			panic(fmt.Sprintf("pattern: inverted band on channel %d: %d > %d", c, lower[c], upper[c]))
		}
	}
	return Band{Lower: lower, Upper: upper}
}

// BuildBand widens a sample by the tolerances, clamping each channel to the
// valid range of the working space.
func BuildBand(s Sample, tol Tolerances, space WorkingSpace) Band {
	limits := ChannelMax(space)

	var lower, upper [3]int
	for c := 0; c < 3; c++ {
		t := tol[c]
		if t < 0 {
			panic(fmt.Sprintf("pattern: negative tolerance %d on channel %d", t, c))
		}
		lower[c] = max(0, s[c]-t)
		upper[c] = min(limits[c], s[c]+t)
	}
	return NewBand(lower, upper)
}

// Contains reports whether a colour lies inside the band.
func (b Band) Contains(v [3]int) bool {
	for c := 0; c < 3; c++ {
		if v[c] < b.Lower[c] || v[c] > b.Upper[c] {
			return false
		}
	}
	return true
}

func (b Band) String() string {
	return fmt.Sprintf("[%d,%d,%d]-[%d,%d,%d]",
		b.Lower[0], b.Lower[1], b.Lower[2], b.Upper[0], b.Upper[1], b.Upper[2])
}

func (b Band) scalars() (gocv.Scalar, gocv.Scalar) {
	lower := gocv.NewScalar(float64(b.Lower[0]), float64(b.Lower[1]), float64(b.Lower[2]), 0)
	upper := gocv.NewScalar(float64(b.Upper[0]), float64(b.Upper[1]), float64(b.Upper[2]), 0)
	return lower, upper
}
