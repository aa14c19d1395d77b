package pattern

import (
	"image/color"

	"swatch-inspector/pkg/colorutil"
)

// Params bundles the detection policy. One Params value must be used for
// both the selection and the detection phase of a run.
type Params struct {
	Space        WorkingSpace
	Tolerances   Tolerances
	SampleRadius int        // Neighbourhood radius for click sampling
	KernelSize   int        // Structuring element side for cleanup
	Highlight    color.RGBA // Colour painted over matched pixels
	UseFallback  bool       // Use FallbackBand when no pattern is selected
}

// DefaultParams returns the default policy for a working space.
func DefaultParams(space WorkingSpace) Params {
	return Params{
		Space:        space,
		Tolerances:   DefaultTolerances(space),
		SampleRadius: SampleRadius,
		KernelSize:   DefaultKernelSize,
		Highlight:    colorutil.Blue,
		UseFallback:  true,
	}
}

// WithSpace returns a copy of params in another working space. Tolerances are
// reset to that space's defaults.
func (p Params) WithSpace(space WorkingSpace) Params {
	p.Space = space
	p.Tolerances = DefaultTolerances(space)
	return p
}

// WithTolerances returns a copy of params with custom tolerances.
func (p Params) WithTolerances(t Tolerances) Params {
	p.Tolerances = t
	return p
}

// WithHighlight returns a copy of params with a custom highlight colour.
func (p Params) WithHighlight(c color.RGBA) Params {
	p.Highlight = c
	return p
}
