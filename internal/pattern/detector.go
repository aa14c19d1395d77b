package pattern

import (
	"image/color"

	"gocv.io/x/gocv"
)

// Result holds the output of one detection run.
type Result struct {
	Mask         gocv.Mat // CV_8UC1, 255 where a pattern matched
	Output       gocv.Mat // BGR copy of the target with matches highlighted
	Matched      int      // Number of set mask pixels
	Coverage     float64  // Matched / total pixels
	Bands        int      // Number of bands evaluated
	UsedFallback bool
}

// Close releases the Mats held by the result.
func (r *Result) Close() {
	if r == nil {
		return
	}
	r.Mask.Close()
	r.Output.Close()
}

// Detector applies one Params policy to sampling and detection and owns the
// pattern store of the current selection session.
type Detector struct {
	params Params
	store  *Store
}

// NewDetector creates a detector with an empty store.
func NewDetector(p Params) *Detector {
	return &Detector{params: p, store: NewStore()}
}

// Params returns the detector's policy.
func (d *Detector) Params() Params {
	return d.params
}

// Store returns the detector's pattern store.
func (d *Detector) Store() *Store {
	return d.store
}

// Prepare converts a BGR image into the detector's working space, ready for
// repeated sampling.
func (d *Detector) Prepare(img gocv.Mat) gocv.Mat {
	return ToWorkingSpace(img, d.params.Space)
}

// Sample returns the neighbourhood colour at (x, y) of a prepared image.
func (d *Detector) Sample(work gocv.Mat, x, y int) Sample {
	return SampleWindow(work, x, y, d.params.SampleRadius)
}

// AddSample turns a sample into a band and stores it.
func (d *Detector) AddSample(s Sample) Band {
	b := BuildBand(s, d.params.Tolerances, d.params.Space)
	d.store.Add(b)
	return b
}

// AddColor converts a colour into the working space and stores its band.
func (d *Detector) AddColor(c color.Color) (Sample, Band) {
	s := SampleFromColor(c, d.params.Space)
	return s, d.AddSample(s)
}

// Run detects the stored patterns in a BGR image and composites the result.
// It can be called any number of times.
func (d *Detector) Run(img gocv.Mat) *Result {
	bands := d.store.All()
	mask, fallback := detect(img, bands, d.params.Space, d.params.KernelSize, d.params.UseFallback)
	output := Composite(img, mask, d.params.Highlight)

	matched := gocv.CountNonZero(mask)
	total := mask.Rows() * mask.Cols()

	used := len(bands)
	if fallback {
		used = 1
	}
	return &Result{
		Mask:         mask,
		Output:       output,
		Matched:      matched,
		Coverage:     float64(matched) / float64(total),
		Bands:        used,
		UsedFallback: fallback,
	}
}
