// Package image loads source images into BGR Mats and writes results back to
// disk. Failures are reported as *LoadError and *SaveError.
package image

import (
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	"gocv.io/x/gocv"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// LoadError reports an image that could not be read or decoded.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load image %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Layer is a decoded image together with its BGR Mat.
type Layer struct {
	Path   string      // Original file path, empty for in-memory images
	Format string      // Decoder name ("png", "jpeg", ...)
	Image  image.Image // Decoded image, used for display
	Mat    gocv.Mat    // CV_8UC3, BGR
}

// Load reads and decodes an image file.
func Load(path string) (*Layer, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	defer file.Close()

	img, format, err := image.Decode(file)
	if err != nil {
		return nil, &LoadError{Path: path, Err: fmt.Errorf("decode: %w", err)}
	}
	if img.Bounds().Empty() {
		return nil, &LoadError{Path: path, Err: fmt.Errorf("image has no pixels")}
	}

	layer := FromImage(img)
	layer.Path = path
	layer.Format = format
	return layer, nil
}

// FromImage wraps an in-memory image.
func FromImage(img image.Image) *Layer {
	return &Layer{Image: img, Mat: ImageToMat(img)}
}

// Close releases the Mat.
func (l *Layer) Close() {
	if l == nil {
		return
	}
	l.Mat.Close()
}

// Width returns the image width in pixels.
func (l *Layer) Width() int {
	return l.Mat.Cols()
}

// Height returns the image height in pixels.
func (l *Layer) Height() int {
	return l.Mat.Rows()
}

// Contains reports whether (x, y) is a pixel of the layer.
func (l *Layer) Contains(x, y int) bool {
	return x >= 0 && y >= 0 && x < l.Width() && y < l.Height()
}

// Name returns the file name, or "(memory)" for in-memory layers.
func (l *Layer) Name() string {
	if l.Path == "" {
		return "(memory)"
	}
	return filepath.Base(l.Path)
}

// ImageToMat converts a Go image to a CV_8UC3 Mat in BGR order. Alpha is
// dropped without darkening the colour channels.
func ImageToMat(img image.Image) gocv.Mat {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	mat := gocv.NewMatWithSize(h, w, gocv.MatTypeCV8UC3)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := color.NRGBAModel.Convert(img.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.NRGBA)
			mat.SetUCharAt(y, x*3+0, c.B)
			mat.SetUCharAt(y, x*3+1, c.G)
			mat.SetUCharAt(y, x*3+2, c.R)
		}
	}
	return mat
}

// SupportedFormats returns the extensions accepted for input.
func SupportedFormats() []string {
	return []string{".png", ".jpg", ".jpeg", ".tif", ".tiff", ".bmp", ".webp", ".gif"}
}

// IsSupportedFormat checks the extension of path against SupportedFormats.
func IsSupportedFormat(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, f := range SupportedFormats() {
		if ext == f {
			return true
		}
	}
	return false
}
