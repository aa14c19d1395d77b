package image

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gocv.io/x/gocv"
)

// SaveError reports a result that could not be written. The in-memory image
// is unaffected.
type SaveError struct {
	Path string
	Err  error
}

func (e *SaveError) Error() string {
	return fmt.Sprintf("save image %s: %v", e.Path, e.Err)
}

func (e *SaveError) Unwrap() error { return e.Err }

// ErrUnsupportedFormat is wrapped by SaveError for unknown output extensions.
var ErrUnsupportedFormat = errors.New("unsupported output format")

var writableFormats = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".bmp": true,
	".tif": true, ".tiff": true, ".webp": true,
}

// Save writes a Mat (BGR or single-channel) to path, creating the parent
// directory. The format is chosen from the extension.
func Save(path string, mat gocv.Mat) error {
	if mat.Empty() {
		return &SaveError{Path: path, Err: errors.New("empty image")}
	}
	ext := strings.ToLower(filepath.Ext(path))
	if !writableFormats[ext] {
		return &SaveError{Path: path, Err: fmt.Errorf("%w %q", ErrUnsupportedFormat, ext)}
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return &SaveError{Path: path, Err: err}
		}
	}
	if ok := gocv.IMWrite(path, mat); !ok {
		return &SaveError{Path: path, Err: errors.New("encoder failed")}
	}
	return nil
}
