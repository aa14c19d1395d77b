// Package canvas provides a zoomable image view that reports clicks in image
// coordinates and draws sample markers.
package canvas

import (
	"image"
	"image/color"
	"sync"

	"fyne.io/fyne/v2"
	fynecanvas "fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
	"golang.org/x/image/draw"
)

const (
	minZoom  = 0.1
	maxZoom  = 10.0
	zoomStep = 1.25
)

var emptySize = fyne.NewSize(400, 300)

// ImageCanvas displays one image with markers on top.
type ImageCanvas struct {
	widget.BaseWidget

	mu      sync.RWMutex
	img     image.Image
	markers []image.Rectangle
	marker  color.RGBA

	raster  *fynecanvas.Raster
	content *clickContent
	scroll  *container.Scroll
	zoom    float64
	imgSize fyne.Size

	fitToWindow    bool
	lastScrollSize fyne.Size

	onLeftClick func(x, y int)
}

// clickContent wraps the raster to receive taps.
type clickContent struct {
	widget.BaseWidget
	canvas *ImageCanvas
}

func newClickContent(ic *ImageCanvas) *clickContent {
	cc := &clickContent{canvas: ic}
	cc.ExtendBaseWidget(cc)
	return cc
}

func (cc *clickContent) CreateRenderer() fyne.WidgetRenderer {
	return widget.NewSimpleRenderer(cc.canvas.raster)
}

func (cc *clickContent) MinSize() fyne.Size {
	return cc.canvas.raster.MinSize()
}

// Tapped converts the tap to image coordinates and forwards it.
func (cc *clickContent) Tapped(ev *fyne.PointEvent) {
	ic := cc.canvas
	ic.mu.RLock()
	cb := ic.onLeftClick
	img := ic.img
	zoom := ic.zoom
	ic.mu.RUnlock()
	if cb == nil || img == nil {
		return
	}

	pt, ok := ToImagePoint(ev.Position, zoom, img.Bounds().Dx(), img.Bounds().Dy())
	if !ok {
		return
	}
	cb(pt.X, pt.Y)
}

// NewImageCanvas creates an empty canvas.
func NewImageCanvas() *ImageCanvas {
	ic := &ImageCanvas{
		zoom:    1.0,
		imgSize: emptySize,
		marker:  color.RGBA{R: 255, G: 255, B: 255, A: 255},
	}
	ic.raster = fynecanvas.NewRaster(ic.draw)
	ic.raster.ScaleMode = fynecanvas.ImageScalePixels
	ic.raster.SetMinSize(ic.imgSize)

	ic.content = newClickContent(ic)
	ic.scroll = container.NewScroll(ic.content)
	ic.scroll.Direction = container.ScrollBoth

	ic.ExtendBaseWidget(ic)
	return ic
}

func (ic *ImageCanvas) CreateRenderer() fyne.WidgetRenderer {
	return widget.NewSimpleRenderer(ic.scroll)
}

// Resize keeps the image fitted when fit-to-window is on.
func (ic *ImageCanvas) Resize(size fyne.Size) {
	ic.BaseWidget.Resize(size)
	if ic.fitToWindow && size.Width > 0 && size.Height > 0 && size != ic.lastScrollSize {
		ic.lastScrollSize = size
		ic.FitToWindow()
	}
}

// SetImage replaces the displayed image and clears the markers.
func (ic *ImageCanvas) SetImage(img image.Image) {
	ic.mu.Lock()
	ic.img = img
	ic.markers = nil
	ic.mu.Unlock()
	if ic.fitToWindow {
		ic.FitToWindow()
		return
	}
	ic.updateContentSize()
}

// Image returns the displayed image.
func (ic *ImageCanvas) Image() image.Image {
	ic.mu.RLock()
	defer ic.mu.RUnlock()
	return ic.img
}

// SetMarkers replaces the marker rectangles (image coordinates).
func (ic *ImageCanvas) SetMarkers(markers []image.Rectangle) {
	ic.mu.Lock()
	ic.markers = append([]image.Rectangle(nil), markers...)
	ic.mu.Unlock()
	ic.raster.Refresh()
}

// OnLeftClick sets the callback for clicks inside the image.
func (ic *ImageCanvas) OnLeftClick(callback func(x, y int)) {
	ic.mu.Lock()
	ic.onLeftClick = callback
	ic.mu.Unlock()
}

// SetZoom sets the zoom level.
func (ic *ImageCanvas) SetZoom(zoom float64) {
	if zoom < minZoom {
		zoom = minZoom
	}
	if zoom > maxZoom {
		zoom = maxZoom
	}
	ic.mu.Lock()
	ic.zoom = zoom
	ic.mu.Unlock()
	ic.updateContentSize()
}

// Zoom returns the zoom level.
func (ic *ImageCanvas) Zoom() float64 {
	ic.mu.RLock()
	defer ic.mu.RUnlock()
	return ic.zoom
}

// ZoomIn increases the zoom level.
func (ic *ImageCanvas) ZoomIn() {
	ic.SetZoom(ic.Zoom() * zoomStep)
}

// ZoomOut decreases the zoom level.
func (ic *ImageCanvas) ZoomOut() {
	ic.SetZoom(ic.Zoom() / zoomStep)
}

// FitToWindow adjusts zoom to fit the image in the visible area.
func (ic *ImageCanvas) FitToWindow() {
	img := ic.Image()
	if img == nil {
		return
	}
	view := ic.scroll.Size()
	if zoom, ok := FitZoom(view, img.Bounds().Dx(), img.Bounds().Dy()); ok {
		ic.SetZoom(zoom)
	}
}

// SetFitToWindow enables or disables auto-fit on resize.
func (ic *ImageCanvas) SetFitToWindow(fit bool) {
	ic.fitToWindow = fit
	if fit {
		ic.FitToWindow()
	}
}

// FitsToWindow reports whether auto-fit is on.
func (ic *ImageCanvas) FitsToWindow() bool {
	return ic.fitToWindow
}

// Refresh redraws the image.
func (ic *ImageCanvas) Refresh() {
	ic.raster.Refresh()
}

func (ic *ImageCanvas) updateContentSize() {
	ic.mu.Lock()
	if ic.img == nil {
		ic.imgSize = emptySize
	} else {
		b := ic.img.Bounds()
		ic.imgSize = fyne.NewSize(float32(float64(b.Dx())*ic.zoom), float32(float64(b.Dy())*ic.zoom))
	}
	size := ic.imgSize
	ic.mu.Unlock()

	ic.raster.SetMinSize(size)
	ic.raster.Resize(size)
	ic.content.Resize(size)
	ic.content.Refresh()
	ic.raster.Refresh()
	ic.scroll.Refresh()
}

// draw renders the image scaled to the raster with markers on top.
func (ic *ImageCanvas) draw(w, h int) image.Image {
	out := image.NewRGBA(image.Rect(0, 0, w, h))

	ic.mu.RLock()
	img := ic.img
	markers := ic.markers
	marker := ic.marker
	ic.mu.RUnlock()

	if img == nil || w == 0 || h == 0 {
		return out
	}
	draw.NearestNeighbor.Scale(out, out.Bounds(), img, img.Bounds(), draw.Src, nil)

	sx := float64(w) / float64(img.Bounds().Dx())
	sy := float64(h) / float64(img.Bounds().Dy())
	for _, m := range markers {
		r := image.Rect(
			int(float64(m.Min.X)*sx), int(float64(m.Min.Y)*sy),
			int(float64(m.Max.X)*sx), int(float64(m.Max.Y)*sy),
		)
		strokeRect(out, r, marker)
	}
	return out
}

// ToImagePoint converts a position on the zoomed content into a pixel of a
// w x h image. ok is false outside the image.
func ToImagePoint(pos fyne.Position, zoom float64, w, h int) (image.Point, bool) {
	if zoom <= 0 || pos.X < 0 || pos.Y < 0 {
		return image.Point{}, false
	}
	x := int(float64(pos.X) / zoom)
	y := int(float64(pos.Y) / zoom)
	if x >= w || y >= h {
		return image.Point{}, false
	}
	return image.Pt(x, y), true
}

// FitZoom returns the zoom that fits a w x h image into view with a small
// margin.
func FitZoom(view fyne.Size, w, h int) (float64, bool) {
	if w == 0 || h == 0 || view.Width <= 0 || view.Height <= 0 {
		return 0, false
	}
	zoom := float64(view.Width) / float64(w)
	if zy := float64(view.Height) / float64(h); zy < zoom {
		zoom = zy
	}
	return zoom * 0.95, true
}

// strokeRect draws a 1-pixel outline of r (Max exclusive) clipped to dst.
func strokeRect(dst *image.RGBA, r image.Rectangle, c color.RGBA) {
	if r.Dx() <= 0 || r.Dy() <= 0 {
		return
	}
	x0, y0, x1, y1 := r.Min.X, r.Min.Y, r.Max.X-1, r.Max.Y-1
	b := dst.Bounds()
	set := func(x, y int) {
		if image.Pt(x, y).In(b) {
			dst.SetRGBA(x, y, c)
		}
	}
	for x := x0; x <= x1; x++ {
		set(x, y0)
		set(x, y1)
	}
	for y := y0; y <= y1; y++ {
		set(x0, y)
		set(x1, y)
	}
}
