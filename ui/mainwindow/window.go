// Package mainwindow provides the main application window.
package mainwindow

import (
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"strings"

	"swatch-inspector/internal/app"
	"swatch-inspector/internal/image"
	"swatch-inspector/internal/pattern"
	"swatch-inspector/internal/version"
	"swatch-inspector/ui/canvas"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/widget"
)

const (
	prefKeyLastDir       = "lastDirectory"
	prefKeyReferenceFile = "lastReferenceImage"
	prefKeyTargetFile    = "lastTargetImage"
)

const (
	tabReference = iota
	tabTarget
	tabMask
	tabResult
)

// MainWindow is the primary application window.
type MainWindow struct {
	fyne.Window
	app     fyne.App
	session *app.Session

	tabs      *container.AppTabs
	reference *canvas.ImageCanvas
	target    *canvas.ImageCanvas
	mask      *canvas.ImageCanvas
	result    *canvas.ImageCanvas
	patterns  *widget.Label
	statusBar *widget.Label

	fitToWindowItem *fyne.MenuItem
}

// New creates the main window.
func New(fyneApp fyne.App, session *app.Session) *MainWindow {
	win := fyneApp.NewWindow("Swatch Inspector")

	mw := &MainWindow{
		Window:  win,
		app:     fyneApp,
		session: session,
	}

	mw.setupUI()
	mw.setupMenus()
	mw.setupEventHandlers()
	mw.Resize(fyne.NewSize(1000, 750))

	return mw
}

func (mw *MainWindow) setupUI() {
	mw.reference = canvas.NewImageCanvas()
	mw.target = canvas.NewImageCanvas()
	mw.mask = canvas.NewImageCanvas()
	mw.result = canvas.NewImageCanvas()
	for _, c := range mw.canvases() {
		c.SetFitToWindow(true)
	}

	mw.reference.OnLeftClick(mw.onReferenceClick)

	mw.tabs = container.NewAppTabs(
		container.NewTabItem("Reference", mw.reference),
		container.NewTabItem("Target", mw.target),
		container.NewTabItem("Mask", mw.mask),
		container.NewTabItem("Result", mw.result),
	)

	mw.patterns = widget.NewLabel("No patterns")
	mw.statusBar = widget.NewLabel("Open a reference image to start")

	content := container.NewBorder(
		mw.createToolbar(),
		container.NewPadded(container.NewVBox(mw.patterns, mw.statusBar)),
		nil,
		nil,
		mw.tabs,
	)
	mw.SetContent(content)

	mw.Canvas().SetOnTypedKey(func(ev *fyne.KeyEvent) {
		switch ev.Name {
		case fyne.KeyQ, fyne.KeyReturn, fyne.KeyEnter:
			mw.onFinishAndDetect()
		case fyne.KeyBackspace:
			mw.onUndo()
		}
	})
}

func (mw *MainWindow) canvases() []*canvas.ImageCanvas {
	return []*canvas.ImageCanvas{mw.reference, mw.target, mw.mask, mw.result}
}

func (mw *MainWindow) currentCanvas() *canvas.ImageCanvas {
	return mw.canvases()[mw.tabs.SelectedIndex()]
}

func (mw *MainWindow) createToolbar() fyne.CanvasObject {
	return container.NewHBox(
		widget.NewButton("Reference...", mw.onOpenReference),
		widget.NewButton("Target...", mw.onOpenTarget),
		widget.NewSeparator(),
		widget.NewButton("Reset", mw.onReset),
		widget.NewButton("Undo", mw.onUndo),
		widget.NewButton("Detect (q)", mw.onFinishAndDetect),
		widget.NewSeparator(),
		widget.NewButton("Save Result...", func() { mw.onSave(false) }),
		widget.NewButton("Save Mask...", func() { mw.onSave(true) }),
		widget.NewSeparator(),
		widget.NewLabel("Zoom:"),
		widget.NewButton("-", mw.onZoomOut),
		widget.NewButton("+", mw.onZoomIn),
		widget.NewButton("Fit", mw.onToggleFitToWindow),
	)
}

func (mw *MainWindow) setupMenus() {
	fileMenu := fyne.NewMenu("File",
		fyne.NewMenuItem("Open Reference...", mw.onOpenReference),
		fyne.NewMenuItem("Open Target...", mw.onOpenTarget),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Save Result...", func() { mw.onSave(false) }),
		fyne.NewMenuItem("Save Mask...", func() { mw.onSave(true) }),
	)

	patternMenu := fyne.NewMenu("Patterns",
		fyne.NewMenuItem("Reset Selection", mw.onReset),
		fyne.NewMenuItem("Undo Last Pattern", mw.onUndo),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Finish and Detect", mw.onFinishAndDetect),
	)

	mw.fitToWindowItem = fyne.NewMenuItem("✓ Fit to Window", mw.onToggleFitToWindow)
	viewMenu := fyne.NewMenu("View",
		fyne.NewMenuItem("Zoom In", mw.onZoomIn),
		fyne.NewMenuItem("Zoom Out", mw.onZoomOut),
		mw.fitToWindowItem,
		fyne.NewMenuItem("Actual Size", mw.onActualSize),
	)

	helpMenu := fyne.NewMenu("Help",
		fyne.NewMenuItem("About", mw.onAbout),
	)

	mw.SetMainMenu(fyne.NewMainMenu(fileMenu, patternMenu, viewMenu, helpMenu))
}

func (mw *MainWindow) setupEventHandlers() {
	mw.session.On(app.EventReferenceLoaded, func(data interface{}) {
		if layer, ok := data.(*image.Layer); ok {
			mw.reference.SetImage(layer.Image)
			mw.SetTitle("Swatch Inspector - " + layer.Name())
			mw.tabs.SelectIndex(tabReference)
			mw.updateStatus(fmt.Sprintf("Reference %s (%dx%d): click swatches, press q when done",
				layer.Name(), layer.Width(), layer.Height()))
		}
	})

	mw.session.On(app.EventTargetLoaded, func(data interface{}) {
		if layer, ok := data.(*image.Layer); ok {
			mw.target.SetImage(layer.Image)
			mw.mask.SetImage(nil)
			mw.result.SetImage(nil)
			mw.updateStatus("Target " + layer.Name())
		}
	})

	mw.session.On(app.EventPatternsReset, func(interface{}) {
		mw.reference.SetMarkers(nil)
		mw.updatePatterns()
	})

	mw.session.On(app.EventPatternAdded, func(data interface{}) {
		if added, ok := data.(app.PatternAdded); ok {
			mw.reference.SetMarkers(mw.session.Markers())
			mw.updatePatterns()
			mw.updateStatus(fmt.Sprintf("Pattern %d: %s", added.Count, describeSample(mw.session.Params().Space, added.Sample)))
		}
	})

	mw.session.On(app.EventPatternRemoved, func(interface{}) {
		mw.reference.SetMarkers(mw.session.Markers())
		mw.updatePatterns()
	})

	mw.session.On(app.EventDetectionComplete, func(data interface{}) {
		result, ok := data.(*pattern.Result)
		if !ok {
			return
		}
		if img, err := result.Mask.ToImage(); err == nil {
			mw.mask.SetImage(img)
		}
		if img, err := result.Output.ToImage(); err == nil {
			mw.result.SetImage(img)
		}
		mw.tabs.SelectIndex(tabResult)

		summary := fmt.Sprintf("Detected %d pixels (%.2f%%) with %d band(s)",
			result.Matched, result.Coverage*100, result.Bands)
		if result.UsedFallback {
			summary += " - no patterns selected, default warm-tone band used"
		}
		mw.updateStatus(summary)
	})
}

func (mw *MainWindow) updateStatus(text string) {
	log.Print(text)
	mw.statusBar.SetText(text)
}

func (mw *MainWindow) updatePatterns() {
	bands := mw.session.Patterns()
	if len(bands) == 0 {
		mw.patterns.SetText("No patterns")
		return
	}
	parts := make([]string, len(bands))
	for i, b := range bands {
		parts[i] = b.String()
	}
	mw.patterns.SetText(fmt.Sprintf("%d pattern(s): %s", len(bands), strings.Join(parts, "  ")))
}

func describeSample(space pattern.WorkingSpace, s pattern.Sample) string {
	names := space.ChannelNames()
	return fmt.Sprintf("%s=%d %s=%d %s=%d", names[0], s[0], names[1], s[1], names[2], s[2])
}

// RestoreLastImages reloads the reference and target used last time.
func (mw *MainWindow) RestoreLastImages() {
	if path := mw.app.Preferences().String(prefKeyReferenceFile); path != "" {
		mw.LoadReference(path)
	}
	if path := mw.app.Preferences().String(prefKeyTargetFile); path != "" {
		mw.LoadTarget(path)
	}
}

// LoadReference loads a reference image and remembers it.
func (mw *MainWindow) LoadReference(path string) {
	if err := mw.session.LoadReference(path); err != nil {
		mw.showError(err)
		return
	}
	mw.app.Preferences().SetString(prefKeyReferenceFile, path)
	if mw.session.Target() == nil {
		mw.LoadTarget(path)
	}
}

// LoadTarget loads a target image and remembers it.
func (mw *MainWindow) LoadTarget(path string) {
	if err := mw.session.LoadTarget(path); err != nil {
		mw.showError(err)
		return
	}
	mw.app.Preferences().SetString(prefKeyTargetFile, path)
}

func (mw *MainWindow) showError(err error) {
	log.Printf("Error: %v", err)
	mw.statusBar.SetText(err.Error())
	dialog.ShowError(err, mw.Window)
}

func (mw *MainWindow) onReferenceClick(x, y int) {
	if _, err := mw.session.AddSampleAt(x, y); err != nil {
		if errors.Is(err, app.ErrNotSelecting) {
			mw.updateStatus("Selection finished - press Reset to pick new patterns")
			return
		}
		mw.updateStatus(err.Error())
	}
}

func (mw *MainWindow) onReset() {
	if err := mw.session.BeginSelection(); err != nil {
		mw.showError(err)
		return
	}
	mw.tabs.SelectIndex(tabReference)
	mw.updateStatus("Selection reset: click swatches on the reference")
}

func (mw *MainWindow) onUndo() {
	if mw.session.UndoLast() {
		mw.updateStatus(fmt.Sprintf("Removed last pattern (%d left)", len(mw.session.Patterns())))
	}
}

func (mw *MainWindow) onFinishAndDetect() {
	if mw.session.Phase() == app.PhaseSelecting {
		if n, err := mw.session.FinishSelection(); err == nil {
			log.Printf("Selection finished with %d pattern(s)", n)
		}
	}
	if _, err := mw.session.Detect(); err != nil {
		mw.showError(err)
	}
}

// getLastDir returns the last used directory as a ListableURI, or nil.
func (mw *MainWindow) getLastDir() fyne.ListableURI {
	path := mw.app.Preferences().String(prefKeyLastDir)
	if path == "" {
		return nil
	}
	listable, err := storage.ListerForURI(storage.NewFileURI(path))
	if err != nil {
		return nil
	}
	return listable
}

func (mw *MainWindow) saveLastDir(filePath string) {
	mw.app.Preferences().SetString(prefKeyLastDir, filepath.Dir(filePath))
}

func (mw *MainWindow) onOpenReference() {
	mw.openImage(mw.LoadReference)
}

func (mw *MainWindow) onOpenTarget() {
	mw.openImage(mw.LoadTarget)
}

func (mw *MainWindow) openImage(load func(path string)) {
	fd := dialog.NewFileOpen(func(reader fyne.URIReadCloser, err error) {
		if err != nil || reader == nil {
			return
		}
		reader.Close()
		path := reader.URI().Path()
		mw.saveLastDir(path)
		load(path)
	}, mw.Window)

	fd.SetFilter(storage.NewExtensionFileFilter(image.SupportedFormats()))
	if loc := mw.getLastDir(); loc != nil {
		fd.SetLocation(loc)
	}
	fd.Show()
}

func (mw *MainWindow) onSave(mask bool) {
	if mw.session.Result() == nil {
		mw.showError(app.ErrNoResult)
		return
	}
	fd := dialog.NewFileSave(func(writer fyne.URIWriteCloser, err error) {
		if err != nil || writer == nil {
			return
		}
		writer.Close()
		path := writer.URI().Path()
		if filepath.Ext(path) == "" {
			path += ".png"
		}
		mw.saveLastDir(path)

		if mask {
			err = mw.session.SaveMask(path)
		} else {
			err = mw.session.SaveResult(path)
		}
		if err != nil {
			// The result stays on screen; only the file is missing.
			mw.showError(err)
			return
		}
		mw.updateStatus("Saved " + path)
	}, mw.Window)

	if mask {
		fd.SetFileName("pattern_mask.png")
	} else {
		fd.SetFileName("result_pattern_detection.png")
	}
	if loc := mw.getLastDir(); loc != nil {
		fd.SetLocation(loc)
	}
	fd.Show()
}

func (mw *MainWindow) onZoomIn() {
	mw.disableFitToWindow()
	mw.currentCanvas().ZoomIn()
}

func (mw *MainWindow) onZoomOut() {
	mw.disableFitToWindow()
	mw.currentCanvas().ZoomOut()
}

func (mw *MainWindow) onActualSize() {
	mw.disableFitToWindow()
	mw.currentCanvas().SetZoom(1.0)
}

func (mw *MainWindow) onToggleFitToWindow() {
	enabled := !mw.reference.FitsToWindow()
	for _, c := range mw.canvases() {
		c.SetFitToWindow(enabled)
	}
	if enabled {
		mw.fitToWindowItem.Label = "✓ Fit to Window"
	} else {
		mw.fitToWindowItem.Label = "  Fit to Window"
	}
}

func (mw *MainWindow) disableFitToWindow() {
	if mw.reference.FitsToWindow() {
		for _, c := range mw.canvases() {
			c.SetFitToWindow(false)
		}
		mw.fitToWindowItem.Label = "  Fit to Window"
	}
}

func (mw *MainWindow) onAbout() {
	dialog.ShowInformation("About Swatch Inspector",
		fmt.Sprintf("Swatch Inspector v%s\n\n"+
			"Pick colour swatches on a reference image and\n"+
			"highlight matching regions on a target image.\n\n"+
			"Built: %s\n"+
			"Commit: %s",
			version.Version, version.BuildTime, version.GitCommit),
		mw.Window)
}
