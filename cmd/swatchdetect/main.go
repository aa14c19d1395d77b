// Command swatchdetect selects colour patterns from a reference image without
// a GUI and highlights them on a target image.
//
// Patterns come from sample points (-points "x,y;x,y") averaged over a 5x5
// window of the reference, and/or explicit colours (-colors "#ff6400").
// Without any pattern a default warm-tone band is used.
package main

import (
	"errors"
	"flag"
	"fmt"
	"image"
	"image/color"
	"os"
	"strconv"
	"strings"

	"swatch-inspector/internal/app"
	"swatch-inspector/internal/config"
	"swatch-inspector/pkg/colorutil"

	"gocv.io/x/gocv"
)

var verbose bool

func main() {
	configPath := flag.String("config", "", "JSON configuration file (default: user config dir)")
	reference := flag.String("reference", "", "Reference image patterns are sampled from")
	target := flag.String("target", "", "Target image to inspect (default: reference)")
	points := flag.String("points", "", "Sample points on the reference, \"x,y;x,y\"")
	colors := flag.String("colors", "", "Explicit pattern colours, \"#rrggbb,#rrggbb\"")
	space := flag.String("space", "", "Working space: hsv or rgb")
	tol := flag.String("tol", "", "Tolerances, one value or \"h,s,v\" / \"r,g,b\"")
	highlight := flag.String("highlight", "", "Highlight colour (#rrggbb)")
	output := flag.String("output", "", "Write the highlighted result here")
	maskOut := flag.String("mask", "", "Write the binary mask here")
	show := flag.Bool("show", false, "Display original, mask and result windows")
	flag.BoolVar(&verbose, "verbose", false, "Print debug information")
	flag.Parse()

	if *reference == "" {
		fmt.Fprintf(os.Stderr, "Usage: %s -reference <image> [options]\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(1)
	}
	if *target == "" {
		*target = *reference
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "WARNING: %v (using defaults)\n", err)
	}
	if *space != "" {
		cfg.WorkingSpace = *space
		if *tol == "" {
			cfg.Tolerances = nil
		}
	}
	if *tol != "" {
		t, err := parseTolerances(*tol)
		if err != nil {
			fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
			os.Exit(2)
		}
		cfg.Tolerances = &t
	}
	if *highlight != "" {
		cfg.Highlight = *highlight
	}
	if *output == "" {
		*output = cfg.OutputPath
	}
	if *maskOut == "" {
		*maskOut = cfg.MaskPath
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(2)
	}
	params, err := cfg.Params()
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(2)
	}

	pts, err := parsePoints(*points)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(2)
	}
	swatches, err := parseColors(*colors)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(2)
	}

	session := app.NewSession(params)
	defer session.Close()

	if err := run(session, *reference, *target, pts, swatches); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(1)
	}

	// Save failures are reported but the run still completes.
	failed := false
	if *output != "" {
		if err := session.SaveResult(*output); err != nil {
			fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
			failed = true
		} else {
			fmt.Printf("Result written to %s\n", *output)
		}
	}
	if *maskOut != "" {
		if err := session.SaveMask(*maskOut); err != nil {
			fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
			failed = true
		} else {
			fmt.Printf("Mask written to %s\n", *maskOut)
		}
	}

	if *show {
		showWindows(session)
	}
	if failed {
		os.Exit(1)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		path = config.DefaultPath()
	}
	cfg, err := config.Load(path)
	if verbose {
		fmt.Fprintf(os.Stderr, "config= %s %+v\n", path, *cfg)
	}
	return cfg, err
}

// run performs the selection phase on the reference and one detection on the
// target.
func run(session *app.Session, reference, target string, pts []image.Point, swatches []colorSwatch) error {
	params := session.Params()
	names := params.Space.ChannelNames()

	fmt.Println("Step 1: pattern selection")
	if err := session.LoadReference(reference); err != nil {
		return err
	}
	ref := session.Reference()
	fmt.Printf("Reference %s: %dx%d\n", ref.Name(), ref.Width(), ref.Height())

	for _, p := range pts {
		added, err := session.AddSampleAt(p.X, p.Y)
		if errors.Is(err, app.ErrOutOfBounds) {
			fmt.Fprintf(os.Stderr, "WARNING: skipping point %d,%d: outside reference\n", p.X, p.Y)
			continue
		}
		if err != nil {
			return err
		}
		fmt.Printf("  (%d,%d) %s=%d %s=%d %s=%d -> %s\n", p.X, p.Y,
			names[0], added.Sample[0], names[1], added.Sample[1], names[2], added.Sample[2], added.Band)
	}
	for _, sw := range swatches {
		added, err := session.AddColor(sw.color)
		if err != nil {
			return err
		}
		fmt.Printf("  %s %s=%d %s=%d %s=%d -> %s\n", sw.text,
			names[0], added.Sample[0], names[1], added.Sample[1], names[2], added.Sample[2], added.Band)
	}
	count, err := session.FinishSelection()
	if err != nil {
		return err
	}
	fmt.Printf("Total patterns selected: %d\n", count)

	fmt.Println("\nStep 2: pattern detection")
	if err := session.LoadTarget(target); err != nil {
		return err
	}
	result, err := session.Detect()
	if err != nil {
		return err
	}
	if result.UsedFallback {
		fmt.Println("No patterns selected, using the default warm-tone band")
	}
	if verbose {
		fmt.Fprintf(os.Stderr, "space= %s tolerances= %v kernel= %d fallback= %v\n",
			params.Space, params.Tolerances, params.KernelSize, result.UsedFallback)
	}
	fmt.Printf("Matched %d pixels (%.2f%%) using %d band(s)\n",
		result.Matched, result.Coverage*100, result.Bands)
	return nil
}

// parsePoints parses "x,y;x,y". Whitespace is ignored.
func parsePoints(s string) ([]image.Point, error) {
	var pts []image.Point
	for _, part := range strings.Split(s, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		xy := strings.Split(part, ",")
		if len(xy) != 2 {
			return nil, fmt.Errorf("invalid point %q: want x,y", part)
		}
		x, err := strconv.Atoi(strings.TrimSpace(xy[0]))
		if err != nil {
			return nil, fmt.Errorf("invalid point %q: %w", part, err)
		}
		y, err := strconv.Atoi(strings.TrimSpace(xy[1]))
		if err != nil {
			return nil, fmt.Errorf("invalid point %q: %w", part, err)
		}
		pts = append(pts, image.Pt(x, y))
	}
	return pts, nil
}

type colorSwatch struct {
	text  string
	color color.RGBA
}

// parseColors parses a comma-separated list of hex colours.
func parseColors(s string) ([]colorSwatch, error) {
	var out []colorSwatch
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		c, err := colorutil.ParseHex(part)
		if err != nil {
			return nil, err
		}
		out = append(out, colorSwatch{text: part, color: c})
	}
	return out, nil
}

// parseTolerances accepts one value for every channel or three
// comma-separated values.
func parseTolerances(s string) ([3]int, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 1 && len(parts) != 3 {
		return [3]int{}, fmt.Errorf("invalid tolerances %q: want t or a,b,c", s)
	}
	var t [3]int
	for i := range t {
		p := parts[0]
		if len(parts) == 3 {
			p = parts[i]
		}
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || v < 0 {
			return [3]int{}, fmt.Errorf("invalid tolerance %q", p)
		}
		t[i] = v
	}
	return t, nil
}

// showWindows displays the target, mask and result until a key is pressed
// or a window is closed.
func showWindows(session *app.Session) {
	result := session.Result()
	target := session.Target()
	if result == nil || target == nil {
		return
	}

	views := []struct {
		title string
		mat   gocv.Mat
	}{
		{"Original Image", target.Mat},
		{"Pattern Mask", result.Mask},
		{"Result", result.Output},
	}

	windows := make([]*gocv.Window, len(views))
	for i, v := range views {
		w := gocv.NewWindow(v.title)
		w.ResizeWindow(800, 600)
		w.IMShow(v.mat)
		windows[i] = w
	}
	defer func() {
		for _, w := range windows {
			w.Close()
		}
	}()

	for {
		if key := windows[0].WaitKey(100); key != -1 {
			return
		}
		for _, w := range windows {
			if !w.IsOpen() {
				return
			}
		}
	}
}
