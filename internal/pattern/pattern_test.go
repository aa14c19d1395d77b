package pattern

import (
	"image/color"
	"testing"

	"gocv.io/x/gocv"
)

// solid returns a w x h BGR image filled with one colour given as RGB.
func solid(w, h int, r, g, b uint8) gocv.Mat {
	return gocv.NewMatWithSizeFromScalar(gocv.NewScalar(float64(b), float64(g), float64(r), 0), h, w, gocv.MatTypeCV8UC3)
}

// paint fills a rectangle of a BGR image with an RGB colour.
func paint(img gocv.Mat, x0, y0, x1, y1 int, r, g, b uint8) {
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			img.SetUCharAt(y, x*3+0, b)
			img.SetUCharAt(y, x*3+1, g)
			img.SetUCharAt(y, x*3+2, r)
		}
	}
}

func sameMask(a, b gocv.Mat) bool {
	diff := gocv.NewMat()
	defer diff.Close()
	gocv.BitwiseXor(a, b, &diff)
	return gocv.CountNonZero(diff) == 0
}

func samePixel(a, b gocv.Mat, x, y int) bool {
	va, vb := a.GetVecbAt(y, x), b.GetVecbAt(y, x)
	return va[0] == vb[0] && va[1] == vb[1] && va[2] == vb[2]
}

func mustPanic(t *testing.T, name string, fn func()) {
	t.Helper()
	defer func() {
		if recover() == nil {
			t.Fatalf("%s: expected panic", name)
		}
	}()
	fn()
}

func TestParseWorkingSpace(t *testing.T) {
	tests := []struct {
		in      string
		want    WorkingSpace
		wantErr bool
	}{
		{"hsv", SpaceHSV, false},
		{"RGB", SpaceRGB, false},
		{" Hsv ", SpaceHSV, false},
		{"lab", SpaceHSV, true},
	}
	for _, tt := range tests {
		got, err := ParseWorkingSpace(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseWorkingSpace(%q) err=%v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseWorkingSpace(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestBuildBand_RGB(t *testing.T) {
	b := BuildBand(Sample{255, 100, 0}, Uniform(30), SpaceRGB)
	want := Band{Lower: [3]int{225, 70, 0}, Upper: [3]int{255, 130, 30}}
	if b != want {
		t.Fatalf("got %v, want %v", b, want)
	}
	if b.String() != "[225,70,0]-[255,130,30]" {
		t.Errorf("unexpected String %q", b.String())
	}
}

func TestBuildBand_HSVClampsHue(t *testing.T) {
	b := BuildBand(Sample{175, 240, 10}, DefaultTolerances(SpaceHSV), SpaceHSV)
	want := Band{Lower: [3]int{165, 190, 0}, Upper: [3]int{179, 255, 60}}
	if b != want {
		t.Fatalf("got %v, want %v", b, want)
	}
}

func TestBuildBand_ContainsSample(t *testing.T) {
	for _, space := range []WorkingSpace{SpaceHSV, SpaceRGB} {
		limits := ChannelMax(space)
		for _, s := range []Sample{{0, 0, 0}, {limits[0], limits[1], limits[2]}, {90, 128, 7}} {
			for _, tol := range []Tolerances{Uniform(0), DefaultTolerances(space), {200, 300, 1}} {
				b := BuildBand(s, tol, space)
				if !b.Contains(s) {
					t.Errorf("%v band %v does not contain its sample %v", space, b, s)
				}
				for c := 0; c < 3; c++ {
					if b.Lower[c] < 0 || b.Upper[c] > limits[c] || b.Lower[c] > b.Upper[c] {
						t.Errorf("%v band %v out of range on channel %d", space, b, c)
					}
				}
			}
		}
	}
}

func TestBuildBand_ZeroTolerance(t *testing.T) {
	b := BuildBand(Sample{10, 20, 30}, Uniform(0), SpaceRGB)
	if b.Lower != b.Upper || b.Lower != [3]int{10, 20, 30} {
		t.Fatalf("expected single-point band, got %v", b)
	}
}

func TestBand_Panics(t *testing.T) {
	mustPanic(t, "inverted", func() { NewBand([3]int{5, 0, 0}, [3]int{4, 0, 0}) })
	mustPanic(t, "negative tolerance", func() { BuildBand(Sample{}, Tolerances{-1, 0, 0}, SpaceRGB) })
}

func TestDefaultTolerances(t *testing.T) {
	if got := DefaultTolerances(SpaceHSV); got != (Tolerances{10, 50, 50}) {
		t.Errorf("HSV defaults %v", got)
	}
	if got := DefaultTolerances(SpaceRGB); got != Uniform(30) {
		t.Errorf("RGB defaults %v", got)
	}
}

func TestSampleAt_UniformRegion(t *testing.T) {
	img := solid(20, 20, 255, 100, 0)
	defer img.Close()
	work := ToWorkingSpace(img, SpaceRGB)
	defer work.Close()

	if got := SampleAt(work, 10, 10); got != (Sample{255, 100, 0}) {
		t.Fatalf("got %v, want [255 100 0]", got)
	}
}

func TestSampleAt_CornerClampsAndTruncates(t *testing.T) {
	img := solid(10, 10, 0, 0, 0)
	defer img.Close()
	// The clamped window at (0,0) is 3x3; one pixel of 10 gives 10/9.
	img.SetUCharAt(1, 1*3+0, 10)
	img.SetUCharAt(2, 2*3+1, 17)

	got := SampleAt(img, 0, 0)
	if got != (Sample{1, 1, 0}) {
		t.Fatalf("got %v, want [1 1 0]", got)
	}
	if r := SampleRect(10, 10, 0, 0, SampleRadius); r.Dx() != 3 || r.Dy() != 3 {
		t.Errorf("expected 3x3 window, got %v", r)
	}
}

func TestSampleAt_OutOfBoundsPanics(t *testing.T) {
	img := solid(5, 5, 0, 0, 0)
	defer img.Close()
	mustPanic(t, "x=5", func() { SampleAt(img, 5, 0) })
	mustPanic(t, "y=-1", func() { SampleAt(img, 0, -1) })
}

func TestSampleFromColor_MatchesOpenCV(t *testing.T) {
	colors := []color.RGBA{
		{255, 100, 0, 255},
		{12, 200, 90, 255},
		{40, 40, 200, 255},
		{255, 0, 10, 255},
		{128, 128, 128, 255},
	}
	for _, c := range colors {
		img := solid(1, 1, c.R, c.G, c.B)
		hsv := ToWorkingSpace(img, SpaceHSV)
		v := hsv.GetVecbAt(0, 0)
		img.Close()
		hsv.Close()

		got := SampleFromColor(c, SpaceHSV)
		for ch := 0; ch < 3; ch++ {
			d := got[ch] - int(v[ch])
			if d < -1 || d > 1 {
				t.Errorf("%v channel %d: got %d, OpenCV %d", c, ch, got[ch], v[ch])
			}
		}
	}

	if got := SampleFromColor(color.RGBA{1, 2, 3, 255}, SpaceRGB); got != (Sample{1, 2, 3}) {
		t.Errorf("RGB sample %v", got)
	}
}

func TestStore(t *testing.T) {
	s := NewStore()
	if !s.IsEmpty() {
		t.Fatal("new store not empty")
	}
	a := NewBand([3]int{0, 0, 0}, [3]int{1, 1, 1})
	b := NewBand([3]int{2, 2, 2}, [3]int{3, 3, 3})
	s.Add(a)
	s.Add(b)
	s.Add(a)
	if s.Len() != 3 {
		t.Fatalf("expected duplicates to be kept, len=%d", s.Len())
	}

	all := s.All()
	all[0] = b
	if s.All()[0] != a {
		t.Error("All returned internal slice")
	}

	if !s.RemoveLast() || s.Len() != 2 {
		t.Errorf("RemoveLast failed, len=%d", s.Len())
	}
	s.Reset()
	if !s.IsEmpty() || s.RemoveLast() {
		t.Error("store not empty after Reset")
	}
}

func TestMatchAny_OrderAndDuplicates(t *testing.T) {
	img := solid(30, 30, 0, 0, 0)
	defer img.Close()
	paint(img, 0, 0, 10, 10, 255, 0, 0)
	paint(img, 10, 10, 20, 20, 0, 255, 0)
	work := ToWorkingSpace(img, SpaceRGB)
	defer work.Close()

	red := BuildBand(Sample{255, 0, 0}, Uniform(30), SpaceRGB)
	green := BuildBand(Sample{0, 255, 0}, Uniform(30), SpaceRGB)

	ab := MatchAny(work, []Band{red, green})
	defer ab.Close()
	ba := MatchAny(work, []Band{green, red, green})
	defer ba.Close()

	if !sameMask(ab, ba) {
		t.Fatal("union depends on band order")
	}
	if n := gocv.CountNonZero(ab); n != 200 {
		t.Fatalf("expected 200 matched pixels, got %d", n)
	}
}

func TestCleanup_RemovesSpecksAndIsIdempotent(t *testing.T) {
	mask := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), 40, 40, gocv.MatTypeCV8U)
	defer mask.Close()
	for y := 10; y < 20; y++ {
		for x := 10; x < 20; x++ {
			mask.SetUCharAt(y, x, 255)
		}
	}
	mask.SetUCharAt(30, 30, 255) // isolated speck
	mask.SetUCharAt(15, 15, 0)   // pinhole

	once := Cleanup(mask)
	defer once.Close()
	if once.GetUCharAt(30, 30) != 0 {
		t.Error("speck survived cleanup")
	}
	if once.GetUCharAt(15, 15) != 255 {
		t.Error("pinhole not filled")
	}
	if n := gocv.CountNonZero(once); n != 100 {
		t.Errorf("expected the 10x10 block only, got %d pixels", n)
	}

	twice := Cleanup(once)
	defer twice.Close()
	if !sameMask(once, twice) {
		t.Error("cleanup is not idempotent")
	}
}

func TestDetect_SelectedBand(t *testing.T) {
	img := solid(40, 40, 0, 0, 0)
	defer img.Close()
	paint(img, 10, 10, 20, 20, 255, 100, 0)
	paint(img, 30, 30, 31, 31, 255, 100, 0)

	band := BuildBand(Sample{255, 100, 0}, Uniform(30), SpaceRGB)
	mask := Detect(img, []Band{band}, SpaceRGB)
	defer mask.Close()

	if mask.Rows() != 40 || mask.Cols() != 40 || mask.Channels() != 1 {
		t.Fatalf("unexpected mask shape %dx%dx%d", mask.Cols(), mask.Rows(), mask.Channels())
	}
	if mask.GetUCharAt(15, 15) != 255 || mask.GetUCharAt(5, 5) != 0 {
		t.Error("block not isolated in mask")
	}
	if mask.GetUCharAt(30, 30) != 0 {
		t.Error("single-pixel match survived")
	}
}

func TestDetect_Fallback(t *testing.T) {
	img := solid(40, 40, 40, 40, 200)
	defer img.Close()
	paint(img, 10, 10, 20, 20, 255, 100, 0)

	mask, used := detect(img, nil, SpaceRGB, DefaultKernelSize, true)
	defer mask.Close()
	if !used {
		t.Fatal("fallback not used for empty band set")
	}
	if n := gocv.CountNonZero(mask); n != 100 {
		t.Fatalf("expected the orange block only, got %d pixels", n)
	}

	blank, used := detect(img, nil, SpaceRGB, DefaultKernelSize, false)
	defer blank.Close()
	if used || gocv.CountNonZero(blank) != 0 {
		t.Fatal("disabled fallback should yield a blank mask")
	}

	// Any selection disables the fallback, even one that matches nothing.
	none := BuildBand(Sample{0, 255, 0}, Uniform(0), SpaceRGB)
	sel, used := detect(img, []Band{none}, SpaceRGB, DefaultKernelSize, true)
	defer sel.Close()
	if used || gocv.CountNonZero(sel) != 0 {
		t.Fatal("fallback used despite a selection")
	}
}

func TestComposite(t *testing.T) {
	img := solid(40, 40, 10, 20, 30)
	defer img.Close()
	paint(img, 10, 10, 20, 20, 255, 100, 0)
	before := img.Clone()
	defer before.Close()

	band := BuildBand(Sample{255, 100, 0}, Uniform(30), SpaceRGB)
	mask := Detect(img, []Band{band}, SpaceRGB)
	defer mask.Close()

	out := Composite(img, mask, color.RGBA{0, 0, 255, 255})
	defer out.Close()

	if v := out.GetVecbAt(15, 15); v[0] != 255 || v[1] != 0 || v[2] != 0 {
		t.Errorf("masked pixel %v, want BGR [255 0 0]", v)
	}
	if v := out.GetVecbAt(5, 5); v[0] != 30 || v[1] != 20 || v[2] != 10 {
		t.Errorf("unmasked pixel changed to %v", v)
	}
	for y := 0; y < 40; y++ {
		for x := 0; x < 40; x++ {
			if !samePixel(img, before, x, y) {
				t.Fatalf("source modified at %d,%d", x, y)
			}
		}
	}
}

func TestComposite_EmptyMaskIsIdentity(t *testing.T) {
	img := solid(8, 8, 1, 2, 3)
	defer img.Close()
	mask := blankMask(img)
	defer mask.Close()

	out := Composite(img, mask, color.RGBA{0, 0, 255, 255})
	defer out.Close()
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			if !samePixel(out, img, x, y) {
				t.Fatalf("pixel %d,%d differs", x, y)
			}
		}
	}

	small := gocv.NewMatWithSize(4, 4, gocv.MatTypeCV8U)
	defer small.Close()
	mustPanic(t, "size mismatch", func() { Composite(img, small, color.RGBA{}) })
}

func TestDetector_RunIsRepeatable(t *testing.T) {
	ref := solid(30, 30, 255, 100, 0)
	defer ref.Close()
	target := solid(40, 40, 0, 0, 0)
	defer target.Close()
	paint(target, 10, 10, 20, 20, 255, 100, 0)

	d := NewDetector(DefaultParams(SpaceRGB))
	work := d.Prepare(ref)
	defer work.Close()

	s := d.Sample(work, 15, 15)
	if s != (Sample{255, 100, 0}) {
		t.Fatalf("sample %v", s)
	}
	d.AddSample(s)

	first := d.Run(target)
	defer first.Close()
	second := d.Run(target)
	defer second.Close()

	if first.UsedFallback || first.Bands != 1 {
		t.Errorf("unexpected result %+v", first)
	}
	if first.Matched != 100 || second.Matched != first.Matched {
		t.Errorf("matched %d then %d, want 100", first.Matched, second.Matched)
	}
	if want := 100.0 / 1600.0; first.Coverage != want {
		t.Errorf("coverage %v, want %v", first.Coverage, want)
	}
	if !sameMask(first.Mask, second.Mask) {
		t.Error("repeated run produced a different mask")
	}
}

func TestDetector_AddColor(t *testing.T) {
	d := NewDetector(DefaultParams(SpaceRGB).WithTolerances(Uniform(5)))
	s, b := d.AddColor(color.RGBA{100, 150, 200, 255})
	if s != (Sample{100, 150, 200}) {
		t.Errorf("sample %v", s)
	}
	if b.Lower != [3]int{95, 145, 195} || d.Store().Len() != 1 {
		t.Errorf("band %v, store len %d", b, d.Store().Len())
	}
}

func TestParams_WithSpaceResetsTolerances(t *testing.T) {
	p := DefaultParams(SpaceRGB).WithTolerances(Uniform(3)).WithSpace(SpaceHSV)
	if p.Tolerances != DefaultTolerances(SpaceHSV) {
		t.Errorf("tolerances %v", p.Tolerances)
	}
}

func TestToDeviceOrder_RoundTrip(t *testing.T) {
	// Hues on whole 2-degree steps, so 8-bit HSV only rounds saturation.
	colors := []color.RGBA{
		{255, 0, 0, 255},
		{0, 255, 0, 255},
		{0, 0, 255, 255},
		{255, 255, 0, 255},
		{200, 100, 100, 255},
		{128, 128, 128, 255},
	}
	img := solid(len(colors), 1, 0, 0, 0)
	defer img.Close()
	for i, c := range colors {
		paint(img, i, 0, i+1, 1, c.R, c.G, c.B)
	}

	rgb := ToWorkingSpace(img, SpaceRGB)
	defer rgb.Close()
	if v := rgb.GetVecbAt(0, 3); v[0] != 255 || v[1] != 255 || v[2] != 0 {
		t.Errorf("RGB working pixel %v", v)
	}
	back := ToDeviceOrder(rgb, SpaceRGB)
	defer back.Close()
	for x := range colors {
		if !samePixel(img, back, x, 0) {
			t.Errorf("RGB round trip changed pixel %d: %v -> %v", x, img.GetVecbAt(0, x), back.GetVecbAt(0, x))
		}
	}

	hsv := ToWorkingSpace(img, SpaceHSV)
	defer hsv.Close()
	hsvBack := ToDeviceOrder(hsv, SpaceHSV)
	defer hsvBack.Close()
	for x := range colors {
		want, got := img.GetVecbAt(0, x), hsvBack.GetVecbAt(0, x)
		for ch := 0; ch < 3; ch++ {
			if d := int(got[ch]) - int(want[ch]); d < -1 || d > 1 {
				t.Errorf("HSV round trip pixel %d channel %d: %d -> %d", x, ch, want[ch], got[ch])
			}
		}
	}
}

func TestDetect_SmallBlockWithNoise(t *testing.T) {
	img := solid(10, 10, 0, 0, 0)
	defer img.Close()
	paint(img, 3, 3, 7, 7, 255, 100, 0)
	paint(img, 8, 1, 9, 2, 255, 100, 0)

	band := BuildBand(Sample{255, 100, 0}, Uniform(30), SpaceRGB)
	mask := Detect(img, []Band{band}, SpaceRGB)
	defer mask.Close()

	for y := 0; y < 10; y++ {
		for x := 0; x < 10; x++ {
			want := uint8(0)
			if x >= 3 && x < 7 && y >= 3 && y < 7 {
				want = 255
			}
			if got := mask.GetUCharAt(y, x); got != want {
				t.Errorf("mask(%d,%d) = %d, want %d", x, y, got, want)
			}
		}
	}
	if n := gocv.CountNonZero(mask); n != 16 {
		t.Errorf("expected 16 pixels, got %d", n)
	}
}

func TestDetectComposite_NoMatchLeavesImageUnchanged(t *testing.T) {
	img := solid(10, 10, 90, 90, 90)
	defer img.Close()

	band := BuildBand(Sample{255, 100, 0}, Uniform(30), SpaceRGB)
	mask := Detect(img, []Band{band}, SpaceRGB)
	defer mask.Close()
	if n := gocv.CountNonZero(mask); n != 0 {
		t.Fatalf("expected empty mask, got %d pixels", n)
	}

	out := Composite(img, mask, color.RGBA{0, 0, 255, 255})
	defer out.Close()
	for y := 0; y < 10; y++ {
		for x := 0; x < 10; x++ {
			if !samePixel(out, img, x, y) {
				t.Fatalf("pixel %d,%d differs", x, y)
			}
		}
	}
}
