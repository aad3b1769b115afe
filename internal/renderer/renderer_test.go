package renderer

import (
	"errors"
	"image"
	"image/color"
	"strings"
	"testing"

	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"

	"github.com/ivlev/joke2video/internal/script"
)

type lookup map[int]image.Image

func (l lookup) Image(i int) (image.Image, bool) {
	img, ok := l[i]
	return img, ok
}

func testScenes() []script.Scene {
	return []script.Scene{
		{Setup: "Why did the scarecrow win an award?", Punchline: "He was outstanding in his field.", Duration: 5},
		{Setup: "I used to hate facial hair.", Punchline: "But then it grew on me.", Duration: 5},
		{Setup: "What do you call a fake noodle?", Punchline: "An impasta!", Duration: 7},
	}
}

func solid(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func sameRGBA(a, b color.Color) bool {
	r1, g1, b1, a1 := a.RGBA()
	r2, g2, b2, a2 := b.RGBA()
	return r1 == r2 && g1 == g2 && b1 == b2 && a1 == a2
}

func newRenderer(t *testing.T) *Renderer {
	t.Helper()
	r, err := New()
	if err != nil {
		t.Fatalf("New renderer: %v", err)
	}
	return r
}

func TestWrapText(t *testing.T) {
	fonts, err := LoadFonts()
	if err != nil {
		t.Fatal(err)
	}
	face, err := fonts.Face(true, setupSize)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name     string
		text     string
		maxWidth int
	}{
		{"short", "Knock knock", 492},
		{"long", "Why don't skeletons fight each other? They don't have the guts, and besides they are far too busy with their bones.", 492},
		{"narrow", "I only know twenty five letters of the alphabet, I don't know y", 160},
		{"extra spaces", "  a   lot    of   space   between  words ", 120},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lines := WrapText(face, tt.text, tt.maxWidth)
			t.Logf("%d lines: %q", len(lines), lines)

			for _, line := range lines {
				if w := font.MeasureString(face, line); w > fixed.I(tt.maxWidth) {
					t.Errorf("line %q is %d px wide, max %d", line, w.Ceil(), tt.maxWidth)
				}
			}

			want := strings.Join(strings.Fields(tt.text), " ")
			if got := strings.Join(lines, " "); got != want {
				t.Errorf("text not reproduced:\n got %q\nwant %q", got, want)
			}
		})
	}

	if lines := WrapText(face, "   ", 100); lines != nil {
		t.Errorf("blank text should give no lines, got %q", lines)
	}
}

func TestLayout(t *testing.T) {
	l := NewLayout(540, 960)

	if l.ImageRegion.Dy() != 576 {
		t.Errorf("image region height = %d, want 576", l.ImageRegion.Dy())
	}
	if l.DotY != 592 || l.TextY != 612 || l.SetupTop != 628 {
		t.Errorf("unexpected vertical layout: dot %d text %d setup %d", l.DotY, l.TextY, l.SetupTop)
	}
	if l.PunchlineTop != 612+348/2+10 {
		t.Errorf("punchline top = %d", l.PunchlineTop)
	}
	if l.MaxTextWidth != 492 {
		t.Errorf("max text width = %d, want 492", l.MaxTextWidth)
	}

	xs := l.DotCenters(3)
	if xs[0] != 246 || xs[1] != 270 || xs[2] != 294 {
		t.Errorf("3 dots should be centered on 270: %v", xs)
	}
	xs = l.DotCenters(4)
	if xs[0]+xs[3] != 540 {
		t.Errorf("4 dots should be symmetric around the center: %v", xs)
	}
}

func TestCoverRect(t *testing.T) {
	l := NewLayout(540, 960) // region 540x576

	tests := []struct {
		name   string
		iw, ih int
		want   image.Rectangle
	}{
		{"square", 1024, 1024, image.Rect(-18, 0, 558, 576)},
		{"wide", 200, 100, image.Rect(-306, 0, 846, 576)},
		{"tall", 100, 400, image.Rect(0, -792, 540, 1368)},
		{"exact", 540, 576, image.Rect(0, 0, 540, 576)},
		{"empty", 0, 10, image.Rectangle{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := l.CoverRect(tt.iw, tt.ih)
			if got != tt.want {
				t.Errorf("CoverRect(%d, %d) = %v, want %v", tt.iw, tt.ih, got, tt.want)
			}
			if tt.iw > 0 && !l.ImageRegion.In(got) {
				t.Errorf("%v does not cover the region", got)
			}
		})
	}
}

func TestRenderPlaceholderForUnloadedImage(t *testing.T) {
	r := newRenderer(t)
	scenes := testScenes()
	images := lookup{
		0: solid(64, 64, color.RGBA{0xff, 0, 0, 0xff}),
		2: solid(64, 64, color.RGBA{0, 0, 0xff, 0xff}),
	}

	surface := image.NewRGBA(image.Rect(0, 0, 540, 960))
	if err := r.Render(surface, scenes, images, 1, false); err != nil {
		t.Fatalf("Render: %v", err)
	}

	for _, p := range []image.Point{{5, 5}, {534, 5}, {5, 570}, {270, 100}} {
		if got := surface.At(p.X, p.Y); !sameRGBA(got, ColorPlaceholder) {
			t.Errorf("pixel %v = %v, want placeholder %v", p, got, ColorPlaceholder)
		}
	}

	// "Loading image..." is drawn in the middle of the panel
	muted := 0
	for y := 276; y < 300; y++ {
		for x := 170; x < 370; x++ {
			if !sameRGBA(surface.At(x, y), ColorPlaceholder) {
				muted++
			}
		}
	}
	if muted == 0 {
		t.Error("placeholder text is missing")
	}

	// Loaded scene draws the image instead
	if err := r.Render(surface, scenes, images, 0, false); err != nil {
		t.Fatal(err)
	}
	if c := surface.RGBAAt(270, 100); c.R < 0xf0 || c.G > 0x10 {
		t.Errorf("loaded image not drawn, pixel = %v", c)
	}
	if c := surface.RGBAAt(270, 700); c.R > 0x40 {
		t.Errorf("image leaked below its region, pixel = %v", c)
	}
}

func TestRenderDots(t *testing.T) {
	r := newRenderer(t)
	scenes := testScenes()
	surface := image.NewRGBA(image.Rect(0, 0, 540, 960))

	l := NewLayout(540, 960)
	xs := l.DotCenters(len(scenes))

	for active := range scenes {
		if err := r.Render(surface, scenes, nil, active, false); err != nil {
			t.Fatal(err)
		}
		for i, x := range xs {
			c := color.RGBAModel.Convert(surface.At(int(x), l.DotY)).(color.RGBA)
			// Под затемнением активная точка остаётся "теплее" неактивных
			warm := c.R > c.B+10
			if (i == active) != warm {
				t.Errorf("scene %d: dot %d color %v, active=%v", active, i, c, i == active)
			}
		}
	}
}

func countColor(img *image.RGBA, rect image.Rectangle, c color.Color) int {
	n := 0
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		for x := rect.Min.X; x < rect.Max.X; x++ {
			if sameRGBA(img.At(x, y), c) {
				n++
			}
		}
	}
	return n
}

func TestRenderPunchlineVisibility(t *testing.T) {
	r := newRenderer(t)
	scenes := testScenes()
	surface := image.NewRGBA(image.Rect(0, 0, 540, 960))
	text := NewLayout(540, 960).Overlay

	if err := r.Render(surface, scenes, nil, 2, false); err != nil {
		t.Fatal(err)
	}
	if n := countColor(surface, text, ColorPunchline); n != 0 {
		t.Errorf("punchline hidden but %d punchline pixels drawn", n)
	}
	if n := countColor(surface, text, ColorSetup); n == 0 {
		t.Error("setup text is missing")
	}

	if err := r.Render(surface, scenes, nil, 2, true); err != nil {
		t.Fatal(err)
	}
	if n := countColor(surface, text, ColorPunchline); n == 0 {
		t.Error("punchline shown but no punchline pixels drawn")
	}
}

func TestRenderRejectsBadIndex(t *testing.T) {
	r := newRenderer(t)
	surface := image.NewRGBA(image.Rect(0, 0, 54, 96))
	surface.Set(1, 1, color.White)

	for _, idx := range []int{-1, 3} {
		err := r.Render(surface, testScenes(), nil, idx, false)
		if !errors.Is(err, ErrSceneIndex) {
			t.Errorf("index %d: expected ErrSceneIndex, got %v", idx, err)
		}
	}
	if !sameRGBA(surface.At(1, 1), color.White) {
		t.Error("surface was touched on a rejected render")
	}
	if err := r.Render(nil, testScenes(), nil, 0, false); !errors.Is(err, ErrNoSurface) {
		t.Errorf("expected ErrNoSurface, got %v", err)
	}
}

func TestRenderShareQR(t *testing.T) {
	r, err := New(WithShareQR("https://example.com/joke/42"))
	if err != nil {
		t.Fatal(err)
	}
	surface := image.NewRGBA(image.Rect(0, 0, 540, 960))
	if err := r.Render(surface, testScenes(), nil, 0, false); err != nil {
		t.Fatal(err)
	}
	qr := image.Rect(540-qrMargin-qrSize, qrMargin, 540-qrMargin, qrMargin+qrSize)
	if n := countColor(surface, qr, color.Black); n == 0 {
		t.Error("QR code modules not drawn")
	}
}
