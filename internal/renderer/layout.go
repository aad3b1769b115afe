package renderer

import (
	"image"
	"image/color"
)

// Palette (zinc/amber)
var (
	ColorBackground  = color.RGBA{0x18, 0x18, 0x1b, 0xff}
	ColorPlaceholder = color.RGBA{0x27, 0x27, 0x2a, 0xff}
	ColorMuted       = color.RGBA{0x71, 0x71, 0x7a, 0xff}
	ColorDotActive   = color.RGBA{0xf5, 0x9e, 0x0b, 0xff}
	ColorDotIdle     = color.RGBA{0x52, 0x52, 0x5b, 0xff}
	ColorOverlay     = color.NRGBA{0x00, 0x00, 0x00, 0xcc}
	ColorSetup       = color.RGBA{0xff, 0xff, 0xff, 0xff}
	ColorPunchline   = color.RGBA{0xfb, 0xbf, 0x24, 0xff}
)

const (
	imageRegionRatio = 0.6

	dotOffset  = 16
	dotRadius  = 6
	dotSpacing = 24

	// Полоса между областью изображения и текстом (под точками)
	textOverlap = 36
	textPadding = 16
	sideMargin  = 24

	placeholderSize = 20
	setupSize       = 26
	setupLine       = 32
	punchlineSize   = 30
	punchlineLine   = 36
	counterSize     = 14
	counterX        = 16
	counterBottom   = 24

	qrSize   = 96
	qrMargin = 16
)

// Layout holds the pixel geometry of one frame, derived from the surface size
type Layout struct {
	Width, Height int

	ImageRegion image.Rectangle
	DotY        int
	Overlay     image.Rectangle

	TextY        int // top of the text block
	TextH        int
	SetupTop     int
	PunchlineTop int
	MaxTextWidth int

	CounterX, CounterTop int
}

func NewLayout(w, h int) Layout {
	imgH := int(float64(h) * imageRegionRatio)
	textY := imgH + textOverlap
	textH := h - textY

	return Layout{
		Width:        w,
		Height:       h,
		ImageRegion:  image.Rect(0, 0, w, imgH),
		DotY:         imgH + dotOffset,
		Overlay:      image.Rect(0, imgH, w, h),
		TextY:        textY,
		TextH:        textH,
		SetupTop:     textY + textPadding,
		PunchlineTop: textY + textH/2 + 10,
		MaxTextWidth: w - 2*sideMargin,
		CounterX:     counterX,
		CounterTop:   h - counterBottom,
	}
}

// DotCenters returns the x coordinate of each indicator dot, centered on the frame
func (l Layout) DotCenters(n int) []float64 {
	xs := make([]float64, n)
	mid := float64(n-1) / 2
	for i := range xs {
		xs[i] = float64(l.Width)/2 + (float64(i)-mid)*dotSpacing
	}
	return xs
}

// CoverRect returns where an iw×ih image lands when scaled to cover the image region, centered.
// The rectangle may extend past the region; drawing clips it.
func (l Layout) CoverRect(iw, ih int) image.Rectangle {
	if iw <= 0 || ih <= 0 {
		return image.Rectangle{}
	}
	rw, rh := float64(l.ImageRegion.Dx()), float64(l.ImageRegion.Dy())
	scale := rw / float64(iw)
	if s := rh / float64(ih); s > scale {
		scale = s
	}
	sw := float64(iw) * scale
	sh := float64(ih) * scale
	x0 := (rw - sw) / 2
	y0 := (rh - sh) / 2
	return image.Rect(round(x0), round(y0), round(x0+sw), round(y0+sh))
}

func round(f float64) int {
	if f < 0 {
		return -int(-f + 0.5)
	}
	return int(f + 0.5)
}
