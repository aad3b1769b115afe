package renderer

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"sync"

	qrcode "github.com/skip2/go-qrcode"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/vector"

	"github.com/ivlev/joke2video/internal/script"
)

var (
	ErrSceneIndex = errors.New("scene index out of range")
	ErrNoSurface  = errors.New("no surface to render to")
)

// ImageLookup resolves the decoded image of a scene; false means "not loaded yet"
type ImageLookup interface {
	Image(index int) (image.Image, bool)
}

// Renderer draws complete frames. It keeps no playback state, only caches
// (font faces and cover-scaled images) that don't affect the output.
type Renderer struct {
	mu     sync.Mutex
	fonts  *Fonts
	qr     image.Image
	scaled map[scaleKey]*image.RGBA
}

type scaleKey struct {
	src  image.Image
	w, h int
}

const maxScaledCache = 16

type Option func(*Renderer) error

// WithShareQR draws a QR code pointing to url in the top-right corner of the image region
func WithShareQR(url string) Option {
	return func(r *Renderer) error {
		if url == "" {
			return nil
		}
		q, err := qrcode.New(url, qrcode.Medium)
		if err != nil {
			return fmt.Errorf("share QR: %w", err)
		}
		q.DisableBorder = true
		r.qr = q.Image(qrSize)
		return nil
	}
}

func New(opts ...Option) (*Renderer, error) {
	fonts, err := LoadFonts()
	if err != nil {
		return nil, err
	}
	r := &Renderer{fonts: fonts, scaled: make(map[scaleKey]*image.RGBA)}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Render fully redraws surface for scene index, with or without the punchline
func (r *Renderer) Render(surface draw.Image, scenes []script.Scene, images ImageLookup, index int, showPunchline bool) error {
	if surface == nil {
		return ErrNoSurface
	}
	if index < 0 || index >= len(scenes) {
		return fmt.Errorf("%w: %d of %d", ErrSceneIndex, index, len(scenes))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	b := surface.Bounds()
	l := NewLayout(b.Dx(), b.Dy())
	o := b.Min
	sc := scenes[index]

	// Фон
	draw.Draw(surface, b, image.NewUniform(ColorBackground), image.Point{}, draw.Src)

	// Изображение (верхние 60%) или заглушка
	var img image.Image
	if images != nil {
		img, _ = images.Image(index)
	}
	region := l.ImageRegion.Add(o)
	if img != nil && img.Bounds().Dx() > 0 && img.Bounds().Dy() > 0 {
		r.drawCover(surface, l, o, img)
	} else if err := r.drawPlaceholder(surface, l, o); err != nil {
		return err
	}

	if r.qr != nil {
		at := image.Pt(region.Max.X-qrMargin-qrSize, region.Min.Y+qrMargin)
		draw.Draw(surface, image.Rectangle{Min: at, Max: at.Add(image.Pt(qrSize, qrSize))}, r.qr, r.qr.Bounds().Min, draw.Src)
	}

	// Индикаторы сцен
	for i, x := range l.DotCenters(len(scenes)) {
		col := ColorDotIdle
		if i == index {
			col = ColorDotActive
		}
		fillCircle(surface, float64(o.X)+x, float64(o.Y+l.DotY), dotRadius, col)
	}

	// Полупрозрачная подложка под текст
	draw.Draw(surface, l.Overlay.Add(o), image.NewUniform(ColorOverlay), image.Point{}, draw.Over)

	setupFace, err := r.fonts.Face(true, setupSize)
	if err != nil {
		return err
	}
	drawWrapped(surface, setupFace, ColorSetup, sc.Setup, o.X+l.Width/2, o.Y+l.SetupTop, l.MaxTextWidth, setupLine)

	if showPunchline {
		punchFace, err := r.fonts.Face(true, punchlineSize)
		if err != nil {
			return err
		}
		drawWrapped(surface, punchFace, ColorPunchline, sc.Punchline, o.X+l.Width/2, o.Y+l.PunchlineTop, l.MaxTextWidth, punchlineLine)
	}

	counterFace, err := r.fonts.Face(false, counterSize)
	if err != nil {
		return err
	}
	drawTextTop(surface, counterFace, ColorMuted, fmt.Sprintf("Scene %d/%d", index+1, len(scenes)),
		o.X+l.CounterX, o.Y+l.CounterTop, alignLeft)

	return nil
}

func (r *Renderer) drawPlaceholder(dst draw.Image, l Layout, o image.Point) error {
	region := l.ImageRegion.Add(o)
	draw.Draw(dst, region, image.NewUniform(ColorPlaceholder), image.Point{}, draw.Src)

	face, err := r.fonts.Face(false, placeholderSize)
	if err != nil {
		return err
	}
	drawTextMiddle(dst, face, ColorMuted, "Loading image...", region.Min.X+region.Dx()/2, region.Min.Y+region.Dy()/2, alignCenter)
	return nil
}

// drawCover paints img scaled to cover the image region, clipped to it
func (r *Renderer) drawCover(dst draw.Image, l Layout, o image.Point, img image.Image) {
	cover := l.CoverRect(img.Bounds().Dx(), img.Bounds().Dy())
	scaled := r.scaledImage(img, cover.Dx(), cover.Dy())

	region := l.ImageRegion.Add(o)
	target := cover.Add(o).Intersect(region)
	sp := target.Min.Sub(cover.Add(o).Min)
	draw.Draw(dst, target, scaled, sp, draw.Src)
}

// scaledImage returns img resampled to w×h, cached since the same image is drawn every tick
func (r *Renderer) scaledImage(img image.Image, w, h int) *image.RGBA {
	key := scaleKey{src: img, w: w, h: h}
	if s, ok := r.scaled[key]; ok {
		return s
	}
	if len(r.scaled) >= maxScaledCache {
		r.scaled = make(map[scaleKey]*image.RGBA)
	}
	s := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.CatmullRom.Scale(s, s.Bounds(), img, img.Bounds(), xdraw.Src, nil)
	r.scaled[key] = s
	return s
}

// fillCircle draws an anti-aliased filled circle centered at (cx, cy)
func fillCircle(dst draw.Image, cx, cy, radius float64, col color.Color) {
	// Кривые Безье: 4 четверти окружности
	const k = 0.5522847498
	size := int(2*radius) + 2
	minX := int(cx - radius - 1)
	minY := int(cy - radius - 1)
	lx := float32(cx - float64(minX))
	ly := float32(cy - float64(minY))
	rr := float32(radius)
	kr := float32(k * radius)

	z := vector.NewRasterizer(size+1, size+1)
	z.DrawOp = draw.Over
	z.MoveTo(lx+rr, ly)
	z.CubeTo(lx+rr, ly+kr, lx+kr, ly+rr, lx, ly+rr)
	z.CubeTo(lx-kr, ly+rr, lx-rr, ly+kr, lx-rr, ly)
	z.CubeTo(lx-rr, ly-kr, lx-kr, ly-rr, lx, ly-rr)
	z.CubeTo(lx+kr, ly-rr, lx+rr, ly-kr, lx+rr, ly)
	z.ClosePath()

	rect := image.Rect(minX, minY, minX+size+1, minY+size+1)
	z.Draw(dst, rect, image.NewUniform(col), image.Point{})
}
