package renderer

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"strings"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// Fonts caches font faces per weight and pixel size
type Fonts struct {
	mu      sync.Mutex
	regular *opentype.Font
	bold    *opentype.Font
	faces   map[faceKey]font.Face
}

type faceKey struct {
	bold bool
	size float64
}

func LoadFonts() (*Fonts, error) {
	regular, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse regular font: %w", err)
	}
	bold, err := opentype.Parse(gobold.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse bold font: %w", err)
	}
	return &Fonts{regular: regular, bold: bold, faces: make(map[faceKey]font.Face)}, nil
}

// Face returns a face sized in pixels (72 DPI, so points == pixels like CSS px)
func (f *Fonts) Face(bold bool, size float64) (font.Face, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := faceKey{bold: bold, size: size}
	if face, ok := f.faces[key]; ok {
		return face, nil
	}
	src := f.regular
	if bold {
		src = f.bold
	}
	face, err := opentype.NewFace(src, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, err
	}
	f.faces[key] = face
	return face, nil
}

// WrapText greedily packs words into lines no wider than maxWidth pixels as measured by face.
// A single word wider than maxWidth gets a line of its own.
func WrapText(face font.Face, text string, maxWidth int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	limit := fixed.I(maxWidth)
	var lines []string
	line := words[0]
	for _, word := range words[1:] {
		candidate := line + " " + word
		if font.MeasureString(face, candidate) > limit {
			lines = append(lines, line)
			line = word
			continue
		}
		line = candidate
	}
	return append(lines, line)
}

type align int

const (
	alignLeft align = iota
	alignCenter
)

// drawTextTop draws one line with its em-box top at y (canvas textBaseline = "top")
func drawTextTop(dst draw.Image, face font.Face, col color.Color, text string, x, y int, a align) {
	ascent := face.Metrics().Ascent
	drawBaseline(dst, face, col, text, x, fixed.I(y)+ascent, a)
}

// drawTextMiddle draws one line vertically centered on y
func drawTextMiddle(dst draw.Image, face font.Face, col color.Color, text string, x, y int, a align) {
	m := face.Metrics()
	baseline := fixed.I(y) + (m.Ascent-m.Descent)/2
	drawBaseline(dst, face, col, text, x, baseline, a)
}

func drawBaseline(dst draw.Image, face font.Face, col color.Color, text string, x int, baseline fixed.Int26_6, a align) {
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(col),
		Face: face,
	}
	dotX := fixed.I(x)
	if a == alignCenter {
		dotX -= d.MeasureString(text) / 2
	}
	d.Dot = fixed.Point26_6{X: dotX, Y: baseline}
	d.DrawString(text)
}

// drawWrapped wraps text and draws it centered on x, one line every lineHeight pixels from top.
// Returns the number of lines drawn.
func drawWrapped(dst draw.Image, face font.Face, col color.Color, text string, x, top, maxWidth, lineHeight int) int {
	lines := WrapText(face, text, maxWidth)
	for i, line := range lines {
		drawTextTop(dst, face, col, line, x, top+i*lineHeight, alignCenter)
	}
	return len(lines)
}
