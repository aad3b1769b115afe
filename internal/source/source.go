package source

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"

	"github.com/gen2brain/go-fitz"
)

// Source is an offline supply of scene images, positionally aligned to the scenes
type Source interface {
	Count() int
	// Image returns the encoded image (PNG/JPEG) for the given position
	Image(index int) ([]byte, error)
	Close() error
}

type FitzPDFSource struct {
	doc  *fitz.Document
	path string
	dpi  int
}

func NewFitzPDFSource(path string, dpi int) (*FitzPDFSource, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, err
	}
	if dpi <= 0 {
		dpi = 150
	}
	return &FitzPDFSource{doc: doc, path: path, dpi: dpi}, nil
}

func (f *FitzPDFSource) Count() int {
	return f.doc.NumPage()
}

// Image renders one PDF page and encodes it as PNG
func (f *FitzPDFSource) Image(index int) ([]byte, error) {
	// Отдельный документ на вызов: fitz.Document не потокобезопасен
	workerDoc, err := fitz.New(f.path)
	if err != nil {
		return nil, err
	}
	defer workerDoc.Close()

	img, err := workerDoc.ImageDPI(index, float64(f.dpi))
	if err != nil {
		return nil, fmt.Errorf("render page %d: %w", index+1, err)
	}
	return encodePNG(img)
}

func (f *FitzPDFSource) Close() error {
	return f.doc.Close()
}

// Generator adapts a Source to the image-generation collaborator contract.
// Prompts are ignored; scene i gets image i, scenes past the end get nothing.
type Generator struct {
	Src Source
}

func (g *Generator) GenerateImages(ctx context.Context, prompts []string) ([][]byte, error) {
	images := make([][]byte, len(prompts))
	for i := range prompts {
		if i >= g.Src.Count() {
			break
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, err := g.Src.Image(i)
		if err != nil {
			return nil, err
		}
		images[i] = data
	}
	return images, nil
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
