// Package assets holds the decoded scene images and announces when each one becomes available.
package assets

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"sync"

	_ "golang.org/x/image/webp"
	"golang.org/x/sync/errgroup"

	"github.com/ivlev/joke2video/internal/script"
)

// Set is an index-aligned collection of scene images.
// Subscribers get one "loaded" event per successful Put, independent of load order.
type Set struct {
	mu     sync.RWMutex
	images []image.Image
	subs   []func(index int)
}

func NewSet(n int) *Set {
	return &Set{images: make([]image.Image, n)}
}

// Image returns the decoded image for a scene, or false while it's still loading
func (s *Set) Image(index int) (image.Image, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if index < 0 || index >= len(s.images) || s.images[index] == nil {
		return nil, false
	}
	return s.images[index], true
}

func (s *Set) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.images)
}

// Subscribe registers fn for "asset loaded" events
func (s *Set) Subscribe(fn func(index int)) {
	s.mu.Lock()
	s.subs = append(s.subs, fn)
	s.mu.Unlock()
}

// Reset drops all images and resizes the set, e.g. after the scene list was regenerated
func (s *Set) Reset(n int) {
	s.mu.Lock()
	s.images = make([]image.Image, n)
	s.mu.Unlock()
}

// Put stores a decoded image and publishes the loaded event
func (s *Set) Put(index int, img image.Image) error {
	s.mu.Lock()
	if index < 0 || index >= len(s.images) {
		n := len(s.images)
		s.mu.Unlock()
		return fmt.Errorf("asset index %d out of range [0,%d)", index, n)
	}
	s.images[index] = img
	subs := append([]func(int){}, s.subs...)
	s.mu.Unlock()

	for _, fn := range subs {
		fn(index)
	}
	return nil
}

// Decode decodes PNG/JPEG/WebP data and stores it at index
func (s *Set) Decode(index int, data []byte) error {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("decode image for scene %d: %w", index+1, err)
	}
	return s.Put(index, img)
}

// Swap exchanges two slots so the images follow their scenes on reorder
func (s *Set) Swap(i, j int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || j < 0 || i >= len(s.images) || j >= len(s.images) {
		return
	}
	s.images[i], s.images[j] = s.images[j], s.images[i]
}

// LoadAll decodes every scene image in parallel.
// A broken image leaves its slot empty (placeholder) and is reported in the joined error.
func (s *Set) LoadAll(ctx context.Context, scenes []script.Scene) error {
	var (
		g    errgroup.Group
		mu   sync.Mutex
		errs []error
	)
	for i, sc := range scenes {
		if len(sc.Image) == 0 {
			continue
		}
		i, data := i, sc.Image
		g.Go(func() error {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if err := s.Decode(i, data); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return errors.Join(errs...)
}
