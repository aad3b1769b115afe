package assets

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"sort"
	"sync"
	"testing"

	"github.com/ivlev/joke2video/internal/script"
)

func pngBytes(t *testing.T, w, h int, c color.Color) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestLoadAllPublishesOneEventPerImage(t *testing.T) {
	scenes := []script.Scene{
		{Duration: 5, Image: pngBytes(t, 8, 8, color.White)},
		{Duration: 5},
		{Duration: 7, Image: pngBytes(t, 4, 2, color.Black)},
	}

	set := NewSet(len(scenes))
	var (
		mu     sync.Mutex
		loaded []int
	)
	set.Subscribe(func(i int) {
		mu.Lock()
		loaded = append(loaded, i)
		mu.Unlock()
	})

	if err := set.LoadAll(context.Background(), scenes); err != nil {
		t.Fatalf("LoadAll failed: %v", err)
	}

	sort.Ints(loaded)
	if len(loaded) != 2 || loaded[0] != 0 || loaded[1] != 2 {
		t.Errorf("expected events for scenes 0 and 2, got %v", loaded)
	}
	if _, ok := set.Image(1); ok {
		t.Error("scene 1 has no image and should stay unloaded")
	}
	img, ok := set.Image(2)
	if !ok || img.Bounds().Dx() != 4 {
		t.Errorf("scene 2 image not loaded correctly: %v", img)
	}
}

func TestLoadAllKeepsGoingOnBrokenImage(t *testing.T) {
	scenes := []script.Scene{
		{Duration: 5, Image: []byte("not an image")},
		{Duration: 5, Image: pngBytes(t, 2, 2, color.White)},
	}
	set := NewSet(2)

	err := set.LoadAll(context.Background(), scenes)
	if err == nil {
		t.Fatal("expected decode error")
	}
	t.Logf("LoadAll error: %v", err)

	if _, ok := set.Image(0); ok {
		t.Error("broken image should leave the slot empty")
	}
	if _, ok := set.Image(1); !ok {
		t.Error("valid image should still load")
	}
}

func TestSwapAndReset(t *testing.T) {
	set := NewSet(2)
	a := image.NewRGBA(image.Rect(0, 0, 1, 1))
	if err := set.Put(0, a); err != nil {
		t.Fatal(err)
	}
	set.Swap(0, 1)
	if _, ok := set.Image(0); ok {
		t.Error("slot 0 should be empty after swap")
	}
	if got, ok := set.Image(1); !ok || got != a {
		t.Error("image should follow its scene to slot 1")
	}

	set.Reset(3)
	if set.Len() != 3 {
		t.Errorf("expected 3 slots, got %d", set.Len())
	}
	if _, ok := set.Image(1); ok {
		t.Error("reset should drop images")
	}
	if err := set.Put(5, a); err == nil {
		t.Error("expected out of range error")
	}
}
