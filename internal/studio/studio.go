package studio

import (
	"context"
	"fmt"
	"image"
	"log"
	"os"
	"sync"

	"github.com/ivlev/joke2video/internal/assets"
	"github.com/ivlev/joke2video/internal/audio"
	"github.com/ivlev/joke2video/internal/capture"
	"github.com/ivlev/joke2video/internal/engine"
	"github.com/ivlev/joke2video/internal/script"
)

type Options struct {
	Width       int
	Height      int
	RefreshRate int

	// Monitor plays the narration aloud through ffplay during playback
	Monitor bool
	TempDir string

	Export capture.Options
}

// Studio wires one preview: scene store, decoded images, playback engine and exporter
type Studio struct {
	Store    *script.Store
	Images   *assets.Set
	Engine   *engine.Engine
	Exporter *capture.Exporter

	opts Options

	mu        sync.Mutex
	topic     string
	title     string
	track     *audio.Track
	trackPath string
}

func New(r engine.Renderer, opts Options, engineOpts ...engine.Option) *Studio {
	if opts.Width <= 0 || opts.Height <= 0 {
		opts.Width, opts.Height = 540, 960
	}
	if opts.RefreshRate <= 0 {
		opts.RefreshRate = 60
	}

	store := script.NewStore(nil)
	images := assets.NewSet(0)
	surface := image.NewRGBA(image.Rect(0, 0, opts.Width, opts.Height))

	eopts := append([]engine.Option{engine.WithScheduler(engine.NewTickerScheduler(opts.RefreshRate))}, engineOpts...)
	eng := engine.New(store, images, r, surface, eopts...)

	// Картинка догрузилась -> одна перерисовка; правка сцены -> перерисовка
	images.Subscribe(eng.AssetLoaded)
	store.OnChange(func([]script.Scene) { eng.Redraw() })

	return &Studio{
		Store:    store,
		Images:   images,
		Engine:   eng,
		Exporter: capture.NewExporter(eng, store, opts.Export),
		opts:     opts,
	}
}

// Load replaces the current joke. Broken images are logged and stay as placeholders.
func (s *Studio) Load(ctx context.Context, js *script.JokeScript) error {
	if err := js.Validate(); err != nil {
		return err
	}
	s.Engine.Stop()

	s.mu.Lock()
	s.topic, s.title = js.Topic, js.Title
	s.mu.Unlock()

	s.Images.Reset(len(js.Scenes))
	s.Store.Replace(js.Scenes)

	if err := s.Images.LoadAll(ctx, js.Scenes); err != nil {
		log.Printf("[!] Не все изображения загружены: %v", err)
	}
	s.Engine.Redraw()
	return nil
}

// Script returns the joke with the current (edited) scenes
func (s *Studio) Script() *script.JokeScript {
	s.mu.Lock()
	defer s.mu.Unlock()
	return &script.JokeScript{Topic: s.topic, Title: s.title, Scenes: s.Store.Scenes()}
}

func (s *Studio) Title() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.title
}

// SetNarration attaches the track to playback and to exports. A nil track
// makes both silent. Monitor failures are not fatal.
func (s *Studio) SetNarration(track *audio.Track) {
	s.mu.Lock()
	s.releaseTrackLocked()
	s.track = track
	s.mu.Unlock()

	if track == nil || len(track.Data) == 0 {
		s.Engine.SetAudio(nil, 0)
		s.Exporter.SetTrack(nil, nil)
		return
	}

	var player audio.Player = audio.Nop{}
	if s.opts.Monitor || track.Duration == 0 {
		path, err := track.WriteTemp(s.opts.TempDir)
		if err != nil {
			log.Printf("[!] Озвучка: %v", err)
		} else {
			s.mu.Lock()
			s.trackPath = path
			s.mu.Unlock()

			if track.Duration == 0 {
				if d, err := audio.Probe(path); err == nil {
					track.Duration = d
				}
			}
			if s.opts.Monitor {
				if p, err := audio.NewFFPlay(path); err != nil {
					log.Printf("[!] Озвучка не будет слышна: %v", err)
				} else {
					player = p
				}
			}
		}
	}

	s.Engine.SetAudio(player, track.Duration)
	s.Exporter.SetTrack(track, player)
	if track.Duration > 0 {
		fmt.Printf("[*] Озвучка: %.2fs, видео: %.2fs\n", track.Duration, s.Store.TotalDuration())
	}
}

// SetImage stores the encoded image in the scene and decodes it for the renderer
func (s *Studio) SetImage(i int, data []byte) error {
	if err := s.Store.SetImage(i, data); err != nil {
		return err
	}
	return s.Images.Decode(i, data)
}

// move swaps neighbouring scenes; the decoded image follows its scene
func (s *Studio) move(from, to int) bool {
	if !s.Store.Move(from, to) {
		return false
	}
	s.Images.Swap(from, to)
	s.Engine.Redraw()
	return true
}

func (s *Studio) MoveUp(i int) bool   { return s.move(i, i-1) }
func (s *Studio) MoveDown(i int) bool { return s.move(i, i+1) }

func (s *Studio) Export(ctx context.Context) (*capture.Result, error) {
	return s.Exporter.Export(ctx, s.Title())
}

// Close stops playback and removes the monitor copy of the narration
func (s *Studio) Close() {
	s.Engine.Stop()
	s.mu.Lock()
	s.releaseTrackLocked()
	s.mu.Unlock()
}

func (s *Studio) releaseTrackLocked() {
	if s.trackPath == "" {
		return
	}
	if err := os.Remove(s.trackPath); err != nil && !os.IsNotExist(err) {
		log.Printf("[!] Не удалось удалить %s: %v", s.trackPath, err)
	}
	s.trackPath = ""
}

// ExportScript renders a joke headless: one throwaway studio, one export
func ExportScript(ctx context.Context, r engine.Renderer, opts Options, js *script.JokeScript, narration *audio.Track) (*capture.Result, error) {
	opts.Monitor = false
	s := New(r, opts)
	defer s.Close()

	if err := s.Load(ctx, js); err != nil {
		return nil, err
	}
	s.SetNarration(narration)
	return s.Export(ctx)
}
