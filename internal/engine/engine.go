package engine

import (
	"fmt"
	"image"
	"image/draw"
	"log"
	"math"
	"sync"
	"time"

	"github.com/ivlev/joke2video/internal/audio"
	"github.com/ivlev/joke2video/internal/renderer"
	"github.com/ivlev/joke2video/internal/script"
)

var ErrNoScenes = script.ErrNoScenes

// Renderer draws one full frame onto the surface
type Renderer interface {
	Render(surface draw.Image, scenes []script.Scene, images renderer.ImageLookup, index int, showPunchline bool) error
}

// State is the playback position. PunchlineRevealed only goes false -> true within a scene.
type State struct {
	SceneIndex        int
	SceneStart        time.Time
	PunchlineRevealed bool
	Playing           bool
}

// Engine is the playback state machine: Stopped <-> Playing(scene, start, revealed).
// All state changes and pixel writes happen under mu.
type Engine struct {
	mu sync.Mutex

	store    *script.Store
	images   renderer.ImageLookup
	renderer Renderer
	surface  *image.RGBA

	clock     Clock
	scheduler Scheduler

	player        audio.Player
	audioDuration float64

	scenes []script.Scene // снимок на момент Play
	state  State
	task   Task
	gen    uint64
	frames uint64

	onFinish []func()
}

type Option func(*Engine)

func WithClock(c Clock) Option { return func(e *Engine) { e.clock = c } }

func WithScheduler(s Scheduler) Option { return func(e *Engine) { e.scheduler = s } }

// WithAudio sets the narration player; duration (seconds, 0 if unknown) is used for drift reporting
func WithAudio(p audio.Player, duration float64) Option {
	return func(e *Engine) {
		e.player = p
		e.audioDuration = duration
	}
}

func New(store *script.Store, images renderer.ImageLookup, r Renderer, surface *image.RGBA, opts ...Option) *Engine {
	e := &Engine{
		store:     store,
		images:    images,
		renderer:  r,
		surface:   surface,
		clock:     systemClock{},
		scheduler: NewTickerScheduler(60),
		player:    audio.Nop{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// SetAudio replaces the narration player; takes effect on the next Play
func (e *Engine) SetAudio(p audio.Player, duration float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if p == nil {
		p = audio.Nop{}
	}
	e.player = p
	e.audioDuration = duration
}

// OnFinish registers fn to run after natural completion (not after Stop)
func (e *Engine) OnFinish(fn func()) {
	e.mu.Lock()
	e.onFinish = append(e.onFinish, fn)
	e.mu.Unlock()
}

// Play starts from scene 0. Playing again while playing restarts: the running
// tick task is cancelled before the new one starts.
func (e *Engine) Play() error {
	scenes := e.store.Scenes()
	js := script.JokeScript{Scenes: scenes}
	if err := js.Validate(); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.task != nil {
		log.Printf("[*] Повторный Play: перезапуск с первой сцены")
		e.cancelLocked()
	}

	e.gen++
	gen := e.gen
	e.scenes = scenes
	e.state = State{SceneIndex: 0, SceneStart: e.clock.Now(), Playing: true}
	e.renderLocked()

	// Автовоспроизведение звука не критично
	if err := e.player.Rewind(); err != nil {
		log.Printf("[!] Audio rewind: %v", err)
	}
	if err := e.player.Play(); err != nil {
		log.Printf("[!] Audio play: %v", err)
	}
	e.reportDriftLocked()

	e.task = e.scheduler.Every(func() { e.tick(gen) })
	return nil
}

func (e *Engine) reportDriftLocked() {
	if e.audioDuration <= 0 {
		return
	}
	visual := script.TotalDuration(e.scenes)
	if diff := e.audioDuration - visual; math.Abs(diff) > 0.05 {
		log.Printf("[!] Аудио %.2fs, видео %.2fs: расхождение %+.2fs не корректируется", e.audioDuration, visual, diff)
	}
}

func (e *Engine) tick(gen uint64) {
	e.mu.Lock()
	if gen != e.gen || !e.state.Playing {
		e.mu.Unlock()
		return
	}

	now := e.clock.Now()
	scene := e.scenes[e.state.SceneIndex]
	elapsed := now.Sub(e.state.SceneStart).Seconds()

	if elapsed >= scene.Duration/2 && !e.state.PunchlineRevealed {
		e.state.PunchlineRevealed = true
	}
	e.renderLocked()

	var finished []func()
	if elapsed >= scene.Duration {
		if e.state.SceneIndex+1 >= len(e.scenes) {
			e.state.Playing = false
			e.cancelLocked()
			finished = append(finished, e.onFinish...)
		} else {
			e.state.SceneIndex++
			e.state.SceneStart = now
			e.state.PunchlineRevealed = false
		}
	}
	e.mu.Unlock()

	for _, fn := range finished {
		fn()
	}
}

// Stop halts ticking, rewinds audio and shows scene 0 without the punchline.
// No frame is drawn by a tick after Stop returns.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.cancelLocked()
	e.gen++

	if err := e.player.Pause(); err != nil {
		log.Printf("[!] Audio pause: %v", err)
	}
	if err := e.player.Rewind(); err != nil {
		log.Printf("[!] Audio rewind: %v", err)
	}

	e.state = State{}
	e.scenes = e.store.Scenes()
	if len(e.scenes) > 0 {
		e.renderLocked()
	}
}

func (e *Engine) cancelLocked() {
	if e.task != nil {
		e.task.Cancel()
		e.task = nil
	}
}

func (e *Engine) renderLocked() {
	if e.surface == nil {
		return
	}
	if err := e.renderer.Render(e.surface, e.scenes, e.images, e.state.SceneIndex, e.state.PunchlineRevealed); err != nil {
		log.Printf("[!] Render scene %d: %v", e.state.SceneIndex+1, err)
		return
	}
	e.frames++
}

// Redraw repaints the current scene from the store while stopped (edits, new images).
// While playing the next tick picks changes up only after a restart, so it is a no-op.
func (e *Engine) Redraw() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state.Playing {
		return
	}
	e.scenes = e.store.Scenes()
	if len(e.scenes) == 0 {
		return
	}
	if e.state.SceneIndex >= len(e.scenes) {
		e.state.SceneIndex = 0
	}
	e.renderLocked()
}

// AssetLoaded handles an image-loaded event: one redraw, only while stopped
func (e *Engine) AssetLoaded(index int) {
	e.Redraw()
}

// State returns a copy of the playback state
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

func (e *Engine) Playing() bool {
	return e.State().Playing
}

// Frames is the number of frames drawn so far
func (e *Engine) Frames() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.frames
}

func (e *Engine) Bounds() image.Rectangle {
	if e.surface == nil {
		return image.Rectangle{}
	}
	return e.surface.Bounds()
}

// CaptureFrame copies the current surface into dst
func (e *Engine) CaptureFrame(dst *image.RGBA) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.surface == nil {
		return fmt.Errorf("engine has no surface")
	}
	if dst.Rect == e.surface.Rect && dst.Stride == e.surface.Stride {
		copy(dst.Pix, e.surface.Pix)
		return nil
	}
	draw.Draw(dst, dst.Bounds(), e.surface, e.surface.Bounds().Min, draw.Src)
	return nil
}

// Scenes returns the scenes of the current (or last) run
func (e *Engine) Scenes() []script.Scene {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]script.Scene, len(e.scenes))
	copy(out, e.scenes)
	return out
}

// HasSurface reports whether frames can be captured
func (e *Engine) HasSurface() bool {
	return e.surface != nil
}
