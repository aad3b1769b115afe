package generate

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/ivlev/joke2video/internal/script"
)

var ErrEmptyTopic = errors.New("topic required")

type Status string

const (
	StatusIdle             Status = "idle"
	StatusGeneratingJoke   Status = "generating-joke"
	StatusGeneratingImages Status = "generating-images"
	StatusGeneratingAudio  Status = "generating-audio"
	StatusPreview          Status = "preview"
)

// Message is the progress line shown while a step runs
func (s Status) Message() string {
	switch s {
	case StatusGeneratingJoke:
		return "Writing the cringiest dad joke..."
	case StatusGeneratingImages:
		return "Generating meme-worthy images..."
	case StatusGeneratingAudio:
		return "Recording dad voice narration..."
	}
	return ""
}

func (s Status) Busy() bool {
	return s != StatusIdle && s != StatusPreview
}

// Result is everything the preview needs: the script with images attached and the narration
type Result struct {
	Script *script.JokeScript
	Audio  []byte
}

// Pipeline chains the collaborators: joke -> images -> narration.
// Any failure returns it to idle and nothing produced so far is kept.
type Pipeline struct {
	Writer   JokeWriter
	Images   ImageGenerator
	Narrator Narrator

	mu       sync.Mutex
	status   Status
	lastErr  error
	onStatus []func(Status)
}

func NewPipeline(w JokeWriter, img ImageGenerator, n Narrator) *Pipeline {
	return &Pipeline{Writer: w, Images: img, Narrator: n, status: StatusIdle}
}

func (p *Pipeline) OnStatus(fn func(Status)) {
	p.mu.Lock()
	p.onStatus = append(p.onStatus, fn)
	p.mu.Unlock()
}

func (p *Pipeline) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

// Err is the error of the last failed run, cleared when a new run starts
func (p *Pipeline) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastErr
}

func (p *Pipeline) set(s Status, err error) {
	p.mu.Lock()
	p.status = s
	p.lastErr = err
	subs := append([]func(Status){}, p.onStatus...)
	p.mu.Unlock()
	for _, fn := range subs {
		fn(s)
	}
}

// Reset goes back to idle
func (p *Pipeline) Reset() {
	p.set(StatusIdle, nil)
}

func (p *Pipeline) Run(ctx context.Context, topic string) (*Result, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil, ErrEmptyTopic
	}
	if p.Status().Busy() {
		return nil, fmt.Errorf("generation already running (%s)", p.Status())
	}

	fail := func(err error) (*Result, error) {
		log.Printf("[!] %v", err)
		p.set(StatusIdle, err)
		return nil, err
	}

	// 1. Шутка
	p.set(StatusGeneratingJoke, nil)
	js, err := p.Writer.WriteJoke(ctx, topic)
	if err != nil {
		return fail(fmt.Errorf("joke generation failed: %w", err))
	}
	fmt.Printf("[*] Шутка: %q, сцен: %d\n", js.Title, len(js.Scenes))

	// 2. Картинки, по индексу сцены
	p.set(StatusGeneratingImages, nil)
	images, err := p.Images.GenerateImages(ctx, js.Prompts())
	if err != nil {
		return fail(fmt.Errorf("image generation failed: %w", err))
	}
	for i := range js.Scenes {
		if i < len(images) {
			js.Scenes[i].Image = images[i]
		}
	}

	// 3. Озвучка
	p.set(StatusGeneratingAudio, nil)
	narration, err := p.Narrator.Narrate(ctx, js.Scenes)
	if err != nil {
		return fail(fmt.Errorf("audio generation failed: %w", err))
	}

	p.set(StatusPreview, nil)
	fmt.Printf("[+++] Готово: %d сцен, %.1fs, аудио %d байт\n", len(js.Scenes), script.TotalDuration(js.Scenes), len(narration))
	return &Result{Script: js, Audio: narration}, nil
}
