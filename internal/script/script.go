package script

import (
	"encoding/base64"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

var (
	ErrNoScenes        = errors.New("script has no scenes")
	ErrInvalidDuration = errors.New("scene duration must be positive")
)

// JokeScript is the full output of the joke writer: a titled sequence of scenes
type JokeScript struct {
	Topic  string  `yaml:"topic" json:"topic"`
	Title  string  `yaml:"title" json:"title"`
	Scenes []Scene `yaml:"scenes" json:"scenes"`
}

// Scene is one unit of the narrative: setup, punchline, image and how long it stays on screen
type Scene struct {
	Setup       string  `yaml:"setup" json:"setup" jsonschema_description:"Setup text shown on screen"`
	Punchline   string  `yaml:"punchline" json:"punchline" jsonschema_description:"Punchline text revealed halfway through the scene"`
	ImagePrompt string  `yaml:"imagePrompt" json:"imagePrompt" jsonschema_description:"Detailed image description, cartoon style, bright colors, funny"`
	Duration    float64 `yaml:"duration" json:"duration" jsonschema_description:"Scene duration in seconds"`

	// Закодированное изображение (PNG/JPEG). Не входит в ответ LLM.
	Image Blob `yaml:"imageBase64,omitempty" json:"imageBase64,omitempty" jsonschema:"-"`
}

// TotalDuration returns the sum of all scene durations in seconds
func TotalDuration(scenes []Scene) float64 {
	total := 0.0
	for _, s := range scenes {
		total += s.Duration
	}
	return total
}

// Validate checks the invariants the playback engine relies on
func (js *JokeScript) Validate() error {
	if len(js.Scenes) == 0 {
		return ErrNoScenes
	}
	for i, s := range js.Scenes {
		if s.Duration <= 0 {
			return fmt.Errorf("scene %d: %w (got %.2f)", i+1, ErrInvalidDuration, s.Duration)
		}
	}
	return nil
}

// Prompts returns the image prompts in scene order
func (js *JokeScript) Prompts() []string {
	prompts := make([]string, len(js.Scenes))
	for i, s := range js.Scenes {
		prompts[i] = s.ImagePrompt
	}
	return prompts
}

// cloneScenes copies the slice and the image buffers so callers can't alias store state
func cloneScenes(scenes []Scene) []Scene {
	out := make([]Scene, len(scenes))
	copy(out, scenes)
	for i := range out {
		if out[i].Image != nil {
			out[i].Image = append([]byte(nil), out[i].Image...)
		}
	}
	return out
}

// Blob is encoded image or audio data; YAML stores it as base64 text, JSON does so natively
type Blob []byte

func (b Blob) MarshalYAML() (interface{}, error) {
	return base64.StdEncoding.EncodeToString(b), nil
}

func (b *Blob) UnmarshalYAML(value *yaml.Node) error {
	data, err := base64.StdEncoding.DecodeString(value.Value)
	if err != nil {
		return fmt.Errorf("imageBase64: %w", err)
	}
	*b = data
	return nil
}
