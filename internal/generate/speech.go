package generate

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/ivlev/joke2video/internal/audio"
	"github.com/ivlev/joke2video/internal/script"
)

// Narrator synthesizes one narration track for all scenes
type Narrator interface {
	Narrate(ctx context.Context, scenes []script.Scene) ([]byte, error)
}

type SpeechConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Voice   string
	Speed   float64
}

type speechRequest struct {
	Model          string  `json:"model"`
	Input          string  `json:"input"`
	Voice          string  `json:"voice"`
	Speed          float64 `json:"speed,omitempty"`
	ResponseFormat string  `json:"response_format"`
}

// OpenAINarrator calls the text-to-speech endpoint and returns mp3 bytes
type OpenAINarrator struct {
	client openai.Client
	cfg    SpeechConfig
}

func NewOpenAINarrator(cfg SpeechConfig, opts ...option.RequestOption) (*OpenAINarrator, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("narrator: %w", ErrMissingAPIKey)
	}
	if cfg.Model == "" {
		cfg.Model = "tts-1"
	}
	if cfg.Voice == "" {
		cfg.Voice = "onyx"
	}
	base := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		base = append(base, option.WithBaseURL(cfg.BaseURL))
	}
	return &OpenAINarrator{client: openai.NewClient(append(base, opts...)...), cfg: cfg}, nil
}

func (n *OpenAINarrator) Narrate(ctx context.Context, scenes []script.Scene) ([]byte, error) {
	if len(scenes) == 0 {
		return nil, script.ErrNoScenes
	}
	req := speechRequest{
		Model:          n.cfg.Model,
		Input:          audio.NarrationText(scenes),
		Voice:          n.cfg.Voice,
		Speed:          n.cfg.Speed,
		ResponseFormat: "mp3",
	}

	var res *http.Response
	if err := n.client.Post(ctx, "audio/speech", req, &res); err != nil {
		return nil, fmt.Errorf("audio generation failed: %w", err)
	}
	defer res.Body.Close()

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("read speech: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("audio generation failed: %w", audio.ErrEmptyTrack)
	}
	return data, nil
}
