package generate

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/ivlev/joke2video/internal/script"
)

var ErrMissingAPIKey = errors.New("API key not set")

const jokeSystemPrompt = `You are a dad joke writer. Create cringe-worthy dad jokes that are family-friendly and groan-inducing. Output ONLY valid JSON, no markdown.`

const jokeUserPrompt = `Create a 3-scene dad joke video script about "%[1]s". Each scene has a setup line, a punchline, and a visual description for image generation. The joke should build up across scenes with the biggest groan at the end.

Return this exact JSON structure:
{
  "topic": "%[1]s",
  "title": "short catchy title",
  "scenes": [
    {
      "setup": "setup text shown on screen",
      "punchline": "punchline text",
      "imagePrompt": "detailed image description, cartoon style, bright colors, funny",
      "duration": 5
    },
    {
      "setup": "setup text",
      "punchline": "punchline text",
      "imagePrompt": "detailed image description, cartoon style, bright colors, funny",
      "duration": 5
    },
    {
      "setup": "setup text",
      "punchline": "final biggest punchline",
      "imagePrompt": "detailed image description, cartoon style, bright colors, funny",
      "duration": 7
    }
  ]
}`

// JokeWriter turns a topic into a joke script
type JokeWriter interface {
	WriteJoke(ctx context.Context, topic string) (*script.JokeScript, error)
}

type ChatConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64
	MaxTokens   int

	// Structured asks the model for a strict JSON schema response
	Structured bool
}

// ChatJokeWriter writes jokes through an OpenAI-compatible chat completions API (OpenRouter)
type ChatJokeWriter struct {
	client openai.Client
	cfg    ChatConfig
}

func NewChatJokeWriter(cfg ChatConfig, opts ...option.RequestOption) (*ChatJokeWriter, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("joke writer: %w", ErrMissingAPIKey)
	}
	base := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		base = append(base, option.WithBaseURL(cfg.BaseURL))
	}
	client := openai.NewClient(append(base, opts...)...)
	return &ChatJokeWriter{client: client, cfg: cfg}, nil
}

// GenerateSchema generates a JSON schema for structured outputs
func GenerateSchema[T any]() interface{} {
	reflector := &jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	return reflector.Reflect(v)
}

var jokeScriptSchema = GenerateSchema[script.JokeScript]()

func (w *ChatJokeWriter) WriteJoke(ctx context.Context, topic string) (*script.JokeScript, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil, ErrEmptyTopic
	}

	params := openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(jokeSystemPrompt),
			openai.UserMessage(fmt.Sprintf(jokeUserPrompt, topic)),
		},
		Model:       openai.ChatModel(w.cfg.Model),
		Temperature: openai.Float(w.cfg.Temperature),
		MaxTokens:   openai.Int(int64(w.cfg.MaxTokens)),
	}
	if w.cfg.Structured {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
				JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:        "joke_script",
					Description: openai.String("Dad joke video script"),
					Schema:      jokeScriptSchema,
					Strict:      openai.Bool(true),
				},
			},
		}
	}

	completion, err := w.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("OpenRouter error: %w", err)
	}
	if len(completion.Choices) == 0 {
		return nil, errors.New("OpenRouter error: no choices in response")
	}

	js, err := script.ParseScript(completion.Choices[0].Message.Content)
	if err != nil {
		return nil, err
	}
	if js.Topic == "" {
		js.Topic = topic
	}
	return js, nil
}
