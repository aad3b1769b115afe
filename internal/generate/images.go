package generate

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"golang.org/x/sync/errgroup"
)

const imageStyle = "Style: bright colorful cartoon, meme-worthy, exaggerated expressions, no text in image."

// ImageGenerator returns one encoded image per prompt, at the prompt's index
type ImageGenerator interface {
	GenerateImages(ctx context.Context, prompts []string) ([][]byte, error)
}

type ImageConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

type OpenAIImageGenerator struct {
	client openai.Client
	model  string
}

func NewOpenAIImageGenerator(cfg ImageConfig, opts ...option.RequestOption) (*OpenAIImageGenerator, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("image generator: %w", ErrMissingAPIKey)
	}
	base := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		base = append(base, option.WithBaseURL(cfg.BaseURL))
	}
	model := cfg.Model
	if model == "" {
		model = string(openai.ImageModelGPTImage1)
	}
	return &OpenAIImageGenerator{client: openai.NewClient(append(base, opts...)...), model: model}, nil
}

// GenerateImages requests every image at once (no concurrency cap); the first
// failure cancels the rest and fails the whole batch.
func (g *OpenAIImageGenerator) GenerateImages(ctx context.Context, prompts []string) ([][]byte, error) {
	images := make([][]byte, len(prompts))
	eg, ctx := errgroup.WithContext(ctx)

	for i, prompt := range prompts {
		eg.Go(func() error {
			res, err := g.client.Images.Generate(ctx, openai.ImageGenerateParams{
				Prompt:  fmt.Sprintf("%s. %s", prompt, imageStyle),
				Model:   openai.ImageModel(g.model),
				N:       openai.Int(1),
				Size:    openai.ImageGenerateParamsSize1024x1024,
				Quality: openai.ImageGenerateParamsQualityLow,
			})
			if err != nil {
				return fmt.Errorf("image %d: %w", i+1, err)
			}
			if len(res.Data) == 0 || res.Data[0].B64JSON == "" {
				return fmt.Errorf("image %d: empty response", i+1)
			}
			data, err := base64.StdEncoding.DecodeString(res.Data[0].B64JSON)
			if err != nil {
				return fmt.Errorf("image %d: %w", i+1, err)
			}
			images[i] = data
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, fmt.Errorf("image generation failed: %w", err)
	}
	return images, nil
}
