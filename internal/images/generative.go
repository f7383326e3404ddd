package images

import (
	"context"
	"fmt"

	"github.com/icoffio/articleflow/internal/llm"
)

// Per-image prices in USD, keyed by model and size.
var imageCosts = map[string]map[string]float64{
	"dall-e-3": {
		"1024x1024": 0.040,
		"1024x1792": 0.080,
		"1792x1024": 0.080,
	},
	"dall-e-2": {
		"1024x1024": 0.020,
		"512x512":   0.018,
		"256x256":   0.016,
	},
}

const defaultImageCost = 0.040

// ModelProvider generates images through the LLM client.
type ModelProvider struct {
	client llm.Client
	model  string
	size   string
}

func NewModelProvider(client llm.Client, model, size string) *ModelProvider {
	return &ModelProvider{client: client, model: model, size: size}
}

func (p *ModelProvider) Generate(ctx context.Context, prompt string) (string, float64, error) {
	url, err := p.client.GenerateImage(ctx, prompt, p.size)
	if err != nil {
		return "", 0, fmt.Errorf("generate image: %w", err)
	}

	return url, costFor(p.model, p.size), nil
}

func costFor(model, size string) float64 {
	if sizes, ok := imageCosts[model]; ok {
		if cost, ok := sizes[size]; ok {
			return cost
		}
	}

	return defaultImageCost
}
