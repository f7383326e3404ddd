// Package images sources article imagery. A shared plan from the model
// drives both the stock and the generative provider so all images for one
// article stay thematically consistent.
package images

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/icoffio/articleflow/internal/core/domain"
	"github.com/icoffio/articleflow/internal/llm"
)

// Descriptor is one sourced image.
type Descriptor struct {
	URL    string
	Source string // "stock" or "generative"
	Prompt string // generation prompt or stock search query
	Alt    string
	Cost   float64
}

// StockProvider finds an existing photo for a search query.
type StockProvider interface {
	Search(ctx context.Context, query string) (string, error)
}

// GenerativeProvider produces a new image and reports its cost.
type GenerativeProvider interface {
	Generate(ctx context.Context, prompt string) (url string, cost float64, err error)
}

type Service struct {
	planner    llm.Client
	stock      StockProvider
	generative GenerativeProvider
	logger     zerolog.Logger
}

func NewService(planner llm.Client, stock StockProvider, generative GenerativeProvider, logger zerolog.Logger) *Service {
	return &Service{
		planner:    planner,
		stock:      stock,
		generative: generative,
		logger:     logger.With().Str("component", "images").Logger(),
	}
}

// Source returns count image descriptors for the article, the first one
// being the hero. Individual provider failures skip the image rather than
// failing the batch.
func (s *Service) Source(ctx context.Context, title, category, excerpt string, count int, strategy string) ([]Descriptor, error) {
	if count <= 0 || strategy == domain.ImagesSourceNone {
		return nil, nil
	}

	if count > domain.MaxImagesCount {
		count = domain.MaxImagesCount
	}

	plan, err := s.planner.PlanImages(ctx, title, category, excerpt)
	if err != nil {
		return nil, fmt.Errorf("plan images: %w", err)
	}

	sources := resolveMix(count, strategy)
	descriptors := make([]Descriptor, 0, count)

	for i, source := range sources {
		desc, err := s.sourceOne(ctx, plan, title, i, source)
		if err != nil {
			s.logger.Warn().Int("index", i).Str("source", source).Err(err).Msg("image sourcing failed, skipping")

			continue
		}

		descriptors = append(descriptors, desc)
	}

	return descriptors, nil
}

func (s *Service) sourceOne(ctx context.Context, plan *llm.ImagePlan, title string, index int, source string) (Descriptor, error) {
	alt := title
	prompt := promptFor(plan, index)

	if source == domain.ImagesSourceGenerative {
		url, cost, err := s.generative.Generate(ctx, prompt)
		if err != nil {
			return Descriptor{}, err
		}

		return Descriptor{URL: url, Source: domain.ImagesSourceGenerative, Prompt: prompt, Alt: alt, Cost: cost}, nil
	}

	query := stockQuery(plan, index)

	url, err := s.stock.Search(ctx, query)
	if err != nil {
		return Descriptor{}, err
	}

	return Descriptor{URL: url, Source: domain.ImagesSourceStock, Prompt: query, Alt: alt}, nil
}

// resolveMix decides which provider backs each of the count images. Two
// images always split into one stock and one generated regardless of the
// configured source; otherwise the strategy picks the provider, defaulting
// to stock.
func resolveMix(count int, strategy string) []string {
	sources := make([]string, count)

	for i := range sources {
		switch {
		case count == 2 && i == 1:
			sources[i] = domain.ImagesSourceGenerative
		case count == 2:
			sources[i] = domain.ImagesSourceStock
		case strategy == domain.ImagesSourceGenerative:
			sources[i] = domain.ImagesSourceGenerative
		default:
			sources[i] = domain.ImagesSourceStock
		}
	}

	return sources
}

func promptFor(plan *llm.ImagePlan, index int) string {
	if index == 0 {
		return plan.HeroPrompt
	}

	if n := index - 1; n < len(plan.ContentPrompts) {
		return plan.ContentPrompts[n]
	}

	return plan.HeroPrompt
}

func stockQuery(plan *llm.ImagePlan, index int) string {
	all := append(append([]string{}, plan.Tags...), plan.Keywords...)
	if len(all) == 0 {
		return plan.HeroPrompt
	}

	// Rotate the leading tag so multiple stock images differ.
	lead := all[index%len(all)]
	query := lead

	for _, tag := range plan.Tags {
		if tag != lead {
			query += " " + tag
		}
	}

	return query
}
