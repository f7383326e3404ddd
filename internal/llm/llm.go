// Package llm wraps the chat-completion provider behind a small client
// interface: article rewriting, translation, image planning and image
// generation. A deterministic mock backs local runs without an API key.
package llm

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/icoffio/articleflow/internal/platform/config"
)

// RewriteInput is the source material for the transform stage.
type RewriteInput struct {
	Title         string
	Text          string
	Style         string
	StyleOverride string
	SourceURL     string
}

// RewriteOutput is the structured article the model returns.
type RewriteOutput struct {
	Title    string   `json:"title"`
	Content  string   `json:"content"`
	Excerpt  string   `json:"excerpt"`
	Category string   `json:"category"`
	Tags     []string `json:"tags"`
}

// Translation is a title/content/excerpt triple in one language.
type Translation struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	Excerpt string `json:"excerpt"`
}

// ImagePlan is the shared smart-prompt output consumed by both image
// strategies, so stock and generated images stay thematically consistent.
type ImagePlan struct {
	HeroPrompt     string   `json:"hero_prompt"`
	ContentPrompts []string `json:"content_prompts"`
	Tags           []string `json:"tags"`
	Keywords       []string `json:"keywords"`
	VisualStyle    string   `json:"visual_style"`
	ColorPalette   string   `json:"color_palette"`
}

type Client interface {
	Rewrite(ctx context.Context, in RewriteInput) (*RewriteOutput, error)
	Translate(ctx context.Context, source Translation, targetLanguage string) (*Translation, error)
	TranslateTitle(ctx context.Context, title, targetLanguage string) (string, error)
	PlanImages(ctx context.Context, title, category, excerpt string) (*ImagePlan, error)
	GenerateImage(ctx context.Context, prompt, size string) (string, error)
}

func New(cfg *config.Config, logger *zerolog.Logger) Client {
	if cfg.LLMAPIKey == "" || cfg.LLMAPIKey == "mock" {
		return &mockClient{cfg: cfg}
	}

	return NewOpenAI(cfg, logger)
}

type mockClient struct {
	cfg *config.Config
}

func (c *mockClient) Rewrite(_ context.Context, in RewriteInput) (*RewriteOutput, error) {
	return &RewriteOutput{
		Title:    in.Title,
		Content:  in.Text,
		Excerpt:  truncateRunes(in.Text, 200),
		Category: "Technology",
		Tags:     []string{"news"},
	}, nil
}

func (c *mockClient) Translate(_ context.Context, source Translation, targetLanguage string) (*Translation, error) {
	prefix := "[" + targetLanguage + "] "

	return &Translation{
		Title:   prefix + source.Title,
		Content: prefix + source.Content,
		Excerpt: prefix + source.Excerpt,
	}, nil
}

func (c *mockClient) TranslateTitle(_ context.Context, title, targetLanguage string) (string, error) {
	return "[" + targetLanguage + "] " + title, nil
}

func (c *mockClient) PlanImages(_ context.Context, title, category, _ string) (*ImagePlan, error) {
	return fallbackImagePlan(title, category), nil
}

func (c *mockClient) GenerateImage(_ context.Context, prompt, _ string) (string, error) {
	slug := strings.ReplaceAll(strings.ToLower(truncateRunes(prompt, 24)), " ", "-")

	return fmt.Sprintf("https://placehold.example/%s.png", slug), nil
}

func truncateRunes(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}

	runes := []rune(s)

	return string(runes[:max]) + "..."
}
