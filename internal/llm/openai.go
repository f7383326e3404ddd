package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"github.com/icoffio/articleflow/internal/platform/config"
)

const (
	circuitBreakerThreshold = 5
	circuitBreakerTimeout   = 1 * time.Minute
)

type openaiClient struct {
	cfg         *config.Config
	client      *openai.Client
	logger      *zerolog.Logger
	rateLimiter *rate.Limiter

	// Circuit breaker state
	consecutiveFailures int
	circuitOpenUntil    time.Time
	mu                  sync.Mutex
}

func NewOpenAI(cfg *config.Config, logger *zerolog.Logger) Client {
	return &openaiClient{
		cfg:         cfg,
		client:      openai.NewClient(cfg.LLMAPIKey),
		logger:      logger,
		rateLimiter: rate.NewLimiter(rate.Limit(cfg.LLMRateLimitRPS), 5),
	}
}

func (c *openaiClient) checkCircuit() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if time.Now().Before(c.circuitOpenUntil) {
		return fmt.Errorf("circuit breaker is open until %v", c.circuitOpenUntil)
	}

	return nil
}

func (c *openaiClient) recordSuccess() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.consecutiveFailures = 0
}

func (c *openaiClient) recordFailure() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.consecutiveFailures++
	if c.consecutiveFailures >= circuitBreakerThreshold {
		c.circuitOpenUntil = time.Now().Add(circuitBreakerTimeout)
		c.logger.Warn().
			Int("consecutive_failures", c.consecutiveFailures).
			Time("open_until", c.circuitOpenUntil).
			Msg("Circuit breaker opened")
	}
}

func (c *openaiClient) Rewrite(ctx context.Context, in RewriteInput) (*RewriteOutput, error) {
	prompt := buildRewritePrompt(in, c.cfg.TransformTargetMin, c.cfg.TransformTargetMax)

	content, err := c.chatJSON(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("rewrite: %w", err)
	}

	var out RewriteOutput
	if err := json.Unmarshal([]byte(content), &out); err != nil {
		return nil, fmt.Errorf("rewrite: decode response: %w", err)
	}

	if out.Title == "" || out.Content == "" {
		return nil, fmt.Errorf("rewrite: incomplete response: %s", truncateRunes(content, 200))
	}

	out.Content = CleanArticleText(out.Content)
	out.Excerpt = strings.TrimSpace(out.Excerpt)

	return &out, nil
}

func (c *openaiClient) Translate(ctx context.Context, source Translation, targetLanguage string) (*Translation, error) {
	prompt := buildTranslatePrompt(source, targetLanguage)

	content, err := c.chatJSON(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("translate to %s: %w", targetLanguage, err)
	}

	var out Translation
	if err := json.Unmarshal([]byte(content), &out); err != nil {
		return nil, fmt.Errorf("translate to %s: decode response: %w", targetLanguage, err)
	}

	if out.Title == "" || out.Content == "" {
		return nil, fmt.Errorf("translate to %s: incomplete response", targetLanguage)
	}

	return &out, nil
}

func (c *openaiClient) TranslateTitle(ctx context.Context, title, targetLanguage string) (string, error) {
	content, err := c.chat(ctx, buildTitlePrompt(title, targetLanguage))
	if err != nil {
		return "", fmt.Errorf("translate title to %s: %w", targetLanguage, err)
	}

	return strings.TrimSpace(strings.Trim(strings.TrimSpace(content), `"`)), nil
}

func (c *openaiClient) PlanImages(ctx context.Context, title, category, excerpt string) (*ImagePlan, error) {
	content, err := c.chatJSON(ctx, buildImagePlanPrompt(title, category, excerpt))
	if err != nil {
		c.logger.Warn().Err(err).Msg("image plan request failed, using fallback")

		return fallbackImagePlan(title, category), nil
	}

	var plan ImagePlan
	if err := json.Unmarshal([]byte(content), &plan); err != nil || plan.HeroPrompt == "" {
		c.logger.Warn().Err(err).Msg("image plan response unusable, using fallback")

		return fallbackImagePlan(title, category), nil
	}

	return &plan, nil
}

func (c *openaiClient) GenerateImage(ctx context.Context, prompt, size string) (string, error) {
	if err := c.checkCircuit(); err != nil {
		return "", err
	}

	if err := c.rateLimiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter error: %w", err)
	}

	resp, err := c.client.CreateImage(ctx, openai.ImageRequest{
		Prompt: prompt,
		Model:  c.cfg.ImageModel,
		Size:   size,
		N:      1,
	})
	if err != nil {
		c.recordFailure()

		return "", fmt.Errorf("image generation error: %w", err)
	}

	c.recordSuccess()

	if len(resp.Data) == 0 {
		return "", fmt.Errorf("image generation returned no data")
	}

	return resp.Data[0].URL, nil
}

func (c *openaiClient) chatJSON(ctx context.Context, prompt string) (string, error) {
	return c.complete(ctx, prompt, &openai.ChatCompletionResponseFormat{
		Type: openai.ChatCompletionResponseFormatTypeJSONObject,
	})
}

func (c *openaiClient) chat(ctx context.Context, prompt string) (string, error) {
	return c.complete(ctx, prompt, nil)
}

func (c *openaiClient) complete(ctx context.Context, prompt string, format *openai.ChatCompletionResponseFormat) (string, error) {
	if err := c.checkCircuit(); err != nil {
		return "", err
	}

	if err := c.rateLimiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter error: %w", err)
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.cfg.LLMModel,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		ResponseFormat: format,
	})
	if err != nil {
		c.recordFailure()

		return "", fmt.Errorf("openai chat completion error: %w", err)
	}

	c.recordSuccess()

	content := resp.Choices[0].Message.Content
	c.logger.Debug().Str("content", truncateRunes(content, 500)).Msg("LLM response")

	return content, nil
}
