// Package pipeline sequences the processing stages for one submission job:
// settings, classification, extraction, rewrite, translation, images,
// persistence and notification. It is the only component that talks to all
// of them.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/icoffio/articleflow/internal/core/domain"
	"github.com/icoffio/articleflow/internal/extract"
	"github.com/icoffio/articleflow/internal/images"
	"github.com/icoffio/articleflow/internal/llm"
	"github.com/icoffio/articleflow/internal/publish"
	"github.com/icoffio/articleflow/internal/translate"
)

// Stage names used in job errors and logs.
const (
	StageSettings  = "settings"
	StageExtract   = "extract"
	StageTransform = "transform"
	StageTranslate = "translate"
	StageImages    = "images"
	StagePersist   = "persist"
	StageNotify    = "notify"
)

// StageError tags a failure with the stage it happened in. The tag becomes
// the job's error message, so operators see where processing stopped.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string { return e.Stage + ": " + e.Err.Error() }

func (e *StageError) Unwrap() error { return e.Err }

func stageErr(stage string, err error) *StageError {
	return &StageError{Stage: stage, Err: err}
}

// Settings resolves effective preferences for a chat.
type Settings interface {
	Resolve(ctx context.Context, chatID int64) (domain.Preferences, error)
}

// Extractor pulls title and paragraphs out of a URL.
type Extractor interface {
	FromURL(ctx context.Context, rawURL string) (*extract.Content, error)
}

// Translator fans an article out to the configured languages.
type Translator interface {
	Languages() []string
	TranslateAll(ctx context.Context, source llm.Translation) map[string]llm.Translation
}

// ImageSourcer returns image descriptors for an article.
type ImageSourcer interface {
	Source(ctx context.Context, title, category, excerpt string, count int, strategy string) ([]images.Descriptor, error)
}

// Publisher persists the finished article and builds its public links.
type Publisher interface {
	Publish(ctx context.Context, in publish.Input) (*domain.Article, error)
	URL(lang, slug string) string
}

// Notifier reports the outcome back to the submission origin. Best effort:
// errors are logged, never returned to the queue.
type Notifier interface {
	NotifySuccess(ctx context.Context, payload domain.SubmissionPayload, result *domain.JobResult) error
	NotifyFailure(ctx context.Context, payload domain.SubmissionPayload, message string) error
}

// Auditor updates the submission audit row. Best effort side channel.
type Auditor interface {
	UpdateSubmissionOutcome(ctx context.Context, s *domain.Submission) error
}

type Orchestrator struct {
	settings   Settings
	extractor  Extractor
	rewriter   llm.Client
	translator Translator
	images     ImageSourcer
	publisher  Publisher
	notifier   Notifier
	auditor    Auditor
	logger     zerolog.Logger

	pivot string
}

type Deps struct {
	Settings   Settings
	Extractor  Extractor
	Rewriter   llm.Client
	Translator Translator
	Images     ImageSourcer
	Publisher  Publisher
	Notifier   Notifier
	Auditor    Auditor
	Pivot      string
}

func New(deps Deps, logger zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		settings:   deps.Settings,
		extractor:  deps.Extractor,
		rewriter:   deps.Rewriter,
		translator: deps.Translator,
		images:     deps.Images,
		publisher:  deps.Publisher,
		notifier:   deps.Notifier,
		auditor:    deps.Auditor,
		logger:     logger.With().Str("component", "pipeline").Logger(),
		pivot:      deps.Pivot,
	}
}

// Process runs every stage for a claimed job. On success the article is
// persisted and the origin notified; on failure the returned StageError
// becomes the job error and the queue decides between requeue and terminal
// failure. Nothing is persisted on a failed run.
func (o *Orchestrator) Process(ctx context.Context, job *domain.Job) (*domain.JobResult, error) {
	started := time.Now()

	var payload domain.SubmissionPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return nil, stageErr(StageSettings, fmt.Errorf("decode payload: %w", err))
	}

	logger := o.logger.With().Str("job_id", job.ID).Int64("chat_id", payload.ChatID).Logger()

	prefs, err := o.resolveSettings(ctx, payload)
	if err != nil {
		return nil, err
	}

	content, err := o.obtainContent(ctx, payload)
	if err != nil {
		o.notifyFailure(ctx, job, payload, err)

		return nil, err
	}

	article, err := o.transform(ctx, job, prefs, content)
	if err != nil {
		o.notifyFailure(ctx, job, payload, err)

		return nil, err
	}

	localized := o.translator.TranslateAll(ctx, llm.Translation{
		Title:   article.Title,
		Content: article.Content,
		Excerpt: article.Excerpt,
	})

	descriptors, err := o.images.Source(ctx, article.Title, article.Category, article.Excerpt, prefs.ImagesCount, prefs.ImagesSource)
	if err != nil {
		o.notifyFailure(ctx, job, payload, stageErr(StageImages, err))

		return nil, stageErr(StageImages, err)
	}

	heroURL := ""

	if len(descriptors) > 0 {
		heroURL = descriptors[0].URL
		localized = insertContentImages(localized, descriptors[1:])
	}

	published, err := o.publisher.Publish(ctx, publish.Input{
		Localized: localized,
		Pivot:     o.pivot,
		Category:  article.Category,
		Tags:      article.Tags,
		ImageURL:  heroURL,
		Published: prefs.AutoPublish,
	})
	if err != nil {
		o.notifyFailure(ctx, job, payload, stageErr(StagePersist, err))

		return nil, stageErr(StagePersist, err)
	}

	result := &domain.JobResult{
		ArticleID:  published.ID,
		Title:      published.Title,
		Category:   published.Category,
		WordCount:  published.WordCount,
		Languages:  o.translator.Languages(),
		URLs:       make(map[string]string, len(published.Localized)),
		Published:  published.Published,
		DurationMS: time.Since(started).Milliseconds(),
	}

	for lang, loc := range published.Localized {
		result.URLs[lang] = o.publisher.URL(lang, loc.Slug)
	}

	o.recordOutcome(ctx, payload, result, nil)

	if err := o.notifier.NotifySuccess(ctx, payload, result); err != nil {
		logger.Warn().Err(err).Msg("success notification failed")
	}

	logger.Info().
		Str("article_id", result.ArticleID).
		Int64("duration_ms", result.DurationMS).
		Msg("job processed")

	return result, nil
}

func (o *Orchestrator) resolveSettings(ctx context.Context, payload domain.SubmissionPayload) (domain.Preferences, error) {
	if payload.Settings != nil {
		return *payload.Settings, nil
	}

	prefs, err := o.settings.Resolve(ctx, payload.ChatID)
	if err != nil {
		return domain.Preferences{}, stageErr(StageSettings, err)
	}

	return prefs, nil
}

// obtainContent classifies the submission and runs extraction for URLs.
// Raw text passes through unchanged.
func (o *Orchestrator) obtainContent(ctx context.Context, payload domain.SubmissionPayload) (*extract.Content, error) {
	rawURL := payload.URL
	if rawURL == "" && extract.IsURLSubmission(payload.RawText) {
		if urls := extract.URLs(payload.RawText, 1); len(urls) > 0 {
			rawURL = urls[0]
		}
	}

	if rawURL != "" {
		content, err := o.extractor.FromURL(ctx, rawURL)
		if err != nil {
			return nil, stageErr(StageExtract, err)
		}

		return content, nil
	}

	text := strings.TrimSpace(payload.RawText)

	o.logger.Debug().
		Str("language", translate.Detect(text)).
		Msg("raw text submission")

	return &extract.Content{Paragraphs: strings.Split(text, "\n\n")}, nil
}

func (o *Orchestrator) transform(ctx context.Context, job *domain.Job, prefs domain.Preferences, content *extract.Content) (*llm.RewriteOutput, error) {
	out, err := o.rewriter.Rewrite(ctx, llm.RewriteInput{
		Title:         content.Title,
		Text:          content.Text(),
		Style:         prefs.ContentStyle,
		StyleOverride: prefs.StyleOverride,
		SourceURL:     content.SourceURL,
	})
	if err != nil {
		// The raw text is an acceptable article on the last attempt;
		// earlier attempts requeue and try the model again.
		if job.Retries >= job.MaxRetries {
			o.logger.Warn().Str("job_id", job.ID).Err(err).Msg("transform failed on final attempt, using raw content")

			return fallbackArticle(content), nil
		}

		return nil, stageErr(StageTransform, err)
	}

	if llm.TitleNeedsTranslation(out.Title) {
		translated, terr := o.rewriter.TranslateTitle(ctx, out.Title, o.pivot)
		if terr == nil && translated != "" {
			out.Title = translated
		}
	}

	return out, nil
}

func fallbackArticle(content *extract.Content) *llm.RewriteOutput {
	text := llm.CleanArticleText(content.Text())

	title := content.Title
	if title == "" {
		title = firstWords(text, 10)
	}

	return &llm.RewriteOutput{
		Title:    title,
		Content:  text,
		Excerpt:  firstWords(text, 30),
		Category: "News",
		Tags:     []string{"news"},
	}
}

func insertContentImages(localized map[string]llm.Translation, descriptors []images.Descriptor) map[string]llm.Translation {
	if len(descriptors) == 0 {
		return localized
	}

	for lang, tr := range localized {
		tr.Content = images.InsertIntoContent(tr.Content, descriptors)
		localized[lang] = tr
	}

	return localized
}

// notifyFailure reports terminal failures to the origin. Attempts that
// still have retries left fail silently and run again.
func (o *Orchestrator) notifyFailure(ctx context.Context, job *domain.Job, payload domain.SubmissionPayload, cause error) {
	if job.Retries < job.MaxRetries {
		return
	}

	o.recordOutcome(ctx, payload, nil, cause)

	if err := o.notifier.NotifyFailure(ctx, payload, cause.Error()); err != nil {
		o.logger.Warn().Err(err).Msg("failure notification failed")
	}
}

func (o *Orchestrator) recordOutcome(ctx context.Context, payload domain.SubmissionPayload, result *domain.JobResult, cause error) {
	if o.auditor == nil || payload.SubmissionID == "" {
		return
	}

	submission := &domain.Submission{
		ID:     payload.SubmissionID,
		Status: domain.SubmissionStatusPublished,
	}

	if cause != nil {
		submission.Status = domain.SubmissionStatusFailed
		submission.Error = cause.Error()
	} else if result != nil {
		submission.Title = result.Title
		submission.URLs = result.URLs
		submission.DurationMS = result.DurationMS
	}

	if err := o.auditor.UpdateSubmissionOutcome(ctx, submission); err != nil {
		o.logger.Warn().Str("submission_id", payload.SubmissionID).Err(err).Msg("audit update failed")
	}
}

func firstWords(text string, n int) string {
	words := strings.Fields(text)
	if len(words) > n {
		words = words[:n]
	}

	return strings.Join(words, " ")
}
