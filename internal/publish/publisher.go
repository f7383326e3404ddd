// Package publish persists finished articles and owns the read path: every
// lookup goes through the canonical-version selector so callers never see
// two different versions of the same logical article.
package publish

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/icoffio/articleflow/internal/core/domain"
	"github.com/icoffio/articleflow/internal/llm"
	db "github.com/icoffio/articleflow/internal/storage"
)

// ErrArticleNotFound reports a lookup that matched no article rows.
var ErrArticleNotFound = errors.New("article not found")

const articleAuthor = "Telegram Bot"

// Repository is the storage surface the publisher needs.
type Repository interface {
	InsertArticle(ctx context.Context, a *domain.Article) error
	UpdateArticleImage(ctx context.Context, id, imageURL string) error
	ArticlesBySlug(ctx context.Context, lang, slug string) ([]domain.Article, error)
	ListArticles(ctx context.Context, filter db.ArticleFilter) ([]domain.Article, error)
}

// Input is everything the pipeline hands over for persistence.
type Input struct {
	Localized map[string]llm.Translation
	Pivot     string
	Category  string
	Tags      []string
	ImageURL  string
	Published bool
}

type Publisher struct {
	repo        Repository
	logger      zerolog.Logger
	siteBaseURL string
}

func New(repo Repository, logger zerolog.Logger, siteBaseURL string) *Publisher {
	return &Publisher{
		repo:        repo,
		logger:      logger.With().Str("component", "publish").Logger(),
		siteBaseURL: strings.TrimRight(siteBaseURL, "/"),
	}
}

// Publish writes a new article row covering every language in the input.
func (p *Publisher) Publish(ctx context.Context, in Input) (*domain.Article, error) {
	pivot, ok := in.Localized[in.Pivot]
	if !ok {
		return nil, fmt.Errorf("publish: missing pivot language %q", in.Pivot)
	}

	now := time.Now().UTC()
	article := &domain.Article{
		ID:        uuid.New().String(),
		Title:     pivot.Title,
		Category:  in.Category,
		ImageURL:  in.ImageURL,
		Tags:      in.Tags,
		Author:    articleAuthor,
		WordCount: len(strings.Fields(pivot.Content)),
		Published: in.Published,
		CreatedAt: now,
		UpdatedAt: now,
		Localized: make(map[string]domain.LocalizedContent, len(in.Localized)),
	}

	for lang, tr := range in.Localized {
		article.Localized[lang] = domain.LocalizedContent{
			Slug:    Slugify(pivot.Title, lang),
			Title:   tr.Title,
			Content: tr.Content,
			Excerpt: tr.Excerpt,
		}
	}

	if err := p.repo.InsertArticle(ctx, article); err != nil {
		return nil, fmt.Errorf("publish article: %w", err)
	}

	p.logger.Info().
		Str("article_id", article.ID).
		Str("category", article.Category).
		Bool("published", article.Published).
		Msg("article persisted")

	return article, nil
}

// ReplaceImage swaps the hero image of an existing article in place.
func (p *Publisher) ReplaceImage(ctx context.Context, articleID, imageURL string) error {
	if err := p.repo.UpdateArticleImage(ctx, articleID, imageURL); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrArticleNotFound
		}

		return fmt.Errorf("replace image for %s: %w", articleID, err)
	}

	return nil
}

// GetBySlug returns the canonical version for a slug in one language.
func (p *Publisher) GetBySlug(ctx context.Context, lang, slug string) (*domain.Article, error) {
	group, err := p.repo.ArticlesBySlug(ctx, lang, slug)
	if err != nil {
		return nil, fmt.Errorf("lookup slug %s: %w", slug, err)
	}

	canonical := SelectCanonical(group, lang)
	if canonical == nil {
		return nil, fmt.Errorf("%w: %s/%s", ErrArticleNotFound, lang, slug)
	}

	return canonical, nil
}

// List returns canonical articles, newest first, one per slug.
func (p *Publisher) List(ctx context.Context, lang, category string, limit int) ([]domain.Article, error) {
	rows, err := p.repo.ListArticles(ctx, db.ArticleFilter{
		Category:      category,
		PublishedOnly: true,
	})
	if err != nil {
		return nil, fmt.Errorf("list articles: %w", err)
	}

	deduped := DedupGroups(rows, lang)
	if limit > 0 && len(deduped) > limit {
		deduped = deduped[:limit]
	}

	return deduped, nil
}

// Related returns canonical articles sharing the category, excluding the
// article itself. An empty category falls back to the most recent articles
// so callers always get something to show.
func (p *Publisher) Related(ctx context.Context, lang, slug string, limit int) ([]domain.Article, error) {
	current, err := p.GetBySlug(ctx, lang, slug)
	if err != nil {
		return nil, err
	}

	rows, err := p.repo.ListArticles(ctx, db.ArticleFilter{
		Category:      current.Category,
		PublishedOnly: true,
		ExcludeID:     current.ID,
	})
	if err != nil {
		return nil, fmt.Errorf("list related: %w", err)
	}

	related := excludeSlug(DedupGroups(rows, lang), lang, slug)

	if len(related) == 0 {
		recent, err := p.repo.ListArticles(ctx, db.ArticleFilter{
			PublishedOnly: true,
			ExcludeID:     current.ID,
		})
		if err != nil {
			return nil, fmt.Errorf("list recent: %w", err)
		}

		related = excludeSlug(DedupGroups(recent, lang), lang, slug)
	}

	if limit > 0 && len(related) > limit {
		related = related[:limit]
	}

	return related, nil
}

// URL builds the public link for one language version.
func (p *Publisher) URL(lang, slug string) string {
	return fmt.Sprintf("%s/%s/article/%s", p.siteBaseURL, lang, slug)
}

func excludeSlug(articles []domain.Article, lang, slug string) []domain.Article {
	out := articles[:0]

	for _, a := range articles {
		if a.Localized[lang].Slug != slug {
			out = append(out, a)
		}
	}

	return out
}
