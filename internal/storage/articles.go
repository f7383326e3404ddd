package db

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/icoffio/articleflow/internal/core/domain"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

const (
	// Languages persisted as dedicated column groups.
	LangEN = "en"
	LangPL = "pl"
)

var articleColumns = []string{
	"id", "title", "category", "image_url", "tags", "author", "word_count",
	"featured", "published", "created_at", "updated_at",
	"slug_en", "title_en", "content_en", "excerpt_en",
	"slug_pl", "title_pl", "content_pl", "excerpt_pl",
}

func scanArticle(row pgx.Row) (*domain.Article, error) {
	var (
		a      domain.Article
		en, pl domain.LocalizedContent
	)

	if err := row.Scan(&a.ID, &a.Title, &a.Category, &a.ImageURL, &a.Tags, &a.Author,
		&a.WordCount, &a.Featured, &a.Published, &a.CreatedAt, &a.UpdatedAt,
		&en.Slug, &en.Title, &en.Content, &en.Excerpt,
		&pl.Slug, &pl.Title, &pl.Content, &pl.Excerpt); err != nil {
		return nil, err
	}

	a.Localized = make(map[string]domain.LocalizedContent, 2)

	if en.Slug != "" {
		a.Localized[LangEN] = en
	}

	if pl.Slug != "" {
		a.Localized[LangPL] = pl
	}

	return &a, nil
}

// InsertArticle writes a new physical article row.
func (db *DB) InsertArticle(ctx context.Context, a *domain.Article) error {
	en := a.Localized[LangEN]
	pl := a.Localized[LangPL]

	if _, err := db.Pool.Exec(ctx, `
		INSERT INTO articles (
			id, title, category, image_url, tags, author, word_count,
			featured, published, created_at, updated_at,
			slug_en, title_en, content_en, excerpt_en,
			slug_pl, title_pl, content_pl, excerpt_pl
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
	`, a.ID, a.Title, a.Category, a.ImageURL, a.Tags, a.Author, a.WordCount,
		a.Featured, a.Published, a.CreatedAt, a.UpdatedAt,
		en.Slug, en.Title, en.Content, en.Excerpt,
		pl.Slug, pl.Title, pl.Content, pl.Excerpt); err != nil {
		return fmt.Errorf("insert article: %w", err)
	}

	return nil
}

// UpdateArticleImage replaces the hero image in place on an existing row.
func (db *DB) UpdateArticleImage(ctx context.Context, id, imageURL string) error {
	tag, err := db.Pool.Exec(ctx, `
		UPDATE articles SET image_url = $1, updated_at = now() WHERE id = $2
	`, imageURL, id)
	if err != nil {
		return fmt.Errorf("update article image: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update article image for id %s: %w", id, pgx.ErrNoRows)
	}

	return nil
}

// ArticlesBySlug returns every physical row sharing the slug in the given
// language. The caller picks the canonical version.
func (db *DB) ArticlesBySlug(ctx context.Context, lang, slug string) ([]domain.Article, error) {
	slugColumn, err := slugColumnFor(lang)
	if err != nil {
		return nil, err
	}

	query, args, err := psql.Select(articleColumns...).
		From("articles").
		Where(sq.Eq{slugColumn: slug}).
		OrderBy("updated_at DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build slug query: %w", err)
	}

	return db.queryArticles(ctx, query, args)
}

// ArticleFilter narrows listing queries.
type ArticleFilter struct {
	Category      string
	PublishedOnly bool
	ExcludeID     string
	Limit         int
}

// ListArticles returns physical rows newest-first. Duplicate slugs are
// included; canonical selection happens on the read path above storage.
func (db *DB) ListArticles(ctx context.Context, filter ArticleFilter) ([]domain.Article, error) {
	builder := psql.Select(articleColumns...).
		From("articles").
		OrderBy("created_at DESC")

	if filter.Category != "" {
		builder = builder.Where(sq.Eq{"category": filter.Category})
	}

	if filter.PublishedOnly {
		builder = builder.Where(sq.Eq{"published": true})
	}

	if filter.ExcludeID != "" {
		builder = builder.Where(sq.NotEq{"id": filter.ExcludeID})
	}

	if filter.Limit > 0 {
		builder = builder.Limit(uint64(filter.Limit))
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list query: %w", err)
	}

	return db.queryArticles(ctx, query, args)
}

func (db *DB) queryArticles(ctx context.Context, query string, args []interface{}) ([]domain.Article, error) {
	rows, err := db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query articles: %w", err)
	}
	defer rows.Close()

	var articles []domain.Article

	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, fmt.Errorf("scan article: %w", err)
		}

		articles = append(articles, *a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate articles: %w", err)
	}

	return articles, nil
}

func slugColumnFor(lang string) (string, error) {
	switch lang {
	case LangEN:
		return "slug_en", nil
	case LangPL:
		return "slug_pl", nil
	default:
		return "", fmt.Errorf("unsupported language %q", lang)
	}
}
