// Package api exposes the read side over HTTP: job status, submission
// history and the published articles with dedup applied by the publisher.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/icoffio/articleflow/internal/core/domain"
	"github.com/icoffio/articleflow/internal/publish"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100

	defaultLanguage = "en"
)

// JobReader looks up a single job by its public identifier.
type JobReader interface {
	Job(ctx context.Context, id string) (*domain.Job, error)
}

// SubmissionReader lists recent intake audit rows.
type SubmissionReader interface {
	RecentSubmissions(ctx context.Context, chatID int64, limit int) ([]domain.Submission, error)
}

// ArticleService is the dedup-aware read path plus the in-place hero image
// swap.
type ArticleService interface {
	GetBySlug(ctx context.Context, lang, slug string) (*domain.Article, error)
	List(ctx context.Context, lang, category string, limit int) ([]domain.Article, error)
	Related(ctx context.Context, lang, slug string, limit int) ([]domain.Article, error)
	ReplaceImage(ctx context.Context, articleID, imageURL string) error
}

type Handler struct {
	jobs        JobReader
	submissions SubmissionReader
	articles    ArticleService
	logger      zerolog.Logger
}

func New(jobs JobReader, submissions SubmissionReader, articles ArticleService, logger *zerolog.Logger) *Handler {
	return &Handler{
		jobs:        jobs,
		submissions: submissions,
		articles:    articles,
		logger:      logger.With().Str("component", "api").Logger(),
	}
}

// Router builds the chi route tree. Mounted under the root by the
// observability server next to /healthz and /metrics.
func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Route("/api", func(r chi.Router) {
		r.Get("/jobs/{id}", h.getJob)
		r.Get("/submissions", h.listSubmissions)
		r.Get("/articles", h.listArticles)
		r.Get("/articles/{slug}", h.getArticle)
		r.Get("/articles/{slug}/related", h.relatedArticles)
		r.Put("/articles/{id}/image", h.replaceImage)
	})

	return r
}

type jobResponse struct {
	ID          string            `json:"id"`
	Type        string            `json:"type"`
	Status      string            `json:"status"`
	Retries     int               `json:"retries"`
	MaxRetries  int               `json:"max_retries"`
	Error       string            `json:"error,omitempty"`
	Result      *domain.JobResult `json:"result,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	CompletedAt *time.Time        `json:"completed_at,omitempty"`
}

func (h *Handler) getJob(w http.ResponseWriter, r *http.Request) {
	job, err := h.jobs.Job(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, http.StatusNotFound, "job not found")
		return
	}

	resp := jobResponse{
		ID:          job.ID,
		Type:        job.Type,
		Status:      job.Status,
		Retries:     job.Retries,
		MaxRetries:  job.MaxRetries,
		Error:       job.Error,
		CreatedAt:   job.CreatedAt,
		CompletedAt: job.CompletedAt,
	}

	if len(job.Result) > 0 {
		var result domain.JobResult
		if err := json.Unmarshal(job.Result, &result); err == nil {
			resp.Result = &result
		}
	}

	h.writeJSON(w, http.StatusOK, resp)
}

type submissionResponse struct {
	ID         string            `json:"id"`
	ChatID     int64             `json:"chat_id"`
	Type       string            `json:"type"`
	Status     string            `json:"status"`
	JobID      string            `json:"job_id,omitempty"`
	Title      string            `json:"title,omitempty"`
	URLs       map[string]string `json:"urls,omitempty"`
	Error      string            `json:"error,omitempty"`
	DurationMS int64             `json:"duration_ms,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
}

func (h *Handler) listSubmissions(w http.ResponseWriter, r *http.Request) {
	var chatID int64
	if raw := r.URL.Query().Get("chat_id"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "chat_id must be an integer")
			return
		}
		chatID = parsed
	}

	submissions, err := h.submissions.RecentSubmissions(r.Context(), chatID, h.limit(r))
	if err != nil {
		h.logger.Error().Err(err).Msg("list submissions")
		h.writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	resp := make([]submissionResponse, 0, len(submissions))
	for _, s := range submissions {
		resp = append(resp, submissionResponse{
			ID:         s.ID,
			ChatID:     s.ChatID,
			Type:       s.Type,
			Status:     s.Status,
			JobID:      s.JobID,
			Title:      s.Title,
			URLs:       s.URLs,
			Error:      s.Error,
			DurationMS: s.DurationMS,
			CreatedAt:  s.CreatedAt,
		})
	}

	h.writeJSON(w, http.StatusOK, resp)
}

type articleResponse struct {
	ID        string    `json:"id"`
	Slug      string    `json:"slug"`
	Title     string    `json:"title"`
	Excerpt   string    `json:"excerpt,omitempty"`
	Content   string    `json:"content,omitempty"`
	Category  string    `json:"category"`
	ImageURL  string    `json:"image_url,omitempty"`
	Tags      []string  `json:"tags,omitempty"`
	Author    string    `json:"author,omitempty"`
	WordCount int       `json:"word_count"`
	Published bool      `json:"published"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toArticleResponse(a *domain.Article, lang string, includeContent bool) articleResponse {
	resp := articleResponse{
		ID:        a.ID,
		Category:  a.Category,
		ImageURL:  a.ImageURL,
		Tags:      a.Tags,
		Author:    a.Author,
		WordCount: a.WordCount,
		Published: a.Published,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}

	if localized, ok := a.Localized[lang]; ok {
		resp.Slug = localized.Slug
		resp.Title = localized.Title
		resp.Excerpt = localized.Excerpt
		if includeContent {
			resp.Content = localized.Content
		}
	}
	if resp.Title == "" {
		resp.Title = a.Title
	}

	return resp
}

func (h *Handler) listArticles(w http.ResponseWriter, r *http.Request) {
	lang := h.lang(r)

	articles, err := h.articles.List(r.Context(), lang, r.URL.Query().Get("category"), h.limit(r))
	if err != nil {
		h.logger.Error().Err(err).Msg("list articles")
		h.writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	resp := make([]articleResponse, 0, len(articles))
	for i := range articles {
		resp = append(resp, toArticleResponse(&articles[i], lang, false))
	}

	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) getArticle(w http.ResponseWriter, r *http.Request) {
	lang := h.lang(r)

	article, err := h.articles.GetBySlug(r.Context(), lang, chi.URLParam(r, "slug"))
	if err != nil {
		if errors.Is(err, publish.ErrArticleNotFound) {
			h.writeError(w, http.StatusNotFound, "article not found")
			return
		}

		h.logger.Error().Err(err).Msg("get article")
		h.writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	h.writeJSON(w, http.StatusOK, toArticleResponse(article, lang, true))
}

func (h *Handler) relatedArticles(w http.ResponseWriter, r *http.Request) {
	lang := h.lang(r)

	articles, err := h.articles.Related(r.Context(), lang, chi.URLParam(r, "slug"), h.limit(r))
	if err != nil {
		h.logger.Error().Err(err).Msg("related articles")
		h.writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	resp := make([]articleResponse, 0, len(articles))
	for i := range articles {
		resp = append(resp, toArticleResponse(&articles[i], lang, false))
	}

	h.writeJSON(w, http.StatusOK, resp)
}

type replaceImageRequest struct {
	ImageURL string `json:"image_url"`
}

func (h *Handler) replaceImage(w http.ResponseWriter, r *http.Request) {
	var req replaceImageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if !strings.HasPrefix(req.ImageURL, "http://") && !strings.HasPrefix(req.ImageURL, "https://") {
		h.writeError(w, http.StatusBadRequest, "image_url must be an absolute URL")
		return
	}

	if err := h.articles.ReplaceImage(r.Context(), chi.URLParam(r, "id"), req.ImageURL); err != nil {
		if errors.Is(err, publish.ErrArticleNotFound) {
			h.writeError(w, http.StatusNotFound, "article not found")
			return
		}

		h.logger.Error().Err(err).Msg("replace image")
		h.writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (h *Handler) lang(r *http.Request) string {
	if lang := r.URL.Query().Get("lang"); lang != "" {
		return lang
	}

	return defaultLanguage
}

func (h *Handler) limit(r *http.Request) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return defaultListLimit
	}

	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return defaultListLimit
	}
	if n > maxListLimit {
		return maxListLimit
	}

	return n
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Warn().Err(err).Msg("encode response")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
