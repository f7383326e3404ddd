// Package domain holds the core types shared between storage, the queue,
// the pipeline and the gateways.
package domain

import "time"

// Job is a unit of work in the durable queue. It is owned by the queue:
// all mutations go through conditional updates keyed by the current status.
type Job struct {
	ID          string
	Type        string
	Status      string
	Payload     []byte // submission payload, JSON
	Result      []byte // pipeline result, JSON
	Error       string
	Retries     int
	MaxRetries  int
	CreatedAt   time.Time
	StartedAt   *time.Time
	CompletedAt *time.Time
}

// Job status constants. Transitions only along
// pending -> processing -> {completed, pending (retry), failed}.
const (
	JobStatusPending    = "pending"
	JobStatusProcessing = "processing"
	JobStatusCompleted  = "completed"
	JobStatusFailed     = "failed"
)

// JobTypeSubmission is the only job type the pipeline currently consumes.
const JobTypeSubmission = "submission"

// SubmissionPayload is embedded in Job.Payload. Immutable once enqueued.
type SubmissionPayload struct {
	ChatID       int64        `json:"chat_id"`
	UserID       int64        `json:"user_id"`
	Username     string       `json:"username,omitempty"`
	LanguageCode string       `json:"language_code,omitempty"`
	RawText      string       `json:"raw_text"`
	URL          string       `json:"url,omitempty"`
	SubmissionID string       `json:"submission_id,omitempty"`
	Settings     *Preferences `json:"settings_override,omitempty"`
}

// JobResult is stored on Job.Result after a successful pipeline run.
type JobResult struct {
	ArticleID  string            `json:"article_id"`
	Title      string            `json:"title"`
	Category   string            `json:"category"`
	WordCount  int               `json:"word_count"`
	Languages  []string          `json:"languages"`
	URLs       map[string]string `json:"urls"`
	Published  bool              `json:"published"`
	DurationMS int64             `json:"duration_ms"`
}

// Preferences are per-chat submitter settings. Created lazily with defaults
// on first lookup, never deleted.
type Preferences struct {
	ChatID            int64
	ContentStyle      string
	StyleOverride     string
	ImagesCount       int
	ImagesSource      string
	AutoPublish       bool
	InterfaceLanguage string
	UpdatedAt         time.Time
}

// Content styles for the rewrite stage. Closed set: unknown values are
// rejected at the settings boundary, not silently passed to the model.
const (
	StyleJournalistic = "journalistic"
	StyleTechnical    = "technical"
	StyleCasual       = "casual"
	StyleAcademic     = "academic"
	StyleSEOOptimized = "seo_optimized"
	StyleKeepAsIs     = "keep_as_is"
)

// ContentStyles lists every accepted style.
var ContentStyles = []string{
	StyleJournalistic, StyleTechnical, StyleCasual,
	StyleAcademic, StyleSEOOptimized, StyleKeepAsIs,
}

// IsValidStyle reports whether s is one of the accepted content styles.
func IsValidStyle(s string) bool {
	for _, style := range ContentStyles {
		if s == style {
			return true
		}
	}

	return false
}

// Image source strategies.
const (
	ImagesSourceStock      = "stock"
	ImagesSourceGenerative = "generative"
	ImagesSourceNone       = "none"
)

// MaxImagesCount bounds the per-article image request.
const MaxImagesCount = 3

// Article is one physical row of a published article. Several rows may share
// a per-language slug; the logical article is chosen by the dedup selector
// on the read path.
type Article struct {
	ID        string
	Title     string
	Category  string
	ImageURL  string
	Tags      []string
	Author    string
	WordCount int
	Featured  bool
	Published bool
	CreatedAt time.Time
	UpdatedAt time.Time

	// Per-language content, keyed by language code ("en", "pl").
	Localized map[string]LocalizedContent
}

// LocalizedContent is the per-language portion of an article.
type LocalizedContent struct {
	Slug    string
	Title   string
	Content string
	Excerpt string
}

// Submission is an audit-log row for a single intake. Best-effort side
// channel: writes may fail without affecting the job.
type Submission struct {
	ID         string
	ChatID     int64
	UserID     int64
	Username   string
	Type       string // "url" or "text"
	Content    string
	Status     string
	JobID      string
	Title      string
	URLs       map[string]string
	Error      string
	DurationMS int64
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Submission types and statuses.
const (
	SubmissionTypeURL  = "url"
	SubmissionTypeText = "text"

	SubmissionStatusQueued    = "queued"
	SubmissionStatusPublished = "published"
	SubmissionStatusFailed    = "failed"
)
