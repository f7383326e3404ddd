package publish

import (
	"strings"
	"time"

	"github.com/icoffio/articleflow/internal/core/domain"
)

const maxScoredContentChars = 5000

// Hero URLs carrying these markers are stand-ins, not editorially chosen
// images, and earn no custom-image bonus.
var defaultImageMarkers = []string{"placehold", "/default"}

// Score rates one physical row for canonical selection. The score is
// additive: a long body with an excerpt can outrank a short row with a
// custom image.
func Score(a *domain.Article, lang string) int {
	loc := a.Localized[lang]
	score := 0

	if isCustomImage(a.ImageURL) {
		score += 100
	}

	contentLen := len(loc.Content)
	if contentLen > maxScoredContentChars {
		contentLen = maxScoredContentChars
	}

	score += contentLen / 50

	if loc.Excerpt != "" {
		score += 10
	}

	if a.Featured {
		score += 2
	}

	return score
}

// SelectCanonical picks the winning version from a slug group. Total over
// non-empty input: ties go to the most recently touched row.
func SelectCanonical(group []domain.Article, lang string) *domain.Article {
	if len(group) == 0 {
		return nil
	}

	best := &group[0]
	bestScore := Score(best, lang)

	for i := 1; i < len(group); i++ {
		candidate := &group[i]
		score := Score(candidate, lang)

		if score > bestScore || (score == bestScore && touchedAt(candidate).After(touchedAt(best))) {
			best = candidate
			bestScore = score
		}
	}

	return best
}

// DedupGroups collapses a listing to one canonical row per slug, preserving
// the original order of first appearance.
func DedupGroups(articles []domain.Article, lang string) []domain.Article {
	groups := make(map[string][]domain.Article)
	order := make([]string, 0, len(articles))

	for _, a := range articles {
		slug := a.Localized[lang].Slug
		if _, seen := groups[slug]; !seen {
			order = append(order, slug)
		}

		groups[slug] = append(groups[slug], a)
	}

	out := make([]domain.Article, 0, len(order))

	for _, slug := range order {
		out = append(out, *SelectCanonical(groups[slug], lang))
	}

	return out
}

func isCustomImage(url string) bool {
	if url == "" {
		return false
	}

	for _, marker := range defaultImageMarkers {
		if strings.Contains(url, marker) {
			return false
		}
	}

	return true
}

func touchedAt(a *domain.Article) time.Time {
	if !a.UpdatedAt.IsZero() {
		return a.UpdatedAt
	}

	return a.CreatedAt
}
