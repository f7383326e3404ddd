package translate

import (
	"strings"
	"unicode/utf8"

	"github.com/icoffio/articleflow/internal/llm"
)

const maxExcerptChars = 200

// Quote pairs the model sometimes wraps a whole field in.
var quotePairs = [][2]string{
	{`"`, `"`},
	{"«", "»"},
	{"“", "”"},
	{"„", "“"},
	{"'", "'"},
}

// Clean normalizes a model translation: unwraps stray quoting, strips
// markdown leftovers from the body and bounds the excerpt.
func Clean(tr llm.Translation) llm.Translation {
	tr.Title = stripWrappingQuotes(strings.TrimSpace(tr.Title))
	tr.Content = llm.CleanArticleText(tr.Content)

	excerpt := stripWrappingQuotes(strings.TrimSpace(tr.Excerpt))
	tr.Excerpt = truncateAtWord(excerpt, maxExcerptChars)

	return tr
}

func stripWrappingQuotes(s string) string {
	for _, pair := range quotePairs {
		if len(s) > len(pair[0])+len(pair[1]) &&
			strings.HasPrefix(s, pair[0]) && strings.HasSuffix(s, pair[1]) {
			return strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(s, pair[0]), pair[1]))
		}
	}

	return s
}

func truncateAtWord(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}

	runes := []rune(s)
	cut := string(runes[:max])

	if idx := strings.LastIndex(cut, " "); idx > 0 {
		cut = cut[:idx]
	}

	return strings.TrimRight(cut, " ,;:") + "..."
}
