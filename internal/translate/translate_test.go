package translate

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/icoffio/articleflow/internal/llm"
)

type fakeLLM struct {
	llm.Client

	failLanguages map[string]bool
}

func (f *fakeLLM) Translate(_ context.Context, source llm.Translation, lang string) (*llm.Translation, error) {
	if f.failLanguages[lang] {
		return nil, errors.New("model unavailable")
	}

	return &llm.Translation{
		Title:   lang + ": " + source.Title,
		Content: lang + ": " + source.Content,
		Excerpt: lang + ": " + source.Excerpt,
	}, nil
}

var testSource = llm.Translation{
	Title:   "Chips Get Faster",
	Content: "Body paragraph one.\n\nBody paragraph two.",
	Excerpt: "A short summary.",
}

func TestTranslateAllFanOut(t *testing.T) {
	tr := New(&fakeLLM{}, zerolog.Nop(), "en", []string{"pl", "de"})

	localized := tr.TranslateAll(context.Background(), testSource)

	require.Len(t, localized, 3)
	assert.Equal(t, "Chips Get Faster", localized["en"].Title)
	assert.Equal(t, "pl: Chips Get Faster", localized["pl"].Title)
	assert.Equal(t, "de: Chips Get Faster", localized["de"].Title)
}

func TestTranslateAllFallsBackToSource(t *testing.T) {
	tr := New(&fakeLLM{failLanguages: map[string]bool{"pl": true}}, zerolog.Nop(), "en", []string{"pl"})

	localized := tr.TranslateAll(context.Background(), testSource)

	require.Len(t, localized, 2)
	assert.Equal(t, localized["en"], localized["pl"])
}

func TestCleanUnwrapsQuotes(t *testing.T) {
	out := Clean(llm.Translation{
		Title:   `"Quoted Headline"`,
		Content: "**Bold** start.",
		Excerpt: "«Wrapped excerpt»",
	})

	assert.Equal(t, "Quoted Headline", out.Title)
	assert.Equal(t, "Bold start.", out.Content)
	assert.Equal(t, "Wrapped excerpt", out.Excerpt)
}

func TestCleanTruncatesExcerptAtWordBoundary(t *testing.T) {
	long := strings.Repeat("seven wonders of the modern industrial world ", 8)

	out := Clean(llm.Translation{Title: "t", Content: "c", Excerpt: long})

	assert.LessOrEqual(t, len([]rune(out.Excerpt)), 204)
	assert.True(t, strings.HasSuffix(out.Excerpt, "..."))
	assert.NotContains(t, out.Excerpt, "  ")
}

func TestDetect(t *testing.T) {
	cases := []struct {
		name string
		text string
		want string
	}{
		{"english", "The committee said that the results are promising and the work will continue.", "en"},
		{"russian", "Компания представила новый процессор для серверных систем и центров обработки данных.", "ru"},
		{"polish diacritics", "Nowy procesor został zaprojektowany, żeby obsłużyć większą przepustowość łączy.", "pl"},
		{"german", "Der neue Prozessor ist schneller und wurde für das Rechenzentrum mit neuer Technik entwickelt.", "de"},
		{"empty", "", "en"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Detect(tc.text))
		})
	}
}
