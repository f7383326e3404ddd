package extract

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const articleHTML = `<!DOCTYPE html>
<html>
<head>
<title>Short</title>
<meta property="og:title" content="OG Title Wins Over Short">
<meta property="og:description" content="A summary of the piece">
<meta property="og:image" content="https://cdn.example.com/hero.jpg">
<meta property="article:published_time" content="2026-05-14T10:30:00Z">
</head>
<body>
<nav><p>Home</p><p>About</p></nav>
<article>
<h1>Quantum Computing Breaks New Ground in 2026</h1>
<p>Researchers announced a significant milestone in quantum error correction this week, surprising most of the field.</p>
<p>The new approach combines surface codes with real-time decoding, cutting logical error rates by an order of magnitude.</p>
<p>Industry observers expect commercial applications within five years, though hardware scaling challenges remain substantial.</p>
</article>
</body>
</html>`

func testService() *Service {
	return New(zerolog.Nop(), 10*time.Second, 20000)
}

func TestParseStructuredArticle(t *testing.T) {
	content, err := testService().Parse([]byte(articleHTML), "https://example.com/post")
	require.NoError(t, err)

	assert.Equal(t, "Quantum Computing Breaks New Ground in 2026", content.Title)
	require.Len(t, content.Paragraphs, 3)
	assert.Contains(t, content.Paragraphs[0], "quantum error correction")

	assert.Equal(t, "A summary of the piece", content.Description)
	assert.Equal(t, "https://cdn.example.com/hero.jpg", content.ImageURL)
	assert.Equal(t, 2026, content.PublishedAt.Year())
}

func TestParseSkipsShortParagraphs(t *testing.T) {
	page := `<html><body>
<h1>A Headline That Is Long Enough</h1>
<p>too short</p>
<p>` + longParagraph("alpha") + `</p>
<p>nav</p>
<p>` + longParagraph("beta") + `</p>
<p>` + longParagraph("gamma") + `</p>
</body></html>`

	content, err := testService().Parse([]byte(page), "https://example.com/x")
	require.NoError(t, err)
	assert.Len(t, content.Paragraphs, 3)
}

func TestParseNoContent(t *testing.T) {
	_, err := testService().Parse([]byte(`<html><body><p>hi</p></body></html>`), "https://example.com/empty")
	assert.ErrorIs(t, err, ErrNoContent)
}

func TestParseCapsContentLength(t *testing.T) {
	page := `<html><body><h1>A Headline That Is Long Enough</h1>
<p>` + longParagraph("one") + `</p>
<p>` + longParagraph("two") + `</p>
<p>` + longParagraph("three") + `</p>
<p>` + longParagraph("four") + `</p>
</body></html>`

	svc := New(zerolog.Nop(), 10*time.Second, 150)

	content, err := svc.Parse([]byte(page), "https://example.com/x")
	require.NoError(t, err)
	assert.Less(t, len(content.Paragraphs), 4)
}

func TestIsURLSubmission(t *testing.T) {
	assert.True(t, IsURLSubmission("https://example.com/article"))
	assert.True(t, IsURLSubmission("https://a.com/1 https://b.com/2"))
	assert.False(t, IsURLSubmission("check out https://a.com/1 please"))
	assert.False(t, IsURLSubmission("just some text"))
}

func TestURLs(t *testing.T) {
	urls := URLs("see https://a.com/x, then https://b.com/y.", 5)
	assert.Equal(t, []string{"https://a.com/x", "https://b.com/y"}, urls)

	many := URLs("https://a.com https://b.com https://c.com", 2)
	assert.Len(t, many, 2)
}

func longParagraph(seed string) string {
	return "The " + seed + " paragraph carries enough body text to clear the minimum length threshold used for boilerplate filtering."
}
