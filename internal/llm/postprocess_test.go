package llm

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanArticleTextStripsMarkdown(t *testing.T) {
	in := "## The Heading\n\nSome **bold** claim with a [link](https://example.com) and `code`.\n\n*Emphasis* stays as text."

	out := CleanArticleText(in)

	assert.Equal(t, "The Heading\n\nSome bold claim with a link and code.\n\nEmphasis stays as text.", out)
}

func TestCleanArticleTextDropsPromoLines(t *testing.T) {
	in := "Real first paragraph with substance.\n\nSubscribe to our channel for more!\n\nReal second paragraph.\n\nStay tuned for updates."

	out := CleanArticleText(in)

	assert.Contains(t, out, "Real first paragraph")
	assert.Contains(t, out, "Real second paragraph")
	assert.NotContains(t, out, "Subscribe")
	assert.NotContains(t, out, "Stay tuned")
}

func TestCleanArticleTextNormalizesBreaks(t *testing.T) {
	out := CleanArticleText("one\n\n\n\ntwo")

	assert.Equal(t, "one\n\ntwo", out)
	assert.False(t, strings.Contains(out, "\n\n\n"))
}

func TestTitleNeedsTranslation(t *testing.T) {
	assert.False(t, TitleNeedsTranslation("Apple Announces New Chip"))
	assert.True(t, TitleNeedsTranslation("Новый процессор от Apple"))
	assert.False(t, TitleNeedsTranslation(""))
}

func TestFallbackImagePlan(t *testing.T) {
	plan := fallbackImagePlan("Quantum Leap", "Science")

	assert.Contains(t, plan.HeroPrompt, "Quantum Leap")
	assert.Len(t, plan.ContentPrompts, 2)
	assert.NotEmpty(t, plan.Tags)
	assert.NotEmpty(t, plan.VisualStyle)
}

func TestBuildRewritePromptIncludesOverride(t *testing.T) {
	prompt := buildRewritePrompt(RewriteInput{
		Title:         "Hello",
		Text:          "Body",
		Style:         "technical",
		StyleOverride: "mention the vendor once",
	}, 400, 600)

	assert.Contains(t, prompt, "precise technical style")
	assert.Contains(t, prompt, "mention the vendor once")
	assert.Contains(t, prompt, "400-600 words")
}
