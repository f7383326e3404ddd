package llm

import (
	"fmt"
	"strings"

	"github.com/icoffio/articleflow/internal/core/domain"
)

func styleInstruction(style string) string {
	switch style {
	case domain.StyleJournalistic:
		return "Write in a clear journalistic style: inverted pyramid, factual, engaging lede, short paragraphs."
	case domain.StyleTechnical:
		return "Write in a precise technical style: accurate terminology, structured explanations, no hype."
	case domain.StyleCasual:
		return "Write in a conversational, accessible tone, as if explaining to a curious friend."
	case domain.StyleAcademic:
		return "Write in a formal academic style: measured claims, careful qualifications, neutral register."
	case domain.StyleSEOOptimized:
		return "Write for search visibility: descriptive headings in mind, keyword-rich but natural phrasing, scannable paragraphs."
	case domain.StyleKeepAsIs:
		return "Preserve the original wording as much as possible. Only fix obvious errors and normalize formatting."
	default:
		return "Write in a clear journalistic style."
	}
}

func buildRewritePrompt(in RewriteInput, wordsMin, wordsMax int) string {
	var sb strings.Builder

	sb.WriteString("You are an experienced editor for a technology publication. Rewrite the source material below into a complete standalone article in English.\n\n")
	sb.WriteString(styleInstruction(in.Style))

	if in.StyleOverride != "" {
		sb.WriteString(" Additional instructions from the author: ")
		sb.WriteString(in.StyleOverride)
	}

	fmt.Fprintf(&sb, "\n\nTarget length: %d-%d words. Plain text only: no markdown syntax, no promotional calls to action, no subscription prompts.\n\n", wordsMin, wordsMax)
	sb.WriteString(`Return a JSON object with exactly these keys:
- title (string): a concise article headline in English
- content (string): the full article body, paragraphs separated by blank lines
- excerpt (string): a 1-2 sentence summary, max 200 characters
- category (string): one of Technology, AI, Games, Apple, Science, Business, News
- tags (array of strings): 3-6 short topical tags

Source material:
`)

	if in.Title != "" {
		fmt.Fprintf(&sb, "Title: %s\n", in.Title)
	}

	if in.SourceURL != "" {
		fmt.Fprintf(&sb, "Source URL: %s\n", in.SourceURL)
	}

	sb.WriteString("\n")
	sb.WriteString(in.Text)

	return sb.String()
}

func buildTranslatePrompt(source Translation, targetLanguage string) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Translate this article into %s. Keep the meaning, tone and paragraph structure. Do not add or remove information. Do not wrap the output in quotes.\n\n", languageName(targetLanguage))
	sb.WriteString(`Return a JSON object with exactly these keys:
- title (string): the translated headline
- content (string): the translated body, same paragraph breaks
- excerpt (string): the translated summary

Article:
`)
	fmt.Fprintf(&sb, "Title: %s\n\n%s\n\nExcerpt: %s\n", source.Title, source.Content, source.Excerpt)

	return sb.String()
}

func buildTitlePrompt(title, targetLanguage string) string {
	return fmt.Sprintf("Translate this article headline into %s. Return only the translated headline, nothing else.\n\n%s",
		languageName(targetLanguage), title)
}

func buildImagePlanPrompt(title, category, excerpt string) string {
	var sb strings.Builder

	sb.WriteString(`You are an art director planning imagery for an article. Return a JSON object with exactly these keys:
- hero_prompt (string): a detailed prompt for the lead image, editorial photography style
- content_prompts (array of strings): 2 prompts for supporting in-article images
- tags (array of strings): 3-5 stock-photo search tags
- keywords (array of strings): 3-5 thematic keywords
- visual_style (string): a short style descriptor, e.g. "clean editorial photography"
- color_palette (string): a short palette descriptor

No text or logos in any prompt. Prompts must be safe for general audiences.

`)
	fmt.Fprintf(&sb, "Article title: %s\nCategory: %s\nSummary: %s\n", title, category, excerpt)

	return sb.String()
}

// fallbackImagePlan builds a deterministic plan from title and category when
// the model call fails. Keeps the pipeline moving with serviceable prompts.
func fallbackImagePlan(title, category string) *ImagePlan {
	if category == "" {
		category = "technology"
	}

	subject := strings.TrimSpace(title)
	if subject == "" {
		subject = category
	}

	return &ImagePlan{
		HeroPrompt:     fmt.Sprintf("Professional editorial photograph illustrating %s, modern %s setting, no text", subject, strings.ToLower(category)),
		ContentPrompts: []string{fmt.Sprintf("Detail shot related to %s, clean composition, no text", subject), fmt.Sprintf("Wide contextual shot for an article about %s, no text", subject)},
		Tags:           []string{strings.ToLower(category), "technology", "modern"},
		Keywords:       strings.Fields(strings.ToLower(subject)),
		VisualStyle:    "clean editorial photography",
		ColorPalette:   "neutral with a single accent color",
	}
}

func languageName(code string) string {
	switch code {
	case "en":
		return "English"
	case "pl":
		return "Polish"
	case "ru":
		return "Russian"
	case "de":
		return "German"
	case "ro":
		return "Romanian"
	case "cs":
		return "Czech"
	default:
		return code
	}
}
