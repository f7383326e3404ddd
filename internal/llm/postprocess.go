package llm

import (
	"regexp"
	"strings"
)

var (
	markdownHeading = regexp.MustCompile(`(?m)^#{1,6}\s+`)
	markdownBold    = regexp.MustCompile(`\*\*([^*]+)\*\*|__([^_]+)__`)
	markdownItalic  = regexp.MustCompile(`\*([^*\n]+)\*|_([^_\n]+)_`)
	markdownLink    = regexp.MustCompile(`\[([^\]]+)\]\([^)]*\)`)
	codeFence       = regexp.MustCompile("(?s)```[a-z]*\n?(.*?)```")
	inlineCode      = regexp.MustCompile("`([^`]+)`")
	multiBlank      = regexp.MustCompile(`\n{3,}`)
)

// Lines matching these are promotional boilerplate the model sometimes
// appends despite instructions.
var promoPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^(please\s+)?(subscribe|follow us|follow me)\b`),
	regexp.MustCompile(`(?i)\b(click here|sign up now|join our newsletter)\b`),
	regexp.MustCompile(`(?i)^(read more|learn more) at\b`),
	regexp.MustCompile(`(?i)^don't forget to (like|share|subscribe)\b`),
	regexp.MustCompile(`(?i)^stay tuned\b`),
}

// CleanArticleText strips markdown leftovers and promotional boilerplate
// from model output and normalizes paragraph breaks.
func CleanArticleText(text string) string {
	text = codeFence.ReplaceAllString(text, "$1")
	text = markdownHeading.ReplaceAllString(text, "")
	text = markdownLink.ReplaceAllString(text, "$1")
	text = markdownBold.ReplaceAllString(text, "$1$2")
	text = markdownItalic.ReplaceAllString(text, "$1$2")
	text = inlineCode.ReplaceAllString(text, "$1")

	lines := strings.Split(text, "\n")
	kept := lines[:0]

	for _, line := range lines {
		if isPromoLine(strings.TrimSpace(line)) {
			continue
		}

		kept = append(kept, line)
	}

	text = strings.Join(kept, "\n")
	text = multiBlank.ReplaceAllString(text, "\n\n")

	return strings.TrimSpace(text)
}

func isPromoLine(line string) bool {
	if line == "" {
		return false
	}

	for _, pattern := range promoPatterns {
		if pattern.MatchString(line) {
			return true
		}
	}

	return false
}

// TitleNeedsTranslation reports whether a headline that should be in English
// came back dominated by non-ASCII letters.
func TitleNeedsTranslation(title string) bool {
	letters, nonASCII := 0, 0

	for _, r := range title {
		if r == ' ' || r < '0' {
			continue
		}

		letters++

		if r > 127 {
			nonASCII++
		}
	}

	return letters > 0 && nonASCII*2 > letters
}
