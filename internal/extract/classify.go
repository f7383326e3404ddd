package extract

import (
	"regexp"
	"strings"
)

var urlPattern = regexp.MustCompile(`https?://[^\s<>"]+`)

// IsURLSubmission reports whether the text consists of URLs only, with no
// free-form prose around them.
func IsURLSubmission(text string) bool {
	rest := urlPattern.ReplaceAllString(text, "")

	return strings.TrimSpace(rest) == "" && urlPattern.MatchString(text)
}

// URLs returns up to max URLs found in the text, in order of appearance.
func URLs(text string, max int) []string {
	matches := urlPattern.FindAllString(text, -1)
	if len(matches) > max {
		matches = matches[:max]
	}

	for i, m := range matches {
		matches[i] = strings.TrimRight(m, ".,;:!?)")
	}

	return matches
}
