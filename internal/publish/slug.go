package publish

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const maxSlugChars = 60

var (
	foldDiacritics = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	nonAlnum       = regexp.MustCompile(`[^a-z0-9]+`)
	multiHyphen    = regexp.MustCompile(`-{2,}`)

	// Letters NFD cannot fold because they have no combining-mark
	// decomposition.
	specialLetters = strings.NewReplacer(
		"ł", "l", "Ł", "l",
		"ø", "o", "Ø", "o",
		"đ", "d", "Đ", "d",
		"ß", "ss",
		"æ", "ae", "Æ", "ae",
	)
)

// Slugify builds the per-language slug for a title: diacritics folded,
// lowercased, non-alphanumerics hyphenated, bounded, language suffix
// appended so every language addresses its own version.
func Slugify(title, lang string) string {
	folded, _, err := transform.String(foldDiacritics, specialLetters.Replace(title))
	if err != nil {
		folded = title
	}

	slug := strings.ToLower(folded)
	slug = nonAlnum.ReplaceAllString(slug, "-")
	slug = multiHyphen.ReplaceAllString(slug, "-")
	slug = strings.Trim(slug, "-")

	if len(slug) > maxSlugChars {
		slug = strings.Trim(slug[:maxSlugChars], "-")
	}

	if slug == "" {
		slug = "article"
	}

	return slug + "-" + lang
}
