package translate

import (
	"strings"
	"unicode"
)

const (
	detectSampleRunes = 200
	cyrillicThreshold = 0.15

	// A handful of ą/ś/ż style characters is a much stronger signal than
	// stopword hits, which Polish shares with Czech.
	polishDiacriticThreshold = 3
)

// Stopword patterns with surrounding spaces so substrings inside longer
// words do not vote.
var languagePatterns = map[string][]string{
	"en": {" the ", " and ", " is ", " are ", " was ", " with ", " that ", " have "},
	"pl": {" się ", " jest ", " nie ", " oraz ", " przez ", " które ", " został "},
	"de": {" der ", " die ", " das ", " und ", " ist ", " mit ", " für ", " nicht "},
	"ro": {" și ", " este ", " pentru ", " care ", " sunt ", " într ", " după "},
	"cs": {" je ", " se ", " že ", " pro ", " který ", " jsou ", " byl "},
}

const polishDiacritics = "ąćęłńóśźż"

// Detect guesses the language of the text. Script ratio decides Cyrillic
// input outright, diacritics break the Polish/Czech tie, stopword voting
// covers the rest. Defaults to English.
func Detect(text string) string {
	sample := sampleRunes(strings.ToLower(text), detectSampleRunes)
	if sample == "" {
		return "en"
	}

	if cyrillicRatio(sample) > cyrillicThreshold {
		return "ru"
	}

	if countAny(sample, polishDiacritics) >= polishDiacriticThreshold {
		return "pl"
	}

	padded := " " + sample + " "
	best, bestVotes := "en", 0

	for lang, patterns := range languagePatterns {
		votes := 0

		for _, p := range patterns {
			votes += strings.Count(padded, p)
		}

		if votes > bestVotes || (votes == bestVotes && lang == "en") {
			best, bestVotes = lang, votes
		}
	}

	return best
}

func sampleRunes(s string, max int) string {
	runes := []rune(strings.TrimSpace(s))
	if len(runes) > max {
		runes = runes[:max]
	}

	return string(runes)
}

func cyrillicRatio(sample string) float64 {
	total, cyrillic := 0, 0

	for _, r := range sample {
		total++

		if unicode.Is(unicode.Cyrillic, r) {
			cyrillic++
		}
	}

	if total == 0 {
		return 0
	}

	return float64(cyrillic) / float64(total)
}

func countAny(s, chars string) int {
	count := 0

	for _, r := range s {
		if strings.ContainsRune(chars, r) {
			count++
		}
	}

	return count
}
