package images

import (
	"fmt"
	"strings"
)

// Positions of in-content images as a fraction of the paragraph count.
var insertFractions = map[int][]float64{
	1: {0.40},
	2: {0.33, 0.66},
	3: {0.25, 0.50, 0.75},
}

// InsertIntoContent places image markup between paragraphs at fixed
// fractions of the article length. Articles shorter than three paragraphs
// get the images appended instead.
func InsertIntoContent(content string, descriptors []Descriptor) string {
	if len(descriptors) == 0 {
		return content
	}

	paragraphs := strings.Split(content, "\n\n")

	fractions, ok := insertFractions[len(descriptors)]
	if !ok || len(paragraphs) < 3 {
		return content + "\n\n" + joinMarkup(descriptors)
	}

	total := len(paragraphs)

	// Walk backwards so earlier insertion points stay valid.
	for i := len(descriptors) - 1; i >= 0; i-- {
		pos := int(float64(total) * fractions[i])
		if pos < 1 {
			pos = 1
		}

		if pos > total {
			pos = total
		}

		paragraphs = append(paragraphs[:pos], append([]string{markup(descriptors[i])}, paragraphs[pos:]...)...)
	}

	return strings.Join(paragraphs, "\n\n")
}

func markup(d Descriptor) string {
	return fmt.Sprintf("![%s](%s)", d.Alt, d.URL)
}

func joinMarkup(descriptors []Descriptor) string {
	parts := make([]string, len(descriptors))
	for i, d := range descriptors {
		parts[i] = markup(d)
	}

	return strings.Join(parts, "\n\n")
}
