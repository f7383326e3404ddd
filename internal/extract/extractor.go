// Package extract turns a submitted URL into a candidate article: title plus
// body paragraphs. Structural selectors run first, go-readability covers
// pages they cannot handle.
package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/araddon/dateparse"
	readability "github.com/go-shiori/go-readability"
	"github.com/rs/zerolog"
	"golang.org/x/net/html"
)

// ErrNoContent reports a page where neither the structural selectors nor
// readability produced qualifying paragraphs.
var ErrNoContent = errors.New("no extractable content found")

const (
	minTitleChars     = 10
	minParagraphChars = 50
	minParagraphs     = 3

	maxBodyBytes = 5 << 20

	userAgent = "Mozilla/5.0 (compatible; articleflow/1.0)"
)

// Title candidates, most specific markup first.
var titleSelectors = []string{
	"h1",
	"article h1",
	".article-title",
	`[class*="title"]`,
	"title",
}

// Paragraph containers, most article-like first. The bare "p" catch-all runs
// last so navigation-heavy pages still need three long paragraphs to qualify.
var paragraphSelectors = []string{
	"article p",
	".article-content p",
	".post-content p",
	`[class*="content"] p`,
	"main p",
	"p",
}

// Content is the raw material handed to the transform stage.
type Content struct {
	Title       string
	Paragraphs  []string
	Description string
	ImageURL    string
	Author      string
	PublishedAt time.Time
	SourceURL   string
}

// Text joins the paragraphs back into a single body.
func (c *Content) Text() string {
	return strings.Join(c.Paragraphs, "\n\n")
}

type Service struct {
	client          *http.Client
	logger          zerolog.Logger
	maxContentChars int
}

func New(logger zerolog.Logger, fetchTimeout time.Duration, maxContentChars int) *Service {
	return &Service{
		client:          &http.Client{Timeout: fetchTimeout},
		logger:          logger.With().Str("component", "extract").Logger(),
		maxContentChars: maxContentChars,
	}
}

// FromURL fetches the page and extracts its content.
func (s *Service) FromURL(ctx context.Context, rawURL string) (*Content, error) {
	htmlBytes, err := s.fetch(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	content, err := s.Parse(htmlBytes, rawURL)
	if err != nil {
		return nil, err
	}

	s.logger.Debug().
		Str("url", rawURL).
		Str("title", content.Title).
		Int("paragraphs", len(content.Paragraphs)).
		Msg("content extracted")

	return content, nil
}

// Parse extracts title and paragraphs from already fetched HTML.
func (s *Service) Parse(htmlBytes []byte, rawURL string) (*Content, error) {
	content := &Content{SourceURL: rawURL}

	doc, docErr := goquery.NewDocumentFromReader(bytes.NewReader(htmlBytes))
	if docErr == nil {
		content.Title = selectTitle(doc)
		content.Paragraphs = selectParagraphs(doc)
	}

	if len(content.Paragraphs) == 0 {
		s.fallbackReadability(htmlBytes, rawURL, content)
	}

	if len(content.Paragraphs) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoContent, rawURL)
	}

	meta := extractMetaTags(htmlBytes)

	if content.Title == "" {
		content.Title = coalesce(meta.OGTitle, meta.Title)
	}

	content.Description = coalesce(meta.OGDescription, meta.Description)
	content.ImageURL = meta.OGImage

	if content.Author == "" {
		content.Author = meta.Author
	}

	content.PublishedAt = parseDate(meta.PublishedTime)
	content.Paragraphs = capParagraphs(content.Paragraphs, s.maxContentChars)

	return content, nil
}

func (s *Service) fetch(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	req.Header.Set("User-Agent", userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: unexpected status %d", rawURL, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read body of %s: %w", rawURL, err)
	}

	return body, nil
}

func (s *Service) fallbackReadability(htmlBytes []byte, rawURL string, content *Content) {
	u, _ := url.Parse(rawURL)

	article, err := readability.FromReader(bytes.NewReader(htmlBytes), u)
	if err != nil {
		s.logger.Debug().Str("url", rawURL).Err(err).Msg("readability fallback failed")

		return
	}

	paragraphs := splitParagraphs(article.TextContent)
	if len(paragraphs) == 0 {
		return
	}

	content.Paragraphs = paragraphs

	if content.Title == "" {
		content.Title = article.Title
	}

	content.Author = article.Byline
}

func selectTitle(doc *goquery.Document) string {
	for _, selector := range titleSelectors {
		title := ""

		doc.Find(selector).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
			text := strings.TrimSpace(sel.Text())
			if utf8.RuneCountInString(text) > minTitleChars {
				title = text

				return false
			}

			return true
		})

		if title != "" {
			return title
		}
	}

	return ""
}

func selectParagraphs(doc *goquery.Document) []string {
	for _, selector := range paragraphSelectors {
		var paragraphs []string

		doc.Find(selector).Each(func(_ int, sel *goquery.Selection) {
			text := strings.TrimSpace(sel.Text())
			if utf8.RuneCountInString(text) > minParagraphChars {
				paragraphs = append(paragraphs, text)
			}
		})

		if len(paragraphs) >= minParagraphs {
			return paragraphs
		}
	}

	return nil
}

func splitParagraphs(text string) []string {
	var paragraphs []string

	for _, block := range strings.Split(text, "\n") {
		block = strings.TrimSpace(block)
		if utf8.RuneCountInString(block) > minParagraphChars {
			paragraphs = append(paragraphs, block)
		}
	}

	return paragraphs
}

func capParagraphs(paragraphs []string, maxChars int) []string {
	if maxChars <= 0 {
		return paragraphs
	}

	total := 0

	for i, p := range paragraphs {
		total += utf8.RuneCountInString(p)
		if total > maxChars {
			return paragraphs[:i+1]
		}
	}

	return paragraphs
}

type metaTags struct {
	Title         string
	Description   string
	OGTitle       string
	OGDescription string
	OGImage       string
	Author        string
	PublishedTime string
}

func extractMetaTags(htmlBytes []byte) metaTags {
	var meta metaTags

	doc, err := html.Parse(bytes.NewReader(htmlBytes))
	if err != nil {
		return meta
	}

	var traverse func(*html.Node)

	traverse = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "title":
				if n.FirstChild != nil && n.FirstChild.Type == html.TextNode {
					meta.Title = strings.TrimSpace(n.FirstChild.Data)
				}
			case "meta":
				applyMetaTag(n, &meta)
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			traverse(c)
		}
	}

	traverse(doc)

	return meta
}

func applyMetaTag(n *html.Node, meta *metaTags) {
	var name, content string

	for _, attr := range n.Attr {
		switch strings.ToLower(attr.Key) {
		case "name", "property":
			name = attr.Val
		case "content":
			content = attr.Val
		}
	}

	switch strings.ToLower(name) {
	case "description":
		meta.Description = content
	case "author":
		meta.Author = content
	case "og:title":
		meta.OGTitle = content
	case "og:description":
		meta.OGDescription = content
	case "og:image":
		meta.OGImage = content
	case "article:published_time":
		meta.PublishedTime = content
	}
}

func coalesce(strs ...string) string {
	for _, s := range strs {
		if s != "" {
			return s
		}
	}

	return ""
}

func parseDate(s string) time.Time {
	if s == "" {
		return time.Time{}
	}

	t, err := dateparse.ParseAny(s)
	if err != nil {
		return time.Time{}
	}

	return t
}
