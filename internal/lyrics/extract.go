package lyrics

import (
	"bytes"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"

	"github.com/jfmyers9/lyricqueue/internal/library"
)

const (
	// Genius renders each block of lyrics into its own container.
	containerSelector = `[data-lyrics-container="true"]`
	// Older Genius page layout.
	legacySelector = "div.lyrics"
	// Annotations, headers and ads nested inside a container.
	excludedSelector = "[data-exclude-from-selection]"
)

var reBlankLines = regexp.MustCompile(`\n{3,}`)

// Extract returns the lyrics text of a lyrics page.
//
// Genius pages are read from their lyrics containers only. Pages from other
// hosts fall back to readability's main-content extraction. ErrExtractionFailed
// is returned when no valid lyrics are found.
func Extract(pageURL string, body []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to parse page: %w", err)
	}

	text := containerText(doc.Find(containerSelector))
	if text == "" {
		text = containerText(doc.Find(legacySelector).First())
	}
	if text == "" && !isGenius(pageURL) {
		text, err = articleText(pageURL, body)
		if err != nil {
			return "", fmt.Errorf("%w: %v", library.ErrExtractionFailed, err)
		}
	}

	text = clean(text)
	if !library.ValidLyrics(text) {
		return "", library.ErrExtractionFailed
	}
	return text, nil
}

func containerText(sel *goquery.Selection) string {
	parts := make([]string, 0, sel.Length())
	sel.Each(func(_ int, s *goquery.Selection) {
		s.Find(excludedSelector).Remove()
		s.Find("br").ReplaceWithHtml("\n")
		if t := strings.TrimSpace(s.Text()); t != "" {
			parts = append(parts, t)
		}
	})
	return strings.Join(parts, "\n\n")
}

func articleText(pageURL string, body []byte) (string, error) {
	parsedURL, err := url.Parse(pageURL)
	if err != nil {
		return "", err
	}

	article, err := readability.FromReader(bytes.NewReader(body), parsedURL)
	if err != nil {
		return "", err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(article.Content))
	if err != nil {
		return "", err
	}
	doc.Find("script, style, figure, aside").Remove()
	doc.Find("br").ReplaceWithHtml("\n")
	doc.Find("p").Each(func(_ int, s *goquery.Selection) {
		s.AppendHtml("\n\n")
	})
	return doc.Text(), nil
}

func isGenius(pageURL string) bool {
	u, err := url.Parse(pageURL)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	return host == "genius.com" || strings.HasSuffix(host, ".genius.com")
}

// clean normalises line endings, trims each line and collapses runs of
// blank lines to one.
func clean(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSpace(l)
	}
	text = strings.Join(lines, "\n")
	text = reBlankLines.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}
