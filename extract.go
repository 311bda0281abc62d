package slotwatch

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
)

// Format selects how a response body becomes searchable text.
type Format string

const (
	// FormatRaw searches the body exactly as received, markup included.
	FormatRaw Format = "raw"

	// FormatHTML searches the visible text of the document, or of the
	// elements matched by the expectation's selector.
	FormatHTML Format = "html"

	// FormatRSS searches the titles, descriptions and contents of an
	// RSS or Atom feed.
	FormatRSS Format = "rss"
)

// ErrSelectorNotFound is returned when a selector matches no element.
var ErrSelectorNotFound = errors.New("selector matched no elements")

// String implements fmt.Stringer.
func (f Format) String() string {
	return string(f)
}

func (f Format) valid() bool {
	switch f {
	case FormatRaw, FormatHTML, FormatRSS:
		return true
	}
	return false
}

// ParseFormat converts a configuration value into a [Format].
// The empty string selects [FormatRaw].
func ParseFormat(s string) (Format, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return FormatRaw, nil
	}
	f := Format(s)
	if !f.valid() {
		return "", fmt.Errorf("unknown format %q (expected 'raw', 'html', or 'rss')", s)
	}
	return f, nil
}

// ExtractText turns body into the text that markers are searched in.
//
// For [FormatHTML] a non-empty selector narrows the text to the matched
// elements, joined by newlines; [ErrSelectorNotFound] is returned if
// nothing matches. The selector is ignored for other formats.
func ExtractText(body []byte, format Format, selector string) (string, error) {
	switch format {
	case FormatRaw, "":
		return string(body), nil
	case FormatHTML:
		return htmlText(body, selector)
	case FormatRSS:
		return feedText(body)
	default:
		return "", fmt.Errorf("unknown format %q", format)
	}
}

func htmlText(body []byte, selector string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}

	if selector == "" {
		return doc.Text(), nil
	}

	sel := doc.Find(selector)
	if sel.Length() == 0 {
		return "", fmt.Errorf("%w: %q", ErrSelectorNotFound, selector)
	}

	parts := make([]string, 0, sel.Length())
	sel.Each(func(_ int, s *goquery.Selection) {
		parts = append(parts, s.Text())
	})
	return strings.Join(parts, "\n"), nil
}

func feedText(body []byte) (string, error) {
	feed, err := gofeed.NewParser().Parse(bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to parse feed: %w", err)
	}

	parts := []string{feed.Title, feed.Description}
	for _, item := range feed.Items {
		parts = append(parts, item.Title, item.Description, item.Content)
	}
	return strings.Join(parts, "\n"), nil
}
