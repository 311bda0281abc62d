package slotwatch

import (
	"errors"
	"fmt"
	"net/url"
)

// Expectation describes what "available" looks like for one page.
//
// An Expectation pairs a URL with one or more literal markers and a
// polarity. When ShouldExist is false (the default) the page is considered
// available once none of the markers appear, which suits pages that carry a
// "fully booked" banner. When ShouldExist is true the page is available as
// soon as any marker appears.
//
// Expectation is immutable after creation via [NewExpectation]. Getters
// return copies of slices and maps.
type Expectation struct {
	name        string
	url         string
	markers     []string
	shouldExist bool
	selector    string
	format      Format
	headers     map[string]string
}

// Name returns the display label used in logs.
// Defaults to the URL's host.
func (e Expectation) Name() string {
	return e.name
}

// URL returns the page URL. It is the unique key of an expectation.
func (e Expectation) URL() string {
	return e.url
}

// Markers returns a copy of the literal text fragments searched for.
func (e Expectation) Markers() []string {
	return append([]string(nil), e.markers...)
}

// ShouldExist reports the polarity of the expectation.
func (e Expectation) ShouldExist() bool {
	return e.shouldExist
}

// Selector returns the CSS selector that narrows the searched text.
// Empty means the whole document.
func (e Expectation) Selector() string {
	return e.selector
}

// Format returns how the response body is turned into searchable text.
func (e Expectation) Format() Format {
	return e.format
}

// Headers returns a copy of the per-page request headers.
// Returns nil if none are set.
func (e Expectation) Headers() map[string]string {
	return copyMap(e.headers)
}

// String implements fmt.Stringer for log output.
func (e Expectation) String() string {
	return fmt.Sprintf("%s markers=%q should_exist=%t", e.url, e.markers, e.shouldExist)
}

// NewExpectation creates an [Expectation] for rawURL.
//
// rawURL must be an absolute http or https URL. markers must contain at
// least one entry and no entry may be empty. The markers slice is copied.
//
// Options are applied in order. See [WithShouldExist], [WithName],
// [WithSelector], [WithFormat] and [WithHeaders].
//
// Example:
//
//	exp, err := slotwatch.NewExpectation("https://vaccines.example.com",
//	    []string{"Vaccine appointment schedule is FULL"},
//	)
func NewExpectation(rawURL string, markers []string, opts ...ExpectationOption) (Expectation, error) {
	if rawURL == "" {
		return Expectation{}, errors.New("URL cannot be empty")
	}
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return Expectation{}, fmt.Errorf("invalid URL: %w", err)
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return Expectation{}, errors.New("URL must have an http:// or https:// scheme")
	}
	if parsedURL.Host == "" {
		return Expectation{}, errors.New("URL must have a host")
	}

	if len(markers) == 0 {
		return Expectation{}, errors.New("at least one marker is required")
	}
	for i, m := range markers {
		if m == "" {
			return Expectation{}, fmt.Errorf("marker %d cannot be empty", i)
		}
	}

	cfg := &expectationConfig{
		headers: make(map[string]string),
	}
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return Expectation{}, err
		}
	}

	format := cfg.format
	if format == "" {
		format = FormatRaw
		if cfg.selector != "" {
			format = FormatHTML
		}
	}
	if cfg.selector != "" && format != FormatHTML {
		return Expectation{}, fmt.Errorf("selector requires %q format, got %q", FormatHTML, format)
	}

	name := cfg.name
	if name == "" {
		name = parsedURL.Host
	}

	var headers map[string]string
	if len(cfg.headers) > 0 {
		headers = cfg.headers
	}

	return Expectation{
		name:        name,
		url:         rawURL,
		markers:     append([]string(nil), markers...),
		shouldExist: cfg.shouldExist,
		selector:    cfg.selector,
		format:      format,
		headers:     headers,
	}, nil
}

// copyMap returns a shallow copy of the map.
func copyMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	cp := make(map[string]string, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return cp
}
