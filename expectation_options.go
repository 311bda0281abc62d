package slotwatch

import (
	"errors"
	"net/http"
	"strings"
)

// expectationConfig holds mutable state during expectation construction.
type expectationConfig struct {
	name        string
	shouldExist bool
	selector    string
	format      Format
	headers     map[string]string
}

// ExpectationOption configures an [Expectation] during construction.
//
// Options return an error if validation fails.
type ExpectationOption func(*expectationConfig) error

// WithShouldExist sets the polarity of the expectation.
//
// With true, the page is available when at least one marker is present.
// With false (the default), the page is available when every marker is absent.
//
// Example:
//
//	// page shows "Book now" only while slots are open
//	exp, err := slotwatch.NewExpectation(url, []string{"Book now"},
//	    slotwatch.WithShouldExist(true),
//	)
func WithShouldExist(shouldExist bool) ExpectationOption {
	return func(cfg *expectationConfig) error {
		cfg.shouldExist = shouldExist
		return nil
	}
}

// WithName sets the display label used in logs and callbacks.
func WithName(name string) ExpectationOption {
	return func(cfg *expectationConfig) error {
		cfg.name = strings.TrimSpace(name)
		return nil
	}
}

// WithSelector restricts marker matching to the text of the elements
// matched by a CSS selector.
//
// Setting a selector switches the format to [FormatHTML] unless a format is
// given explicitly. A selector that matches nothing fails the check rather
// than counting every marker as absent.
//
// Example:
//
//	exp, err := slotwatch.NewExpectation(url, []string{"FULL"},
//	    slotwatch.WithSelector("#appointments .banner"),
//	)
func WithSelector(selector string) ExpectationOption {
	return func(cfg *expectationConfig) error {
		cfg.selector = strings.TrimSpace(selector)
		return nil
	}
}

// WithFormat sets how the response body is turned into searchable text.
// Defaults to [FormatRaw].
//
// Returns an error for an unknown format.
func WithFormat(f Format) ExpectationOption {
	return func(cfg *expectationConfig) error {
		if !f.valid() {
			return errors.New("format must be raw, html, or rss")
		}
		cfg.format = f
		return nil
	}
}

// WithHeaders adds HTTP headers sent only when fetching this page.
//
// They override the checker-wide headers of the same name, compared
// case-insensitively. Keys are stored in canonical form. Accepts
// variadic key-value pairs; the number of arguments must be even.
//
// Example:
//
//	exp, err := slotwatch.NewExpectation(url, markers,
//	    slotwatch.WithHeaders("Referer", "https://example.com/"),
//	)
func WithHeaders(keyValues ...string) ExpectationOption {
	return func(cfg *expectationConfig) error {
		if len(keyValues)%2 != 0 {
			return errors.New("WithHeaders requires an even number of arguments (key-value pairs)")
		}
		for i := 0; i < len(keyValues); i += 2 {
			cfg.headers[http.CanonicalHeaderKey(keyValues[i])] = keyValues[i+1]
		}
		return nil
	}
}
