package slotwatch

import "strings"

// Evaluate reports whether body signals availability for e.
//
// Matching is a case-sensitive literal substring search:
//   - ShouldExist true: available when at least one marker is in body
//   - ShouldExist false: available when no marker is in body
//
// Evaluate is a pure function. An Expectation not built by
// [NewExpectation] may carry no markers; with ShouldExist false it then
// always reports available.
func Evaluate(body string, e Expectation) bool {
	found := false
	for _, m := range e.markers {
		if strings.Contains(body, m) {
			found = true
			break
		}
	}
	if e.shouldExist {
		return found
	}
	return !found
}

// FoundMarkers returns the markers of e that occur in body, in marker order.
func FoundMarkers(body string, e Expectation) []string {
	var found []string
	for _, m := range e.markers {
		if strings.Contains(body, m) {
			found = append(found, m)
		}
	}
	return found
}
