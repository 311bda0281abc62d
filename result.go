package slotwatch

import (
	"fmt"
	"time"
)

// CheckResult holds the outcome of checking a single [Expectation].
//
// CheckResult is produced once per expectation per run and is never
// persisted.
type CheckResult struct {
	// Name is the display label of the expectation.
	Name string

	// URL is the page that was fetched.
	URL string

	// Matched is true when the page signals availability.
	// Always false when Error is non-nil.
	Matched bool

	// FoundMarkers lists the markers present on the page.
	FoundMarkers []string

	// StatusCode is the final HTTP status code, also set when retries ran
	// out on a retryable status. Zero if no response was received.
	StatusCode int

	// Latency is the time taken to fetch the page, retries included.
	Latency time.Duration

	// CheckedAt is when the check completed.
	CheckedAt time.Time

	// Error is the fetch or extraction failure, if any.
	Error error

	// Notified is true when a notification was delivered for this result.
	Notified bool

	// NotifyError is the delivery failure, if any.
	NotifyError error
}

// Summary aggregates the results of one [Checker.Run].
type Summary struct {
	// Checked counts every expectation that was attempted.
	Checked int

	// Matched counts expectations that signalled availability.
	Matched int

	// Failed counts expectations whose fetch or extraction failed.
	Failed int

	// Notified counts notifications that were delivered.
	Notified int

	// Results holds one entry per checked expectation, in registry order.
	Results []CheckResult
}

// String returns the one-line run report.
func (s Summary) String() string {
	return fmt.Sprintf("Finished checking %d sites. %d of them look promising.", s.Checked, s.Matched)
}
