package slotwatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/google/uuid"

	"github.com/jpalmerr/slotwatch/internal/cooldown"
	"github.com/jpalmerr/slotwatch/internal/fetch"
)

// DefaultSubject is the subject line used when [WithSubject] is not given.
const DefaultSubject = "Covid Vaccine Appointment Availability"

// messageTimeLayout renders the timestamp in availability messages.
const messageTimeLayout = "2006-01-02 15:04:05"

// Notifier delivers an availability message.
//
// Implementations must respect context cancellation.
type Notifier interface {
	Notify(ctx context.Context, message string) error
}

// Cooldown decides whether a URL may be announced again.
//
// Acquire returns true when a notification for url should be sent. An error
// means the decision could not be made; the Checker then notifies anyway.
type Cooldown interface {
	Acquire(ctx context.Context, url string) (bool, error)
}

// NewMemoryCooldown returns an in-process [Cooldown] that suppresses a URL
// for ttl after it was announced. A ttl that is not positive selects 6 hours.
// State is kept in memory only, so it does not survive the process.
func NewMemoryCooldown(ttl time.Duration) Cooldown {
	return cooldown.NewMemory(ttl)
}

// Checker fetches a registry of pages and reports those that look available.
//
// A Checker is created with [New] and performs one pass over the registry
// per call to [Checker.Run]:
//
//	c, err := slotwatch.New(slotwatch.WithExpectations(exp))
//	if err != nil {
//	    slog.Error("failed to create checker", "error", err)
//	    os.Exit(1)
//	}
//	defer c.Close()
//
//	summary, err := c.Run(ctx)
//
// Pages are checked one after another in registry order.
type Checker struct {
	expectations    []Expectation
	client          *fetch.Client
	notifier        Notifier
	logger          *slog.Logger
	headers         map[string]string
	subject         string
	cooldown        Cooldown
	resultCallbacks []func(CheckResult)
	failFast        bool
	now             func() time.Time
}

// New creates a [Checker] with the given options.
//
// At least one expectation must be configured via [WithExpectations] and
// every URL must be unique. Other options have defaults:
//   - Notifier: log only
//   - Request timeout: 30 seconds
//   - Retry policy: [DefaultRetryPolicy]
//   - Subject: [DefaultSubject]
//
// Returns an error if no expectations are configured or any option is invalid.
func New(opts ...Option) (*Checker, error) {
	cfg := &checkerConfig{
		requestTimeout: fetch.DefaultTimeout,
		retryPolicy:    DefaultRetryPolicy(),
		defaultHeaders: make(map[string]string),
		subject:        DefaultSubject,
		clock:          time.Now,
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	if len(cfg.expectations) == 0 {
		return nil, errors.New("at least one expectation is required")
	}

	// the URL is the registry key
	seen := make(map[string]bool, len(cfg.expectations))
	for _, e := range cfg.expectations {
		if seen[e.url] {
			return nil, fmt.Errorf("duplicate expectation url: %q", e.url)
		}
		seen[e.url] = true
	}

	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}

	notifier := cfg.notifier
	if notifier == nil {
		notifier = &logNotifier{logger: logger}
	}

	headers := fetch.DefaultHeaders()
	for k, v := range cfg.defaultHeaders {
		headers[http.CanonicalHeaderKey(k)] = v
	}

	client := fetch.NewClient(fetch.Policy{
		MaxRetries:    cfg.retryPolicy.MaxRetries,
		BackoffFactor: cfg.retryPolicy.BackoffFactor,
		RetryOnStatus: cfg.retryPolicy.RetryOnStatus,
	}, cfg.requestTimeout, logger)

	return &Checker{
		expectations:    cfg.expectations,
		client:          client,
		notifier:        notifier,
		logger:          logger,
		headers:         headers,
		subject:         cfg.subject,
		cooldown:        cfg.cooldown,
		resultCallbacks: cfg.resultCallbacks,
		failFast:        cfg.failFast,
		now:             cfg.clock,
	}, nil
}

// Run checks every page in the registry once.
//
// Matching pages are announced through the configured [Notifier]. A page
// that cannot be fetched is logged and counted in [Summary.Failed]; the
// remaining pages are still checked unless [WithFailFast] is set.
//
// Run returns an error only when ctx is cancelled or, with fail-fast
// enabled, when a page fails. The Summary covers the pages checked so far.
func (c *Checker) Run(ctx context.Context) (Summary, error) {
	c.logger.Info("checking sites", "count", len(c.expectations))

	summary := Summary{Results: make([]CheckResult, 0, len(c.expectations))}
	for _, e := range c.expectations {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		result := c.Check(ctx, e)
		summary.Checked++

		logAttrs := []any{
			"name", result.Name,
			"url", result.URL,
			"status_code", result.StatusCode,
			"latency_ms", result.Latency.Milliseconds(),
		}
		switch {
		case result.Error != nil:
			summary.Failed++
			c.logger.Warn("check failed", append(logAttrs, "error", result.Error.Error())...)
		case result.Matched:
			summary.Matched++
			c.logger.Info("found possible availability", logAttrs...)
			c.notify(ctx, &result)
			if result.Notified {
				summary.Notified++
			}
		default:
			c.logger.Debug("no availability", append(logAttrs, "found_markers", result.FoundMarkers)...)
		}

		summary.Results = append(summary.Results, result)
		for _, cb := range c.resultCallbacks {
			invokeCallbackSafe(cb, result, c.logger)
		}

		if result.Error != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return summary, ctxErr
			}
			if c.failFast {
				return summary, fmt.Errorf("checking %s: %w", result.URL, result.Error)
			}
		}
	}

	c.logger.Info(summary.String())
	return summary, nil
}

// Check fetches the page of e and evaluates it.
//
// Check never notifies. Fetch and extraction failures, including panics
// while parsing the page, are reported in [CheckResult.Error] with
// Matched false.
func (c *Checker) Check(ctx context.Context, e Expectation) CheckResult {
	resp := c.client.Fetch(ctx, e.url, c.requestHeaders(e))

	result := CheckResult{
		Name:       e.name,
		URL:        e.url,
		StatusCode: resp.StatusCode,
		Latency:    resp.Latency,
		CheckedAt:  c.now(),
	}
	if resp.Error != nil {
		result.Error = resp.Error
		return result
	}

	matched, found, err := c.safeEvaluate(resp.Body, e)
	if err != nil {
		result.Error = err
		return result
	}
	result.Matched = matched
	result.FoundMarkers = found
	return result
}

// safeEvaluate extracts and evaluates the page with panic recovery.
// A panic is logged with a correlation ID that is repeated in the error.
func (c *Checker) safeEvaluate(body []byte, e Expectation) (matched bool, found []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			correlationID := uuid.NewString()
			c.logger.Error("evaluation panic",
				"correlation_id", correlationID,
				"url", e.url,
				"panic", fmt.Sprintf("%v", r),
				"stack", string(debug.Stack()),
			)
			matched, found = false, nil
			err = fmt.Errorf("evaluation panic (correlation_id: %s)", correlationID)
		}
	}()

	text, err := ExtractText(body, e.format, e.selector)
	if err != nil {
		return false, nil, err
	}
	return Evaluate(text, e), FoundMarkers(text, e), nil
}

// notify announces a matched result, honouring the cooldown.
func (c *Checker) notify(ctx context.Context, result *CheckResult) {
	if c.cooldown != nil {
		ok, err := c.cooldown.Acquire(ctx, result.URL)
		switch {
		case err != nil:
			c.logger.Warn("cooldown unavailable, notifying anyway", "url", result.URL, "error", err.Error())
		case !ok:
			c.logger.Info("notification suppressed by cooldown", "url", result.URL)
			return
		}
	}

	message := FormatMessage(c.subject, result.URL, result.CheckedAt)
	if err := c.notifier.Notify(ctx, message); err != nil {
		result.NotifyError = err
		c.logger.Error("failed to send notification", "url", result.URL, "error", err.Error())
		return
	}
	result.Notified = true
}

// requestHeaders merges the checker headers with the per-page headers.
func (c *Checker) requestHeaders(e Expectation) map[string]string {
	headers := copyMap(c.headers)
	if headers == nil {
		headers = make(map[string]string, len(e.headers))
	}
	for k, v := range e.headers {
		headers[http.CanonicalHeaderKey(k)] = v
	}
	return headers
}

// Expectations returns a copy of the registry.
func (c *Checker) Expectations() []Expectation {
	cp := make([]Expectation, len(c.expectations))
	copy(cp, c.expectations)
	return cp
}

// Close releases idle HTTP connections. Safe to call multiple times.
func (c *Checker) Close() {
	c.client.Close()
}

// FormatMessage renders the availability message for url.
//
// The result has two lines:
//
//	Subject: <subject> <YYYY-MM-DD HH:MM:SS>
//	Availability at <url>
func FormatMessage(subject, url string, at time.Time) string {
	return fmt.Sprintf("Subject: %s %s\nAvailability at %s", subject, at.Format(messageTimeLayout), url)
}

// logNotifier is the default Notifier. It only logs the message.
type logNotifier struct {
	logger *slog.Logger
}

func (n *logNotifier) Notify(_ context.Context, message string) error {
	n.logger.Info("Skipping notification. Would've sent the following message", "message", message)
	return nil
}

// invokeCallbackSafe calls a result callback with panic recovery.
// Panics are logged but do not propagate.
func invokeCallbackSafe(cb func(CheckResult), result CheckResult, logger *slog.Logger) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("result callback panicked",
				"panic", r,
				"url", result.URL,
			)
		}
	}()
	cb(result)
}
