package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

const maxResponseBodySize = 4 << 20 // 4MB

// connection pooling limits; requests are sequential so these stay small
const (
	defaultMaxIdleConns        = 20
	defaultMaxIdleConnsPerHost = 2
	defaultIdleConnTimeout     = 60 * time.Second
)

// maxBackoff matches urllib3's BACKOFF_MAX.
const maxBackoff = 120 * time.Second

// DefaultTimeout bounds a single attempt when no timeout is configured.
const DefaultTimeout = 30 * time.Second

var (
	// ErrStatus is returned when the final response has a 4xx or 5xx status.
	ErrStatus = errors.New("HTTP status code not ok")

	// ErrRetriesExhausted is returned when every allowed attempt failed with
	// a retryable outcome.
	ErrRetriesExhausted = errors.New("retries exhausted")

	// ErrBodyTooLarge is returned when the body exceeds 4MB. A truncated page
	// could hide a marker, so it is never evaluated.
	ErrBodyTooLarge = errors.New("response body too large")
)

// StatusError carries the final HTTP status of a failed request.
// It matches [ErrStatus] with errors.Is.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("status code %d: %s", e.StatusCode, ErrStatus)
}

func (e *StatusError) Unwrap() error {
	return ErrStatus
}

// Some sites block requests without a browser user agent.
const (
	defaultUserAgent      = "Mozilla/5.0 (X11; Ubuntu; Linux x86_64; rv:85.0) Gecko/20100101 Firefox/85.0"
	defaultAccept         = "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8"
	defaultAcceptLanguage = "en-US,en;q=0.5"
)

// DefaultHeaders returns the browser-like headers sent with every request.
func DefaultHeaders() map[string]string {
	return map[string]string{
		"User-Agent":      defaultUserAgent,
		"Accept":          defaultAccept,
		"Accept-Language": defaultAcceptLanguage,
	}
}

// Policy describes how failed requests are retried.
type Policy struct {
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int

	// BackoffFactor scales the exponential sleep between retries.
	// The first retry happens immediately; the n-th retry (n >= 2) waits
	// BackoffFactor * 2^(n-1) seconds, so factor 1 gives 0, 2, 4, 8, 16s.
	BackoffFactor float64

	// RetryOnStatus lists the status codes that trigger a retry.
	RetryOnStatus []int
}

// DefaultPolicy returns 5 retries with backoff factor 1 on 500, 502, 503 and 504.
func DefaultPolicy() Policy {
	return Policy{
		MaxRetries:    5,
		BackoffFactor: 1,
		RetryOnStatus: []int{
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout,
		},
	}
}

// Response holds the result of fetching a page with [Client].
type Response struct {
	// Body contains the response body. Larger bodies fail with
	// [ErrBodyTooLarge].
	Body []byte

	// StatusCode is the final HTTP status code, including the last status
	// seen when retries ran out. Zero if no response was received.
	StatusCode int

	// Latency is the total time taken, including retries and backoff.
	Latency time.Duration

	// Error contains any error that occurred. A non-nil Error means the
	// body must not be evaluated.
	Error error
}

// Client fetches pages with automatic retries.
//
// Client wraps a [retryablehttp.Client] over a pooled transport. It is not
// meant for concurrent use with different policies, but a single Client may
// be shared by sequential requests to reuse connections.
type Client struct {
	rc *retryablehttp.Client
}

// NewClient creates a [Client] with the given retry policy.
//
// timeout bounds each individual attempt; zero or negative selects
// [DefaultTimeout]. logger receives retry diagnostics at debug level and
// may be nil.
func NewClient(policy Policy, timeout time.Duration, logger *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if policy.MaxRetries < 0 {
		policy.MaxRetries = 0
	}

	rc := retryablehttp.NewClient()
	rc.HTTPClient = &http.Client{
		// the default redirect policy follows up to 10 redirects
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        defaultMaxIdleConns,
			MaxIdleConnsPerHost: defaultMaxIdleConnsPerHost,
			IdleConnTimeout:     defaultIdleConnTimeout,
		},
	}
	rc.RetryMax = policy.MaxRetries
	rc.RetryWaitMax = maxBackoff
	rc.CheckRetry = statusRetryPolicy(policy.RetryOnStatus)
	rc.Backoff = urllib3Backoff(policy.BackoffFactor)
	rc.ErrorHandler = giveUpHandler(policy.MaxRetries)
	rc.Logger = nil
	if logger != nil {
		rc.Logger = logger
	}

	return &Client{rc: rc}
}

// Fetch performs a GET request and returns a structured [Response].
//
// headers are set on the request as given; callers merge [DefaultHeaders]
// themselves. A final status of 400 or above is reported as [ErrStatus];
// running out of retries is reported as [ErrRetriesExhausted].
//
// Fetch always returns a Response; errors are captured in the Error field.
func (c *Client) Fetch(ctx context.Context, url string, headers map[string]string) Response {
	start := time.Now()

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Response{
			Latency: time.Since(start),
			Error:   fmt.Errorf("failed to create request: %w", err),
		}
	}

	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := c.rc.Do(req)
	if err != nil {
		result := Response{
			Latency: time.Since(start),
			Error:   fmt.Errorf("request failed: %w", err),
		}
		var statusErr *StatusError
		if errors.As(err, &statusErr) {
			result.StatusCode = statusErr.StatusCode
		}
		return result
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodySize+1))
	if err != nil {
		return Response{
			StatusCode: resp.StatusCode,
			Latency:    time.Since(start),
			Error:      fmt.Errorf("failed to read response body: %w", err),
		}
	}
	if len(body) > maxResponseBodySize {
		return Response{
			StatusCode: resp.StatusCode,
			Latency:    time.Since(start),
			Error:      fmt.Errorf("%w: more than %d bytes", ErrBodyTooLarge, maxResponseBodySize),
		}
	}

	result := Response{
		Body:       body,
		StatusCode: resp.StatusCode,
		Latency:    time.Since(start),
	}
	if resp.StatusCode >= http.StatusBadRequest {
		result.Error = &StatusError{StatusCode: resp.StatusCode}
	}
	return result
}

// Close closes all idle connections in the client's connection pool.
// Safe to call multiple times and on a nil Client.
func (c *Client) Close() {
	if c == nil || c.rc == nil || c.rc.HTTPClient == nil {
		return
	}
	c.rc.HTTPClient.CloseIdleConnections()
}

// statusRetryPolicy retries the listed statuses and recoverable transport
// errors. Context cancellation is never retried.
func statusRetryPolicy(statuses []int) retryablehttp.CheckRetry {
	retryOn := make(map[int]bool, len(statuses))
	for _, s := range statuses {
		retryOn[s] = true
	}

	return func(ctx context.Context, resp *http.Response, err error) (bool, error) {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		if err != nil {
			// defers to the library for redirect loops, bad schemes and TLS errors
			return retryablehttp.DefaultRetryPolicy(ctx, nil, err)
		}
		return retryOn[resp.StatusCode], nil
	}
}

// urllib3Backoff sleeps factor * 2^attemptNum seconds, where attemptNum is
// zero-based, skipping the sleep before the first retry. A Retry-After header on a 503 takes precedence.
func urllib3Backoff(factor float64) retryablehttp.Backoff {
	return func(_, maxWait time.Duration, attemptNum int, resp *http.Response) time.Duration {
		if d, ok := retryAfter(resp); ok {
			if d > maxWait {
				return maxWait
			}
			return d
		}
		if attemptNum < 1 || factor <= 0 {
			return 0
		}
		d := time.Duration(factor * math.Pow(2, float64(attemptNum)) * float64(time.Second))
		if d > maxWait || d < 0 {
			d = maxWait
		}
		return d
	}
}

// retryAfter reads a seconds-valued Retry-After header from a 503 response.
func retryAfter(resp *http.Response) (time.Duration, bool) {
	if resp == nil || resp.StatusCode != http.StatusServiceUnavailable {
		return 0, false
	}
	v := resp.Header.Get("Retry-After")
	if v == "" {
		return 0, false
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs < 0 {
		return 0, false
	}
	return time.Duration(secs) * time.Second, true
}

// giveUpHandler converts the final failed attempt into an error.
func giveUpHandler(maxRetries int) retryablehttp.ErrorHandler {
	return func(resp *http.Response, err error, numTries int) (*http.Response, error) {
		if resp != nil {
			_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBodySize))
			_ = resp.Body.Close()
		}
		exhausted := maxRetries > 0 && numTries > maxRetries
		switch {
		case err != nil && exhausted:
			return nil, fmt.Errorf("%w after %d attempt(s): %w", ErrRetriesExhausted, numTries, err)
		case err != nil:
			return nil, err
		case resp != nil:
			return nil, fmt.Errorf("%w after %d attempt(s): %w",
				ErrRetriesExhausted, numTries, &StatusError{StatusCode: resp.StatusCode})
		default:
			return nil, fmt.Errorf("%w after %d attempt(s)", ErrRetriesExhausted, numTries)
		}
	}
}
