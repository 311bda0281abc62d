package slotwatch

import (
	"errors"
	"log/slog"
	"net/http"
	"time"
)

// checkerConfig holds mutable state during Checker construction.
type checkerConfig struct {
	expectations    []Expectation
	notifier        Notifier
	logger          *slog.Logger
	requestTimeout  time.Duration
	retryPolicy     RetryPolicy
	defaultHeaders  map[string]string
	subject         string
	cooldown        Cooldown
	resultCallbacks []func(CheckResult)
	failFast        bool
	clock           func() time.Time
}

// RetryPolicy controls how failed page fetches are retried.
//
// Retry n (counting from 1) waits BackoffFactor * 2^(n-1) seconds, except
// that the first retry is immediate. Waits are capped at two minutes.
type RetryPolicy struct {
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int

	// BackoffFactor scales the exponential wait between retries, in seconds.
	BackoffFactor float64

	// RetryOnStatus lists the HTTP status codes that trigger a retry.
	RetryOnStatus []int
}

// DefaultRetryPolicy returns five retries with a backoff factor of one,
// retrying on 500, 502, 503 and 504.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:    5,
		BackoffFactor: 1,
		RetryOnStatus: []int{500, 502, 503, 504},
	}
}

// Option is a function that configures a [Checker] during construction.
//
// Options return an error if validation fails.
//
// Built-in options: [WithExpectations], [WithNotifier], [WithLogger],
// [WithRequestTimeout], [WithRetryPolicy], [WithDefaultHeaders],
// [WithSubject], [WithCooldown], [WithResultCallback], [WithFailFast],
// [WithClock].
type Option func(*checkerConfig) error

// WithExpectations adds pages to the registry.
//
// Can be called multiple times. At least one expectation must be configured
// for [New] to succeed, and every URL must be unique.
//
// Example:
//
//	c, err := slotwatch.New(
//	    slotwatch.WithExpectations(exp1, exp2),
//	)
func WithExpectations(expectations ...Expectation) Option {
	return func(cfg *checkerConfig) error {
		cfg.expectations = append(cfg.expectations, expectations...)
		return nil
	}
}

// WithNotifier sets where availability messages are delivered.
//
// If not specified, messages are only logged.
//
// Returns an error if the notifier is nil.
func WithNotifier(n Notifier) Option {
	return func(cfg *checkerConfig) error {
		if n == nil {
			return errors.New("notifier cannot be nil")
		}
		cfg.notifier = n
		return nil
	}
}

// WithLogger sets a custom [slog.Logger] for the Checker.
//
// If not specified, [slog.Default] is used.
//
// Returns an error if the logger is nil.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *checkerConfig) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		cfg.logger = logger
		return nil
	}
}

// WithRequestTimeout bounds each HTTP attempt. Defaults to 30 seconds.
//
// Returns an error if the duration is zero or negative.
func WithRequestTimeout(d time.Duration) Option {
	return func(cfg *checkerConfig) error {
		if d <= 0 {
			return errors.New("request timeout must be positive")
		}
		cfg.requestTimeout = d
		return nil
	}
}

// WithRetryPolicy replaces [DefaultRetryPolicy].
//
// Returns an error if MaxRetries or BackoffFactor is negative, or if a
// status code is outside 100-599.
func WithRetryPolicy(p RetryPolicy) Option {
	return func(cfg *checkerConfig) error {
		if p.MaxRetries < 0 {
			return errors.New("max retries cannot be negative")
		}
		if p.BackoffFactor < 0 {
			return errors.New("backoff factor cannot be negative")
		}
		for _, code := range p.RetryOnStatus {
			if code < 100 || code > 599 {
				return errors.New("retry status codes must be between 100 and 599")
			}
		}
		p.RetryOnStatus = append([]int(nil), p.RetryOnStatus...)
		cfg.retryPolicy = p
		return nil
	}
}

// WithDefaultHeaders sets headers sent with every request.
//
// They are layered over the built-in browser headers, so a key given here
// replaces the browser value. Per-page headers from [WithHeaders] take
// precedence over both. Keys are matched case-insensitively. The number of
// arguments must be even.
//
// Example:
//
//	c, err := slotwatch.New(
//	    slotwatch.WithExpectations(exp),
//	    slotwatch.WithDefaultHeaders("Accept-Language", "en-GB"),
//	)
func WithDefaultHeaders(keyValues ...string) Option {
	return func(cfg *checkerConfig) error {
		if len(keyValues)%2 != 0 {
			return errors.New("WithDefaultHeaders requires an even number of arguments (key-value pairs)")
		}
		for i := 0; i < len(keyValues); i += 2 {
			cfg.defaultHeaders[http.CanonicalHeaderKey(keyValues[i])] = keyValues[i+1]
		}
		return nil
	}
}

// WithSubject sets the subject line of availability messages.
// Defaults to [DefaultSubject].
func WithSubject(subject string) Option {
	return func(cfg *checkerConfig) error {
		if subject == "" {
			return errors.New("subject cannot be empty")
		}
		cfg.subject = subject
		return nil
	}
}

// WithCooldown suppresses repeat notifications for the same URL.
//
// Before notifying, the Checker asks the [Cooldown] whether the URL may be
// announced. Cooldown errors are logged and the notification is sent anyway.
// Programs that call [Checker.Run] in a loop can use [NewMemoryCooldown]:
//
//	c, err := slotwatch.New(
//	    slotwatch.WithExpectations(exp),
//	    slotwatch.WithCooldown(slotwatch.NewMemoryCooldown(6*time.Hour)),
//	)
//
// Nil is ignored.
func WithCooldown(c Cooldown) Option {
	return func(cfg *checkerConfig) error {
		cfg.cooldown = c
		return nil
	}
}

// WithResultCallback registers a function called once per checked page.
//
// Callbacks run after any notification, in registration order, on the
// goroutine that called [Checker.Run]. Panics within callbacks are
// recovered and logged.
//
// Example:
//
//	c, err := slotwatch.New(
//	    slotwatch.WithExpectations(exp),
//	    slotwatch.WithResultCallback(func(r slotwatch.CheckResult) {
//	        if r.Matched {
//	            fmt.Println("open:", r.URL)
//	        }
//	    }),
//	)
//
// Nil callbacks are silently ignored.
func WithResultCallback(cb func(CheckResult)) Option {
	return func(cfg *checkerConfig) error {
		if cb == nil {
			return nil
		}
		cfg.resultCallbacks = append(cfg.resultCallbacks, cb)
		return nil
	}
}

// WithFailFast makes [Checker.Run] stop at the first page that cannot be
// fetched or parsed. By default such pages are logged and skipped.
func WithFailFast(failFast bool) Option {
	return func(cfg *checkerConfig) error {
		cfg.failFast = failFast
		return nil
	}
}

// WithClock sets the time source used for message timestamps and
// [CheckResult.CheckedAt]. Defaults to [time.Now].
//
// Returns an error if the function is nil.
func WithClock(now func() time.Time) Option {
	return func(cfg *checkerConfig) error {
		if now == nil {
			return errors.New("clock cannot be nil")
		}
		cfg.clock = now
		return nil
	}
}
