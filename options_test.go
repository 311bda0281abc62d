package slotwatch

import (
	"bytes"
	"log/slog"
	"testing"
	"time"
)

func testExpectation(t *testing.T, url string) Expectation {
	t.Helper()
	exp, err := NewExpectation(url, []string{"FULL"})
	if err != nil {
		t.Fatalf("NewExpectation() error = %v", err)
	}
	return exp
}

func TestNew_Valid(t *testing.T) {
	c, err := New(WithExpectations(testExpectation(t, "https://example.com")))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer c.Close()

	if len(c.Expectations()) != 1 {
		t.Errorf("Expectations() length = %d, want 1", len(c.Expectations()))
	}
}

func TestNew_NoExpectations(t *testing.T) {
	_, err := New()
	if err == nil {
		t.Error("New() expected error with no expectations, got nil")
	}
}

func TestNew_DuplicateURLs(t *testing.T) {
	a := testExpectation(t, "https://example.com/a")
	b := testExpectation(t, "https://example.com/b")

	_, err := New(
		WithExpectations(a, b),
		WithExpectations(testExpectation(t, "https://example.com/a")),
	)
	if err == nil {
		t.Error("New() expected error for duplicate url, got nil")
	}
}

func TestNew_Defaults(t *testing.T) {
	c, err := New(WithExpectations(testExpectation(t, "https://example.com")))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer c.Close()

	if c.subject != DefaultSubject {
		t.Errorf("subject = %q, want %q", c.subject, DefaultSubject)
	}
	if c.logger != slog.Default() {
		t.Error("logger should default to slog.Default()")
	}
	if _, ok := c.notifier.(*logNotifier); !ok {
		t.Errorf("notifier = %T, want *logNotifier", c.notifier)
	}
	if c.headers["User-Agent"] == "" {
		t.Error("default browser User-Agent header missing")
	}
	if c.failFast {
		t.Error("failFast should default to false")
	}
}

func TestDefaultRetryPolicy(t *testing.T) {
	p := DefaultRetryPolicy()
	if p.MaxRetries != 5 {
		t.Errorf("MaxRetries = %d, want 5", p.MaxRetries)
	}
	if p.BackoffFactor != 1 {
		t.Errorf("BackoffFactor = %v, want 1", p.BackoffFactor)
	}
	if len(p.RetryOnStatus) != 4 {
		t.Errorf("RetryOnStatus = %v, want 4 codes", p.RetryOnStatus)
	}
}

func TestWithRetryPolicy_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		policy RetryPolicy
	}{
		{"negative retries", RetryPolicy{MaxRetries: -1}},
		{"negative factor", RetryPolicy{BackoffFactor: -0.5}},
		{"bad status", RetryPolicy{RetryOnStatus: []int{700}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(
				WithExpectations(testExpectation(t, "https://example.com")),
				WithRetryPolicy(tt.policy),
			)
			if err == nil {
				t.Errorf("New() expected error for policy %+v, got nil", tt.policy)
			}
		})
	}
}

func TestWithRequestTimeout_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		timeout time.Duration
	}{
		{"zero", 0},
		{"negative", -time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(
				WithExpectations(testExpectation(t, "https://example.com")),
				WithRequestTimeout(tt.timeout),
			)
			if err == nil {
				t.Errorf("New() expected error for timeout %v, got nil", tt.timeout)
			}
		})
	}
}

func TestWithDefaultHeaders_Override(t *testing.T) {
	c, err := New(
		WithExpectations(testExpectation(t, "https://example.com")),
		WithDefaultHeaders("User-Agent", "slotwatch-test"),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer c.Close()

	if c.headers["User-Agent"] != "slotwatch-test" {
		t.Errorf("User-Agent = %q, want %q", c.headers["User-Agent"], "slotwatch-test")
	}
}

func TestWithDefaultHeaders_OddArguments(t *testing.T) {
	_, err := New(
		WithExpectations(testExpectation(t, "https://example.com")),
		WithDefaultHeaders("User-Agent"),
	)
	if err == nil {
		t.Error("New() expected error for odd header arguments, got nil")
	}
}

func TestNilOptions(t *testing.T) {
	exp := testExpectation(t, "https://example.com")

	tests := []struct {
		name string
		opt  Option
	}{
		{"logger", WithLogger(nil)},
		{"notifier", WithNotifier(nil)},
		{"clock", WithClock(nil)},
		{"subject", WithSubject("")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(WithExpectations(exp), tt.opt); err == nil {
				t.Errorf("New() expected error for nil %s, got nil", tt.name)
			}
		})
	}
}

func TestWithLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	c, err := New(
		WithExpectations(testExpectation(t, "https://example.com")),
		WithLogger(logger),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer c.Close()

	if c.logger != logger {
		t.Error("logger was not set")
	}
}

func TestWithResultCallback_Nil(t *testing.T) {
	c, err := New(
		WithExpectations(testExpectation(t, "https://example.com")),
		WithResultCallback(nil),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer c.Close()

	if len(c.resultCallbacks) != 0 {
		t.Errorf("resultCallbacks length = %d, want 0", len(c.resultCallbacks))
	}
}

func TestExpectations_Immutability(t *testing.T) {
	c, err := New(WithExpectations(
		testExpectation(t, "https://example.com/a"),
		testExpectation(t, "https://example.com/b"),
	))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer c.Close()

	got := c.Expectations()
	got[0] = testExpectation(t, "https://example.com/z")

	if c.Expectations()[0].URL() != "https://example.com/a" {
		t.Error("modifying Expectations() result affected the checker")
	}
}
