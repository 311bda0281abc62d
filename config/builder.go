package config

import (
	"fmt"
	"sort"

	"github.com/jpalmerr/slotwatch"
	"github.com/jpalmerr/slotwatch/internal/cooldown"
)

// BuildExpectations converts the parsed registry into SDK Expectation values,
// in file order.
func BuildExpectations(cfg *Config) ([]slotwatch.Expectation, error) {
	expectations := make([]slotwatch.Expectation, 0, len(cfg.Expectations))
	for i, ec := range cfg.Expectations {
		exp, err := buildExpectation(ec)
		if err != nil {
			return nil, fmt.Errorf("expectations[%d]: %w", i, err)
		}
		expectations = append(expectations, exp)
	}
	return expectations, nil
}

// buildExpectation converts a single ExpectationConfig to an SDK Expectation.
func buildExpectation(ec ExpectationConfig) (slotwatch.Expectation, error) {
	opts := []slotwatch.ExpectationOption{
		slotwatch.WithShouldExist(ec.ShouldExist),
	}

	if ec.Name != "" {
		opts = append(opts, slotwatch.WithName(ec.Name))
	}

	if ec.Format != "" {
		format, err := slotwatch.ParseFormat(ec.Format)
		if err != nil {
			return slotwatch.Expectation{}, err
		}
		opts = append(opts, slotwatch.WithFormat(format))
	}

	if ec.Selector != "" {
		opts = append(opts, slotwatch.WithSelector(ec.Selector))
	}

	if len(ec.Headers) > 0 {
		opts = append(opts, slotwatch.WithHeaders(mapToKeyValuePairs(ec.Headers)...))
	}

	return slotwatch.NewExpectation(ec.URL, ec.Marker, opts...)
}

// BuildOptions converts the global settings into checker options.
//
// The registry itself is not included; combine with [BuildExpectations]
// and [slotwatch.WithExpectations].
func BuildOptions(cfg *Config) []slotwatch.Option {
	opts := []slotwatch.Option{
		slotwatch.WithRequestTimeout(cfg.Timeout.Duration()),
		slotwatch.WithRetryPolicy(BuildRetryPolicy(cfg.Retry)),
	}

	if cfg.Subject != "" {
		opts = append(opts, slotwatch.WithSubject(cfg.Subject))
	}

	if len(cfg.Headers) > 0 {
		opts = append(opts, slotwatch.WithDefaultHeaders(mapToKeyValuePairs(cfg.Headers)...))
	}

	return opts
}

// BuildRetryPolicy converts a RetryConfig, filling unset fields from
// [slotwatch.DefaultRetryPolicy].
func BuildRetryPolicy(rc RetryConfig) slotwatch.RetryPolicy {
	p := slotwatch.DefaultRetryPolicy()
	if rc.MaxRetries != nil {
		p.MaxRetries = *rc.MaxRetries
	}
	if rc.BackoffFactor != nil {
		p.BackoffFactor = *rc.BackoffFactor
	}
	if rc.StatusForcelist != nil {
		p.RetryOnStatus = append([]int(nil), rc.StatusForcelist...)
	}
	return p
}

// BuildCooldownOptions converts a CooldownConfig into Redis store options.
// The second result is false when no Redis address is configured.
func BuildCooldownOptions(cc CooldownConfig) (cooldown.Options, bool) {
	if !cc.Enabled() {
		return cooldown.Options{}, false
	}
	return cooldown.Options{
		Addr:      cc.RedisAddr,
		Password:  cc.RedisPassword,
		DB:        cc.RedisDB,
		KeyPrefix: cc.KeyPrefix,
		TTL:       cc.TTL.Duration(),
	}, true
}

// mapToKeyValuePairs converts a map to a sorted slice of key-value pairs.
func mapToKeyValuePairs(m map[string]string) []string {
	// sort keys for deterministic ordering
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(m)*2)
	for _, k := range keys {
		pairs = append(pairs, k, m[k])
	}
	return pairs
}
