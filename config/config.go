// Package config provides YAML configuration parsing for slotwatch.
//
// A configuration file is the registry of pages to check plus the settings
// that apply to every check. When no file is given, [Default] returns the
// built-in registry.
//
// Example configuration:
//
//	timeout: 30s
//	subject: Covid Vaccine Appointment Availability
//	retry:
//	  max_retries: 5
//	  backoff_factor: 1
//	  status_forcelist: [500, 502, 503, 504]
//
//	expectations:
//	  - url: https://vaccines.example.com
//	    marker: Vaccine appointment schedule is FULL
//	  - url: https://signup.example.com/go/clinic
//	    marker:
//	      - This sign up has no slots that are currently available.
//	      - NO SLOTS AVAILABLE. SIGN UP IS FULL.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"net/url"
	"os"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// registry.yaml holds the default registry of pages.
//
//go:embed registry.yaml
var defaultRegistry []byte

// minTimeout is the minimum allowed request timeout.
const minTimeout = 1 * time.Second

const (
	defaultTimeout       = 30 * time.Second
	defaultMaxRetries    = 5
	defaultBackoffFactor = 1.0
)

var defaultStatusForcelist = []int{500, 502, 503, 504}

// validate checks struct tags. Field names in errors use the yaml keys.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Config is the root configuration structure for slotwatch.
//
// It maps directly to the YAML configuration file structure.
// Use [Load], [Parse] or [Default] to create a Config.
type Config struct {
	// Timeout bounds each HTTP attempt. Defaults to 30s.
	Timeout Duration `yaml:"timeout"`

	// Subject is the subject line of availability messages.
	// Empty means the checker default.
	Subject string `yaml:"subject"`

	// Retry controls how failed fetches are retried.
	Retry RetryConfig `yaml:"retry"`

	// Headers override the default browser headers for every request.
	// Values support environment variable substitution.
	Headers map[string]string `yaml:"headers"`

	// Cooldown enables Redis-backed suppression of repeat notifications.
	Cooldown CooldownConfig `yaml:"cooldown"`

	// Expectations is the registry of pages to check.
	Expectations []ExpectationConfig `yaml:"expectations" validate:"-"`
}

// RetryConfig defines the retry policy.
//
// Unset fields take the defaults: five retries, a backoff factor of one,
// and retries on 500, 502, 503 and 504.
type RetryConfig struct {
	// MaxRetries is the number of retries after the first attempt.
	// Zero disables retries.
	MaxRetries *int `yaml:"max_retries" validate:"omitempty,gte=0"`

	// BackoffFactor scales the exponential wait between retries, in seconds.
	BackoffFactor *float64 `yaml:"backoff_factor" validate:"omitempty,gte=0"`

	// StatusForcelist lists the HTTP status codes that trigger a retry.
	StatusForcelist []int `yaml:"status_forcelist" validate:"dive,gte=100,lte=599"`
}

// CooldownConfig defines the optional Redis cooldown store.
//
// The cooldown is enabled only when RedisAddr is set.
type CooldownConfig struct {
	// RedisAddr is the host:port of the Redis server.
	// Supports environment variable substitution.
	RedisAddr string `yaml:"redis_addr" validate:"omitempty,hostname_port"`

	// RedisPassword is the Redis password.
	// Supports environment variable substitution.
	RedisPassword string `yaml:"redis_password"`

	// RedisDB selects the Redis database.
	RedisDB int `yaml:"redis_db" validate:"gte=0"`

	// KeyPrefix namespaces the cooldown keys.
	KeyPrefix string `yaml:"key_prefix"`

	// TTL is how long a URL stays silent after a notification.
	TTL Duration `yaml:"ttl" validate:"gte=0"`
}

// Enabled reports whether a Redis address is configured.
func (c CooldownConfig) Enabled() bool {
	return c.RedisAddr != ""
}

// ExpectationConfig defines a single page to check.
type ExpectationConfig struct {
	// URL is the page to fetch. It is the unique key of the registry.
	// Supports environment variable substitution: ${VAR} or ${VAR:-default}
	URL string `yaml:"url" validate:"required,url"`

	// Name is the display label. Defaults to the URL's host.
	Name string `yaml:"name"`

	// Marker is one text fragment or a list of them.
	Marker Markers `yaml:"marker" validate:"required,min=1,dive,required"`

	// ShouldExist selects the polarity. With false (the default) the page
	// is available when none of the markers appear.
	ShouldExist bool `yaml:"should_exist"`

	// Selector narrows matching to the elements matched by a CSS selector.
	Selector string `yaml:"selector"`

	// Format is "raw" (default), "html" or "rss".
	Format string `yaml:"format" validate:"omitempty,oneof=raw html rss"`

	// Headers are sent only when fetching this page.
	// Values support environment variable substitution.
	Headers map[string]string `yaml:"headers"`
}

// Markers is a list of literal text fragments.
//
// It supports two formats in YAML:
//
//	marker: Vaccine appointment schedule is FULL
//
//	marker:
//	  - This sign up has no slots that are currently available.
//	  - NO SLOTS AVAILABLE. SIGN UP IS FULL.
type Markers []string

// UnmarshalYAML implements yaml.Unmarshaler for Markers.
func (m *Markers) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var s string
		if err := node.Decode(&s); err != nil {
			return err
		}
		*m = Markers{s}
		return nil
	case yaml.SequenceNode:
		var list []string
		if err := node.Decode(&list); err != nil {
			return err
		}
		*m = Markers(list)
		return nil
	}
	return fmt.Errorf("marker must be a string or list of strings, got %v", node.Kind)
}

// Duration wraps time.Duration for YAML unmarshalling.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}

	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}

	*d = Duration(parsed)
	return nil
}

// Duration returns the underlying time.Duration value.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns.
// Group 1: variable name
// Group 2: the ":-default" part (if present, indicates a default was specified)
// Group 3: the default value (may be empty for ${VAR:-})
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(:-([^}]*))?\}`)

// expandEnvVars replaces ${VAR} and ${VAR:-default} patterns with environment values.
func expandEnvVars(s string) (string, error) {
	var firstErr error

	result := envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		if firstErr != nil {
			return match
		}

		submatches := envVarPattern.FindStringSubmatch(match)
		if len(submatches) < 2 {
			return match
		}

		varName := submatches[1]
		hasDefault := len(submatches) > 2 && submatches[2] != ""
		defaultVal := ""
		if hasDefault && len(submatches) > 3 {
			defaultVal = submatches[3]
		}

		value, exists := os.LookupEnv(varName)
		if !exists {
			if hasDefault {
				return defaultVal
			}
			firstErr = fmt.Errorf("environment variable %q is not set", varName)
			return match
		}
		return value
	})

	if firstErr != nil {
		return "", firstErr
	}
	return result, nil
}

// Load reads and parses a YAML configuration file.
//
// Returns an error if the file cannot be read, parsed or validated.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Default returns the built-in registry.
func Default() (*Config, error) {
	cfg, err := Parse(defaultRegistry)
	if err != nil {
		return nil, fmt.Errorf("built-in registry: %w", err)
	}
	return cfg, nil
}

// Parse parses YAML configuration data.
//
// Environment variables are expanded in URLs, header values and the Redis
// address and password. Defaults are applied for Timeout (30s) and the
// retry policy.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if cfg.Timeout == 0 {
		cfg.Timeout = Duration(defaultTimeout)
	}
	if cfg.Retry.MaxRetries == nil {
		n := defaultMaxRetries
		cfg.Retry.MaxRetries = &n
	}
	if cfg.Retry.BackoffFactor == nil {
		f := defaultBackoffFactor
		cfg.Retry.BackoffFactor = &f
	}
	if cfg.Retry.StatusForcelist == nil {
		cfg.Retry.StatusForcelist = append([]int(nil), defaultStatusForcelist...)
	}

	if err := cfg.expandAndValidate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// expandAndValidate expands environment variables and validates the config.
func (c *Config) expandAndValidate() error {
	if c.Timeout.Duration() < minTimeout {
		return fmt.Errorf("timeout must be at least %s, got %s", minTimeout, c.Timeout.Duration())
	}

	if err := expandHeaders(c.Headers); err != nil {
		return fmt.Errorf("headers%w", err)
	}

	var err error
	if c.Cooldown.RedisAddr, err = expandEnvVars(c.Cooldown.RedisAddr); err != nil {
		return fmt.Errorf("cooldown: redis_addr: %w", err)
	}
	if c.Cooldown.RedisPassword, err = expandEnvVars(c.Cooldown.RedisPassword); err != nil {
		return fmt.Errorf("cooldown: redis_password: %w", err)
	}

	if err := validate.Struct(c); err != nil {
		return describeValidation(err)
	}

	if len(c.Expectations) == 0 {
		return errors.New("at least one expectation must be defined")
	}

	seen := make(map[string]int, len(c.Expectations))
	for i := range c.Expectations {
		ec := &c.Expectations[i]

		if ec.URL == "" {
			return fmt.Errorf("expectations[%d]: url is required", i)
		}
		expanded, err := expandEnvVars(ec.URL)
		if err != nil {
			return fmt.Errorf("expectations[%d]: url: %w", i, err)
		}
		ec.URL = expanded

		if err := validate.Struct(ec); err != nil {
			return fmt.Errorf("expectations[%d]: %w", i, describeValidation(err))
		}

		parsedURL, err := url.Parse(ec.URL)
		if err != nil {
			return fmt.Errorf("expectations[%d]: invalid url: %w", i, err)
		}
		if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
			return fmt.Errorf("expectations[%d]: url scheme must be http or https, got %q", i, parsedURL.Scheme)
		}

		if first, dup := seen[ec.URL]; dup {
			return fmt.Errorf("expectations[%d]: duplicate url %q (first defined at expectations[%d])", i, ec.URL, first)
		}
		seen[ec.URL] = i

		if ec.Selector != "" && ec.Format != "" && ec.Format != "html" {
			return fmt.Errorf("expectations[%d]: selector requires format html, got %q", i, ec.Format)
		}

		if err := expandHeaders(ec.Headers); err != nil {
			return fmt.Errorf("expectations[%d]: headers%w", i, err)
		}
	}

	return nil
}

// expandHeaders expands environment variables in header values in place.
func expandHeaders(headers map[string]string) error {
	for k, v := range headers {
		expanded, err := expandEnvVars(v)
		if err != nil {
			return fmt.Errorf("[%s]: %w", k, err)
		}
		headers[k] = expanded
	}
	return nil
}

// describeValidation turns validator errors into messages that name the
// yaml field.
func describeValidation(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}

	fe := verrs[0]
	field := fieldPath(fe.Namespace())
	switch fe.Tag() {
	case "required":
		return fmt.Errorf("%s is required", field)
	case "min":
		return fmt.Errorf("%s must have at least %s entries", field, fe.Param())
	case "url":
		return fmt.Errorf("%s must be a valid URL, got %q", field, fe.Value())
	case "oneof":
		return fmt.Errorf("%s must be one of [%s], got %q", field, fe.Param(), fe.Value())
	case "hostname_port":
		return fmt.Errorf("%s must be host:port, got %q", field, fe.Value())
	case "gte", "lte":
		return fmt.Errorf("%s must be %s %s, got %v", field, fe.Tag(), fe.Param(), fe.Value())
	default:
		return fmt.Errorf("%s failed %q validation", field, fe.Tag())
	}
}

// fieldPath drops the root struct name from a validator namespace:
// "Config.retry.max_retries" becomes "retry.max_retries".
func fieldPath(namespace string) string {
	if i := strings.Index(namespace, "."); i != -1 {
		return namespace[i+1:]
	}
	return namespace
}
