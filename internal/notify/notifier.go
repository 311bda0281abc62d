package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
)

// ErrUnknownMode is returned for a notification mode outside the supported set.
var ErrUnknownMode = errors.New("unsupported notification type")

// Mode selects the notification channel.
type Mode string

const (
	// ModeNone logs the would-be message without sending anything.
	ModeNone Mode = "none"

	// ModeSMS sends the message as a text message.
	ModeSMS Mode = "sms"
)

// String implements fmt.Stringer.
func (m Mode) String() string {
	return string(m)
}

// ParseMode converts a user-supplied value into a [Mode].
// Matching is case-insensitive and ignores surrounding whitespace.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeNone:
		return ModeNone, nil
	case ModeSMS:
		return ModeSMS, nil
	default:
		return "", fmt.Errorf("%w: %q (expected %q or %q)", ErrUnknownMode, s, ModeNone, ModeSMS)
	}
}

// Notifier delivers a formatted notification message.
type Notifier interface {
	Notify(ctx context.Context, message string) error
}

type options struct {
	logger    *slog.Logger
	lookupEnv func(string) (string, bool)
}

// Option configures [New].
type Option func(*options)

// WithLogger sets the logger used by the notifier. Defaults to [slog.Default].
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithLookupEnv replaces [os.LookupEnv] as the source of SMS credentials.
func WithLookupEnv(fn func(string) (string, bool)) Option {
	return func(o *options) {
		if fn != nil {
			o.lookupEnv = fn
		}
	}
}

// New builds the [Notifier] for mode.
//
// For [ModeSMS] the Twilio credentials are read from the environment and
// the recipient is normalised and validated; any problem is returned here,
// before a single page is fetched.
func New(mode Mode, recipient string, opts ...Option) (Notifier, error) {
	o := &options{
		logger:    slog.Default(),
		lookupEnv: os.LookupEnv,
	}
	for _, opt := range opts {
		opt(o)
	}

	switch mode {
	case ModeNone:
		return NewLogNotifier(recipient, o.logger), nil
	case ModeSMS:
		creds, err := CredentialsFromEnv(o.lookupEnv)
		if err != nil {
			return nil, err
		}
		return NewSMSNotifier(creds, recipient, o.logger)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}
}

// LogNotifier logs messages instead of sending them.
type LogNotifier struct {
	recipient string
	logger    *slog.Logger
}

// NewLogNotifier returns a [LogNotifier]. A nil logger selects [slog.Default].
func NewLogNotifier(recipient string, logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{recipient: recipient, logger: logger}
}

// Notify logs message at info level and never fails.
func (n *LogNotifier) Notify(ctx context.Context, message string) error {
	n.logger.InfoContext(ctx, "Skipping notification. Would've sent the following message",
		"recipient", n.recipient,
		"message", message,
	)
	return nil
}
