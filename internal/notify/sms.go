package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

// Environment variables holding the Twilio credentials.
const (
	EnvAccountSID = "TWILIO_ACCOUNT_SID"
	EnvAuthToken  = "TWILIO_AUTH_TOKEN"
	EnvFromNumber = "TWILIO_NUMBER"
)

// DefaultCountryCode is prepended to recipients without an international prefix.
const DefaultCountryCode = "+1"

// ErrMissingCredentials is returned when SMS credentials are not configured.
var ErrMissingCredentials = errors.New("missing SMS credentials")

var validate = validator.New()

// Credentials authenticate against the SMS relay.
type Credentials struct {
	AccountSID string `validate:"required"`
	AuthToken  string `validate:"required"`
	From       string `validate:"required"`
}

// CredentialsFromEnv reads [Credentials] through lookup, which is normally
// [os.LookupEnv]. Every missing or empty variable is named in the error.
func CredentialsFromEnv(lookup func(string) (string, bool)) (Credentials, error) {
	var missing []string
	get := func(key string) string {
		v, ok := lookup(key)
		v = strings.TrimSpace(v)
		if !ok || v == "" {
			missing = append(missing, key)
		}
		return v
	}

	creds := Credentials{
		AccountSID: get(EnvAccountSID),
		AuthToken:  get(EnvAuthToken),
		From:       get(EnvFromNumber),
	}
	if len(missing) > 0 {
		return Credentials{}, fmt.Errorf("%w: %s not set", ErrMissingCredentials, strings.Join(missing, ", "))
	}
	return creds, nil
}

// NormalizeRecipient trims whitespace and prepends [DefaultCountryCode]
// unless the number already carries a leading "+".
func NormalizeRecipient(phone string) string {
	phone = strings.TrimSpace(phone)
	if strings.HasPrefix(phone, "+") {
		return phone
	}
	return DefaultCountryCode + phone
}

// messageCreator is the part of the Twilio API used for sending.
type messageCreator interface {
	CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
}

// SMSNotifier sends notifications as text messages through Twilio.
type SMSNotifier struct {
	api    messageCreator
	from   string
	to     string
	logger *slog.Logger
}

// NewSMSNotifier validates creds and recipient and returns an [SMSNotifier].
//
// The recipient is passed through [NormalizeRecipient] and must then be a
// valid E.164 number.
func NewSMSNotifier(creds Credentials, recipient string, logger *slog.Logger) (*SMSNotifier, error) {
	if err := validate.Struct(creds); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMissingCredentials, err)
	}

	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: creds.AccountSID,
		Password: creds.AuthToken,
	})
	return newSMSNotifier(client.Api, creds.From, recipient, logger)
}

func newSMSNotifier(api messageCreator, from, recipient string, logger *slog.Logger) (*SMSNotifier, error) {
	if logger == nil {
		logger = slog.Default()
	}

	to := NormalizeRecipient(recipient)
	if to != strings.TrimSpace(recipient) {
		logger.Warn("adding country code to recipient", "country_code", DefaultCountryCode, "recipient", recipient)
	}
	if err := validate.Var(to, "required,e164"); err != nil {
		return nil, fmt.Errorf("invalid recipient %q: must be an E.164 phone number", recipient)
	}

	return &SMSNotifier{api: api, from: from, to: to, logger: logger}, nil
}

// Recipient returns the normalised destination number.
func (n *SMSNotifier) Recipient() string {
	return n.to
}

// Notify sends message to the recipient.
func (n *SMSNotifier) Notify(ctx context.Context, message string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetTo(n.to)
	params.SetFrom(n.from)
	params.SetBody(message)

	resp, err := n.api.CreateMessage(params)
	if err != nil {
		return fmt.Errorf("failed to send SMS to %s: %w", n.to, err)
	}

	sid := ""
	if resp != nil && resp.Sid != nil {
		sid = *resp.Sid
	}
	n.logger.InfoContext(ctx, "sms sent", "to", n.to, "sid", sid)
	return nil
}
