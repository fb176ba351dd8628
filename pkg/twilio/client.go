package twilio

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/twilio/twilio-go"
	twclient "github.com/twilio/twilio-go/client"
	api "github.com/twilio/twilio-go/rest/api/v2010"
	lookups "github.com/twilio/twilio-go/rest/lookups/v2"

	"github.com/angelmondragon/notifyd/pkg/config"
	pkgerrors "github.com/angelmondragon/notifyd/pkg/errors"
	"github.com/angelmondragon/notifyd/pkg/logger"
)

var (
	errAccountSIDRequired = errors.New("twilio account sid is required")
	errAuthTokenRequired  = errors.New("twilio auth token is required")

	// ErrInvalidNumber is returned when the lookup rejects a phone number.
	ErrInvalidNumber = errors.New("phone number is not valid")
)

type messageAPI interface {
	CreateMessage(params *api.CreateMessageParams) (*api.ApiV2010Message, error)
}

type lookupAPI interface {
	FetchPhoneNumber(phoneNumber string, params *lookups.FetchPhoneNumberParams) (*lookups.LookupsV2PhoneNumber, error)
}

// Client wraps the Twilio REST client for message sends and number lookups.
type Client struct {
	messages messageAPI
	lookups  lookupAPI
	logg     *logger.Logger
}

// NewClient builds a REST client from the configured credentials.
func NewClient(ctx context.Context, cfg config.TwilioConfig, logg *logger.Logger) (*Client, error) {
	sid := strings.TrimSpace(cfg.AccountSID)
	if sid == "" {
		return nil, errAccountSIDRequired
	}
	token := strings.TrimSpace(cfg.AuthToken)
	if token == "" {
		return nil, errAuthTokenRequired
	}

	rest := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: sid,
		Password: token,
	})
	if cfg.Timeout > 0 {
		rest.SetTimeout(cfg.Timeout)
	}

	if logg != nil {
		logg.Info(ctx, "twilio client initialized")
	}
	return &Client{messages: rest.Api, lookups: rest.LookupsV2, logg: logg}, nil
}

// Message is one outbound provider call.
type Message struct {
	To             string
	From           string
	Body           string
	MediaURL       string
	StatusCallback string
}

// Delivery captures the wire payload sent and the structured payload received
// for a single provider call.
type Delivery struct {
	Request  map[string]any
	Response map[string]any
	Sid      string
	Status   string
}

// FormatNumber resolves input to E.164 through the lookup API. Rejected
// numbers yield ErrInvalidNumber.
func (c *Client) FormatNumber(ctx context.Context, input string) (string, error) {
	if c == nil || c.lookups == nil {
		return "", pkgerrors.New(pkgerrors.CodeDependency, "twilio lookups not configured")
	}
	input = strings.TrimSpace(input)
	if input == "" {
		return "", ErrInvalidNumber
	}

	resp, err := c.lookups.FetchPhoneNumber(input, &lookups.FetchPhoneNumberParams{})
	if err != nil {
		var restErr *twclient.TwilioRestError
		if errors.As(err, &restErr) && restErr.Status == 404 {
			return "", ErrInvalidNumber
		}
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "twilio lookup failed")
	}
	if resp == nil || resp.PhoneNumber == nil || (resp.Valid != nil && !*resp.Valid) {
		return "", ErrInvalidNumber
	}
	return *resp.PhoneNumber, nil
}

// SendMessage performs one CreateMessage call.
func (c *Client) SendMessage(ctx context.Context, msg Message) (*Delivery, error) {
	if c == nil || c.messages == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "twilio messages not configured")
	}

	params := &api.CreateMessageParams{}
	params.SetTo(msg.To)
	params.SetFrom(msg.From)
	if msg.Body != "" {
		params.SetBody(msg.Body)
	}
	if msg.MediaURL != "" {
		params.SetMediaUrl([]string{msg.MediaURL})
	}
	if msg.StatusCallback != "" {
		params.SetStatusCallback(msg.StatusCallback)
	}

	resp, err := c.messages.CreateMessage(params)
	if err != nil {
		wrapped := pkgerrors.Wrap(pkgerrors.CodeDependency, err, "twilio message create failed")
		var restErr *twclient.TwilioRestError
		if errors.As(err, &restErr) {
			wrapped = wrapped.WithDetails(map[string]any{
				"twilio_code":   restErr.Code,
				"twilio_status": restErr.Status,
			})
		}
		return nil, wrapped
	}

	delivery := &Delivery{
		Request:  requestSnapshot(msg),
		Response: responseSnapshot(resp),
	}
	if resp != nil {
		delivery.Sid = deref(resp.Sid)
		delivery.Status = deref(resp.Status)
	}
	if c.logg != nil {
		c.logg.Debug(c.logg.WithFields(ctx, map[string]any{"sid": delivery.Sid, "status": delivery.Status}), "twilio message created")
	}
	return delivery, nil
}

// requestSnapshot mirrors the form fields placed on the wire.
func requestSnapshot(msg Message) map[string]any {
	out := map[string]any{
		"To":   msg.To,
		"From": msg.From,
	}
	if msg.Body != "" {
		out["Body"] = msg.Body
	}
	if msg.MediaURL != "" {
		out["MediaUrl"] = msg.MediaURL
	}
	if msg.StatusCallback != "" {
		out["StatusCallback"] = msg.StatusCallback
	}
	return out
}

func responseSnapshot(resp *api.ApiV2010Message) map[string]any {
	if resp == nil {
		return map[string]any{}
	}
	out := map[string]any{
		"sid":           nilIfEmpty(resp.Sid),
		"status":        nilIfEmpty(resp.Status),
		"to":            nilIfEmpty(resp.To),
		"from":          nilIfEmpty(resp.From),
		"body":          nilIfEmpty(resp.Body),
		"num_media":     nilIfEmpty(resp.NumMedia),
		"num_segments":  nilIfEmpty(resp.NumSegments),
		"account_sid":   nilIfEmpty(resp.AccountSid),
		"error_message": nilIfEmpty(resp.ErrorMessage),
		"uri":           nilIfEmpty(resp.Uri),
	}
	if resp.ErrorCode != nil {
		out["error_code"] = strconv.Itoa(*resp.ErrorCode)
	} else {
		out["error_code"] = nil
	}
	return out
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func nilIfEmpty(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

// String is used in log lines.
func (m Message) String() string {
	return fmt.Sprintf("to=%s from=%s media=%t body=%t", m.To, m.From, m.MediaURL != "", m.Body != "")
}
