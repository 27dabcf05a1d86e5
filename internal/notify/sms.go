package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/twilio/twilio-go"
	twilioapi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/pulseline/notifyd/internal/logger"
)

// SMSConfig holds the Twilio credentials. All three fields are required
// before any network call is attempted.
type SMSConfig struct {
	AccountSID string
	AuthToken  string
	FromNumber string
}

func (c SMSConfig) complete() bool {
	return c.AccountSID != "" && c.AuthToken != "" && c.FromNumber != ""
}

// messageCreator is the slice of the Twilio REST client the adapter uses.
type messageCreator interface {
	CreateMessage(params *twilioapi.CreateMessageParams) (*twilioapi.ApiV2010Message, error)
}

// SMSAdapter delivers notifications through the Twilio messaging API.
type SMSAdapter struct {
	cfg    SMSConfig
	client messageCreator
	logger *logger.Logger
}

// NewSMSAdapter creates an SMS adapter. With incomplete credentials the
// adapter still constructs; every Send then fails fast without a client.
func NewSMSAdapter(cfg SMSConfig, logger *logger.Logger) *SMSAdapter {
	a := &SMSAdapter{
		cfg:    cfg,
		logger: logger.WithComponent("sms_adapter"),
	}
	if cfg.complete() {
		a.client = twilio.NewRestClientWithParams(twilio.ClientParams{
			Username: cfg.AccountSID,
			Password: cfg.AuthToken,
		}).Api
	}
	return a
}

// Send submits one SMS to target. The title is unused; SMS carries only the
// content. The Twilio SDK takes no context, so the dispatch timeout bounds
// this call from the outside.
func (a *SMSAdapter) Send(ctx context.Context, target, title, content string) Result {
	if !a.cfg.complete() {
		return Result{OK: false, Detail: (&ConfigurationError{Detail: "Missing Twilio credentials"}).Error()}
	}

	params := &twilioapi.CreateMessageParams{}
	params.SetTo(target)
	params.SetFrom(a.cfg.FromNumber)
	params.SetBody(content)

	msg, err := a.client.CreateMessage(params)
	if err != nil {
		a.logger.Error("twilio send failed",
			slog.String("recipient", target),
			slog.String("error", err.Error()))
		return Result{OK: false, Detail: (&TransportError{Channel: "SMS", Err: err}).Error()}
	}

	sid := ""
	if msg.Sid != nil {
		sid = *msg.Sid
	}
	return Result{OK: true, Detail: fmt.Sprintf("SMS sent successfully. SID: %s", sid)}
}
