package notify

import (
	"context"
	"log/slog"

	"github.com/wneessen/go-mail"

	"github.com/pulseline/notifyd/internal/logger"
)

// EmailConfig holds the SMTP relay settings.
type EmailConfig struct {
	Host     string
	Port     int
	Sender   string
	Password string
}

// EmailAdapter delivers notifications over a STARTTLS SMTP session to the
// configured relay. One message per Send, no retry.
type EmailAdapter struct {
	cfg    EmailConfig
	send   func(ctx context.Context, cfg EmailConfig, msg *mail.Msg) error
	logger *logger.Logger
}

// NewEmailAdapter creates an email adapter.
func NewEmailAdapter(cfg EmailConfig, logger *logger.Logger) *EmailAdapter {
	return &EmailAdapter{
		cfg:    cfg,
		send:   sendSMTP,
		logger: logger.WithComponent("email_adapter"),
	}
}

// Send delivers a single plain-text message to target. Connection, auth,
// and submission failures all come back as a failed Result wrapping the
// transport error text.
func (a *EmailAdapter) Send(ctx context.Context, target, title, content string) Result {
	msg := mail.NewMsg()
	if err := msg.From(a.cfg.Sender); err != nil {
		return Result{OK: false, Detail: (&TransportError{Channel: "email", Err: err}).Error()}
	}
	if err := msg.To(target); err != nil {
		return Result{OK: false, Detail: (&TransportError{Channel: "email", Err: err}).Error()}
	}
	msg.Subject(title)
	msg.SetBodyString(mail.TypeTextPlain, content)

	if err := a.send(ctx, a.cfg, msg); err != nil {
		a.logger.Error("smtp send failed",
			slog.String("recipient", target),
			slog.String("error", err.Error()))
		return Result{OK: false, Detail: (&TransportError{Channel: "email", Err: err}).Error()}
	}

	return Result{OK: true, Detail: "Email notification sent successfully"}
}

// sendSMTP opens an authenticated STARTTLS session and submits the message.
func sendSMTP(ctx context.Context, cfg EmailConfig, msg *mail.Msg) error {
	client, err := mail.NewClient(cfg.Host,
		mail.WithPort(cfg.Port),
		mail.WithTLSPolicy(mail.TLSMandatory),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(cfg.Sender),
		mail.WithPassword(cfg.Password),
	)
	if err != nil {
		return err
	}
	return client.DialAndSendWithContext(ctx, msg)
}
