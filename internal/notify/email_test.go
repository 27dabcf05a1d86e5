package notify

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/wneessen/go-mail"
)

func TestEmailSendSuccess(t *testing.T) {
	var sent *mail.Msg
	a := NewEmailAdapter(EmailConfig{
		Host:   "smtp.example.com",
		Port:   587,
		Sender: "noreply@example.com",
	}, testLogger())
	a.send = func(ctx context.Context, cfg EmailConfig, msg *mail.Msg) error {
		sent = msg
		return nil
	}

	res := a.Send(context.Background(), "a@b.com", "T", "C")
	if !res.OK {
		t.Fatalf("expected success, got %+v", res)
	}
	if !strings.Contains(res.Detail, "sent successfully") {
		t.Errorf("unexpected detail %q", res.Detail)
	}
	if sent == nil {
		t.Fatal("no message handed to the transport")
	}
	if got := sent.GetToString(); len(got) != 1 || got[0] != "<a@b.com>" && got[0] != "a@b.com" {
		t.Errorf("unexpected recipient %v", got)
	}
}

func TestEmailTransportErrorBecomesResult(t *testing.T) {
	a := NewEmailAdapter(EmailConfig{
		Host:   "smtp.example.com",
		Port:   587,
		Sender: "noreply@example.com",
	}, testLogger())
	a.send = func(ctx context.Context, cfg EmailConfig, msg *mail.Msg) error {
		return errors.New("535 authentication failed")
	}

	res := a.Send(context.Background(), "a@b.com", "T", "C")
	if res.OK {
		t.Fatal("expected failure on transport error")
	}
	if !strings.Contains(res.Detail, "Failed to send email") ||
		!strings.Contains(res.Detail, "535 authentication failed") {
		t.Errorf("detail %q does not wrap the transport error", res.Detail)
	}
}

func TestEmailInvalidRecipientBecomesResult(t *testing.T) {
	called := false
	a := NewEmailAdapter(EmailConfig{
		Host:   "smtp.example.com",
		Port:   587,
		Sender: "noreply@example.com",
	}, testLogger())
	a.send = func(ctx context.Context, cfg EmailConfig, msg *mail.Msg) error {
		called = true
		return nil
	}

	res := a.Send(context.Background(), "not-an-address", "T", "C")
	if res.OK {
		t.Fatal("expected failure for malformed recipient")
	}
	if called {
		t.Error("transport should not be reached with a malformed recipient")
	}
}
