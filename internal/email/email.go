// Package email renders and sends action emails through Brevo or SMTP.
package email

import (
	"context"
	"fmt"

	"trade_portal_backend/platform/config"
)

// Message is one action email.
type Message struct {
	Template      string // template file without extension, e.g. "action_payment_required"
	Subject       string
	RecipientName string
	Heading       string
	Body          string
	CTALabel      string
	CTAURL        string
}

// Sender delivers action emails.
type Sender interface {
	SendActionEmail(ctx context.Context, toEmail string, msg Message) error
}

// NoopSender drops every email. Used when email is disabled.
type NoopSender struct{}

func (NoopSender) SendActionEmail(context.Context, string, Message) error { return nil }

// NewSender returns the configured sender.
func NewSender(cfg config.EmailConfig) (Sender, error) {
	if !cfg.GetEmailEnabled() {
		return NoopSender{}, nil
	}

	switch cfg.GetEmailProvider() {
	case "smtp":
		return NewSMTPSender(
			cfg.GetSMTPHost(), cfg.GetSMTPPort(), cfg.GetSMTPUsername(), cfg.GetSMTPPassword(),
			cfg.GetEmailFromAddress(), cfg.GetEmailFromName(),
		), nil
	case "brevo", "":
		return NewBrevoSender(cfg.GetBrevoAPIKey(), cfg.GetEmailFromAddress(), cfg.GetEmailFromName()), nil
	default:
		return nil, fmt.Errorf("unknown email provider %q", cfg.GetEmailProvider())
	}
}
