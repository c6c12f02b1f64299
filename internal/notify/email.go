package notify

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// SendGridConfig holds configuration for SendGrid.
type SendGridConfig struct {
	APIKey    string
	FromEmail string
	FromName  string
}

// SendGridNotifier sends confirmation emails via the SendGrid API.
type SendGridNotifier struct {
	client    *sendgrid.Client
	fromEmail string
	fromName  string
	log       zerolog.Logger
}

// NewSendGridNotifier returns nil when no API key is configured; callers
// fall back to the log-only notifier.
func NewSendGridNotifier(cfg SendGridConfig, log zerolog.Logger) *SendGridNotifier {
	if cfg.APIKey == "" {
		return nil
	}
	if cfg.FromName == "" {
		cfg.FromName = "Booking"
	}
	return &SendGridNotifier{
		client:    sendgrid.NewSendClient(cfg.APIKey),
		fromEmail: cfg.FromEmail,
		fromName:  cfg.FromName,
		log:       log,
	}
}

func (s *SendGridNotifier) SendConfirmation(ctx context.Context, c Confirmation) error {
	if c.ClientEmail == "" {
		s.log.Debug().Str("client", c.ClientName).Msg("no client email, skipping confirmation")
		return nil
	}

	subject := fmt.Sprintf("Your appointment with %s", c.BusinessName)
	body := fmt.Sprintf("Hi %s,\n\nYour %s appointment with %s is booked for %s.\n\n%s\n",
		c.ClientName, c.ServiceName, c.BusinessName, c.StartsAt, c.Message)

	from := mail.NewEmail(s.fromName, s.fromEmail)
	to := mail.NewEmail(c.ClientName, c.ClientEmail)
	msg := mail.NewSingleEmail(from, subject, to, body, "")

	resp, err := s.client.SendWithContext(ctx, msg)
	if err != nil {
		return fmt.Errorf("sendgrid send: %w", err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("sendgrid send: status %d: %s", resp.StatusCode, resp.Body)
	}

	s.log.Info().Str("to", c.ClientEmail).Msg("confirmation email sent")
	return nil
}

// LogNotifier is the fallback when no email transport is configured. It
// records the confirmation and succeeds.
type LogNotifier struct {
	log zerolog.Logger
}

func NewLogNotifier(log zerolog.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (l *LogNotifier) SendConfirmation(_ context.Context, c Confirmation) error {
	l.log.Info().
		Str("business", c.BusinessName).
		Str("client", c.ClientName).
		Str("service", c.ServiceName).
		Str("starts_at", c.StartsAt).
		Msg("booking confirmation (log only)")
	return nil
}
