package notify

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// SendGridDispatcher delivers notifications through the SendGrid mail API.
type SendGridDispatcher struct {
	client      *sendgrid.Client
	fromAddress string
	fromName    string
	log         zerolog.Logger
}

func NewSendGridDispatcher(apiKey, fromAddress, fromName string, log zerolog.Logger) *SendGridDispatcher {
	return &SendGridDispatcher{
		client:      sendgrid.NewSendClient(apiKey),
		fromAddress: fromAddress,
		fromName:    fromName,
		log:         log,
	}
}

func (d *SendGridDispatcher) Send(ctx context.Context, msg Message) error {
	from := mail.NewEmail(d.fromName, d.fromAddress)
	to := mail.NewEmail(msg.RecipientName, msg.RecipientEmail)
	email := mail.NewSingleEmailPlainText(from, msg.Subject(), to, msg.Body())

	resp, err := d.client.SendWithContext(ctx, email)
	if err != nil {
		return fmt.Errorf("sendgrid send: %w", err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("sendgrid send: status %d: %s", resp.StatusCode, resp.Body)
	}

	d.log.Debug().
		Str("kind", string(msg.Kind)).
		Str("recipient", msg.RecipientEmail).
		Int("status", resp.StatusCode).
		Msg("notification delivered")
	return nil
}
