package mail

import (
	"context"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
)

const sendPath = "/v3/mail/send"

type SendGridTransport struct {
	client   *sendgrid.Client
	from     string
	fromName string
}

// NewSendGridTransport talks to host, or to the public API when host is empty.
func NewSendGridTransport(apiKey, host, from, fromName string) *SendGridTransport {
	client := sendgrid.NewSendClient(apiKey)
	if host != "" {
		client.BaseURL = host + sendPath
	}
	return &SendGridTransport{client: client, from: from, fromName: fromName}
}

func (t *SendGridTransport) Deliver(ctx context.Context, msg Message) error {
	message := sgmail.NewSingleEmail(
		sgmail.NewEmail(t.fromName, t.from),
		msg.Subject,
		sgmail.NewEmail(msg.ToName, msg.To),
		msg.Text,
		msg.HTML,
	)

	resp, err := t.client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("sendgrid send: %w", err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("sendgrid returned status %d: %s", resp.StatusCode, resp.Body)
	}
	return nil
}
