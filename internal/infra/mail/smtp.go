package mail

import (
	"context"
	"fmt"

	"gopkg.in/gomail.v2"
)

type SMTPTransport struct {
	dialer   *gomail.Dialer
	from     string
	fromName string
}

func NewSMTPTransport(host string, port int, user, password, from, fromName string) *SMTPTransport {
	return &SMTPTransport{
		dialer:   gomail.NewDialer(host, port, user, password),
		from:     from,
		fromName: fromName,
	}
}

// Deliver gives up waiting when ctx ends. gomail has no context support, so
// the dial itself finishes in the background.
func (t *SMTPTransport) Deliver(ctx context.Context, msg Message) error {
	m := gomail.NewMessage()
	m.SetAddressHeader("From", t.from, t.fromName)
	m.SetAddressHeader("To", msg.To, msg.ToName)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/plain", msg.Text)
	m.AddAlternative("text/html", msg.HTML)

	done := make(chan error, 1)
	go func() {
		done <- t.dialer.DialAndSend(m)
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("smtp send: %w", err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
