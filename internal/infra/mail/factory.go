package mail

import (
	"fmt"

	"github.com/xavierca1/lead-funnel/internal/config"
	"github.com/xavierca1/lead-funnel/internal/logger"
)

// NewTransport picks the transport named by cfg.Transport.
func NewTransport(cfg config.MailConfig, log *logger.Logger) (Transport, error) {
	switch cfg.Transport {
	case "smtp":
		return NewSMTPTransport(cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.From, cfg.FromName), nil
	case "sendgrid":
		return NewSendGridTransport(cfg.SendGridAPIKey, "", cfg.From, cfg.FromName), nil
	case "console", "":
		return NewConsoleTransport(log), nil
	}
	return nil, fmt.Errorf("unknown mail transport %q", cfg.Transport)
}
