package mail

import (
	"context"
	"log/slog"

	"github.com/xavierca1/lead-funnel/internal/logger"
)

// ConsoleTransport logs messages instead of sending them. Used in development.
type ConsoleTransport struct {
	log *logger.Logger
}

func NewConsoleTransport(log *logger.Logger) *ConsoleTransport {
	return &ConsoleTransport{log: log.WithComponent("mail_console")}
}

func (t *ConsoleTransport) Deliver(_ context.Context, msg Message) error {
	t.log.Info("email not sent (console transport)",
		slog.String("to", msg.To),
		slog.String("subject", msg.Subject),
	)
	t.log.Debug("email body", slog.String("text", msg.Text))
	return nil
}
