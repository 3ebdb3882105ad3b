package mail

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/xavierca1/lead-funnel/internal/entity"
	"github.com/xavierca1/lead-funnel/internal/logger"
)

// Transport delivers an already rendered message.
type Transport interface {
	Deliver(ctx context.Context, msg Message) error
}

// EmailSender renders and delivers funnel messages. It never touches lead
// status.
type EmailSender struct {
	renderer  *Renderer
	transport Transport
	log       *logger.Logger
}

func NewEmailSender(renderer *Renderer, transport Transport, log *logger.Logger) *EmailSender {
	return &EmailSender{
		renderer:  renderer,
		transport: transport,
		log:       log.WithComponent("mail"),
	}
}

func (s *EmailSender) Send(ctx context.Context, lead *entity.Lead, kind entity.MessageKind) error {
	msg, err := s.renderer.Render(lead, kind)
	if err != nil {
		return err
	}

	if err := s.transport.Deliver(ctx, msg); err != nil {
		return fmt.Errorf("deliver %s to %s: %w", kind, lead.Email, err)
	}

	s.log.Info("email sent", slog.String("email", lead.Email), slog.String("kind", string(kind)))
	return nil
}
