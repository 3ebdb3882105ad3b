package usecase

import (
	"context"
	"time"

	"github.com/xavierca1/lead-funnel/internal/entity"
)

// Notifier renders and delivers one message. It never touches lead status.
type Notifier interface {
	Send(ctx context.Context, lead *entity.Lead, kind entity.MessageKind) error
}

// TransitionPublisher fans applied transitions out to other services.
type TransitionPublisher interface {
	PublishTransition(ctx context.Context, event TransitionEvent) error
}

type TransitionEvent struct {
	ID         string        `json:"id"`
	Email      string        `json:"email"`
	From       entity.Status `json:"from"`
	To         entity.Status `json:"to"`
	Event      entity.Event  `json:"event"`
	OccurredAt time.Time     `json:"occurred_at"`
}

// Clock is swapped for a fixed time in tests.
type Clock func() time.Time
