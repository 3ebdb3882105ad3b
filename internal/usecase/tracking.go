package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/xavierca1/lead-funnel/internal/entity"
	"github.com/xavierca1/lead-funnel/internal/logger"
)

// TrackingUseCase turns inbound signals (pixel, link, reply, payment) into
// exactly one StatusEngine call each.
type TrackingUseCase struct {
	engine      *StatusEngine
	engagement  entity.EngagementStore
	callTimeout time.Duration
	log         *logger.Logger
}

func NewTrackingUseCase(engine *StatusEngine, engagement entity.EngagementStore, callTimeout time.Duration, log *logger.Logger) *TrackingUseCase {
	return &TrackingUseCase{
		engine:      engine,
		engagement:  engagement,
		callTimeout: callTimeout,
		log:         log.WithComponent("tracking"),
	}
}

// OnEmailOpened moves a "sent" stage to its matching "opened" state.
func (uc *TrackingUseCase) OnEmailOpened(ctx context.Context, email string) (TransitionResult, error) {
	return uc.engine.Transition(ctx, email, entity.EventOpened)
}

// OnLinkClicked always hands back destination. The status write is bookkeeping
// and must not keep the visitor from reaching the link.
func (uc *TrackingUseCase) OnLinkClicked(ctx context.Context, email, destination string) (string, TransitionResult, error) {
	res, err := uc.engine.Do(ctx, email, func(ctx context.Context, lead *entity.Lead) (entity.Event, error) {
		uc.record(ctx, lead.Email, "click", func(ctx context.Context) error {
			return uc.engagement.RecordClick(ctx, lead.Email, destination, uc.engine.Now())
		})
		return entity.EventLinkClicked, nil
	})
	return destination, res, err
}

func (uc *TrackingUseCase) OnReplyClicked(ctx context.Context, email string) (TransitionResult, error) {
	return uc.engine.Transition(ctx, email, entity.EventReplied)
}

func (uc *TrackingUseCase) OnPaymentSuccess(ctx context.Context, email string) (TransitionResult, error) {
	return uc.engine.Transition(ctx, email, entity.EventPaid)
}

func (uc *TrackingUseCase) OnPaymentFailure(ctx context.Context, email string) (TransitionResult, error) {
	return uc.engine.Transition(ctx, email, entity.EventPaymentFailed)
}

func (uc *TrackingUseCase) OnPaymentPageVisit(ctx context.Context, email string, visit entity.PaymentVisit) (TransitionResult, error) {
	if visit.Timestamp.IsZero() {
		visit.Timestamp = uc.engine.Now()
	}
	return uc.engine.Do(ctx, email, func(ctx context.Context, lead *entity.Lead) (entity.Event, error) {
		uc.record(ctx, lead.Email, "payment_visit", func(ctx context.Context) error {
			return uc.engagement.RecordPaymentVisit(ctx, lead.Email, visit)
		})
		return entity.EventPaymentLinkClicked, nil
	})
}

// OnPaymentAbandonment re-reads the lead under its lock and does nothing when
// it is already paid, so a success racing an abandonment timer wins.
func (uc *TrackingUseCase) OnPaymentAbandonment(ctx context.Context, email string, abandonment entity.PaymentAbandonment) (TransitionResult, error) {
	return uc.engine.Do(ctx, email, func(ctx context.Context, lead *entity.Lead) (entity.Event, error) {
		if lead.Status == entity.StatusPaid {
			return "", nil
		}
		if abandonment.Timestamp.IsZero() {
			abandonment.Timestamp = uc.engine.Now()
		}
		uc.record(ctx, lead.Email, "abandonment", func(ctx context.Context) error {
			return uc.engagement.RecordAbandonment(ctx, lead.Email, abandonment)
		})
		return entity.EventPaymentAbandoned, nil
	})
}

// record writes analytics metadata; failures are logged and swallowed.
func (uc *TrackingUseCase) record(ctx context.Context, email, what string, fn func(ctx context.Context) error) {
	if uc.engagement == nil {
		return
	}
	callCtx, cancel := context.WithTimeout(ctx, uc.callTimeout)
	defer cancel()

	if err := fn(callCtx); err != nil {
		uc.log.Error("engagement write failed",
			slog.String("email", email),
			slog.String("kind", what),
			slog.Any("error", err),
		)
	}
}
