package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xavierca1/lead-funnel/internal/entity"
	"github.com/xavierca1/lead-funnel/internal/infra/metrics"
	"github.com/xavierca1/lead-funnel/internal/logger"
)

type DueFollowUp struct {
	Lead      entity.Lead `json:"lead"`
	Candidate Candidate   `json:"candidate"`
}

// FollowUpUseCase holds the per-lead half of a sweep: find what is due, then
// dispatch one lead under its lock.
type FollowUpUseCase struct {
	store       entity.LeadStore
	engine      *StatusEngine
	notifier    Notifier
	eval        EligibilityEvaluator
	callTimeout time.Duration
	log         *logger.Logger
}

func NewFollowUpUseCase(
	store entity.LeadStore,
	engine *StatusEngine,
	notifier Notifier,
	eval EligibilityEvaluator,
	callTimeout time.Duration,
	log *logger.Logger,
) *FollowUpUseCase {
	return &FollowUpUseCase{
		store:       store,
		engine:      engine,
		notifier:    notifier,
		eval:        eval,
		callTimeout: callTimeout,
		log:         log.WithComponent("follow_up"),
	}
}

// Due fetches only the statuses that can produce an action and returns the
// winning candidate per lead.
func (uc *FollowUpUseCase) Due(ctx context.Context) ([]DueFollowUp, error) {
	callCtx, cancel := context.WithTimeout(ctx, uc.callTimeout)
	defer cancel()

	leads, err := uc.store.ListByStatus(callCtx, EligibleStatuses...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStoreFailure, err)
	}

	now := uc.engine.Now()
	due := make([]DueFollowUp, 0, len(leads))
	for _, l := range leads {
		if c, ok := uc.eval.Next(l, now); ok {
			due = append(due, DueFollowUp{Lead: l, Candidate: c})
		}
	}
	return due, nil
}

// Dispatch re-checks eligibility under the lead's lock, sends, then records
// the matching "sent" event. A lead that moved on since the fetch is skipped.
func (uc *FollowUpUseCase) Dispatch(ctx context.Context, email string, action Action) (TransitionResult, error) {
	kind := action.Kind()

	res, err := uc.engine.Do(ctx, email, func(ctx context.Context, lead *entity.Lead) (entity.Event, error) {
		c, ok := uc.eval.Next(*lead, uc.engine.Now())
		if !ok || c.Action != action {
			uc.log.Info("skipping follow-up, no longer eligible",
				slog.String("email", lead.Email),
				slog.String("action", string(action)),
				slog.String("status", string(lead.Status)),
			)
			return "", nil
		}
		if err := uc.send(ctx, lead, kind); err != nil {
			return "", err
		}
		return kind.SentEvent(), nil
	})

	switch {
	case err != nil:
		metrics.RecordFollowUp(string(kind), "error")
	case res.Applied:
		metrics.RecordFollowUp(string(kind), "sent")
	default:
		metrics.RecordFollowUp(string(kind), res.Reason)
	}
	return res, err
}

func (uc *FollowUpUseCase) send(ctx context.Context, lead *entity.Lead, kind entity.MessageKind) error {
	callCtx, cancel := context.WithTimeout(ctx, uc.callTimeout)
	defer cancel()

	if err := uc.notifier.Send(callCtx, lead, kind); err != nil {
		uc.log.Error("notifier failed",
			slog.String("email", lead.Email),
			slog.String("kind", string(kind)),
			slog.Any("error", err),
		)
		return fmt.Errorf("%w: %w", ErrNotifierFailure, err)
	}
	return nil
}

// SendManual delivers kind on demand and records the matching "sent" event.
// It refuses up front when that event is not legal from the current status so
// nothing is sent that cannot be recorded.
func (uc *FollowUpUseCase) SendManual(ctx context.Context, email string, kind entity.MessageKind) (TransitionResult, error) {
	return uc.engine.Do(ctx, email, func(ctx context.Context, lead *entity.Lead) (entity.Event, error) {
		ev := kind.SentEvent()
		to, ok := entity.Target(lead.Status, ev)
		if !ok || !entity.CanTransition(lead.Status, to) {
			return "", fmt.Errorf("%w: cannot send %s from %s", ErrInvalidTransition, kind, lead.Status)
		}
		if err := uc.send(ctx, lead, kind); err != nil {
			return "", err
		}
		return ev, nil
	})
}
