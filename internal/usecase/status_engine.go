package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/xavierca1/lead-funnel/internal/entity"
	"github.com/xavierca1/lead-funnel/internal/infra/metrics"
	"github.com/xavierca1/lead-funnel/internal/logger"
)

const (
	ReasonApplied           = "applied"
	ReasonTerminal          = "terminal"
	ReasonInvalidTransition = "invalid_transition"
	ReasonNotEligible       = "not_eligible"
)

type TransitionResult struct {
	Applied bool          `json:"applied"`
	Email   string        `json:"email"`
	From    entity.Status `json:"from_status"`
	To      entity.Status `json:"to_status,omitempty"`
	Event   entity.Event  `json:"event,omitempty"`
	Reason  string        `json:"reason"`
}

// Decision runs under the lead's lock with a fresh read of the lead and picks
// the event to apply. An empty event means nothing to do.
type Decision func(ctx context.Context, lead *entity.Lead) (entity.Event, error)

// StatusEngine is the only writer of lead status. Every request for an email
// is serialized through a per-email lock.
type StatusEngine struct {
	store       entity.LeadStore
	locks       *KeyedMutex
	publisher   TransitionPublisher
	now         Clock
	callTimeout time.Duration
	log         *logger.Logger
}

type EngineOption func(*StatusEngine)

func WithClock(now Clock) EngineOption {
	return func(e *StatusEngine) { e.now = now }
}

func WithPublisher(p TransitionPublisher) EngineOption {
	return func(e *StatusEngine) { e.publisher = p }
}

func WithCallTimeout(d time.Duration) EngineOption {
	return func(e *StatusEngine) { e.callTimeout = d }
}

func NewStatusEngine(store entity.LeadStore, log *logger.Logger, opts ...EngineOption) *StatusEngine {
	e := &StatusEngine{
		store:       store,
		locks:       NewKeyedMutex(),
		now:         time.Now,
		callTimeout: 10 * time.Second,
		log:         log.WithComponent("status_engine"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *StatusEngine) Now() time.Time {
	return e.now()
}

// Transition applies ev to the lead identified by email.
func (e *StatusEngine) Transition(ctx context.Context, email string, ev entity.Event) (TransitionResult, error) {
	return e.Do(ctx, email, func(context.Context, *entity.Lead) (entity.Event, error) {
		return ev, nil
	})
}

// Do locks email, re-reads the lead, short-circuits terminal leads, asks decide
// for an event and applies it.
func (e *StatusEngine) Do(ctx context.Context, email string, decide Decision) (TransitionResult, error) {
	email = entity.NormalizeEmail(email)
	res := TransitionResult{Email: email}

	unlock, err := e.locks.Lock(ctx, email)
	if err != nil {
		return res, fmt.Errorf("waiting for lead lock: %w", err)
	}
	defer unlock()

	lead, err := e.load(ctx, email)
	if err != nil {
		return res, err
	}
	res.From = lead.Status

	if lead.Status.IsTerminal() {
		res.Reason = ReasonTerminal
		e.log.Info("skipped, lead terminal", slog.String("email", email), slog.String("status", string(lead.Status)))
		metrics.RecordTransition("", ReasonTerminal)
		return res, nil
	}

	ev, err := decide(ctx, lead)
	if err != nil {
		return res, err
	}
	if ev == "" {
		res.Reason = ReasonNotEligible
		return res, nil
	}
	res.Event = ev

	to, ok := entity.Target(lead.Status, ev)
	if !ok || !entity.CanTransition(lead.Status, to) {
		res.Reason = ReasonInvalidTransition
		e.log.Warn("invalid transition",
			slog.String("email", email),
			slog.String("from", string(lead.Status)),
			slog.String("event", string(ev)),
		)
		metrics.RecordTransition(string(ev), ReasonInvalidTransition)
		return res, fmt.Errorf("%w: %s on %s", ErrInvalidTransition, ev, lead.Status)
	}

	return e.write(ctx, res, to)
}

// Override moves a non-terminal lead to any status, bypassing the graph. It is
// the admin "manual edit" path and still holds the per-email lock.
func (e *StatusEngine) Override(ctx context.Context, email string, to entity.Status) (TransitionResult, error) {
	email = entity.NormalizeEmail(email)
	res := TransitionResult{Email: email}

	unlock, err := e.locks.Lock(ctx, email)
	if err != nil {
		return res, fmt.Errorf("waiting for lead lock: %w", err)
	}
	defer unlock()

	lead, err := e.load(ctx, email)
	if err != nil {
		return res, err
	}
	res.From = lead.Status

	if lead.Status.IsTerminal() {
		res.Reason = ReasonTerminal
		return res, nil
	}

	e.log.Warn("manual status override",
		slog.String("email", email),
		slog.String("from", string(lead.Status)),
		slog.String("to", string(to)),
	)
	return e.write(ctx, res, to)
}

func (e *StatusEngine) write(ctx context.Context, res TransitionResult, to entity.Status) (TransitionResult, error) {
	now := e.now()

	callCtx, cancel := context.WithTimeout(ctx, e.callTimeout)
	defer cancel()

	if err := e.store.SetStatus(callCtx, res.Email, to, now); err != nil {
		metrics.RecordTransition(string(res.Event), "store_error")
		if errors.Is(err, entity.ErrNotFound) {
			return res, ErrLeadNotFound
		}
		e.log.Error("status write failed", slog.String("email", res.Email), slog.Any("error", err))
		return res, fmt.Errorf("%w: %w", ErrStoreFailure, err)
	}

	res.Applied = true
	res.To = to
	res.Reason = ReasonApplied

	e.log.Info("lead transitioned",
		slog.String("email", res.Email),
		slog.String("from", string(res.From)),
		slog.String("to", string(to)),
		slog.String("event", string(res.Event)),
	)
	metrics.RecordTransition(string(res.Event), ReasonApplied)

	e.publish(ctx, res, now)
	return res, nil
}

func (e *StatusEngine) publish(ctx context.Context, res TransitionResult, at time.Time) {
	if e.publisher == nil {
		return
	}

	callCtx, cancel := context.WithTimeout(ctx, e.callTimeout)
	defer cancel()

	err := e.publisher.PublishTransition(callCtx, TransitionEvent{
		ID:         uuid.NewString(),
		Email:      res.Email,
		From:       res.From,
		To:         res.To,
		Event:      res.Event,
		OccurredAt: at,
	})
	if err != nil {
		metrics.RecordPublishError()
		e.log.Error("publish transition failed", slog.String("email", res.Email), slog.Any("error", err))
	}
}

func (e *StatusEngine) load(ctx context.Context, email string) (*entity.Lead, error) {
	callCtx, cancel := context.WithTimeout(ctx, e.callTimeout)
	defer cancel()

	lead, err := e.store.Get(callCtx, email)
	if err != nil {
		if errors.Is(err, entity.ErrNotFound) {
			e.log.Warn("lead not found", slog.String("email", email))
			metrics.RecordTransition("", "not_found")
			return nil, ErrLeadNotFound
		}
		e.log.Error("lead read failed", slog.String("email", email), slog.Any("error", err))
		return nil, fmt.Errorf("%w: %w", ErrStoreFailure, err)
	}
	return lead, nil
}
