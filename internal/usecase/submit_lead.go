package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/xavierca1/lead-funnel/internal/entity"
	"github.com/xavierca1/lead-funnel/internal/logger"
)

type SubmitLeadInput struct {
	Name  string `json:"name" validate:"required,min=2,max=200"`
	Email string `json:"email" validate:"required,email,max=254"`
	Phone string `json:"phone" validate:"required"`
}

type SubmitLeadOutput struct {
	Name             string        `json:"name"`
	Email            string        `json:"email"`
	Status           entity.Status `json:"status"`
	Timestamp        time.Time     `json:"timestamp"`
	ConfirmationSent bool          `json:"confirmation_sent"`
}

// SubmitLeadUseCase creates the lead and sends the confirmation message.
type SubmitLeadUseCase struct {
	store       entity.LeadStore
	engine      *StatusEngine
	notifier    Notifier
	callTimeout time.Duration
	log         *logger.Logger
}

func NewSubmitLeadUseCase(store entity.LeadStore, engine *StatusEngine, notifier Notifier, callTimeout time.Duration, log *logger.Logger) *SubmitLeadUseCase {
	return &SubmitLeadUseCase{
		store:       store,
		engine:      engine,
		notifier:    notifier,
		callTimeout: callTimeout,
		log:         log.WithComponent("submit_lead"),
	}
}

// Execute returns ValidationErrors, ErrLeadExists or a technical error. When
// only the confirmation fails the lead stays in FormSubmitted and the output is
// still returned alongside the error.
func (uc *SubmitLeadUseCase) Execute(ctx context.Context, input SubmitLeadInput) (*SubmitLeadOutput, error) {
	if verrs := ValidateSubmitLeadInput(input); len(verrs) > 0 {
		return nil, verrs
	}

	phone, _ := NormalizePhone(input.Phone, DefaultPhoneRegion)
	lead := entity.NewLead(input.Name, input.Email, phone, uc.engine.Now())

	callCtx, cancel := context.WithTimeout(ctx, uc.callTimeout)
	err := uc.store.Create(callCtx, lead)
	cancel()
	if err != nil {
		if errors.Is(err, entity.ErrAlreadyExists) {
			return nil, ErrLeadExists
		}
		return nil, fmt.Errorf("%w: %w", ErrStoreFailure, err)
	}

	out := &SubmitLeadOutput{
		Name:      lead.Name,
		Email:     lead.Email,
		Status:    lead.Status,
		Timestamp: lead.CreatedAt,
	}

	res, err := uc.engine.Do(ctx, lead.Email, func(ctx context.Context, l *entity.Lead) (entity.Event, error) {
		if l.Status != entity.StatusFormSubmitted {
			return "", nil
		}
		sendCtx, cancel := context.WithTimeout(ctx, uc.callTimeout)
		defer cancel()
		if err := uc.notifier.Send(sendCtx, l, entity.KindConfirmation); err != nil {
			return "", fmt.Errorf("%w: %w", ErrNotifierFailure, err)
		}
		return entity.EventEmailSent, nil
	})
	if err != nil {
		uc.log.Error("confirmation not sent", slog.String("email", lead.Email), slog.Any("error", err))
		return out, err
	}

	out.ConfirmationSent = res.Applied
	if res.Applied {
		out.Status = res.To
	}
	uc.log.Info("new submission processed", slog.String("email", lead.Email))
	return out, nil
}
