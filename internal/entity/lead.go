package entity

import (
	"context"
	"errors"
	"strings"
	"time"
)

var (
	ErrNotFound      = errors.New("lead not found")
	ErrAlreadyExists = errors.New("lead already exists")
)

type Lead struct {
	Email            string    `json:"email"`
	Name             string    `json:"name"`
	Phone            string    `json:"phone,omitempty"`
	Status           Status    `json:"status"`
	CreatedAt        time.Time `json:"created_at"`
	LastTransitionAt time.Time `json:"last_transition_at"`

	// Stage markers: set once, never cleared. Eligibility reads these instead of
	// the current status because "opened" states follow more than one stage.
	ConfirmationSentAt  *time.Time `json:"confirmation_sent_at,omitempty"`
	Reminder1SentAt     *time.Time `json:"reminder1_sent_at,omitempty"`
	Reminder2SentAt     *time.Time `json:"reminder2_sent_at,omitempty"`
	FinalReminderSentAt *time.Time `json:"final_reminder_sent_at,omitempty"`

	Engagement *Engagement `json:"engagement,omitempty"`
}

// NewLead builds a lead at form submission time.
func NewLead(name, email, phone string, now time.Time) *Lead {
	return &Lead{
		Email:            NormalizeEmail(email),
		Name:             strings.TrimSpace(name),
		Phone:            strings.TrimSpace(phone),
		Status:           StatusFormSubmitted,
		CreatedAt:        now,
		LastTransitionAt: now,
	}
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// StageSentAt returns the marker for kind, nil when the stage was never sent.
func (l *Lead) StageSentAt(kind MessageKind) *time.Time {
	switch kind {
	case KindConfirmation:
		return l.ConfirmationSentAt
	case KindReminder1:
		return l.Reminder1SentAt
	case KindReminder2:
		return l.Reminder2SentAt
	case KindFinalReminder:
		return l.FinalReminderSentAt
	}
	return nil
}

func (l *Lead) StageSent(kind MessageKind) bool {
	return l.StageSentAt(kind) != nil
}

// MarkStageSent sets the marker implied by a "sent" status. Stores call it so the
// marker and the status land in the same write.
func (l *Lead) MarkStageSent(status Status, at time.Time) {
	kind, ok := KindForSentStatus(status)
	if !ok || l.StageSent(kind) {
		return
	}
	t := at
	switch kind {
	case KindConfirmation:
		l.ConfirmationSentAt = &t
	case KindReminder1:
		l.Reminder1SentAt = &t
	case KindReminder2:
		l.Reminder2SentAt = &t
	case KindFinalReminder:
		l.FinalReminderSentAt = &t
	}
}

// LeadStore is the row store keyed by normalized email.
type LeadStore interface {
	Create(ctx context.Context, lead *Lead) error
	Get(ctx context.Context, email string) (*Lead, error)
	List(ctx context.Context) ([]Lead, error)
	ListByStatus(ctx context.Context, statuses ...Status) ([]Lead, error)
	// SetStatus writes status and lastTransitionAt together, plus the stage
	// marker when status is one of the "sent" statuses.
	SetStatus(ctx context.Context, email string, status Status, at time.Time) error
}
