package entity

import "fmt"

type Status string

const (
	StatusFormSubmitted       Status = "FORM_SUBMITTED"
	StatusEmailSent           Status = "EMAIL_SENT"
	StatusEmailOpened         Status = "EMAIL_OPENED"
	StatusReminder1Sent       Status = "REMINDER1_SENT"
	StatusReminder1Opened     Status = "REMINDER1_OPENED"
	StatusReminder2Sent       Status = "REMINDER2_SENT"
	StatusReminder2Opened     Status = "REMINDER2_OPENED"
	StatusLinkClicked         Status = "LINK_CLICKED"
	StatusPaymentLinkClicked  Status = "PAYMENT_LINK_CLICKED"
	StatusPaymentFailed       Status = "PAYMENT_FAILED"
	StatusPaymentAbandoned    Status = "PAYMENT_ABANDONED"
	StatusFinalReminderSent   Status = "FINAL_REMINDER_SENT"
	StatusFinalReminderOpened Status = "FINAL_REMINDER_OPENED"
	StatusPaid                Status = "PAID"
	StatusReplied             Status = "REPLIED"
)

// AllStatuses is in funnel order; reports iterate it.
var AllStatuses = []Status{
	StatusFormSubmitted,
	StatusEmailSent,
	StatusEmailOpened,
	StatusReminder1Sent,
	StatusReminder1Opened,
	StatusReminder2Sent,
	StatusReminder2Opened,
	StatusLinkClicked,
	StatusPaymentLinkClicked,
	StatusPaymentFailed,
	StatusPaymentAbandoned,
	StatusFinalReminderSent,
	StatusFinalReminderOpened,
	StatusPaid,
	StatusReplied,
}

func ParseStatus(s string) (Status, error) {
	for _, st := range AllStatuses {
		if string(st) == s {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown lead status %q", s)
}

// IsTerminal reports whether s absorbs every further transition.
func (s Status) IsTerminal() bool {
	return s == StatusPaid || s == StatusReplied
}

type Event string

const (
	EventEmailSent          Event = "EMAIL_SENT"
	EventOpened             Event = "OPENED"
	EventReminder1Sent      Event = "REMINDER1_SENT"
	EventReminder2Sent      Event = "REMINDER2_SENT"
	EventFinalReminderSent  Event = "FINAL_REMINDER_SENT"
	EventLinkClicked        Event = "LINK_CLICKED"
	EventPaymentLinkClicked Event = "PAYMENT_LINK_CLICKED"
	EventPaid               Event = "PAID"
	EventPaymentFailed      Event = "PAYMENT_FAILED"
	EventPaymentAbandoned   Event = "PAYMENT_ABANDONED"
	EventReplied            Event = "REPLIED"
)

// MessageKind is one of the four outbound stages.
type MessageKind string

const (
	KindConfirmation  MessageKind = "confirmation"
	KindReminder1     MessageKind = "reminder1"
	KindReminder2     MessageKind = "reminder2"
	KindFinalReminder MessageKind = "final"
)

var AllKinds = []MessageKind{KindConfirmation, KindReminder1, KindReminder2, KindFinalReminder}

func ParseMessageKind(s string) (MessageKind, error) {
	for _, k := range AllKinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("invalid message kind %q: must be confirmation, reminder1, reminder2 or final", s)
}

// SentEvent is the event applied after a message of kind k was delivered.
func (k MessageKind) SentEvent() Event {
	switch k {
	case KindConfirmation:
		return EventEmailSent
	case KindReminder1:
		return EventReminder1Sent
	case KindReminder2:
		return EventReminder2Sent
	default:
		return EventFinalReminderSent
	}
}

func KindForSentStatus(s Status) (MessageKind, bool) {
	switch s {
	case StatusEmailSent:
		return KindConfirmation, true
	case StatusReminder1Sent:
		return KindReminder1, true
	case StatusReminder2Sent:
		return KindReminder2, true
	case StatusFinalReminderSent:
		return KindFinalReminder, true
	}
	return "", false
}
