package usecase

import (
	"sort"
	"time"

	"github.com/xavierca1/lead-funnel/internal/entity"
)

type Action string

const (
	ActionSendReminder1     Action = "SEND_REMINDER1"
	ActionSendReminder2     Action = "SEND_REMINDER2"
	ActionSendFinalReminder Action = "SEND_FINAL_REMINDER"
)

func (a Action) Kind() entity.MessageKind {
	switch a {
	case ActionSendReminder1:
		return entity.KindReminder1
	case ActionSendReminder2:
		return entity.KindReminder2
	default:
		return entity.KindFinalReminder
	}
}

// rank orders actions by how far down the funnel they are.
func (a Action) rank() int {
	switch a {
	case ActionSendReminder1:
		return 1
	case ActionSendReminder2:
		return 2
	case ActionSendFinalReminder:
		return 3
	}
	return 0
}

type Candidate struct {
	Action Action    `json:"action"`
	DueAt  time.Time `json:"due_at"`
}

// Windows are the minimum waits since the last transition.
type Windows struct {
	Reminder1Wait     time.Duration
	FinalReminderWait time.Duration
}

var (
	reminder2Statuses = []entity.Status{
		entity.StatusEmailOpened,
		entity.StatusReminder1Opened,
		entity.StatusPaymentFailed,
		entity.StatusPaymentAbandoned,
	}
	finalReminderStatuses = []entity.Status{
		entity.StatusPaymentLinkClicked,
		entity.StatusPaymentAbandoned,
	}
)

// EligibleStatuses bounds the sweep's store query.
var EligibleStatuses = []entity.Status{
	entity.StatusEmailSent,
	entity.StatusEmailOpened,
	entity.StatusReminder1Opened,
	entity.StatusPaymentFailed,
	entity.StatusPaymentAbandoned,
	entity.StatusPaymentLinkClicked,
}

// EligibilityEvaluator is pure: the same lead and time give the same answer.
type EligibilityEvaluator struct {
	windows Windows
}

func NewEligibilityEvaluator(w Windows) EligibilityEvaluator {
	return EligibilityEvaluator{windows: w}
}

// Candidates lists every due action for lead, most advanced first.
func (e EligibilityEvaluator) Candidates(lead entity.Lead, now time.Time) []Candidate {
	if lead.Status.IsTerminal() || lead.StageSent(entity.KindFinalReminder) {
		return nil
	}

	var out []Candidate
	last := lead.LastTransitionAt

	if lead.Status == entity.StatusEmailSent && !lead.StageSent(entity.KindReminder1) {
		if due := last.Add(e.windows.Reminder1Wait); !now.Before(due) {
			out = append(out, Candidate{Action: ActionSendReminder1, DueAt: due})
		}
	}

	if hasStatus(reminder2Statuses, lead.Status) && !lead.StageSent(entity.KindReminder2) {
		out = append(out, Candidate{Action: ActionSendReminder2, DueAt: last})
	}

	if hasStatus(finalReminderStatuses, lead.Status) {
		if due := last.Add(e.windows.FinalReminderWait); !now.Before(due) {
			out = append(out, Candidate{Action: ActionSendFinalReminder, DueAt: due})
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Action.rank() > out[j].Action.rank()
	})
	return out
}

// Next applies the tie-break: the most advanced due action wins.
func (e EligibilityEvaluator) Next(lead entity.Lead, now time.Time) (Candidate, bool) {
	c := e.Candidates(lead, now)
	if len(c) == 0 {
		return Candidate{}, false
	}
	return c[0], true
}

func hasStatus(set []entity.Status, s entity.Status) bool {
	for _, v := range set {
		if v == s {
			return true
		}
	}
	return false
}
