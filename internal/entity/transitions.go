package entity

// edges is the directed transition graph. Replied and Paid are universal and
// are not listed here.
var edges = map[Status][]Status{
	StatusFormSubmitted:      {StatusEmailSent},
	StatusEmailSent:          {StatusEmailOpened, StatusReminder1Sent},
	StatusEmailOpened:        {StatusReminder1Sent, StatusReminder2Sent},
	StatusReminder1Sent:      {StatusReminder1Opened, StatusReminder2Sent},
	StatusReminder1Opened:    {StatusReminder2Sent},
	StatusReminder2Sent:      {StatusReminder2Opened, StatusLinkClicked, StatusFinalReminderSent},
	StatusReminder2Opened:    {StatusLinkClicked, StatusFinalReminderSent},
	StatusLinkClicked:        {StatusPaymentLinkClicked},
	StatusPaymentLinkClicked: {StatusPaymentFailed, StatusPaymentAbandoned, StatusFinalReminderSent},
	StatusPaymentAbandoned:   {StatusReminder2Sent, StatusFinalReminderSent},
	StatusPaymentFailed:      {StatusReminder2Sent, StatusFinalReminderSent},
	StatusFinalReminderSent:  {StatusFinalReminderOpened},
}

// CanTransition reports whether from -> to is a legal edge.
func CanTransition(from, to Status) bool {
	if from.IsTerminal() {
		return false
	}
	if to == StatusReplied || to == StatusPaid {
		return true
	}
	for _, s := range edges[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Target resolves the status an event moves a lead in status from to. Opened is
// the only event whose target depends on the current stage.
func Target(from Status, ev Event) (Status, bool) {
	switch ev {
	case EventOpened:
		switch from {
		case StatusEmailSent:
			return StatusEmailOpened, true
		case StatusReminder1Sent:
			return StatusReminder1Opened, true
		case StatusReminder2Sent:
			return StatusReminder2Opened, true
		case StatusFinalReminderSent:
			return StatusFinalReminderOpened, true
		}
		return "", false
	case EventEmailSent:
		return StatusEmailSent, true
	case EventReminder1Sent:
		return StatusReminder1Sent, true
	case EventReminder2Sent:
		return StatusReminder2Sent, true
	case EventFinalReminderSent:
		return StatusFinalReminderSent, true
	case EventLinkClicked:
		return StatusLinkClicked, true
	case EventPaymentLinkClicked:
		return StatusPaymentLinkClicked, true
	case EventPaid:
		return StatusPaid, true
	case EventPaymentFailed:
		return StatusPaymentFailed, true
	case EventPaymentAbandoned:
		return StatusPaymentAbandoned, true
	case EventReplied:
		return StatusReplied, true
	}
	return "", false
}
