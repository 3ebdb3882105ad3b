package usecase

import (
	"errors"

	"github.com/xavierca1/lead-funnel/internal/entity"
)

// DomainError is a rule violation: the request was understood and refused.
type DomainError struct {
	Code    string
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

func IsDomainError(err error) bool {
	var de *DomainError
	return errors.As(err, &de)
}

// TechnicalError is an infrastructure failure. The same request may succeed later.
type TechnicalError struct {
	Code    string
	Message string
}

func (e *TechnicalError) Error() string {
	return e.Message
}

func IsTechnicalError(err error) bool {
	var te *TechnicalError
	return errors.As(err, &te)
}

var (
	ErrLeadNotFound      = &DomainError{Code: "LEAD_NOT_FOUND", Message: "lead not found"}
	ErrInvalidTransition = &DomainError{Code: "INVALID_TRANSITION", Message: "transition not allowed"}
	ErrLeadExists        = &DomainError{Code: "LEAD_EXISTS", Message: "email already registered"}
	ErrLeadTerminal      = &DomainError{Code: "LEAD_TERMINAL", Message: "lead is in a terminal state"}

	ErrNotifierFailure = &TechnicalError{Code: "NOTIFIER_FAILURE", Message: "message delivery failed"}
	ErrStoreFailure    = &TechnicalError{Code: "STORE_FAILURE", Message: "lead store unavailable"}
)

// ErrorCode extracts the code of a domain or technical error, "" otherwise.
func ErrorCode(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	var te *TechnicalError
	if errors.As(err, &te) {
		return te.Code
	}
	return ""
}

func isNotFound(err error) bool {
	return errors.Is(err, entity.ErrNotFound)
}
