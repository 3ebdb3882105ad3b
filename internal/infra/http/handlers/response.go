package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/xavierca1/lead-funnel/internal/usecase"
)

type ErrorResponse struct {
	Success bool                     `json:"success"`
	Code    string                   `json:"code,omitempty"`
	Message string                   `json:"message"`
	Details usecase.ValidationErrors `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps use case errors onto status codes.
func writeError(w http.ResponseWriter, err error) {
	var verrs usecase.ValidationErrors
	if errors.As(err, &verrs) {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Code: "VALIDATION_FAILED", Message: "validation failed", Details: verrs})
		return
	}

	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, usecase.ErrLeadNotFound):
		status = http.StatusNotFound
	case errors.Is(err, usecase.ErrLeadExists),
		errors.Is(err, usecase.ErrInvalidTransition),
		errors.Is(err, usecase.ErrLeadTerminal):
		status = http.StatusConflict
	case usecase.IsTechnicalError(err):
		status = http.StatusServiceUnavailable
	}

	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal error"
	}
	writeJSON(w, status, ErrorResponse{Code: usecase.ErrorCode(err), Message: msg})
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, ErrorResponse{Code: "BAD_REQUEST", Message: msg})
}
