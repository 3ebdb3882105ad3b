package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/xavierca1/lead-funnel/internal/entity"
	"github.com/xavierca1/lead-funnel/internal/logger"
	"github.com/xavierca1/lead-funnel/internal/usecase"
)

type LeadSubmitter interface {
	Execute(ctx context.Context, input usecase.SubmitLeadInput) (*usecase.SubmitLeadOutput, error)
}

type LeadReader interface {
	GetLead(ctx context.Context, email string) (*entity.Lead, error)
}

type SubmissionHandler struct {
	Submit LeadSubmitter
	Leads  LeadReader
	log    *logger.Logger
}

func NewSubmissionHandler(submit LeadSubmitter, leads LeadReader, log *logger.Logger) *SubmissionHandler {
	return &SubmissionHandler{Submit: submit, Leads: leads, log: log.WithComponent("submission_http")}
}

type SubmissionResponse struct {
	Success bool                      `json:"success"`
	Message string                    `json:"message"`
	Data    *usecase.SubmitLeadOutput `json:"data"`
}

// Create (POST /api/submissions)
func (h *SubmissionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input usecase.SubmitLeadInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		badRequest(w, "invalid JSON")
		return
	}

	out, err := h.Submit.Execute(r.Context(), input)
	if err != nil {
		// the lead exists, only the confirmation is missing
		if out != nil {
			h.log.Warn("submission stored without confirmation", slog.String("email", out.Email), slog.Any("error", err))
			writeJSON(w, http.StatusCreated, SubmissionResponse{
				Success: true,
				Message: "Submission received. Confirmation email could not be sent yet.",
				Data:    out,
			})
			return
		}
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, SubmissionResponse{
		Success: true,
		Message: "Submission received. Check your email for next steps.",
		Data:    out,
	})
}

// Get (GET /api/submissions/{email})
func (h *SubmissionHandler) Get(w http.ResponseWriter, r *http.Request) {
	email := chi.URLParam(r, "email")
	if email == "" {
		badRequest(w, "email is required")
		return
	}

	lead, err := h.Leads.GetLead(r.Context(), email)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lead)
}
