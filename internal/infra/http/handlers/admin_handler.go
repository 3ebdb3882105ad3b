package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/xavierca1/lead-funnel/internal/entity"
	"github.com/xavierca1/lead-funnel/internal/infra/worker"
	"github.com/xavierca1/lead-funnel/internal/usecase"
)

// Admin is satisfied by usecase.AdminUseCase.
type Admin interface {
	Stats(ctx context.Context) (*usecase.Stats, error)
	ListLeads(ctx context.Context, in usecase.ListLeadsInput) (*usecase.LeadPage, error)
	GetLead(ctx context.Context, email string) (*entity.Lead, error)
	EligibilityReport(ctx context.Context) (*usecase.EligibilityReport, error)
	SendManual(ctx context.Context, email string, kind entity.MessageKind) (usecase.TransitionResult, error)
	OverrideStatus(ctx context.Context, email string, status entity.Status) (usecase.TransitionResult, error)
}

type SweepTrigger interface {
	TriggerSweepNow(ctx context.Context) (worker.SweepReport, error)
}

type AdminHandler struct {
	Admin     Admin
	Scheduler SweepTrigger
}

func NewAdminHandler(admin Admin, scheduler SweepTrigger) *AdminHandler {
	return &AdminHandler{Admin: admin, Scheduler: scheduler}
}

func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Admin.Stats(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// ListLeads (GET /api/admin/submissions?status=&limit=&offset=)
func (h *AdminHandler) ListLeads(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	in := usecase.ListLeadsInput{}

	if s := q.Get("status"); s != "" {
		status, err := entity.ParseStatus(s)
		if err != nil {
			badRequest(w, err.Error())
			return
		}
		in.Status = status
	}
	var err error
	if in.Limit, err = intParam(q.Get("limit")); err != nil {
		badRequest(w, "limit must be a number")
		return
	}
	if in.Offset, err = intParam(q.Get("offset")); err != nil {
		badRequest(w, "offset must be a number")
		return
	}

	page, err := h.Admin.ListLeads(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *AdminHandler) GetLead(w http.ResponseWriter, r *http.Request) {
	lead, err := h.Admin.GetLead(r.Context(), chi.URLParam(r, "email"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lead)
}

func (h *AdminHandler) FollowUps(w http.ResponseWriter, r *http.Request) {
	report, err := h.Admin.EligibilityReport(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (h *AdminHandler) TriggerFollowUps(w http.ResponseWriter, r *http.Request) {
	report, err := h.Scheduler.TriggerSweepNow(r.Context())
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{Code: "SWEEP_ABORTED", Message: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, report)
}

type sendEmailRequest struct {
	Email string `json:"email"`
	Kind  string `json:"kind"`
}

func (h *AdminHandler) SendEmail(w http.ResponseWriter, r *http.Request) {
	var req sendEmailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON")
		return
	}
	kind, err := entity.ParseMessageKind(req.Kind)
	if err != nil || req.Email == "" {
		badRequest(w, "email and a valid kind are required")
		return
	}

	res, err := h.Admin.SendManual(r.Context(), req.Email, kind)
	if err != nil {
		writeError(w, err)
		return
	}
	writeResult(w, res)
}

type overrideRequest struct {
	Status string `json:"status"`
}

// OverrideStatus (PATCH /api/admin/submissions/{email}/status)
func (h *AdminHandler) OverrideStatus(w http.ResponseWriter, r *http.Request) {
	var req overrideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON")
		return
	}
	status, err := entity.ParseStatus(req.Status)
	if err != nil {
		badRequest(w, err.Error())
		return
	}

	res, err := h.Admin.OverrideStatus(r.Context(), chi.URLParam(r, "email"), status)
	if err != nil {
		writeError(w, err)
		return
	}
	writeResult(w, res)
}

// writeResult turns a terminal short-circuit into a 409 for admin callers.
func writeResult(w http.ResponseWriter, res usecase.TransitionResult) {
	if res.Reason == usecase.ReasonTerminal {
		writeJSON(w, http.StatusConflict, ErrorResponse{Code: usecase.ErrLeadTerminal.Code, Message: usecase.ErrLeadTerminal.Message})
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func intParam(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.Atoi(s)
}
