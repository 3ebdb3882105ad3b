package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/xavierca1/lead-funnel/internal/entity"
	"github.com/xavierca1/lead-funnel/internal/logger"
	"github.com/xavierca1/lead-funnel/internal/usecase"
)

// TrackingEvents is satisfied by usecase.TrackingUseCase.
type TrackingEvents interface {
	OnEmailOpened(ctx context.Context, email string) (usecase.TransitionResult, error)
	OnLinkClicked(ctx context.Context, email, destination string) (string, usecase.TransitionResult, error)
	OnReplyClicked(ctx context.Context, email string) (usecase.TransitionResult, error)
	OnPaymentSuccess(ctx context.Context, email string) (usecase.TransitionResult, error)
	OnPaymentFailure(ctx context.Context, email string) (usecase.TransitionResult, error)
	OnPaymentPageVisit(ctx context.Context, email string, visit entity.PaymentVisit) (usecase.TransitionResult, error)
	OnPaymentAbandonment(ctx context.Context, email string, a entity.PaymentAbandonment) (usecase.TransitionResult, error)
}

type TrackingHandler struct {
	Events      TrackingEvents
	fallbackURL string
	log         *logger.Logger
}

// NewTrackingHandler redirects link clicks without a usable url to fallbackURL.
func NewTrackingHandler(events TrackingEvents, fallbackURL string, log *logger.Logger) *TrackingHandler {
	return &TrackingHandler{
		Events:      events,
		fallbackURL: fallbackURL,
		log:         log.WithComponent("tracking_http"),
	}
}

// Pixel always answers with the GIF; the open is bookkeeping.
func (h *TrackingHandler) Pixel(w http.ResponseWriter, r *http.Request) {
	if email := r.URL.Query().Get("email"); email != "" {
		_, err := h.Events.OnEmailOpened(r.Context(), email)
		h.logOutcome("open", email, chi.URLParam(r, "trackingId"), err)
	}
	writePixel(w)
}

// Link always redirects, even when the status write fails.
func (h *TrackingHandler) Link(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	dest := h.destination(q.Get("url"))

	if email := q.Get("email"); email != "" {
		var err error
		dest, _, err = h.Events.OnLinkClicked(r.Context(), email, dest)
		h.logOutcome("click", email, chi.URLParam(r, "trackingId"), err)
	}
	http.Redirect(w, r, dest, http.StatusFound)
}

func (h *TrackingHandler) Reply(w http.ResponseWriter, r *http.Request) {
	h.page(w, r, "reply", h.Events.OnReplyClicked, replyPage)
}

func (h *TrackingHandler) PaymentSuccess(w http.ResponseWriter, r *http.Request) {
	h.page(w, r, "payment_success", h.Events.OnPaymentSuccess, paymentOKPage)
}

func (h *TrackingHandler) PaymentFailed(w http.ResponseWriter, r *http.Request) {
	h.page(w, r, "payment_failed", h.Events.OnPaymentFailure, paymentFailedPage)
}

type paymentVisitRequest struct {
	Email string `json:"email"`
	entity.PaymentVisit
}

func (h *TrackingHandler) PaymentPageVisit(w http.ResponseWriter, r *http.Request) {
	var req paymentVisitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON")
		return
	}
	if req.Email == "" {
		badRequest(w, "email is required")
		return
	}
	if req.UserAgent == "" {
		req.UserAgent = r.UserAgent()
	}
	if req.Referrer == "" {
		req.Referrer = r.Referer()
	}

	res, err := h.Events.OnPaymentPageVisit(r.Context(), req.Email, req.PaymentVisit)
	h.respond(w, "payment_visit", req.Email, res, err)
}

type abandonmentRequest struct {
	Email             string    `json:"email"`
	Timestamp         time.Time `json:"timestamp"`
	TimeOnPageSeconds int       `json:"timeOnPage"`
}

func (h *TrackingHandler) PaymentAbandonment(w http.ResponseWriter, r *http.Request) {
	var req abandonmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON")
		return
	}
	if req.Email == "" {
		badRequest(w, "email is required")
		return
	}

	res, err := h.Events.OnPaymentAbandonment(r.Context(), req.Email, entity.PaymentAbandonment{
		Timestamp:         req.Timestamp,
		TimeOnPageSeconds: req.TimeOnPageSeconds,
	})
	h.respond(w, "abandonment", req.Email, res, err)
}

func (h *TrackingHandler) page(w http.ResponseWriter, r *http.Request, what string, fn func(context.Context, string) (usecase.TransitionResult, error), p page) {
	email := r.URL.Query().Get("email")
	if email == "" {
		badRequest(w, "missing email parameter")
		return
	}

	_, err := fn(r.Context(), email)
	h.logOutcome(what, email, chi.URLParam(r, "trackingId"), err)
	if usecase.IsTechnicalError(err) {
		writeError(w, err)
		return
	}
	writePage(w, http.StatusOK, p)
}

// respond reports domain refusals as a 200 with applied=false; the caller is a
// browser beacon with nothing to retry.
func (h *TrackingHandler) respond(w http.ResponseWriter, what, email string, res usecase.TransitionResult, err error) {
	h.logOutcome(what, email, "", err)
	if usecase.IsTechnicalError(err) {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "result": res})
}

func (h *TrackingHandler) destination(raw string) string {
	u, err := url.Parse(raw)
	if raw == "" || err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return h.fallbackURL
	}
	return u.String()
}

func (h *TrackingHandler) logOutcome(what, email, trackingID string, err error) {
	if err == nil {
		return
	}
	attrs := []any{
		slog.String("kind", what),
		slog.String("email", strings.ToLower(email)),
		slog.String("code", usecase.ErrorCode(err)),
		slog.Any("error", err),
	}
	if trackingID != "" {
		attrs = append(attrs, slog.String("tracking_id", trackingID))
	}
	if usecase.IsTechnicalError(err) {
		h.log.Error("tracking event failed", attrs...)
		return
	}
	h.log.Warn("tracking event discarded", attrs...)
}
