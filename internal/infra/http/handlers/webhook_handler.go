package handlers

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/xavierca1/lead-funnel/internal/logger"
	"github.com/xavierca1/lead-funnel/internal/usecase"
)

const SignatureHeader = "X-Webhook-Signature"

// PaymentEvents is the subset of TrackingEvents the gateway webhooks drive.
type PaymentEvents interface {
	OnEmailOpened(ctx context.Context, email string) (usecase.TransitionResult, error)
	OnPaymentSuccess(ctx context.Context, email string) (usecase.TransitionResult, error)
	OnPaymentFailure(ctx context.Context, email string) (usecase.TransitionResult, error)
}

// WebhookHandler receives callbacks from the payment gateway, the mail
// provider and an external cron.
type WebhookHandler struct {
	Events        PaymentEvents
	Scheduler     SweepTrigger
	webhookSecret string
	cronSecret    string
	log           *logger.Logger
}

// NewWebhookHandler skips signature checks when webhookSecret is empty and the
// bearer check when cronSecret is empty.
func NewWebhookHandler(events PaymentEvents, scheduler SweepTrigger, webhookSecret, cronSecret string, log *logger.Logger) *WebhookHandler {
	return &WebhookHandler{
		Events:        events,
		Scheduler:     scheduler,
		webhookSecret: webhookSecret,
		cronSecret:    cronSecret,
		log:           log.WithComponent("webhook_http"),
	}
}

type paymentWebhook struct {
	Email     string  `json:"email"`
	PaymentID string  `json:"paymentId"`
	Amount    float64 `json:"amount"`
	Status    string  `json:"status"`
}

// PaymentConfirmation (POST /api/webhooks/payment-confirmation)
func (h *WebhookHandler) PaymentConfirmation(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		badRequest(w, "unreadable body")
		return
	}
	if !h.validSignature(body, r.Header.Get(SignatureHeader)) {
		h.log.Warn("payment webhook rejected, bad signature")
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Code: "INVALID_SIGNATURE", Message: "invalid webhook signature"})
		return
	}

	var event paymentWebhook
	if err := json.Unmarshal(body, &event); err != nil {
		badRequest(w, "invalid JSON")
		return
	}
	if event.Email == "" || event.PaymentID == "" || event.Status == "" {
		badRequest(w, "email, paymentId and status are required")
		return
	}

	var handle func(context.Context, string) (usecase.TransitionResult, error)
	switch strings.ToLower(event.Status) {
	case "succeeded", "completed":
		handle = h.Events.OnPaymentSuccess
	case "failed", "cancelled":
		handle = h.Events.OnPaymentFailure
	default:
		h.log.Warn("unknown payment status", slog.String("email", event.Email), slog.String("status", event.Status))
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "ignored": true})
		return
	}

	res, err := handle(r.Context(), event.Email)
	if usecase.IsTechnicalError(err) {
		h.log.Error("payment webhook failed", slog.String("email", event.Email), slog.Any("error", err))
		writeError(w, err)
		return
	}
	if err != nil {
		h.log.Warn("payment webhook discarded", slog.String("email", event.Email), slog.String("code", usecase.ErrorCode(err)))
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":      true,
		"payment_id":   event.PaymentID,
		"result":       res,
		"processed_at": time.Now().UTC(),
	})
}

type emailEvent struct {
	Email     string `json:"email"`
	Event     string `json:"event"`
	MessageID string `json:"messageId"`
}

// EmailEvents (POST /api/webhooks/email-events) accepts delivery events from
// the mail provider. Only "opened" changes lead status.
func (h *WebhookHandler) EmailEvents(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		badRequest(w, "unreadable body")
		return
	}
	if !h.validSignature(body, r.Header.Get(SignatureHeader)) {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Code: "INVALID_SIGNATURE", Message: "invalid webhook signature"})
		return
	}

	var event emailEvent
	if err := json.Unmarshal(body, &event); err != nil {
		badRequest(w, "invalid JSON")
		return
	}
	if event.Email == "" || event.Event == "" {
		badRequest(w, "email and event are required")
		return
	}

	log := h.log.WithEmail(event.Email)
	if event.Event != "opened" {
		log.Info("email event", slog.String("event", event.Event), slog.String("message_id", event.MessageID))
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
		return
	}

	res, err := h.Events.OnEmailOpened(r.Context(), event.Email)
	if usecase.IsTechnicalError(err) {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "result": res})
}

// RunSweep (POST /api/webhooks/scheduler) lets an external cron run a sweep.
func (h *WebhookHandler) RunSweep(w http.ResponseWriter, r *http.Request) {
	if h.cronSecret != "" {
		got := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if subtle.ConstantTimeCompare([]byte(got), []byte(h.cronSecret)) != 1 {
			writeJSON(w, http.StatusUnauthorized, ErrorResponse{Code: "UNAUTHORIZED", Message: "unauthorized"})
			return
		}
	}

	report, err := h.Scheduler.TriggerSweepNow(r.Context())
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{Code: "SWEEP_ABORTED", Message: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "report": report})
}

// Sign returns the hex HMAC-SHA256 of body under secret.
func Sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func (h *WebhookHandler) validSignature(body []byte, signature string) bool {
	if h.webhookSecret == "" {
		return true
	}
	want := Sign(body, h.webhookSecret)
	return hmac.Equal([]byte(want), []byte(strings.ToLower(signature)))
}
