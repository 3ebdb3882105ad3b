package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/xavierca1/lead-funnel/internal/infra/http/middleware"
	"github.com/xavierca1/lead-funnel/internal/logger"
)

type RouterDeps struct {
	Tracking    *TrackingHandler
	Submissions *SubmissionHandler
	Admin       *AdminHandler
	Webhooks    *WebhookHandler
	Health      *HealthHandler
	RateLimiter *middleware.RateLimiter
	CORSOrigins []string
	Log         *logger.Logger
}

func NewRouter(d RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(middleware.RequestLogger(d.Log))
	r.Use(middleware.Metrics)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: d.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID", SignatureHeader},
		MaxAge:         300,
	}))

	limited := func(h http.HandlerFunc) http.Handler {
		if d.RateLimiter == nil {
			return h
		}
		return d.RateLimiter.Handler(h)
	}

	r.Get("/health", d.Health.Handle)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(chimw.Timeout(30 * time.Second))

		r.Route("/tracking", func(r chi.Router) {
			r.Get("/pixel/{trackingId}", d.Tracking.Pixel)
			r.Get("/link/{trackingId}", d.Tracking.Link)
			r.Get("/reply/{trackingId}", d.Tracking.Reply)
			r.Get("/payment-success", d.Tracking.PaymentSuccess)
			r.Get("/payment-failed", d.Tracking.PaymentFailed)
			r.Method(http.MethodPost, "/payment-page-visit", limited(d.Tracking.PaymentPageVisit))
			r.Method(http.MethodPost, "/payment-abandonment", limited(d.Tracking.PaymentAbandonment))
		})

		r.Method(http.MethodPost, "/submissions", limited(d.Submissions.Create))
		r.Get("/submissions/{email}", d.Submissions.Get)

		r.Route("/webhooks", func(r chi.Router) {
			r.Post("/payment-confirmation", d.Webhooks.PaymentConfirmation)
			r.Post("/email-events", d.Webhooks.EmailEvents)
			r.Get("/scheduler", d.Webhooks.RunSweep)
			r.Post("/scheduler", d.Webhooks.RunSweep)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Get("/stats", d.Admin.Stats)
			r.Get("/submissions", d.Admin.ListLeads)
			r.Get("/submissions/{email}", d.Admin.GetLead)
			r.Patch("/submissions/{email}/status", d.Admin.OverrideStatus)
			r.Get("/follow-ups", d.Admin.FollowUps)
			r.Post("/follow-ups/trigger", d.Admin.TriggerFollowUps)
			r.Post("/send-email", d.Admin.SendEmail)
			r.Get("/health", d.Health.Handle)
		})
	})

	return r
}
