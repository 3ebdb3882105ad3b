package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/xavierca1/lead-funnel/internal/config"
	"github.com/xavierca1/lead-funnel/internal/entity"
	"github.com/xavierca1/lead-funnel/internal/infra/cache"
	"github.com/xavierca1/lead-funnel/internal/infra/database"
	"github.com/xavierca1/lead-funnel/internal/infra/http/handlers"
	"github.com/xavierca1/lead-funnel/internal/infra/http/middleware"
	"github.com/xavierca1/lead-funnel/internal/infra/mail"
	"github.com/xavierca1/lead-funnel/internal/infra/memory"
	"github.com/xavierca1/lead-funnel/internal/infra/queue"
	"github.com/xavierca1/lead-funnel/internal/infra/worker"
	"github.com/xavierca1/lead-funnel/internal/logger"
	"github.com/xavierca1/lead-funnel/internal/usecase"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config", slog.Any("error", err))
		os.Exit(1)
	}
	log := logger.New(cfg.Env)

	if err := run(cfg, log); err != nil {
		log.Error("server exited", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	checks := map[string]handlers.Check{"database": nil, "redis": nil, "rabbitmq": nil}

	// 1. Lead store
	var store entity.LeadStore
	if cfg.DatabaseURL != "" {
		db, err := database.NewDBConnection(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := database.Migrate(ctx, db); err != nil {
			return err
		}
		store = database.NewLeadRepository(db)
		checks["database"] = db.PingContext
		log.Info("lead store: postgres")
	} else {
		store = memory.NewLeadStore()
		log.Warn("DATABASE_URL not set, leads are kept in memory")
	}

	// 2. Engagement metadata
	var engagement entity.EngagementStore
	if cfg.RedisURL != "" {
		rdb, err := cache.NewClient(ctx, cfg.RedisURL)
		if err != nil {
			return err
		}
		defer rdb.Close()
		engagement = cache.NewEngagementStore(rdb, cfg.EngagementTTL)
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
		log.Info("engagement store: redis")
	} else {
		engagement = memory.NewEngagementStore(cfg.EngagementMaxEntries, cfg.EngagementTTL)
	}

	// 3. Notifier
	transport, err := mail.NewTransport(cfg.Mail, log)
	if err != nil {
		return err
	}
	renderer, err := mail.NewRenderer(cfg.Mail.FromName, mail.NewLinks(cfg.BaseURL, cfg.PaymentURL))
	if err != nil {
		return err
	}
	notifier := mail.NewEmailSender(renderer, transport, log)

	// 4. Status engine and use cases
	engineOpts := []usecase.EngineOption{usecase.WithCallTimeout(cfg.Scheduler.CallTimeout)}

	var rabbit *queue.RabbitMQ
	if cfg.RabbitMQURL != "" {
		rabbit, err = queue.NewRabbitMQ(cfg.RabbitMQURL)
		if err != nil {
			return err
		}
		defer rabbit.Close()
		engineOpts = append(engineOpts, usecase.WithPublisher(queue.NewProducer(rabbit.Ch)))
		checks["rabbitmq"] = func(context.Context) error {
			if !rabbit.Healthy() {
				return errors.New("connection closed")
			}
			return nil
		}
	}

	callTimeout := cfg.Scheduler.CallTimeout
	engine := usecase.NewStatusEngine(store, log, engineOpts...)
	eval := usecase.NewEligibilityEvaluator(usecase.Windows{
		Reminder1Wait:     cfg.Scheduler.Reminder1Wait,
		FinalReminderWait: cfg.Scheduler.FinalReminderWait,
	})
	followUps := usecase.NewFollowUpUseCase(store, engine, notifier, eval, callTimeout, log)
	tracking := usecase.NewTrackingUseCase(engine, engagement, callTimeout, log)
	submit := usecase.NewSubmitLeadUseCase(store, engine, notifier, callTimeout, log)
	admin := usecase.NewAdminUseCase(store, engagement, engine, followUps, callTimeout, log)

	// 5. Background work
	scheduler := worker.NewFollowUpScheduler(followUps, cfg.Scheduler, log)
	scheduler.Start(ctx)

	if rabbit != nil {
		ch, err := rabbit.Conn.Channel()
		if err != nil {
			return err
		}
		paymentWorker := queue.NewWorker(ch, tracking, log)
		go func() {
			if err := paymentWorker.Start(ctx, queue.PaymentQueue); err != nil {
				log.Error("payment worker stopped", slog.Any("error", err))
			}
		}()
	}

	limiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	go func() {
		t := time.NewTicker(time.Minute)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-t.C:
				limiter.Sweep(now)
			}
		}
	}()

	// 6. HTTP
	router := handlers.NewRouter(handlers.RouterDeps{
		Tracking:    handlers.NewTrackingHandler(tracking, cfg.PaymentURL, log),
		Submissions: handlers.NewSubmissionHandler(submit, admin, log),
		Admin:       handlers.NewAdminHandler(admin, scheduler),
		Webhooks:    handlers.NewWebhookHandler(tracking, scheduler, cfg.WebhookSecret, cfg.CronSecret, log),
		Health:      handlers.NewHealthHandler(checks, scheduler, cfg.Mail.Transport),
		RateLimiter: limiter,
		CORSOrigins: cfg.CORSOrigins,
		Log:         log,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", slog.String("addr", cfg.HTTPAddr), slog.String("mail", cfg.Mail.Transport))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Scheduler.DrainTimeout+5*time.Second)
	defer cancel()

	if err := scheduler.Stop(shutdownCtx); err != nil {
		log.Warn("scheduler did not drain", slog.Any("error", err))
	}
	return srv.Shutdown(shutdownCtx)
}
