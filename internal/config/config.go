// Package config loads process configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env        string
	HTTPAddr   string
	BaseURL    string
	PaymentURL string

	DatabaseURL string

	RedisURL             string
	EngagementTTL        time.Duration
	EngagementMaxEntries int

	RabbitMQURL string

	Mail MailConfig

	Scheduler SchedulerConfig

	WebhookSecret string
	CronSecret    string

	RateLimitRPS   float64
	RateLimitBurst int
	CORSOrigins    []string
}

type MailConfig struct {
	Transport      string
	Host           string
	Port           int
	User           string
	Password       string
	From           string
	FromName       string
	SendGridAPIKey string
}

// SchedulerConfig holds the follow-up windows and sweep policy.
type SchedulerConfig struct {
	SweepInterval     time.Duration
	Reminder1Wait     time.Duration
	FinalReminderWait time.Duration
	InterSendDelay    time.Duration
	Concurrency       int
	CallTimeout       time.Duration
	DrainTimeout      time.Duration
}

const (
	DefaultSweepInterval     = 5 * time.Minute
	DefaultReminder1Wait     = 48 * time.Hour
	DefaultFinalReminderWait = 48 * time.Hour
	DefaultInterSendDelay    = time.Second
	DefaultConcurrency       = 1
	DefaultCallTimeout       = 10 * time.Second
	DefaultDrainTimeout      = 30 * time.Second
)

// DefaultSchedulerConfig is what Load falls back to for every unset variable.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		SweepInterval:     DefaultSweepInterval,
		Reminder1Wait:     DefaultReminder1Wait,
		FinalReminderWait: DefaultFinalReminderWait,
		InterSendDelay:    DefaultInterSendDelay,
		Concurrency:       DefaultConcurrency,
		CallTimeout:       DefaultCallTimeout,
		DrainTimeout:      DefaultDrainTimeout,
	}
}

// Load reads .env when present and then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var errs []string
	dur := func(key string, def time.Duration) time.Duration {
		v, err := getDuration(key, def)
		if err != nil {
			errs = append(errs, err.Error())
		}
		return v
	}
	num := func(key string, def int) int {
		v, err := getInt(key, def)
		if err != nil {
			errs = append(errs, err.Error())
		}
		return v
	}

	cfg := &Config{
		Env:         getString("APP_ENV", "production"),
		HTTPAddr:    getString("HTTP_ADDR", ":8080"),
		BaseURL:     strings.TrimRight(getString("BASE_URL", "http://localhost:8080"), "/"),
		PaymentURL:  getString("PAYMENT_URL", "https://payment.example.com/consulting-cohort"),
		DatabaseURL: os.Getenv("DATABASE_URL"),

		RedisURL:             os.Getenv("REDIS_URL"),
		EngagementTTL:        dur("ENGAGEMENT_TTL", 30*24*time.Hour),
		EngagementMaxEntries: num("ENGAGEMENT_MAX_ENTRIES", 10000),

		RabbitMQURL: os.Getenv("RABBITMQ_URL"),

		Mail: MailConfig{
			Transport:      strings.ToLower(getString("MAIL_TRANSPORT", "console")),
			Host:           os.Getenv("MAIL_HOST"),
			Port:           num("MAIL_PORT", 587),
			User:           os.Getenv("MAIL_USER"),
			Password:       os.Getenv("MAIL_PASS"),
			From:           getString("MAIL_FROM", os.Getenv("MAIL_USER")),
			FromName:       getString("MAIL_FROM_NAME", "Consulting Cohort 101"),
			SendGridAPIKey: os.Getenv("SENDGRID_API_KEY"),
		},

		Scheduler: SchedulerConfig{
			SweepInterval:     dur("SWEEP_INTERVAL", DefaultSweepInterval),
			Reminder1Wait:     dur("REMINDER1_WAIT", DefaultReminder1Wait),
			FinalReminderWait: dur("FINAL_REMINDER_WAIT", DefaultFinalReminderWait),
			InterSendDelay:    dur("INTER_SEND_DELAY", DefaultInterSendDelay),
			Concurrency:       num("SWEEP_CONCURRENCY", DefaultConcurrency),
			CallTimeout:       dur("CALL_TIMEOUT", DefaultCallTimeout),
			DrainTimeout:      dur("DRAIN_TIMEOUT", DefaultDrainTimeout),
		},

		WebhookSecret: os.Getenv("WEBHOOK_SECRET"),
		CronSecret:    os.Getenv("CRON_SECRET"),

		RateLimitBurst: num("RATE_LIMIT_BURST", 10),
		CORSOrigins:    splitList(getString("CORS_ORIGINS", "*")),
	}

	rps, err := strconv.ParseFloat(getString("RATE_LIMIT_RPS", "5"), 64)
	if err != nil {
		errs = append(errs, fmt.Sprintf("RATE_LIMIT_RPS: %v", err))
	}
	cfg.RateLimitRPS = rps

	if len(errs) > 0 {
		return nil, fmt.Errorf("invalid configuration: %s", strings.Join(errs, "; "))
	}
	if err := cfg.Scheduler.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c SchedulerConfig) Validate() error {
	switch {
	case c.SweepInterval <= 0:
		return fmt.Errorf("SWEEP_INTERVAL must be positive")
	case c.Reminder1Wait < 0 || c.FinalReminderWait < 0:
		return fmt.Errorf("reminder waits must not be negative")
	case c.InterSendDelay < 0:
		return fmt.Errorf("INTER_SEND_DELAY must not be negative")
	case c.Concurrency < 1:
		return fmt.Errorf("SWEEP_CONCURRENCY must be at least 1")
	case c.CallTimeout <= 0:
		return fmt.Errorf("CALL_TIMEOUT must be positive")
	case c.DrainTimeout <= 0:
		return fmt.Errorf("DRAIN_TIMEOUT must be positive")
	}
	return nil
}

func getString(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getDuration(key string, def time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func getInt(key string, def int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
