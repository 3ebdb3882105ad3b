package entity

import (
	"context"
	"time"
)

// Engagement is analytics metadata kept beside the lead row. Nothing in the
// lifecycle reads it for correctness.
type Engagement struct {
	LastClickedURL     string     `json:"last_clicked_url,omitempty"`
	ClickedAt          *time.Time `json:"clicked_at,omitempty"`
	PaymentVisitedAt   *time.Time `json:"payment_visited_at,omitempty"`
	PaymentAbandonedAt *time.Time `json:"payment_abandoned_at,omitempty"`
	TrackingID         string     `json:"tracking_id,omitempty"`
	UserAgent          string     `json:"user_agent,omitempty"`
	Referrer           string     `json:"referrer,omitempty"`
	TimeOnPageSeconds  int        `json:"time_on_page_seconds,omitempty"`
}

type PaymentVisit struct {
	TrackingID string    `json:"trackingId"`
	Timestamp  time.Time `json:"timestamp"`
	UserAgent  string    `json:"userAgent"`
	Referrer   string    `json:"referrer"`
}

type PaymentAbandonment struct {
	Timestamp         time.Time `json:"timestamp"`
	TimeOnPageSeconds int       `json:"timeOnPage"`
}

// EngagementStore is the bounded side-table keyed by email.
type EngagementStore interface {
	RecordClick(ctx context.Context, email, url string, at time.Time) error
	RecordPaymentVisit(ctx context.Context, email string, visit PaymentVisit) error
	RecordAbandonment(ctx context.Context, email string, abandonment PaymentAbandonment) error
	// Get returns nil without error when nothing is recorded for email.
	Get(ctx context.Context, email string) (*Engagement, error)
}
