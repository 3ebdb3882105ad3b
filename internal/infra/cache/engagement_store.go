package cache

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/xavierca1/lead-funnel/internal/entity"
)

const keyPrefix = "lead:engagement:"

const (
	fieldClickedURL       = "last_clicked_url"
	fieldClickedAt        = "clicked_at"
	fieldPaymentVisitedAt = "payment_visited_at"
	fieldAbandonedAt      = "payment_abandoned_at"
	fieldTrackingID       = "tracking_id"
	fieldUserAgent        = "user_agent"
	fieldReferrer         = "referrer"
	fieldTimeOnPage       = "time_on_page_seconds"
)

// EngagementStore keeps one hash per email. Every write refreshes the TTL, so
// idle leads age out on their own.
type EngagementStore struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewEngagementStore(rdb redis.Cmdable, ttl time.Duration) *EngagementStore {
	return &EngagementStore{rdb: rdb, ttl: ttl}
}

func (s *EngagementStore) RecordClick(ctx context.Context, email, url string, at time.Time) error {
	return s.write(ctx, email,
		fieldClickedURL, url,
		fieldClickedAt, formatTime(at),
	)
}

func (s *EngagementStore) RecordPaymentVisit(ctx context.Context, email string, visit entity.PaymentVisit) error {
	return s.write(ctx, email,
		fieldPaymentVisitedAt, formatTime(visit.Timestamp),
		fieldTrackingID, visit.TrackingID,
		fieldUserAgent, visit.UserAgent,
		fieldReferrer, visit.Referrer,
	)
}

func (s *EngagementStore) RecordAbandonment(ctx context.Context, email string, a entity.PaymentAbandonment) error {
	return s.write(ctx, email,
		fieldAbandonedAt, formatTime(a.Timestamp),
		fieldTimeOnPage, strconv.Itoa(a.TimeOnPageSeconds),
	)
}

func (s *EngagementStore) Get(ctx context.Context, email string) (*entity.Engagement, error) {
	h, err := s.rdb.HGetAll(ctx, keyPrefix+email).Result()
	if err != nil {
		return nil, err
	}
	if len(h) == 0 {
		return nil, nil
	}

	e := &entity.Engagement{
		LastClickedURL:     h[fieldClickedURL],
		ClickedAt:          parseTime(h[fieldClickedAt]),
		PaymentVisitedAt:   parseTime(h[fieldPaymentVisitedAt]),
		PaymentAbandonedAt: parseTime(h[fieldAbandonedAt]),
		TrackingID:         h[fieldTrackingID],
		UserAgent:          h[fieldUserAgent],
		Referrer:           h[fieldReferrer],
	}
	if v, ok := h[fieldTimeOnPage]; ok {
		e.TimeOnPageSeconds, _ = strconv.Atoi(v)
	}
	return e, nil
}

// write takes field/value pairs. Empty values are skipped so a sparse beacon
// does not wipe what an earlier one recorded.
func (s *EngagementStore) write(ctx context.Context, email string, fields ...string) error {
	key := keyPrefix + email
	values := make([]any, 0, len(fields))
	for i := 0; i+1 < len(fields); i += 2 {
		if fields[i+1] == "" {
			continue
		}
		values = append(values, fields[i], fields[i+1])
	}
	if len(values) == 0 {
		return nil
	}

	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, values...)
		pipe.Expire(ctx, key, s.ttl)
		return nil
	})
	return err
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return nil
	}
	return &t
}
