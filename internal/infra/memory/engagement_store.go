package memory

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/xavierca1/lead-funnel/internal/entity"
)

// EngagementStore keeps at most maxEntries emails, each for ttl after its
// last write. The least recently written entry goes first.
type EngagementStore struct {
	mu    sync.Mutex
	cache *expirable.LRU[string, entity.Engagement]
}

func NewEngagementStore(maxEntries int, ttl time.Duration) *EngagementStore {
	return &EngagementStore{cache: expirable.NewLRU[string, entity.Engagement](maxEntries, nil, ttl)}
}

func (s *EngagementStore) RecordClick(_ context.Context, email, url string, at time.Time) error {
	s.update(email, func(e *entity.Engagement) {
		e.LastClickedURL = url
		e.ClickedAt = &at
	})
	return nil
}

func (s *EngagementStore) RecordPaymentVisit(_ context.Context, email string, visit entity.PaymentVisit) error {
	s.update(email, func(e *entity.Engagement) {
		ts := visit.Timestamp
		e.PaymentVisitedAt = &ts
		keep(&e.TrackingID, visit.TrackingID)
		keep(&e.UserAgent, visit.UserAgent)
		keep(&e.Referrer, visit.Referrer)
	})
	return nil
}

func (s *EngagementStore) RecordAbandonment(_ context.Context, email string, a entity.PaymentAbandonment) error {
	s.update(email, func(e *entity.Engagement) {
		ts := a.Timestamp
		e.PaymentAbandonedAt = &ts
		e.TimeOnPageSeconds = a.TimeOnPageSeconds
	})
	return nil
}

func (s *EngagementStore) Get(_ context.Context, email string) (*entity.Engagement, error) {
	e, ok := s.cache.Get(email)
	if !ok {
		return nil, nil
	}
	return &e, nil
}

func (s *EngagementStore) Len() int {
	return s.cache.Len()
}

// update is a read-modify-write, so it holds mu across Peek and Add.
func (s *EngagementStore) update(email string, fn func(*entity.Engagement)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, _ := s.cache.Peek(email)
	fn(&e)
	s.cache.Add(email, e)
}

// keep overwrites dst only with a non-empty value.
func keep(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
