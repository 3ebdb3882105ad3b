// Package memory holds map-backed stores for single-process runs and tests.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/xavierca1/lead-funnel/internal/entity"
)

type LeadStore struct {
	mu    sync.RWMutex
	leads map[string]*entity.Lead
	fail  map[string]error
}

func NewLeadStore() *LeadStore {
	return &LeadStore{
		leads: make(map[string]*entity.Lead),
		fail:  make(map[string]error),
	}
}

// FailOn makes every call to op ("create", "get", "list", "set_status")
// return err until cleared with a nil err.
func (s *LeadStore) FailOn(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.fail, op)
		return
	}
	s.fail[op] = err
}

func (s *LeadStore) Create(ctx context.Context, lead *entity.Lead) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail["create"]; err != nil {
		return err
	}

	if _, ok := s.leads[lead.Email]; ok {
		return entity.ErrAlreadyExists
	}
	cp := copyLead(lead)
	s.leads[lead.Email] = &cp
	return nil
}

func (s *LeadStore) Get(ctx context.Context, email string) (*entity.Lead, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.fail["get"]; err != nil {
		return nil, err
	}

	l, ok := s.leads[email]
	if !ok {
		return nil, entity.ErrNotFound
	}
	cp := copyLead(l)
	return &cp, nil
}

func (s *LeadStore) List(ctx context.Context) ([]entity.Lead, error) {
	return s.ListByStatus(ctx)
}

// ListByStatus with no statuses lists everything.
func (s *LeadStore) ListByStatus(ctx context.Context, statuses ...entity.Status) ([]entity.Lead, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.fail["list"]; err != nil {
		return nil, err
	}

	want := make(map[entity.Status]struct{}, len(statuses))
	for _, st := range statuses {
		want[st] = struct{}{}
	}

	res := make([]entity.Lead, 0, len(s.leads))
	for _, l := range s.leads {
		if len(want) > 0 {
			if _, ok := want[l.Status]; !ok {
				continue
			}
		}
		res = append(res, copyLead(l))
	}
	return res, nil
}

func (s *LeadStore) SetStatus(ctx context.Context, email string, status entity.Status, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail["set_status"]; err != nil {
		return err
	}

	l, ok := s.leads[email]
	if !ok {
		return entity.ErrNotFound
	}
	l.Status = status
	l.LastTransitionAt = at
	l.MarkStageSent(status, at)
	return nil
}

func copyLead(l *entity.Lead) entity.Lead {
	cp := *l
	cp.ConfirmationSentAt = copyTime(l.ConfirmationSentAt)
	cp.Reminder1SentAt = copyTime(l.Reminder1SentAt)
	cp.Reminder2SentAt = copyTime(l.Reminder2SentAt)
	cp.FinalReminderSentAt = copyTime(l.FinalReminderSentAt)
	cp.Engagement = nil
	return cp
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
