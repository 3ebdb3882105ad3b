package usecase_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/xavierca1/lead-funnel/internal/entity"
	"github.com/xavierca1/lead-funnel/internal/infra/memory"
	"github.com/xavierca1/lead-funnel/internal/logger"
	"github.com/xavierca1/lead-funnel/internal/usecase"
)

func nopLog() *logger.Logger { return logger.Nop() }

var t0 = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(at time.Time) *fakeClock { return &fakeClock{now: at} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// MockNotifier
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Send(ctx context.Context, lead *entity.Lead, kind entity.MessageKind) error {
	args := m.Called(ctx, lead.Email, kind)
	return args.Error(0)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []usecase.TransitionEvent
}

func (p *recordingPublisher) PublishTransition(_ context.Context, ev usecase.TransitionEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

type harness struct {
	clock      *fakeClock
	store      *memory.LeadStore
	notifier   *MockNotifier
	publisher  *recordingPublisher
	engagement *memory.EngagementStore
	engine     *usecase.StatusEngine
	tracking   *usecase.TrackingUseCase
	followUps  *usecase.FollowUpUseCase
	submit     *usecase.SubmitLeadUseCase
	admin      *usecase.AdminUseCase
}

var testWindows = usecase.Windows{Reminder1Wait: 48 * time.Hour, FinalReminderWait: 48 * time.Hour}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		clock:     newFakeClock(t0),
		store:     memory.NewLeadStore(),
		notifier:  new(MockNotifier),
		publisher: &recordingPublisher{},
	}
	log := logger.Nop()
	engagement := memory.NewEngagementStore(100, time.Hour)
	h.engagement = engagement

	h.engine = usecase.NewStatusEngine(h.store, log,
		usecase.WithClock(h.clock.Now),
		usecase.WithPublisher(h.publisher),
		usecase.WithCallTimeout(time.Second),
	)
	h.tracking = usecase.NewTrackingUseCase(h.engine, engagement, time.Second, log)
	h.followUps = usecase.NewFollowUpUseCase(h.store, h.engine, h.notifier, usecase.NewEligibilityEvaluator(testWindows), time.Second, log)
	h.submit = usecase.NewSubmitLeadUseCase(h.store, h.engine, h.notifier, time.Second, log)
	h.admin = usecase.NewAdminUseCase(h.store, engagement, h.engine, h.followUps, time.Second, log)
	return h
}

// seed creates a lead and walks it to status through the store directly.
func (h *harness) seed(t *testing.T, email string, statuses ...entity.Status) {
	t.Helper()
	require.NoError(t, h.store.Create(context.Background(), entity.NewLead("Test Lead", email, "", h.clock.Now())))
	for _, s := range statuses {
		require.NoError(t, h.store.SetStatus(context.Background(), email, s, h.clock.Now()))
	}
}

func (h *harness) status(t *testing.T, email string) entity.Status {
	t.Helper()
	l, err := h.store.Get(context.Background(), email)
	require.NoError(t, err)
	return l.Status
}
